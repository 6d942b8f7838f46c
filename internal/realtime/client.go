package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"vecta-client/internal/config"
	"vecta-client/internal/model"
	"vecta-client/internal/pkg/logger"
	"vecta-client/internal/protocol"
	"vecta-client/internal/session"

	"github.com/gorilla/websocket"
)

// ErrNotConnected is surfaced to callers that try to send while the
// transport is not open. The caller decides whether to re-prompt; the client
// never queues or retries a failed send.
var ErrNotConnected = errors.New("not connected, please wait")

// Transport is the persistent full-duplex connection to the backend.
// *websocket.Conn satisfies it; tests substitute fakes.
type Transport interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Dialer opens a Transport. Injectable so tests can connect to fakes.
type Dialer func(ctx context.Context, url string) (Transport, error)

// GorillaDialer dials the backend over a real websocket.
func GorillaDialer(ctx context.Context, url string) (Transport, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

const (
	stateIdle = iota
	stateConnecting
	stateOpen
	stateClosed
)

// Client owns the realtime channel lifecycle: it connects, classifies
// inbound frames, feeds the store and the accumulator, and supervises
// reconnection with exponential backoff. It is the single authority on
// connection status; consumers read the store, they never recompute it.
type Client struct {
	cfg        config.RealtimeConfig
	dialer     Dialer
	store      *session.Store
	acc        *session.Accumulator
	logger     logger.ILogger
	authorized func() bool

	mu             sync.Mutex
	state          int
	manual         bool
	attempts       int
	conn           Transport
	reconnectTimer *time.Timer

	// afterFunc is time.AfterFunc unless a test substitutes it to observe
	// the backoff schedule.
	afterFunc func(d time.Duration, f func()) *time.Timer

	writeMu sync.Mutex
}

// NewClient wires a realtime client. authorized gates reconnection: once it
// reports false (e.g. the auth token expired or the user logged out) no
// further attempts are scheduled. A nil authorized always allows.
func NewClient(cfg config.RealtimeConfig, store *session.Store, acc *session.Accumulator, log logger.ILogger, authorized func() bool) *Client {
	if authorized == nil {
		authorized = func() bool { return true }
	}
	return &Client{
		cfg:        cfg,
		dialer:     GorillaDialer,
		store:      store,
		acc:        acc,
		logger:     log,
		authorized: authorized,
		state:      stateIdle,
		afterFunc:  time.AfterFunc,
	}
}

// SetDialer replaces the transport dialer. Call before Connect.
func (c *Client) SetDialer(d Dialer) {
	c.dialer = d
}

// Connect opens the realtime channel. A call while the channel is already
// connecting or open is a no-op: there is never more than one live transport
// per session. Clears a previous manual-disconnect flag.
func (c *Client) Connect(ctx context.Context) {
	c.mu.Lock()
	if c.state == stateConnecting || c.state == stateOpen {
		c.mu.Unlock()
		return
	}
	c.manual = false
	c.state = stateConnecting
	c.cancelReconnectLocked()
	c.mu.Unlock()

	c.store.SetStatus(model.StatusConnecting)
	go c.dial(ctx)
}

func (c *Client) dial(ctx context.Context) {
	conn, err := c.dialer(ctx, c.cfg.URL)
	if err != nil {
		c.logger.Warn("Realtime", "Dial failed", map[string]interface{}{
			"url":   c.cfg.URL,
			"error": err.Error(),
		})
		c.mu.Lock()
		c.state = stateClosed
		manual := c.manual
		c.mu.Unlock()
		if !manual {
			c.scheduleReconnect(ctx)
		}
		return
	}

	c.mu.Lock()
	if c.manual {
		// Disconnect raced the dial; drop the fresh transport.
		c.mu.Unlock()
		conn.Close()
		return
	}
	c.conn = conn
	c.state = stateOpen
	c.attempts = 0
	c.mu.Unlock()

	c.store.ClearLastError()
	c.store.SetStatus(model.StatusConnected)
	c.logger.Info("Realtime", "Channel open", map[string]interface{}{"url": c.cfg.URL})

	go c.readLoop(ctx, conn)
}

func (c *Client) readLoop(ctx context.Context, conn Transport) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.handleClose(ctx, conn, err)
			return
		}
		// A frame read just before teardown must not be applied to the next
		// session's state.
		c.mu.Lock()
		current := c.conn == conn
		c.mu.Unlock()
		if !current {
			return
		}
		c.dispatch(raw)
	}
}

// handleClose runs when a transport's read loop dies. Events from a
// transport that has already been torn down are ignored, so a late close
// arriving after Disconnect can never trigger a reconnect.
func (c *Client) handleClose(ctx context.Context, conn Transport, err error) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.state = stateClosed
	manual := c.manual
	c.mu.Unlock()
	conn.Close()

	if manual {
		return
	}

	if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		c.logger.Info("Realtime", "Channel closed normally", nil)
		c.store.SetStatus(model.StatusDisconnected)
		return
	}

	c.logger.Warn("Realtime", "Channel closed abnormally", map[string]interface{}{
		"error": err.Error(),
	})
	c.scheduleReconnect(ctx)
}

func (c *Client) scheduleReconnect(ctx context.Context) {
	if !c.authorized() {
		c.logger.Info("Realtime", "Session no longer authorized, not reconnecting", nil)
		c.store.SetStatus(model.StatusDisconnected)
		return
	}

	c.mu.Lock()
	if c.manual {
		c.mu.Unlock()
		return
	}
	if c.attempts >= c.cfg.MaxRetries {
		c.mu.Unlock()
		c.store.SetStatus(model.StatusError)
		c.store.SetLastError("failed to reconnect, please refresh")
		c.store.AppendMessage(model.ChatMessage{
			Type:    model.MessageTypeError,
			Content: "Connection lost and could not be re-established. Please refresh.",
		})
		return
	}

	delay := c.cfg.BaseRetryDelay << c.attempts
	c.attempts++
	attempt := c.attempts
	c.reconnectTimer = c.afterFunc(delay, func() {
		c.mu.Lock()
		c.reconnectTimer = nil
		if c.manual || c.state == stateConnecting || c.state == stateOpen {
			c.mu.Unlock()
			return
		}
		c.state = stateConnecting
		c.mu.Unlock()
		c.store.SetStatus(model.StatusConnecting)
		go c.dial(ctx)
	})
	c.mu.Unlock()

	c.store.SetStatus(model.StatusDisconnected)
	c.logger.Info("Realtime", "Reconnect scheduled", map[string]interface{}{
		"attempt":  attempt,
		"delay_ms": delay.Milliseconds(),
	})
}

// Disconnect tears the session down: manual flag set, pending reconnect
// cancelled, transport detached before it is closed, attempt counter reset,
// and all session-scoped state cleared. Bookmarks survive. This is the
// logout / "new session" path, not a plain network disconnect.
func (c *Client) Disconnect() {
	c.closeTransport()
	c.acc.Reset()
	c.store.Clear()
	c.logger.Info("Realtime", "Session torn down", nil)
}

// Close releases the transport without clearing session state. Process-exit
// path: the persisted session must survive for the next start.
func (c *Client) Close() {
	c.closeTransport()
	c.acc.Reset()
	c.store.SetStatus(model.StatusDisconnected)
}

func (c *Client) closeTransport() {
	c.mu.Lock()
	c.manual = true
	c.cancelReconnectLocked()
	conn := c.conn
	c.conn = nil
	c.state = stateClosed
	c.attempts = 0
	c.mu.Unlock()

	if conn != nil {
		conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}
}

// cancelReconnectLocked stops a pending reconnect timer. Caller holds c.mu.
// Every exit path that changes connection intent must come through here or
// a stale timer produces a duplicate transport.
func (c *Client) cancelReconnectLocked() {
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
}

// --- Outbound commands ---

// SendUserMessage builds and sends a user_message frame, then appends the
// message to the local log. A send while the channel is not open fails with
// ErrNotConnected and leaves the log untouched.
func (c *Client) SendUserMessage(content string) error {
	frame, err := protocol.EncodeUserMessage(content, time.Now())
	if err != nil {
		return fmt.Errorf("encode user message: %w", err)
	}
	if err := c.write(frame); err != nil {
		return err
	}
	c.store.AppendMessage(model.ChatMessage{
		Type:    model.MessageTypeUser,
		Content: content,
	})
	return nil
}

// SendDocumentUpload tells the backend a document landed in storage. Clears
// the pending upload prompt: the user has responded to it.
func (c *Client) SendDocumentUpload(s3URL, documentType, filename string) error {
	frame, err := protocol.EncodeDocumentUpload(s3URL, documentType, filename, time.Now())
	if err != nil {
		return fmt.Errorf("encode document upload: %w", err)
	}
	if err := c.write(frame); err != nil {
		return err
	}
	c.store.ClearPendingUploadPrompt()
	return nil
}

// SendDocumentConfirm answers the pending extraction. Clears the pending
// extraction slot on a successful send.
func (c *Client) SendDocumentConfirm(extractionId string, confirmed bool, corrections map[string]interface{}) error {
	frame, err := protocol.EncodeDocumentConfirm(extractionId, confirmed, corrections, time.Now())
	if err != nil {
		return fmt.Errorf("encode document confirm: %w", err)
	}
	if err := c.write(frame); err != nil {
		return err
	}
	c.store.ClearPendingExtraction()
	return nil
}

func (c *Client) write(frame []byte) error {
	c.mu.Lock()
	conn := c.conn
	open := c.state == stateOpen
	c.mu.Unlock()

	if !open || conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// --- Inbound dispatch ---

// dispatch classifies one raw frame and applies it. Decode failures are
// logged and dropped; the channel stays open.
func (c *Client) dispatch(raw []byte) {
	ev, err := protocol.Decode(raw)
	if err != nil {
		c.logger.Warn("Realtime", "Discarding frame", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	switch ev := ev.(type) {
	case protocol.ConnectionEstablished:
		// A handshake supersedes any stream left open across a reconnect.
		c.acc.FinalizeOpen()
		if ev.SessionId != "" {
			c.store.SetSessionId(ev.SessionId)
		}
		c.store.SetStatus(model.StatusConnected)

	case protocol.ChatChunk:
		c.acc.Apply(ev.Content, ev.IsComplete, ev.Timestamp)

	case protocol.ErrorEvent:
		c.store.SetLastError(ev.Message)
		c.store.AppendMessage(model.ChatMessage{
			Type:      model.MessageTypeError,
			Content:   ev.Message,
			Timestamp: ev.Timestamp,
		})

	case protocol.GoalUpdate:
		c.store.ReplaceGoalState(ev.State)

	case protocol.ProfileUpdate:
		c.store.ReplaceProfile(ev.Profile)
		c.store.AppendMessage(model.ChatMessage{
			Type:         model.MessageTypeProfileUpdate,
			Timestamp:    ev.Timestamp,
			ProfileDelta: ev.Delta,
		})

	case protocol.CollectedDataUpdate:
		c.store.MergeCollectedData(ev.Node, ev.Fields)

	case protocol.DocumentProcessing:
		content := ev.Message
		if content == "" {
			content = fmt.Sprintf("Processing %s", ev.Filename)
		}
		c.store.AppendMessage(model.ChatMessage{
			Type:      model.MessageTypeDocumentProcessing,
			Content:   content,
			Timestamp: ev.Timestamp,
		})

	case protocol.DocumentExtraction:
		c.store.SetPendingExtraction(model.PendingExtraction{
			ExtractionId: ev.ExtractionId,
			DocumentType: ev.DocumentType,
			Fields:       ev.Fields,
		})
		c.store.AppendMessage(model.ChatMessage{
			Type:      model.MessageTypeDocumentExtraction,
			Content:   ev.Message,
			Timestamp: ev.Timestamp,
			Extraction: &model.ExtractionPayload{
				ExtractionId: ev.ExtractionId,
				DocumentType: ev.DocumentType,
				Fields:       ev.Fields,
			},
		})

	case protocol.UploadPrompt:
		c.store.SetPendingUploadPrompt(model.PendingUploadPrompt{
			Prompt:        ev.Prompt,
			DocumentTypes: ev.DocumentTypes,
		})
		c.store.AppendMessage(model.ChatMessage{
			Type:      model.MessageTypeUploadPrompt,
			Content:   ev.Prompt,
			Timestamp: ev.Timestamp,
			UploadPrompt: &model.UploadPromptPayload{
				Prompt:        ev.Prompt,
				DocumentTypes: ev.DocumentTypes,
			},
		})

	case protocol.Visualization:
		payload := ev.Payload
		c.store.AppendMessage(model.ChatMessage{
			Type:          model.MessageTypeVisualization,
			Content:       ev.Message,
			Timestamp:     ev.Timestamp,
			Visualization: &payload,
		})

	case protocol.UIActions:
		c.store.AppendMessage(model.ChatMessage{
			Type:      model.MessageTypeUIActions,
			Content:   ev.Message,
			Timestamp: ev.Timestamp,
			Actions:   ev.Actions,
		})

	case protocol.GoalQualification:
		goal := ev.Goal
		c.store.AppendMessage(model.ChatMessage{
			Type:      model.MessageTypeGoalQualification,
			Content:   ev.Message,
			Timestamp: ev.Timestamp,
			Goal:      &goal,
		})

	case protocol.ScenarioQuestion:
		scenario := ev.Scenario
		c.store.AppendMessage(model.ChatMessage{
			Type:      model.MessageTypeScenarioQuestion,
			Content:   ev.Scenario.Question,
			Timestamp: ev.Timestamp,
			Scenario:  &scenario,
		})
	}
}
