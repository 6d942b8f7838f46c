package session

import (
	"strings"
	"sync"
	"time"

	"vecta-client/internal/model"
	"vecta-client/internal/pkg/logger"
)

// Accumulator assembles one logical assistant message from a sequence of
// partial-content chunks. At most one accumulation is in flight per session;
// the open message is the only one in the log with IsStreaming set.
type Accumulator struct {
	store  *Store
	logger logger.ILogger

	// Chunks arrive on the transport read loop, but teardown (Reset) runs on
	// the caller's goroutine, so the accumulation state is mutex-guarded.
	mu        sync.Mutex
	currentId string
	buffer    strings.Builder
}

func NewAccumulator(store *Store, log logger.ILogger) *Accumulator {
	return &Accumulator{store: store, logger: log}
}

// Apply folds one chunk into the open stream, opening a new one on the first
// non-empty chunk of an utterance. A chunk with isComplete set finalizes the
// stream, with or without trailing content.
func (a *Accumulator) Apply(content string, isComplete bool, timestamp time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.currentId == "" {
		if content == "" {
			// Nothing buffered and nothing to say. A bare terminator or an
			// empty keepalive chunk is a no-op.
			return
		}

		msg := a.store.AppendMessage(model.ChatMessage{
			Type:        model.MessageTypeAssistant,
			Content:     content,
			Timestamp:   timestamp,
			IsStreaming: !isComplete,
		})
		if isComplete {
			return
		}
		a.currentId = msg.Id
		a.buffer.Reset()
		a.buffer.WriteString(content)
		return
	}

	a.buffer.WriteString(content)

	if isComplete {
		a.finalizeLocked()
		return
	}
	a.store.UpdateMessageContent(a.currentId, a.buffer.String())
}

// FinalizeOpen defensively closes a stream left open, keeping whatever text
// it gathered. Called when a new utterance or a reconnect supersedes an
// unfinished stream; backend intent there is unconfirmed, so losing the tail
// beats holding a forever-streaming message.
func (a *Accumulator) FinalizeOpen() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.currentId == "" {
		return
	}
	a.logger.Warn("Accumulator", "Finalizing stale stream", map[string]interface{}{
		"message_id": a.currentId,
		"buffered":   a.buffer.Len(),
	})
	a.finalizeLocked()
}

func (a *Accumulator) finalizeLocked() {
	a.store.FinalizeMessage(a.currentId, a.buffer.String())
	a.currentId = ""
	a.buffer.Reset()
}

// Streaming reports whether an accumulation is currently open.
func (a *Accumulator) Streaming() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentId != ""
}

// Reset drops any open accumulation without touching the log. Used when the
// session is torn down underneath the stream.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.currentId = ""
	a.buffer.Reset()
}
