package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"vecta-client/internal/model"
	"vecta-client/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

// UpdatesTopic carries one notification per store mutation. The renderer and
// the persistence bridge subscribe here instead of polling.
const UpdatesTopic = "session.updates"

// Update names the entity a store mutation touched.
type Update struct {
	Entity string `json:"entity"`
}

const (
	EntityStatus     = "status"
	EntitySession    = "session"
	EntityMessages   = "messages"
	EntityGoals      = "goals"
	EntityProfile    = "profile"
	EntityCollected  = "collected_data"
	EntityExtraction = "pending_extraction"
	EntityUpload     = "pending_upload_prompt"
	EntityBookmarks  = "bookmarks"
	EntityLastError  = "last_error"
	EntityCleared    = "cleared"
)

// Store is the authoritative session state: ordered message log, goal and
// profile snapshots, collected interview data, pending document prompts and
// client-owned bookmarks. One instance per active session, shared by the
// transport event handlers and the UI layer; all mutation goes through its
// operations so the single-writer invariant per entity holds.
type Store struct {
	mu sync.RWMutex

	sessionId string
	status    model.SessionStatus
	lastError string

	messages    []model.ChatMessage
	goals       model.GoalState
	profile     *model.FinancialProfile
	collected   model.CollectedData
	currentNode string

	pendingExtraction *model.PendingExtraction
	pendingUpload     *model.PendingUploadPrompt

	bookmarks []model.Bookmark

	pubSub *gochannel.GoChannel
	logger logger.ILogger
}

func NewStore(pubSub *gochannel.GoChannel, log logger.ILogger) *Store {
	return &Store{
		status:    model.StatusDisconnected,
		collected: make(model.CollectedData),
		pubSub:    pubSub,
		logger:    log,
	}
}

// Subscribe returns the store's change feed. Consumers must drain it.
func (s *Store) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return s.pubSub.Subscribe(ctx, UpdatesTopic)
}

func (s *Store) publish(entity string) {
	if s.pubSub == nil {
		return
	}
	payload, _ := json.Marshal(Update{Entity: entity})
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := s.pubSub.Publish(UpdatesTopic, msg); err != nil {
		s.logger.Warn("SessionStore", "Failed to publish update", map[string]interface{}{
			"entity": entity,
			"error":  err.Error(),
		})
	}
}

// --- Session identity & status ---

func (s *Store) SetSessionId(id string) {
	s.mu.Lock()
	s.sessionId = id
	s.mu.Unlock()
	s.publish(EntitySession)
}

func (s *Store) SessionId() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionId
}

func (s *Store) SetStatus(status model.SessionStatus) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
	s.publish(EntityStatus)
}

func (s *Store) Status() model.SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Store) SetLastError(msg string) {
	s.mu.Lock()
	s.lastError = msg
	s.mu.Unlock()
	s.publish(EntityLastError)
}

func (s *Store) ClearLastError() {
	s.mu.Lock()
	s.lastError = ""
	s.mu.Unlock()
	s.publish(EntityLastError)
}

func (s *Store) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// --- Message log ---

// AppendMessage adds one message to the log, assigning an id and timestamp
// when the caller left them empty. Returns the stored message.
func (s *Store) AppendMessage(msg model.ChatMessage) model.ChatMessage {
	if msg.Id == "" {
		msg.Id = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	s.publish(EntityMessages)
	return msg
}

// UpdateMessageContent mutates the content of the message with the given id
// in place. Only the actively streaming message is a legal target.
func (s *Store) UpdateMessageContent(id, content string) bool {
	s.mu.Lock()
	updated := false
	for i := range s.messages {
		if s.messages[i].Id == id {
			s.messages[i].Content = content
			updated = true
			break
		}
	}
	s.mu.Unlock()
	if updated {
		s.publish(EntityMessages)
	}
	return updated
}

// FinalizeMessage writes the final content and drops the streaming flag.
func (s *Store) FinalizeMessage(id, content string) bool {
	s.mu.Lock()
	updated := false
	for i := range s.messages {
		if s.messages[i].Id == id {
			s.messages[i].Content = content
			s.messages[i].IsStreaming = false
			updated = true
			break
		}
	}
	s.mu.Unlock()
	if updated {
		s.publish(EntityMessages)
	}
	return updated
}

// Messages returns a copy of the log in insertion order.
func (s *Store) Messages() []model.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// SetMessages replaces the log wholesale. Used only by the persistence
// bridge when rehydrating a stored session.
func (s *Store) SetMessages(messages []model.ChatMessage) {
	s.mu.Lock()
	s.messages = append([]model.ChatMessage(nil), messages...)
	s.mu.Unlock()
	s.publish(EntityMessages)
}

// --- Goal state ---

// ReplaceGoalState swaps the whole snapshot; goal updates are never merged
// field by field.
func (s *Store) ReplaceGoalState(state model.GoalState) {
	s.mu.Lock()
	s.goals = state
	s.mu.Unlock()
	s.publish(EntityGoals)
}

func (s *Store) GoalState() model.GoalState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := model.GoalState{
		QualifiedGoals: append([]model.GoalRecord(nil), s.goals.QualifiedGoals...),
		PossibleGoals:  append([]model.GoalRecord(nil), s.goals.PossibleGoals...),
		RejectedGoals:  append([]string(nil), s.goals.RejectedGoals...),
	}
	return out
}

// --- Financial profile ---

func (s *Store) ReplaceProfile(profile model.FinancialProfile) {
	s.mu.Lock()
	s.profile = &profile
	s.mu.Unlock()
	s.publish(EntityProfile)
}

func (s *Store) Profile() *model.FinancialProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return nil
	}
	p := *s.profile
	return &p
}

// --- Collected interview data ---

// MergeCollectedData merges the fields gathered for one interview node and
// remembers it as the current node. Existing fields under the node are
// overwritten key by key, never pruned.
func (s *Store) MergeCollectedData(node string, fields map[string]interface{}) {
	if node == "" {
		return
	}
	s.mu.Lock()
	existing, ok := s.collected[node]
	if !ok {
		existing = make(map[string]interface{}, len(fields))
		s.collected[node] = existing
	}
	for k, v := range fields {
		existing[k] = v
	}
	s.currentNode = node
	s.mu.Unlock()
	s.publish(EntityCollected)
}

func (s *Store) CollectedData() model.CollectedData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(model.CollectedData, len(s.collected))
	for node, fields := range s.collected {
		copied := make(map[string]interface{}, len(fields))
		for k, v := range fields {
			copied[k] = v
		}
		out[node] = copied
	}
	return out
}

func (s *Store) CurrentNode() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentNode
}

// SetCollectedData replaces the collected snapshot. Rehydration only.
func (s *Store) SetCollectedData(data model.CollectedData, currentNode string) {
	if data == nil {
		data = make(model.CollectedData)
	}
	s.mu.Lock()
	s.collected = data
	s.currentNode = currentNode
	s.mu.Unlock()
	s.publish(EntityCollected)
}

// --- Pending document prompts (single slot each) ---

func (s *Store) SetPendingExtraction(p model.PendingExtraction) {
	s.mu.Lock()
	s.pendingExtraction = &p
	s.mu.Unlock()
	s.publish(EntityExtraction)
}

func (s *Store) ClearPendingExtraction() {
	s.mu.Lock()
	s.pendingExtraction = nil
	s.mu.Unlock()
	s.publish(EntityExtraction)
}

func (s *Store) PendingExtraction() *model.PendingExtraction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pendingExtraction == nil {
		return nil
	}
	p := *s.pendingExtraction
	return &p
}

func (s *Store) SetPendingUploadPrompt(p model.PendingUploadPrompt) {
	s.mu.Lock()
	s.pendingUpload = &p
	s.mu.Unlock()
	s.publish(EntityUpload)
}

func (s *Store) ClearPendingUploadPrompt() {
	s.mu.Lock()
	s.pendingUpload = nil
	s.mu.Unlock()
	s.publish(EntityUpload)
}

func (s *Store) PendingUploadPrompt() *model.PendingUploadPrompt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pendingUpload == nil {
		return nil
	}
	p := *s.pendingUpload
	return &p
}

// --- Bookmarks (session-independent) ---

func (s *Store) AddBookmark(b model.Bookmark) model.Bookmark {
	if b.Id == "" {
		b.Id = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	s.mu.Lock()
	s.bookmarks = append(s.bookmarks, b)
	s.mu.Unlock()
	s.publish(EntityBookmarks)
	return b
}

func (s *Store) RemoveBookmark(id string) bool {
	s.mu.Lock()
	removed := false
	for i := range s.bookmarks {
		if s.bookmarks[i].Id == id {
			s.bookmarks = append(s.bookmarks[:i], s.bookmarks[i+1:]...)
			removed = true
			break
		}
	}
	s.mu.Unlock()
	if removed {
		s.publish(EntityBookmarks)
	}
	return removed
}

func (s *Store) Bookmarks() []model.Bookmark {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Bookmark, len(s.bookmarks))
	copy(out, s.bookmarks)
	return out
}

// SetBookmarks replaces the bookmark list. Rehydration only.
func (s *Store) SetBookmarks(bookmarks []model.Bookmark) {
	s.mu.Lock()
	s.bookmarks = append([]model.Bookmark(nil), bookmarks...)
	s.mu.Unlock()
	s.publish(EntityBookmarks)
}

// --- Teardown ---

// Clear resets every session-scoped entity to its initial value. Bookmarks
// survive: they are user-local and outlive sessions.
func (s *Store) Clear() {
	s.mu.Lock()
	s.sessionId = ""
	s.status = model.StatusDisconnected
	s.lastError = ""
	s.messages = nil
	s.goals = model.GoalState{}
	s.profile = nil
	s.collected = make(model.CollectedData)
	s.currentNode = ""
	s.pendingExtraction = nil
	s.pendingUpload = nil
	s.mu.Unlock()
	s.publish(EntityCleared)
}
