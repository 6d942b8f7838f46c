package session

import (
	"context"
	"encoding/json"
	"errors"

	"vecta-client/internal/model"
	"vecta-client/internal/pkg/logger"
	"vecta-client/internal/storage"
)

// Storage keys. The session blob and the bookmark blob are independent so a
// session clear never touches bookmarks.
const (
	SessionKey   = "vecta_session"
	BookmarksKey = "vecta_bookmarks"
)

// persistedSession is the durable shape of a session. Timestamps inside the
// messages marshal as RFC 3339 strings and rehydrate back into time values.
type persistedSession struct {
	SessionId     string              `json:"session_id"`
	Messages      []model.ChatMessage `json:"messages"`
	GoalState     model.GoalState     `json:"goal_state"`
	CollectedData model.CollectedData `json:"collected_data"`
	CurrentNode   string              `json:"current_node,omitempty"`
}

// Bridge mirrors the store into the local blob store so a session survives a
// process restart, the way the browser client survives a page reload.
type Bridge struct {
	store  *Store
	blobs  storage.BlobStore
	logger logger.ILogger
}

func NewBridge(store *Store, blobs storage.BlobStore, log logger.ILogger) *Bridge {
	return &Bridge{store: store, blobs: blobs, logger: log}
}

// Run consumes the store's change feed and writes the affected blob after
// every mutation. Blocks until ctx is cancelled or the feed closes.
func (b *Bridge) Run(ctx context.Context) error {
	updates, err := b.store.Subscribe(ctx)
	if err != nil {
		return err
	}

	for msg := range updates {
		var update Update
		if err := json.Unmarshal(msg.Payload, &update); err != nil {
			msg.Ack()
			continue
		}
		msg.Ack()

		switch update.Entity {
		case EntityBookmarks:
			b.saveBookmarks()
		case EntityStatus, EntityLastError:
			// Transient; never persisted.
		case EntityCleared:
			if err := b.blobs.Delete(SessionKey); err != nil {
				b.logger.Warn("PersistenceBridge", "Failed to delete session blob", map[string]interface{}{
					"error": err.Error(),
				})
			}
		default:
			b.saveSession()
		}
	}
	return nil
}

// saveSession snapshots the session-scoped state. A session-less or
// message-less state is never persisted.
func (b *Bridge) saveSession() {
	sessionId := b.store.SessionId()
	if sessionId == "" {
		return
	}
	messages := b.store.Messages()
	if len(messages) == 0 {
		return
	}

	blob, err := json.Marshal(persistedSession{
		SessionId:     sessionId,
		Messages:      messages,
		GoalState:     b.store.GoalState(),
		CollectedData: b.store.CollectedData(),
		CurrentNode:   b.store.CurrentNode(),
	})
	if err != nil {
		b.logger.Error("PersistenceBridge", "Failed to marshal session", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	if err := b.blobs.Put(SessionKey, blob); err != nil {
		b.logger.Error("PersistenceBridge", "Failed to persist session", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (b *Bridge) saveBookmarks() {
	blob, err := json.Marshal(b.store.Bookmarks())
	if err != nil {
		b.logger.Error("PersistenceBridge", "Failed to marshal bookmarks", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	if err := b.blobs.Put(BookmarksKey, blob); err != nil {
		b.logger.Error("PersistenceBridge", "Failed to persist bookmarks", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// Load rehydrates the store from the blob store. Both blobs fail soft: a
// missing or corrupt blob means "no existing state", never a crash and never
// a partial apply.
func (b *Bridge) Load() {
	if blob, err := b.blobs.Get(SessionKey); err == nil {
		var stored persistedSession
		if err := json.Unmarshal(blob, &stored); err != nil || stored.SessionId == "" {
			b.logger.Warn("PersistenceBridge", "Discarding unreadable session blob", map[string]interface{}{
				"error": errString(err),
			})
		} else {
			// A session persisted mid-stream has no accumulator left to
			// finalize it; rehydrated messages are always settled.
			for i := range stored.Messages {
				stored.Messages[i].IsStreaming = false
			}
			b.store.SetSessionId(stored.SessionId)
			b.store.SetMessages(stored.Messages)
			b.store.ReplaceGoalState(stored.GoalState)
			b.store.SetCollectedData(stored.CollectedData, stored.CurrentNode)
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		b.logger.Warn("PersistenceBridge", "Failed to read session blob", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if blob, err := b.blobs.Get(BookmarksKey); err == nil {
		var bookmarks []model.Bookmark
		if err := json.Unmarshal(blob, &bookmarks); err != nil {
			b.logger.Warn("PersistenceBridge", "Discarding unreadable bookmarks blob", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			b.store.SetBookmarks(bookmarks)
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		b.logger.Warn("PersistenceBridge", "Failed to read bookmarks blob", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func errString(err error) string {
	if err == nil {
		return "empty session id"
	}
	return err.Error()
}
