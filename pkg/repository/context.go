package repository

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/vkrasnov/gemini-telegram-bot/pkg/domain"
	"github.com/vkrasnov/gemini-telegram-bot/pkg/logger"
)

// contextRepository persists per-chat conversation history in the remote
// key-value store, with an injected in-process fallback cache engaged only
// when a remote write fails.
//
// Known limitation: there is no per-chat locking. Two concurrent updates
// for the same chat can both read the same prior history, each append
// their own turn, and the later Save overwrites the earlier one. This
// lost-update race is accepted under the single-interactive-user
// assumption of bot chats.
type contextRepository struct {
	store    KVStore
	fallback *FallbackCache
}

func NewContextRepository(store KVStore, fallback *FallbackCache) *contextRepository {
	return &contextRepository{store: store, fallback: fallback}
}

func historyKey(chatID int64) string {
	return fmt.Sprintf("chat_history:%d", chatID)
}

// Get returns the chat's history, possibly empty. The remote store is the
// source of truth; the fallback cache only patches over remote outages
// within a warm process.
func (c *contextRepository) Get(chatID int64) domain.History {
	if c.store != nil {
		raw, ok, err := c.store.GetItem(historyKey(chatID))
		if err != nil {
			slog.Warn("context store unreachable, checking fallback", "chatID", chatID, logger.Err(err))
		} else if ok {
			var history domain.History
			if err := json.Unmarshal(raw, &history); err != nil {
				slog.Warn("malformed stored history, checking fallback", "chatID", chatID, logger.Err(err))
			} else {
				return history
			}
		}
	}

	if history, ok := c.fallback.Get(chatID); ok {
		return history
	}
	return domain.History{}
}

// Save writes the history remotely; on success any stale fallback entry for
// the chat is evicted, on failure the fallback takes the write instead.
func (c *contextRepository) Save(chatID int64, history domain.History) {
	if c.store != nil {
		if err := c.store.SetItem(historyKey(chatID), history); err == nil {
			c.fallback.Delete(chatID)
			return
		} else {
			slog.Warn("context store write failed, degrading to in-memory fallback", "chatID", chatID, logger.Err(err))
		}
	}

	c.fallback.Set(chatID, history)
}

// Clear removes the chat's history everywhere and reports whether the
// durable delete succeeded, so the confirmation message can carry a
// "possibly not fully cleared" caveat.
func (c *contextRepository) Clear(chatID int64) bool {
	c.fallback.Delete(chatID)

	if c.store == nil {
		// Nothing durable exists without a configured store.
		return true
	}

	if err := c.store.DeleteItem(historyKey(chatID)); err != nil {
		slog.Warn("context store delete failed", "chatID", chatID, logger.Err(err))
		return false
	}
	return true
}
