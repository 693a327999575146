package repository

import (
	"encoding/json"
	"log/slog"

	"github.com/vkrasnov/gemini-telegram-bot/pkg/domain"
	"github.com/vkrasnov/gemini-telegram-bot/pkg/logger"
)

// KVStore is the remote key-value configuration service. A nil KVStore is a
// valid degraded mode: reads yield defaults, writes report failure.
type KVStore interface {
	GetItem(key string) (json.RawMessage, bool, error)
	GetItems(keys []string) (map[string]json.RawMessage, error)
	SetItem(key string, value any) error
	DeleteItem(key string) error
}

type configRepository struct {
	store KVStore
}

func NewConfigRepository(store KVStore) *configRepository {
	return &configRepository{store: store}
}

// GetAll never fails the caller: any transport error, missing credentials
// or malformed value downgrades to the hardcoded defaults with a warning.
// No caching: the admin panel may have changed configuration since the
// previous invocation, and process state is not guaranteed to persist.
func (c *configRepository) GetAll() domain.AIConfig {
	cfg := domain.DefaultAIConfig()

	if c.store == nil {
		return cfg
	}

	items, err := c.store.GetItems([]string{domain.SystemInstructionKey, domain.SafetySettingsKey})
	if err != nil {
		slog.Warn("config store unreachable, using defaults", logger.Err(err))
		return cfg
	}

	if raw, ok := items[domain.SystemInstructionKey]; ok {
		var instruction string
		if err := json.Unmarshal(raw, &instruction); err != nil {
			slog.Warn("malformed system instruction, using default", logger.Err(err))
		} else if instruction != "" {
			cfg.SystemInstruction = instruction
		}
	}

	if raw, ok := items[domain.SafetySettingsKey]; ok {
		var settings map[domain.HarmCategory]domain.BlockThreshold
		if err := json.Unmarshal(raw, &settings); err != nil {
			slog.Warn("malformed safety settings, using defaults", logger.Err(err))
		} else {
			// Overlay on defaults so an entry missing remotely keeps its
			// default threshold.
			for category, threshold := range settings {
				cfg.SafetySettings[category] = threshold
			}
		}
	}

	return cfg
}

func (c *configRepository) GetItem(key string) (json.RawMessage, bool) {
	if c.store == nil {
		return nil, false
	}
	raw, ok, err := c.store.GetItem(key)
	if err != nil {
		slog.Warn("fetching config item", "key", key, logger.Err(err))
		return nil, false
	}
	return raw, ok
}

// SetItem reports success as a boolean; all I/O errors are absorbed here so
// callers only decide whether to engage a fallback.
func (c *configRepository) SetItem(key string, value any) bool {
	if c.store == nil {
		return false
	}
	if err := c.store.SetItem(key, value); err != nil {
		slog.Warn("writing config item", "key", key, logger.Err(err))
		return false
	}
	return true
}

func (c *configRepository) DeleteItem(key string) bool {
	if c.store == nil {
		return false
	}
	if err := c.store.DeleteItem(key); err != nil {
		slog.Warn("deleting config item", "key", key, logger.Err(err))
		return false
	}
	return true
}
