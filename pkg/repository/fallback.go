package repository

import (
	"sync"

	"github.com/vkrasnov/gemini-telegram-bot/pkg/domain"
)

// FallbackCache is the process-local substitute engaged only when a remote
// context write fails. It is best-effort by contract: it does not survive
// restarts and must never be treated as authoritative. Bounded so a long
// remote outage cannot grow it without limit; the oldest chat is evicted
// first.
type FallbackCache struct {
	mu       sync.Mutex
	capacity int
	chats    map[int64]domain.History
	order    []int64
}

const defaultFallbackCapacity = 1000

func NewFallbackCache(capacity int) *FallbackCache {
	if capacity <= 0 {
		capacity = defaultFallbackCapacity
	}
	return &FallbackCache{
		capacity: capacity,
		chats:    make(map[int64]domain.History),
	}
}

func (f *FallbackCache) Get(chatID int64) (domain.History, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	history, ok := f.chats[chatID]
	return history, ok
}

func (f *FallbackCache) Set(chatID int64, history domain.History) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.chats[chatID]; !exists {
		if len(f.order) >= f.capacity {
			oldest := f.order[0]
			f.order = f.order[1:]
			delete(f.chats, oldest)
		}
		f.order = append(f.order, chatID)
	}
	f.chats[chatID] = history
}

func (f *FallbackCache) Delete(chatID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.chats[chatID]; !exists {
		return
	}
	delete(f.chats, chatID)
	for i, id := range f.order {
		if id == chatID {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
}

func (f *FallbackCache) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.chats)
}
