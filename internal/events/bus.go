// Package events broadcasts "data changed" notifications after ingestion.
package events

import (
	"sort"
	"sync"

	"github.com/andresuchdata/stockfloat/internal/domain"
)

// DataChanged is published after a category has been successfully ingested.
type DataChanged struct {
	Category    domain.Category `json:"category"`
	SheetCount  int             `json:"sheetCount"`
	RecordCount int             `json:"recordCount"`
}

// Handler receives published events. Handlers run synchronously on the publisher's
// goroutine and must not block.
type Handler func(DataChanged)

// Bus is a minimal in-process broadcaster.
type Bus struct {
	mu       sync.RWMutex
	next     int
	handlers map[int]Handler
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[int]Handler)}
}

// Subscribe registers h and returns a function that removes it.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.handlers[id] = h
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}
}

// Publish delivers e to every subscriber in subscription order.
func (b *Bus) Publish(e DataChanged) {
	b.mu.RLock()
	ids := make([]int, 0, len(b.handlers))
	for id := range b.handlers {
		ids = append(ids, id)
	}
	hs := make([]Handler, 0, len(ids))
	sort.Ints(ids)
	for _, id := range ids {
		hs = append(hs, b.handlers[id])
	}
	b.mu.RUnlock()

	for _, h := range hs {
		h(e)
	}
}
