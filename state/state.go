// Package state holds the session scoped cart and wishlist containers the CLI and other
// long lived clients render from. Containers are safe for concurrent use, subscribers are
// called outside the lock in subscription order.
package state

import (
	"errors"
	"sort"
	"sync"

	inErrors "github.com/Alturino/marketclub/internal/errors"
	productRes "github.com/Alturino/marketclub/product/pkg/response"
)

type Status string

const (
	STATUS_IDLE    Status = "idle"
	STATUS_LOADING Status = "loading"
	STATUS_READY   Status = "ready"
	STATUS_ERROR   Status = "error"
)

const (
	ACTION_ADDED   = "added"
	ACTION_REMOVED = "removed"
	ACTION_UPDATED = "updated"
	ACTION_CLEARED = "cleared"
	ACTION_NOTES   = "notes"
	ACTION_LOADED  = "loaded"
)

var ErrClosed = errors.New("state container is torn down")

// Change describes the mutation that produced a snapshot so views can react without
// refetching.
type Change struct {
	ProductID    string              `json:"product_id,omitempty"`
	Action       string              `json:"action"`
	IsInWishlist bool                `json:"is_in_wishlist"`
	Quantity     int32               `json:"quantity,omitempty"`
	Product      *productRes.Product `json:"product,omitempty"`
}

type hub[S any] struct {
	mu          sync.Mutex
	nextID      int
	subscribers map[int]func(S)
}

func (h *hub[S]) subscribe(fn func(S)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subscribers == nil {
		h.subscribers = map[int]func(S){}
	}
	id := h.nextID
	h.nextID++
	h.subscribers[id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subscribers, id)
	}
}

func (h *hub[S]) publish(snapshot S) {
	h.mu.Lock()
	ids := make([]int, 0, len(h.subscribers))
	for id := range h.subscribers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(S), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, h.subscribers[id])
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(snapshot)
	}
}

func (h *hub[S]) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers = nil
}

// guard tracks keys with a mutation in flight. Callers hold the container lock.
type guard struct {
	keys map[string]struct{}
}

func (g *guard) begin(key string) error {
	if g.keys == nil {
		g.keys = map[string]struct{}{}
	}
	if _, ok := g.keys[key]; ok {
		return inErrors.NewMutationInFlightError(key)
	}
	g.keys[key] = struct{}{}
	return nil
}

func (g *guard) end(key string) {
	delete(g.keys, key)
}

func (g *guard) busy() bool {
	return len(g.keys) > 0
}
