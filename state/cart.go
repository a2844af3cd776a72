package state

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	cartReq "github.com/Alturino/marketclub/cart/pkg/request"
	cartRes "github.com/Alturino/marketclub/cart/pkg/response"
	"github.com/Alturino/marketclub/internal/auth"
	"github.com/Alturino/marketclub/internal/constants"
)

const (
	keyCartClear = "cart:clear"
	keyCartNotes = "cart:notes"
)

type CartClient interface {
	Get(c context.Context, creds auth.Credentials) (cartRes.Cart, error)
	Add(c context.Context, creds auth.Credentials, param cartReq.AddItem) (cartRes.Cart, error)
	UpdateQuantity(c context.Context, creds auth.Credentials, productID string, param cartReq.UpdateItem) (cartRes.Cart, error)
	Remove(c context.Context, creds auth.Credentials, productID string) (cartRes.Cart, error)
	Clear(c context.Context, creds auth.Credentials) (cartRes.Cart, error)
	AddNotes(c context.Context, creds auth.Credentials, param cartReq.Notes) (cartRes.Cart, error)
}

type CartSnapshot struct {
	Status     Status       `json:"status"`
	Cart       cartRes.Cart `json:"cart"`
	Err        error        `json:"-"`
	LastChange *Change      `json:"last_change,omitempty"`
	Version    uint64       `json:"version"`
}

// CartStore never applies a mutation optimistically, only a server response replaces the
// cart. A failed mutation keeps the previous cart and records the error.
type CartStore struct {
	client CartClient
	creds  auth.Credentials

	mu         sync.Mutex
	closed     bool
	status     Status
	cart       cartRes.Cart
	err        error
	lastChange *Change
	version    uint64
	inFlight   guard

	hub hub[CartSnapshot]
}

func NewCartStore(client CartClient, creds auth.Credentials) *CartStore {
	return &CartStore{client: client, creds: creds, status: STATUS_IDLE}
}

func (s *CartStore) Subscribe(fn func(CartSnapshot)) (unsubscribe func()) {
	return s.hub.subscribe(fn)
}

func (s *CartStore) Snapshot() CartSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *CartStore) snapshotLocked() CartSnapshot {
	return CartSnapshot{
		Status:     s.status,
		Cart:       s.cart,
		Err:        s.err,
		LastChange: s.lastChange,
		Version:    s.version,
	}
}

// Init loads the cart for the store's credentials. It may be called again after Teardown.
func (s *CartStore) Init(c context.Context) error {
	s.mu.Lock()
	s.closed = false
	s.mu.Unlock()
	return s.Refresh(c)
}

// Teardown drops every subscriber. Mutations fail with ErrClosed until Init is called.
func (s *CartStore) Teardown() {
	s.mu.Lock()
	s.closed = true
	s.status = STATUS_IDLE
	s.mu.Unlock()
	s.hub.reset()
}

func (s *CartStore) Refresh(c context.Context) error {
	return s.mutate(c, "", ACTION_LOADED, 0, func(c context.Context) (cartRes.Cart, error) {
		return s.client.Get(c, s.creds)
	})
}

func (s *CartStore) Add(c context.Context, productID string, quantity int32) error {
	return s.mutate(c, productID, ACTION_ADDED, quantity, func(c context.Context) (cartRes.Cart, error) {
		return s.client.Add(c, s.creds, cartReq.AddItem{ProductID: productID, Quantity: quantity})
	})
}

func (s *CartStore) UpdateQuantity(c context.Context, productID string, quantity int32) error {
	action := ACTION_UPDATED
	if quantity == 0 {
		action = ACTION_REMOVED
	}
	return s.mutate(c, productID, action, quantity, func(c context.Context) (cartRes.Cart, error) {
		return s.client.UpdateQuantity(c, s.creds, productID, cartReq.UpdateItem{Quantity: quantity})
	})
}

func (s *CartStore) Remove(c context.Context, productID string) error {
	return s.mutate(c, productID, ACTION_REMOVED, 0, func(c context.Context) (cartRes.Cart, error) {
		return s.client.Remove(c, s.creds, productID)
	})
}

func (s *CartStore) Clear(c context.Context) error {
	return s.mutate(c, keyCartClear, ACTION_CLEARED, 0, func(c context.Context) (cartRes.Cart, error) {
		return s.client.Clear(c, s.creds)
	})
}

func (s *CartStore) AddNotes(c context.Context, notes string) error {
	return s.mutate(c, keyCartNotes, ACTION_NOTES, 0, func(c context.Context) (cartRes.Cart, error) {
		return s.client.AddNotes(c, s.creds, cartReq.Notes{Notes: notes})
	})
}

// Replace commits a cart produced elsewhere, such as a wishlist move.
func (s *CartStore) Replace(cart cartRes.Cart, change Change) {
	s.mu.Lock()
	s.cart = cart
	s.err = nil
	if !s.inFlight.busy() {
		s.status = STATUS_READY
	}
	s.lastChange = &change
	s.version++
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	s.hub.publish(snapshot)
}

func (s *CartStore) mutate(
	c context.Context,
	key string,
	action string,
	quantity int32,
	call func(context.Context) (cartRes.Cart, error),
) error {
	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartStore mutate").
		Str(constants.KEY_PRODUCT_ID, key).
		Str("action", action).
		Logger()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	guardKey := key
	if guardKey == "" {
		guardKey = "cart:" + action
	}
	if err := s.inFlight.begin(guardKey); err != nil {
		s.mu.Unlock()
		logger.Warn().Err(err).Msg(err.Error())
		return err
	}
	s.status = STATUS_LOADING
	s.version++
	loading := s.snapshotLocked()
	s.mu.Unlock()
	s.hub.publish(loading)

	cart, err := call(c)

	s.mu.Lock()
	s.inFlight.end(guardKey)
	if err != nil {
		s.status = STATUS_ERROR
		s.err = err
		logger.Warn().Err(err).Msg("keeping previous cart")
	} else {
		s.cart = cart
		s.err = nil
		s.status = STATUS_READY
		change := Change{Action: action, Quantity: quantity}
		if key != keyCartClear && key != keyCartNotes {
			change.ProductID = key
			if item, ok := cart.Find(key); ok {
				change.Product = item.Product
				change.Quantity = item.Quantity
			}
		}
		s.lastChange = &change
	}
	if s.inFlight.busy() && err == nil {
		s.status = STATUS_LOADING
	}
	s.version++
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	s.hub.publish(snapshot)
	return err
}
