package state

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Alturino/marketclub/internal/auth"
	"github.com/Alturino/marketclub/internal/constants"
	"github.com/Alturino/marketclub/wishlist/pkg/request"
	"github.com/Alturino/marketclub/wishlist/pkg/response"
)

type WishlistClient interface {
	Get(c context.Context, creds auth.Credentials) (response.Wishlist, error)
	Toggle(c context.Context, creds auth.Credentials, param request.Item) (response.Result, error)
	Remove(c context.Context, creds auth.Credentials, productID string) (response.Result, error)
	Clear(c context.Context, creds auth.Credentials) (response.Wishlist, error)
	MoveToCart(c context.Context, creds auth.Credentials, productID string, param request.MoveToCart) (response.MoveToCart, error)
}

type WishlistSnapshot struct {
	Status     Status            `json:"status"`
	Wishlist   response.Wishlist `json:"wishlist"`
	Pending    map[string]bool   `json:"pending,omitempty"`
	Err        error             `json:"-"`
	LastChange *Change           `json:"last_change,omitempty"`
	Version    uint64            `json:"version"`
}

// IsFavorite shows a pending toggle's guess until the server answers.
func (s WishlistSnapshot) IsFavorite(productID string) bool {
	if guess, ok := s.Pending[productID]; ok {
		return guess
	}
	return s.Wishlist.Contains(productID)
}

// WishlistStore shows toggles optimistically. The guess lives in a pending overlay and
// the server's result always replaces it, on failure the overlay entry is dropped.
type WishlistStore struct {
	client WishlistClient
	creds  auth.Credentials
	cart   *CartStore

	mu         sync.Mutex
	closed     bool
	status     Status
	wishlist   response.Wishlist
	pending    map[string]bool
	err        error
	lastChange *Change
	version    uint64
	inFlight   guard

	hub hub[WishlistSnapshot]
}

// NewWishlistStore links cart, when not nil, so moved products show up in the cart view.
func NewWishlistStore(client WishlistClient, creds auth.Credentials, cart *CartStore) *WishlistStore {
	return &WishlistStore{
		client:   client,
		creds:    creds,
		cart:     cart,
		status:   STATUS_IDLE,
		wishlist: response.Wishlist{Items: []response.WishlistItem{}},
		pending:  map[string]bool{},
	}
}

func (s *WishlistStore) Subscribe(fn func(WishlistSnapshot)) (unsubscribe func()) {
	return s.hub.subscribe(fn)
}

func (s *WishlistStore) Snapshot() WishlistSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *WishlistStore) snapshotLocked() WishlistSnapshot {
	pending := make(map[string]bool, len(s.pending))
	for k, v := range s.pending {
		pending[k] = v
	}
	items := append([]response.WishlistItem{}, s.wishlist.Items...)
	return WishlistSnapshot{
		Status:     s.status,
		Wishlist:   response.Wishlist{Items: items, TotalFavorites: s.wishlist.TotalFavorites},
		Pending:    pending,
		Err:        s.err,
		LastChange: s.lastChange,
		Version:    s.version,
	}
}

func (s *WishlistStore) IsFavorite(productID string) bool {
	return s.Snapshot().IsFavorite(productID)
}

func (s *WishlistStore) Init(c context.Context) error {
	s.mu.Lock()
	s.closed = false
	s.mu.Unlock()
	return s.Refresh(c)
}

func (s *WishlistStore) Teardown() {
	s.mu.Lock()
	s.closed = true
	s.status = STATUS_IDLE
	s.pending = map[string]bool{}
	s.mu.Unlock()
	s.hub.reset()
}

func (s *WishlistStore) Refresh(c context.Context) error {
	if err := s.begin(c, "wishlist:load", nil); err != nil {
		return err
	}
	wishlist, err := s.client.Get(c, s.creds)
	s.finish(c, "wishlist:load", err, func() {
		s.wishlist = wishlist
		s.lastChange = &Change{Action: ACTION_LOADED}
	})
	return err
}

func (s *WishlistStore) Toggle(c context.Context, productID string) (response.Result, error) {
	if err := s.begin(c, productID, func() {
		s.pending[productID] = !s.wishlist.Contains(productID)
	}); err != nil {
		return response.Result{}, err
	}
	result, err := s.client.Toggle(c, s.creds, request.Item{ProductID: productID})
	s.finish(c, productID, err, func() { s.applyResult(result) })
	return result, err
}

func (s *WishlistStore) Remove(c context.Context, productID string) (response.Result, error) {
	if err := s.begin(c, productID, func() { s.pending[productID] = false }); err != nil {
		return response.Result{}, err
	}
	result, err := s.client.Remove(c, s.creds, productID)
	s.finish(c, productID, err, func() { s.applyResult(result) })
	return result, err
}

func (s *WishlistStore) Clear(c context.Context) error {
	if err := s.begin(c, "wishlist:clear", nil); err != nil {
		return err
	}
	wishlist, err := s.client.Clear(c, s.creds)
	s.finish(c, "wishlist:clear", err, func() {
		s.wishlist = wishlist
		s.lastChange = &Change{Action: ACTION_CLEARED}
	})
	return err
}

// MoveToCart commits both sides on success, the wishlist here and the linked cart store.
func (s *WishlistStore) MoveToCart(c context.Context, productID string, quantity int32) error {
	if err := s.begin(c, productID, nil); err != nil {
		return err
	}
	moved, err := s.client.MoveToCart(c, s.creds, productID, request.MoveToCart{Quantity: quantity})
	s.finish(c, productID, err, func() { s.applyResult(moved.Result) })
	if err == nil && s.cart != nil {
		change := Change{ProductID: productID, Action: ACTION_ADDED, Quantity: quantity}
		if item, ok := moved.Cart.Find(productID); ok {
			change.Product = item.Product
			change.Quantity = item.Quantity
		}
		s.cart.Replace(moved.Cart, change)
	}
	return err
}

// applyResult must be called with s.mu held.
func (s *WishlistStore) applyResult(result response.Result) {
	items := make([]response.WishlistItem, 0, len(s.wishlist.Items)+1)
	for _, item := range s.wishlist.Items {
		if item.ProductID != result.ProductID {
			items = append(items, item)
		}
	}
	if result.IsInWishlist {
		items = append(items, response.WishlistItem{ProductID: result.ProductID, Product: result.Product})
	}
	s.wishlist = response.Wishlist{Items: items, TotalFavorites: result.TotalFavorites}
	s.lastChange = &Change{
		ProductID:    result.ProductID,
		Action:       string(result.Action),
		IsInWishlist: result.IsInWishlist,
		Product:      result.Product,
	}
}

func (s *WishlistStore) begin(c context.Context, key string, optimistic func()) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if err := s.inFlight.begin(key); err != nil {
		s.mu.Unlock()
		zerolog.Ctx(c).Warn().
			Err(err).
			Str(constants.KEY_TAG, "WishlistStore begin").
			Str(constants.KEY_PRODUCT_ID, key).
			Msg(err.Error())
		return err
	}
	if optimistic != nil {
		optimistic()
	}
	s.status = STATUS_LOADING
	s.version++
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	s.hub.publish(snapshot)
	return nil
}

func (s *WishlistStore) finish(c context.Context, key string, err error, commit func()) {
	s.mu.Lock()
	s.inFlight.end(key)
	delete(s.pending, key)
	if err != nil {
		s.status = STATUS_ERROR
		s.err = err
		zerolog.Ctx(c).Warn().
			Err(err).
			Str(constants.KEY_TAG, "WishlistStore finish").
			Str(constants.KEY_PRODUCT_ID, key).
			Msg("rolled back wishlist guess")
	} else {
		commit()
		s.err = nil
		s.status = STATUS_READY
		if s.inFlight.busy() {
			s.status = STATUS_LOADING
		}
	}
	s.version++
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	s.hub.publish(snapshot)
}
