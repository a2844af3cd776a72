package state

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cartReq "github.com/Alturino/marketclub/cart/pkg/request"
	cartRes "github.com/Alturino/marketclub/cart/pkg/response"
	"github.com/Alturino/marketclub/internal/auth"
	inErrors "github.com/Alturino/marketclub/internal/errors"
	productRes "github.com/Alturino/marketclub/product/pkg/response"
	"github.com/Alturino/marketclub/wishlist/pkg/request"
	"github.com/Alturino/marketclub/wishlist/pkg/response"
)

var user = auth.Credentials{Token: "user-token", SessionID: "session-1"}

// stubCart answers from add, and blocks an Add of a product listed in gates until its
// channel is closed.
type stubCart struct {
	mu      sync.Mutex
	cart    cartRes.Cart
	addErr  error
	gates   map[string]chan struct{}
	started chan string
}

func newStubCart() *stubCart {
	return &stubCart{cart: cartRes.EmptyCart("session-1"), gates: map[string]chan struct{}{}, started: make(chan string, 8)}
}

func (s *stubCart) Get(context.Context, auth.Credentials) (cartRes.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart, nil
}

func (s *stubCart) Add(_ context.Context, _ auth.Credentials, param cartReq.AddItem) (cartRes.Cart, error) {
	s.mu.Lock()
	gate := s.gates[param.ProductID]
	s.mu.Unlock()
	s.started <- param.ProductID
	if gate != nil {
		<-gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addErr != nil {
		return cartRes.Cart{}, s.addErr
	}
	items := append([]cartRes.CartItem{}, s.cart.Items...)
	items = append(items, cartRes.CartItem{ProductID: param.ProductID, Quantity: param.Quantity})
	s.cart = cartRes.Cart{ID: s.cart.ID, Items: items, ItemCount: s.cart.ItemCount + int64(param.Quantity)}
	return s.cart, nil
}

func (s *stubCart) UpdateQuantity(context.Context, auth.Credentials, string, cartReq.UpdateItem) (cartRes.Cart, error) {
	return s.cart, nil
}

func (s *stubCart) Remove(context.Context, auth.Credentials, string) (cartRes.Cart, error) {
	return s.cart, nil
}

func (s *stubCart) Clear(context.Context, auth.Credentials) (cartRes.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = cartRes.EmptyCart(s.cart.ID)
	return s.cart, nil
}

func (s *stubCart) AddNotes(_ context.Context, _ auth.Credentials, param cartReq.Notes) (cartRes.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.Notes = param.Notes
	return s.cart, nil
}

func TestCartStoreLifecycle(t *testing.T) {
	client := newStubCart()
	store := NewCartStore(client, user)
	assert.Equal(t, STATUS_IDLE, store.Snapshot().Status)

	var statuses []Status
	store.Subscribe(func(s CartSnapshot) { statuses = append(statuses, s.Status) })

	require.NoError(t, store.Init(context.Background()))
	assert.Equal(t, []Status{STATUS_LOADING, STATUS_READY}, statuses)

	require.NoError(t, store.Add(context.Background(), "poker", 2))
	<-client.started
	snapshot := store.Snapshot()
	assert.Equal(t, STATUS_READY, snapshot.Status)
	assert.Equal(t, int64(2), snapshot.Cart.ItemCount)
	require.NotNil(t, snapshot.LastChange)
	assert.Equal(t, "poker", snapshot.LastChange.ProductID)
	assert.Equal(t, ACTION_ADDED, snapshot.LastChange.Action)

	store.Teardown()
	statuses = nil
	assert.ErrorIs(t, store.Add(context.Background(), "poker", 1), ErrClosed)
	assert.Empty(t, statuses)
}

func TestCartStoreInFlightGuard(t *testing.T) {
	client := newStubCart()
	gate := make(chan struct{})
	client.gates["poker"] = gate
	store := NewCartStore(client, user)

	done := make(chan error, 1)
	go func() { done <- store.Add(context.Background(), "poker", 1) }()
	assert.Equal(t, "poker", <-client.started)
	assert.Equal(t, STATUS_LOADING, store.Snapshot().Status)

	err := store.Add(context.Background(), "poker", 1)
	assert.ErrorIs(t, err, inErrors.ErrMutationInFlight)

	require.NoError(t, store.Add(context.Background(), "aguila", 1))
	<-client.started
	assert.Equal(t, STATUS_LOADING, store.Snapshot().Status)

	close(gate)
	require.NoError(t, <-done)
	assert.Equal(t, STATUS_READY, store.Snapshot().Status)
	assert.Len(t, store.Snapshot().Cart.Items, 2)
}

func TestCartStoreKeepsCartOnFailure(t *testing.T) {
	client := newStubCart()
	store := NewCartStore(client, user)
	require.NoError(t, store.Add(context.Background(), "poker", 3))
	<-client.started
	before := store.Snapshot().Cart

	failure := inErrors.NewOutOfStockError("only 3 left")
	client.addErr = failure
	err := store.Add(context.Background(), "poker", 10)
	<-client.started

	assert.ErrorIs(t, err, inErrors.ErrOutOfStock)
	snapshot := store.Snapshot()
	assert.Equal(t, STATUS_ERROR, snapshot.Status)
	assert.Equal(t, before, snapshot.Cart)
	assert.ErrorIs(t, snapshot.Err, inErrors.ErrOutOfStock)
}

type stubWishlist struct {
	mu        sync.Mutex
	ids       []string
	toggleErr error
	gate      chan struct{}
	started   chan struct{}
	cart      cartRes.Cart
}

func (s *stubWishlist) result(productID string, action response.Action) response.Result {
	in := false
	for _, id := range s.ids {
		in = in || id == productID
	}
	return response.Result{
		Success:        true,
		Action:         action,
		ProductID:      productID,
		IsInWishlist:   in,
		Product:        &productRes.Product{ID: productID, Name: productID},
		TotalFavorites: len(s.ids),
	}
}

func (s *stubWishlist) Get(context.Context, auth.Credentials) (response.Wishlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := []response.WishlistItem{}
	for _, id := range s.ids {
		items = append(items, response.WishlistItem{ProductID: id})
	}
	return response.Wishlist{Items: items, TotalFavorites: len(s.ids)}, nil
}

func (s *stubWishlist) Toggle(_ context.Context, _ auth.Credentials, param request.Item) (response.Result, error) {
	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.toggleErr != nil {
		return response.Result{}, s.toggleErr
	}
	for i, id := range s.ids {
		if id == param.ProductID {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			return s.result(param.ProductID, response.ACTION_REMOVED), nil
		}
	}
	s.ids = append(s.ids, param.ProductID)
	return s.result(param.ProductID, response.ACTION_ADDED), nil
}

func (s *stubWishlist) Remove(_ context.Context, _ auth.Credentials, productID string) (response.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, id := range s.ids {
		if id == productID {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			break
		}
	}
	return s.result(productID, response.ACTION_REMOVED), nil
}

func (s *stubWishlist) Clear(context.Context, auth.Credentials) (response.Wishlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = nil
	return response.Wishlist{Items: []response.WishlistItem{}}, nil
}

func (s *stubWishlist) MoveToCart(
	c context.Context,
	creds auth.Credentials,
	productID string,
	param request.MoveToCart,
) (response.MoveToCart, error) {
	result, err := s.Remove(c, creds, productID)
	cart := cartRes.Cart{Items: []cartRes.CartItem{{ProductID: productID, Quantity: param.Quantity}}, ItemCount: int64(param.Quantity)}
	return response.MoveToCart{Result: result, Cart: cart}, err
}

func TestWishlistStoreOptimisticToggle(t *testing.T) {
	client := &stubWishlist{gate: make(chan struct{}), started: make(chan struct{}, 1)}
	store := NewWishlistStore(client, user, nil)
	require.NoError(t, store.Init(context.Background()))

	var changes []Change
	store.Subscribe(func(s WishlistSnapshot) {
		if s.LastChange != nil && s.Status == STATUS_READY {
			changes = append(changes, *s.LastChange)
		}
	})

	done := make(chan error, 1)
	go func() {
		_, err := store.Toggle(context.Background(), "club-colombia")
		done <- err
	}()
	<-client.started
	assert.True(t, store.IsFavorite("club-colombia"))
	_, err := store.Toggle(context.Background(), "club-colombia")
	assert.ErrorIs(t, err, inErrors.ErrMutationInFlight)

	close(client.gate)
	require.NoError(t, <-done)
	snapshot := store.Snapshot()
	assert.True(t, snapshot.IsFavorite("club-colombia"))
	assert.Empty(t, snapshot.Pending)
	assert.Equal(t, 1, snapshot.Wishlist.TotalFavorites)
	require.Len(t, changes, 1)
	assert.Equal(t, "club-colombia", changes[0].ProductID)
	assert.Equal(t, ACTION_ADDED, changes[0].Action)
	assert.True(t, changes[0].IsInWishlist)
	require.NotNil(t, changes[0].Product)
}

func TestWishlistStoreRollsBackGuess(t *testing.T) {
	client := &stubWishlist{toggleErr: errors.New("backend down")}
	store := NewWishlistStore(client, user, nil)
	require.NoError(t, store.Init(context.Background()))

	_, err := store.Toggle(context.Background(), "club-colombia")

	assert.Error(t, err)
	snapshot := store.Snapshot()
	assert.False(t, snapshot.IsFavorite("club-colombia"))
	assert.Equal(t, STATUS_ERROR, snapshot.Status)
	assert.Zero(t, snapshot.Wishlist.TotalFavorites)
}

func TestWishlistStoreToggleTwice(t *testing.T) {
	client := &stubWishlist{ids: []string{"poker"}}
	store := NewWishlistStore(client, user, nil)
	require.NoError(t, store.Init(context.Background()))
	before := store.Snapshot().Wishlist.TotalFavorites

	_, err := store.Toggle(context.Background(), "aguila")
	require.NoError(t, err)
	_, err = store.Toggle(context.Background(), "aguila")
	require.NoError(t, err)

	snapshot := store.Snapshot()
	assert.False(t, snapshot.IsFavorite("aguila"))
	assert.Equal(t, before, snapshot.Wishlist.TotalFavorites)
}

func TestWishlistStoreMoveToCartUpdatesCart(t *testing.T) {
	client := &stubWishlist{ids: []string{"poker"}}
	cart := NewCartStore(newStubCart(), user)
	store := NewWishlistStore(client, user, cart)
	require.NoError(t, store.Init(context.Background()))

	var cartChanges []Change
	cart.Subscribe(func(s CartSnapshot) {
		if s.LastChange != nil {
			cartChanges = append(cartChanges, *s.LastChange)
		}
	})

	require.NoError(t, store.MoveToCart(context.Background(), "poker", 6))

	assert.False(t, store.IsFavorite("poker"))
	assert.Equal(t, int64(6), cart.Snapshot().Cart.ItemCount)
	require.Len(t, cartChanges, 1)
	assert.Equal(t, "poker", cartChanges[0].ProductID)
	assert.Equal(t, int32(6), cartChanges[0].Quantity)
}
