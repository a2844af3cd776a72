package service

import (
	"context"
	"math"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/marketclub/cart/pkg/request"
	"github.com/Alturino/marketclub/cart/pkg/response"
	"github.com/Alturino/marketclub/internal/auth"
	"github.com/Alturino/marketclub/internal/backend"
	"github.com/Alturino/marketclub/internal/backend/backendtest"
	"github.com/Alturino/marketclub/internal/config"
	inErrors "github.com/Alturino/marketclub/internal/errors"
	productRes "github.com/Alturino/marketclub/product/pkg/response"
	productSvc "github.com/Alturino/marketclub/product/service"
)

var guest = auth.Credentials{SessionID: "session-1"}

func setup(t *testing.T) (*backendtest.Server, *CartService) {
	fake := backendtest.NewServer(t)
	fake.AddProduct(
		productRes.Product{ID: "club-colombia", Name: "Club Colombia Dorada", Price: 25000, StockQuantity: 10},
		productRes.Product{ID: "poker", Name: "Poker 330ml", Price: 3000, StockQuantity: 48},
		productRes.Product{ID: "sold-out", Name: "Costeña Bacana", Price: 2800, StockQuantity: 0},
	)
	client := backend.NewClient(config.Backend{BaseURL: fake.URL})
	pricing, err := response.NewPricing(config.Pricing{TaxRate: "0.19"})
	require.NoError(t, err)
	return fake, NewCartService(client, productSvc.NewProductService(client, nil, 0), pricing)
}

func TestGet(t *testing.T) {
	_, svc := setup(t)

	cart, err := svc.Get(context.Background(), guest)

	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
	assert.Zero(t, cart.TotalAmount)
}

func TestAdd(t *testing.T) {
	testCases := []struct {
		desc        string
		param       request.AddItem
		expectedErr error
	}{
		{desc: "quantity zero", param: request.AddItem{ProductID: "poker", Quantity: 0}, expectedErr: inErrors.ErrValidation},
		{desc: "negative quantity", param: request.AddItem{ProductID: "poker", Quantity: -3}, expectedErr: inErrors.ErrValidation},
		{desc: "unknown product", param: request.AddItem{ProductID: "ghost", Quantity: 1}, expectedErr: inErrors.ErrValidation},
		{desc: "no stock", param: request.AddItem{ProductID: "sold-out", Quantity: 1}, expectedErr: inErrors.ErrOutOfStock},
		{desc: "more than stock", param: request.AddItem{ProductID: "club-colombia", Quantity: 11}, expectedErr: inErrors.ErrOutOfStock},
		{desc: "quantity above line maximum", param: request.AddItem{ProductID: "poker", Quantity: request.MAX_ITEM_QUANTITY + 1}, expectedErr: inErrors.ErrValidation},
		{desc: "overflowing quantity", param: request.AddItem{ProductID: "poker", Quantity: math.MaxInt32}, expectedErr: inErrors.ErrValidation},
	}
	for _, tC := range testCases {
		t.Run("should reject "+tC.desc+" without mutating", func(t *testing.T) {
			fake, svc := setup(t)

			_, err := svc.Add(context.Background(), guest, tC.param)

			assert.ErrorIs(t, err, tC.expectedErr)
			assert.Empty(t, fake.MutatingCalls())
		})
	}

	t.Run("should add and derive totals", func(t *testing.T) {
		fake, svc := setup(t)

		cart, err := svc.Add(context.Background(), guest, request.AddItem{ProductID: "club-colombia", Quantity: 4})

		require.NoError(t, err)
		require.Len(t, cart.Items, 1)
		assert.Equal(t, int64(100000), cart.Subtotal)
		assert.Equal(t, int64(19000), cart.TaxAmount)
		assert.Equal(t, int64(0), cart.ShippingAmount)
		assert.Equal(t, int64(119000), cart.TotalAmount)
		assert.Equal(t, int64(4), cart.ItemCount)
		calls := fake.Calls(http.MethodPost, "/cart/items")
		require.Len(t, calls, 1)
		assert.Equal(t, "session-1", calls[0].SessionID)
		assert.Empty(t, calls[0].Authorization)
	})

	t.Run("should count quantity already in cart against stock", func(t *testing.T) {
		fake, svc := setup(t)
		c := context.Background()

		_, err := svc.Add(c, guest, request.AddItem{ProductID: "club-colombia", Quantity: 8})
		require.NoError(t, err)

		_, err = svc.Add(c, guest, request.AddItem{ProductID: "club-colombia", Quantity: 3})
		assert.ErrorIs(t, err, inErrors.ErrOutOfStock)
		assert.Len(t, fake.Calls(http.MethodPost, "/cart/items"), 1)
		assert.Equal(t, int32(8), fake.Quantity("/cart", "session-1", "club-colombia"))
	})

	t.Run("should reject overflowing quantity on top of existing line without mutating", func(t *testing.T) {
		fake, svc := setup(t)
		c := context.Background()
		_, err := svc.Add(c, guest, request.AddItem{ProductID: "club-colombia", Quantity: 1})
		require.NoError(t, err)
		fake.ResetCalls()

		_, err = svc.Add(c, guest, request.AddItem{ProductID: "club-colombia", Quantity: math.MaxInt32})

		assert.ErrorIs(t, err, inErrors.ErrValidation)
		assert.Empty(t, fake.MutatingCalls())
		assert.Equal(t, int32(1), fake.Quantity("/cart", "session-1", "club-colombia"))
	})

	t.Run("should propagate network error", func(t *testing.T) {
		fake, svc := setup(t)
		fake.Fail(http.MethodPost, "/cart/items", http.StatusServiceUnavailable, "")

		_, err := svc.Add(context.Background(), guest, request.AddItem{ProductID: "poker", Quantity: 1})

		assert.ErrorIs(t, err, inErrors.ErrNetwork)
	})
}

func TestUpdateQuantity(t *testing.T) {
	c := context.Background()

	t.Run("should reject negative quantity", func(t *testing.T) {
		fake, svc := setup(t)
		_, err := svc.UpdateQuantity(c, guest, "poker", request.UpdateItem{Quantity: -1})
		assert.ErrorIs(t, err, inErrors.ErrValidation)
		assert.Empty(t, fake.MutatingCalls())
	})

	t.Run("should remove on zero", func(t *testing.T) {
		fake, svc := setup(t)
		_, err := svc.Add(c, guest, request.AddItem{ProductID: "poker", Quantity: 2})
		require.NoError(t, err)

		cart, err := svc.UpdateQuantity(c, guest, "poker", request.UpdateItem{Quantity: 0})

		require.NoError(t, err)
		assert.True(t, cart.IsEmpty())
		assert.Len(t, fake.Calls(http.MethodDelete, "/cart/items/poker"), 1)
	})

	t.Run("should validate against stock", func(t *testing.T) {
		fake, svc := setup(t)
		_, err := svc.Add(c, guest, request.AddItem{ProductID: "club-colombia", Quantity: 2})
		require.NoError(t, err)

		_, err = svc.UpdateQuantity(c, guest, "club-colombia", request.UpdateItem{Quantity: 20})
		assert.ErrorIs(t, err, inErrors.ErrOutOfStock)
		assert.Empty(t, fake.Calls(http.MethodPut, "/cart/items/club-colombia"))

		cart, err := svc.UpdateQuantity(c, guest, "club-colombia", request.UpdateItem{Quantity: 5})
		require.NoError(t, err)
		assert.Equal(t, int64(5), cart.ItemCount)
	})

	t.Run("should report product not in cart", func(t *testing.T) {
		_, svc := setup(t)
		_, err := svc.UpdateQuantity(c, guest, "poker", request.UpdateItem{Quantity: 2})
		assert.ErrorIs(t, err, inErrors.ErrNotFound)
	})
}

func TestRemove(t *testing.T) {
	c := context.Background()
	fake, svc := setup(t)
	before, err := svc.Add(c, guest, request.AddItem{ProductID: "poker", Quantity: 6})
	require.NoError(t, err)
	fake.ResetCalls()

	after, err := svc.Remove(c, guest, "club-colombia")

	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Empty(t, fake.MutatingCalls())
}

func TestClear(t *testing.T) {
	c := context.Background()
	_, svc := setup(t)
	_, err := svc.Add(c, guest, request.AddItem{ProductID: "poker", Quantity: 6})
	require.NoError(t, err)

	_, err = svc.Clear(c, guest)
	require.NoError(t, err)
	_, err = svc.Clear(c, guest)
	require.NoError(t, err)

	cart, err := svc.Get(c, guest)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Zero(t, cart.Subtotal)
	assert.Zero(t, cart.TaxAmount)
	assert.Zero(t, cart.ShippingAmount)
	assert.Zero(t, cart.DiscountAmount)
	assert.Zero(t, cart.TotalAmount)
	assert.Zero(t, cart.ItemCount)
}

func TestAddNotes(t *testing.T) {
	c := context.Background()
	fake, svc := setup(t)

	_, err := svc.AddNotes(c, guest, request.Notes{Notes: string(make([]byte, 1001))})
	assert.ErrorIs(t, err, inErrors.ErrValidation)
	assert.Empty(t, fake.MutatingCalls())

	cart, err := svc.AddNotes(c, guest, request.Notes{Notes: "deliver after 6pm"})
	require.NoError(t, err)
	assert.Equal(t, "deliver after 6pm", cart.Notes)
}

func TestMinimumQuantityAndBasePath(t *testing.T) {
	c := context.Background()
	fake, _ := setup(t)
	client := backend.NewClient(config.Backend{BaseURL: fake.URL})
	svc := NewCartService(
		client,
		productSvc.NewProductService(client, nil, 0),
		response.Untaxed(),
		WithBasePath("/wholesale/cart"),
		WithMinimumQuantity(6),
	)

	_, err := svc.Add(c, guest, request.AddItem{ProductID: "poker", Quantity: 5})
	assert.ErrorIs(t, err, inErrors.ErrValidation)

	cart, err := svc.Add(c, guest, request.AddItem{ProductID: "poker", Quantity: 24})
	require.NoError(t, err)
	assert.Equal(t, int64(72000), cart.TotalAmount)
	assert.Zero(t, cart.TaxAmount)
	assert.Equal(t, int32(24), fake.Quantity("/wholesale/cart", "session-1", "poker"))
	assert.Zero(t, fake.Quantity("/cart", "session-1", "poker"))
}
