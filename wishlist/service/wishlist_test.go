package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cartReq "github.com/Alturino/marketclub/cart/pkg/request"
	cartRes "github.com/Alturino/marketclub/cart/pkg/response"
	cartSvc "github.com/Alturino/marketclub/cart/service"
	"github.com/Alturino/marketclub/internal/auth"
	"github.com/Alturino/marketclub/internal/backend"
	"github.com/Alturino/marketclub/internal/backend/backendtest"
	"github.com/Alturino/marketclub/internal/config"
	inErrors "github.com/Alturino/marketclub/internal/errors"
	productRes "github.com/Alturino/marketclub/product/pkg/response"
	productSvc "github.com/Alturino/marketclub/product/service"
	"github.com/Alturino/marketclub/wishlist/pkg/request"
	"github.com/Alturino/marketclub/wishlist/pkg/response"
)

var (
	user  = auth.Credentials{Token: "user-token", SessionID: "session-1"}
	guest = auth.Credentials{SessionID: "session-1"}
)

func setup(t *testing.T) (*backendtest.Server, *cartSvc.CartService, *WishlistService) {
	fake := backendtest.NewServer(t)
	fake.AddProduct(
		productRes.Product{ID: "club-colombia", Name: "Club Colombia Dorada", Price: 25000, StockQuantity: 10},
		productRes.Product{ID: "sold-out", Name: "Costeña Bacana", Price: 2800, StockQuantity: 0},
	)
	client := backend.NewClient(config.Backend{BaseURL: fake.URL})
	pricing, err := cartRes.NewPricing(config.Pricing{TaxRate: "0.19"})
	require.NoError(t, err)
	cart := cartSvc.NewCartService(client, productSvc.NewProductService(client, nil, 0), pricing)
	return fake, cart, NewWishlistService(client, cart)
}

func TestRequireUser(t *testing.T) {
	fake, _, svc := setup(t)
	c := context.Background()

	_, err := svc.Get(c, guest)
	assert.ErrorIs(t, err, inErrors.ErrAuth)
	_, err = svc.Toggle(c, guest, request.Item{ProductID: "club-colombia"})
	assert.ErrorIs(t, err, inErrors.ErrAuth)
	_, err = svc.Check(c, guest, "club-colombia")
	assert.ErrorIs(t, err, inErrors.ErrAuth)
	_, err = svc.MoveToCart(c, guest, "club-colombia", request.MoveToCart{Quantity: 1})
	assert.ErrorIs(t, err, inErrors.ErrAuth)
	_, err = svc.Clear(c, guest)
	assert.ErrorIs(t, err, inErrors.ErrAuth)

	assert.Empty(t, fake.MutatingCalls())
}

func TestToggle(t *testing.T) {
	t.Run("should restore membership and total when toggled twice", func(t *testing.T) {
		fake, _, svc := setup(t)
		c := context.Background()
		_, err := svc.Add(c, user, request.Item{ProductID: "sold-out"})
		require.NoError(t, err)

		before, err := svc.Get(c, user)
		require.NoError(t, err)

		added, err := svc.Toggle(c, user, request.Item{ProductID: "club-colombia"})
		require.NoError(t, err)
		assert.True(t, added.Success)
		assert.Equal(t, response.ACTION_ADDED, added.Action)
		assert.True(t, added.IsInWishlist)
		assert.Equal(t, before.TotalFavorites+1, added.TotalFavorites)
		require.NotNil(t, added.Product)
		assert.Equal(t, "Club Colombia Dorada", added.Product.Name)

		removed, err := svc.Toggle(c, user, request.Item{ProductID: "club-colombia"})
		require.NoError(t, err)
		assert.Equal(t, response.ACTION_REMOVED, removed.Action)
		assert.False(t, removed.IsInWishlist)
		assert.Equal(t, before.TotalFavorites, removed.TotalFavorites)
		assert.False(t, fake.InWishlist("user-token", "club-colombia"))
		assert.Len(t, fake.Calls(http.MethodPost, "/wishlist/toggle"), 2)
	})

	t.Run("should reject empty product id", func(t *testing.T) {
		fake, _, svc := setup(t)

		_, err := svc.Toggle(context.Background(), user, request.Item{})

		assert.ErrorIs(t, err, inErrors.ErrValidation)
		assert.Empty(t, fake.MutatingCalls())
	})
}

func TestAddRemoveIdempotent(t *testing.T) {
	_, _, svc := setup(t)
	c := context.Background()

	for range 2 {
		result, err := svc.Add(c, user, request.Item{ProductID: "club-colombia"})
		require.NoError(t, err)
		assert.True(t, result.IsInWishlist)
		assert.Equal(t, 1, result.TotalFavorites)
	}

	check, err := svc.Check(c, user, "club-colombia")
	require.NoError(t, err)
	assert.True(t, check.IsInWishlist)

	for range 2 {
		result, err := svc.Remove(c, user, "club-colombia")
		require.NoError(t, err)
		assert.False(t, result.IsInWishlist)
		assert.Zero(t, result.TotalFavorites)
	}

	wishlist, err := svc.Clear(c, user)
	require.NoError(t, err)
	assert.Empty(t, wishlist.Items)
}

func TestRemoveWhenBackendReportsAbsent(t *testing.T) {
	fake, _, svc := setup(t)
	c := context.Background()
	_, err := svc.Add(c, user, request.Item{ProductID: "club-colombia"})
	require.NoError(t, err)
	fake.Fail(http.MethodDelete, "/wishlist/items/sold-out", http.StatusNotFound, "")

	result, err := svc.Remove(c, user, "sold-out")

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, response.ACTION_REMOVED, result.Action)
	assert.Equal(t, "sold-out", result.ProductID)
	assert.False(t, result.IsInWishlist)
	assert.Equal(t, 1, result.TotalFavorites)
}

func TestMoveToCart(t *testing.T) {
	t.Run("should add to cart and remove from wishlist", func(t *testing.T) {
		fake, _, svc := setup(t)
		c := context.Background()
		_, err := svc.Add(c, user, request.Item{ProductID: "club-colombia"})
		require.NoError(t, err)

		moved, err := svc.MoveToCart(c, user, "club-colombia", request.MoveToCart{Quantity: 2})

		require.NoError(t, err)
		assert.False(t, moved.Result.IsInWishlist)
		assert.Equal(t, response.ACTION_REMOVED, moved.Result.Action)
		assert.Equal(t, int64(2), moved.Cart.ItemCount)
		assert.Equal(t, int32(2), fake.Quantity(cartSvc.BASE_PATH_CART, "user-token", "club-colombia"))
		assert.False(t, fake.InWishlist("user-token", "club-colombia"))
	})

	t.Run("should keep wishlist when product is out of stock", func(t *testing.T) {
		fake, _, svc := setup(t)
		c := context.Background()
		_, err := svc.Add(c, user, request.Item{ProductID: "sold-out"})
		require.NoError(t, err)

		_, err = svc.MoveToCart(c, user, "sold-out", request.MoveToCart{Quantity: 1})

		assert.ErrorIs(t, err, inErrors.ErrOutOfStock)
		assert.True(t, fake.InWishlist("user-token", "sold-out"))
		assert.Empty(t, fake.Calls(http.MethodDelete, "/wishlist/items/sold-out"))
	})

	testCases := []struct {
		desc     string
		previous int32
	}{
		{desc: "remove the new cart line", previous: 0},
		{desc: "restore the previous quantity", previous: 3},
	}
	for _, tC := range testCases {
		t.Run("should "+tC.desc+" when wishlist removal fails", func(t *testing.T) {
			fake, cart, svc := setup(t)
			c := context.Background()
			_, err := svc.Add(c, user, request.Item{ProductID: "club-colombia"})
			require.NoError(t, err)
			if tC.previous > 0 {
				_, err = cart.Add(c, user, cartReq.AddItem{ProductID: "club-colombia", Quantity: tC.previous})
				require.NoError(t, err)
			}
			fake.Fail(http.MethodDelete, "/wishlist/items/club-colombia", http.StatusInternalServerError, "")

			_, err = svc.MoveToCart(c, user, "club-colombia", request.MoveToCart{Quantity: 2})

			assert.ErrorIs(t, err, inErrors.ErrNetwork)
			assert.Equal(t, tC.previous, fake.Quantity(cartSvc.BASE_PATH_CART, "user-token", "club-colombia"))
			assert.True(t, fake.InWishlist("user-token", "club-colombia"))
		})
	}

	t.Run("should reject quantity below one", func(t *testing.T) {
		fake, _, svc := setup(t)

		_, err := svc.MoveToCart(context.Background(), user, "club-colombia", request.MoveToCart{Quantity: 0})

		assert.ErrorIs(t, err, inErrors.ErrValidation)
		assert.Empty(t, fake.MutatingCalls())
	})
}
