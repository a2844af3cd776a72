package controller

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cartRes "github.com/Alturino/marketclub/cart/pkg/response"
	cartSvc "github.com/Alturino/marketclub/cart/service"
	"github.com/Alturino/marketclub/internal/backend"
	"github.com/Alturino/marketclub/internal/backend/backendtest"
	"github.com/Alturino/marketclub/internal/config"
	"github.com/Alturino/marketclub/internal/middleware"
	productRes "github.com/Alturino/marketclub/product/pkg/response"
	productSvc "github.com/Alturino/marketclub/product/service"
	"github.com/Alturino/marketclub/wishlist/pkg/response"
	"github.com/Alturino/marketclub/wishlist/service"
)

type envelope struct {
	Status     string `json:"status"`
	StatusCode int    `json:"statusCode"`
	Code       string `json:"code"`
	Data       struct {
		Result   response.Result   `json:"result"`
		Wishlist response.Wishlist `json:"wishlist"`
		Check    response.Check    `json:"check"`
		Cart     cartRes.Cart      `json:"cart"`
	} `json:"data"`
}

func newRouter(t *testing.T) (*backendtest.Server, http.Handler) {
	fake := backendtest.NewServer(t)
	fake.AddProduct(productRes.Product{ID: "aguila", Name: "Águila Original", Price: 2900, StockQuantity: 24})
	client := backend.NewClient(config.Backend{BaseURL: fake.URL})
	pricing, err := cartRes.NewPricing(config.Pricing{TaxRate: "0.19"})
	require.NoError(t, err)
	cart := cartSvc.NewCartService(client, productSvc.NewProductService(client, nil, 0), pricing)

	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()
	api.Use(middleware.Session(config.Session{CookieName: "mc_session_id", MaxAgeDays: 30}), middleware.Auth)
	AttachWishlistController(api, service.NewWishlistService(client, cart))
	return fake, router
}

func do(t *testing.T, handler http.Handler, method string, path string, token string, body string) envelope {
	t.Helper()
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	r.Header.Set("X-Session-ID", "session-1")
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	res := envelope{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.Equal(t, w.Code, res.StatusCode)
	return res
}

func TestWishlistController(t *testing.T) {
	fake, handler := newRouter(t)

	res := do(t, handler, http.MethodGet, "/api/wishlist", "", "")
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Empty(t, fake.Calls(http.MethodGet, "/wishlist"))

	res = do(t, handler, http.MethodPost, "/api/wishlist/toggle", "user-token", `{"product_id":"aguila"}`)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, response.ACTION_ADDED, res.Data.Result.Action)
	assert.Equal(t, 1, res.Data.Result.TotalFavorites)

	res = do(t, handler, http.MethodGet, "/api/wishlist/check/aguila", "user-token", "")
	assert.True(t, res.Data.Check.IsInWishlist)

	res = do(t, handler, http.MethodGet, "/api/wishlist", "user-token", "")
	require.Len(t, res.Data.Wishlist.Items, 1)
	assert.Equal(t, "aguila", res.Data.Wishlist.Items[0].ProductID)

	res = do(t, handler, http.MethodPost, "/api/wishlist/items/aguila/move-to-cart", "user-token", `{"quantity":6}`)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.False(t, res.Data.Result.IsInWishlist)
	assert.Equal(t, int64(6), res.Data.Cart.ItemCount)

	res = do(t, handler, http.MethodPost, "/api/wishlist/toggle", "user-token", `{"product_id":"ghost"}`)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res = do(t, handler, http.MethodPost, "/api/wishlist/toggle", "user-token", `{`)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = do(t, handler, http.MethodDelete, "/api/wishlist", "user-token", "")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Empty(t, res.Data.Wishlist.Items)
}
