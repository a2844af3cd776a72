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

	"github.com/Alturino/marketclub/internal/backend"
	"github.com/Alturino/marketclub/internal/backend/backendtest"
	"github.com/Alturino/marketclub/internal/config"
	"github.com/Alturino/marketclub/internal/middleware"
	productRes "github.com/Alturino/marketclub/product/pkg/response"
	productSvc "github.com/Alturino/marketclub/product/service"
	"github.com/Alturino/marketclub/wholesale/pkg/response"
	"github.com/Alturino/marketclub/wholesale/service"
)

type envelope struct {
	Status     string `json:"status"`
	StatusCode int    `json:"statusCode"`
	Code       string `json:"code"`
	Data       struct {
		Quote response.Quote `json:"quote"`
	} `json:"data"`
}

func do(t *testing.T, handler http.Handler, method string, path string, body string) envelope {
	t.Helper()
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	r.Header.Set("X-Session-ID", "wholesaler-1")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	res := envelope{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.Equal(t, w.Code, res.StatusCode)
	return res
}

func TestWholesaleController(t *testing.T) {
	fake := backendtest.NewServer(t)
	fake.AddProduct(productRes.Product{ID: "poker", Name: "Poker 330ml", Price: 2500, StockQuantity: 200})
	client := backend.NewClient(config.Backend{BaseURL: fake.URL})
	svc := service.NewWholesaleService(
		client,
		productSvc.NewProductService(client, nil, 0),
		config.Wholesale{WhatsappNumber: "573000000000", MinimumQuantity: 6},
	)
	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()
	api.Use(middleware.Session(config.Session{CookieName: "mc_session_id", MaxAgeDays: 30}), middleware.Auth)
	AttachWholesaleController(api, svc)

	res := do(t, router, http.MethodPost, "/api/wholesale/cart/items", `{"product_id":"poker","quantity":3}`)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "validation_error", res.Code)

	res = do(t, router, http.MethodPost, "/api/wholesale/cart/items", `{"product_id":"poker","quantity":24}`)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Len(t, fake.Calls(http.MethodPost, service.BASE_PATH_WHOLESALE_CART+"/items"), 1)

	res = do(t, router, http.MethodPost, "/api/wholesale/quote", `{"name":"Ana Ruiz","city":"Cali","phone":"3001234567"}`)
	assert.Equal(t, "success", res.Status)
	assert.Contains(t, res.Data.Quote.Message, "Subtotal: $60.000")
	assert.True(t, strings.HasPrefix(res.Data.Quote.URL, "https://wa.me/573000000000?text="))

	res = do(t, router, http.MethodPost, "/api/wholesale/quote", `{"name":"Ana Ruiz"}`)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}
