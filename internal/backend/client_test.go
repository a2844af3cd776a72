package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/marketclub/internal/auth"
	"github.com/Alturino/marketclub/internal/config"
	inErrors "github.com/Alturino/marketclub/internal/errors"
)

func TestDo(t *testing.T) {
	testCases := []struct {
		desc        string
		statusCode  int
		body        string
		expectedErr error
		expected    string
	}{
		{
			desc:       "should decode data",
			statusCode: http.StatusOK,
			body:       `{"success":true,"data":{"name":"Club Colombia"}}`,
			expected:   "Club Colombia",
		},
		{
			desc:        "should map 422 to validation",
			statusCode:  http.StatusUnprocessableEntity,
			body:        `{"success":false,"message":"quantity invalid"}`,
			expectedErr: inErrors.ErrValidation,
		},
		{
			desc:        "should map out_of_stock code",
			statusCode:  http.StatusBadRequest,
			body:        `{"success":false,"code":"out_of_stock","message":"only 1 left"}`,
			expectedErr: inErrors.ErrOutOfStock,
		},
		{
			desc:        "should map 409 to out of stock",
			statusCode:  http.StatusConflict,
			body:        `{"success":false}`,
			expectedErr: inErrors.ErrOutOfStock,
		},
		{
			desc:        "should map 403 to auth",
			statusCode:  http.StatusForbidden,
			body:        `{"success":false}`,
			expectedErr: inErrors.ErrAuth,
		},
		{
			desc:        "should map 404 to not found",
			statusCode:  http.StatusNotFound,
			body:        `{"success":false,"message":"cart not found"}`,
			expectedErr: inErrors.ErrNotFound,
		},
		{
			desc:        "should map 500 to network",
			statusCode:  http.StatusInternalServerError,
			body:        `oops`,
			expectedErr: inErrors.ErrNetwork,
		},
		{
			desc:        "should map malformed 200 to network",
			statusCode:  http.StatusOK,
			body:        `<html>`,
			expectedErr: inErrors.ErrNetwork,
		},
		{
			desc:        "should treat success false as validation",
			statusCode:  http.StatusOK,
			body:        `{"success":false,"message":"nope"}`,
			expectedErr: inErrors.ErrValidation,
		},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tC.statusCode)
				_, _ = w.Write([]byte(tC.body))
			}))
			defer server.Close()

			client := NewClient(config.Backend{BaseURL: server.URL})
			out := struct {
				Name string `json:"name"`
			}{}
			err := client.Do(context.Background(), http.MethodGet, "/products/1", auth.Credentials{}, nil, &out)

			if tC.expectedErr != nil {
				assert.ErrorIs(t, err, tC.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tC.expected, out.Name)
		})
	}
}

func TestDoSendsCredentialsAndBody(t *testing.T) {
	var (
		gotAuth    string
		gotSession string
		gotBody    map[string]interface{}
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotSession = r.Header.Get("X-Session-ID")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"success":true,"data":null}`))
	}))
	defer server.Close()

	client := NewClient(config.Backend{BaseURL: server.URL + "/", SecretKey: "sk_test"})

	err := client.Do(
		context.Background(),
		http.MethodPost,
		"/cart/items",
		auth.Credentials{Token: "user-token", SessionID: "s-1"},
		map[string]interface{}{"product_id": "p1", "quantity": 2},
		nil,
	)
	require.NoError(t, err)
	assert.Equal(t, "Bearer user-token", gotAuth)
	assert.Equal(t, "s-1", gotSession)
	assert.Equal(t, "p1", gotBody["product_id"])

	err = client.DoAsService(context.Background(), http.MethodPost, "/orders/confirm", map[string]string{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer sk_test", gotAuth)
	assert.Empty(t, gotSession)
}

func TestDoTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	client := NewClient(config.Backend{BaseURL: server.URL, Timeout: 20 * time.Millisecond})
	err := client.Do(context.Background(), http.MethodGet, "/cart", auth.Credentials{}, nil, nil)
	assert.ErrorIs(t, err, inErrors.ErrNetwork)
}
