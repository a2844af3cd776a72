package cmd

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inErrors "github.com/Alturino/marketclub/internal/errors"
	"github.com/Alturino/marketclub/state"
)

func TestParseQuantity(t *testing.T) {
	testCases := []struct {
		name     string
		raw      string
		expected int32
		wantErr  bool
	}{
		{name: "should parse positive", raw: "6", expected: 6},
		{name: "should parse zero", raw: "0", expected: 0},
		{name: "should keep negative for validation", raw: "-1", expected: -1},
		{name: "should reject text", raw: "six", wantErr: true},
		{name: "should reject overflow", raw: "3000000000", wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			quantity, err := parseQuantity(tc.raw)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, quantity)
		})
	}
}

func TestToast(t *testing.T) {
	testCases := []struct {
		name     string
		status   state.Status
		err      error
		change   *state.Change
		expected string
	}{
		{
			name:     "should show taxonomy message",
			status:   state.STATUS_ERROR,
			err:      inErrors.NewOutOfStockError("only 2 left"),
			expected: "! only 2 left\n",
		},
		{
			name:     "should show plain error",
			status:   state.STATUS_ERROR,
			err:      errors.New("boom"),
			expected: "! boom\n",
		},
		{
			name:     "should show product change",
			status:   state.STATUS_READY,
			change:   &state.Change{ProductID: "club-colombia", Action: state.ACTION_ADDED},
			expected: "* added club-colombia\n",
		},
		{
			name:     "should show cart wide change",
			status:   state.STATUS_READY,
			change:   &state.Change{Action: state.ACTION_CLEARED},
			expected: "* cleared\n",
		},
		{
			name:   "should stay quiet on load",
			status: state.STATUS_READY,
			change: &state.Change{Action: state.ACTION_LOADED},
		},
		{
			name:   "should stay quiet while loading",
			status: state.STATUS_LOADING,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			toasts := &bytes.Buffer{}
			cl := &client{toasts: toasts}

			cl.toast(tc.status, tc.err, tc.change)

			assert.Equal(t, tc.expected, toasts.String())
		})
	}
}

func TestHealthz(t *testing.T) {
	t.Run("should answer 200 when dependencies respond", func(t *testing.T) {
		w := httptest.NewRecorder()
		healthz(w, httptest.NewRequest(http.MethodGet, "/healthz", nil), func(context.Context) error { return nil })

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"healthy"`)
	})

	t.Run("should answer 503 when a dependency is down", func(t *testing.T) {
		w := httptest.NewRecorder()
		healthz(w, httptest.NewRequest(http.MethodGet, "/healthz", nil), func(context.Context) error {
			return errors.New("redis: connection refused")
		})

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "connection refused")
	})
}
