package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jnst/event-outbox/internal/model"
)

type stubOrderService struct {
	err error
}

func (s *stubOrderService) PlaceOrder(_ context.Context, params *model.PlaceOrderParams) (*model.PlacedOrder, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	if s.err != nil {
		return nil, s.err
	}

	return &model.PlacedOrder{OrderID: "o-1", EventID: "e-1", Stream: "Order$o-1"}, nil
}

func TestAPIServer_PlaceOrder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		method string
		body   string
		err    error
		status int
	}{
		{name: "created", method: http.MethodPost, body: `{"customer":"alice","amount":10}`, status: http.StatusCreated},
		{name: "invalid json", method: http.MethodPost, body: `{`, status: http.StatusBadRequest},
		{name: "invalid params", method: http.MethodPost, body: `{"customer":"alice"}`, status: http.StatusBadRequest},
		{name: "conflict", method: http.MethodPost, body: `{"customer":"alice","amount":10}`,
			err: fmt.Errorf("append: %w", model.ErrConcurrencyViolation), status: http.StatusConflict},
		{name: "wrong method", method: http.MethodGet, status: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := NewAPIServer(&stubOrderService{err: tt.err})
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, "/orders", strings.NewReader(tt.body))

			server.Routes().ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)

			if tt.status == http.StatusCreated {
				var placed model.PlacedOrder
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&placed))
				assert.Equal(t, "Order$o-1", placed.Stream)
			}
		})
	}
}

func TestAPIServer_HealthCheck(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	NewAPIServer(&stubOrderService{}).Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
