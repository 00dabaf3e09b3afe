package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/target/dispatch-api/internal/errors"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", apperrors.Validation("bad"), http.StatusBadRequest},
		{"foreign key", apperrors.ForeignKey("missing parent"), http.StatusBadRequest},
		{"invalid phone", apperrors.InvalidPhone("12"), http.StatusUnprocessableEntity},
		{"not found", apperrors.NotFound("nope"), http.StatusNotFound},
		{"forbidden", apperrors.Forbidden("admin role required"), http.StatusForbidden},
		{"unauthorized", apperrors.Unauthorized("who"), http.StatusUnauthorized},
		{"conflict", apperrors.Conflict("taken"), http.StatusConflict},
		{"wrapped not found", fmt.Errorf("get job: %w", apperrors.NotFound("nope")), http.StatusNotFound},
		{"deadline", fmt.Errorf("list: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
		{"internal", apperrors.Internal("bad state"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestWriteServiceError_ClientErrorCarriesMessageAndField(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/jobs", nil)
	err := fmt.Errorf("create job: %w", apperrors.ValidationField("customer_phone", "phone looks wrong"))

	WriteServiceError(rec, req, quietLogger(), err)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "phone looks wrong", body.Error)
	assert.Equal(t, "validation", body.Code)
	assert.Equal(t, "customer_phone", body.Field)
}

func TestWriteServiceError_ServerErrorHidesDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)

	WriteServiceError(rec, req, quietLogger(), errors.New("dial tcp 10.0.0.5:5432: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "internal", body.Code)
	assert.NotContains(t, body.Error, "10.0.0.5")
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	t.Run("valid", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Ray"}`))
		var p payload
		require.True(t, DecodeJSON(rec, req, &p))
		assert.Equal(t, "Ray", p.Name)
	})

	t.Run("unknown field", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Ray","sale_price":10}`))
		var p payload
		assert.False(t, DecodeJSON(rec, req, &p))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "validation", decodeError(t, rec).Code)
	})

	t.Run("malformed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
		var p payload
		assert.False(t, DecodeJSON(rec, req, &p))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
