package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/sviy-ua/sviy-backend/internal/pricing"
	"github.com/sviy-ua/sviy-backend/internal/service"
)

func TestRespondError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
		key  string
	}{
		{"not found", service.ErrNotFound, http.StatusNotFound, "not_found"},
		{"wrapped not found", fmt.Errorf("load: %w", service.ErrNotFound), http.StatusNotFound, "not_found"},
		{"user", service.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
		{"forbidden", service.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"state", service.ErrInvalidState, http.StatusConflict, "invalid_state"},
		{"amount", service.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
		{"promo", fmt.Errorf("%w: x", pricing.ErrUnknownPromo), http.StatusBadRequest, "bad_request"},
		{"validation", &service.ValidationError{Field: "title", Message: "is required"}, http.StatusBadRequest, "bad_request"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	e := echo.New()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
			require.NoError(t, respondError(c, tc.err, "failed"))
			require.Equal(t, tc.code, rec.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			require.Equal(t, tc.key, resp.Error.Code)
		})
	}
}

func TestRespondErrorPaymentRequired(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)
	err := fmt.Errorf("charge: %w", &service.InsufficientBalanceError{
		Required: decimal.NewFromInt(80),
		Current:  decimal.NewFromInt(50),
		Missing:  decimal.NewFromInt(30),
	})
	require.NoError(t, respondError(c, err, "failed"))
	require.Equal(t, http.StatusPaymentRequired, rec.Code)

	var resp PaymentRequiredResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "payment_required", resp.Error.Code)
	require.True(t, resp.Required.Equal(decimal.NewFromInt(80)))
	require.True(t, resp.Current.Equal(decimal.NewFromInt(50)))
	require.True(t, resp.Missing.Equal(decimal.NewFromInt(30)))
}
