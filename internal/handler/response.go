package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sviy-ua/sviy-backend/internal/pricing"
	"github.com/sviy-ua/sviy-backend/internal/reqctx"
	"github.com/sviy-ua/sviy-backend/internal/service"
)

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type ErrorResponse struct {
	Error errorPayload `json:"error"`
}

func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{
		Error: errorPayload{
			Code:    code,
			Message: message,
		},
	}
}

// PaymentRequiredResponse is the 402 body; the client offers a top-up of
// Missing UCM.
type PaymentRequiredResponse struct {
	Error    errorPayload    `json:"error"`
	Required decimal.Decimal `json:"required"`
	Current  decimal.Decimal `json:"current"`
	Missing  decimal.Decimal `json:"missing"`
}

func currentUID(c echo.Context) string {
	uid, _ := c.Get("uid").(string)
	return uid
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
}

func parseID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

func queryInt(c echo.Context, name string, def int) int {
	if s := c.QueryParam(name); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			return v
		}
	}
	return def
}

// respondError maps service errors onto the JSON envelope. Unknown errors
// are logged and reported as 500 with msg.
func respondError(c echo.Context, err error, msg string) error {
	var ib *service.InsufficientBalanceError
	if errors.As(err, &ib) {
		return c.JSON(http.StatusPaymentRequired, PaymentRequiredResponse{
			Error:    errorPayload{Code: "payment_required", Message: "insufficient UCM balance"},
			Required: ib.Required,
			Current:  ib.Current,
			Missing:  ib.Missing,
		})
	}
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		resp := NewErrorResponse("bad_request", ve.Error())
		resp.Error.Field = ve.Field
		return c.JSON(http.StatusBadRequest, resp)
	}
	switch {
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "not found"))
	case errors.Is(err, service.ErrUserNotFound):
		return c.JSON(http.StatusNotFound, NewErrorResponse("user_not_found", "user is not registered"))
	case errors.Is(err, service.ErrOrderNotFound):
		return c.JSON(http.StatusNotFound, NewErrorResponse("order_not_found", "payment not found"))
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, NewErrorResponse("forbidden", "not allowed"))
	case errors.Is(err, service.ErrInvalidState):
		return c.JSON(http.StatusConflict, NewErrorResponse("invalid_state", "operation not allowed in current state"))
	case errors.Is(err, service.ErrAlreadyReviewed):
		return c.JSON(http.StatusConflict, NewErrorResponse("already_reviewed", "request already reviewed"))
	case errors.Is(err, service.ErrInvalidAmount):
		return c.JSON(http.StatusBadRequest, NewErrorResponse("invalid_amount", "amount is out of range"))
	case errors.Is(err, service.ErrNotEligible):
		return c.JSON(http.StatusConflict, NewErrorResponse("not_eligible", "reward conditions are not met"))
	case errors.Is(err, pricing.ErrUnknownAction), errors.Is(err, pricing.ErrUnknownPromo):
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
	}
	log.Printf("%s%s: %v", reqctx.LogPrefix(c.Request().Context()), msg, err)
	return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", msg))
}
