package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sviy-ua/sviy-backend/internal/model"
	"github.com/sviy-ua/sviy-backend/internal/service"
	"github.com/sviy-ua/sviy-backend/internal/wayforpay"
)

const maxCallbackBody = 64 << 10

type PaymentHandler struct {
	svc    service.PaymentService
	notify service.NotificationService
}

func NewPaymentHandler(svc service.PaymentService, notify service.NotificationService) *PaymentHandler {
	return &PaymentHandler{svc: svc, notify: notify}
}

type PaymentResponse struct {
	OrderReference string          `json:"orderReference"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Status         string          `json:"status"`
	Description    string          `json:"description"`
	ApprovedAt     *string         `json:"approvedAt,omitempty"`
	CreatedAt      string          `json:"createdAt"`
}

func toPaymentResponse(p *model.Payment) PaymentResponse {
	var approvedAt *string
	if p.ApprovedAt != nil {
		val := p.ApprovedAt.Format(time.RFC3339)
		approvedAt = &val
	}
	return PaymentResponse{
		OrderReference: p.OrderReference,
		Amount:         p.Amount,
		Currency:       p.Currency,
		Status:         string(p.Status),
		Description:    p.Description,
		ApprovedAt:     approvedAt,
		CreatedAt:      p.CreatedAt.Format(time.RFC3339),
	}
}

func (h *PaymentHandler) Create(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	var body struct {
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid body"))
	}
	created, err := h.svc.CreatePayment(c.Request().Context(), uid, body.Amount, body.Description)
	if err != nil {
		return respondError(c, err, "failed to create payment")
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *PaymentHandler) Get(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	ctx := c.Request().Context()
	p, err := h.svc.Get(ctx, uid, c.Param("ref"))
	if err != nil {
		return respondError(c, err, "failed to load payment")
	}
	if h.notify != nil && p.Status.Terminal() {
		_ = h.notify.MarkByPayment(ctx, uid, p.ID)
	}
	return c.JSON(http.StatusOK, toPaymentResponse(p))
}

func (h *PaymentHandler) ListMine(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	list, err := h.svc.ListByUser(c.Request().Context(), uid, queryInt(c, "limit", 20))
	if err != nil {
		return respondError(c, err, "failed to list payments")
	}
	resp := make([]PaymentResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toPaymentResponse(&list[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

// Callback is the gateway's serviceUrl. It is authenticated by the payload
// signature only and answers with the signed acknowledgment.
func (h *PaymentHandler) Callback(c echo.Context) error {
	raw, err := io.ReadAll(io.LimitReader(c.Request().Body, maxCallbackBody))
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "failed to read body"))
	}
	res, err := h.svc.HandleCallback(c.Request().Context(), raw)
	if err != nil {
		switch {
		case errors.Is(err, wayforpay.ErrInvalidSignature):
			return c.JSON(http.StatusBadRequest, NewErrorResponse("invalid_signature", "signature mismatch"))
		case errors.Is(err, wayforpay.ErrMalformedCallback):
			return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "malformed callback"))
		}
		return respondError(c, err, "failed to process callback")
	}
	return c.JSON(http.StatusOK, res.Ack)
}
