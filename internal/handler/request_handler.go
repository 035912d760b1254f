package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sviy-ua/sviy-backend/internal/model"
	"github.com/sviy-ua/sviy-backend/internal/pricing"
	"github.com/sviy-ua/sviy-backend/internal/service"
)

type RequestHandler struct {
	svc     service.RequestService
	reviews service.ReviewService
	prices  *pricing.Table
}

func NewRequestHandler(svc service.RequestService, reviews service.ReviewService, prices *pricing.Table) *RequestHandler {
	return &RequestHandler{svc: svc, reviews: reviews, prices: prices}
}

type RequestResponse struct {
	ID          uint64          `json:"id"`
	AuthorUID   string          `json:"authorUid"`
	ProviderUID *string         `json:"providerUid,omitempty"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	City        string          `json:"city"`
	Promos      []string        `json:"promos"`
	Status      string          `json:"status"`
	UCMCharged  decimal.Decimal `json:"ucmCharged"`
	AcceptedAt  *string         `json:"acceptedAt,omitempty"`
	CompletedAt *string         `json:"completedAt,omitempty"`
	CreatedAt   string          `json:"createdAt"`
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	val := t.Format(time.RFC3339)
	return &val
}

func toRequestResponse(r *model.ServiceRequest) RequestResponse {
	promos := []string{}
	if r.Promos != "" {
		promos = strings.Split(r.Promos, ",")
	}
	return RequestResponse{
		ID:          r.ID,
		AuthorUID:   r.AuthorUID,
		ProviderUID: r.ProviderUID,
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		City:        r.City,
		Promos:      promos,
		Status:      string(r.Status),
		UCMCharged:  r.UCMCharged,
		AcceptedAt:  formatTimePtr(r.AcceptedAt),
		CompletedAt: formatTimePtr(r.CompletedAt),
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
	}
}

type ReviewResponse struct {
	ID          uint64 `json:"id"`
	RequestID   uint64 `json:"requestId"`
	ReviewerUID string `json:"reviewerUid"`
	TargetUID   string `json:"targetUid"`
	Rating      uint8  `json:"rating"`
	Body        string `json:"body"`
	CreatedAt   string `json:"createdAt"`
}

func toReviewResponse(r *model.Review) ReviewResponse {
	return ReviewResponse{
		ID:          r.ID,
		RequestID:   r.RequestID,
		ReviewerUID: r.ReviewerUID,
		TargetUID:   r.TargetUID,
		Rating:      r.Rating,
		Body:        r.Body,
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
	}
}

func (h *RequestHandler) Create(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	var body struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Category    string   `json:"category"`
		City        string   `json:"city"`
		Promos      []string `json:"promos"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid body"))
	}
	promos, err := h.prices.ParsePromos(pricing.ActionRequestPublish, body.Promos)
	if err != nil {
		return respondError(c, err, "invalid promos")
	}
	sr, receipt, err := h.svc.Create(c.Request().Context(), uid, service.CreateRequestInput{
		Title:       body.Title,
		Description: body.Description,
		Category:    body.Category,
		City:        body.City,
		Promos:      promos,
	})
	if err != nil {
		return respondError(c, err, "failed to create request")
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"request": toRequestResponse(sr),
		"charge":  receipt,
	})
}

func (h *RequestHandler) ListMine(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	ctx := c.Request().Context()
	var (
		list []model.ServiceRequest
		err  error
	)
	if c.QueryParam("role") == "provider" {
		list, err = h.svc.ListAssigned(ctx, uid)
	} else {
		list, err = h.svc.ListMine(ctx, uid)
	}
	if err != nil {
		return respondError(c, err, "failed to list requests")
	}
	resp := make([]RequestResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toRequestResponse(&list[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *RequestHandler) Get(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid request id"))
	}
	sr, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err, "failed to load request")
	}
	return c.JSON(http.StatusOK, toRequestResponse(sr))
}

type transition func(c echo.Context, id uint64, uid string) (*model.ServiceRequest, error)

func (h *RequestHandler) run(c echo.Context, fn transition) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid request id"))
	}
	sr, err := fn(c, id, uid)
	if err != nil {
		return respondError(c, err, "failed to update request")
	}
	return c.JSON(http.StatusOK, toRequestResponse(sr))
}

func (h *RequestHandler) Accept(c echo.Context) error {
	return h.run(c, func(c echo.Context, id uint64, uid string) (*model.ServiceRequest, error) {
		return h.svc.Accept(c.Request().Context(), id, uid)
	})
}

func (h *RequestHandler) Complete(c echo.Context) error {
	return h.run(c, func(c echo.Context, id uint64, uid string) (*model.ServiceRequest, error) {
		return h.svc.Complete(c.Request().Context(), id, uid)
	})
}

func (h *RequestHandler) Cancel(c echo.Context) error {
	return h.run(c, func(c echo.Context, id uint64, uid string) (*model.ServiceRequest, error) {
		return h.svc.Cancel(c.Request().Context(), id, uid)
	})
}

func (h *RequestHandler) Review(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid request id"))
	}
	var body struct {
		Rating int    `json:"rating"`
		Body   string `json:"body"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid body"))
	}
	rv, err := h.reviews.Create(c.Request().Context(), uid, id, body.Rating, body.Body)
	if err != nil {
		return respondError(c, err, "failed to create review")
	}
	return c.JSON(http.StatusCreated, toReviewResponse(rv))
}
