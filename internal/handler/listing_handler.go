package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sviy-ua/sviy-backend/internal/model"
	"github.com/sviy-ua/sviy-backend/internal/repository"
	"github.com/sviy-ua/sviy-backend/internal/service"
)

type ListingHandler struct {
	svc service.ListingService
}

func NewListingHandler(svc service.ListingService) *ListingHandler {
	return &ListingHandler{svc: svc}
}

type ListingResponse struct {
	ID           uint64  `json:"id"`
	ProviderUID  string  `json:"providerUid"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Category     string  `json:"category"`
	City         string  `json:"city"`
	PriceUAH     uint    `json:"priceUah"`
	Boosted      bool    `json:"boosted"`
	BoostedUntil *string `json:"boostedUntil,omitempty"`
	CreatedAt    string  `json:"createdAt"`
}

func toListingResponse(l *model.ServiceListing) ListingResponse {
	return ListingResponse{
		ID:           l.ID,
		ProviderUID:  l.ProviderUID,
		Title:        l.Title,
		Description:  l.Description,
		Category:     l.Category,
		City:         l.City,
		PriceUAH:     l.PriceUAH,
		Boosted:      l.BoostedUntil != nil && l.BoostedUntil.After(time.Now()),
		BoostedUntil: formatTimePtr(l.BoostedUntil),
		CreatedAt:    l.CreatedAt.Format(time.RFC3339),
	}
}

func toListingResponses(list []model.ServiceListing) []ListingResponse {
	resp := make([]ListingResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toListingResponse(&list[i]))
	}
	return resp
}

func (h *ListingHandler) Create(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	var body struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Category    string `json:"category"`
		City        string `json:"city"`
		PriceUAH    uint   `json:"priceUah"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid body"))
	}
	l, err := h.svc.Create(c.Request().Context(), uid, service.CreateListingInput{
		Title:       body.Title,
		Description: body.Description,
		Category:    body.Category,
		City:        body.City,
		PriceUAH:    body.PriceUAH,
	})
	if err != nil {
		return respondError(c, err, "failed to create listing")
	}
	return c.JSON(http.StatusCreated, toListingResponse(l))
}

func (h *ListingHandler) List(c echo.Context) error {
	f := repository.ListingFilter{
		Category: c.QueryParam("category"),
		City:     c.QueryParam("city"),
		Query:    c.QueryParam("q"),
	}
	list, total, err := h.svc.List(c.Request().Context(), f, queryInt(c, "limit", 20), queryInt(c, "offset", 0))
	if err != nil {
		return respondError(c, err, "failed to list listings")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"listings": toListingResponses(list),
		"total":    total,
	})
}

func (h *ListingHandler) Get(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid listing id"))
	}
	l, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err, "failed to load listing")
	}
	return c.JSON(http.StatusOK, toListingResponse(l))
}

func (h *ListingHandler) Boost(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid listing id"))
	}
	l, receipt, err := h.svc.Boost(c.Request().Context(), uid, id)
	if err != nil {
		return respondError(c, err, "failed to boost listing")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"listing": toListingResponse(l),
		"charge":  receipt,
	})
}

// Search is the paid partner search.
func (h *ListingHandler) Search(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	var body struct {
		Category string `json:"category"`
		City     string `json:"city"`
		Query    string `json:"query"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid body"))
	}
	list, receipt, err := h.svc.Search(c.Request().Context(), uid, repository.ListingFilter{
		Category: body.Category,
		City:     body.City,
		Query:    body.Query,
	})
	if err != nil {
		return respondError(c, err, "failed to search partners")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"partners": toListingResponses(list),
		"charge":   receipt,
	})
}
