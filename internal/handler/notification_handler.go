package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sviy-ua/sviy-backend/internal/model"
	"github.com/sviy-ua/sviy-backend/internal/service"
)

type NotificationHandler struct {
	svc service.NotificationService
}

func NewNotificationHandler(svc service.NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

type NotificationResponse struct {
	ID            uint64  `json:"id"`
	Type          string  `json:"type"`
	Title         string  `json:"title"`
	Body          string  `json:"body"`
	LedgerEntryID *uint64 `json:"ledgerEntryId,omitempty"`
	PaymentID     *uint64 `json:"paymentId,omitempty"`
	Read          bool    `json:"read"`
	CreatedAt     string  `json:"createdAt"`
}

func toNotificationResponse(n model.Notification) NotificationResponse {
	return NotificationResponse{
		ID:            n.ID,
		Type:          n.Type,
		Title:         n.Title,
		Body:          n.Body,
		LedgerEntryID: n.LedgerEntryID,
		PaymentID:     n.PaymentID,
		Read:          n.ReadAt != nil,
		CreatedAt:     n.CreatedAt.Format(time.RFC3339),
	}
}

func (h *NotificationHandler) List(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	unreadOnly := c.QueryParam("unread_only") != "false"
	limit := queryInt(c, "limit", 20)
	if limit == 0 {
		limit = 20
	}
	list, unreadCount, err := h.svc.List(c.Request().Context(), uid, unreadOnly, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to fetch notifications"))
	}
	resp := make([]NotificationResponse, 0, len(list))
	for _, n := range list {
		resp = append(resp, toNotificationResponse(n))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"notifications": resp,
		"unreadCount":   unreadCount,
	})
}

func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	if err := h.svc.MarkAllRead(c.Request().Context(), uid); err != nil {
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to mark read"))
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
