package handler

import (
	"context"
	"net/http"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sviy-ua/sviy-backend/internal/model"
	"github.com/sviy-ua/sviy-backend/internal/repository"
	"github.com/sviy-ua/sviy-backend/internal/service"
)

// IdentityLookup is satisfied by *auth.Client.
type IdentityLookup interface {
	GetUser(ctx context.Context, uid string) (*auth.UserRecord, error)
}

type UserHandler struct {
	users    service.UserService
	reviews  service.ReviewService
	identity IdentityLookup
}

func NewUserHandler(users service.UserService, reviews service.ReviewService, identity IdentityLookup) *UserHandler {
	return &UserHandler{users: users, reviews: reviews, identity: identity}
}

type UserResponse struct {
	UID           string          `json:"uid"`
	DisplayName   string          `json:"displayName"`
	Phone         string          `json:"phone"`
	City          string          `json:"city"`
	Bio           string          `json:"bio"`
	AvatarURL     string          `json:"avatarUrl"`
	Balance       decimal.Decimal `json:"balance"`
	ReferralCode  *string         `json:"referralCode"`
	ReferredByUID *string         `json:"referredByUid,omitempty"`
	CreatedAt     string          `json:"createdAt"`
}

func toUserResponse(u *model.User) UserResponse {
	return UserResponse{
		UID:           u.UID,
		DisplayName:   u.DisplayName,
		Phone:         u.Phone,
		City:          u.City,
		Bio:           u.Bio,
		AvatarURL:     u.AvatarURL,
		Balance:       u.Balance,
		ReferralCode:  u.ReferralCode,
		ReferredByUID: u.ReferredByUID,
		CreatedAt:     u.CreatedAt.Format(time.RFC3339),
	}
}

type PublicUserResponse struct {
	UID         string           `json:"uid"`
	DisplayName string           `json:"displayName"`
	City        string           `json:"city"`
	PhotoURL    *string          `json:"photoURL"`
	Reviews     []ReviewResponse `json:"reviews"`
}

func (h *UserHandler) Register(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	var body struct {
		DisplayName  string `json:"displayName"`
		ReferralCode string `json:"referralCode"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid body"))
	}
	ctx := c.Request().Context()
	if body.DisplayName == "" && h.identity != nil {
		if rec, err := h.identity.GetUser(ctx, uid); err == nil {
			body.DisplayName = rec.DisplayName
		}
	}
	u, created, err := h.users.Register(ctx, uid, service.RegisterInput{
		DisplayName:  body.DisplayName,
		ReferralCode: body.ReferralCode,
	})
	if err != nil {
		return respondError(c, err, "failed to register")
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, toUserResponse(u))
}

func (h *UserHandler) Me(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	u, err := h.users.Get(c.Request().Context(), uid)
	if err != nil {
		return respondError(c, err, "failed to load user")
	}
	return c.JSON(http.StatusOK, toUserResponse(u))
}

func (h *UserHandler) UpdateProfile(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	var body struct {
		DisplayName string `json:"displayName"`
		Phone       string `json:"phone"`
		City        string `json:"city"`
		Bio         string `json:"bio"`
		AvatarURL   string `json:"avatarUrl"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid body"))
	}
	u, grant, err := h.users.UpdateProfile(c.Request().Context(), uid, repository.ProfileFields{
		DisplayName: body.DisplayName,
		Phone:       body.Phone,
		City:        body.City,
		Bio:         body.Bio,
		AvatarURL:   body.AvatarURL,
	})
	if err != nil {
		return respondError(c, err, "failed to update profile")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"user":   toUserResponse(u),
		"reward": grant,
	})
}

func (h *UserHandler) CheckIn(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	res, err := h.users.CheckIn(c.Request().Context(), uid)
	if err != nil {
		return respondError(c, err, "failed to check in")
	}
	return c.JSON(http.StatusOK, res)
}

func (h *UserHandler) GetPublic(c echo.Context) error {
	uid := c.Param("uid")
	if uid == "" {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid uid"))
	}
	ctx := c.Request().Context()
	u, err := h.users.Get(ctx, uid)
	if err != nil {
		return respondError(c, err, "failed to load user")
	}
	reviews, err := h.reviews.ListForUser(ctx, uid, 20)
	if err != nil {
		return respondError(c, err, "failed to load reviews")
	}
	resp := PublicUserResponse{
		UID:         u.UID,
		DisplayName: u.DisplayName,
		City:        u.City,
		PhotoURL:    strPtrOrNil(u.AvatarURL),
		Reviews:     make([]ReviewResponse, 0, len(reviews)),
	}
	for i := range reviews {
		resp.Reviews = append(resp.Reviews, toReviewResponse(&reviews[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

func strPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
