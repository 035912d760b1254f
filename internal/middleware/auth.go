package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"github.com/sviy-ua/sviy-backend/internal/reqctx"
)

// TokenVerifier is satisfied by *auth.Client.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

type AuthMiddleware struct {
	authClient *auth.Client
	verifier   TokenVerifier
}

func NewAuthMiddleware(ctx context.Context, projectID string) (*AuthMiddleware, error) {
	if projectID == "" {
		return nil, errors.New("FIREBASE_PROJECT_ID is not set")
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID})
	if err != nil {
		return nil, err
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, err
	}
	return &AuthMiddleware{authClient: client, verifier: client}, nil
}

// NewAuthMiddlewareWithVerifier builds the middleware around any verifier.
func NewAuthMiddlewareWithVerifier(v TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: v}
}

func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authz := c.Request().Header.Get("Authorization")
		if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}
		tokenStr := strings.TrimPrefix(authz, "Bearer ")
		token, err := m.verifier.VerifyIDToken(c.Request().Context(), tokenStr)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid_token"})
		}
		c.Set("uid", token.UID)
		req := c.Request()
		c.SetRequest(req.WithContext(reqctx.WithUID(req.Context(), token.UID)))
		return next(c)
	}
}

// Client is nil when the middleware was built from a bare verifier.
func (m *AuthMiddleware) Client() *auth.Client {
	return m.authClient
}

// AttachRequestID copies the echo request id into the request context so
// service logs can be correlated with access logs.
func AttachRequestID(c echo.Context, rid string) {
	req := c.Request()
	c.SetRequest(req.WithContext(reqctx.WithRID(req.Context(), rid)))
}
