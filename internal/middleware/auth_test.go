package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/sviy-ua/sviy-backend/internal/reqctx"
)

type fakeVerifier map[string]string

func (f fakeVerifier) VerifyIDToken(_ context.Context, tok string) (*auth.Token, error) {
	uid, ok := f[tok]
	if !ok {
		return nil, errors.New("bad token")
	}
	return &auth.Token{UID: uid}, nil
}

func TestRequireAuth(t *testing.T) {
	m := NewAuthMiddlewareWithVerifier(fakeVerifier{"good": "user-1"})
	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		uid, _ := c.Get("uid").(string)
		return c.String(http.StatusOK, uid+"|"+reqctx.UID(c.Request().Context()))
	}, m.RequireAuth)

	cases := []struct {
		name   string
		header string
		code   int
		body   string
	}{
		{"missing", "", http.StatusUnauthorized, ""},
		{"not bearer", "Basic abc", http.StatusUnauthorized, ""},
		{"invalid", "Bearer nope", http.StatusUnauthorized, ""},
		{"ok", "Bearer good", http.StatusOK, "user-1|user-1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			require.Equal(t, tc.code, rec.Code)
			if tc.body != "" {
				require.Equal(t, tc.body, rec.Body.String())
			}
		})
	}
}

func TestAttachRequestID(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	AttachRequestID(c, "rid-42")
	require.Equal(t, "rid-42", reqctx.RID(c.Request().Context()))
}
