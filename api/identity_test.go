package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Domenick1991/skycheckout/internal/domain"
	"github.com/Domenick1991/skycheckout/pkg/jwt"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityHandler_Guest(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/identity/guest", guestRequest{DisplayName: "Juan"}, "")

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp identityResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Identity.IsGuest)
	assert.Equal(t, "Juan", resp.Identity.DisplayName)

	claims, err := s.tokens.Validate(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.Identity.ID, claims.IdentityID)
}

func TestIdentityHandler_GuestWithoutBody(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/identity/guest", nil, "")

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp identityResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Guest", resp.Identity.DisplayName)
}

func newMiddlewareContext(header string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil)
	if header != "" {
		c.Request.Header.Set("Authorization", header)
	}
	return c, w
}

func TestIdentityMiddleware(t *testing.T) {
	tokens := jwt.NewService("test-secret", time.Hour)
	logger, _ := test.NewNullLogger()
	middleware := IdentityMiddleware(tokens, logger)

	valid, err := tokens.Generate(domain.Identity{ID: "guest-1", IsGuest: true})
	require.NoError(t, err)
	foreign, err := jwt.NewService("other-secret", time.Hour).Generate(domain.Identity{ID: "guest-2"})
	require.NoError(t, err)

	t.Run("valid token", func(t *testing.T) {
		c, _ := newMiddlewareContext("Bearer " + valid)
		middleware(c)

		assert.False(t, c.IsAborted())
		identity, ok := domain.IdentityFromContext(c.Request.Context())
		require.True(t, ok)
		assert.Equal(t, "guest-1", identity.ID)
	})

	t.Run("no header", func(t *testing.T) {
		c, _ := newMiddlewareContext("")
		middleware(c)

		assert.False(t, c.IsAborted())
		_, ok := domain.IdentityFromContext(c.Request.Context())
		assert.False(t, ok)
	})

	t.Run("bad format", func(t *testing.T) {
		c, w := newMiddlewareContext("Token " + valid)
		middleware(c)

		assert.True(t, c.IsAborted())
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("foreign signature", func(t *testing.T) {
		c, w := newMiddlewareContext("Bearer " + foreign)
		middleware(c)

		assert.True(t, c.IsAborted())
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "invalid_token")
	})
}

func TestDescribeDevice(t *testing.T) {
	assert.Equal(t, "unknown", describeDevice(""))
	desktop := describeDevice("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	assert.Contains(t, desktop, "Chrome 120.0.0.0")
	assert.Contains(t, desktop, "Linux")
	assert.Contains(t, desktop, "(desktop)")
	assert.Contains(t, describeDevice("Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"), "bot")
}
