package api

import (
	"net/http"
	"strings"

	"github.com/Domenick1991/skycheckout/internal/domain"
	"github.com/Domenick1991/skycheckout/pkg/jwt"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type IdentityHandler struct {
	tokens *jwt.Service
	logger *logrus.Logger
}

type guestRequest struct {
	DisplayName string `json:"display_name"`
}

type identityResponse struct {
	Token    string          `json:"token"`
	Identity domain.Identity `json:"identity"`
}

func NewIdentityHandler(tokens *jwt.Service, logger *logrus.Logger) *IdentityHandler {
	return &IdentityHandler{tokens: tokens, logger: logger}
}

func (h *IdentityHandler) Register(router *gin.RouterGroup) {
	router.POST("/guest", h.guest)
}

// guest issues a token for a fresh guest identity. The body is optional.
func (h *IdentityHandler) guest(c *gin.Context) {
	var req guestRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		name = "Guest"
	}

	identity := domain.Identity{ID: "guest-" + uuid.NewString(), DisplayName: name, IsGuest: true}
	token, err := h.tokens.Generate(identity)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, identityResponse{Token: token, Identity: identity})
}

// IdentityMiddleware attaches the identity from a bearer token to the
// request context. Requests without a token pass through anonymous; the
// operations that need an identity refuse them later.
func IdentityMiddleware(tokens *jwt.Service, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{
				Error:   "invalid_auth_format",
				Message: "expected: Bearer <token>",
			})
			return
		}

		claims, err := tokens.Validate(strings.TrimSpace(parts[1]))
		if err != nil {
			code := "invalid_token"
			if jwt.IsExpired(err) {
				code = "token_expired"
			}
			logger.WithError(err).WithField("path", c.Request.URL.Path).Warn("identity token rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: code, Message: "identity token rejected"})
			return
		}

		identity := claims.Identity()
		c.Set("identity_id", identity.ID)
		c.Request = c.Request.WithContext(domain.WithIdentity(c.Request.Context(), identity))
		c.Next()
	}
}
