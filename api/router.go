package api

import (
	"time"

	"github.com/Domenick1991/skycheckout/internal/service/checkout"
	"github.com/Domenick1991/skycheckout/internal/service/flights"
	"github.com/Domenick1991/skycheckout/pkg/jwt"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type RouterConfig struct {
	Checkout    checkout.CheckoutUseCase
	Flights     flights.FlightUseCase
	Tokens      *jwt.Service
	Logger      *logrus.Logger
	CORSOrigins []string
}

// NewRouter mounts the REST API under /api/v1.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(cfg.Logger))

	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	}
	router.Use(cors.New(corsConfig))

	v1 := router.Group("/api/v1")
	v1.Use(IdentityMiddleware(cfg.Tokens, cfg.Logger))

	NewIdentityHandler(cfg.Tokens, cfg.Logger).Register(v1.Group("/identity"))
	NewFlightHandler(cfg.Flights, cfg.Logger).Register(v1.Group("/flights"))
	NewCheckoutHandler(cfg.Checkout, cfg.Logger).Register(v1)

	return router
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"ip":         c.ClientIP(),
			"latency_ms": time.Since(start).Milliseconds(),
		}
		if identityID, ok := c.Get("identity_id"); ok {
			fields["identity_id"] = identityID
		}
		entry := logger.WithFields(fields)
		switch {
		case c.Writer.Status() >= 500:
			entry.Error("request completed")
		case c.Writer.Status() >= 400:
			entry.Warn("request completed")
		default:
			entry.Info("request completed")
		}
	}
}
