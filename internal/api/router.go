package api

import (
	"strings"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/soundledger/royalty-service/internal/api/handler"
	"github.com/soundledger/royalty-service/internal/api/middleware"
	"github.com/soundledger/royalty-service/internal/core/domain"
	"github.com/soundledger/royalty-service/internal/core/ports"
	"github.com/soundledger/royalty-service/internal/pkg/validation"
)

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Accounts       ports.AccountService
	Collaborations ports.CollaborationService
	Royalties      ports.RoyaltyService
	Notifications  ports.NotificationService
	Auth           ports.AuthService
	Hasher         ports.PasswordHasher
	Verifier       middleware.TokenVerifier
	Validator      *validation.Validator

	// Probes are checked by the readiness endpoint, keyed by dependency name.
	Probes map[string]handler.Pinger

	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
	Log        zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
// A nil Registerer gets a private registry so routers can be built repeatedly.
func NewRouter(d Deps) *echo.Echo {
	if d.Registerer == nil {
		reg := prometheus.NewRegistry()
		d.Registerer, d.Gatherer = reg, reg
	}
	if d.Validator == nil {
		d.Validator = validation.New()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = d.Validator
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "royalty",
		Registerer: d.Registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || strings.HasPrefix(c.Path(), "/health")
		},
	}))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(d.Auth)
	accountHandler := handler.NewAccountHandler(d.Accounts, d.Hasher)
	collabHandler := handler.NewCollaborationHandler(d.Collaborations)
	royaltyHandler := handler.NewRoyaltyHandler(d.Royalties)
	notificationHandler := handler.NewNotificationHandler(d.Notifications)

	adminOnly := middleware.RBAC(domain.RoleAdmin)
	adminOrArtist := middleware.RBAC(domain.RoleAdmin, domain.RoleArtist)

	// --- Public routes ---
	e.POST("/auth/login", authHandler.Login)

	// --- Health probes and metrics (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(d.Probes)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: d.Gatherer}))

	v1 := e.Group("/v1", middleware.Auth(d.Verifier))

	// --- Accounts ---
	accounts := v1.Group("/accounts")
	accounts.POST("", accountHandler.Create, adminOnly)
	accounts.GET("/:username", accountHandler.Get)
	accounts.PATCH("/:username/profile", accountHandler.UpdateProfile)
	accounts.PUT("/:username/credential", accountHandler.UpdateCredential)
	accounts.PUT("/:username/active", accountHandler.SetActive, adminOnly)
	accounts.DELETE("/:username", accountHandler.Delete, adminOnly)

	// --- Collaborations ---
	collabs := v1.Group("/collaborations")
	collabs.POST("", collabHandler.Request, middleware.RBAC(domain.RoleManager, domain.RoleArtist, domain.RoleAdmin))
	collabs.GET("", collabHandler.List)
	collabs.GET("/:id", collabHandler.Get)
	collabs.POST("/:id/approve", collabHandler.Approve)
	collabs.POST("/:id/reject", collabHandler.Reject)
	collabs.POST("/:id/cancellation", collabHandler.RequestCancellation)
	collabs.POST("/:id/cancellation/response", collabHandler.RespondToCancellation)
	collabs.POST("/:id/songs", collabHandler.AssignSongs)

	// --- Royalty ledger ---
	v1.POST("/royalties/accruals", royaltyHandler.Accrue, adminOnly)
	v1.GET("/royalties", royaltyHandler.List, adminOrArtist)
	v1.GET("/royalties/:id", royaltyHandler.Get, adminOrArtist)
	v1.POST("/royalties/:id/disbursements", royaltyHandler.Disburse, adminOnly)
	v1.GET("/artists/:id/balance", royaltyHandler.Balance, adminOrArtist)
	v1.GET("/transactions", royaltyHandler.ListTransactions, adminOrArtist)
	v1.POST("/transactions/:id/approve", royaltyHandler.ApproveTransaction, adminOnly)

	// --- Notifications ---
	v1.GET("/notifications", notificationHandler.List)
	v1.POST("/notifications/:id/read", notificationHandler.MarkAsRead)

	return e
}

// requestLogger writes one structured line per request through log.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= 500 {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
