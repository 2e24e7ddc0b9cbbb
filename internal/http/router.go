package http

import (
	"log/slog"

	"github.com/geocoder89/userhub/internal/auth"
	"github.com/geocoder89/userhub/internal/config"
	"github.com/geocoder89/userhub/internal/http/handlers"
	"github.com/geocoder89/userhub/internal/http/middlewares"
	"github.com/geocoder89/userhub/internal/observability"
	"github.com/geocoder89/userhub/internal/repo/postgres"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Deps carries everything the router wires together. The directory arrives
// through the handlers' interfaces so tests can drop fakes in.
type Deps struct {
	Log         *slog.Logger
	Cfg         config.Config
	Directory   handlers.UserDirectory
	AuthDir     handlers.AuthDirectory
	JWT         *auth.Manager
	RefreshRepo *postgres.RefreshTokensRepo
	Prom        *observability.Prom
	PingDB      func() error
	PingCache   func() error
}

func NewRouter(d Deps) *gin.Engine {
	if d.Cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("userhub"))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(d.Log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.Cfg.AllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(d.Cfg.MaxBodyBytes))

	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// health
	h := handlers.NewHealthHandler(d.PingDB, d.PingCache)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	authLimiter := middlewares.NewRateLimiter(d.Cfg.RateLimit, d.Cfg.RateLimitWindow)
	authMw := middlewares.NewAuthMiddleware(d.JWT)
	requireJSON := middlewares.RequireJSON()

	usersHandler := handlers.NewUsersHandler(d.Directory)

	// public auth surface, rate limited by IP
	authGroup := r.Group("/auth", authLimiter.RateLimiterMiddleware(middlewares.KeyByIP))

	if d.RefreshRepo != nil {
		authHandler := handlers.NewAuthHandler(d.AuthDir, d.JWT, d.RefreshRepo, d.Cfg)
		authGroup.POST("/signup", requireJSON, authHandler.SignUp)
		authGroup.POST("/login", requireJSON, authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)
	}

	// availability probe is public: it backs the signup form
	r.GET("/users/availability",
		authLimiter.RateLimiterMiddleware(middlewares.KeyByIP),
		usersHandler.CheckAvailability)

	// directory management is admin-only; the directory core assumes role
	// checks already happened, and this is where they happen
	users := r.Group("/users", authMw.RequireAuth(), authMw.RequireRole("admin"))
	users.GET("", usersHandler.ListUsers)
	users.POST("", requireJSON, usersHandler.CreateUser)
	users.GET("/:username", usersHandler.GetUser)
	users.PATCH("/:username", requireJSON, usersHandler.UpdateUser)
	users.DELETE("/:username", usersHandler.DeleteUser)

	// authenticated self-service profile read
	r.GET("/me", authMw.RequireAuth(), usersHandler.GetSelf)

	return r
}
