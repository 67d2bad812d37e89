package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Gladiston-Porto/GladPros-sub002/internal/infra/config"
	"github.com/Gladiston-Porto/GladPros-sub002/internal/transport/http/handlers"
	"github.com/Gladiston-Porto/GladPros-sub002/internal/transport/http/middleware"
	"github.com/Gladiston-Porto/GladPros-sub002/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth     *usecase.AuthService
	Tokens   *usecase.TokenService
	Sessions *usecase.SessionService
	Lockout  *usecase.LockoutService
	Password *usecase.PasswordService
	Reports  *usecase.ReportService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config   *config.AppConfig
	Logger   *zap.Logger
	Services ServiceSet
	Metrics  *middleware.HTTPMetrics
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	healthHandler := handlers.NewHealthHandler()
	r.GET("/healthz", healthHandler.Status)

	if deps.Config.Telemetry.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	api := r.Group("/api/v1")
	// Keep session rows of active clients out of the idle sweep.
	api.Use(middleware.SessionActivity(deps.Services.Sessions))
	{
		authGroup := api.Group("/auth")

		authHandler := handlers.NewAuthHandler(deps.Services.Auth, deps.Services.Tokens, deps.Services.Password, deps.Config.App.IsProduction())
		authHandler.RegisterRoutes(authGroup)

		unlockHandler := handlers.NewUnlockHandler(deps.Services.Lockout)
		unlockHandler.RegisterRoutes(authGroup)

		sessionHandler := handlers.NewSessionHandler(deps.Services.Sessions, deps.Services.Tokens)
		sessionHandler.RegisterRoutes(authGroup)

		reportHandler := handlers.NewReportHandler(deps.Services.Reports, deps.Services.Tokens)
		reportHandler.RegisterRoutes(api)
	}

	return r
}
