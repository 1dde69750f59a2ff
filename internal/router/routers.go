package router

import (
	"time"

	"github.com/bookhub/backend/config"
	"github.com/bookhub/backend/internal/constants"
	"github.com/bookhub/backend/internal/handler"
	"github.com/bookhub/backend/internal/middleware"
	"github.com/bookhub/backend/pkg/metrics"
	"github.com/gin-gonic/gin"
)

// Router composes the HTTP surface once at startup. The /github group only
// exists when OAuth2 is enabled in config.
type Router struct {
	authHandler    *handler.AuthHandler
	userHandler    *handler.UserHandler
	githubHandler  *handler.GitHubHandler
	featureHandler *handler.FeatureHandler
	healthHandler  *handler.HealthHandler

	validMw *middleware.ValidationMiddleware
	jwtMw   *middleware.JWTMiddleware
	metrics *metrics.Metrics
	Config  *config.Config
}

func NewRouter(
	auth *handler.AuthHandler,
	user *handler.UserHandler,
	github *handler.GitHubHandler,
	feature *handler.FeatureHandler,
	health *handler.HealthHandler,

	validMw *middleware.ValidationMiddleware,
	jwtMw *middleware.JWTMiddleware,
	m *metrics.Metrics,
	config *config.Config,
) *Router {
	return &Router{
		authHandler:    auth,
		userHandler:    user,
		githubHandler:  github,
		featureHandler: feature,
		healthHandler:  health,

		validMw: validMw,
		jwtMw:   jwtMw,
		metrics: m,
		Config:  config,
	}
}

func (r *Router) SetupRoutes() *gin.Engine {
	router := gin.New()

	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.RecoveryMiddleware())
	router.Use(middleware.CORS())
	if r.metrics != nil {
		router.Use(r.metrics.Instrument())
	}
	router.Use(middleware.ContextMiddleware("http", r.Config.App.Timeout))

	if r.metrics != nil {
		router.GET("/metrics", gin.WrapH(r.metrics.Handler()))
	}

	api := router.Group(constants.APIPrefix)
	{
		if r.healthHandler != nil {
			api.GET("/health", r.healthHandler.HealthCheck)
		}
		api.GET("/features", r.featureHandler.Features)

		r.authRoutes(api)

		if r.Config.OAuth2.Enabled && r.githubHandler != nil {
			r.githubRoutes(api)
		}
	}

	return router
}

func (r *Router) rateLimit() gin.HandlerFunc {
	return middleware.RateLimit(r.Config.RateLimit.Request, time.Duration(r.Config.RateLimit.Duration)*time.Second)
}
