package api

import (
	"github.com/gdrocha-io/togglr-backend/internal/metrics"
	"github.com/gdrocha-io/togglr-backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type Handlers struct {
	Feature     *FeatureHandler
	Namespace   *NamespaceHandler
	Environment *EnvironmentHandler
	Audit       *AuditHandler
	Metrics     *MetricsHandler
	Auth        *AuthHandler
	Health      *HealthHandler
}

type RouterOptions struct {
	Tokens            middleware.TokenParser
	Redis             redis.Scripter
	RequestsPerSecond int
	AllowedOrigins    []string
	DevMode           bool
}

func RegisterRoutes(h Handlers, opts RouterOptions) *gin.Engine {
	r := gin.New()

	// Global Middleware
	r.Use(
		middleware.CorsMiddleware(opts.AllowedOrigins),
		middleware.TraceMiddleware(),
		middleware.GinZapLogger(),
		middleware.GinZapRecovery(),
		middleware.HttpMiddleware(),
	)
	r.SetTrustedProxies(nil)

	// Public Routes
	r.GET("/health", h.Health.HealthCheck)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTMiddleware(opts.Tokens, opts.DevMode))

	auth := v1.Group("/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/client-login", h.Auth.ClientLogin)
		auth.POST("/refresh", h.Auth.Refresh)
		auth.GET("/me", middleware.RequireAuth(), h.Auth.GetProfile)
		auth.POST("/logout", middleware.RequireAuth(), h.Auth.Logout)
	}

	// Rate Limiter for Write Operations, keyed after authentication
	write := []gin.HandlerFunc{
		middleware.RequireAuth(),
		middleware.RateLimitMiddleware(opts.Redis, opts.RequestsPerSecond),
	}
	withWrite := func(handler gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, write...), handler)
	}

	features := v1.Group("/features")
	{
		features.GET("", h.Feature.ListFeatures)
		features.GET("/enabled", h.Feature.GetEnabledFeatures)
		features.GET("/feature", h.Feature.GetFeature)
		features.POST("", withWrite(h.Feature.CreateFeature)...)
		features.PUT("/:id", withWrite(h.Feature.UpdateFeature)...)
		features.DELETE("/:id", withWrite(h.Feature.DeleteFeature)...)
	}

	namespaces := v1.Group("/namespaces")
	{
		namespaces.GET("", h.Namespace.ListNamespaces)
		namespaces.GET("/:id", h.Namespace.GetNamespace)
		namespaces.POST("", withWrite(h.Namespace.CreateNamespace)...)
		namespaces.PUT("/:id", withWrite(h.Namespace.UpdateNamespace)...)
		namespaces.DELETE("/:id", withWrite(h.Namespace.DeleteNamespace)...)
	}

	environments := v1.Group("/environments")
	{
		environments.GET("", h.Environment.ListEnvironments)
		environments.GET("/:id", h.Environment.GetEnvironment)
		environments.POST("", withWrite(h.Environment.CreateEnvironment)...)
		environments.PUT("/:id", withWrite(h.Environment.UpdateEnvironment)...)
		environments.DELETE("/:id", withWrite(h.Environment.DeleteEnvironment)...)
	}

	v1.GET("/metrics/dashboard", h.Metrics.Dashboard)

	audit := v1.Group("/audit")
	audit.Use(middleware.RequireAuth())
	{
		audit.GET("", h.Audit.ListAuditLogs)
		audit.GET("/feature/:featureId", h.Audit.GetFeatureAuditLogs)
		audit.GET("/entity", h.Audit.GetEntityAuditLogs)
	}
	return r
}
