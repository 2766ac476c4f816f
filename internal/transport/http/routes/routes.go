package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/attack-monitor/iam-service/internal/core/port"
	"github.com/attack-monitor/iam-service/internal/infra/config"
	"github.com/attack-monitor/iam-service/internal/infra/redis"
	"github.com/attack-monitor/iam-service/internal/infra/telemetry"
	"github.com/attack-monitor/iam-service/internal/transport/http/handlers"
	"github.com/attack-monitor/iam-service/internal/transport/http/middleware"
	"github.com/attack-monitor/iam-service/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth         *usecase.AuthService
	Registration *usecase.RegistrationService
	Users        *usecase.UserService
	Roles        *usecase.RoleService
	Permissions  *usecase.PermissionService
	Authorizer   usecase.Authorizer
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Services    ServiceSet
	Telemetry   *telemetry.Provider
	Metrics     *middleware.HTTPMetrics
	Audit       port.AuditRepository
	Database    *pgxpool.Pool
	Cache       *redis.Client
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS(deps.Config.App.AllowedOrigins))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	healthHandler := handlers.NewHealthHandler(deps.Database, deps.Cache)
	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	tokenTTL := deps.Config.JWT.AccessTokenTTL
	authHandler := handlers.NewAuthHandler(deps.Services.Auth, deps.Telemetry, tokenTTL)
	registrationHandler := handlers.NewRegistrationHandler(deps.Services.Registration)
	userHandler := handlers.NewUserHandler(deps.Services.Users, deps.Services.Authorizer)
	adminHandler := handlers.NewAdminUserHandler(deps.Services.Users, deps.Audit)
	roleHandler := handlers.NewRoleHandler(deps.Services.Roles)
	permissionHandler := handlers.NewPermissionHandler(deps.Services.Permissions)

	requireAuth := middleware.RequireAuth(deps.Services.Auth)
	requireAdmin := middleware.RequireAdmin(deps.Services.Authorizer)

	users := r.Group("/users")
	{
		registerHandlers := appendRule(deps, "register_ip", deps.Config.RateLimit.RegisterMaxAttempts)
		users.POST("/register", append(registerHandlers, registrationHandler.Register)...)

		loginHandlers := appendRule(deps, "login_ip", deps.Config.RateLimit.LoginMaxAttempts)
		users.POST("/login", append(loginHandlers, authHandler.Login)...)

		users.POST("/refresh-token", authHandler.Refresh)
		users.GET("/verify-token", authHandler.VerifyToken)
		users.POST("/debug-token", authHandler.DebugToken)

		users.GET("/me", requireAuth, userHandler.Me)
		users.GET("/:id", requireAuth, userHandler.Get)
		users.PUT("/:id", requireAuth, userHandler.Update)
		users.PUT("/:id/password", requireAuth, userHandler.ChangePassword)

		users.GET("", requireAuth, requireAdmin, adminHandler.List)
		users.POST("", requireAuth, requireAdmin, adminHandler.Create)
		users.DELETE("/:id", requireAuth, requireAdmin, adminHandler.Delete)
		users.PUT("/:id/roles", requireAuth, requireAdmin, adminHandler.ReplaceRoles)
		users.GET("/:id/audit", requireAuth, requireAdmin, adminHandler.ListAudit)
	}

	roles := r.Group("/roles")
	roles.Use(requireAuth, requireAdmin)
	{
		roles.GET("", roleHandler.List)
		roles.POST("", roleHandler.Create)
		roles.GET("/:id", roleHandler.Get)
		roles.PUT("/:id", roleHandler.Update)
		roles.DELETE("/:id", roleHandler.Delete)
		roles.GET("/:id/permissions", roleHandler.ListPermissions)
		roles.PUT("/:id/permissions", roleHandler.ReplacePermissions)
	}

	permissions := r.Group("/permissions")
	permissions.Use(requireAuth, requireAdmin)
	{
		permissions.GET("", permissionHandler.List)
		permissions.POST("", permissionHandler.Create)
		permissions.GET("/:id", permissionHandler.Get)
		permissions.PUT("/:id", permissionHandler.Update)
		permissions.DELETE("/:id", permissionHandler.Delete)
	}

	return r
}

// appendRule builds the optional rate limit middleware chain for one of the
// credential endpoints.
func appendRule(deps Dependencies, name string, limit int) []gin.HandlerFunc {
	if deps.RateLimiter == nil || limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	return []gin.HandlerFunc{deps.RateLimiter.Limit(middleware.RateLimitRule{
		Name:       name,
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	})}
}
