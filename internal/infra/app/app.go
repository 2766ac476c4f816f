package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/attack-monitor/iam-service/internal/core/port"
	"github.com/attack-monitor/iam-service/internal/infra/config"
	"github.com/attack-monitor/iam-service/internal/infra/database"
	kafkainfra "github.com/attack-monitor/iam-service/internal/infra/kafka"
	"github.com/attack-monitor/iam-service/internal/infra/logger"
	redisinfra "github.com/attack-monitor/iam-service/internal/infra/redis"
	"github.com/attack-monitor/iam-service/internal/infra/security"
	"github.com/attack-monitor/iam-service/internal/infra/telemetry"
	postgresrepo "github.com/attack-monitor/iam-service/internal/repository/postgres"
	redisrepo "github.com/attack-monitor/iam-service/internal/repository/redis"
	"github.com/attack-monitor/iam-service/internal/transport/http/middleware"
	"github.com/attack-monitor/iam-service/internal/transport/http/routes"
	"github.com/attack-monitor/iam-service/internal/usecase"
)

type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	provider, err := telemetry.Attach(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	if err := security.ConfigureArgon2(security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	}); err != nil {
		return nil, fmt.Errorf("configure argon2: %w", err)
	}

	tokenService, err := security.NewTokenService(cfg.JWT.Secret, cfg.App.Name, cfg.JWT.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("init token service: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)

	var eventPublisher port.EventPublisher
	var producer *kafkainfra.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	passwordValidator := security.DefaultPasswordValidator()
	if cfg.Password.EnforcePolicy {
		passwordValidator = security.StrictPasswordValidator(
			cfg.Password.MinLength,
			cfg.Password.MinClasses,
			cfg.Password.MinScore,
		)
	}

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: cfg.Redis.RateLimitPrefix,
		TTL:       rateLimitWindow * 2,
	})
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	authorizer := usecase.NewRoleAuthorizer(cfg.Authz.AdminRoleNames)
	authService := usecase.NewAuthService(repos.Users, tokenService, repos.Audit, log)
	registrationService := usecase.NewRegistrationService(repos.Users, repos.Roles, eventPublisher, repos.Audit, passwordValidator, log)
	userService := usecase.NewUserService(repos.Users, repos.Roles, eventPublisher, repos.Audit, passwordValidator, log)
	roleService := usecase.NewRoleService(repos.Roles, repos.Permissions)
	permissionService := usecase.NewPermissionService(repos.Permissions)

	seeder := usecase.NewSeeder(repos.Roles, log)
	if err := seeder.EnsureDefaults(ctx); err != nil {
		redisClient.Close()
		pool.Close()
		return nil, fmt.Errorf("seed default roles: %w", err)
	}

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{
		Namespace: cfg.Telemetry.Namespace,
	})
	if err != nil {
		redisClient.Close()
		pool.Close()
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Telemetry:   provider,
		Metrics:     metrics,
		Audit:       repos.Audit,
		Database:    pool,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			Auth:         authService,
			Registration: registrationService,
			Users:        userService,
			Roles:        roleService,
			Permissions:  permissionService,
			Authorizer:   authorizer,
		},
	})

	return &Application{
		cfg:      cfg,
		engine:   engine,
		logger:   log,
		pool:     pool,
		redis:    redisClient,
		producer: producer,
	}, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.producer != nil {
			_ = a.producer.Close()
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting IAM API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
