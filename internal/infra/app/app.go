package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/alischiller/authz-service/internal/core/port"
	"github.com/alischiller/authz-service/internal/infra/config"
	"github.com/alischiller/authz-service/internal/infra/database"
	kafkainfra "github.com/alischiller/authz-service/internal/infra/kafka"
	"github.com/alischiller/authz-service/internal/infra/logger"
	redisinfra "github.com/alischiller/authz-service/internal/infra/redis"
	"github.com/alischiller/authz-service/internal/infra/security"
	postgresrepo "github.com/alischiller/authz-service/internal/repository/postgres"
	redisrepo "github.com/alischiller/authz-service/internal/repository/redis"
	"github.com/alischiller/authz-service/internal/usecase"
)

// Application wires storage, caching, messaging and the service layer
// behind a small operational HTTP surface.
type Application struct {
	cfg    *config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
	pool   *pgxpool.Pool
	redis  *redisinfra.Client

	cleanup *usecase.CleanupService

	Authorization *usecase.AuthorizationService
	Roles         *usecase.RoleService
	Permissions   *usecase.PermissionService
	Auth          *usecase.AuthService
	Users         *usecase.UserService
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
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

	hasher, err := security.NewArgon2Hasher(security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	})
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init argon2 hasher: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)

	cacheTTL := cfg.Cache.TTL
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Minute
	}
	cacheStore := redisrepo.NewCache(redisClient.Client(), cacheTTL)

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: "authz:rate-limit",
		TTL:       rateLimitWindow * 2,
	})

	var eventPublisher port.EventPublisher
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(kafkaProducer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka disabled, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	strength := security.NewPasswordValidator(
		security.MinLengthRule(8),
		security.RequireCharacterClassesRule(3),
		security.RequirePasswordStrengthRule(cfg.Password.MinStrengthScore),
	)
	totpProvider := security.NewTOTPProvider(cfg.TwoFactor.Issuer)
	clock := port.SystemClock()

	authorizationService := usecase.NewAuthorizationService(
		repos.Roles, repos.Permissions, repos.Grants, cacheStore, clock, log,
	).WithCacheTTL(cacheTTL)
	roleService := usecase.NewRoleService(repos.Roles, cacheStore, clock, log)
	permissionService := usecase.NewPermissionService(repos.Permissions, cacheStore, clock, log)
	authService := usecase.NewAuthService(
		repos.Users, repos.LoginAttempts, rateLimitStore,
		hasher, totpProvider, eventPublisher, clock, log,
	).WithThrottle(rateLimitWindow, cfg.RateLimit.LoginMaxAttempts)
	userService := usecase.NewUserService(
		repos.Users, hasher, strength, totpProvider, eventPublisher, clock, log,
	)
	cleanupService := usecase.NewCleanupService(repos.Grants, clock, log, cfg.Cleanup.Retention)

	engine := newEngine(cfg, log, pool, redisClient)

	return &Application{
		cfg:           cfg,
		engine:        engine,
		logger:        log,
		pool:          pool,
		redis:         redisClient,
		cleanup:       cleanupService,
		Authorization: authorizationService,
		Roles:         roleService,
		Permissions:   permissionService,
		Auth:          authService,
		Users:         userService,
	}, nil
}

func newEngine(cfg *config.AppConfig, log *zap.Logger, pool *pgxpool.Pool, redisClient *redisinfra.Client) *gin.Engine {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	engine.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := pool.Ping(ctx); err != nil {
			log.Warn("readiness: postgres unreachable", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "postgres unavailable"})
			return
		}
		if err := redisClient.HealthCheck(ctx); err != nil {
			log.Warn("readiness: redis unreachable", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "redis unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return engine
}

// Run starts the operational HTTP server and the cleanup worker, and
// blocks until the context is cancelled or the server fails.
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

	cleanupCtx, stopCleanup := context.WithCancel(ctx)
	defer stopCleanup()
	go a.cleanup.Run(cleanupCtx, a.cfg.Cleanup.Interval)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting authorization service",
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
