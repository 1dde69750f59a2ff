package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	configs "github.com/bookhub/backend/config"
	"github.com/bookhub/backend/internal/constants"
	"github.com/bookhub/backend/internal/handler"
	"github.com/bookhub/backend/internal/middleware"
	"github.com/bookhub/backend/internal/repository"
	"github.com/bookhub/backend/internal/router"
	"github.com/bookhub/backend/internal/service"
	"github.com/bookhub/backend/pkg/circuit"
	"github.com/bookhub/backend/pkg/database"
	"github.com/bookhub/backend/pkg/health"
	"github.com/bookhub/backend/pkg/logger"
	"github.com/bookhub/backend/pkg/metrics"
	"github.com/bookhub/backend/pkg/pool"
	"github.com/bookhub/backend/pkg/provider"
	"github.com/bookhub/backend/pkg/redis"
	"github.com/bookhub/backend/pkg/scheduler"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	config, err := configs.LoadConfig()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	if err := logger.InitLogger(config); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	logger.GetLogger().Info("Application starting",
		zap.String("app_name", config.App.Name),
		zap.String("environment", config.App.Environment),
		zap.String("version", constants.AppVersion),
		zap.Bool("oauth2_enabled", config.OAuth2.Enabled),
	)

	if config.App.Environment == constants.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgresDB(config)
	if err != nil {
		logger.GetLogger().Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.CloseDB(db)

	if err := database.AutoMigrate(db); err != nil {
		logger.GetLogger().Fatal("Failed to run database migrations", zap.Error(err))
	}
	logger.GetLogger().Info("Database migrated successfully")

	// Redis is optional. Without it the scheduler only guards against
	// overlap inside this process.
	var redisClient *redis.Client
	if config.Redis.Enabled {
		redisClient, err = redis.NewClient(config)
		if err != nil {
			logger.GetLogger().Warn("Redis unavailable, continuing without distributed locks", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	m := metrics.New()

	// Repositories
	userRepo := repository.NewUserRepository(db)
	refreshRepo := repository.NewRefreshTokenRepository(db)
	borrowRepo := repository.NewBorrowRepository(db)

	// Services
	codec, err := service.NewTokenCodec(config.JWT)
	if err != nil {
		logger.GetLogger().Fatal("Failed to build token codec", zap.Error(err))
	}
	verifier := service.NewCredentialVerifier(userRepo, 0)
	authService := service.NewAuthService(userRepo, verifier, refreshRepo, codec, config.JWT.RefreshDuration,
		service.WithAuthRecorder(m))
	featureService := service.NewFeatureService(config)
	borrowStatusService := service.NewBorrowStatusService(borrowRepo)

	// Outbound
	poolConfig := pool.DefaultPoolConfig()
	if config.OAuth2.Timeout > 0 {
		poolConfig.RequestTimeout = config.OAuth2.Timeout
	}
	connPool := pool.NewConnectionPool(poolConfig, logger.GetLogger())
	defer func() {
		logger.GetLogger().Info("Closing outbound connections", zap.Any("pool", connPool.Stats()))
		connPool.CloseAllConnections()
	}()

	// Health
	monitor := health.NewMonitor(5*time.Second, logger.GetLogger())
	monitor.RegisterPing("database", database.Ping(db), true)
	if redisClient != nil {
		monitor.RegisterPing("redis", redisClient.Ping, false)
	} else {
		monitor.RegisterPing("redis", nil, false)
	}

	var githubHandler *handler.GitHubHandler
	if config.OAuth2.Enabled {
		breakerConfig := circuit.DefaultConfig()
		breakerConfig.IsFailure = provider.IsUnavailable
		breakerConfig.OnStateChange = func(name string, _, to circuit.State) {
			m.SetBreakerState(name, int(to))
		}
		breaker := circuit.NewBreaker("github", breakerConfig, logger.GetLogger())
		monitor.Register("github", breaker, false)
		github := provider.NewGitHub(config.OAuth2, breaker, provider.WithHTTPClient(connPool.GetHTTPClient("github")))
		githubHandler = handler.NewGitHubHandler(github, authService)
	}

	// Scheduled jobs
	var jobs *scheduler.Scheduler
	if config.Scheduler.Enabled {
		var locker scheduler.Locker
		if redisClient != nil {
			locker = redisClient
		}
		jobs = scheduler.New(locker, config.Scheduler.LockTTL)
		mustAddJob(jobs, m, "borrow-status", config.Scheduler.BorrowStatusCron, borrowStatusService.UpdateExpiredBorrows)
		mustAddJob(jobs, m, "token-purge", config.Scheduler.TokenPurgeCron, authService.PurgeExpiredTokens)
		jobs.Start()
	}

	r := router.NewRouter(
		handler.NewAuthHandler(authService),
		handler.NewUserHandler(authService),
		githubHandler,
		handler.NewFeatureHandler(featureService),
		handler.NewHealthHandler(monitor),

		middleware.NewValidationMiddleware(),
		middleware.NewJWTMiddleware(codec),
		m,
		config,
	).SetupRoutes()

	srv := &http.Server{
		Addr:              ":" + config.App.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.GetLogger().Info("Server starting",
			zap.String("port", config.App.Port),
			zap.String("host", "0.0.0.0"),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.GetLogger().Fatal("Failed to start server",
				zap.Error(err),
				zap.String("port", config.App.Port),
			)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.GetLogger().Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.GetLogger().Error("Server forced to shutdown", zap.Error(err))
	}
	if jobs != nil {
		jobs.Stop(ctx)
	}
	logger.GetLogger().Info("Server exited")
}

func mustAddJob(s *scheduler.Scheduler, m *metrics.Metrics, name, spec string, fn scheduler.JobFunc) {
	err := s.Add(name, spec, func(ctx context.Context) error {
		err := fn(ctx)
		m.RecordJob(name, err == nil)
		return err
	})
	if err != nil {
		logger.GetLogger().Fatal("Failed to register scheduled job",
			zap.String("job", name),
			zap.Error(err),
		)
	}
	logger.GetLogger().Info("Scheduled job registered",
		zap.String("job", name),
		zap.String("spec", spec),
	)
}
