package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Gladiston-Porto/GladPros-sub002/internal/core/port"
	"github.com/Gladiston-Porto/GladPros-sub002/internal/infra/config"
	"github.com/Gladiston-Porto/GladPros-sub002/internal/infra/database"
	kafkainfra "github.com/Gladiston-Porto/GladPros-sub002/internal/infra/kafka"
	"github.com/Gladiston-Porto/GladPros-sub002/internal/infra/logger"
	"github.com/Gladiston-Porto/GladPros-sub002/internal/infra/mail"
	redisinfra "github.com/Gladiston-Porto/GladPros-sub002/internal/infra/redis"
	"github.com/Gladiston-Porto/GladPros-sub002/internal/infra/security"
	postgresrepo "github.com/Gladiston-Porto/GladPros-sub002/internal/repository/postgres"
	redisrepo "github.com/Gladiston-Porto/GladPros-sub002/internal/repository/redis"
	"github.com/Gladiston-Porto/GladPros-sub002/internal/transport/http/middleware"
	"github.com/Gladiston-Porto/GladPros-sub002/internal/transport/http/routes"
	"github.com/Gladiston-Porto/GladPros-sub002/internal/usecase"
)

// Application ties the wired subsystems together and owns their lifecycle.
type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *goredis.Client
	producer *kafkainfra.Producer
}

// New wires every layer from configuration.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pool, err := database.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(ctx, cfg.Redis)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	signer, err := security.NewBearerSigner(cfg.Auth.BearerSecret, cfg.App.Name, cfg.Auth.BearerTTL)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init bearer signer: %w", err)
	}

	accounts := postgresrepo.NewAccountRepository(pool)
	mfaCodes := postgresrepo.NewMFACodeRepository(pool)
	sessions := postgresrepo.NewSessionRepository(pool)
	attempts := postgresrepo.NewLoginAttemptRepository(pool)
	audits := postgresrepo.NewAuditRepository(pool)

	rateLimitStore := redisrepo.NewRateLimitStore(redisClient, redisrepo.SlidingWindowConfig{
		KeyPrefix: cfg.Redis.RateLimitPrefix,
		TTL:       maxWindow(cfg.RateLimit) * 2,
	})

	var producer *kafkainfra.Producer
	var eventPublisher port.EventPublisher
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, events disabled", zap.Error(err))
			eventPublisher = kafkainfra.StubPublisher{}
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		eventPublisher = kafkainfra.StubPublisher{}
	}

	mailer := mail.NewLogMailer(log, !cfg.App.IsProduction())

	auditService := usecase.NewAuditService(audits, log)
	mfaService := usecase.NewMFAService(cfg, mfaCodes, mailer, log)
	sessionService := usecase.NewSessionService(cfg, sessions, log)
	tokenService := usecase.NewTokenService(cfg, accounts, signer, log)
	lockoutService := usecase.NewLockoutService(cfg, accounts, attempts, rateLimitStore, auditService, eventPublisher, log)
	passwordService := usecase.NewPasswordService(cfg, accounts, tokenService, sessionService, auditService, eventPublisher, log)
	authService := usecase.NewAuthService(cfg, accounts, attempts, mfaService, sessionService, tokenService, lockoutService, passwordService, auditService, eventPublisher, rateLimitStore, log)
	reportService := usecase.NewReportService(attempts, sessions, auditService)

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	engine := routes.Register(routes.Dependencies{
		Config:  cfg,
		Logger:  log,
		Metrics: metrics,
		Services: routes.ServiceSet{
			Auth:     authService,
			Tokens:   tokenService,
			Sessions: sessionService,
			Lockout:  lockoutService,
			Password: passwordService,
			Reports:  reportService,
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

// Run serves HTTP until the context is cancelled, then shuts down gracefully.
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
			if err := a.producer.Close(); err != nil {
				a.logger.Warn("close kafka producer", zap.Error(err))
			}
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

	a.logger.Info("starting auth API",
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

func maxWindow(cfg config.RateLimitSettings) time.Duration {
	max := cfg.MFAWindow
	if cfg.LoginWindow > max {
		max = cfg.LoginWindow
	}
	if cfg.UnlockWindow > max {
		max = cfg.UnlockWindow
	}
	if max <= 0 {
		max = 15 * time.Minute
	}
	return max
}
