package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/ndk123-web/backend-structure/internal/core/port"
	"github.com/ndk123-web/backend-structure/internal/infra/config"
	"github.com/ndk123-web/backend-structure/internal/infra/database"
	kafkainfra "github.com/ndk123-web/backend-structure/internal/infra/kafka"
	"github.com/ndk123-web/backend-structure/internal/infra/logger"
	redisinfra "github.com/ndk123-web/backend-structure/internal/infra/redis"
	"github.com/ndk123-web/backend-structure/internal/infra/security"
	"github.com/ndk123-web/backend-structure/internal/infra/telemetry"
	"github.com/ndk123-web/backend-structure/internal/repository"
	"github.com/ndk123-web/backend-structure/internal/repository/memory"
	postgresrepo "github.com/ndk123-web/backend-structure/internal/repository/postgres"
	redisrepo "github.com/ndk123-web/backend-structure/internal/repository/redis"
	transportgrpc "github.com/ndk123-web/backend-structure/internal/transport/grpc"
	grpcinterceptors "github.com/ndk123-web/backend-structure/internal/transport/grpc/interceptors"
	"github.com/ndk123-web/backend-structure/internal/transport/http/middleware"
	"github.com/ndk123-web/backend-structure/internal/transport/http/routes"
	"github.com/ndk123-web/backend-structure/internal/usecase"
)

type Application struct {
	cfg        *config.AppConfig
	engine     *gin.Engine
	logger     *zap.Logger
	tracer     *telemetry.TracerProvider
	pool       *pgxpool.Pool
	redis      *redisinfra.Client
	producer   *kafkainfra.Producer
	grpcServer *transportgrpc.Server
	grpcAddr   string
}

// New builds every dependency of the service. Anything opened before a
// failure is released before returning.
func New(ctx context.Context, cfg *config.AppConfig) (_ *Application, err error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &Application{cfg: cfg, logger: log}
	defer func() {
		if err != nil {
			a.release(context.Background())
		}
	}()

	a.tracer, err = telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	store, err := a.credentialStore(ctx)
	if err != nil {
		return nil, err
	}

	var rateLimiter *middleware.RateLimiter
	if cfg.Redis.Enabled {
		a.redis, err = redisinfra.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			return nil, fmt.Errorf("init redis: %w", err)
		}

		rateLimitWindow := cfg.RateLimit.WindowDuration
		if rateLimitWindow <= 0 {
			rateLimitWindow = time.Minute
		}
		rateLimitStore := redisrepo.NewRateLimitRepository(a.redis.Client(), redisrepo.SlidingWindowConfig{
			KeyPrefix: cfg.Redis.KeyPrefix + ":rate-limit",
			TTL:       rateLimitWindow * 2,
		})
		rateLimiter = middleware.NewRateLimiter(rateLimitStore, log)
	} else if cfg.RateLimit.Enabled {
		log.Warn("rate limiting enabled but redis is disabled, limiter not installed")
	}

	var eventPublisher port.EventPublisher
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) > 0 {
		a.producer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
			err = nil
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(a.producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka disabled, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	authMetrics, err := telemetry.NewAuthMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("init auth metrics: %w", err)
	}
	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{Registerer: registry})
	if err != nil {
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	hasher, err := security.NewPasswordHasher(security.HasherSettings{
		Algorithm:  cfg.Password.Algorithm,
		BcryptCost: cfg.Password.BcryptCost,
		Argon2: security.Argon2Config{
			Memory:      cfg.Password.Argon2.Memory,
			Iterations:  cfg.Password.Argon2.Iterations,
			Parallelism: cfg.Password.Argon2.Parallelism,
			SaltLength:  cfg.Password.Argon2.SaltLength,
			KeyLength:   cfg.Password.Argon2.KeyLength,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("init password hasher: %w", err)
	}

	signer, err := security.NewJWTSigner(security.SignerSettings{
		AccessSecret:  cfg.JWT.AccessTokenSecret,
		RefreshSecret: cfg.JWT.RefreshTokenSecret,
		AccessTTL:     cfg.JWT.AccessTokenTTL,
		RefreshTTL:    cfg.JWT.RefreshTokenTTL,
		Issuer:        cfg.JWT.Issuer,
	})
	if err != nil {
		return nil, fmt.Errorf("init token signer: %w", err)
	}

	passwordPolicy := security.NewPasswordPolicy(security.PolicySettings{
		MinLength:        cfg.Password.MinLength,
		MinStrengthScore: cfg.Password.MinStrengthScore,
	})

	sessionService := usecase.NewSessionService(
		usecase.SessionConfig{RotationThreshold: cfg.JWT.RotationThreshold},
		store, hasher, signer, passwordPolicy, eventPublisher, authMetrics, log,
	)
	registrationService := usecase.NewRegistrationService(store, hasher, passwordPolicy, eventPublisher, authMetrics, log)
	authenticator := usecase.NewAuthenticator(sessionService, signer, authMetrics, log)

	deps := routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Metrics:     httpMetrics,
		Gatherer:    registry,
		Services: routes.ServiceSet{
			Registration:  registrationService,
			Sessions:      sessionService,
			Authenticator: authenticator,
		},
	}
	if a.pool != nil {
		deps.Database = a.pool
	}
	if a.redis != nil {
		deps.Cache = a.redis
	}
	a.engine = routes.Register(deps)

	if cfg.GRPC.Enabled {
		grpcMetrics, err := grpcinterceptors.NewGRPCMetrics(grpcinterceptors.GRPCMetricsOptions{Registerer: registry})
		if err != nil {
			return nil, fmt.Errorf("init grpc metrics: %w", err)
		}
		a.grpcServer, err = transportgrpc.NewServer(transportgrpc.ServerDependencies{
			Authenticator:  authenticator,
			Logger:         log,
			Metrics:        grpcMetrics,
			TracingEnabled: cfg.Telemetry.TracingEnabled,
		})
		if err != nil {
			return nil, fmt.Errorf("init grpc server: %w", err)
		}
		a.grpcAddr = net.JoinHostPort(cfg.GRPC.Host, fmt.Sprint(cfg.GRPC.Port))
	}

	return a, nil
}

func (a *Application) credentialStore(ctx context.Context) (port.CredentialStore, error) {
	if a.cfg.Storage.Driver == "memory" {
		a.logger.Warn("using in-memory credential store, data is lost on restart")
		return repository.WithTimeout(memory.NewCredentialStore(), a.cfg.Storage.Timeout), nil
	}

	pool, err := database.NewPostgresPool(ctx, a.cfg.Postgres, a.logger)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	a.pool = pool

	if a.cfg.Postgres.AutoMigrate {
		if err := database.Migrate(ctx, pool, a.logger); err != nil {
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
	}

	return repository.WithTimeout(postgresrepo.NewCredentialRepository(pool), a.cfg.Storage.Timeout), nil
}

// Run serves HTTP and, when enabled, gRPC until ctx is cancelled or a server
// fails, then drains both and releases backing connections.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()

	srv := &http.Server{
		Addr:              net.JoinHostPort(a.cfg.App.Host, fmt.Sprint(a.cfg.App.Port)),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       a.cfg.HTTP.ReadTimeout,
		WriteTimeout:      a.cfg.HTTP.WriteTimeout,
		IdleTimeout:       a.cfg.HTTP.IdleTimeout,
	}

	var grpcListener net.Listener
	if a.grpcServer != nil {
		lis, err := net.Listen("tcp", a.grpcAddr)
		if err != nil {
			a.release(context.Background())
			return fmt.Errorf("listen grpc: %w", err)
		}
		grpcListener = lis
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("starting videotube identity API",
			zap.String("env", a.cfg.App.Env),
			zap.String("address", srv.Addr),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("run http server: %w", err)
		}
		return nil
	})

	if grpcListener != nil {
		g.Go(func() error {
			a.logger.Info("starting gRPC server", zap.String("address", a.grpcAddr))
			if err := a.grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("run grpc server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down servers")

		shutdownTimeout := a.cfg.HTTP.ShutdownTimeout
		if shutdownTimeout <= 0 {
			shutdownTimeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if a.grpcServer != nil {
			a.grpcServer.Health.Shutdown()
			a.grpcServer.GracefulStop()
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	})

	err := g.Wait()
	a.release(context.Background())
	return err
}

func (a *Application) release(ctx context.Context) {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("close kafka producer", zap.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis", zap.Error(err))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			a.logger.Warn("shutdown tracer provider", zap.Error(err))
		}
	}
}
