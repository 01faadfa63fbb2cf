package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"boardkit-api/internal/auth"
	"boardkit-api/internal/config"
	"boardkit-api/internal/database"
	"boardkit-api/internal/http/handler"
	"boardkit-api/internal/http/httperr"
	"boardkit-api/internal/notify"
	"boardkit-api/internal/observability/logger"
	"boardkit-api/internal/ratelimit"
	"boardkit-api/internal/repo"
	"boardkit-api/internal/service"
	"boardkit-api/internal/telemetry"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

const keyIDV1 = "v1"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long:  `Start the BoardKit API HTTP server with all middlewares and observability`,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.OTELServiceName, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	httperr.ExposeErrorIDs(cfg.IsDev())

	log.Info(ctx, "starting boardkit api",
		zap.String("version", telemetry.Version),
		zap.String("service", cfg.OTELServiceName),
		zap.String("env", cfg.AppEnv),
	)

	log.Info(ctx, "running database migrations")
	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info(ctx, "migrations completed successfully")

	// Telemetry is opt-in; exporter failures never block startup.
	var tracerProvider *sdktrace.TracerProvider
	var meterProvider *sdkmetric.MeterProvider
	var metrics *telemetry.Metrics

	if cfg.TelemetryEnabled() {
		log.Info(ctx, "initializing telemetry", zap.String("endpoint", cfg.OTELExporterEndpoint))

		tp, err := telemetry.InitTracer(ctx, cfg.OTELServiceName, cfg.OTELExporterEndpoint, cfg.OTELSamplingRatio)
		if err != nil {
			log.Warn(ctx, "failed to initialize tracer, continuing without tracing", zap.Error(err))
		} else {
			tracerProvider = tp
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
					log.Error(shutdownCtx, "failed to shutdown tracer provider", zap.Error(err))
				}
			}()
		}

		mp, m, err := telemetry.InitMetrics(ctx, cfg.OTELServiceName, cfg.OTELExporterEndpoint)
		if err != nil {
			log.Warn(ctx, "failed to initialize metrics, continuing without metrics", zap.Error(err))
		} else {
			meterProvider = mp
			metrics = m
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := meterProvider.Shutdown(shutdownCtx); err != nil {
					log.Error(shutdownCtx, "failed to shutdown meter provider", zap.Error(err))
				}
			}()
		}

		log.Info(ctx, "telemetry initialized", zap.Bool("tracing", tracerProvider != nil), zap.Bool("metrics", metrics != nil))
	} else {
		log.Info(ctx, "telemetry disabled")
	}

	log.Info(ctx, "connecting to database")
	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Info(ctx, "database connected")

	log.Info(ctx, "connecting to redis")
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.Info(ctx, "redis connected")

	resolver, err := buildResolver(cfg)
	if err != nil {
		return err
	}
	log.Info(ctx, "JWT authentication initialized",
		zap.Strings("allowed_issuers", resolverIssuers(cfg)),
		zap.Int("clock_skew_seconds", cfg.JWTClockSkewSeconds),
	)

	s2sStore := auth.NewS2STokenStore()
	if cfg.S2STokenWeb != "" {
		s2sStore.RegisterToken(cfg.S2STokenWeb, "web")
		log.Info(ctx, "S2S token registered", zap.String("client", "web"))
	}

	// Repositories
	boardRepo := repo.NewBoardRepository(pool)
	memberRepo := repo.NewMemberRepository(pool)
	userRepo := repo.NewUserRepository(pool)
	invitationRepo := repo.NewInvitationRepository(pool)
	auditRepo := repo.NewAuditRepo(pool)
	idempotencyRepo := repo.NewIdempotencyRepo(pool)

	// Services
	var checkerOpts []service.CheckerOption
	if metrics != nil {
		checkerOpts = append(checkerOpts, service.WithDecisionCounter(metrics.AccessDecisions))
	}
	checker := service.NewChecker(boardRepo, memberRepo, log, checkerOpts...)

	var invitationOpts []service.InvitationOption
	if cfg.InvitationWebhookURL != "" {
		invitationOpts = append(invitationOpts, service.WithNotifier(notify.NewWebhookNotifier(cfg.InvitationWebhookURL)))
		log.Info(ctx, "invitation webhook enabled")
	}

	boardService := service.NewBoardService(checker, boardRepo, auditRepo, log)
	membershipService := service.NewMembershipService(checker, boardRepo, memberRepo, userRepo, auditRepo, log)
	invitationService := service.NewInvitationService(checker, invitationRepo, userRepo, auditRepo, log, invitationOpts...)

	// Rate limiter
	var rateLimitCounter metric.Int64Counter
	if metrics != nil {
		rateLimitCounter = metrics.RateLimitRejections
	}
	rateLimiter := ratelimit.NewRedisRateLimiter(redisClient, rateLimitCounter)

	r := buildRouter(RouterDeps{
		Cfg:         cfg,
		Log:         log,
		Resolver:    resolver,
		S2SStore:    s2sStore,
		Idempotency: idempotencyRepo,
		RateLimiter: rateLimiter,
		Metrics:     metrics,
		Readiness: map[string]ReadinessCheck{
			"database": pool.Ping,
			"redis": func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			},
		},
		BoardHandler:      handler.NewBoardHandler(boardService, checker),
		MemberHandler:     handler.NewMemberHandler(membershipService),
		InvitationHandler: handler.NewInvitationHandler(invitationService),
		DebugHandler:      handler.NewDebugHandler(cfg.IsDev(), pool, checker),
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting http server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info(ctx, "shutdown signal received, starting graceful shutdown")
	case err := <-serverErr:
		log.Error(ctx, "http server failed", zap.Error(err))
		return fmt.Errorf("http server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown error", zap.Error(err))
	}

	log.Info(shutdownCtx, "shutdown complete")
	return nil
}

// resolverIssuers is the allowed issuer list plus the SSO issuer when an
// RS256 key is configured.
func resolverIssuers(cfg *config.Config) []string {
	issuers := cfg.GetAllowedIssuers()
	if cfg.JWTPublicKeyRS256 != "" && !slices.Contains(issuers, config.IssuerSSO) {
		issuers = append(issuers, config.IssuerSSO)
	}
	return issuers
}

func buildResolver(cfg *config.Config) (*auth.KeyResolver, error) {
	secret, err := cfg.HS256Secret()
	if err != nil {
		return nil, err
	}

	keyStore := auth.NewKeyStore()
	hsIssuers := cfg.GetAllowedIssuers()
	if len(hsIssuers) == 0 {
		return nil, fmt.Errorf("JWT_ALLOWED_ISSUERS must contain at least one valid issuer")
	}
	for _, issuer := range hsIssuers {
		keyStore.LoadHS256Key(issuer, keyIDV1, secret)
	}

	resolver := auth.NewKeyResolver(resolverIssuers(cfg), []string{cfg.JWTAudience})
	for _, issuer := range hsIssuers {
		if issuer == config.IssuerSSO && cfg.JWTPublicKeyRS256 != "" {
			continue
		}
		resolver.RegisterValidator(issuer, auth.NewHS256Validator(keyStore, issuer, cfg.ClockSkew()))
	}

	if cfg.JWTPublicKeyRS256 != "" {
		if err := keyStore.LoadRS256Key(config.IssuerSSO, keyIDV1, cfg.JWTPublicKeyRS256); err != nil {
			return nil, fmt.Errorf("failed to load RS256 public key: %w", err)
		}
		resolver.RegisterValidator(config.IssuerSSO, auth.NewRS256Validator(keyStore, config.IssuerSSO, cfg.ClockSkew()))
	}

	return resolver, nil
}
