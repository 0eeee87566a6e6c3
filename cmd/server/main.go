package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"bureau-engine/internal/auth"
	"bureau-engine/internal/config"
	"bureau-engine/internal/domain"
	apphttp "bureau-engine/internal/http"
	"bureau-engine/internal/notify"
	"bureau-engine/internal/queue"
	"bureau-engine/internal/ratelimit"
	"bureau-engine/internal/repository/sqlite"
	"bureau-engine/internal/service"
	"bureau-engine/internal/storage"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	configureLogger(logger, cfg)

	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		logger.Fatalf("auth jwt secret is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	accountRepo := sqlite.NewAccountRepository(db)
	contactRepo := sqlite.NewContactRepository(db)
	projectRepo := sqlite.NewProjectRepository(db)

	if err := accountRepo.Init(ctx); err != nil {
		logger.Fatalf("init account repository: %v", err)
	}
	if err := contactRepo.Init(ctx); err != nil {
		logger.Fatalf("init contact repository: %v", err)
	}
	if err := projectRepo.Init(ctx); err != nil {
		logger.Fatalf("init project repository: %v", err)
	}

	storageSvc, err := buildStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup storage: %v", err)
	}

	mailNotifier := notify.NewMailNotifier(buildMailer(cfg, logger), cfg.Mail.AdminEmail)

	var (
		publisher    *queue.Publisher
		notifier     *notify.Async
		consumerDone = make(chan struct{})
	)
	if cfg.AMQP.URL != "" {
		publisher = queue.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Queue, logger)
		notifier = notify.NewAsync(publisher, logger, 10*time.Second)

		consumer := queue.NewConsumer(cfg.AMQP.URL, cfg.AMQP.Queue, mailNotifier, logger)
		go func() {
			defer close(consumerDone)
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorf("notification consumer: %v", err)
			}
		}()
		logger.Infof("notifications routed through queue %s", cfg.AMQP.Queue)
	} else {
		close(consumerDone)
		notifier = notify.NewAsync(mailNotifier, logger, cfg.Mail.Timeout)
	}

	guard := service.NewAccountGuard(
		accountRepo,
		auth.NewBcryptHasher(cfg.Auth.BcryptCost),
		auth.NewJWTIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		service.GuardConfig{
			TokenTTL: cfg.Auth.TokenTTL,
			Lock: domain.LockPolicy{
				MaxAttempts: cfg.Lockout.MaxAttempts,
				Duration:    cfg.Lockout.Duration,
			},
			Logger: logger,
		},
	)
	contactService := service.NewContactService(contactRepo, notifier, service.ContactConfig{
		DuplicateWindow: cfg.Contact.DuplicateWindow,
		Logger:          logger,
	})
	projectService := service.NewProjectService(projectRepo, storageSvc, notifier, logger)

	limiter, closeLimiter := buildLimiter(ctx, cfg, logger)
	defer closeLimiter()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(guard, contactService, projectService, apphttp.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		TrustedProxies: cfg.Server.TrustedProxies,
		RegisterSecret: cfg.Auth.RegisterSecret,
		Version:        cfg.Server.Version,
		Environment:    cfg.Server.Environment,
		Production:     cfg.IsProduction(),
		Limiter:        limiter,
		GlobalRule: ratelimit.Rule{
			Name:   "global",
			Limit:  cfg.RateLimit.GlobalLimit,
			Window: cfg.RateLimit.Window,
		},
		ContactRule: ratelimit.Rule{
			Name:   "contact",
			Limit:  cfg.RateLimit.ContactLimit,
			Window: cfg.RateLimit.ContactWindow,
		},
		Logger: logger,
	})
	if err := handler.RegisterRoutes(router); err != nil {
		logger.Fatalf("register routes: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("listening on %s (%s)", cfg.Server.Addr, cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	notifier.Wait()
	if publisher != nil {
		publisher.Close()
	}
	<-consumerDone

	logger.Info("bye")
}

func configureLogger(logger *logrus.Logger, cfg config.Config) {
	if strings.EqualFold(cfg.Log.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.Warnf("unknown log level %q, using info", cfg.Log.Level)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
}

func buildMailer(cfg config.Config, logger *logrus.Logger) notify.Mailer {
	if cfg.Mail.Host == "" {
		logger.Warn("mail host not configured, notifications will only be logged")
		return &notify.LogMailer{Logger: logger}
	}
	return notify.NewSMTPMailer(notify.SMTPConfig{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
		Timeout:  cfg.Mail.Timeout,
	})
}

// buildLimiter prefers a shared redis limiter and falls back to process memory.
func buildLimiter(ctx context.Context, cfg config.Config, logger *logrus.Logger) (ratelimit.Limiter, func()) {
	if cfg.Redis.Addr == "" {
		return ratelimit.NewMemoryLimiter(), func() {}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warnf("redis unavailable (%v), using in-memory rate limiting", err)
		_ = rdb.Close()
		return ratelimit.NewMemoryLimiter(), func() {}
	}

	logger.Infof("using redis rate limiting at %s", cfg.Redis.Addr)
	return ratelimit.NewRedisLimiter(rdb, cfg.RateLimit.Prefix), func() { _ = rdb.Close() }
}

// buildStorage returns nil when no bucket is configured; image uploads are
// then rejected.
func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	if cfg.Storage.Bucket == "" {
		logger.Warn("storage bucket not configured, image uploads disabled")
		return nil, nil
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("using s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewS3Service(client, storage.S3Config{
		Bucket:        cfg.Storage.Bucket,
		KeyPrefix:     cfg.Storage.KeyPrefix,
		PublicBaseURL: cfg.Storage.PublicBaseURL,
		PresignTTL:    cfg.Storage.PresignTTL,
	}), nil
}
