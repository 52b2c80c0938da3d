// Command orgdesk-server starts the orgdesk HTTP API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/and161185/orgdesk/internal/attachment"
	"github.com/and161185/orgdesk/internal/bootstrap"
	"github.com/and161185/orgdesk/internal/config"
	"github.com/and161185/orgdesk/internal/limiter"
	"github.com/and161185/orgdesk/internal/migrate"
	"github.com/and161185/orgdesk/internal/repository/postgres"
	httpserver "github.com/and161185/orgdesk/internal/server/http"
	"github.com/and161185/orgdesk/internal/service"
	"github.com/and161185/orgdesk/internal/storage/s3store"
	"github.com/and161185/orgdesk/internal/token"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, runs migrations and serves the API until SIGINT/SIGTERM.
func main() {
	cfg, err := config.Load(os.Args[1:])

	logger := newLogger(cfg.Development())
	defer func() { _ = logger.Sync() }()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.HTTPAddr),
	)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, cfg.DatabaseURL, logger.Named("migrate")); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	// DB pool
	db, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("postgres.New", zap.Error(err))
	}
	defer db.Close()

	// Repositories
	userRepo := postgres.NewUserRepo(db)
	orgRepo := postgres.NewOrganizationRepo(db)

	lim := limiter.NewPG(db.Pool, cfg.LoginWindow, cfg.LoginMaxFails, cfg.LoginBlockFor)

	tokens, err := token.NewService([]byte(cfg.SecretKey))
	if err != nil {
		logger.Fatal("token service", zap.Error(err))
	}

	store, err := s3store.New(ctx, s3store.Options{
		Region:    cfg.AWSRegion,
		AccessKey: cfg.AWSAccessKeyID,
		SecretKey: cfg.AWSSecretAccessKey,
		Bucket:    cfg.Bucket,
		Endpoint:  cfg.S3Endpoint,
	})
	if err != nil {
		logger.Fatal("object storage", zap.Error(err))
	}
	att := attachment.New(store, logger.Named("attachment"))

	// Services
	authSvc := service.NewAuthService(userRepo, tokens, lim)
	userSvc := service.NewUserService(userRepo, att)
	orgSvc := service.NewOrganizationService(orgRepo, att)

	if cfg.AdminEmail != "" {
		if err := bootstrap.EnsureAdmin(ctx, userRepo, cfg.AdminEmail, cfg.AdminPassword, logger); err != nil {
			logger.Fatal("admin bootstrap", zap.Error(err))
		}
	}

	if !cfg.Development() {
		gin.SetMode(gin.ReleaseMode)
	}
	h := httpserver.NewHandler(authSvc, userSvc, orgSvc, logger.Named("http"), cfg.MaxUploadBytes)
	router := httpserver.NewRouter(h, logger.Named("http"))

	if err := httpserver.Run(ctx, cfg.HTTPAddr, router, logger); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}

func newLogger(dev bool) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if dev {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
