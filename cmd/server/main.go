// Package main runs the community platform HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/opencircle/backend/config"
	"github.com/opencircle/backend/internal/accounts"
	"github.com/opencircle/backend/internal/comments"
	"github.com/opencircle/backend/internal/events"
	"github.com/opencircle/backend/internal/memberships"
	"github.com/opencircle/backend/internal/middleware"
	"github.com/opencircle/backend/internal/moderation"
	"github.com/opencircle/backend/internal/notifications"
	"github.com/opencircle/backend/internal/posts"
	"github.com/opencircle/backend/internal/reports"
	"github.com/opencircle/backend/internal/resources"
	"github.com/opencircle/backend/internal/rsvps"
	"github.com/opencircle/backend/internal/sessions"
	"github.com/opencircle/backend/internal/shares"
	"github.com/opencircle/backend/internal/twofactor"
	"github.com/opencircle/backend/pkg/database"
	"github.com/opencircle/backend/pkg/queue"
	"github.com/opencircle/backend/pkg/redis"
	"github.com/opencircle/backend/pkg/response"
	"github.com/opencircle/backend/pkg/storage"
)

// contentTargets adapts the posts and events repositories to the existence
// checks comments and shares need.
type contentTargets struct {
	posts  *posts.Repository
	events *events.Repository
}

func (t contentTargets) PostExists(ctx context.Context, id int64) (bool, error) {
	return t.posts.Exists(ctx, id)
}

func (t contentTargets) EventExists(ctx context.Context, id int64) (bool, error) {
	return t.events.Exists(ctx, id)
}

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			ResourceBucket:  cfg.AWS.ResourceBucket,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		} else {
			logger.Info("s3 ready", zap.String("bucket", s3Client.ResourceBucket()))
		}
	}

	jobQueue := queue.NewQueue(rdb.Client, logger)
	dispatcher := notifications.NewDispatcher(jobQueue, logger)

	// Moderation gate: remote classifier when configured, lexicon otherwise.
	var scorer moderation.Scorer
	if cfg.Moderation.ClassifierURL != "" {
		scorer = moderation.NewRemoteScorer(cfg.Moderation.ClassifierURL)
	} else {
		scorer = moderation.NewLexiconScorer()
	}
	gate := moderation.NewGate(scorer, cfg.Moderation.ToxicityThreshold, cfg.Moderation.AutoCensor, logger)

	// Sessions
	tokenService := sessions.NewTokenService(cfg.Session.Secret, cfg.Session.DurationMinutes)
	sessionRepo := sessions.NewRepository(pool)
	sessionSvc := sessions.NewService(tokenService, sessionRepo, logger)
	sessionHandler := sessions.NewHandler(sessionSvc, sessionRepo, logger)

	// Resources
	resourceRepo := resources.NewRepository(pool)

	// Accounts. A nil Blobs disables inline signup images when S3 is not
	// configured; a typed-nil *storage.S3 would dodge that check.
	var blobs accounts.Blobs
	if s3Client != nil {
		blobs = s3Client
	}
	accountRepo := accounts.NewRepository(pool)
	accountSvc := accounts.NewService(accountRepo, sessionSvc, jobQueue, gate, blobs, resourceRepo, logger)
	accountHandler := accounts.NewHandler(accountSvc, cfg.Server.CookieSecure, logger)
	twoFactorHandler := twofactor.NewHandler(accountRepo, "OpenCircle", logger)

	// Notifications
	notifRepo := notifications.NewRepository(pool)
	notifHandler := notifications.NewHandler(notifRepo, accountRepo, logger)

	// Memberships
	membershipRepo := memberships.NewRepository(pool)
	membershipSvc := memberships.NewService(membershipRepo, accountRepo, dispatcher, logger)
	membershipHandler := memberships.NewHandler(membershipSvc, logger)

	// Events
	eventRepo := events.NewRepository(pool)
	eventSvc := events.NewService(eventRepo, accountRepo, gate, dispatcher, logger)
	eventHandler := events.NewHandler(eventSvc, logger)

	// RSVPs
	rsvpRepo := rsvps.NewRepository(pool)
	rsvpSvc := rsvps.NewService(rsvpRepo, accountRepo, eventRepo, dispatcher, logger)
	rsvpHandler := rsvps.NewHandler(rsvpSvc, logger)

	// Posts
	postRepo := posts.NewRepository(pool)
	postSvc := posts.NewService(postRepo, accountRepo, gate, dispatcher, logger)
	postHandler := posts.NewHandler(postSvc, logger)

	// Comments and shares
	targets := contentTargets{posts: postRepo, events: eventRepo}
	commentRepo := comments.NewRepository(pool)
	commentSvc := comments.NewService(commentRepo, accountRepo, targets, gate, logger)
	commentHandler := comments.NewHandler(commentSvc, logger)

	shareRepo := shares.NewRepository(pool)
	shareSvc := shares.NewService(shareRepo, targets, gate, logger)
	shareHandler := shares.NewHandler(shareSvc, logger)

	// Reports
	reportRepo := reports.NewRepository(pool)
	reportHandler := reports.NewHandler(reportRepo, accountRepo, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Public: signup and signin
	public := router.Group("")
	accountHandler.RegisterPublicRoutes(public)

	// Protected API (session cookie required)
	api := router.Group("")
	api.Use(middleware.SessionAuth(sessionSvc))
	{
		accountHandler.RegisterRoutes(api)
		sessionHandler.RegisterRoutes(api)
		twoFactorHandler.RegisterRoutes(api)
		notifHandler.RegisterRoutes(api)
		membershipHandler.RegisterRoutes(api)
		eventHandler.RegisterRoutes(api)
		rsvpHandler.RegisterRoutes(api)
		postHandler.RegisterRoutes(api)
		commentHandler.RegisterRoutes(api)
		shareHandler.RegisterRoutes(api)
		reportHandler.RegisterRoutes(api)

		if s3Client != nil {
			resourceHandler := resources.NewHandler(resourceRepo, s3Client, logger)
			resourceHandler.RegisterRoutes(api)
		} else {
			logger.Warn("resource endpoints disabled (no S3 configuration)")
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
