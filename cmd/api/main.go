package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/dafibh/kitty/kitty-backend/docs"
	"github.com/dafibh/kitty/kitty-backend/internal/config"
	"github.com/dafibh/kitty/kitty-backend/internal/handler"
	"github.com/dafibh/kitty/kitty-backend/internal/middleware"
	"github.com/dafibh/kitty/kitty-backend/internal/migrations"
	"github.com/dafibh/kitty/kitty-backend/internal/repository/postgres"
	"github.com/dafibh/kitty/kitty-backend/internal/repository/storage"
	"github.com/dafibh/kitty/kitty-backend/internal/service"
	"github.com/dafibh/kitty/kitty-backend/internal/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// @title Kitty API
// @version 1.0
// @description Contribution and loan accounting for rotating savings groups.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Initialize zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if cfg.RunMigrations {
		if err := migrations.Run(cfg.DatabaseURL); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}
	}

	// Connect to database
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	if err := pool.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Connected to database")

	// Initialize repositories
	tx := postgres.NewTransactor(pool)
	groupRepo := postgres.NewGroupRepository(pool)
	memberRepo := postgres.NewMemberRepository(pool)
	periodRepo := postgres.NewPeriodRepository(pool)
	paymentRepo := postgres.NewPaymentRepository(pool)
	paymentEventRepo := postgres.NewPaymentEventRepository(pool)
	loanRepo := postgres.NewLoanRepository(pool)
	repaymentRepo := postgres.NewLoanRepaymentRepository(pool)
	notificationRepo := postgres.NewNotificationRepository(pool)

	hub := websocket.NewHub()

	// Notifications are delivered by the outbox worker after commit
	notificationService := service.NewNotificationService(notificationRepo)
	notificationService.SetEventPublisher(hub)
	outboxCtx, stopOutbox := context.WithCancel(context.Background())
	defer stopOutbox()
	outbox := service.NewNotificationOutbox(notificationService, log.Logger, cfg.NotificationBuffer)
	outbox.Start(outboxCtx)

	// Initialize services
	memberService := service.NewMemberService(memberRepo)
	periodService := service.NewPeriodService(tx, groupRepo, memberRepo, periodRepo, paymentRepo)
	periodService.SetEventPublisher(hub)
	paymentService := service.NewPaymentService(tx, memberRepo, periodRepo, paymentRepo, paymentEventRepo, outbox)
	paymentService.SetEventPublisher(hub)
	loanService := service.NewLoanService(tx, groupRepo, memberRepo, loanRepo, repaymentRepo, outbox)
	loanService.SetEventPublisher(hub)

	// Receipt storage is optional
	var receiptStorage storage.ReceiptStorage
	if cfg.S3.Enabled() {
		s3Storage, err := storage.NewS3ReceiptStorage(context.Background(), cfg.S3)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize receipt storage")
		}
		receiptStorage = s3Storage
		log.Info().Str("bucket", cfg.S3.Bucket).Msg("Receipt storage enabled")
	} else {
		log.Warn().Msg("S3_BUCKET not set, receipt uploads disabled")
	}
	receiptService := service.NewReceiptService(receiptStorage, paymentService)

	// Initialize auth
	authMiddleware, err := middleware.NewAuthMiddleware(cfg.Auth0Domain, cfg.Auth0Audience, memberService)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create auth middleware")
	}
	wsValidator, err := websocket.NewAuth0JWTValidator(cfg.Auth0Domain, cfg.Auth0Audience, memberService)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create WebSocket token validator")
	}
	rateLimiter := middleware.NewRateLimiterWithConfig(cfg.RateLimitPerMinute, cfg.RateLimitBurst)

	// Initialize handlers
	paymentHandler := handler.NewPaymentHandler(paymentService, periodService)
	handlers := handler.Handlers{
		Period:       handler.NewPeriodHandler(periodService),
		Payment:      paymentHandler,
		Receipt:      handler.NewReceiptHandler(receiptService, paymentHandler),
		Loan:         handler.NewLoanHandler(loanService),
		Notification: handler.NewNotificationHandler(notificationService),
		WebSocket:    handler.NewWebSocketHandler(hub, wsValidator, cfg.CORSOrigins),
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewRequestValidator()

	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		MaxAge:           86400,
	}))
	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		HSTSMaxAge:         31536000,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}))
	e.Use(middleware.RequestLogger())
	e.Use(echomiddleware.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	handler.RegisterRoutes(e, authMiddleware, rateLimiter, handlers)
	handler.RegisterDocs(e, []handler.Server{
		{URL: "/api/v1", Description: cfg.Env},
	})

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	outbox.Stop()
	rateLimiter.Stop()

	log.Info().Msg("Server exited")
}
