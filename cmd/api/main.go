package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/translate"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/careconnect-ai/platform/cmd/mainconfig"
	"github.com/careconnect-ai/platform/internal/api/router"
	"github.com/careconnect-ai/platform/internal/app/bootstrap"
	"github.com/careconnect-ai/platform/internal/appointments"
	"github.com/careconnect-ai/platform/internal/assist"
	"github.com/careconnect-ai/platform/internal/auth"
	"github.com/careconnect-ai/platform/internal/careteam"
	"github.com/careconnect-ai/platform/internal/careteam/twilioclient"
	"github.com/careconnect-ai/platform/internal/careteam/zoomclient"
	appconfig "github.com/careconnect-ai/platform/internal/config"
	"github.com/careconnect-ai/platform/internal/notify"
	"github.com/careconnect-ai/platform/internal/observability/metrics"
	"github.com/careconnect-ai/platform/internal/reports"
	"github.com/careconnect-ai/platform/internal/vitals"
	"github.com/careconnect-ai/platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting careconnect API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	// Shared infrastructure
	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	apptMetrics := metrics.NewAppointmentMetrics(prometheus.DefaultRegisterer)
	assistMetrics := metrics.NewAssistMetrics(prometheus.DefaultRegisterer)

	// Auth
	authSvc := auth.NewService(cfg.AuthJWTSecret, cfg.AuthTokenTTL)
	if cfg.AuthJWTSecret == "" {
		logger.Warn("AUTH_JWT_SECRET not set; session issuance disabled")
	}

	// Care team notifications
	sesClient := sesv2.NewFromConfig(awsCfg)
	emailSender := bootstrap.BuildEmailSender(cfg, sesClient, logger)
	notifier := notify.NewService(emailSender, bootstrap.SplitList(cfg.CareTeamEmails), logger)

	// Appointments
	store := bootstrap.BuildAppointmentStore(pool, redisClient, cfg, logger)
	apptHandler := appointments.NewHandler(appointments.HandlerConfig{
		Store:                  store,
		Identity:               auth.ContextResolver{},
		Notifier:               notifier,
		AppID:                  cfg.AppID,
		Logger:                 logger,
		Metrics:                apptMetrics,
		DismissAfter:           cfg.MessageDismissAfter,
		RescheduleDismissAfter: cfg.RescheduleDismissAfter,
	})

	// Care team messaging and video consultations
	var sms careteam.SMSSender
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
		sms = twilioclient.New(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, logger)
	} else {
		logger.Warn("Twilio not configured; care team SMS disabled")
	}
	var meetings careteam.MeetingCreator
	if cfg.ZoomClientID != "" && cfg.ZoomClientSecret != "" && cfg.ZoomAccountID != "" {
		zoom := zoomclient.New(cfg.ZoomClientID, cfg.ZoomClientSecret, cfg.ZoomAccountID, logger)
		if cfg.ZoomBaseURL != "" {
			zoom.SetEndpoints(cfg.ZoomBaseURL+"/oauth/token", cfg.ZoomBaseURL+"/v2")
		}
		meetings = zoom
	} else {
		logger.Warn("Zoom not configured; video consultations disabled")
	}
	careTeamHandler := careteam.NewHandler(sms, meetings, cfg.CareTeamNumber, logger)

	// Reports
	var archiver *reports.Archiver
	if cfg.ReportsArchiveBucket != "" {
		archiver = reports.NewArchiver(s3.NewFromConfig(awsCfg), cfg.ReportsArchiveBucket, logger)
	}
	var simplifier reports.TextSimplifier
	bedrockClient := bedrockruntime.NewFromConfig(awsCfg)
	if cfg.BedrockModelID != "" {
		simplifier = reports.NewSimplifier(bedrockClient, cfg.BedrockModelID)
	}
	translator := reports.NewTranslator(translate.NewFromConfig(awsCfg))
	reportsHandler := reports.NewHandler(bootstrap.BuildReportRepository(pool, logger), archiver, simplifier, translator, logger)

	// Assistant chat
	var queue assist.Queue
	if cfg.UseMemoryQueue || cfg.ChatQueueURL == "" {
		queue = assist.NewMemoryQueue(64)
	} else {
		queue = assist.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.ChatQueueURL)
	}
	transcript := assist.NewTranscriptStore(redisClient)
	var knowledge assist.KnowledgeQuerier
	if cfg.BedrockKBID != "" && cfg.BedrockKBModelARN != "" {
		knowledge = assist.NewKnowledgeBase(bedrockagentruntime.NewFromConfig(awsCfg), cfg.BedrockKBID, cfg.BedrockKBModelARN)
	} else {
		logger.Warn("Bedrock knowledge base not configured; health record queries disabled")
	}
	assistHandler := assist.NewHandler(assist.NewPublisher(queue), transcript, knowledge, logger)

	worker := assist.NewWorker(assist.WorkerConfig{
		Queue:      queue,
		Assistant:  assist.NewAssistant(bedrockClient, cfg.BedrockModelID, logger),
		Knowledge:  knowledge,
		Transcript: transcript,
		Notifier:   assistHandler,
		Logger:     logger,
		Metrics:    assistMetrics,
		Count:      cfg.WorkerCount,
	})
	go worker.Run(ctx)

	// Setup router
	routerCfg := &router.Config{
		Logger:              logger,
		AppID:               cfg.AppID,
		AuthService:         authSvc,
		AuthHandler:         auth.NewHandler(authSvc, logger),
		AppointmentsHandler: apptHandler,
		CareTeamHandler:     careTeamHandler,
		VitalsHandler:       vitals.NewHandler(vitals.NewSimulatedSource(0)),
		ReportsHandler:      reportsHandler,
		AssistHandler:       assistHandler,
		MetricsHandler:      promhttp.Handler(),
		CORSAllowedOrigins:  bootstrap.SplitList(cfg.CORSAllowedOrigins),
	}
	r := router.New(routerCfg)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()
	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	apptHandler.Close()

	logger.Info("server stopped")
}
