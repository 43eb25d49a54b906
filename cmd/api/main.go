// Package main is the entry point for the Festago API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/festago/festago/internal/analytics"
	"github.com/festago/festago/internal/audit"
	"github.com/festago/festago/internal/api"
	"github.com/festago/festago/internal/auth"
	"github.com/festago/festago/internal/chatbot"
	"github.com/festago/festago/internal/config"
	"github.com/festago/festago/internal/db"
	"github.com/festago/festago/internal/event"
	"github.com/festago/festago/internal/health"
	"github.com/festago/festago/internal/idempotency"
	"github.com/festago/festago/internal/messaging"
	"github.com/festago/festago/internal/middleware"
	"github.com/festago/festago/internal/partner"
	"github.com/festago/festago/internal/payment"
	"github.com/festago/festago/internal/social"
	"github.com/festago/festago/internal/tracing"
	"github.com/festago/festago/internal/upload"
	"github.com/festago/festago/internal/user"
)

const serviceName = "festago-api"

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	help := flag.Bool("help", false, "display help message")
	flag.Parse()

	if *help {
		fmt.Println("Festago API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if cfg == nil {
		for _, err := range errs {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	if len(errs) > 0 {
		for _, err := range errs {
			logger.Error("invalid configuration", "error", err)
		}
		os.Exit(1)
	}
	logger.Info("configuration loaded", "config", cfg.LogSummary())

	// Tracing is active only when an OTLP endpoint is configured.
	tracerProvider, err := tracing.NewProvider(tracing.Config{
		ServiceName:  serviceName,
		Enabled:      cfg.OTLPEndpoint != "",
		Environment:  cfg.Env,
		ExporterType: "otlp-http",
		OTLPEndpoint: cfg.OTLPEndpoint,
		SamplingRate: 0.1,
		InsecureMode: cfg.Env != "production",
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	conn, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Warn("failed to close database", "error", err)
		}
	}()

	// The event catalog lives in Postgres. Account, partner and workflow
	// state still uses the in-memory repositories.
	// TODO: implement Postgres repositories for the tables created by
	// migrations/000002_partner_workflow.up.sql.
	events := event.NewPostgresRepository(conn, logger)
	bookmarks := event.NewPostgresBookmarkRepository(conn)
	reviews := event.NewPostgresReviewRepository(conn)

	users := user.NewInMemoryRepository()
	partners := partner.NewInMemoryRepository()
	applications := partner.NewInMemoryApplicationRepository()
	drafts := partner.NewInMemoryDraftRepository()
	partnerBookmarks := partner.NewInMemoryFestivalBookmarkRepository()
	partnerImages := partner.NewInMemoryImageRepository()
	messages := messaging.NewInMemoryMessageRepository()
	notifications := messaging.NewInMemoryNotificationRepository()
	payments := payment.NewInMemoryPaymentRepository()
	webhooks := payment.NewInMemoryWebhookRepository()
	analyticsRecords := analytics.NewInMemoryRepository()
	auditTrail := audit.NewInMemoryRepository()

	jwtService := auth.NewJWTService(cfg.JWTSecret)
	workflow := partner.NewWorkflow(partners, applications)
	broadcaster := messaging.NewBroadcaster()
	notifier := messaging.NewNotifier(notifications, partners, events, broadcaster, logger)
	analyticsService := analytics.NewService(analyticsRecords, events, reviews, logger)

	var providers []*social.Provider
	if cfg.KakaoClientID != "" {
		providers = append(providers, social.NewKakaoProvider(social.ProviderCredentials{
			ClientID:     cfg.KakaoClientID,
			ClientSecret: cfg.KakaoClientSecret,
			RedirectURL:  cfg.OAuthCallbackBase + "/auth/social/kakao/callback",
		}))
	}
	if cfg.NaverClientID != "" {
		providers = append(providers, social.NewNaverProvider(social.ProviderCredentials{
			ClientID:     cfg.NaverClientID,
			ClientSecret: cfg.NaverClientSecret,
			RedirectURL:  cfg.OAuthCallbackBase + "/auth/social/naver/callback",
		}))
	}
	if cfg.GoogleClientID != "" {
		providers = append(providers, social.NewGoogleProvider(social.ProviderCredentials{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.OAuthCallbackBase + "/auth/social/google/callback",
		}))
	}
	socialService := social.NewService(users, social.NewStateStore(), logger, providers...)

	var paymentService *payment.Service
	if cfg.StripeAPIKey != "" {
		paymentService = payment.NewService(payments, payment.NewStripeClient(cfg.StripeAPIKey), cfg.FrontendURL)
	} else {
		logger.Warn("STRIPE_API_KEY not set, payment endpoints disabled")
	}

	var chatbotService *chatbot.Service
	if cfg.OpenAIAPIKey != "" {
		chatbotService = chatbot.NewService(events, chatbot.NewOpenAIClient(cfg.OpenAIAPIKey), logger)
	} else {
		logger.Warn("OPENAI_API_KEY not set, chatbot replies with 502")
	}

	var uploadService *upload.Service
	if cfg.S3BucketName != "" {
		uploadService, err = upload.NewService(upload.ServiceConfig{
			BucketName:      cfg.S3BucketName,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Endpoint:        cfg.S3Endpoint,
			MaxSizeMB:       cfg.S3MaxUploadSizeMB,
		})
		if err != nil {
			logger.Error("failed to initialize upload service", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("S3 not configured, upload endpoints disabled")
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
	}

	metrics := middleware.NewMetrics()
	registry := prometheus.NewRegistry()
	if err := metrics.Register(registry); err != nil {
		logger.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}

	// Rate limit state is shared across instances when Redis is available.
	var limitStore middleware.RateLimitStore
	if redisClient != nil {
		store := middleware.NewRedisRateLimitStore(redisClient)
		store.SetMetrics(metrics)
		limitStore = store
	} else {
		store := middleware.NewInMemoryRateLimitStore()
		go func() {
			ticker := time.NewTicker(5 * time.Minute)
			defer ticker.Stop()
			for range ticker.C {
				store.Cleanup()
			}
		}()
		limitStore = store
	}

	healthConfig := api.HealthHandlersConfig{
		DBChecker:      health.NewDBChecker(conn),
		MetricsEnabled: true,
	}
	if redisClient != nil {
		healthConfig.RedisChecker = health.NewRedisChecker(redisClient)
	}
	if cfg.OpenAIAPIKey != "" {
		healthConfig.OpenAIChecker = health.NewOpenAIChecker("", cfg.OpenAIAPIKey)
	}

	authHandlers := api.NewAuthHandlers(users, jwtService)
	socialHandlers := api.NewSocialHandlers(socialService, jwtService, cfg.FrontendURL)
	eventHandlers := api.NewEventHandlers(events, bookmarks, reviews)
	bookmarkHandlers := api.NewBookmarkHandlers(events, bookmarks)
	reviewHandlers := api.NewReviewHandlers(events, reviews)
	partnerHandlers := api.NewPartnerHandlers(users, partners, applications, events, notifications, messages, workflow, jwtService)
	partnerBookmarkHandlers := api.NewPartnerBookmarkHandlers(partners, partnerBookmarks, events)
	draftHandlers := api.NewDraftHandlers(partners, drafts)
	applicationHandlers := api.NewApplicationHandlers(api.ApplicationHandlersConfig{
		Partners:     partners,
		Applications: applications,
		Events:       events,
		Workflow:     workflow,
		Notifier:     notifier,
		Analytics:    analyticsService,
		Payments:     paymentService,
		Audits:       auditTrail,
		AdminAPIKey:  cfg.AdminAPIKey,
	})
	messageHandlers := api.NewMessageHandlers(messages, users, notifier, cfg.AdminAPIKey)
	notificationHandlers := api.NewNotificationHandlers(notifications)
	wsHandlers := api.NewNotificationWSHandlers(broadcaster)
	analyticsHandlers := api.NewAnalyticsHandlers(partners, events, analyticsService)
	chatbotHandlers := api.NewChatbotHandlers(chatbotService)
	healthHandlers := api.NewHealthHandlers(healthConfig)

	authRequired := middleware.Auth(jwtService)
	optionalAuth := middleware.OptionalAuth(jwtService)
	authLimit := middleware.RateLimiter(limitStore, middleware.DefaultAuthLimit(), middleware.IPKeyFunc())
	searchLimit := middleware.RateLimiter(limitStore, middleware.DefaultSearchLimit(), middleware.UserKeyFunc())

	protected := func(h http.HandlerFunc) http.Handler {
		return authRequired(h)
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandlers.Health)
	mux.HandleFunc("GET /ready", healthHandlers.Ready)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	mux.Handle("POST /auth/register", authLimit(http.HandlerFunc(authHandlers.Register)))
	mux.Handle("POST /auth/login", authLimit(http.HandlerFunc(authHandlers.Login)))
	mux.Handle("POST /auth/refresh", authLimit(http.HandlerFunc(authHandlers.Refresh)))
	mux.Handle("GET /auth/me", protected(authHandlers.Me))
	mux.Handle("PUT /auth/me", protected(authHandlers.UpdateMe))
	mux.HandleFunc("GET /auth/social", socialHandlers.Providers)
	mux.Handle("GET /auth/social/{provider}", authLimit(http.HandlerFunc(socialHandlers.Authorize)))
	mux.Handle("GET /auth/social/{provider}/callback", authLimit(http.HandlerFunc(socialHandlers.Callback)))

	mux.Handle("GET /events", searchLimit(http.HandlerFunc(eventHandlers.ListEvents)))
	mux.Handle("GET /events/map", searchLimit(http.HandlerFunc(eventHandlers.MapEvents)))
	mux.Handle("GET /events/{id}", optionalAuth(http.HandlerFunc(eventHandlers.GetEvent)))
	mux.HandleFunc("GET /events/{id}/reviews", reviewHandlers.ListReviews)

	mux.Handle("POST /events/{id}/bookmark", protected(bookmarkHandlers.CreateBookmark))
	mux.Handle("DELETE /events/{id}/bookmark", protected(bookmarkHandlers.DeleteBookmark))
	mux.Handle("GET /bookmarks", protected(bookmarkHandlers.ListBookmarks))
	mux.Handle("POST /events/{id}/reviews", protected(reviewHandlers.CreateReview))
	mux.Handle("PUT /reviews/{id}", protected(reviewHandlers.UpdateReview))
	mux.Handle("DELETE /reviews/{id}", protected(reviewHandlers.DeleteReview))

	mux.Handle("POST /partners/signup", protected(partnerHandlers.Signup))
	mux.Handle("GET /partners/me", protected(partnerHandlers.Me))
	mux.Handle("PUT /partners/me", protected(partnerHandlers.UpdateMe))
	mux.Handle("GET /partners/dashboard", protected(partnerHandlers.Dashboard))
	mux.Handle("GET /partners/stats", protected(partnerHandlers.Stats))
	mux.Handle("POST /partners/bookmarks", protected(partnerBookmarkHandlers.Toggle))
	mux.Handle("GET /partners/bookmarks", protected(partnerBookmarkHandlers.List))
	mux.Handle("DELETE /partners/bookmarks/{event_id}", protected(partnerBookmarkHandlers.Delete))
	mux.HandleFunc("GET /partners/{id}", partnerHandlers.PublicProfile)

	mux.Handle("POST /applications", protected(applicationHandlers.Submit))
	mux.Handle("GET /applications", protected(applicationHandlers.List))
	mux.Handle("GET /applications/export", protected(applicationHandlers.Export))
	mux.Handle("GET /applications/{id}", protected(applicationHandlers.Get))
	mux.Handle("POST /applications/{id}/approve", protected(applicationHandlers.Approve))
	mux.Handle("POST /applications/{id}/reject", protected(applicationHandlers.Reject))
	mux.Handle("POST /applications/{id}/cancel", protected(applicationHandlers.Cancel))
	mux.Handle("POST /applications/{id}/complete", protected(applicationHandlers.Complete))
	mux.Handle("GET /applications/{id}/audit", protected(applicationHandlers.AuditTrail))

	mux.Handle("PUT /drafts", protected(draftHandlers.Upsert))
	mux.Handle("GET /drafts", protected(draftHandlers.List))
	mux.Handle("GET /drafts/{event_id}", protected(draftHandlers.Get))
	mux.Handle("DELETE /drafts/{event_id}", protected(draftHandlers.Delete))

	mux.Handle("POST /messages", protected(messageHandlers.Send))
	mux.Handle("GET /messages", protected(messageHandlers.List))
	mux.Handle("GET /messages/unread_count", protected(messageHandlers.UnreadCount))
	mux.Handle("GET /messages/conversation/{user_id}", protected(messageHandlers.Conversation))
	mux.Handle("POST /messages/{id}/read", protected(messageHandlers.MarkRead))

	mux.Handle("GET /notifications", protected(notificationHandlers.List))
	mux.Handle("GET /notifications/unread_count", protected(notificationHandlers.UnreadCount))
	mux.Handle("POST /notifications/read_all", protected(notificationHandlers.MarkAllRead))
	mux.Handle("POST /notifications/{id}/read", protected(notificationHandlers.MarkRead))
	mux.Handle("GET /ws/notifications", protected(wsHandlers.Subscribe))

	mux.Handle("GET /analytics", protected(analyticsHandlers.List))
	mux.Handle("GET /analytics/summary", protected(analyticsHandlers.Summary))
	mux.Handle("GET /analytics/{id}", protected(analyticsHandlers.Get))
	mux.Handle("GET /analytics/{id}/pdf", protected(analyticsHandlers.PDF))

	mux.Handle("POST /chatbot", protected(chatbotHandlers.Chat))

	if paymentService != nil {
		paymentHandlers := api.NewPaymentHandlers(partners, applications, events, paymentService)
		webhookHandlers := api.NewWebhookHandlers(cfg.StripeWebhookSecret, payments, webhooks, workflow, notifier)

		// Checkout retries must not open a second Stripe session.
		idempotencyRepo := idempotency.NewInMemoryRepository()
		stopCleanup := make(chan struct{})
		defer close(stopCleanup)
		go idempotency.RunPeriodicCleanup(idempotencyRepo, time.Hour, idempotency.DefaultExpiry, stopCleanup)
		idempotent := middleware.IdempotencyMiddleware(idempotencyRepo, map[string]bool{
			"/payments/checkout": true,
		})

		mux.Handle("POST /payments/checkout", idempotent(protected(paymentHandlers.Checkout)))
		mux.Handle("POST /applications/{id}/pay", protected(applicationHandlers.Pay))
		mux.HandleFunc("POST /payments/webhook", webhookHandlers.HandleStripeWebhook)
	}

	if uploadService != nil {
		uploadHandlers := api.NewUploadHandlers(uploadService, partners)
		publicURL := strings.TrimSuffix(cfg.S3Endpoint, "/") + "/" + cfg.S3BucketName
		imageHandlers := api.NewPartnerImageHandlers(partners, partnerImages, api.NewS3ObjectStore(uploadService), publicURL)
		mux.Handle("POST /uploads/sign", protected(uploadHandlers.SignUpload))
		mux.Handle("POST /partners/images", protected(imageHandlers.Upload))
		mux.Handle("GET /partners/images", protected(imageHandlers.List))
		mux.Handle("DELETE /partners/images/{id}", protected(imageHandlers.Delete))
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			ctx := middleware.SetErrorCode(r.Context(), api.ErrCodeNotFound)
			api.WriteError(w, ctx, http.StatusNotFound, api.ErrCodeNotFound, "The requested resource was not found")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"service":"festago-api","version":"0.1.0"}`)); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	corsMiddleware := middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   []string{cfg.FrontendURL},
		AllowCredentials: true,
	})
	globalLimit := middleware.RateLimiter(limitStore, middleware.DefaultGlobalLimit(), middleware.IPKeyFunc())
	profiling := middleware.Profiling(middleware.ProfilingConfig{
		Enabled:     cfg.Env == "development",
		Environment: cfg.Env,
	})

	handler := middleware.RequestID(
		middleware.Tracing(serviceName)(
			middleware.Logging(logger)(
				middleware.HTTPMetrics(metrics)(
					corsMiddleware(
						globalLimit(
							profiling(mux)))))))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// No WriteTimeout: /ws/notifications holds connections open.
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	if err := tracerProvider.Shutdown(ctx); err != nil {
		logger.Warn("failed to shut down tracing", "error", err)
	}

	logger.Info("server stopped")
}
