package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"loyalty-wallet-bridge/internal/config"
	"loyalty-wallet-bridge/internal/credentials"
	"loyalty-wallet-bridge/internal/events"
	"loyalty-wallet-bridge/internal/features"
	"loyalty-wallet-bridge/internal/handler"
	"loyalty-wallet-bridge/internal/logger"
	"loyalty-wallet-bridge/internal/loyalty"
	"loyalty-wallet-bridge/internal/middleware"
	"loyalty-wallet-bridge/internal/service"
	"loyalty-wallet-bridge/internal/tracing"
	"loyalty-wallet-bridge/internal/wallet"
	"loyalty-wallet-bridge/internal/webhook"
)

const shutdownTimeout = 15 * time.Second

// version is stamped at build time:
//
//	go build -ldflags "-X main.version=$(git describe --tags)" ./cmd/api
var version = "dev"

func main() {
	configFile := flag.String("config", "", "Path to a JSON config file")
	envFile := flag.String("env-file", ".env", "Path to a dotenv file, ignored if missing")
	flag.Parse()

	if err := loadEnvFile(*envFile); err != nil {
		log.Fatalf("Failed to load env file: %v", err)
	}

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	zl, err := logger.New(logger.Config{
		IsDevelopment:     cfg.IsDevelopment(),
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zl.Sync()

	if _, err := tracing.InitTracing(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: tracing.ServiceName,
		Environment: cfg.Server.AppEnv,
		Version:     version,
		SampleRatio: cfg.Tracing.SampleRatio,
	}); err != nil {
		zl.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	// The credential is required: without it no pass can be signed.
	cred, err := credentials.Load(cfg.Credentials.EnvKey)
	if err != nil {
		zl.Fatal("Failed to load wallet credentials", zap.Error(err))
	}
	zl.Info("Loaded wallet credentials",
		zap.String("client_email", cred.ClientEmail),
		zap.String("source", cred.Source()),
	)

	baseClient := &http.Client{Timeout: cfg.Server.ClientTimeout.Std()}
	walletHTTP, err := cred.HTTPClient(context.Background(), baseClient, cfg.Wallet.ScopeList()...)
	if err != nil {
		zl.Fatal("Failed to build wallet API client", zap.Error(err))
	}

	if cfg.Loyalty.ApplicationID == "" || cfg.Loyalty.SecretKey == "" {
		zl.Warn("Voucherify credentials are not set, loyalty lookups will fall back to defaults")
	}

	flags := features.NewDefaultManager(cfg.Features.LoyaltyEnrichment, cfg.Features.WebhookSync)
	eventManager := events.NewManager(cfg.Webhook.SyncTimeout.Std(), zl.Named("events"))

	svc := service.NewService(service.Dependencies{
		Loyalty:  loyalty.NewClient(cfg.Loyalty, baseClient, zl.Named("loyalty")),
		Wallet:   wallet.NewClient(cfg.Wallet.APIURL, walletHTTP, zl.Named("wallet")),
		Signer:   wallet.NewSigner(cred.ClientEmail, cred.SigningKey()),
		Passes:   wallet.NewPasses(cfg.Wallet),
		Features: flags,
		Events:   eventManager,
		Logger:   zl.Named("service"),
	})
	svc.Subscribe(eventManager)

	h := handler.NewHandlerWithOptions(svc, handler.NewHandlerOptions{
		MaxBodySize: cfg.Security.MaxRequestBodySize,
		Verifier:    webhook.NewVerifier(cfg.Webhook.Secret, zl.Named("webhook")),
		Events:      eventManager,
		Features:    flags,
		Logger:      zl.Named("handler"),
	})

	// Setup router
	r := chi.NewRouter()

	// Middleware (order matters)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(zl.Named("http")))
	r.Use(chimw.Recoverer)
	r.Use(middleware.TracingMiddleware())

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   splitOrigins(cfg.Security.AllowedOrigins),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", webhook.SignatureHeader, webhook.SignatureHeaderSHA256},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Routes
	r.Post("/", h.CreatePass)
	r.Post("/voucherify-webhook", h.VoucherifyWebhook)
	r.Get("/health", h.Health)
	r.Handle("/*", http.FileServer(http.Dir(cfg.Server.StaticDir)))

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zl.Info("Server is running",
			zap.String("addr", server.Addr),
			zap.String("version", version),
			zap.String("static_dir", cfg.Server.StaticDir),
			zap.Bool("webhook_verification", cfg.Webhook.Secret != ""),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
	<-sigint

	zl.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		zl.Error("Error shutting down server", zap.Error(err))
	}
	if err := eventManager.Shutdown(ctx); err != nil {
		zl.Warn("Background webhook syncs did not finish", zap.Error(err))
	}
	if err := tracing.Shutdown(ctx); err != nil {
		zl.Error("Error shutting down tracer", zap.Error(err))
	}
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

func splitOrigins(origins string) []string {
	var out []string
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
