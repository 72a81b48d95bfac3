package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dejobratic/salestax/internal/config"
	"github.com/dejobratic/salestax/internal/database"
	"github.com/dejobratic/salestax/internal/notify"
	"github.com/dejobratic/salestax/internal/secrets"
	taxadapters "github.com/dejobratic/salestax/internal/tax/adapters"
	"github.com/dejobratic/salestax/internal/tax/adapters/avatax"
	httpadapter "github.com/dejobratic/salestax/internal/tax/adapters/http"
	taxpostgres "github.com/dejobratic/salestax/internal/tax/adapters/postgres"
	taxapp "github.com/dejobratic/salestax/internal/tax/app"
	"github.com/dejobratic/salestax/internal/tax/app/commands"
	"github.com/dejobratic/salestax/internal/tax/domain"
	taxmetrics "github.com/dejobratic/salestax/internal/tax/metrics"
	"github.com/dejobratic/salestax/internal/tax/ports"
	"github.com/dejobratic/salestax/internal/telemetry"
	"github.com/joho/godotenv"
)

const meterName = "github.com/dejobratic/salestax"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := telemetry.NewLogger(telemetry.ParseLevel(cfg.Telemetry.LogLevel, cfg.Telemetry.DebugLogging))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Initialize(ctx, telemetry.Config{
		ServiceName:    cfg.Service.Name,
		ServiceVersion: cfg.Service.Version,
		Environment:    cfg.Service.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTelEndpoint,
		EnableTracing:  cfg.Telemetry.EnableTracing,
		EnableMetrics:  cfg.Telemetry.EnableMetrics,
		SampleRate:     cfg.Telemetry.SampleRate,
		MetricInterval: cfg.Telemetry.MetricInterval,
	})
	if err != nil {
		logger.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown failed", "error", err)
		}
	}()
	meter := tel.Meter(meterName)

	pool, err := database.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		logger.Info("running database migrations", "path", cfg.Database.MigrationsPath)
		version, err := database.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsPath)
		if err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		logger.Info("migrations completed successfully", "version", version)
	}

	jurisdictions, err := domain.NewJurisdictionSet(cfg.Jurisdictions...)
	if err != nil {
		logger.Error("invalid tax jurisdictions", "error", err)
		os.Exit(1)
	}

	if _, err := domain.ParseEnvironment(cfg.TaxEngine.Environment); err != nil {
		// Not fatal: every calculation fails with a configuration error and is reported.
		logger.Warn("tax engine environment is not recognized", "environment", cfg.TaxEngine.Environment)
	}

	dbMetrics, err := database.NewMetrics(meter)
	if err != nil {
		logger.Error("failed to create database metrics", "error", err)
		os.Exit(1)
	}
	engineMetrics, err := avatax.NewMetrics(meter)
	if err != nil {
		logger.Error("failed to create tax engine metrics", "error", err)
		os.Exit(1)
	}
	notifyMetrics, err := notify.NewMetrics(meter)
	if err != nil {
		logger.Error("failed to create notification metrics", "error", err)
		os.Exit(1)
	}
	calcMetrics, err := taxmetrics.NewMetrics(meter)
	if err != nil {
		logger.Error("failed to create tax metrics", "error", err)
		os.Exit(1)
	}
	httpMetrics, err := httpadapter.NewMetrics(meter)
	if err != nil {
		logger.Error("failed to create http metrics", "error", err)
		os.Exit(1)
	}

	orders := taxadapters.NewObservableOrderGateway(
		taxpostgres.NewOrderGateway(pool, taxpostgres.WithQueryTimeout(cfg.Database.QueryTimeout)),
		dbMetrics,
	)

	engines := taxadapters.NewObservableTaxEngineFactory(
		avatax.NewFactory(
			avatax.WithTimeout(cfg.TaxEngine.Timeout),
			avatax.WithBaseURL(cfg.TaxEngine.BaseURL),
		),
		engineMetrics,
	)

	notifier, err := newNotifier(cfg.Notification, logger, notifyMetrics)
	if err != nil {
		logger.Error("failed to create notifier", "error", err)
		os.Exit(1)
	}

	service := taxapp.NewService(
		orders,
		engines,
		notifier,
		taxpostgres.NewCalculationLog(pool),
		taxapp.Settings{
			Storefront:    cfg.Service.Storefront,
			Jurisdictions: jurisdictions,
			Engine: commands.EngineSettings{
				Environment: cfg.TaxEngine.Environment,
				Credentials: domain.Credentials{
					Username: cfg.TaxEngine.Username,
					Password: resolvePassword(ctx, cfg.TaxEngine, logger),
				},
				CompanyCode:  cfg.TaxEngine.CompanyCode,
				CustomerCode: cfg.TaxEngine.CustomerCode,
			},
		},
		logger,
		calcMetrics,
	)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := database.CheckHealth(r.Context(), pool); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": err.Error()})
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	httpadapter.NewHandler(service).Register(mux)

	handler := httpadapter.WithRecovery(
		httpadapter.WithLogging(
			httpadapter.WithMetrics(mux, httpMetrics),
			logger,
		),
		logger,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("http server starting",
			"port", cfg.HTTP.Port,
			"jurisdictions", jurisdictions.Regions(),
			"tax_engine_environment", cfg.TaxEngine.Environment,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownGrace)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	} else {
		logger.Info("http server stopped")
	}
}

// newNotifier mails alerts through Resend when an API key is configured and
// logs them otherwise.
func newNotifier(cfg config.NotificationConfig, logger *slog.Logger, metrics *notify.Metrics) (ports.NotificationSink, error) {
	if cfg.ResendAPIKey == "" {
		logger.Warn("RESEND_API_KEY not set, failure notifications are only logged")
		return taxadapters.NewObservableNotificationSink(notify.NewLogSink(logger), "log", metrics), nil
	}

	sink, err := notify.NewResendSink(cfg.ResendAPIKey, cfg.From, cfg.To, logger)
	if err != nil {
		return nil, err
	}
	return taxadapters.NewObservableNotificationSink(sink, "resend", metrics), nil
}

func resolvePassword(ctx context.Context, cfg config.TaxEngineConfig, logger *slog.Logger) string {
	if cfg.PasswordSecretARN == "" {
		return cfg.Password
	}

	resolver, err := secrets.NewResolver(ctx, logger)
	if err != nil {
		logger.Warn("secrets manager unavailable, using AVATAX_PASSWORD", "error", err)
		return cfg.Password
	}

	password, err := resolver.Resolve(ctx, cfg.PasswordSecretARN, cfg.Password)
	if err != nil {
		logger.Warn("tax engine password not resolved", "error", err)
		return ""
	}
	return password
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
