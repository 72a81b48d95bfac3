package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures runtime configuration for the tax service.
type Config struct {
	HTTP          HTTPConfig
	Database      DatabaseConfig
	Telemetry     TelemetryConfig
	Service       ServiceConfig
	TaxEngine     TaxEngineConfig
	Jurisdictions []string
	Notification  NotificationConfig
}

type HTTPConfig struct {
	Port          int
	ShutdownGrace int
}

type DatabaseConfig struct {
	URL            string
	AutoMigrate    bool
	MigrationsPath string
	QueryTimeout   time.Duration
}

type TelemetryConfig struct {
	LogLevel      string
	DebugLogging  bool
	OTelEndpoint  string
	EnableTracing bool
	EnableMetrics bool
	SampleRate    float64

	// MetricInterval is how often metrics are pushed to the collector.
	MetricInterval time.Duration
}

type ServiceConfig struct {
	Name        string
	Version     string
	Environment string
	// Storefront names the shop in operator alerts.
	Storefront string
}

// TaxEngineConfig holds the AvaTax account settings. Environment is kept as
// entered; it is validated each time an engine is configured.
type TaxEngineConfig struct {
	Environment       string
	CompanyCode       string
	CustomerCode      string
	Username          string
	Password          string
	PasswordSecretARN string
	Timeout           time.Duration
	BaseURL           string
}

type NotificationConfig struct {
	ResendAPIKey string
	From         string
	To           []string
}

const (
	defaultHTTPPort       = 8080
	defaultShutdownGrace  = 15
	defaultMigrationsPath = "migrations"
	defaultAutoMigrate    = true
	defaultQueryTimeout   = 15 * time.Second
	defaultServiceName    = "salestax-api"
	defaultServiceVersion = "0.1.0"
	defaultEnvironment    = "development"
	defaultLogLevel       = "info"
	defaultOTelSampleRate = 1.0
	defaultMetricInterval = 30 * time.Second
	defaultEngineEnv      = "Sandbox"
	defaultEngineTimeout  = 10 * time.Second
	defaultJurisdictions  = "GA"
)

// Load reads configuration from environment variables, applying defaults when needed.
func Load() (*Config, error) {
	httpCfg, err := loadHTTPConfig()
	if err != nil {
		return nil, fmt.Errorf("loading HTTP config: %w", err)
	}

	dbCfg, err := loadDatabaseConfig()
	if err != nil {
		return nil, fmt.Errorf("loading database config: %w", err)
	}

	telCfg, err := loadTelemetryConfig()
	if err != nil {
		return nil, fmt.Errorf("loading telemetry config: %w", err)
	}

	engineCfg, err := loadTaxEngineConfig()
	if err != nil {
		return nil, fmt.Errorf("loading tax engine config: %w", err)
	}

	return &Config{
		HTTP:          httpCfg,
		Database:      dbCfg,
		Telemetry:     telCfg,
		Service:       loadServiceConfig(),
		TaxEngine:     engineCfg,
		Jurisdictions: splitList(getEnvOrDefault("TAX_JURISDICTIONS", defaultJurisdictions)),
		Notification:  loadNotificationConfig(),
	}, nil
}

func loadHTTPConfig() (HTTPConfig, error) {
	port, err := getIntEnv("API_HTTP_PORT", defaultHTTPPort)
	if err != nil {
		return HTTPConfig{}, err
	}

	shutdownGrace, err := getIntEnv("API_SHUTDOWN_GRACE_SECONDS", defaultShutdownGrace)
	if err != nil {
		return HTTPConfig{}, err
	}

	return HTTPConfig{
		Port:          port,
		ShutdownGrace: shutdownGrace,
	}, nil
}

func loadDatabaseConfig() (DatabaseConfig, error) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		databaseURL = buildDatabaseURL()
	}

	queryTimeout, err := getDurationEnv("DB_QUERY_TIMEOUT", defaultQueryTimeout)
	if err != nil {
		return DatabaseConfig{}, err
	}

	return DatabaseConfig{
		URL:            databaseURL,
		AutoMigrate:    getBoolEnv("AUTO_MIGRATE", defaultAutoMigrate),
		MigrationsPath: getEnvOrDefault("MIGRATIONS_PATH", defaultMigrationsPath),
		QueryTimeout:   queryTimeout,
	}, nil
}

func loadTelemetryConfig() (TelemetryConfig, error) {
	sampleRate := defaultOTelSampleRate
	if value := os.Getenv("OTEL_SAMPLE_RATE"); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return TelemetryConfig{}, fmt.Errorf("invalid OTEL_SAMPLE_RATE: %w", err)
		}
		sampleRate = parsed
	}

	metricInterval, err := getDurationEnv("OTEL_METRIC_EXPORT_INTERVAL", defaultMetricInterval)
	if err != nil {
		return TelemetryConfig{}, err
	}

	return TelemetryConfig{
		LogLevel:       getEnvOrDefault("LOG_LEVEL", defaultLogLevel),
		DebugLogging:   getBoolEnv("DEBUG_LOGGING", false),
		OTelEndpoint:   getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		EnableTracing:  getBoolEnv("OTEL_ENABLE_TRACING", true),
		EnableMetrics:  getBoolEnv("OTEL_ENABLE_METRICS", true),
		SampleRate:     sampleRate,
		MetricInterval: metricInterval,
	}, nil
}

func loadServiceConfig() ServiceConfig {
	return ServiceConfig{
		Name:        getEnvOrDefault("API_SERVICE_NAME", defaultServiceName),
		Version:     getEnvOrDefault("SERVICE_VERSION", defaultServiceVersion),
		Environment: getEnvOrDefault("ENVIRONMENT", defaultEnvironment),
		Storefront:  os.Getenv("STOREFRONT_NAME"),
	}
}

func loadTaxEngineConfig() (TaxEngineConfig, error) {
	timeout, err := getDurationEnv("AVATAX_TIMEOUT", defaultEngineTimeout)
	if err != nil {
		return TaxEngineConfig{}, err
	}

	return TaxEngineConfig{
		Environment:       getEnvOrDefault("AVATAX_ENVIRONMENT", defaultEngineEnv),
		CompanyCode:       os.Getenv("AVATAX_COMPANY_CODE"),
		CustomerCode:      os.Getenv("AVATAX_CUSTOMER_CODE"),
		Username:          os.Getenv("AVATAX_USERNAME"),
		Password:          os.Getenv("AVATAX_PASSWORD"),
		PasswordSecretARN: os.Getenv("AVATAX_PASSWORD_SECRET_ARN"),
		Timeout:           timeout,
		BaseURL:           os.Getenv("AVATAX_BASE_URL"),
	}, nil
}

func loadNotificationConfig() NotificationConfig {
	return NotificationConfig{
		ResendAPIKey: os.Getenv("RESEND_API_KEY"),
		From:         os.Getenv("NOTIFY_FROM"),
		To:           splitList(os.Getenv("NOTIFY_TO")),
	}
}

func buildDatabaseURL() string {
	host := getEnvOrDefault("DB_HOST", "localhost")
	port := getEnvOrDefault("DB_PORT", "5432")
	user := getEnvOrDefault("DB_USER", "postgres")
	password := getEnvOrDefault("DB_PASSWORD", "postgres")
	dbName := getEnvOrDefault("DB_NAME", "salestax")
	sslMode := getEnvOrDefault("DB_SSLMODE", "disable")

	maxConns := getEnvOrDefault("DB_MAX_CONNS", "10")
	minConns := getEnvOrDefault("DB_MIN_CONNS", "2")

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&pool_max_conns=%s&pool_min_conns=%s",
		user, password, host, port, dbName, sslMode, maxConns, minConns,
	)
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		return strings.EqualFold(strings.TrimSpace(value), "true")
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func getDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return defaultValue, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
