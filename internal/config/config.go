package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/straye-as/labelling-app/internal/secrets"
	"go.uber.org/zap"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Storage   StorageConfig
	Labelling LabellingConfig
	Analysis  AnalysisConfig
	Auth      AuthConfig
	ApiKey    ApiKeyConfig
	Database  DatabaseConfig
	Secrets   SecretsConfig
	Logging   LoggingConfig
	Server    ServerConfig
	CORS      CORSConfig
	Security  SecurityConfig
	RateLimit RateLimitConfig
	Jobs      JobsConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Port        int
}

// StorageConfig selects the blob backend holding input files, result files and
// the user registry
type StorageConfig struct {
	// Mode is "azure" (Azure Blob Storage) or "local" (directory on disk)
	Mode          string
	LocalBasePath string
	// ConnectionString is resolved from AZURE_STORAGE_CONNECTION_STRING
	ConnectionString string
	// AccountURL enables DefaultAzureCredential without a connection string
	AccountURL string
	// Container is resolved from AZURE_STORAGE_CONTAINER_NAME
	Container string
}

// LabellingConfig holds the input file column names and labelling page options
type LabellingConfig struct {
	QuestionColumn    string
	PredictionsColumn string
	GroundTruthColumn string
	ContextColumn     string
	// SampleSize limits each labeller to a random subset of rows, 0 means all rows
	SampleSize int
	// FormsFile is an optional YAML file declaring custom forms
	FormsFile string
	// InstructionsFile is an optional markdown file shown above the forms
	InstructionsFile string
	// SessionIdleTimeout is the idle time (seconds) after which labelling state is evicted
	SessionIdleTimeout int
}

type AnalysisConfig struct {
	LowVarianceThreshold float64
	// CacheTTL is how long (seconds) merged analysis results are served from memory
	CacheTTL int
	WorstN   int
	// HistogramBins is the number of bins of the score distribution chart
	HistogramBins int
	// ChartBaseURL overrides the QuickChart endpoint
	ChartBaseURL string
}

// AuthConfig controls the user registry and session cookie
type AuthConfig struct {
	// UserConfigBlob is the blob name of the YAML user registry
	UserConfigBlob string
	// MaxLoginAttempts per username per minute
	MaxLoginAttempts int
	// SecureCookie sets the Secure flag on session cookies
	SecureCookie bool
	// AllowRegistration enables the self-service registration page
	AllowRegistration bool
	// RegistryTTL is how long (seconds) the user registry is served from memory
	RegistryTTL int
}

type ApiKeyConfig struct {
	SecretName string
	Value      string // Loaded from secrets or environment
}

// DatabaseConfig configures the optional save audit trail
type DatabaseConfig struct {
	Enabled         bool
	Driver          string // "postgres" or "sqlite"
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
}

type SecretsConfig struct {
	// Source determines where secrets are loaded from: "environment", "vault", or "auto"
	// "auto" uses environment in development, vault in staging/production
	Source       string
	KeyVaultName string
	CacheEnabled bool
	CacheTTL     int // seconds
}

type LoggingConfig struct {
	Level  string
	Format string
}

type ServerConfig struct {
	ReadTimeout    int
	WriteTimeout   int
	RequestTimeout int
	EnableSwagger  bool
}

// CORSConfig holds CORS configuration for the JSON API
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	// MaxAge is the max age (in seconds) for preflight cache
	MaxAge int
}

// SecurityConfig holds security header configuration
type SecurityConfig struct {
	EnableHSTS            bool
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	HSTSPreload           bool
	ContentSecurityPolicy string
	// FrameOptions sets the X-Frame-Options header (DENY, SAMEORIGIN, or empty to disable)
	FrameOptions       string
	ContentTypeNosniff bool
	XSSProtection      string
	ReferrerPolicy     string
	PermissionsPolicy  string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled bool
	// RequestsPerMinute is the limit for anonymous requests (per IP)
	RequestsPerMinute     int
	// RequestsPerMinuteAuth is the limit for logged-in users (per user)
	RequestsPerMinuteAuth int
	WhitelistIPs          []string
	WhitelistPaths        []string
}

// JobsConfig holds cron expressions (with seconds field) for background jobs
type JobsConfig struct {
	Enabled             bool
	AnalysisRefreshCron string
	SessionEvictionCron string
}

// ConnectionString builds PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// ConnMaxLifetimeDuration returns connection max lifetime as duration
func (d *DatabaseConfig) ConnMaxLifetimeDuration() time.Duration {
	return time.Duration(d.ConnMaxLifetime) * time.Second
}

// ReadTimeoutDuration returns read timeout as duration
func (s *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns write timeout as duration
func (s *ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// RequestTimeoutDuration returns request timeout as duration
func (s *ServerConfig) RequestTimeoutDuration() time.Duration {
	return time.Duration(s.RequestTimeout) * time.Second
}

func (a *AnalysisConfig) CacheTTLDuration() time.Duration {
	return time.Duration(a.CacheTTL) * time.Second
}

func (a *AuthConfig) RegistryTTLDuration() time.Duration {
	return time.Duration(a.RegistryTTL) * time.Second
}

func (l *LabellingConfig) SessionIdleTimeoutDuration() time.Duration {
	return time.Duration(l.SessionIdleTimeout) * time.Second
}

// RequiredColumns returns the columns every input file must contain
func (l *LabellingConfig) RequiredColumns() []string {
	return []string{l.GroundTruthColumn, l.QuestionColumn, l.PredictionsColumn}
}

// Validate checks settings that would otherwise fail on first use
func (c *Config) Validate() error {
	switch c.Storage.Mode {
	case "azure", "cloud":
		if c.Storage.ConnectionString == "" && c.Storage.AccountURL == "" {
			return errors.New("azure storage requires AZURE_STORAGE_CONNECTION_STRING or storage.accountURL")
		}
		if c.Storage.Container == "" {
			return errors.New("azure storage requires AZURE_STORAGE_CONTAINER_NAME")
		}
	case "local":
		if c.Storage.LocalBasePath == "" {
			return errors.New("local storage requires storage.localBasePath")
		}
	default:
		return fmt.Errorf("unsupported storage mode: %s", c.Storage.Mode)
	}

	if c.Database.Enabled && c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	if c.Analysis.HistogramBins <= 0 {
		return errors.New("analysis.histogramBins must be positive")
	}
	return nil
}

// Load loads configuration from file and environment variables
// This is a basic load that doesn't fetch secrets from vault
// Use LoadWithSecrets for full secret resolution
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override config file
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Storage.ConnectionString == "" {
		cfg.Storage.ConnectionString = v.GetString("AZURE_STORAGE_CONNECTION_STRING")
	}
	if cfg.Storage.Container == "" {
		cfg.Storage.Container = v.GetString("AZURE_STORAGE_CONTAINER_NAME")
	}
	if cfg.ApiKey.Value == "" {
		cfg.ApiKey.Value = v.GetString("ADMIN_API_KEY")
	}
	if cfg.Secrets.KeyVaultName == "" {
		cfg.Secrets.KeyVaultName = v.GetString("AZURE_KEY_VAULT_NAME")
	}

	return &cfg, nil
}

// LoadWithSecrets loads configuration and resolves secrets from the configured source.
// Key Vault is consulted when USE_AZURE_KEY_VAULT=true and a vault name is set;
// every secret falls back to its environment variable.
func LoadWithSecrets(ctx context.Context, logger *zap.Logger) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	source := secrets.SecretSource(cfg.Secrets.Source)
	if strings.ToLower(os.Getenv("USE_AZURE_KEY_VAULT")) == "true" {
		source = secrets.SourceVault
	}
	if source == secrets.SourceVault && cfg.Secrets.KeyVaultName == "" {
		logger.Warn("Key Vault requested but AZURE_KEY_VAULT_NAME is empty, using environment variables")
		source = secrets.SourceEnvironment
	}

	provider, err := secrets.NewProvider(&secrets.ProviderConfig{
		Source:       source,
		VaultName:    cfg.Secrets.KeyVaultName,
		Environment:  cfg.App.Environment,
		CacheEnabled: cfg.Secrets.CacheEnabled,
		CacheTTL:     time.Duration(cfg.Secrets.CacheTTL) * time.Second,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secrets provider: %w", err)
	}

	if connStr, err := provider.GetSecret(ctx, "AZURE_STORAGE_CONNECTION_STRING"); err == nil && connStr != "" {
		cfg.Storage.ConnectionString = connStr
	}
	if container, err := provider.GetSecret(ctx, "AZURE_STORAGE_CONTAINER_NAME"); err == nil && container != "" {
		cfg.Storage.Container = container
	}
	if apiKey, err := provider.GetSecret(ctx, "ADMIN_API_KEY"); err == nil && apiKey != "" {
		cfg.ApiKey.Value = apiKey
	}
	if cfg.Database.Enabled && cfg.Database.Driver == "postgres" {
		if password, err := provider.GetSecret(ctx, "DATABASE_PASSWORD"); err == nil && password != "" {
			cfg.Database.Password = password
		}
	}

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.App.Environment),
		zap.String("storage_mode", cfg.Storage.Mode),
		zap.Bool("vault_enabled", provider.IsVaultEnabled()),
		zap.Bool("audit_db_enabled", cfg.Database.Enabled),
	)
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "Labelling App")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.port", 8080)

	v.SetDefault("storage.mode", "azure")
	v.SetDefault("storage.localBasePath", "./storage")

	v.SetDefault("labelling.questionColumn", "question")
	v.SetDefault("labelling.predictionsColumn", "predictions")
	v.SetDefault("labelling.groundTruthColumn", "ground_truth")
	v.SetDefault("labelling.contextColumn", "context")
	v.SetDefault("labelling.sampleSize", 0)
	v.SetDefault("labelling.formsFile", "")
	v.SetDefault("labelling.instructionsFile", "")
	v.SetDefault("labelling.sessionIdleTimeout", 43200) // 12 hours

	v.SetDefault("analysis.lowVarianceThreshold", 0.1)
	v.SetDefault("analysis.cacheTTL", 300)
	v.SetDefault("analysis.worstN", 10)
	v.SetDefault("analysis.histogramBins", 20)
	v.SetDefault("analysis.chartBaseURL", "")

	v.SetDefault("auth.userConfigBlob", "config.yaml")
	v.SetDefault("auth.maxLoginAttempts", 5)
	v.SetDefault("auth.secureCookie", false)
	v.SetDefault("auth.allowRegistration", true)
	v.SetDefault("auth.registryTTL", 30)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "labelling")
	v.SetDefault("database.user", "labelling_user")
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.sqlitePath", "./labelling.db")
	v.SetDefault("database.maxOpenConns", 10)
	v.SetDefault("database.maxIdleConns", 2)
	v.SetDefault("database.connMaxLifetime", 300)

	v.SetDefault("secrets.source", "environment")
	v.SetDefault("secrets.cacheEnabled", true)
	v.SetDefault("secrets.cacheTTL", 300)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 60)
	v.SetDefault("server.requestTimeout", 60)
	v.SetDefault("server.enableSwagger", true)

	v.SetDefault("cors.allowedOrigins", []string{})
	v.SetDefault("cors.allowedMethods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("cors.allowedHeaders", []string{"Accept", "Content-Type", "X-API-Key", "X-Request-ID"})
	v.SetDefault("cors.exposedHeaders", []string{"Content-Disposition", "X-Request-ID"})
	v.SetDefault("cors.allowCredentials", true)
	v.SetDefault("cors.maxAge", 300)

	v.SetDefault("security.enableHSTS", false)
	v.SetDefault("security.hstsMaxAge", 31536000)
	v.SetDefault("security.hstsIncludeSubdomains", true)
	v.SetDefault("security.hstsPreload", false)
	// Charts are images served by QuickChart
	v.SetDefault("security.contentSecurityPolicy", "default-src 'self'; img-src 'self' https://quickchart.io data:; style-src 'self' 'unsafe-inline'")
	v.SetDefault("security.frameOptions", "DENY")
	v.SetDefault("security.contentTypeNosniff", true)
	v.SetDefault("security.xssProtection", "1; mode=block")
	v.SetDefault("security.referrerPolicy", "strict-origin-when-cross-origin")
	v.SetDefault("security.permissionsPolicy", "geolocation=(), microphone=(), camera=()")

	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.requestsPerMinute", 120)
	v.SetDefault("rateLimit.requestsPerMinuteAuth", 300)
	v.SetDefault("rateLimit.whitelistIPs", []string{"127.0.0.1", "::1"})
	v.SetDefault("rateLimit.whitelistPaths", []string{"/health", "/health/ready"})

	v.SetDefault("jobs.enabled", true)
	v.SetDefault("jobs.analysisRefreshCron", "0 */5 * * * *")
	v.SetDefault("jobs.sessionEvictionCron", "0 */10 * * * *")
}
