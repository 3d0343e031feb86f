package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Telemetry TelemetryConfig
	Storage   StorageConfig
	AI        AIConfig
	Import    ImportConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int    // in minutes
	ConnMaxIdleTime int    // in minutes
	LogLevel        string // silent, error, warn, info
	SlowQueryMs     int
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled   bool // false keeps progress in memory
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
}

// JWTConfig holds the settings used to verify bearer tokens
type JWTConfig struct {
	Secret string
	Issuer string
	// AllowHeaderAuth accepts X-Tenant-ID/X-User-ID headers when no bearer
	// token is sent. Development only.
	AllowHeaderAuth bool
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	MetricsInterval   time.Duration
	LogsEnabled       bool // Bridge zap logs to the collector
	// Database tracing options
	DBTraceEnabled    bool          // Enable database query tracing (otelgorm)
	DBLogFullSQL      bool          // Log full SQL statements (dev only)
	DBSlowQueryThresh time.Duration // Slow query threshold for warnings (default: 200ms)
}

// StorageConfig holds the S3 bucket that archives uploaded sources
type StorageConfig struct {
	Enabled      bool
	Bucket       string
	AccessKey    string
	SecretKey    string
	Endpoint     string // empty uses the AWS endpoint for Region
	Region       string
	UseSSL       bool
	UsePathStyle bool // required by MinIO and most S3-compatible servers
	CreateBucket bool // create the bucket at startup when missing
}

// AIConfig selects the model providers and bounds extraction requests
type AIConfig struct {
	Enabled        bool
	Provider       string // openai | gemini
	VisionProvider string // provider for PDFs and images, defaults to Provider
	OpenAIAPIKey   string
	OpenAIModel    string
	OpenAIBaseURL  string
	GeminiAPIKey   string
	GeminiModel    string
	Timeout        time.Duration
	MaxRetries     int
	MaxConcurrency int
	ChunkRows      int
	MinConfidence  float64
}

// ImportConfig bounds uploads and tunes reconciliation
type ImportConfig struct {
	MaxFileSize    int64
	MaxBatchFiles  int
	ProgressTTL    time.Duration
	DedupThreshold float64
	ValueTolerance float64
	LinkThreshold  float64
	ArchiveTimeout time.Duration
	RateLimit      int // Import requests per team per RateWindow, 0 disables
	RateWindow     time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with ARQ_ prefix (e.g., ARQ_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("ARQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			LogLevel:        v.GetString("database.log_level"),
			SlowQueryMs:     v.GetInt("database.slow_query_ms"),
		},
		Redis: RedisConfig{
			Enabled:   v.GetBool("redis.enabled"),
			Host:      v.GetString("redis.host"),
			Port:      v.GetInt("redis.port"),
			Password:  v.GetString("redis.password"),
			DB:        v.GetInt("redis.db"),
			KeyPrefix: v.GetString("redis.key_prefix"),
		},
		JWT: JWTConfig{
			Secret:          v.GetString("jwt.secret"),
			Issuer:          v.GetString("jwt.issuer"),
			AllowHeaderAuth: v.GetBool("jwt.allow_header_auth"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
		},
		Storage: StorageConfig{
			Enabled:      v.GetBool("storage.enabled"),
			Bucket:       v.GetString("storage.bucket"),
			AccessKey:    v.GetString("storage.access_key"),
			SecretKey:    v.GetString("storage.secret_key"),
			Endpoint:     v.GetString("storage.endpoint"),
			Region:       v.GetString("storage.region"),
			UseSSL:       v.GetBool("storage.use_ssl"),
			UsePathStyle: v.GetBool("storage.use_path_style"),
			CreateBucket: v.GetBool("storage.create_bucket"),
		},
		AI: AIConfig{
			Enabled:        v.GetBool("ai.enabled"),
			Provider:       v.GetString("ai.provider"),
			VisionProvider: v.GetString("ai.vision_provider"),
			OpenAIAPIKey:   v.GetString("ai.openai_api_key"),
			OpenAIModel:    v.GetString("ai.openai_model"),
			OpenAIBaseURL:  v.GetString("ai.openai_base_url"),
			GeminiAPIKey:   v.GetString("ai.gemini_api_key"),
			GeminiModel:    v.GetString("ai.gemini_model"),
			Timeout:        v.GetDuration("ai.timeout"),
			MaxRetries:     v.GetInt("ai.max_retries"),
			MaxConcurrency: v.GetInt("ai.max_concurrency"),
			ChunkRows:      v.GetInt("ai.chunk_rows"),
			MinConfidence:  v.GetFloat64("ai.min_confidence"),
		},
		Import: ImportConfig{
			MaxFileSize:    v.GetInt64("import.max_file_size"),
			MaxBatchFiles:  v.GetInt("import.max_batch_files"),
			ProgressTTL:    v.GetDuration("import.progress_ttl"),
			DedupThreshold: v.GetFloat64("import.dedup_threshold"),
			ValueTolerance: v.GetFloat64("import.value_tolerance"),
			LinkThreshold:  v.GetFloat64("import.link_threshold"),
			ArchiveTimeout: v.GetDuration("import.archive_timeout"),
			RateLimit:      v.GetInt("import.rate_limit"),
			RateWindow:     v.GetDuration("import.rate_window"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "arq-import"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "arq"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}
	if cfg.Database.SlowQueryMs == 0 {
		cfg.Database.SlowQueryMs = 200
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "import:progress:"
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "arq-auth"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 60 * time.Second
	}
	// Batch imports with AI extraction run well past the usual 15s.
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 10 * time.Minute
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 100 << 20 // 100MB
	}
	// NOTE: CORS origins have no "*" fallback. An empty list allows no
	// cross-origin requests until configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "X-Tenant-ID", "X-User-ID"}
	}

	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "arq-import"
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}

	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}

	if cfg.AI.Provider == "" {
		cfg.AI.Provider = "openai"
	}
	if cfg.AI.VisionProvider == "" {
		cfg.AI.VisionProvider = "gemini"
	}
	if cfg.AI.OpenAIModel == "" {
		cfg.AI.OpenAIModel = "gpt-4o-mini"
	}
	if cfg.AI.GeminiModel == "" {
		cfg.AI.GeminiModel = "gemini-1.5-flash"
	}
	if cfg.AI.Timeout == 0 {
		cfg.AI.Timeout = 90 * time.Second
	}
	if cfg.AI.MaxRetries == 0 {
		cfg.AI.MaxRetries = 2
	}
	if cfg.AI.MaxConcurrency == 0 {
		cfg.AI.MaxConcurrency = 3
	}
	if cfg.AI.ChunkRows == 0 {
		cfg.AI.ChunkRows = 40
	}
	if cfg.AI.MinConfidence == 0 {
		cfg.AI.MinConfidence = 0.5
	}

	if cfg.Import.MaxFileSize == 0 {
		cfg.Import.MaxFileSize = 20 << 20 // 20MB
	}
	if cfg.Import.MaxBatchFiles == 0 {
		cfg.Import.MaxBatchFiles = 20
	}
	if cfg.Import.ProgressTTL == 0 {
		cfg.Import.ProgressTTL = time.Hour
	}
	if cfg.Import.DedupThreshold == 0 {
		cfg.Import.DedupThreshold = 0.85
	}
	if cfg.Import.ValueTolerance == 0 {
		cfg.Import.ValueTolerance = 0.01
	}
	if cfg.Import.LinkThreshold == 0 {
		cfg.Import.LinkThreshold = 0.6
	}
	if cfg.Import.ArchiveTimeout == 0 {
		cfg.Import.ArchiveTimeout = 30 * time.Second
	}
	if cfg.Import.RateWindow == 0 {
		cfg.Import.RateWindow = time.Minute
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.JWT.AllowHeaderAuth {
			return fmt.Errorf("jwt.allow_header_auth must be false in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
		}
	} else if c.JWT.Secret == "" && !c.JWT.AllowHeaderAuth {
		return fmt.Errorf("jwt.secret is required unless jwt.allow_header_auth is enabled")
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required when storage is enabled")
	}

	if err := c.AI.validate(); err != nil {
		return err
	}

	if c.Import.MaxFileSize < 0 {
		return fmt.Errorf("import.max_file_size cannot be negative")
	}
	if c.Import.MaxBatchFiles < 0 {
		return fmt.Errorf("import.max_batch_files cannot be negative")
	}
	if c.Import.RateLimit < 0 {
		return fmt.Errorf("import.rate_limit cannot be negative")
	}
	for name, v := range map[string]float64{
		"import.dedup_threshold": c.Import.DedupThreshold,
		"import.value_tolerance": c.Import.ValueTolerance,
		"import.link_threshold":  c.Import.LinkThreshold,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be between 0.0 and 1.0, got %f", name, v)
		}
	}

	return nil
}

func (a AIConfig) validate() error {
	if a.MinConfidence < 0 || a.MinConfidence > 1 {
		return fmt.Errorf("ai.min_confidence must be between 0.0 and 1.0, got %f", a.MinConfidence)
	}
	if a.MaxRetries < 0 {
		return fmt.Errorf("ai.max_retries cannot be negative")
	}
	if !a.Enabled {
		return nil
	}
	for _, p := range []string{a.Provider, a.VisionProvider} {
		switch p {
		case "openai":
			if a.OpenAIAPIKey == "" {
				return fmt.Errorf("ai.openai_api_key is required for provider openai")
			}
		case "gemini":
			if a.GeminiAPIKey == "" {
				return fmt.Errorf("ai.gemini_api_key is required for provider gemini")
			}
		default:
			return fmt.Errorf("unknown ai provider %q (want openai or gemini)", p)
		}
	}
	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the host:port of the Redis server
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
