package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	SMTP      SMTPConfig      `yaml:"smtp"`
	Sender    SenderConfig    `yaml:"sender"`
	Message   MessageConfig   `yaml:"message"`
	Sending   SendingConfig   `yaml:"sending"`
	Quota     QuotaConfig     `yaml:"quota"`
	Transport TransportConfig `yaml:"transport"`
	Logging   LoggingConfig   `yaml:"logging"`
	Status    StatusConfig    `yaml:"status"`
}

// SMTPConfig holds SMTP server and authentication settings
type SMTPConfig struct {
	Server         string      `yaml:"server"`
	Port           int         `yaml:"port"`
	Username       string      `yaml:"username"` // Defaults to sender email when empty
	UseSSL         bool        `yaml:"use_ssl"`  // Implicit TLS (port 465); otherwise STARTTLS
	TimeoutSeconds int         `yaml:"timeout_seconds"`
	AuthMethod     string      `yaml:"auth_method"` // "plain", "login" or "xoauth2"
	OAuth          OAuthConfig `yaml:"oauth"`
}

// Timeout returns the configured dial/IO timeout as a duration
func (c SMTPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// OAuthConfig holds XOAUTH2 token-source settings
type OAuthConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
	TokenURL     string `yaml:"token_url"`
}

// SenderConfig holds the sending identity
type SenderConfig struct {
	Email    string `yaml:"email"`
	Name     string `yaml:"name"`
	Password string `yaml:"password"`
	ReplyTo  string `yaml:"reply_to"`
}

// MessageConfig holds the prepared campaign content. Bodies may be
// given inline or as file paths; inline wins when both are set.
type MessageConfig struct {
	Subject  string `yaml:"subject"`
	HTMLBody string `yaml:"html_body"`
	TextBody string `yaml:"text_body"`
	HTMLPath string `yaml:"html_path"`
	TextPath string `yaml:"text_path"`
}

// SendingConfig holds batch, pacing and retry settings
type SendingConfig struct {
	BatchSize            int `yaml:"batch_size"`
	BatchPauseSeconds    int `yaml:"batch_pause_seconds"`
	PerEmailDelayMinMS   int `yaml:"per_email_delay_min_ms"`
	PerEmailDelayMaxMS   int `yaml:"per_email_delay_max_ms"`
	MaxAttempts          int `yaml:"max_attempts"`
	RetryBaseSeconds     int `yaml:"retry_base_seconds"`
	RetryMaxDelaySeconds int `yaml:"retry_max_delay_seconds"`
	TestModeCount        int `yaml:"test_mode_count"`
}

// BatchPause returns the pause between batches as a duration
func (c SendingConfig) BatchPause() time.Duration {
	return time.Duration(c.BatchPauseSeconds) * time.Second
}

// PerEmailDelayMin returns the lower bound of the per-email delay
func (c SendingConfig) PerEmailDelayMin() time.Duration {
	return time.Duration(c.PerEmailDelayMinMS) * time.Millisecond
}

// PerEmailDelayMax returns the upper bound of the per-email delay
func (c SendingConfig) PerEmailDelayMax() time.Duration {
	return time.Duration(c.PerEmailDelayMaxMS) * time.Millisecond
}

// RetryBase returns the first retry wait as a duration
func (c SendingConfig) RetryBase() time.Duration {
	return time.Duration(c.RetryBaseSeconds) * time.Second
}

// RetryMaxDelay returns the backoff cap as a duration
func (c SendingConfig) RetryMaxDelay() time.Duration {
	return time.Duration(c.RetryMaxDelaySeconds) * time.Second
}

// QuotaConfig holds daily limit thresholds and quota-state store settings
type QuotaConfig struct {
	DailySoftLimit int    `yaml:"daily_soft_limit"`
	DailyHardLimit int    `yaml:"daily_hard_limit"`
	Store          string `yaml:"store"` // "file", "redis", "postgres" or "s3"
	FilePath       string `yaml:"file_path"`
	RedisURL       string `yaml:"redis_url"`
	PostgresDSN    string `yaml:"postgres_dsn"`
	S3Bucket       string `yaml:"s3_bucket"`
	S3Key          string `yaml:"s3_key"`
	AWSRegion      string `yaml:"aws_region"`
	AWSProfile     string `yaml:"aws_profile"` // Empty string uses default credential chain
}

// TransportConfig selects the delivery transport
type TransportConfig struct {
	Type string    `yaml:"type"` // "smtp" or "ses"
	SES  SESConfig `yaml:"ses"`
}

// SESConfig holds AWS SES API configuration
type SESConfig struct {
	Region         string `yaml:"region"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration
func (c SESConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LoggingConfig holds log level and run-log file settings
type LoggingConfig struct {
	Level            string `yaml:"level"`
	Dir              string `yaml:"dir"`  // Directory for per-run timestamped log files
	File             string `yaml:"file"` // Explicit path; overrides Dir when set
	DisableRedaction bool   `yaml:"disable_redaction"`
}

// StatusConfig holds the optional local status server settings
type StatusConfig struct {
	Addr string `yaml:"addr"` // Empty disables the server
}

// SMTPUsername returns the SMTP auth username, falling back to the
// sender address when none is configured
func (c *Config) SMTPUsername() string {
	if c.SMTP.Username != "" {
		return c.SMTP.Username
	}
	return c.Sender.Email
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.SMTP.Port == 0 {
		cfg.SMTP.Port = 587
	}
	// Port 465 is implicit TLS
	if cfg.SMTP.Port == 465 {
		cfg.SMTP.UseSSL = true
	}
	if cfg.SMTP.TimeoutSeconds == 0 {
		cfg.SMTP.TimeoutSeconds = 30
	}
	if cfg.SMTP.AuthMethod == "" {
		cfg.SMTP.AuthMethod = "plain"
	}
	if cfg.SMTP.OAuth.TokenURL == "" {
		cfg.SMTP.OAuth.TokenURL = "https://oauth2.googleapis.com/token"
	}
	if cfg.Sending.BatchSize == 0 {
		cfg.Sending.BatchSize = 50
	}
	if cfg.Sending.BatchPauseSeconds == 0 {
		cfg.Sending.BatchPauseSeconds = 10
	}
	if cfg.Sending.PerEmailDelayMinMS == 0 {
		cfg.Sending.PerEmailDelayMinMS = 1000
	}
	if cfg.Sending.PerEmailDelayMaxMS == 0 {
		cfg.Sending.PerEmailDelayMaxMS = 1500
	}
	if cfg.Sending.MaxAttempts == 0 {
		cfg.Sending.MaxAttempts = 3
	}
	if cfg.Sending.RetryBaseSeconds == 0 {
		cfg.Sending.RetryBaseSeconds = 5
	}
	if cfg.Sending.RetryMaxDelaySeconds == 0 {
		cfg.Sending.RetryMaxDelaySeconds = 60
	}
	if cfg.Sending.TestModeCount == 0 {
		cfg.Sending.TestModeCount = 3
	}
	if cfg.Quota.DailySoftLimit == 0 {
		cfg.Quota.DailySoftLimit = 400
	}
	if cfg.Quota.DailyHardLimit == 0 {
		cfg.Quota.DailyHardLimit = 450
	}
	if cfg.Quota.Store == "" {
		cfg.Quota.Store = "file"
	}
	if cfg.Quota.FilePath == "" {
		cfg.Quota.FilePath = "daily_quota.json"
	}
	if cfg.Quota.S3Key == "" {
		cfg.Quota.S3Key = "bulksend/daily_quota.json"
	}
	if cfg.Transport.Type == "" {
		cfg.Transport.Type = "smtp"
	}
	if cfg.Transport.SES.Region == "" {
		cfg.Transport.SES.Region = "us-west-2"
	}
	if cfg.Transport.SES.TimeoutSeconds == 0 {
		cfg.Transport.SES.TimeoutSeconds = 30
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Dir == "" {
		cfg.Logging.Dir = "logs"
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so credentials can live in .env locally and in real env vars elsewhere.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables if present
	if server := os.Getenv("SMTP_SERVER"); server != "" {
		cfg.SMTP.Server = server
	}
	if port := os.Getenv("SMTP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.SMTP.Port = p
			if p == 465 {
				cfg.SMTP.UseSSL = true
			}
		}
	}
	if username := os.Getenv("SMTP_USERNAME"); username != "" {
		cfg.SMTP.Username = username
	}
	if email := os.Getenv("SENDER_EMAIL"); email != "" {
		cfg.Sender.Email = email
	}
	if password := os.Getenv("SENDER_PASSWORD"); password != "" {
		cfg.Sender.Password = password
	}
	if name := os.Getenv("SENDER_NAME"); name != "" {
		cfg.Sender.Name = name
	}
	if limit := os.Getenv("DAILY_HARD_LIMIT"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			cfg.Quota.DailyHardLimit = n
		}
	}
	if limit := os.Getenv("DAILY_SOFT_LIMIT"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			cfg.Quota.DailySoftLimit = n
		}
	}
	if store := os.Getenv("QUOTA_STORE"); store != "" {
		cfg.Quota.Store = store
	}
	if url := os.Getenv("QUOTA_REDIS_URL"); url != "" {
		cfg.Quota.RedisURL = url
	}
	if dsn := os.Getenv("QUOTA_POSTGRES_DSN"); dsn != "" {
		cfg.Quota.PostgresDSN = dsn
	}
	if bucket := os.Getenv("QUOTA_S3_BUCKET"); bucket != "" {
		cfg.Quota.S3Bucket = bucket
	}
	if region := os.Getenv("AWS_REGION"); region != "" {
		cfg.Quota.AWSRegion = region
		cfg.Transport.SES.Region = region
	}
	if accessKey := os.Getenv("SES_ACCESS_KEY"); accessKey != "" {
		cfg.Transport.SES.AccessKey = accessKey
	}
	if secretKey := os.Getenv("SES_SECRET_KEY"); secretKey != "" {
		cfg.Transport.SES.SecretKey = secretKey
	}
	if addr := os.Getenv("STATUS_ADDR"); addr != "" {
		cfg.Status.Addr = addr
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if file := os.Getenv("LOG_FILE"); file != "" {
		cfg.Logging.File = file
	}

	return cfg, nil
}

// Validate rejects configurations the engine cannot run with
func (c *Config) Validate() error {
	if c.Sender.Email == "" {
		return fmt.Errorf("sender email is required")
	}
	if c.Quota.DailyHardLimit < c.Quota.DailySoftLimit {
		return fmt.Errorf("daily hard limit %d is below soft limit %d",
			c.Quota.DailyHardLimit, c.Quota.DailySoftLimit)
	}
	if c.Quota.DailyHardLimit <= 0 {
		return fmt.Errorf("daily hard limit must be positive, got %d", c.Quota.DailyHardLimit)
	}
	if c.Sending.PerEmailDelayMinMS > c.Sending.PerEmailDelayMaxMS {
		return fmt.Errorf("per-email delay min %dms exceeds max %dms",
			c.Sending.PerEmailDelayMinMS, c.Sending.PerEmailDelayMaxMS)
	}
	if c.Sending.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.Sending.BatchSize)
	}
	if c.Sending.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", c.Sending.MaxAttempts)
	}
	switch c.Quota.Store {
	case "file", "redis", "postgres", "s3":
	default:
		return fmt.Errorf("unknown quota store %q", c.Quota.Store)
	}
	switch c.Transport.Type {
	case "smtp", "ses":
	default:
		return fmt.Errorf("unknown transport %q", c.Transport.Type)
	}
	if c.Transport.Type == "smtp" && c.SMTP.Server == "" {
		return fmt.Errorf("smtp server is required for the smtp transport")
	}
	switch c.SMTP.AuthMethod {
	case "plain", "login", "xoauth2":
	default:
		return fmt.Errorf("unknown smtp auth method %q", c.SMTP.AuthMethod)
	}
	if c.SMTP.AuthMethod == "xoauth2" {
		if c.SMTP.OAuth.ClientID == "" || c.SMTP.OAuth.ClientSecret == "" || c.SMTP.OAuth.RefreshToken == "" {
			return fmt.Errorf("xoauth2 auth requires oauth client_id, client_secret and refresh_token")
		}
	}
	return nil
}
