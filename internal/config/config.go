package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	APIPort     int            `mapstructure:"apiPort"`
	Environment string         `mapstructure:"environment"`
	Database    DatabaseConfig `mapstructure:"database"`
	Domains     struct {
		Portal string `mapstructure:"portal"`
		API    string `mapstructure:"api"`
		Secure bool   `mapstructure:"secure"`
	} `mapstructure:"domains"`
	Auth      AuthConfig     `mapstructure:"auth"`
	Email     EmailConfig    `mapstructure:"email"`
	PayPal    PayPalConfig   `mapstructure:"paypal"`
	Stripe    StripeConfig   `mapstructure:"stripe"`
	S3        S3Config       `mapstructure:"s3"`
	Redis     RedisConfig    `mapstructure:"redis"`
	Reminders ReminderConfig `mapstructure:"reminders"`
}

// DatabaseConfig selects the SQL backend. Type is "sqlite" (default) or "postgres".
type DatabaseConfig struct {
	Type     string `mapstructure:"type"`
	Path     string `mapstructure:"path"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslMode"`
	MaxConns int    `mapstructure:"maxConns"`
	MaxIdle  int    `mapstructure:"maxIdle"`

	MaxRetries int           `mapstructure:"maxRetries"`
	RetryDelay time.Duration `mapstructure:"retryDelay"`
}

// DSN returns the PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// AuthConfig holds the OAuth2 identity provider settings and the cookie secrets.
type AuthConfig struct {
	ClientID      string        `mapstructure:"clientID"`
	ClientSecret  string        `mapstructure:"clientSecret"`
	AuthURL       string        `mapstructure:"authURL"`
	TokenURL      string        `mapstructure:"tokenURL"`
	UserInfoURL   string        `mapstructure:"userInfoURL"`
	RedirectURL   string        `mapstructure:"redirectURL"`
	Scopes        []string      `mapstructure:"scopes"`
	SessionSecret string        `mapstructure:"sessionSecret"`
	StateSecret   string        `mapstructure:"stateSecret"`
	SessionTTL    time.Duration `mapstructure:"sessionTTL"`
}

// MinSecretLength is the shortest cookie or state secret accepted outside development.
const MinSecretLength = 32

var ErrWeakSecret = errors.New("auth secret is too short")

// CheckSecrets rejects missing or short signing secrets. In development an empty
// session secret is replaced by a random one that lives for this process only.
func (c *AuthConfig) CheckSecrets(development bool) error {
	if c.SessionSecret == "" && development {
		secret, err := randomSecret()
		if err != nil {
			return err
		}
		c.SessionSecret = secret
		log.Warn().Msg("auth.sessionSecret not set, using a generated secret; sessions will not survive a restart")
	}
	if development {
		return nil
	}
	if len(c.SessionSecret) < MinSecretLength {
		return fmt.Errorf("auth.sessionSecret: %w (need at least %d bytes)", ErrWeakSecret, MinSecretLength)
	}
	if c.StateSecret != "" && len(c.StateSecret) < MinSecretLength {
		return fmt.Errorf("auth.stateSecret: %w (need at least %d bytes)", ErrWeakSecret, MinSecretLength)
	}
	return nil
}

func randomSecret() (string, error) {
	b := make([]byte, MinSecretLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

type EmailConfig struct {
	SendGridAPIKey string `mapstructure:"sendgridAPIKey"`
	From           string `mapstructure:"from"`
	FromName       string `mapstructure:"fromName"`
}

// PayPalConfig configures the Orders v2 client. VerifyCapture makes subscription
// activation confirm the order with PayPal instead of trusting the client.
type PayPalConfig struct {
	ClientID      string `mapstructure:"clientID"`
	ClientSecret  string `mapstructure:"clientSecret"`
	BaseURL       string `mapstructure:"baseURL"`
	VerifyCapture bool   `mapstructure:"verifyCapture"`
	PlanAmount    string `mapstructure:"planAmount"`
	Currency      string `mapstructure:"currency"`
}

type StripeConfig struct {
	WebhookSecret string `mapstructure:"webhookSecret"`
}

type S3Config struct {
	Endpoint        string        `mapstructure:"endpoint"`
	Region          string        `mapstructure:"region"`
	Bucket          string        `mapstructure:"bucket"`
	AccessKeyID     string        `mapstructure:"accessKeyID"`
	SecretAccessKey string        `mapstructure:"secretAccessKey"`
	LinkTTL         time.Duration `mapstructure:"linkTTL"`
}

// Enabled reports whether export uploads can be served.
func (c S3Config) Enabled() bool {
	return c.Bucket != "" && c.AccessKeyID != ""
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ReminderConfig drives the background dispatch worker.
type ReminderConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Interval       time.Duration `mapstructure:"interval"`
	LeadTime       time.Duration `mapstructure:"leadTime"`
	BatchSize      int           `mapstructure:"batchSize"`
	Lease          time.Duration `mapstructure:"lease"`
	SendsPerSecond float64       `mapstructure:"sendsPerSecond"`
}

// LoadConfig loads the configuration from file and environment variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		log.Warn().Err(err).Msg("could not read config file, using defaults and environment")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	applyFallbacks(v, &cfg)

	log.Info().
		Int("apiPort", cfg.APIPort).
		Str("environment", cfg.Environment).
		Str("database", cfg.Database.Type).
		Bool("reminders", cfg.Reminders.Enabled).
		Msg("configuration loaded")
	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("apiPort", 8081)
	v.SetDefault("environment", "development")

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.path", "/data/contentplanner.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "contentplanner")
	v.SetDefault("database.user", "contentplanner")
	v.SetDefault("database.password", "")
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.maxConns", 10)
	v.SetDefault("database.maxIdle", 5)
	v.SetDefault("database.maxRetries", 5)
	v.SetDefault("database.retryDelay", "2s")

	v.SetDefault("domains.portal", "app.contentplanner.local")
	v.SetDefault("domains.api", "api.contentplanner.local")

	v.SetDefault("auth.clientID", "")
	v.SetDefault("auth.clientSecret", "")
	v.SetDefault("auth.authURL", "")
	v.SetDefault("auth.tokenURL", "")
	v.SetDefault("auth.userInfoURL", "")
	v.SetDefault("auth.redirectURL", "http://localhost:8081/api/callback")
	v.SetDefault("auth.scopes", []string{"openid", "email", "profile"})
	v.SetDefault("auth.sessionSecret", "")
	v.SetDefault("auth.stateSecret", "")
	v.SetDefault("auth.sessionTTL", "168h")

	v.SetDefault("email.sendgridAPIKey", "")
	v.SetDefault("email.from", "noreply@contentplanner.com")
	v.SetDefault("email.fromName", "Content Planner")

	v.SetDefault("paypal.clientID", "")
	v.SetDefault("paypal.clientSecret", "")
	v.SetDefault("paypal.baseURL", "https://api-m.sandbox.paypal.com")
	v.SetDefault("paypal.verifyCapture", false)
	v.SetDefault("paypal.planAmount", "9.99")
	v.SetDefault("paypal.currency", "USD")

	v.SetDefault("stripe.webhookSecret", "")

	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.accessKeyID", "")
	v.SetDefault("s3.secretAccessKey", "")
	v.SetDefault("s3.linkTTL", "15m")

	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("reminders.enabled", true)
	v.SetDefault("reminders.interval", "1m")
	v.SetDefault("reminders.leadTime", "24h")
	v.SetDefault("reminders.batchSize", 50)
	v.SetDefault("reminders.lease", "5m")
	v.SetDefault("reminders.sendsPerSecond", 5.0)
}

// applyFallbacks covers values that an explicit zero in the file would otherwise break.
func applyFallbacks(v *viper.Viper, cfg *Config) {
	if cfg.APIPort == 0 {
		cfg.APIPort = 8081
		log.Info().Msg("apiPort not specified, using default 8081")
	}
	if cfg.Database.Type == "" {
		cfg.Database.Type = "sqlite"
	}
	if cfg.Reminders.Interval <= 0 {
		cfg.Reminders.Interval = time.Minute
	}
	if cfg.Reminders.BatchSize <= 0 {
		cfg.Reminders.BatchSize = 50
	}
	if cfg.Reminders.Lease <= 0 {
		cfg.Reminders.Lease = 5 * time.Minute
	}
	if cfg.Auth.SessionTTL <= 0 {
		cfg.Auth.SessionTTL = 7 * 24 * time.Hour
	}

	// Only set secure default if it wasn't specified in the config file
	if !v.IsSet("domains.secure") {
		env := os.Getenv("CONTENTPLANNER_ENV")
		if env == "" {
			env = cfg.Environment
		}
		cfg.Domains.Secure = env == "prod" || env == "production"
	}
}

// IsDevelopment reports whether local-only conveniences may be enabled.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "" || c.Environment == "development" || c.Environment == "dev"
}
