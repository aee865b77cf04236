package app

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Mail drivers selectable with VAULT_MAIL_DRIVER.
const (
	MailDriverSMTP = "smtp"
	MailDriverAMQP = "amqp"
	MailDriverLog  = "log"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Env                 string        `mapstructure:"ENV"`
	LogLevel            string        `mapstructure:"LOG_LEVEL"`
	LogFormat           string        `mapstructure:"LOG_FORMAT"`
	Port                int           `mapstructure:"PORT"`
	ShutdownGracePeriod time.Duration `mapstructure:"SHUTDOWN_GRACE_PERIOD"`
	CORSAllowedOrigins  []string      `mapstructure:"CORS_ALLOWED_ORIGINS"`

	// DatabaseURL is a SQLite file path or a postgres:// URL.
	DatabaseURL string `mapstructure:"VAULT_DATABASE_URL"`

	PepperFile       string        `mapstructure:"VAULT_PEPPER_FILE"`
	Hasher           string        `mapstructure:"VAULT_HASHER"`
	BcryptCost       int           `mapstructure:"VAULT_BCRYPT_COST"`
	HashConcurrency  int           `mapstructure:"VAULT_HASH_CONCURRENCY"`
	FreshnessWindow  time.Duration `mapstructure:"VAULT_FRESHNESS_WINDOW"`
	ResetTTL         time.Duration `mapstructure:"VAULT_RESET_TTL"`
	LockoutThreshold int           `mapstructure:"VAULT_LOCKOUT_THRESHOLD"`
	LockoutWindow    time.Duration `mapstructure:"VAULT_LOCKOUT_WINDOW"`
	RedisURL         string        `mapstructure:"REDIS_URL"` // optional, lockout is off without it

	JWTSecret string `mapstructure:"VAULT_JWT_SECRET"`
	JWTIssuer string `mapstructure:"VAULT_JWT_ISSUER"`

	WebAuthnRPID     string        `mapstructure:"VAULT_WEBAUTHN_RP_ID"`
	WebAuthnRPName   string        `mapstructure:"VAULT_WEBAUTHN_RP_NAME"`
	WebAuthnOrigins  []string      `mapstructure:"VAULT_WEBAUTHN_ORIGINS"`
	WebAuthnTimeout  time.Duration `mapstructure:"VAULT_WEBAUTHN_TIMEOUT"`
	MailDriver       string        `mapstructure:"VAULT_MAIL_DRIVER"`
	SMTPHost         string        `mapstructure:"SMTP_HOST"`
	SMTPPort         int           `mapstructure:"SMTP_PORT"`
	SMTPUser         string        `mapstructure:"SMTP_USER"`
	SMTPPassword     string        `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom         string        `mapstructure:"SMTP_FROM"`
	RabbitMQURL      string        `mapstructure:"RABBITMQ_URL"`
	MailExchange     string        `mapstructure:"VAULT_MAIL_EXCHANGE"`
	MailRoutingKey   string        `mapstructure:"VAULT_MAIL_ROUTING_KEY"`
	HousekeepingCron string        `mapstructure:"HOUSEKEEPING_SCHEDULE"`
}

var defaults = map[string]any{
	"ENV":                     "dev",
	"LOG_LEVEL":               "info",
	"LOG_FORMAT":              "json",
	"PORT":                    8080,
	"SHUTDOWN_GRACE_PERIOD":   "10s",
	"CORS_ALLOWED_ORIGINS":    "",
	"VAULT_DATABASE_URL":      "vault.db",
	"VAULT_PEPPER_FILE":       "pepper",
	"VAULT_HASHER":            "bcrypt",
	"VAULT_BCRYPT_COST":       12,
	"VAULT_HASH_CONCURRENCY":  4,
	"VAULT_FRESHNESS_WINDOW":  "3h",
	"VAULT_RESET_TTL":         "1h",
	"VAULT_LOCKOUT_THRESHOLD": 5,
	"VAULT_LOCKOUT_WINDOW":    "15m",
	"REDIS_URL":               "",
	"VAULT_JWT_SECRET":        "",
	"VAULT_JWT_ISSUER":        "vault-auth",
	"VAULT_WEBAUTHN_RP_ID":    "",
	"VAULT_WEBAUTHN_RP_NAME":  "Vault",
	"VAULT_WEBAUTHN_ORIGINS":  "",
	"VAULT_WEBAUTHN_TIMEOUT":  "5m",
	"VAULT_MAIL_DRIVER":       MailDriverLog,
	"SMTP_HOST":               "",
	"SMTP_PORT":               587,
	"SMTP_USER":               "",
	"SMTP_PASSWORD":           "",
	"SMTP_FROM":               "",
	"RABBITMQ_URL":            "",
	"VAULT_MAIL_EXCHANGE":     "notifications",
	"VAULT_MAIL_ROUTING_KEY":  "vault.mail.reset",
	"HOUSEKEEPING_SCHEDULE":   "@every 1h",
}

// LoadConfig reads the configuration from the environment. A .env file in the
// working directory is loaded first when present; real environment variables
// win over it.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
		// Bind explicitly so Unmarshal sees keys only present in the env.
		_ = v.BindEnv(key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	cfg.CORSAllowedOrigins = splitList(cfg.CORSAllowedOrigins)
	cfg.WebAuthnOrigins = splitList(cfg.WebAuthnOrigins)
	cfg.MailDriver = strings.ToLower(strings.TrimSpace(cfg.MailDriver))

	return cfg, nil
}

// Validate rejects configurations the service cannot start with.
func (c Config) Validate() error {
	var problems []string

	if len(c.JWTSecret) < 32 {
		problems = append(problems, "VAULT_JWT_SECRET must be at least 32 bytes")
	}
	if c.WebAuthnRPID == "" {
		problems = append(problems, "VAULT_WEBAUTHN_RP_ID is required")
	}
	if c.WebAuthnRPName == "" {
		problems = append(problems, "VAULT_WEBAUTHN_RP_NAME is required")
	}
	if len(c.WebAuthnOrigins) == 0 {
		problems = append(problems, "VAULT_WEBAUTHN_ORIGINS is required")
	}

	switch c.MailDriver {
	case MailDriverSMTP:
		if c.SMTPHost == "" || c.SMTPFrom == "" {
			problems = append(problems, "SMTP_HOST and SMTP_FROM are required for the smtp mail driver")
		}
	case MailDriverAMQP:
		if c.RabbitMQURL == "" {
			problems = append(problems, "RABBITMQ_URL is required for the amqp mail driver")
		}
	case MailDriverLog:
	default:
		problems = append(problems, fmt.Sprintf("unknown VAULT_MAIL_DRIVER %q", c.MailDriver))
	}

	if c.RedisURL != "" && (c.LockoutThreshold < 1 || c.LockoutWindow <= 0) {
		problems = append(problems, "VAULT_LOCKOUT_THRESHOLD and VAULT_LOCKOUT_WINDOW must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// splitList trims entries and drops empty ones; viper leaves a single empty
// string for an unset list.
func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
