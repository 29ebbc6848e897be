package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvProduction = "production"

	TelegramModeWebhook = "webhook"
	TelegramModePolling = "polling"
)

type Config struct {
	Server          ServerConfig          `mapstructure:"server"`
	Database        DatabaseConfig        `mapstructure:"database"`
	Redis           RedisConfig           `mapstructure:"redis"`
	NATS            NATSConfig            `mapstructure:"nats"`
	Log             LogConfig             `mapstructure:"log"`
	App             AppConfig             `mapstructure:"app"`
	GoogleFactCheck GoogleFactCheckConfig `mapstructure:"google_fact_check"`
	Telegram        TelegramConfig        `mapstructure:"telegram"`
	WhatsApp        WhatsAppConfig        `mapstructure:"whatsapp"`
	Discord         DiscordConfig         `mapstructure:"discord"`
	JWT             JWTConfig             `mapstructure:"jwt"`
	RateLimit       RateLimitConfig       `mapstructure:"rate_limit"`
	Verifier        VerifierConfig        `mapstructure:"verifier"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	DBName        string `mapstructure:"dbname"`
	SSLMode       string `mapstructure:"sslmode"`
	MigrationsDir string `mapstructure:"migrations_dir"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type GoogleFactCheckConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	APIURL  string        `mapstructure:"api_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	APIURL   string `mapstructure:"api_url"`
	// webhook или polling
	Mode string `mapstructure:"mode"`
}

type WhatsAppConfig struct {
	Token         string `mapstructure:"token"`
	APIURL        string `mapstructure:"api_url"`
	PhoneNumberID string `mapstructure:"phone_number_id"`
	VerifyToken   string `mapstructure:"verify_token"`
}

type DiscordConfig struct {
	BotToken string `mapstructure:"bot_token"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type RateLimitConfig struct {
	Window             time.Duration `mapstructure:"window"`
	MaxRequests        int           `mapstructure:"max_requests"`
	WebhookWindow      time.Duration `mapstructure:"webhook_window"`
	WebhookMaxRequests int           `mapstructure:"webhook_max_requests"`
}

type VerifierConfig struct {
	DedupeInFlight bool `mapstructure:"dedupe_in_flight"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "factcheck")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.migrations_dir", "migrations")

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("nats.url", "nats://localhost:4222")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)

	v.SetDefault("app.env", "development")

	v.SetDefault("google_fact_check.api_key", "")
	v.SetDefault("google_fact_check.api_url", "https://factchecktools.googleapis.com/v1alpha1")
	v.SetDefault("google_fact_check.timeout", 10*time.Second)

	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.api_url", "https://api.telegram.org/bot%s/%s")
	v.SetDefault("telegram.mode", TelegramModeWebhook)

	v.SetDefault("whatsapp.token", "")
	v.SetDefault("whatsapp.api_url", "https://graph.facebook.com/v18.0")
	v.SetDefault("whatsapp.phone_number_id", "")
	v.SetDefault("whatsapp.verify_token", "")

	v.SetDefault("discord.bot_token", "")
	v.SetDefault("jwt.secret", "")

	v.SetDefault("rate_limit.window", 15*time.Minute)
	v.SetDefault("rate_limit.max_requests", 100)
	v.SetDefault("rate_limit.webhook_window", time.Minute)
	v.SetDefault("rate_limit.webhook_max_requests", 20)

	v.SetDefault("verifier.dedupe_in_flight", false)
}

// Load читает конфигурацию из .env, переменных окружения и значений по умолчанию.
func Load() (*Config, error) {
	// .env не обязателен
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.IsProduction() && c.JWT.Secret == "" {
		return fmt.Errorf("jwt secret is required in production")
	}
	switch c.Telegram.Mode {
	case TelegramModeWebhook, TelegramModePolling:
	default:
		return fmt.Errorf("invalid telegram mode %q", c.Telegram.Mode)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Env == EnvProduction
}

func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
