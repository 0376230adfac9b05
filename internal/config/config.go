package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// DefaultSecretKey is the development signing secret. Any real deployment must override SECRET_KEY.
const DefaultSecretKey = "dev-secret-key-change-in-production"

// Config holds the runtime settings of the service.
type Config struct {
	AppPort string

	SecretKey       string
	TokenTTL        time.Duration
	BcryptCost      int
	AcceptPrehashed bool
	SeedDemoUser    bool

	ModelPath string

	DBDriver    string
	DatabaseDSN string

	RabbitMQURL string

	BatchWorkers   int
	UploadMaxBytes int

	CORSAllowOrigins string
	StaticDir        string

	LogLevel  string
	LogFormat string
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8000")
	v.SetDefault("SECRET_KEY", DefaultSecretKey)
	v.SetDefault("ACCESS_TOKEN_EXPIRE_MINUTES", 60)
	v.SetDefault("AUTH_BCRYPT_COST", bcrypt.DefaultCost)
	v.SetDefault("AUTH_ACCEPT_PREHASHED", true)
	v.SetDefault("SEED_DEMO_USER", false)
	v.SetDefault("MODEL_PATH", "models/gradient_boosting_model.yaml")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "oncoai.db")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("PREDICT_BATCH_WORKERS", 4)
	v.SetDefault("UPLOAD_MAX_BYTES", 10*1024*1024)
	v.SetDefault("CORS_ALLOW_ORIGINS", "*")
	v.SetDefault("STATIC_DIR", "static")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
}

// Load reads the configuration from v, which is expected to have defaults set
// and AutomaticEnv enabled.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		AppPort:          v.GetString("APP_PORT"),
		SecretKey:        v.GetString("SECRET_KEY"),
		TokenTTL:         time.Duration(v.GetInt("ACCESS_TOKEN_EXPIRE_MINUTES")) * time.Minute,
		BcryptCost:       v.GetInt("AUTH_BCRYPT_COST"),
		AcceptPrehashed:  v.GetBool("AUTH_ACCEPT_PREHASHED"),
		SeedDemoUser:     v.GetBool("SEED_DEMO_USER"),
		ModelPath:        v.GetString("MODEL_PATH"),
		DBDriver:         strings.ToLower(strings.TrimSpace(v.GetString("DB_DRIVER"))),
		DatabaseDSN:      v.GetString("DATABASE_DSN"),
		RabbitMQURL:      v.GetString("RABBITMQ_URL"),
		BatchWorkers:     v.GetInt("PREDICT_BATCH_WORKERS"),
		UploadMaxBytes:   v.GetInt("UPLOAD_MAX_BYTES"),
		CORSAllowOrigins: v.GetString("CORS_ALLOW_ORIGINS"),
		StaticDir:        v.GetString("STATIC_DIR"),
		LogLevel:         v.GetString("LOG_LEVEL"),
		LogFormat:        v.GetString("LOG_FORMAT"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c Config) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("SECRET_KEY must not be empty")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES must be positive")
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("AUTH_BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	switch c.DBDriver {
	case "sqlite", "postgres", "memory":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.BatchWorkers < 1 {
		return fmt.Errorf("PREDICT_BATCH_WORKERS must be at least 1")
	}
	if c.UploadMaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive")
	}
	return nil
}

// UsesDefaultSecret reports whether the insecure development secret is in effect.
func (c Config) UsesDefaultSecret() bool {
	return c.SecretKey == DefaultSecretKey
}
