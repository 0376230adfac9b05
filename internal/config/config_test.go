package config_test

import (
	"testing"
	"time"

	"oncoai/internal/config"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper() *viper.Viper {
	v := viper.New()
	config.SetDefaults(v)
	return v
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(newViper())
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.AppPort)
	assert.Equal(t, 60*time.Minute, cfg.TokenTTL)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 4, cfg.BatchWorkers)
	assert.True(t, cfg.AcceptPrehashed)
	assert.True(t, cfg.UsesDefaultSecret())
}

func TestLoad_Overrides(t *testing.T) {
	v := newViper()
	v.Set("SECRET_KEY", "prod-secret")
	v.Set("ACCESS_TOKEN_EXPIRE_MINUTES", 15)
	v.Set("DB_DRIVER", "Postgres")

	cfg, err := config.Load(v)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, cfg.TokenTTL)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.False(t, cfg.UsesDefaultSecret())
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]func(v *viper.Viper){
		"empty secret": func(v *viper.Viper) { v.Set("SECRET_KEY", "") },
		"zero ttl":     func(v *viper.Viper) { v.Set("ACCESS_TOKEN_EXPIRE_MINUTES", 0) },
		"bad driver":   func(v *viper.Viper) { v.Set("DB_DRIVER", "mysql") },
		"no workers":   func(v *viper.Viper) { v.Set("PREDICT_BATCH_WORKERS", 0) },
		"bcrypt cost":  func(v *viper.Viper) { v.Set("AUTH_BCRYPT_COST", 99) },
		"upload limit": func(v *viper.Viper) { v.Set("UPLOAD_MAX_BYTES", -1) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			v := newViper()
			mutate(v)
			_, err := config.Load(v)
			assert.Error(t, err)
		})
	}
}
