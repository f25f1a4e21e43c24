package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{URL: "postgres://localhost/predict"}.withDefaults()

	assert.Equal(t, 5, cfg.MaxIdleConns)
	assert.Equal(t, 25, cfg.MaxOpenConns)
	assert.Equal(t, 30*time.Minute, cfg.ConnMaxLifetime)
}

func TestConfigWithDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := Config{
		URL:             "postgres://localhost/predict",
		MaxIdleConns:    2,
		MaxOpenConns:    8,
		ConnMaxLifetime: time.Hour,
	}.withDefaults()

	assert.Equal(t, 2, cfg.MaxIdleConns)
	assert.Equal(t, 8, cfg.MaxOpenConns)
	assert.Equal(t, time.Hour, cfg.ConnMaxLifetime)
}
