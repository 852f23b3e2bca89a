// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbotia/lab5/internal/platform/config"
)

func TestLoad_DefaultsAndRequired(t *testing.T) {
	t.Setenv("JWT_PRIVATE_KEY_PATH", "/keys/private.pem")
	t.Setenv("JWT_PUBLIC_KEY_PATH", "/keys/public.pem")
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, 24*time.Hour, cfg.TokenValidity)
	assert.Equal(t, 720*time.Hour, cfg.TokenValidityRememberMe)
	assert.Equal(t, 24*time.Hour, cfg.ResetKeyValidity)
	assert.Equal(t, 4, cfg.PasswordMinLength)
	assert.Equal(t, 100, cfg.PasswordMaxLength)
	assert.Equal(t, 72*time.Hour, cfg.UnactivatedAccountTTL)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_MissingKeys(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() config.Config {
		return config.Config{
			StoreDriver:             config.DriverMemory,
			TokenValidity:           time.Hour,
			TokenValidityRememberMe: 2 * time.Hour,
			ResetKeyValidity:        time.Hour,
			PasswordMinLength:       4,
			PasswordMaxLength:       100,
			HashMemoryKiB:           1024,
			HashIterations:          1,
			HashParallelism:         1,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr bool
	}{
		{"valid", func(*config.Config) {}, false},
		{"postgres without url", func(c *config.Config) { c.StoreDriver = config.DriverPostgres }, true},
		{"postgres with url", func(c *config.Config) {
			c.StoreDriver = config.DriverPostgres
			c.DatabaseURL = "postgres://localhost/accounts"
		}, false},
		{"sqlite without path", func(c *config.Config) { c.StoreDriver = config.DriverSQLite }, true},
		{"unknown driver", func(c *config.Config) { c.StoreDriver = "mongo" }, true},
		{"min above max", func(c *config.Config) { c.PasswordMinLength = 200 }, true},
		{"remember-me not longer", func(c *config.Config) { c.TokenValidityRememberMe = time.Hour }, true},
		{"zero hash memory", func(c *config.Config) { c.HashMemoryKiB = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
