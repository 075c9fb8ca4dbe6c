package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"port too high", func(c *Config) { c.Port = 70000 }, "port"},
		{"bad zone", func(c *Config) { c.Zone = "pub;lic" }, "zone"},
		{"endpoint without slash", func(c *Config) { c.Endpoint = "api" }, "endpoint"},
		{"endpoint trailing slash", func(c *Config) { c.Endpoint = "/api/" }, "endpoint"},
		{"bad duration", func(c *Config) { c.GrantDuration = "forever" }, "grant_duration"},
		{"negative interval", func(c *Config) { c.SweepInterval = "-1m" }, "sweep_interval"},
		{"zero timeout", func(c *Config) { c.CommandTimeout = "0s" }, "command_timeout"},
		{"negative rate", func(c *Config) { c.RateLimit = -1 }, "rate_limit"},
		{"plain without secret", func(c *Config) { c.Plain = true }, "plain"},
		{"negative retention", func(c *Config) { c.Audit = &AuditConfig{RetentionDays: -1} }, "audit.retention_days"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var verrs ValidationErrors
			require.True(t, errors.As(err, &verrs))
			require.Len(t, verrs, 1)
			assert.Equal(t, tt.field, verrs[0].Field)
		})
	}
}

func TestValidate_CollectsAll(t *testing.T) {
	cfg := Default()
	cfg.Port = 0
	cfg.Endpoint = "x"

	err := cfg.Validate()
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Len(t, verrs, 2)
	assert.Contains(t, err.Error(), "port")
	assert.Contains(t, err.Error(), "endpoint")
}
