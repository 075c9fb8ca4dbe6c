package config

import (
	"fmt"
	"strings"
	"time"

	"grimm.is/firegate/internal/validation"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() error {
	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if err := validation.ValidatePortNumber(c.Port); err != nil {
		add("port", "%v", err)
	}
	if c.Zone != "" {
		if err := validation.ValidateZone(c.Zone); err != nil {
			add("zone", "%v", err)
		}
	}
	if err := validation.ValidateEndpoint(c.Endpoint); err != nil {
		add("endpoint", "%v", err)
	}
	if c.Folder == "" {
		add("folder", "must not be empty")
	}
	if c.FirewallCmd == "" {
		add("firewall_cmd", "must not be empty")
	}
	if c.Plain && c.Secret == "" {
		add("plain", "requires a secret")
	}

	for _, d := range []struct{ field, value string }{
		{"grant_duration", c.GrantDuration},
		{"sweep_interval", c.SweepInterval},
		{"command_timeout", c.CommandTimeout},
	} {
		if d.value == "" {
			continue
		}
		v, err := time.ParseDuration(d.value)
		if err != nil {
			add(d.field, "invalid duration %q", d.value)
		} else if v <= 0 {
			add(d.field, "must be positive")
		}
	}

	if c.RateLimit < 0 {
		add("rate_limit", "must not be negative")
	}
	if c.MaxConnections < 0 {
		add("max_connections", "must not be negative")
	}
	if c.Audit != nil && c.Audit.RetentionDays < 0 {
		add("audit.retention_days", "must not be negative")
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
