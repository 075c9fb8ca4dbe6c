package config

import (
	"path/filepath"
	"time"

	"grimm.is/firegate/internal/brand"
)

// Defaults applied to fields left empty.
const (
	DefaultPort           = 81
	DefaultGrantDuration  = 24 * time.Hour
	DefaultSweepInterval  = 10 * time.Minute
	DefaultCommandTimeout = 5 * time.Second
	DefaultFirewallCmd    = "firewall-cmd"
	DefaultMaxConnections = 256
	DefaultRetentionDays  = 90
	AuditFileName         = "audit.db"
)

// Config is the complete daemon configuration.
type Config struct {
	// HTTP listener
	Port     int    `hcl:"port,optional" json:"port,omitempty" yaml:"port,omitempty"`
	Endpoint string `hcl:"endpoint,optional" json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Test     bool   `hcl:"test,optional" json:"test,omitempty" yaml:"test,omitempty"`

	// Authentication. With Plain the secret is compared as a request
	// parameter, otherwise an X-Hub-Signature HMAC is expected.
	Secret string `hcl:"secret,optional" json:"secret,omitempty" yaml:"secret,omitempty"`
	Plain  bool   `hcl:"plain,optional" json:"plain,omitempty" yaml:"plain,omitempty"`

	// Zone used when a request names none.
	Zone string `hcl:"zone,optional" json:"zone,omitempty" yaml:"zone,omitempty"`

	// Folder holds iptable.json and, by default, the audit database.
	Folder string `hcl:"folder,optional" json:"folder,omitempty" yaml:"folder,omitempty"`

	Logs    bool `hcl:"logs,optional" json:"logs,omitempty" yaml:"logs,omitempty"`
	LogJSON bool `hcl:"log_json,optional" json:"log_json,omitempty" yaml:"log_json,omitempty"`

	GrantDuration  string `hcl:"grant_duration,optional" json:"grant_duration,omitempty" yaml:"grant_duration,omitempty"`
	SweepInterval  string `hcl:"sweep_interval,optional" json:"sweep_interval,omitempty" yaml:"sweep_interval,omitempty"`
	CommandTimeout string `hcl:"command_timeout,optional" json:"command_timeout,omitempty" yaml:"command_timeout,omitempty"`

	DryRun      bool   `hcl:"dry_run,optional" json:"dry_run,omitempty" yaml:"dry_run,omitempty"`
	FirewallCmd string `hcl:"firewall_cmd,optional" json:"firewall_cmd,omitempty" yaml:"firewall_cmd,omitempty"`

	MaxConnections int   `hcl:"max_connections,optional" json:"max_connections,omitempty" yaml:"max_connections,omitempty"`
	RateLimit      int   `hcl:"rate_limit,optional" json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"` // grants per client per minute, 0 = off
	TrustProxy     *bool `hcl:"trust_proxy,optional" json:"trust_proxy,omitempty" yaml:"trust_proxy,omitempty"`
	Metrics        bool  `hcl:"metrics,optional" json:"metrics,omitempty" yaml:"metrics,omitempty"`

	Audit *AuditConfig `hcl:"audit,block" json:"audit,omitempty" yaml:"audit,omitempty"`
}

// AuditConfig controls the sqlite grant history.
type AuditConfig struct {
	Enabled       bool   `hcl:"enabled,optional" json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Path          string `hcl:"path,optional" json:"path,omitempty" yaml:"path,omitempty"`
	RetentionDays int    `hcl:"retention_days,optional" json:"retention_days,omitempty" yaml:"retention_days,omitempty"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills empty fields.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Folder == "" {
		c.Folder = brand.GetStateDir()
	}
	if c.GrantDuration == "" {
		c.GrantDuration = DefaultGrantDuration.String()
	}
	if c.SweepInterval == "" {
		c.SweepInterval = DefaultSweepInterval.String()
	}
	if c.CommandTimeout == "" {
		c.CommandTimeout = DefaultCommandTimeout.String()
	}
	if c.FirewallCmd == "" {
		c.FirewallCmd = DefaultFirewallCmd
	}
	if c.MaxConnections == 0 {
		c.MaxConnections = DefaultMaxConnections
	}
	if c.Audit != nil {
		if c.Audit.Path == "" {
			c.Audit.Path = filepath.Join(c.Folder, AuditFileName)
		}
		if c.Audit.RetentionDays == 0 {
			c.Audit.RetentionDays = DefaultRetentionDays
		}
	}
}

// GrantWindow is how long a grant lasts.
func (c *Config) GrantWindow() time.Duration {
	return parseOr(c.GrantDuration, DefaultGrantDuration)
}

// SweepEvery is the expiry sweep interval.
func (c *Config) SweepEvery() time.Duration {
	return parseOr(c.SweepInterval, DefaultSweepInterval)
}

// ToolTimeout bounds a single firewall-cmd invocation.
func (c *Config) ToolTimeout() time.Duration {
	return parseOr(c.CommandTimeout, DefaultCommandTimeout)
}

// TrustsProxy reports whether X-Forwarded-For identifies the client.
// It defaults to true.
func (c *Config) TrustsProxy() bool {
	return c.TrustProxy == nil || *c.TrustProxy
}

// AuditEnabled reports whether grant history is recorded.
func (c *Config) AuditEnabled() bool {
	return c.Audit != nil && c.Audit.Enabled
}

func parseOr(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
