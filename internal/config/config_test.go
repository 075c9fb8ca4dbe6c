package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func clearOverrides(t *testing.T) {
	t.Helper()
	for _, name := range []string{"SECRET", "ZONE", "PORT", "FOLDER", "STATE_DIR"} {
		t.Setenv(EnvVar(name), "")
		os.Unsetenv(EnvVar(name))
	}
}

func TestDefault(t *testing.T) {
	clearOverrides(t)
	cfg := Default()

	assert.Equal(t, 81, cfg.Port)
	assert.Equal(t, "", cfg.Endpoint)
	assert.Equal(t, "/var/lib/firegate", cfg.Folder)
	assert.Equal(t, 24*time.Hour, cfg.GrantWindow())
	assert.Equal(t, 10*time.Minute, cfg.SweepEvery())
	assert.Equal(t, 5*time.Second, cfg.ToolTimeout())
	assert.Equal(t, "firewall-cmd", cfg.FirewallCmd)
	assert.True(t, cfg.TrustsProxy())
	assert.False(t, cfg.AuditEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoadHCL(t *testing.T) {
	clearOverrides(t)
	t.Setenv("TEST_WEBHOOK_SECRET", "s3cret")
	dir := t.TempDir()
	path := writeFile(t, dir, "firegate.hcl", `
port            = 8081
secret          = env("TEST_WEBHOOK_SECRET")
zone            = "public"
endpoint        = "/firewall"
folder          = "`+dir+`"
grant_duration  = "2h"
sweep_interval  = "1m"
command_timeout = "3s"
trust_proxy     = false
rate_limit      = 10
metrics         = true

audit {
  enabled        = true
  retention_days = 30
}
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Port)
	assert.Equal(t, "s3cret", cfg.Secret)
	assert.Equal(t, "public", cfg.Zone)
	assert.Equal(t, "/firewall", cfg.Endpoint)
	assert.Equal(t, 2*time.Hour, cfg.GrantWindow())
	assert.Equal(t, time.Minute, cfg.SweepEvery())
	assert.Equal(t, 3*time.Second, cfg.ToolTimeout())
	assert.False(t, cfg.TrustsProxy())
	assert.Equal(t, 10, cfg.RateLimit)
	assert.True(t, cfg.Metrics)
	require.True(t, cfg.AuditEnabled())
	assert.Equal(t, filepath.Join(dir, AuditFileName), cfg.Audit.Path)
	assert.Equal(t, 30, cfg.Audit.RetentionDays)
}

func TestLoadJSONAndYAML(t *testing.T) {
	clearOverrides(t)
	dir := t.TempDir()

	jsonPath := writeFile(t, dir, "firegate.json", `{"port": 9000, "zone": "internal", "plain": true, "secret": "x"}`)
	cfg, err := Load(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "internal", cfg.Zone)
	assert.True(t, cfg.Plain)

	yamlPath := writeFile(t, dir, "firegate.yaml", "port: 9001\nzone: trusted\nlogs: true\naudit:\n  enabled: true\n")
	cfg, err = Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, 9001, cfg.Port)
	assert.Equal(t, "trusted", cfg.Zone)
	assert.True(t, cfg.Logs)
	assert.True(t, cfg.AuditEnabled())
	assert.Equal(t, DefaultRetentionDays, cfg.Audit.RetentionDays)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	clearOverrides(t)
	dir := t.TempDir()

	_, err := Load(writeFile(t, dir, "a.json", `{"prot": 80}`))
	assert.Error(t, err)
	_, err = Load(writeFile(t, dir, "a.yaml", "prot: 80\n"))
	assert.Error(t, err)
	_, err = Load(writeFile(t, dir, "a.hcl", "prot = 80\n"))
	assert.Error(t, err)
}

func TestLoadUnknownExtensionFallsBackToJSON(t *testing.T) {
	clearOverrides(t)
	cfg, err := LoadFile(writeFile(t, t.TempDir(), "firegate.conf", `{"port": 8443}`))
	require.NoError(t, err)
	assert.Equal(t, 8443, cfg.Port)
}

func TestEnvOverrides(t *testing.T) {
	clearOverrides(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "firegate.hcl", "port = 8081\nzone = \"public\"\n")

	t.Setenv(EnvVar("PORT"), "9090")
	t.Setenv(EnvVar("ZONE"), "trusted")
	t.Setenv(EnvVar("SECRET"), "fromenv")
	t.Setenv(EnvVar("FOLDER"), dir)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "trusted", cfg.Zone)
	assert.Equal(t, "fromenv", cfg.Secret)
	assert.Equal(t, dir, cfg.Folder)

	t.Setenv(EnvVar("PORT"), "eighty")
	_, err = Load(path)
	assert.Error(t, err)
}

func TestDotEnvFile(t *testing.T) {
	clearOverrides(t)
	dir := t.TempDir()
	writeFile(t, dir, ".env", "FIREGATE_ZONE=dotenvzone\nFIREGATE_SECRET=dotenvsecret\n")
	path := writeFile(t, dir, "firegate.hcl", "zone = \"public\"\n")
	t.Cleanup(func() {
		os.Unsetenv("FIREGATE_ZONE")
		os.Unsetenv("FIREGATE_SECRET")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "dotenvzone", cfg.Zone)
	assert.Equal(t, "dotenvsecret", cfg.Secret)
}
