package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"vmattach/attach"
	"vmattach/cached"
	"vmattach/discovery"
	"vmattach/hotspot"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vmattach.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, discovery.DefaultInterval, cfg.Discovery.Interval)
	assert.Equal(t, cached.DefaultTTL, cfg.Discovery.PropertyTTL)
	assert.Equal(t, hotspot.DefaultTmpDir, cfg.Discovery.TmpDir)
	assert.True(t, cfg.Discovery.WatchPerfData)
	assert.Equal(t, attach.DefaultConfirmDelay, cfg.Attach.ConfirmDelay)
	assert.Equal(t, hotspot.DefaultAttachTimeout, cfg.Attach.Timeout)
	assert.Equal(t, "vmattach", cfg.Metrics.Namespace)
	assert.Empty(t, cfg.Metrics.Listen)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
discovery:
  interval: 250ms
  property_ttl: 2s
  tmp_dir: /var/tmp
  watch_perfdata: false
attach:
  agent_path: /opt/agent.jar
  agent_options: verbose
  confirm_delay: 3s
metrics:
  listen: 127.0.0.1:9464
`)

	cfg, err := Load(New(path))
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, cfg.Discovery.Interval)
	assert.Equal(t, 2*time.Second, cfg.Discovery.PropertyTTL)
	assert.Equal(t, "/var/tmp", cfg.Discovery.TmpDir)
	assert.False(t, cfg.Discovery.WatchPerfData)
	assert.Equal(t, "/opt/agent.jar", cfg.Attach.AgentPath)
	assert.Equal(t, "verbose", cfg.Attach.AgentOptions)
	assert.Equal(t, 3*time.Second, cfg.Attach.ConfirmDelay)
	assert.Equal(t, hotspot.DefaultAttachTimeout, cfg.Attach.Timeout)
	assert.Equal(t, "127.0.0.1:9464", cfg.Metrics.Listen)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("VMATTACH_DISCOVERY_INTERVAL", "5s")
	t.Setenv("VMATTACH_ATTACH_AGENT_PATH", "/srv/agent.jar")

	cfg, err := Load(New(writeConfig(t, "{}\n")))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Discovery.Interval)
	assert.Equal(t, "/srv/agent.jar", cfg.Attach.AgentPath)
}

func TestLoad_Invalid(t *testing.T) {
	path := writeConfig(t, `
discovery:
  interval: 0s
attach:
  confirm_delay: -1s
`)
	_, err := Load(New(path))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discovery.interval")
	assert.Contains(t, err.Error(), "attach.confirm_delay")
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(New(filepath.Join(t.TempDir(), "absent.yaml")))
	assert.Error(t, err)
}

func TestValidate_EmptyTmpDir(t *testing.T) {
	cfg := Config{
		Discovery: DiscoveryConfig{Interval: time.Second, PropertyTTL: time.Second},
		Attach:    AttachConfig{ConfirmDelay: time.Second, Timeout: time.Second},
	}
	assert.Error(t, cfg.Validate())

	cfg.Discovery.TmpDir = "/tmp"
	assert.NoError(t, cfg.Validate())
}
