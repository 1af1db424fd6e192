package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  port: 9000
scan:
  probe_timeout: 2s
  workers: 16
  max_probes: 1000
log:
  level: debug
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", sampleYAML)

	cfg, err := NewConfigLoader(path, EnvPrefix).LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 2*time.Second, cfg.Scan.ProbeTimeout)
	assert.Equal(t, 16, cfg.Scan.Workers)
	assert.Equal(t, 1000, cfg.Scan.MaxProbes)
	assert.Equal(t, "debug", cfg.Log.Level)

	// 未配置的字段使用默认值
	assert.Equal(t, 500*time.Millisecond, cfg.Scan.BannerTimeout)
	assert.Equal(t, 1, cfg.Scan.UDPRetries)
	assert.Equal(t, 5*time.Minute, cfg.Scan.SessionDeadline)
	assert.True(t, cfg.Middleware.CORS.Enabled)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", sampleYAML)
	t.Setenv("NEORECON_SCAN_WORKERS", "7")
	t.Setenv("NEORECON_SCAN_DNS_SERVER", "9.9.9.9:53")

	cfg, err := NewConfigLoader(path, EnvPrefix).LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Scan.Workers)
	assert.Equal(t, "9.9.9.9:53", cfg.Scan.DNSServer)
}

func TestLoadConfigWithoutFile(t *testing.T) {
	cfg, err := NewConfigLoader(t.TempDir(), EnvPrefix).LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, DefaultScanConfig(), cfg.Scan)
}

func TestLoadConfigRejectsInvalidScan(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "scan:\n  workers: 0\n")
	_, err := NewConfigLoader(path, EnvPrefix).LoadConfig()
	assert.ErrorContains(t, err, "scan.workers")
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "config.yaml")
	want := DefaultConfig()
	want.Scan.Workers = 42
	want.Scan.Proxy = "socks5://127.0.0.1:1080"
	require.NoError(t, SaveConfig(want, path))

	got, err := NewConfigLoader(path, EnvPrefix).LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, want.Scan, got.Scan)
	assert.Equal(t, want.Server.Port, got.Server.Port)
}

func TestValidateConfigChange(t *testing.T) {
	a := DefaultConfig()
	b := DefaultConfig()
	b.Scan.Workers = 1
	assert.NoError(t, ValidateConfigChange(a, b))

	b.Server.Port = 1234
	assert.Error(t, ValidateConfigChange(a, b))
}

func TestConfigWatcherReload(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", sampleYAML)
	initial, err := NewConfigLoader(path, EnvPrefix).LoadConfig()
	require.NoError(t, err)

	w, err := NewConfigWatcher(path, initial)
	require.NoError(t, err)
	defer w.Stop()

	changed := make(chan int, 1)
	w.AddCallback(func(_, newConfig *Config) error {
		select {
		case changed <- newConfig.Scan.Workers:
		default:
		}
		return nil
	})
	require.NoError(t, w.Start())

	writeFile(t, filepath.Dir(path), "config.yaml", "server:\n  port: 9000\nscan:\n  workers: 64\n")

	select {
	case workers := <-changed:
		assert.Equal(t, 64, workers)
		assert.Eventually(t, func() bool { return w.GetConfig().Scan.Workers == 64 }, time.Second, 10*time.Millisecond)
	case <-time.After(5 * time.Second):
		t.Fatal("config change was not observed")
	}
}
