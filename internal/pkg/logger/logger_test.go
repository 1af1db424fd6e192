package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neorecon/internal/config"
)

func TestInitLoggerRejectsBadConfig(t *testing.T) {
	_, err := InitLogger(nil)
	assert.Error(t, err)

	_, err = InitLogger(&config.LogConfig{Level: "info", Format: "xml", Output: "stdout"})
	assert.ErrorContains(t, err, "unsupported log format")

	_, err = InitLogger(&config.LogConfig{Level: "info", Format: "text", Output: "file"})
	assert.ErrorContains(t, err, "file_path is required")
}

func TestScanOperationWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "recon.log")
	lm, err := InitLogger(&config.LogConfig{
		Level:    "info",
		Format:   "json",
		Output:   "file",
		FilePath: path,
		MaxSize:  1,
	})
	require.NoError(t, err)
	defer func() { LoggerInstance = nil }()

	LogScanOperation("sess-1", "port", "127.0.0.1", ScanStatusCompleted, 100, "3 open", 1500*time.Millisecond, map[string]interface{}{"open": 3})
	// debug 级别的探测日志不应该出现
	LogProbe("sess-1", "127.0.0.1:22", "tcp", "open", 0, time.Millisecond)
	LogSystemEvent("server", "startup", "listening", logrus.InfoLevel, nil)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "scan", entry["type"])
	assert.Equal(t, "sess-1", entry["session_id"])
	assert.Equal(t, float64(1500), entry["duration"])
	assert.Equal(t, float64(3), entry["open"])
	assert.Contains(t, entry["message"], "Scan completed")

	require.NoError(t, lm.UpdateLevel("debug"))
	assert.Equal(t, logrus.DebugLevel, lm.GetLogger().GetLevel())
}

func TestHelpersWithoutInstance(t *testing.T) {
	LoggerInstance = nil
	Info("nothing")
	WithField("k", "v").Info("discarded")
	LogScanOperation("s", "port", "t", ScanStatusRunning, 10, "", 0, nil)
}
