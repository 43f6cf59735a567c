package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liyander/secops-mcp/internal/config"
)

// useBuffer 把全局实例替换为写入 buffer 的实例
func useBuffer(t *testing.T, level logrus.Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := LoggerInstance
	LoggerInstance = NewTestLogger(&buf, level)
	t.Cleanup(func() { LoggerInstance = prev })
	return &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestInitLogger(t *testing.T) {
	prev := LoggerInstance
	t.Cleanup(func() { LoggerInstance = prev })

	tests := []struct {
		name    string
		cfg     *config.LogConfig
		wantErr bool
	}{
		{"nil config", nil, true},
		{"stderr text", &config.LogConfig{Level: "info", Format: "text", Output: "stderr"}, false},
		{"bad format", &config.LogConfig{Level: "info", Format: "xml", Output: "stderr"}, true},
		{"bad output", &config.LogConfig{Level: "info", Format: "json", Output: "syslog"}, true},
		{"file without path", &config.LogConfig{Level: "info", Format: "json", Output: "file"}, true},
		{"file", &config.LogConfig{Level: "info", Format: "json", Output: "file", FilePath: filepath.Join(t.TempDir(), "logs", "a.log")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lm, err := InitLogger(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Same(t, lm, LoggerInstance)
			assert.NoError(t, lm.Close())
		})
	}
}

func TestUpdateConfigLevel(t *testing.T) {
	prev := LoggerInstance
	t.Cleanup(func() { LoggerInstance = prev })

	lm, err := InitLogger(&config.LogConfig{Level: "info", Format: "json", Output: "stderr"})
	require.NoError(t, err)

	require.NoError(t, lm.UpdateConfig(&config.LogConfig{Level: "debug", Format: "json", Output: "stderr"}))
	assert.Equal(t, logrus.DebugLevel, lm.GetLogger().GetLevel())
	assert.Equal(t, "debug", lm.GetConfig().Level)

	assert.Error(t, lm.UpdateConfig(&config.LogConfig{Level: "loud", Format: "json", Output: "stderr"}))
	assert.Error(t, lm.UpdateConfig(nil))
}

func TestLogToolInvocation(t *testing.T) {
	buf := useBuffer(t, logrus.InfoLevel)

	LogToolInvocation(ToolLogEntry{InvocationID: "id-1", Tool: "nmap", Status: "success", ExitCode: 0, Duration: 1500 * time.Millisecond}, []string{"nmap", "-sV"})
	LogToolInvocation(ToolLogEntry{InvocationID: "id-2", Tool: "ffuf", Status: "failed", ExitCode: -1, TimedOut: true, Error: "timeout"}, nil)

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)

	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "nmap", lines[0]["tool"])
	assert.Equal(t, float64(1500), lines[0]["duration_ms"])
	// info 级别不输出参数列表
	assert.NotContains(t, lines[0], "argv")

	assert.Equal(t, "warning", lines[1]["level"])
	assert.Equal(t, "timeout", lines[1]["error"])
	assert.Equal(t, true, lines[1]["timed_out"])
}

func TestLogToolInvocationDebugArgv(t *testing.T) {
	buf := useBuffer(t, logrus.DebugLevel)

	LogToolInvocation(ToolLogEntry{Tool: "nmap", Status: "success"}, []string{"nmap", "-sV"})

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, []interface{}{"nmap", "-sV"}, lines[0]["argv"])
}

func TestLogSystemEventAndError(t *testing.T) {
	buf := useBuffer(t, logrus.DebugLevel)

	LogSystemEvent("config", "reload", "config reloaded", WarnLevel, map[string]interface{}{"file": "config.yaml"})
	LogError(errors.New("boom"), "req-1", map[string]interface{}{"path": "/x"})
	LogError(nil, "req-2", nil)

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "warning", lines[0]["level"])
	assert.Equal(t, "config.yaml", lines[0]["file"])
	assert.Equal(t, "req-1", lines[1]["request_id"])
	assert.Equal(t, "/x", lines[1]["path"])
}

func TestHelpersWithoutInstance(t *testing.T) {
	prev := LoggerInstance
	LoggerInstance = nil
	t.Cleanup(func() { LoggerInstance = prev })

	assert.NotPanics(t, func() {
		Debugf("x")
		Infof("x")
		WithFields(logrus.Fields{"a": 1}).Info("x")
		LogToolInvocation(ToolLogEntry{}, nil)
	})
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2026, 2, 9, 8, 30, 0, 123000000, time.UTC)
	assert.Equal(t, "2026-02-09 08:30:00.123", FormatTimestamp(ts))
}
