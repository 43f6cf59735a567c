package agent

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liyander/secops-mcp/internal/config"
	"github.com/liyander/secops-mcp/internal/executor/manager"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestAppStartStop(t *testing.T) {
	port := freePort(t)
	cfg := &config.Config{
		App:    &config.AppConfig{Name: "secops-test"},
		Server: &config.ServerConfig{Host: "127.0.0.1", Port: port, Mode: "test"},
	}
	app, err := NewApp(cfg, manager.NewManager(nil, manager.Settings{DefaultTimeout: 60, MaxTimeout: 120}))
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("127.0.0.1:%d", port), app.GetHTTPServer().Addr)

	errCh := app.Start()

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get(fmt.Sprintf("http://127.0.0.1:%d/ping", port))
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, app.Stop(ctx))
	assert.NoError(t, <-errCh)
}

func TestNewAppRequiresDependencies(t *testing.T) {
	_, err := NewApp(nil, nil)
	assert.Error(t, err)
}
