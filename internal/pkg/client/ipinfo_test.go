package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liyander/secops-mcp/internal/config"
	"github.com/liyander/secops-mcp/internal/executor/core"
)

func newTestClient(baseURL string, retries int) *IPInfoClient {
	c := NewIPInfoClient(&config.IPInfoConfig{BaseURL: baseURL, Token: "secret", Timeout: 5, MaxRetries: retries})
	c.SetRetryDelay(10 * time.Millisecond)
	return c
}

func invocation(args ...string) *core.ToolInvocation {
	return core.NewToolInvocation(core.ToolIPInfo, append([]string{"ipinfo"}, args...), 5, "")
}

func TestIPInfoSuccess(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotAuth = r.URL.Path, r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ip":"8.8.8.8","org":"AS15169 Google LLC"}`))
	}))
	defer srv.Close()

	res := newTestClient(srv.URL+"/", 0).Run(context.Background(), invocation("8.8.8.8"))
	assert.Equal(t, 0, res.ExitCode)
	assert.JSONEq(t, `{"ip":"8.8.8.8","org":"AS15169 Google LLC"}`, string(res.Stdout))
	assert.Equal(t, "/8.8.8.8/json", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.True(t, res.Started())
}

func TestIPInfoSelf(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	res := newTestClient(srv.URL, 0).Run(context.Background(), invocation())
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "/json", gotPath)
}

func TestIPInfoHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Wrong ip", http.StatusNotFound)
	}))
	defer srv.Close()

	res := newTestClient(srv.URL, 2).Run(context.Background(), invocation("999.1.1.1"))
	assert.Equal(t, 1, res.ExitCode)
	assert.Equal(t, "ipinfo returned HTTP 404: Wrong ip", string(res.Stderr))
	assert.Empty(t, res.Stdout)
}

func TestIPInfoRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"ip":"1.1.1.1"}`))
	}))
	defer srv.Close()

	res := newTestClient(srv.URL, 2).Run(context.Background(), invocation("1.1.1.1"))
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))

	atomic.StoreInt32(&calls, -10)
	res = newTestClient(srv.URL, 1).Run(context.Background(), invocation("1.1.1.1"))
	assert.Equal(t, 1, res.ExitCode)
	assert.Contains(t, string(res.Stderr), "ipinfo returned HTTP 502")
}

func TestIPInfoTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	res := newTestClient(url, 1).Run(context.Background(), invocation("1.1.1.1"))
	assert.Equal(t, -1, res.ExitCode)
	assert.Contains(t, res.LaunchError, "ipinfo request failed")
	assert.False(t, res.Started())
}

func TestIPInfoTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	inv := core.NewToolInvocation(core.ToolIPInfo, []string{"ipinfo", "1.1.1.1"}, 1, "")
	start := time.Now()
	res := newTestClient(srv.URL, 0).Run(context.Background(), inv)
	assert.True(t, res.TimedOut)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestIPInfoCanceled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	res := newTestClient(srv.URL, 0).Run(ctx, invocation("1.1.1.1"))
	assert.True(t, res.Canceled)
	assert.False(t, res.TimedOut)
}

func TestNewIPInfoClientDefaults(t *testing.T) {
	c := NewIPInfoClient(nil)
	require.NotNil(t, c)
	assert.Equal(t, defaultBaseURL, c.baseURL)
	assert.Equal(t, 2, c.maxRetries)
	assert.Empty(t, c.token)
}
