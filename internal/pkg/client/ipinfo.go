/**
 * ipinfo.io HTTP 客户端
 * @author: sun977
 * @date: 2026.02.13
 * @description: ipinfo 工具没有本地二进制，这里实现 core.Runner，
 *               把 HTTP 响应折算成 ProcessResult，后续归一化和包装与子进程工具完全一致
 */
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/liyander/secops-mcp/internal/config"
	"github.com/liyander/secops-mcp/internal/executor/core"
	"github.com/liyander/secops-mcp/internal/pkg/logger"
	"github.com/liyander/secops-mcp/internal/pkg/version"
)

const (
	defaultBaseURL      = "https://ipinfo.io"
	defaultMaxBodyBytes = 1 << 20
)

// IPInfoClient ipinfo.io 查询客户端
type IPInfoClient struct {
	client       *http.Client
	baseURL      string
	token        string
	userAgent    string
	maxRetries   int
	retryDelay   time.Duration
	maxBodyBytes int64
}

// Ensure interface compliance
var _ core.Runner = (*IPInfoClient)(nil)

// NewIPInfoClient 创建客户端，cfg 为空时使用缺省值
func NewIPInfoClient(cfg *config.IPInfoConfig) *IPInfoClient {
	c := &IPInfoClient{
		client:       &http.Client{Timeout: 10 * time.Second},
		baseURL:      defaultBaseURL,
		userAgent:    version.GetUserAgent(),
		maxRetries:   2,
		retryDelay:   time.Second,
		maxBodyBytes: defaultMaxBodyBytes,
	}
	if cfg != nil {
		if cfg.BaseURL != "" {
			c.baseURL = strings.TrimRight(cfg.BaseURL, "/")
		}
		if cfg.Timeout > 0 {
			c.client.Timeout = time.Duration(cfg.Timeout) * time.Second
		}
		if cfg.MaxRetries >= 0 {
			c.maxRetries = cfg.MaxRetries
		}
		c.token = cfg.Token
	}
	return c
}

// SetRetryDelay 设置重试间隔
func (c *IPInfoClient) SetRetryDelay(d time.Duration) {
	c.retryDelay = d
}

// Run 查询 argv 中的 IP，argv 为 ["ipinfo"] 时查询调用方自身地址
func (c *IPInfoClient) Run(ctx context.Context, inv *core.ToolInvocation) *core.ProcessResult {
	start := time.Now()
	res := &core.ProcessResult{ExitCode: -1}
	defer func() { res.Duration = time.Since(start) }()

	runCtx := ctx
	if timeout := inv.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ip := ""
	if args := inv.Args(); len(args) > 0 {
		ip = strings.TrimSpace(args[0])
	}

	status, body, truncated, err := c.lookup(runCtx, ip)
	switch {
	case ctx.Err() != nil:
		res.Canceled = true
		return res
	case runCtx.Err() != nil || isTimeout(err):
		res.TimedOut = true
		return res
	case err != nil:
		res.LaunchError = fmt.Sprintf("ipinfo request failed: %v", err)
		return res
	}

	res.Truncated = truncated
	if status >= 200 && status < 300 {
		res.ExitCode = 0
		res.Stdout = body
		return res
	}
	res.ExitCode = 1
	res.Stderr = []byte(fmt.Sprintf("ipinfo returned HTTP %d: %s", status, strings.TrimSpace(string(body))))
	return res
}

// lookup 执行请求，传输错误和 5xx 会重试
func (c *IPInfoClient) lookup(ctx context.Context, ip string) (int, []byte, bool, error) {
	fullURL := c.baseURL + "/json"
	if ip != "" {
		fullURL = c.baseURL + "/" + url.PathEscape(ip) + "/json"
	}

	var (
		resp *http.Response
		err  error
	)
	for i := 0; i <= c.maxRetries; i++ {
		resp, err = c.doRequest(ctx, fullURL)
		if err == nil && resp.StatusCode < 500 {
			break
		}
		if i == c.maxRetries {
			break
		}
		if err == nil {
			resp.Body.Close()
		}
		logger.WithField("attempt", i+1).Debugf("ipinfo request retry: %v", retryReason(resp, err))

		select {
		case <-ctx.Done():
			return 0, nil, false, ctx.Err()
		case <-time.After(c.retryDelay):
		}
	}
	if err != nil {
		return 0, nil, false, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes+1))
	if err != nil {
		return 0, nil, false, fmt.Errorf("read response body: %w", err)
	}
	truncated := int64(len(body)) > c.maxBodyBytes
	if truncated {
		body = body[:c.maxBodyBytes]
	}
	return resp.StatusCode, body, truncated, nil
}

// doRequest 每次重试都创建新请求
func (c *IPInfoClient) doRequest(ctx context.Context, fullURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.client.Do(req)
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func retryReason(resp *http.Response, err error) error {
	if err != nil {
		return err
	}
	if resp != nil {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return errors.New("no response")
}
