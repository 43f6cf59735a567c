/**
 * MCP stdio 服务
 * @author: sun977
 * @date: 2026.02.14
 * @description: 逐行读取 JSON-RPC 请求，tools/call 并发执行 (受 max_concurrent_calls 限制)，
 *               应答统一经 writeMu 串行写出；stdin 关闭时取消全部进行中的调用
 */
package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/liyander/secops-mcp/internal/config"
	"github.com/liyander/secops-mcp/internal/executor/catalog"
	"github.com/liyander/secops-mcp/internal/executor/core"
	"github.com/liyander/secops-mcp/internal/executor/manager"
	"github.com/liyander/secops-mcp/internal/pkg/logger"
	"github.com/liyander/secops-mcp/internal/pkg/utils"
)

const (
	defaultServerName    = "secops-mcp"
	defaultServerVersion = "1.0.0"
	defaultMaxCalls      = 4
)

// Executor tools/call 背后的调度器，*manager.Manager 即实现
type Executor interface {
	Invoke(ctx context.Context, req manager.InvokeRequest) *core.ResultEnvelope
	Bulk(ctx context.Context, req manager.BulkRequest) *core.ResultEnvelope
	Catalog() *catalog.Catalog
}

// Server MCP stdio 服务
type Server struct {
	exec     Executor
	info     ServerInfo
	maxCalls int

	writeMu sync.Mutex
	out     io.Writer

	inflightMu sync.Mutex
	inflight   map[string]context.CancelFunc
}

// NewServer 创建服务，cfg 为空时使用缺省值
func NewServer(exec Executor, cfg *config.MCPConfig) *Server {
	s := &Server{
		exec:     exec,
		info:     ServerInfo{Name: defaultServerName, Version: defaultServerVersion},
		maxCalls: defaultMaxCalls,
		inflight: make(map[string]context.CancelFunc),
	}
	if cfg != nil {
		if cfg.ServerName != "" {
			s.info.Name = cfg.ServerName
		}
		if cfg.ServerVersion != "" {
			s.info.Version = cfg.ServerVersion
		}
		if cfg.MaxConcurrentCalls > 0 {
			s.maxCalls = cfg.MaxConcurrentCalls
		}
	}
	return s
}

type inbound struct {
	data []byte
	err  error
}

// Serve 处理 in 上的消息直到 EOF 或 ctx 取消，返回前等待全部调用结束
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	s.out = out
	ctx, cancel := context.WithCancel(ctx)

	var wg sync.WaitGroup
	shutdown := func() {
		cancel()
		wg.Wait()
	}

	// 读取放在独立 goroutine 中，ctx 取消时不必等待 stdin
	lines := make(chan inbound)
	go func() {
		defer close(lines)
		reader := bufio.NewReaderSize(in, 64*1024)
		for {
			data, err := ReadLineMessage(reader)
			select {
			case lines <- inbound{data: data, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil && !errors.Is(err, ErrMessageTooLarge) {
				return
			}
		}
	}()

	sem := make(chan struct{}, s.maxCalls)
	logger.LogSystemEvent("mcp", "serve", "MCP stdio server started", logger.InfoLevel, map[string]interface{}{
		"server":          s.info.Name,
		"max_concurrency": s.maxCalls,
	})

	for {
		select {
		case <-ctx.Done():
			shutdown()
			return ctx.Err()
		case msg, ok := <-lines:
			if !ok {
				shutdown()
				return nil
			}
			switch {
			case msg.err == nil:
				s.handleMessage(ctx, msg.data, sem, &wg)
			case errors.Is(msg.err, ErrMessageTooLarge):
				s.send(NewErrorResponse(nil, ErrInvalidRequest, msg.err.Error()))
			case errors.Is(msg.err, io.EOF):
				logger.Info("stdin closed, shutting down MCP server")
				shutdown()
				return nil
			default:
				shutdown()
				return msg.err
			}
		}
	}
}

func (s *Server) handleMessage(ctx context.Context, data []byte, sem chan struct{}, wg *sync.WaitGroup) {
	var msg RPCMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.send(NewErrorResponse(nil, ErrParse, "parse error"))
		return
	}
	if msg.JSONRPC != JSONRPCVersion || msg.Method == "" {
		if !msg.IsNotification() {
			s.send(NewErrorResponse(msg.ID, ErrInvalidRequest, "invalid request"))
		}
		return
	}
	if msg.IsNotification() {
		s.handleNotification(&msg)
		return
	}

	log := logger.WithFields(logrus.Fields{
		"trace_id": uuid.New().String(),
		"method":   msg.Method,
		"id":       string(msg.ID),
	})

	if msg.Method != MethodToolsCall {
		s.send(s.dispatch(&msg))
		return
	}

	key := requestKey(msg.ID)
	callCtx, callCancel := context.WithCancel(ctx)
	if !s.register(key, callCancel) {
		callCancel()
		s.send(NewErrorResponse(msg.ID, ErrInvalidRequest, "duplicate request id"))
		return
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer s.unregister(key)
		defer callCancel()

		select {
		case sem <- struct{}{}:
		case <-callCtx.Done():
			log.Debug("tool call canceled while queued")
			return
		}
		defer func() { <-sem }()

		resp := s.handleToolCall(callCtx, &msg, log)
		// 被取消的请求不再应答
		if callCtx.Err() != nil {
			log.Info("tool call canceled")
			return
		}
		s.send(resp)
	}()
}

func (s *Server) dispatch(msg *RPCMessage) *RPCResponse {
	switch msg.Method {
	case MethodInitialize:
		return NewResultResponse(msg.ID, InitializeResult{
			ProtocolVersion: ProtocolVersion,
			Capabilities: map[string]interface{}{
				"tools": map[string]interface{}{"listChanged": false},
			},
			ServerInfo: s.info,
		})
	case MethodPing:
		return NewResultResponse(msg.ID, struct{}{})
	case MethodToolsList:
		return NewResultResponse(msg.ID, ListToolsResult{Tools: ToolDefinitions(s.exec.Catalog())})
	default:
		return NewErrorResponse(msg.ID, ErrMethodNotFound, fmt.Sprintf("method not found: %s", msg.Method))
	}
}

func (s *Server) handleNotification(msg *RPCMessage) {
	switch msg.Method {
	case MethodCancelled:
		var params CancelledParams
		if err := json.Unmarshal(msg.Params, &params); err != nil || len(params.RequestID) == 0 {
			logger.Warnf("ignoring malformed cancel notification: %s", string(msg.Params))
			return
		}
		if s.cancel(requestKey(params.RequestID)) {
			logger.WithFields(logrus.Fields{
				"id":     string(params.RequestID),
				"reason": params.Reason,
			}).Info("cancel requested by client")
		}
	case MethodInitialized:
		logger.Debugf("client initialized")
	default:
		logger.Debugf("ignoring notification %s", msg.Method)
	}
}

func (s *Server) handleToolCall(ctx context.Context, msg *RPCMessage, log *logrus.Entry) *RPCResponse {
	params, err := decodeCallParams(msg.Params)
	if err != nil {
		return NewErrorResponse(msg.ID, ErrInvalidParams, "invalid params: "+err.Error())
	}
	if params.Name == "" {
		return NewErrorResponse(msg.ID, ErrInvalidParams, "invalid params: tool name is required")
	}
	args := params.Arguments
	if args == nil {
		args = map[string]interface{}{}
	}

	timeout, err := takeTimeout(args)
	if err != nil {
		return NewErrorResponse(msg.ID, ErrInvalidParams, err.Error())
	}

	log = log.WithField("tool", params.Name)
	log.Debug("tool call started")

	var env *core.ResultEnvelope
	switch params.Name {
	case BulkScanTool:
		req, err := bulkRequest(args, timeout)
		if err != nil {
			return NewErrorResponse(msg.ID, ErrInvalidParams, err.Error())
		}
		env = s.exec.Bulk(ctx, req)
	case ArjunBulkScanTool:
		req, err := arjunBulkRequest(args, timeout)
		if err != nil {
			return NewErrorResponse(msg.ID, ErrInvalidParams, err.Error())
		}
		env = s.exec.Bulk(ctx, req)
	default:
		if _, err := s.exec.Catalog().LookupMCP(params.Name); err != nil {
			return NewErrorResponse(msg.ID, ErrInvalidParams, fmt.Sprintf("unknown tool: %s", params.Name))
		}
		env = s.exec.Invoke(ctx, manager.InvokeRequest{
			Tool:           core.ToolName(params.Name),
			Options:        core.Options(args),
			TimeoutSeconds: timeout,
		})
	}

	result, err := toolResult(env)
	if err != nil {
		return NewErrorResponse(msg.ID, ErrInternal, err.Error())
	}
	log.WithField("success", env.Success).Debug("tool call finished")
	return NewResultResponse(msg.ID, result)
}

// send 串行写出，写失败只记录日志
func (s *Server) send(resp *RPCResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		logger.Errorf("failed to marshal response: %v", err)
		data, _ = json.Marshal(NewErrorResponse(resp.ID, ErrInternal, "failed to marshal response"))
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := WriteLineMessage(s.out, data); err != nil {
		logger.Errorf("failed to write response: %v", err)
	}
}

func (s *Server) register(key string, cancel context.CancelFunc) bool {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	if _, exists := s.inflight[key]; exists {
		return false
	}
	s.inflight[key] = cancel
	return true
}

func (s *Server) unregister(key string) {
	s.inflightMu.Lock()
	delete(s.inflight, key)
	s.inflightMu.Unlock()
}

func (s *Server) cancel(key string) bool {
	s.inflightMu.Lock()
	cancel, ok := s.inflight[key]
	s.inflightMu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// requestKey 请求 id 的比较键，数字 1 与字符串 "1" 不同
func requestKey(id json.RawMessage) string {
	return string(bytes.TrimSpace(id))
}

// decodeCallParams 数字保留为 json.Number，整数选项不经过 float64
func decodeCallParams(raw json.RawMessage) (*CallToolParams, error) {
	if len(raw) == 0 {
		return nil, errors.New("missing params")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var params CallToolParams
	if err := dec.Decode(&params); err != nil {
		return nil, err
	}
	return &params, nil
}

// takeTimeout 取出保留参数 timeout_seconds，0 表示未指定
func takeTimeout(args map[string]interface{}) (int, error) {
	v, ok := args[timeoutArgument]
	if !ok {
		return 0, nil
	}
	delete(args, timeoutArgument)
	if v == nil {
		return 0, nil
	}
	n, err := utils.ToInt(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", timeoutArgument, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s: must not be negative", timeoutArgument)
	}
	return n, nil
}

func bulkRequest(args map[string]interface{}, timeout int) (manager.BulkRequest, error) {
	req := manager.BulkRequest{TimeoutSeconds: timeout}
	for key, value := range args {
		switch key {
		case "tool":
			name, err := utils.ToString(value)
			if err != nil {
				return req, fmt.Errorf("tool: %w", err)
			}
			req.Tool = core.ToolName(name)
		case "targets":
			targets, err := utils.ToStringSlice(value)
			if err != nil {
				return req, fmt.Errorf("targets: %w", err)
			}
			req.Targets = targets
		case "options":
			opts, ok := value.(map[string]interface{})
			if !ok && value != nil {
				return req, fmt.Errorf("options: expected object, got %T", value)
			}
			req.Options = core.Options(opts)
		case "concurrency":
			n, err := utils.ToInt(value)
			if err != nil {
				return req, fmt.Errorf("concurrency: %w", err)
			}
			req.Concurrency = n
		default:
			return req, fmt.Errorf("unknown argument %q", key)
		}
	}
	if req.Tool == "" {
		return req, errors.New("tool is required")
	}
	if req.Options == nil {
		req.Options = core.Options{}
	}
	return req, nil
}

// arjunBulkRequest urls 展开为目标，其余参数作为 arjun 的共享选项
func arjunBulkRequest(args map[string]interface{}, timeout int) (manager.BulkRequest, error) {
	req := manager.BulkRequest{Tool: core.ToolArjun, TimeoutSeconds: timeout, Options: core.Options{}}
	for key, value := range args {
		switch key {
		case arjunBulkTargetKey:
			targets, err := utils.ToStringSlice(value)
			if err != nil {
				return req, fmt.Errorf("%s: %w", arjunBulkTargetKey, err)
			}
			req.Targets = targets
		case "concurrency":
			n, err := utils.ToInt(value)
			if err != nil {
				return req, fmt.Errorf("concurrency: %w", err)
			}
			req.Concurrency = n
		default:
			req.Options[key] = value
		}
	}
	return req, nil
}

// toolResult 结果结构缩进后作为单个文本块
func toolResult(env *core.ResultEnvelope) (*CallToolResult, error) {
	text, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return &CallToolResult{
		Content: []Content{{Type: "text", Text: string(text)}},
		IsError: !env.Success,
	}, nil
}
