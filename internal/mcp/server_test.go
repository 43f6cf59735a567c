package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liyander/secops-mcp/internal/config"
	"github.com/liyander/secops-mcp/internal/executor/core"
	"github.com/liyander/secops-mcp/internal/executor/manager"
)

// stubRunner 替代子进程执行器
type stubRunner struct {
	mu        sync.Mutex
	calls     []*core.ToolInvocation
	result    *core.ProcessResult
	block     bool
	delay     time.Duration
	started   chan string
	stopped   chan string
	active    int32
	maxActive int32
}

func newStubRunner() *stubRunner {
	return &stubRunner{
		started: make(chan string, 16),
		stopped: make(chan string, 16),
	}
}

func (r *stubRunner) Run(ctx context.Context, inv *core.ToolInvocation) *core.ProcessResult {
	n := atomic.AddInt32(&r.active, 1)
	defer atomic.AddInt32(&r.active, -1)
	for {
		old := atomic.LoadInt32(&r.maxActive)
		if n <= old || atomic.CompareAndSwapInt32(&r.maxActive, old, n) {
			break
		}
	}

	r.mu.Lock()
	r.calls = append(r.calls, inv)
	r.mu.Unlock()
	r.started <- inv.ID

	if r.block {
		<-ctx.Done()
		r.stopped <- inv.ID
		return &core.ProcessResult{ExitCode: -1, Canceled: true}
	}
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	if r.result != nil {
		res := *r.result
		return &res
	}
	return &core.ProcessResult{ExitCode: 0, Stdout: []byte("first\nsecond\n")}
}

func (r *stubRunner) Calls() []*core.ToolInvocation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*core.ToolInvocation(nil), r.calls...)
}

type reply struct {
	ID     json.RawMessage `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

type harness struct {
	t     *testing.T
	stdin *io.PipeWriter
	lines chan []byte
	done  chan struct{}
	err   error
}

func newHarness(t *testing.T, runner *stubRunner, cfg *config.MCPConfig) *harness {
	t.Helper()
	mgr := manager.NewManager(nil, manager.Settings{
		DefaultTimeout:  300,
		MaxTimeout:      900,
		BulkConcurrency: 2,
		MaxTargets:      10,
	}, manager.WithRunner(core.BackendProcess, runner))

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	h := &harness{t: t, stdin: inW, lines: make(chan []byte, 32), done: make(chan struct{})}

	srv := NewServer(mgr, cfg)
	go func() {
		h.err = srv.Serve(context.Background(), inR, outW)
		outW.Close()
		close(h.done)
	}()
	go func() {
		sc := bufio.NewScanner(outR)
		sc.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
		for sc.Scan() {
			h.lines <- append([]byte(nil), sc.Bytes()...)
		}
		close(h.lines)
	}()

	t.Cleanup(func() {
		inW.Close()
		h.wait()
	})
	return h
}

func (h *harness) send(line string) {
	h.t.Helper()
	_, err := io.WriteString(h.stdin, line+"\n")
	require.NoError(h.t, err)
}

func (h *harness) call(id int, name string, args string) {
	h.send(fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"method":"tools/call","params":{"name":%q,"arguments":%s}}`, id, name, args))
}

func (h *harness) recv() reply {
	h.t.Helper()
	select {
	case line, ok := <-h.lines:
		require.True(h.t, ok, "server output closed")
		var r reply
		require.NoError(h.t, json.Unmarshal(line, &r), string(line))
		return r
	case <-time.After(5 * time.Second):
		h.t.Fatal("timed out waiting for response")
	}
	return reply{}
}

func (h *harness) wait() error {
	select {
	case <-h.done:
	case <-time.After(5 * time.Second):
		h.t.Fatal("server did not stop")
	}
	return h.err
}

func toolText(t *testing.T, r reply) (CallToolResult, map[string]interface{}) {
	t.Helper()
	require.Nil(t, r.Error)
	var res CallToolResult
	require.NoError(t, json.Unmarshal(r.Result, &res))
	require.Len(t, res.Content, 1)
	assert.Equal(t, "text", res.Content[0].Type)
	var env map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(res.Content[0].Text), &env))
	return res, env
}

func waitStarted(t *testing.T, r *stubRunner) {
	t.Helper()
	select {
	case <-r.started:
	case <-time.After(5 * time.Second):
		t.Fatal("tool never started")
	}
}

func TestInitializeAndPing(t *testing.T) {
	h := newHarness(t, newStubRunner(), &config.MCPConfig{ServerName: "secops-test", ServerVersion: "9.9.9"})

	h.send(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05"}}`)
	r := h.recv()
	assert.Equal(t, "1", string(r.ID))
	assert.JSONEq(t, `{
		"protocolVersion": "2024-11-05",
		"capabilities": {"tools": {"listChanged": false}},
		"serverInfo": {"name": "secops-test", "version": "9.9.9"}
	}`, string(r.Result))

	// 通知不产生应答
	h.send(`{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	h.send(`{"jsonrpc":"2.0","id":"p-1","method":"ping"}`)
	r = h.recv()
	assert.Equal(t, `"p-1"`, string(r.ID))
	assert.JSONEq(t, `{}`, string(r.Result))
}

func TestToolsList(t *testing.T) {
	h := newHarness(t, newStubRunner(), nil)

	h.send(`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
	r := h.recv()
	require.Nil(t, r.Error)

	var res struct {
		Tools []struct {
			Name        string                 `json:"name"`
			InputSchema map[string]interface{} `json:"inputSchema"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(r.Result, &res))

	byName := make(map[string]map[string]interface{})
	for _, tool := range res.Tools {
		byName[tool.Name] = tool.InputSchema
	}
	// 15 个内置工具 + 2 个别名 + 2 个批量工具
	assert.Len(t, res.Tools, 19)
	for _, name := range []string{
		"nuclei_scan_wrapper", "nmap_wrapper", "ipinfo_wrapper",
		"gospider_scan", "gospider_filtered_scan",
		"arjun_scan", "arjun_custom_parameter_scan",
		ArjunBulkScanTool, BulkScanTool,
	} {
		assert.Contains(t, byName, name)
	}

	nmap := byName["nmap_wrapper"]
	assert.Equal(t, "object", nmap["type"])
	assert.Equal(t, []interface{}{"target"}, nmap["required"])
	props := nmap["properties"].(map[string]interface{})
	scanType := props["scan_type"].(map[string]interface{})
	assert.Contains(t, scanType["enum"], "sV")
	assert.Equal(t, "sV", scanType["default"])
	assert.Contains(t, props, "timeout_seconds")

	httpx := byName["httpx_wrapper"]["properties"].(map[string]interface{})
	assert.Equal(t, "array", httpx["urls"].(map[string]interface{})["type"])

	bulk := byName[ArjunBulkScanTool]
	assert.Equal(t, []interface{}{"urls"}, bulk["required"])
	assert.NotContains(t, bulk["properties"], "url")

	// 内置工具都声明了 target 选项
	generic := byName[BulkScanTool]["properties"].(map[string]interface{})
	assert.Len(t, generic["tool"].(map[string]interface{})["enum"], 15)
	assert.Contains(t, generic["tool"].(map[string]interface{})["enum"], "nuclei")
}

func TestToolsCall(t *testing.T) {
	runner := newStubRunner()
	h := newHarness(t, runner, nil)

	h.call(3, "xsstrike_wrapper", `{"url":"https://t.example","timeout_seconds":30}`)
	res, env := toolText(t, h.recv())
	assert.False(t, res.IsError)
	assert.Equal(t, true, env["success"])
	assert.Equal(t, []interface{}{"first", "second"}, env["results"])
	// 缩进输出
	assert.True(t, strings.Contains(res.Content[0].Text, "\n  \"success\": true"))

	calls := runner.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"xsstrike", "-u", "https://t.example", "--skip"}, calls[0].Argv)
	assert.Equal(t, 30, calls[0].TimeoutSeconds)
}

func TestToolsCallFailure(t *testing.T) {
	runner := newStubRunner()
	runner.result = &core.ProcessResult{ExitCode: 2, Stderr: []byte("boom")}
	h := newHarness(t, runner, nil)

	h.call(4, "xsstrike_wrapper", `{"url":"https://t.example"}`)
	res, env := toolText(t, h.recv())
	assert.True(t, res.IsError)
	assert.Equal(t, false, env["success"])
	assert.Contains(t, env["error"], "boom")

	// 选项错误同样是工具结果，不是协议错误
	h.call(5, "xsstrike_wrapper", `{"bogus":1}`)
	res, env = toolText(t, h.recv())
	assert.True(t, res.IsError)
	assert.Contains(t, env["error"], "bogus")
	assert.Len(t, runner.Calls(), 1)
}

func TestProtocolErrors(t *testing.T) {
	tests := []struct {
		name string
		line string
		id   string
		code int
	}{
		{"parse error", `{not json`, "null", ErrParse},
		{"bad version", `{"jsonrpc":"1.0","id":1,"method":"ping"}`, "1", ErrInvalidRequest},
		{"unknown method", `{"jsonrpc":"2.0","id":2,"method":"resources/list"}`, "2", ErrMethodNotFound},
		{"missing params", `{"jsonrpc":"2.0","id":3,"method":"tools/call"}`, "3", ErrInvalidParams},
		{"missing name", `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"arguments":{}}}`, "4", ErrInvalidParams},
		{"unknown tool", `{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"nope","arguments":{}}}`, "5", ErrInvalidParams},
		{"bad timeout", `{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{"name":"nmap_wrapper","arguments":{"target":"h","timeout_seconds":"soon"}}}`, "6", ErrInvalidParams},
		{"bulk without tool", `{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"bulk_scan","arguments":{"targets":["a"]}}}`, "7", ErrInvalidParams},
		{"bulk unknown argument", `{"jsonrpc":"2.0","id":8,"method":"tools/call","params":{"name":"bulk_scan","arguments":{"tool":"nmap","targets":["a"],"extra":1}}}`, "8", ErrInvalidParams},
	}

	runner := newStubRunner()
	h := newHarness(t, runner, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h.send(tt.line)
			r := h.recv()
			require.NotNil(t, r.Error)
			assert.Equal(t, tt.code, r.Error.Code)
			assert.Equal(t, tt.id, string(r.ID))
		})
	}
	assert.Empty(t, runner.Calls())
}

func TestOversizedMessage(t *testing.T) {
	h := newHarness(t, newStubRunner(), nil)

	h.send(strings.Repeat("a", MaxMessageSize+10))
	r := h.recv()
	require.NotNil(t, r.Error)
	assert.Equal(t, ErrInvalidRequest, r.Error.Code)
	assert.Equal(t, "null", string(r.ID))

	h.send(`{"jsonrpc":"2.0","id":9,"method":"ping"}`)
	r = h.recv()
	assert.Equal(t, "9", string(r.ID))
	assert.Nil(t, r.Error)
}

func TestBulkScan(t *testing.T) {
	runner := newStubRunner()
	h := newHarness(t, runner, nil)

	h.call(10, BulkScanTool, `{"tool":"xsstrike","targets":["https://a","https://b","https://a"],"concurrency":2}`)
	res, env := toolText(t, h.recv())
	assert.False(t, res.IsError)

	results := env["results"].(map[string]interface{})
	assert.Equal(t, "xsstrike", results["tool"])
	assert.EqualValues(t, 2, results["total_targets"])
	assert.EqualValues(t, 2, results["successful_scans"])
	perTarget := results["results"].(map[string]interface{})
	assert.Contains(t, perTarget, "https://a")
	assert.Contains(t, perTarget, "https://b")
	assert.Len(t, runner.Calls(), 2)
}

func TestArjunBulkScan(t *testing.T) {
	runner := newStubRunner()
	runner.result = &core.ProcessResult{ExitCode: 0, Stdout: []byte(`{"https://a":{"params":["id"]}}`)}
	h := newHarness(t, runner, nil)

	h.call(11, ArjunBulkScanTool, `{"urls":["https://a","https://b"],"method":"post","timeout_seconds":60}`)
	res, env := toolText(t, h.recv())
	assert.False(t, res.IsError)
	results := env["results"].(map[string]interface{})
	assert.Equal(t, "arjun", results["tool"])
	assert.EqualValues(t, 2, results["total_targets"])

	calls := runner.Calls()
	require.Len(t, calls, 2)
	for _, inv := range calls {
		assert.Equal(t, "arjun", inv.Argv[0])
		assert.Contains(t, strings.Join(inv.Argv, " "), "-m POST")
		assert.Equal(t, 60, inv.TimeoutSeconds)
	}
}

func TestCancelNotification(t *testing.T) {
	runner := newStubRunner()
	runner.block = true
	h := newHarness(t, runner, nil)

	h.call(12, "xsstrike_wrapper", `{"url":"https://slow"}`)
	waitStarted(t, runner)

	h.send(`{"jsonrpc":"2.0","method":"notifications/cancelled","params":{"requestId":12,"reason":"user"}}`)
	select {
	case <-runner.stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("tool was not canceled")
	}

	// 被取消的请求没有应答，下一条应答属于 ping
	h.send(`{"jsonrpc":"2.0","id":13,"method":"ping"}`)
	r := h.recv()
	assert.Equal(t, "13", string(r.ID))

	require.NoError(t, h.stdin.Close())
	assert.NoError(t, h.wait())
	for line := range h.lines {
		t.Errorf("unexpected output after cancel: %s", line)
	}
}

func TestEOFCancelsInflightCalls(t *testing.T) {
	runner := newStubRunner()
	runner.block = true
	h := newHarness(t, runner, nil)

	h.call(14, "xsstrike_wrapper", `{"url":"https://a"}`)
	h.call(15, "xsstrike_wrapper", `{"url":"https://b"}`)
	waitStarted(t, runner)
	waitStarted(t, runner)

	require.NoError(t, h.stdin.Close())
	assert.NoError(t, h.wait())
	assert.Len(t, runner.stopped, 2)
}

func TestConcurrencyLimit(t *testing.T) {
	runner := newStubRunner()
	runner.delay = 50 * time.Millisecond
	h := newHarness(t, runner, &config.MCPConfig{MaxConcurrentCalls: 1})

	for id := 20; id < 23; id++ {
		h.call(id, "xsstrike_wrapper", `{"url":"https://t"}`)
	}
	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		seen[string(h.recv().ID)] = true
	}
	assert.Len(t, seen, 3)
	assert.Equal(t, int32(1), atomic.LoadInt32(&runner.maxActive))
}

func TestDuplicateInflightID(t *testing.T) {
	runner := newStubRunner()
	runner.block = true
	h := newHarness(t, runner, nil)

	h.call(30, "xsstrike_wrapper", `{"url":"https://a"}`)
	waitStarted(t, runner)
	h.call(30, "xsstrike_wrapper", `{"url":"https://b"}`)

	r := h.recv()
	require.NotNil(t, r.Error)
	assert.Equal(t, ErrInvalidRequest, r.Error.Code)
	assert.Len(t, runner.Calls(), 1)
}
