package reporter

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liyander/secops-mcp/internal/executor/core"
	"github.com/liyander/secops-mcp/internal/executor/envelope"
	"github.com/liyander/secops-mcp/internal/executor/manager"
)

func TestTabulateObjects(t *testing.T) {
	data, err := Tabulate([]map[string]interface{}{
		{"host": "a.example", "port": 443},
		{"host": "b.example", "status": "open"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"host", "port", "status"}, data.Headers)
	assert.Equal(t, [][]string{
		{"a.example", "443", ""},
		{"b.example", "", "open"},
	}, data.Rows)
}

func TestTabulateShapes(t *testing.T) {
	tests := []struct {
		name    string
		input   interface{}
		headers []string
		rows    [][]string
	}{
		{"strings", []string{"x", "y"}, []string{"value"}, [][]string{{"x"}, {"y"}}},
		{"single list field", map[string]interface{}{"hosts": []map[string]interface{}{{"ip": "10.0.0.1"}}},
			[]string{"ip"}, [][]string{{"10.0.0.1"}}},
		{"object", map[string]interface{}{"b": []string{"1", "2"}, "a": true},
			[]string{"key", "value"}, [][]string{{"a", "true"}, {"b", "1, 2"}}},
		{"scalar", "raw output", []string{"value"}, [][]string{{"raw output"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Tabulate(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.headers, data.Headers)
			assert.Equal(t, tt.rows, data.Rows)
		})
	}

	data, err := Tabulate(nil)
	require.NoError(t, err)
	assert.True(t, data.Empty())
}

func bulkEnvelope() *core.ResultEnvelope {
	return envelope.Success(map[string]interface{}{
		"tool":          "httpx",
		"total_targets": 2,
		"results": map[string]interface{}{
			"b.example": envelope.Failure(&core.TimeoutError{Tool: core.ToolHttpx}),
			"a.example": envelope.Success([]string{"https://a.example"}),
		},
	})
}

func TestBulkSummary(t *testing.T) {
	data, ok := BulkSummary(bulkEnvelope())
	require.True(t, ok)
	assert.Equal(t, []string{"target", "success", "items", "error"}, data.Headers)
	require.Len(t, data.Rows, 2)
	assert.Equal(t, []string{"a.example", "true", "1", ""}, data.Rows[0])
	assert.Equal(t, "b.example", data.Rows[1][0])
	assert.Equal(t, "false", data.Rows[1][1])
	assert.NotEmpty(t, data.Rows[1][3])

	_, ok = BulkSummary(envelope.Success([]string{"x"}))
	assert.False(t, ok)
}

func TestConsoleReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleReporter(&buf, false)

	require.NoError(t, r.Report("subfinder", envelope.Success([]string{"www.example.com"})))
	assert.Contains(t, buf.String(), "www.example.com")

	buf.Reset()
	require.NoError(t, r.Report("subfinder", envelope.Success([]string{})))
	assert.Contains(t, buf.String(), "No results found.")

	buf.Reset()
	require.NoError(t, r.Report("nmap", envelope.Failure(&core.LaunchError{Binary: "nmap", Message: "executable not found"})))
	assert.Contains(t, buf.String(), "nmap failed")

	buf.Reset()
	require.NoError(t, r.ReportTools([]manager.ToolDescriptor{{Name: "nmap", MCPName: "nmap_scan", Binary: "nmap"}}))
	assert.Contains(t, buf.String(), "nmap_scan")
}

func TestConsoleReporterRaw(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleReporter(&buf, true)
	require.NoError(t, r.Report("subfinder", envelope.Success([]string{"www.example.com"})))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, true, decoded["success"])
}

func TestSaveResult(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "out.csv")
	require.NoError(t, SaveResult(csvPath, bulkEnvelope()))
	raw, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	content := string(raw)
	assert.True(t, strings.HasPrefix(content, "\xEF\xBB\xBF"))
	assert.Contains(t, content, "target,success,items,error")
	assert.Contains(t, content, "a.example,true,1,")

	jsonPath := filepath.Join(dir, "out.json")
	require.NoError(t, SaveResult(jsonPath, envelope.Success([]string{"x"})))
	raw, err = os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"results":["x"]}`, string(raw))

	assert.Error(t, SaveCsvResult(filepath.Join(dir, "bad.csv"), envelope.Failure(&core.CanceledError{})))
}
