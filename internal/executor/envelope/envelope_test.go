package envelope

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liyander/secops-mcp/internal/executor/core"
)

func toJSON(t *testing.T, env *core.ResultEnvelope) string {
	t.Helper()
	b, err := json.Marshal(env)
	require.NoError(t, err)
	return string(b)
}

func TestWrap(t *testing.T) {
	exit := core.ExitZero()

	tests := []struct {
		name       string
		res        *core.ProcessResult
		normalized interface{}
		exit       core.ExitConvention
		want       string
	}{
		{
			name:       "success empty object",
			res:        &core.ProcessResult{ExitCode: 0, Stdout: []byte("{}")},
			normalized: map[string]interface{}{},
			exit:       exit,
			want:       `{"success":true,"results":{}}`,
		},
		{
			name: "nil results become empty object",
			res:  &core.ProcessResult{ExitCode: 0},
			exit: exit,
			want: `{"success":true,"results":{}}`,
		},
		{
			name: "stderr message",
			res:  &core.ProcessResult{ExitCode: 1, Stderr: []byte("rate limited\n")},
			exit: exit,
			want: `{"success":false,"error":"rate limited"}`,
		},
		{
			name: "empty stderr",
			res:  &core.ProcessResult{ExitCode: 2},
			exit: exit,
			want: `{"success":false,"error":"x exited with status 2"}`,
		},
		{
			name: "binary not found",
			res:  &core.ProcessResult{ExitCode: -1, LaunchError: "binary not found: x"},
			exit: exit,
			want: `{"success":false,"error":"binary not found: x"}`,
		},
		{
			name: "timeout wins over exit code",
			res:  &core.ProcessResult{ExitCode: -1, TimedOut: true, Stderr: []byte("killed")},
			exit: exit,
			want: `{"success":false,"error":"timeout"}`,
		},
		{
			name: "canceled",
			res:  &core.ProcessResult{ExitCode: -1, Canceled: true},
			exit: exit,
			want: `{"success":false,"error":"canceled"}`,
		},
		{
			name:       "declared success code",
			res:        &core.ProcessResult{ExitCode: 1},
			normalized: []interface{}{},
			exit:       core.ExitConvention{SuccessCodes: []int{0, 1}},
			want:       `{"success":true,"results":[]}`,
		},
		{
			name:       "parse fallback is still success",
			res:        &core.ProcessResult{ExitCode: 0, Stdout: []byte("plain")},
			normalized: core.RawTextFallback("plain"),
			exit:       exit,
			want:       `{"success":true,"results":{"raw_output":"plain"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := Wrap("x", tt.res, tt.normalized, tt.exit)
			assert.Equal(t, tt.want, toJSON(t, env))
			// error 与 results 互斥
			if env.Success {
				assert.Empty(t, env.Error)
				assert.NotNil(t, env.Results)
			} else {
				assert.NotEmpty(t, env.Error)
				assert.Nil(t, env.Results)
			}
		})
	}
}

func TestWrapDeterministic(t *testing.T) {
	res := &core.ProcessResult{ExitCode: 0}
	normalized := map[string]interface{}{"z": 1, "a": []interface{}{"b", map[string]interface{}{"y": true, "c": nil}}}

	first := toJSON(t, Wrap("x", res, normalized, core.ExitZero()))
	second := toJSON(t, Wrap("x", res, normalized, core.ExitZero()))
	assert.Equal(t, first, second)
}

func TestClassifyTypes(t *testing.T) {
	var te *core.TimeoutError
	assert.ErrorAs(t, Classify("x", &core.ProcessResult{TimedOut: true}, core.ExitZero()), &te)

	var le *core.LaunchError
	assert.ErrorAs(t, Classify("x", &core.ProcessResult{LaunchError: "binary not found: x"}, core.ExitZero()), &le)
	assert.ErrorAs(t, Classify("x", nil, core.ExitZero()), &le)

	var ee *core.ToolExecutionError
	err := Classify("x", &core.ProcessResult{ExitCode: 3}, core.ExitZero())
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, 3, ee.ExitCode)

	assert.NoError(t, Classify("x", &core.ProcessResult{ExitCode: 0}, core.ExitZero()))
}

func TestStderrCapped(t *testing.T) {
	big := strings.Repeat("e", core.MaxErrorTextBytes*2)
	env := Wrap("x", &core.ProcessResult{ExitCode: 1, Stderr: []byte(big)}, nil, core.ExitZero())
	assert.Equal(t, core.MaxErrorTextBytes+len("..."), len(env.Error))
}

func TestFailure(t *testing.T) {
	env := Failure(core.NewUnknownOptionError("x", "dpeth"))
	assert.Equal(t, `{"success":false,"error":"x: option \"dpeth\": unknown option"}`, toJSON(t, env))

	assert.Equal(t, "unknown error", Failure(nil).Error)
	assert.Equal(t, "boom", Failure(errors.New("boom")).Error)
}

func TestFailureKeepsCause(t *testing.T) {
	cause := &core.ConfigurationError{Tool: core.ToolNmap, Key: "target", Reason: "required option missing"}
	env := Failure(cause)

	var ce *core.ConfigurationError
	require.True(t, errors.As(env.Err, &ce))
	assert.Equal(t, "target", ce.Key)
	// 原因不进入序列化结果
	assert.Equal(t, `{"success":false,"error":"nmap: option \"target\": required option missing"}`, toJSON(t, env))
}
