package normalizer

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liyander/secops-mcp/internal/executor/core"
)

func specWith(parse core.ParseStrategy) *core.ToolSpec {
	return &core.ToolSpec{Name: "x", Binary: "x", Parse: parse, Exit: core.ExitZero()}
}

func result(stdout string) *core.ProcessResult {
	return &core.ProcessResult{ExitCode: 0, Stdout: []byte(stdout)}
}

func marshal(t *testing.T, v interface{}) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestNormalizeStrategies(t *testing.T) {
	tests := []struct {
		name   string
		parse  core.ParseStrategy
		stdout string
		want   string
	}{
		{"json document", JSONDocument{}, `{"a":1,"big":12345678901234567890}`, `{"a":1,"big":12345678901234567890}`},
		{"json empty object", JSONDocument{}, "{}", `{}`},
		{"json whitespace", JSONDocument{}, "  \n ", `{}`},
		{"json lines", JSONLines{}, "{\"host\":\"a\"}\n\n{\"host\":\"b\"}\r\n", `[{"host":"a"},{"host":"b"}]`},
		{"json lines empty", JSONLines{}, "", `[]`},
		{"lines", Lines{}, " a.example.com \n\nb.example.com\n", `["a.example.com","b.example.com"]`},
		{"non json falls back", JSONDocument{}, "Error: something broke", `{"raw_output":"Error: something broke"}`},
		{"trailing data falls back", JSONDocument{}, `{"a":1} {"b":2}`, `{"raw_output":"{\"a\":1} {\"b\":2}"}`},
		{"bad json line falls back", JSONLines{}, "{\"a\":1}\n[INF] progress", `{"raw_output":"{\"a\":1}\n[INF] progress"}`},
		{"bom stripped", JSONDocument{}, "\xef\xbb\xbf{\"a\":true}", `{"a":true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(specWith(tt.parse), nil, result(tt.stdout))
			assert.JSONEq(t, tt.want, marshal(t, got))
		})
	}
}

func TestNormalizeInvalidUTF8(t *testing.T) {
	got := Normalize(specWith(JSONDocument{}), nil, result("caf\xe9"))
	require.True(t, core.IsRawFallback(got))
	assert.Equal(t, "caf�", got.(map[string]interface{})[core.RawOutputKey])
}

func TestNormalizeNilInputs(t *testing.T) {
	assert.True(t, core.IsRawFallback(Normalize(specWith(Lines{}), nil, nil)))
	assert.True(t, core.IsRawFallback(Normalize(nil, nil, result("x"))))
	assert.True(t, core.IsRawFallback(Normalize(specWith(nil), nil, result("x"))))
}

func TestNormalizeReducer(t *testing.T) {
	spec := specWith(Lines{})
	spec.Reduce = func(v interface{}, opts core.Options) (interface{}, error) {
		return map[string]interface{}{"count": len(v.([]interface{})), "target": opts["target"]}, nil
	}

	got := Normalize(spec, core.Options{"target": "t"}, result("a\nb\n"))
	assert.JSONEq(t, `{"count":2,"target":"t"}`, marshal(t, got))

	// 空输出也经过 reducer
	got = Normalize(spec, core.Options{"target": "t"}, result(""))
	assert.JSONEq(t, `{"count":0,"target":"t"}`, marshal(t, got))
}

func TestNormalizeReducerFailures(t *testing.T) {
	spec := specWith(Lines{})
	spec.Reduce = func(v interface{}, opts core.Options) (interface{}, error) {
		return nil, errors.New("bad shape")
	}
	assert.Equal(t, core.RawTextFallback("a"), Normalize(spec, nil, result("a")))

	spec.Reduce = func(v interface{}, opts core.Options) (interface{}, error) {
		var m map[string]int
		m["boom"] = 1
		return m, nil
	}
	assert.NotPanics(t, func() {
		assert.Equal(t, core.RawTextFallback("a"), Normalize(spec, nil, result("a")))
	})
}

func TestNormalizeFormatVariant(t *testing.T) {
	spec := &core.ToolSpec{
		Name:         "x",
		FormatOption: "output_format",
		Options:      []core.OptionSpec{{Name: "output_format", Kind: core.KindEnum, Style: core.StyleLocal, Default: "json"}},
		Formats: map[string]core.FormatSpec{
			"json": {Parse: JSONLines{}},
			"text": {Parse: Lines{}},
		},
	}

	assert.JSONEq(t, `[{"a":1}]`, marshal(t, Normalize(spec, nil, result(`{"a":1}`))))
	assert.JSONEq(t, `["{\"a\":1}"]`, marshal(t, Normalize(spec, core.Options{"output_format": "text"}, result(`{"a":1}`))))
}

func TestPattern(t *testing.T) {
	p := MustPattern(`^\[(?<time>[\d:]+)\]\s+(?<status>\d{3})\s+-\s+(?<size>\S+)\s+-\s+(?<url>\S+)(?:\s+->\s+(?<redirect>\S+))?$`, "status")

	out, err := p.Parse("[10:00:01] 200 -   1KB - https://t/admin\nnoise line\n[10:00:02] 301 -  0B  - https://t/old  ->  https://t/new\n")
	require.NoError(t, err)

	assert.JSONEq(t, `[
		{"time":"10:00:01","status":200,"size":"1KB","url":"https://t/admin"},
		{"time":"10:00:02","status":301,"size":"0B","url":"https://t/old","redirect":"https://t/new"}
	]`, marshal(t, out))
}

func TestNewPatternInvalid(t *testing.T) {
	_, err := NewPattern(`(?<open`)
	assert.Error(t, err)
}

func TestNmapXML(t *testing.T) {
	doc := `<?xml version="1.0"?>
<nmaprun scanner="nmap" args="nmap -sV -oX - 10.0.0.1" version="7.94">
  <host>
    <status state="up" reason="syn-ack"/>
    <address addr="10.0.0.1" addrtype="ipv4"/>
    <address addr="00:11:22:33:44:55" addrtype="mac"/>
    <hostnames><hostname name="router.lan" type="PTR"/></hostnames>
    <ports>
      <port protocol="tcp" portid="22"><state state="open"/><service name="ssh" product="OpenSSH" version="9.6"/></port>
      <port protocol="tcp" portid="80"><state state="closed"/><service name="http"/></port>
    </ports>
  </host>
  <runstats><finished elapsed="1.2" summary="1 IP address (1 host up)"/></runstats>
</nmaprun>`

	out := Normalize(specWith(NmapXML{}), nil, result(doc))
	assert.JSONEq(t, `{
		"args": "nmap -sV -oX - 10.0.0.1",
		"summary": "1 IP address (1 host up)",
		"hosts": [{
			"address": "10.0.0.1",
			"hostnames": ["router.lan"],
			"status": "up",
			"ports": [
				{"port":22,"protocol":"tcp","state":"open","service":"ssh","product":"OpenSSH","version":"9.6"},
				{"port":80,"protocol":"tcp","state":"closed","service":"http","product":"","version":""}
			]
		}]
	}`, marshal(t, out))

	assert.True(t, core.IsRawFallback(Normalize(specWith(NmapXML{}), nil, result("Starting Nmap 7.94"))))
	assert.JSONEq(t, `{"hosts":[]}`, marshal(t, Normalize(specWith(NmapXML{}), nil, result(""))))
}

func TestStrategyByName(t *testing.T) {
	for _, name := range []string{"json_lines", "jsonl", "json", "lines", "", "nmap_xml"} {
		s, err := StrategyByName(name, "")
		require.NoError(t, err, name)
		assert.NotNil(t, s)
	}

	s, err := StrategyByName("pattern", `^(?<word>\w+)$`)
	require.NoError(t, err)
	assert.Equal(t, "pattern", s.Name())

	_, err = StrategyByName("pattern", "")
	assert.Error(t, err)
	_, err = StrategyByName("yaml", "")
	assert.Error(t, err)
}
