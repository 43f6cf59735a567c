package normalizer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/liyander/secops-mcp/internal/executor/core"
)

// decodeJSON 解码单个 JSON 值，数字保持 json.Number，避免大整数丢失精度
func decodeJSON(data string) (interface{}, error) {
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	// 只允许一个值
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}
	return v, nil
}

// splitLines 按行拆分并去掉空行
func splitLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// JSONLines 每个非空行都是一个 JSON 值
// SkipInvalid 为 true 时跳过无法解析的行 (进度信息等)，但一行都解析不出时仍然算失败
type JSONLines struct {
	SkipInvalid bool
}

func (JSONLines) Name() string { return "json_lines" }

func (JSONLines) Empty() interface{} { return []interface{}{} }

func (s JSONLines) Parse(text string) (interface{}, error) {
	lines := splitLines(text)
	out := make([]interface{}, 0, len(lines))
	var firstErr error
	for i, line := range lines {
		v, err := decodeJSON(line)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("line %d: %w", i+1, err)
			}
			if s.SkipInvalid {
				continue
			}
			return nil, firstErr
		}
		out = append(out, v)
	}
	if len(out) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// JSONDocument 整个输出是一个 JSON 文档
type JSONDocument struct{}

func (JSONDocument) Name() string { return "json" }

func (JSONDocument) Empty() interface{} { return map[string]interface{}{} }

func (JSONDocument) Parse(text string) (interface{}, error) {
	return decodeJSON(text)
}

// Lines 每个非空行作为一个字符串
type Lines struct{}

func (Lines) Name() string { return "lines" }

func (Lines) Empty() interface{} { return []interface{}{} }

func (Lines) Parse(text string) (interface{}, error) {
	lines := splitLines(text)
	out := make([]interface{}, 0, len(lines))
	for _, line := range lines {
		out = append(out, line)
	}
	return out, nil
}

const patternMatchTimeout = time.Second

// Pattern 用命名分组正则逐行匹配，每个匹配行生成一个 map，不匹配的行忽略
// regexp2 支持 (?<name>...) 命名分组和环视
type Pattern struct {
	re        *regexp2.Regexp
	intGroups map[string]struct{}
}

// NewPattern 编译正则，intGroups 中的分组转为整数
func NewPattern(expr string, intGroups ...string) (*Pattern, error) {
	re, err := regexp2.Compile(expr, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", expr, err)
	}
	// 回溯失控时按解析失败处理
	re.MatchTimeout = patternMatchTimeout
	p := &Pattern{re: re, intGroups: make(map[string]struct{}, len(intGroups))}
	for _, g := range intGroups {
		p.intGroups[g] = struct{}{}
	}
	return p, nil
}

// MustPattern 用于内置目录，正则错误直接 panic
func MustPattern(expr string, intGroups ...string) *Pattern {
	p, err := NewPattern(expr, intGroups...)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Pattern) Name() string { return "pattern" }

func (p *Pattern) Empty() interface{} { return []interface{}{} }

func (p *Pattern) Parse(text string) (interface{}, error) {
	out := make([]interface{}, 0)
	for _, line := range splitLines(text) {
		m, err := p.re.FindStringMatch(line)
		if err != nil {
			return nil, err
		}
		if m == nil {
			continue
		}
		record := make(map[string]interface{})
		for _, g := range m.Groups() {
			if g.Name == "" || isNumeric(g.Name) {
				continue
			}
			if len(g.Captures) == 0 {
				continue
			}
			value := g.String()
			if _, ok := p.intGroups[g.Name]; ok {
				if n, err := strconv.Atoi(value); err == nil {
					record[g.Name] = n
					continue
				}
			}
			record[g.Name] = value
		}
		out = append(out, record)
	}
	return out, nil
}

func isNumeric(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}

// StrategyByName 自定义工具通过名称选择策略
func StrategyByName(name, pattern string) (core.ParseStrategy, error) {
	switch strings.ToLower(name) {
	case "json_lines", "jsonl":
		return JSONLines{}, nil
	case "json":
		return JSONDocument{}, nil
	case "lines", "":
		return Lines{}, nil
	case "nmap_xml":
		return NmapXML{}, nil
	case "pattern":
		if pattern == "" {
			return nil, fmt.Errorf("parse strategy pattern requires a pattern")
		}
		p, err := NewPattern(pattern)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown parse strategy %q", name)
	}
}

// trimBOM 去掉 UTF-8 BOM
func trimBOM(b []byte) []byte {
	return bytes.TrimPrefix(b, []byte("\xef\xbb\xbf"))
}
