/**
 * 输出归一化
 * @author: sun977
 * @date: 2026.02.11
 * @description: 按工具的解析策略把 stdout 转成结构化数据，任何解析失败都回退为 {raw_output: 文本}，
 *               Normalizer 本身从不返回错误
 */
package normalizer

import (
	"fmt"
	"strings"

	"github.com/liyander/secops-mcp/internal/executor/core"
	"github.com/liyander/secops-mcp/internal/pkg/logger"
)

// Normalize 归一化一次调用的输出
func Normalize(spec *core.ToolSpec, opts core.Options, res *core.ProcessResult) interface{} {
	if res == nil {
		return core.RawTextFallback("")
	}
	text := Decode(res.Stdout)

	if spec == nil {
		return core.RawTextFallback(text)
	}
	strategy := spec.StrategyFor(opts)
	if strategy == nil {
		return core.RawTextFallback(text)
	}

	value, err := parse(strategy, text)
	if err != nil {
		logger.WithField("tool", spec.Name).Debugf("%s parse failed, using raw output: %v", strategy.Name(), err)
		return core.RawTextFallback(text)
	}

	if spec.Reduce == nil {
		return value
	}
	reduced, err := reduce(spec.Reduce, value, opts)
	if err != nil {
		logger.WithField("tool", spec.Name).Debugf("reduce failed, using raw output: %v", err)
		return core.RawTextFallback(text)
	}
	return reduced
}

// Decode 把原始字节解码为文本，非法 UTF-8 替换为 U+FFFD
func Decode(b []byte) string {
	return strings.ToValidUTF8(string(trimBOM(b)), "�")
}

// parse 严格解析，策略内部 panic 视为解析失败
func parse(strategy core.ParseStrategy, text string) (value interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			value, err = nil, fmt.Errorf("parser panic: %v", r)
		}
	}()

	if strings.TrimSpace(text) == "" {
		return strategy.Empty(), nil
	}
	return strategy.Parse(text)
}

// reduce 执行工具整形，panic 视为失败
func reduce(fn core.Reducer, value interface{}, opts core.Options) (out interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("reducer panic: %v", r)
		}
	}()
	return fn(value, opts)
}
