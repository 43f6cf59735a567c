package main

import (
	"fmt"
	"strings"

	"github.com/liyander/secops-mcp/internal/executor/core"
)

// parseOptions 解析 -o key=value
// 只写 key 表示布尔开关，同一 key 重复出现时合并为列表
func parseOptions(pairs []string) (core.Options, error) {
	opts := make(core.Options, len(pairs))
	for _, pair := range pairs {
		key, value, hasValue := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("invalid option %q: expected key=value", pair)
		}
		if !hasValue {
			opts[key] = true
			continue
		}

		switch prev := opts[key].(type) {
		case nil:
			opts[key] = value
		case string:
			opts[key] = []string{prev, value}
		case []string:
			opts[key] = append(prev, value)
		default:
			return nil, fmt.Errorf("option %q given both as a switch and with a value", key)
		}
	}
	return opts, nil
}
