package utils

import (
	"fmt"
	"os"
	"strings"
)

// LoadList 加载列表
// 输入可以是文件路径(按行读取)，也可以是逗号分隔的字符串
func LoadList(input string) ([]string, error) {
	if input == "" {
		return nil, nil
	}

	// 1. 尝试作为文件读取
	info, err := os.Stat(input)
	if err == nil && !info.IsDir() {
		content, err := os.ReadFile(input)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", input, err)
		}
		// 按行分割，支持 \r\n 和 \n
		lines := strings.Split(strings.ReplaceAll(string(content), "\r\n", "\n"), "\n")
		var result []string
		for _, line := range lines {
			line = strings.TrimSpace(line)
			if line != "" && !strings.HasPrefix(line, "#") {
				result = append(result, line)
			}
		}
		return result, nil
	}

	// 2. 作为逗号分隔字符串处理
	return SplitAndTrim(input, ","), nil
}

// Dedup 去重并保持原有顺序
func Dedup(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
