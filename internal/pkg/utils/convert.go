/**
 * 工具包:数据转换工具
 * @author: sun977
 * @date: 2026.02.10
 * @description: 调用方传入的选项可能来自 JSON(float64)、YAML(int)、命令行(string)，这里统一做类型转换
 * @func: 选项值转换相关的工具函数集合
 */
package utils

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ==================== 基础类型转换 ====================

// StringToBool 字符串转布尔值，支持多种格式
// 支持的true值: "true", "1", "yes", "on", "enabled"
// 支持的false值: "false", "0", "no", "off", "disabled"
func StringToBool(str string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(str)) {
	case "true", "1", "yes", "on", "enabled":
		return true, true
	case "false", "0", "no", "off", "disabled":
		return false, true
	default:
		return false, false
	}
}

// ToInt 任意值转整数
// 浮点数必须是整数值，字符串按十进制解析
func ToInt(value interface{}) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int8:
		return int(v), nil
	case int16:
		return int(v), nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case uint:
		return int(v), nil
	case uint8:
		return int(v), nil
	case uint16:
		return int(v), nil
	case uint32:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float32:
		return floatToInt(float64(v))
	case float64:
		return floatToInt(v)
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("expected integer, got %q", v.String())
		}
		return int(i), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("expected integer, got %q", v)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", value)
	}
}

func floatToInt(f float64) (int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("expected integer, got %v", f)
	}
	return int(f), nil
}

// ToBool 任意值转布尔
func ToBool(value interface{}) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		b, ok := StringToBool(v)
		if !ok {
			return false, fmt.Errorf("expected boolean, got %q", v)
		}
		return b, nil
	default:
		return false, fmt.Errorf("expected boolean, got %T", value)
	}
}

// ToString 标量转字符串，不接受集合类型
func ToString(value interface{}) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case json.Number:
		return v.String(), nil
	default:
		return "", fmt.Errorf("expected string, got %T", value)
	}
}

// ToStringSlice 任意值转字符串切片
// 字符串按逗号分割 (与命令行 "a,b,c" 写法一致)，空元素被忽略
func ToStringSlice(value interface{}) ([]string, error) {
	switch v := value.(type) {
	case []string:
		return append([]string(nil), v...), nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for i, item := range v {
			s, err := ToString(item)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out = append(out, s)
		}
		return out, nil
	case []int:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, strconv.Itoa(item))
		}
		return out, nil
	case string:
		return SplitAndTrim(v, ","), nil
	default:
		s, err := ToString(value)
		if err != nil {
			return nil, fmt.Errorf("expected list, got %T", value)
		}
		return []string{s}, nil
	}
}

// SplitAndTrim 按分隔符切分并去掉空白元素
func SplitAndTrim(str, separator string) []string {
	parts := strings.Split(str, separator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// InterfaceToString 接口转字符串
func InterfaceToString(value interface{}) string {
	if value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", value)
}
