/**
 * 结果表格化
 * @author: sun977
 * @date: 2026.02.18
 * @description: 将结果结构中的 results 转换为表头 + 行，供控制台与 CSV 输出共用
 */
package reporter

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/liyander/secops-mcp/internal/executor/core"
)

// TabularData 表格数据
type TabularData struct {
	Headers []string
	Rows    [][]string
}

// Empty 没有任何行
func (t *TabularData) Empty() bool {
	return t == nil || len(t.Rows) == 0
}

// Tabulate 把任意结果转成表格
// 对象列表以键的并集为表头，标量列表为单列，单个列表字段的对象展开该列表，其余对象按键值两列输出
func Tabulate(results interface{}) (*TabularData, error) {
	generic, err := toGeneric(results)
	if err != nil {
		return nil, err
	}
	return tabulateGeneric(generic), nil
}

// BulkSummary 批量扫描结果按目标汇总
func BulkSummary(env *core.ResultEnvelope) (*TabularData, bool) {
	if env == nil {
		return nil, false
	}
	generic, err := toGeneric(env.Results)
	if err != nil {
		return nil, false
	}
	obj, ok := generic.(map[string]interface{})
	if !ok {
		return nil, false
	}
	perTarget, ok := obj["results"].(map[string]interface{})
	if !ok {
		return nil, false
	}

	data := &TabularData{Headers: []string{"target", "success", "items", "error"}}
	for _, target := range sortedKeys(perTarget) {
		item, _ := perTarget[target].(map[string]interface{})
		success, _ := item["success"].(bool)
		errMsg, _ := item["error"].(string)
		data.Rows = append(data.Rows, []string{
			target,
			fmt.Sprintf("%t", success),
			fmt.Sprintf("%d", countItems(item["results"])),
			errMsg,
		})
	}
	return data, true
}

func tabulateGeneric(v interface{}) *TabularData {
	switch val := v.(type) {
	case nil:
		return &TabularData{}
	case []interface{}:
		return tabulateList(val)
	case map[string]interface{}:
		if list, ok := singleList(val); ok {
			return tabulateList(list)
		}
		data := &TabularData{Headers: []string{"key", "value"}}
		for _, k := range sortedKeys(val) {
			data.Rows = append(data.Rows, []string{k, formatCell(val[k])})
		}
		return data
	default:
		return &TabularData{Headers: []string{"value"}, Rows: [][]string{{formatCell(val)}}}
	}
}

func tabulateList(list []interface{}) *TabularData {
	if len(list) == 0 {
		return &TabularData{}
	}

	// 全部是对象时按键并集展开
	seen := make(map[string]struct{})
	allObjects := true
	for _, item := range list {
		obj, ok := item.(map[string]interface{})
		if !ok {
			allObjects = false
			break
		}
		for k := range obj {
			seen[k] = struct{}{}
		}
	}

	if !allObjects {
		data := &TabularData{Headers: []string{"value"}}
		for _, item := range list {
			data.Rows = append(data.Rows, []string{formatCell(item)})
		}
		return data
	}

	headers := sortedKeys(seen)
	data := &TabularData{Headers: headers}
	for _, item := range list {
		obj := item.(map[string]interface{})
		row := make([]string, len(headers))
		for i, h := range headers {
			row[i] = formatCell(obj[h])
		}
		data.Rows = append(data.Rows, row)
	}
	return data
}

// singleList 对象只有一个字段且为列表，例如 {"hosts": [...]}
func singleList(obj map[string]interface{}) ([]interface{}, bool) {
	if len(obj) != 1 {
		return nil, false
	}
	for _, v := range obj {
		list, ok := v.([]interface{})
		return list, ok
	}
	return nil, false
}

func countItems(v interface{}) int {
	switch val := v.(type) {
	case nil:
		return 0
	case []interface{}:
		return len(val)
	case map[string]interface{}:
		if list, ok := singleList(val); ok {
			return len(list)
		}
		return 1
	default:
		return 1
	}
}

func formatCell(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []interface{}:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, formatCell(item))
		}
		return strings.Join(parts, ", ")
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}

// toGeneric 经 JSON 往返统一为 map / slice / 标量
func toGeneric(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode results: %w", err)
	}
	var out interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("failed to decode results: %w", err)
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
