package core

// ParseStrategy 输出解析策略
// 遵循 "Small Interfaces" 原则，解析失败返回 error，由 Normalizer 统一回退为原始文本
type ParseStrategy interface {
	// Name 策略名称
	Name() string
	// Parse 将解码后的 stdout 解析为结构化数据
	Parse(text string) (interface{}, error)
	// Empty 空输出时对应的空值 ([] 或 {})
	Empty() interface{}
}

// Reducer 对解析后的数据做工具相关的整形
type Reducer func(value interface{}, opts Options) (interface{}, error)

// RawOutputKey 解析回退时使用的字段
const RawOutputKey = "raw_output"

// RawTextFallback 解析失败时的回退结构
func RawTextFallback(text string) map[string]interface{} {
	return map[string]interface{}{RawOutputKey: text}
}

// IsRawFallback 判断结果是否为回退结构
func IsRawFallback(v interface{}) bool {
	m, ok := v.(map[string]interface{})
	if !ok || len(m) != 1 {
		return false
	}
	_, ok = m[RawOutputKey]
	return ok
}
