package catalog

import (
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/liyander/secops-mcp/internal/executor/core"
	"github.com/liyander/secops-mcp/internal/pkg/utils"
)

// 解析后的值统一是 []interface{}，元素为 map (JSON 记录) 或 string (文本行)
func asRecords(tool core.ToolName, value interface{}) ([]interface{}, error) {
	items, ok := value.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%s: expected a list, got %T", tool, value)
	}
	return items, nil
}

func field(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

// ==================== gospider ====================

func reduceGospider(value interface{}, opts core.Options) (interface{}, error) {
	items, err := asRecords(core.ToolGospider, value)
	if err != nil {
		return nil, err
	}

	urls := make([]interface{}, 0, len(items))
	forms := make([]interface{}, 0)
	secrets := make([]interface{}, 0)

	for _, item := range items {
		switch v := item.(type) {
		case string:
			// 文本模式只保留 URL 行
			if strings.HasPrefix(v, "http") {
				urls = append(urls, map[string]interface{}{"url": v, "source": "crawl", "tag": "url", "status": nil})
			}
		case map[string]interface{}:
			switch field(v, "type") {
			case "url":
				status, ok := v["status_code"]
				if !ok {
					status = v["stat"]
				}
				entry := map[string]interface{}{
					"url":    v["output"],
					"source": v["source"],
					"tag":    v["tag"],
					"status": status,
				}
				if length, ok := v["length"]; ok {
					entry["length"] = length
				}
				urls = append(urls, entry)
			case "form":
				forms = append(forms, map[string]interface{}{"url": v["output"], "source": v["source"], "tag": v["tag"]})
			case "secret":
				secrets = append(secrets, map[string]interface{}{"secret": v["output"], "source": v["source"], "tag": v["tag"]})
			}
		}
	}

	include, err := localList(opts, "extensions")
	if err != nil {
		return nil, err
	}
	exclude, err := localList(opts, "exclude_extensions")
	if err != nil {
		return nil, err
	}
	filterLength, hasLength := 0, false
	if raw, ok := opts["filter_length"]; ok && raw != nil {
		if filterLength, err = utils.ToInt(raw); err != nil {
			return nil, err
		}
		hasLength = true
	}

	filtered := len(include) > 0 || len(exclude) > 0 || hasLength
	if filtered {
		kept := make([]interface{}, 0, len(urls))
		for _, u := range urls {
			entry := u.(map[string]interface{})
			link, _ := entry["url"].(string)
			if len(include) > 0 && !hasExtension(link, include) {
				continue
			}
			if len(exclude) > 0 && hasExtension(link, exclude) {
				continue
			}
			if hasLength {
				if n, err := utils.ToInt(entry["length"]); err == nil && n == filterLength {
					continue
				}
			}
			kept = append(kept, entry)
		}
		urls = kept
	}

	result := map[string]interface{}{
		"target":  opts["target"],
		"urls":    urls,
		"forms":   forms,
		"secrets": secrets,
		"stats": map[string]interface{}{
			"total_urls":    len(urls),
			"total_forms":   len(forms),
			"total_secrets": len(secrets),
		},
	}
	if filtered {
		result["filtered"] = true
	}
	return result, nil
}

func localList(opts core.Options, key string) ([]string, error) {
	raw, ok := opts[key]
	if !ok || raw == nil {
		return nil, nil
	}
	items, err := utils.ToStringSlice(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimPrefix(strings.TrimSpace(it), "."); it != "" {
			out = append(out, it)
		}
	}
	return out, nil
}

func hasExtension(link string, exts []string) bool {
	for _, ext := range exts {
		if strings.HasSuffix(link, "."+ext) {
			return true
		}
	}
	return false
}

// ==================== arjun ====================

func reduceArjun(value interface{}, opts core.Options) (interface{}, error) {
	items, err := asRecords(core.ToolArjun, value)
	if err != nil {
		return nil, err
	}

	parameters := make([]string, 0)
	add := func(v interface{}) {
		if s, ok := v.(string); ok && s != "" {
			parameters = append(parameters, s)
		}
	}

	textMode := formatOf(opts, "json") == "text"
	for _, item := range items {
		switch v := item.(type) {
		case string:
			// 文本模式下 "[" 开头的是状态行
			if textMode && strings.HasPrefix(v, "[") {
				continue
			}
			add(v)
		case []interface{}:
			for _, p := range v {
				add(p)
			}
		case map[string]interface{}:
			if list, ok := v["parameters"].([]interface{}); ok {
				for _, p := range list {
					add(p)
				}
				continue
			}
			// arjun -oJ 的结构: {"<url>": {"params": [...], ...}}
			for _, entry := range v {
				if m, ok := entry.(map[string]interface{}); ok {
					if list, ok := m["params"].([]interface{}); ok {
						for _, p := range list {
							add(p)
						}
					}
				}
			}
		}
	}
	parameters = utils.Dedup(parameters)

	method, _ := opts["method"].(string)
	if method == "" {
		method = "GET"
	}
	params := make([]interface{}, 0, len(parameters))
	for _, p := range parameters {
		params = append(params, p)
	}

	result := map[string]interface{}{
		"target":     opts["url"],
		"method":     strings.ToUpper(method),
		"parameters": params,
		"count":      len(params),
	}

	custom, err := localList(opts, "custom_params")
	if err != nil {
		return nil, err
	}
	if len(custom) > 0 {
		found := make(map[string]bool, len(parameters))
		for _, p := range parameters {
			found[p] = true
		}
		tested := make([]interface{}, 0, len(custom))
		matched := make([]interface{}, 0)
		for _, c := range custom {
			tested = append(tested, c)
			if found[c] {
				matched = append(matched, c)
			}
		}
		result["custom_parameters_tested"] = tested
		result["custom_parameters_found"] = matched
		result["custom_match_count"] = len(matched)
	}
	return result, nil
}

func formatOf(opts core.Options, fallback string) string {
	if s, ok := opts["output_format"].(string); ok && s != "" {
		return s
	}
	return fallback
}

// ==================== sqlmap ====================

var sqlmapParameter = regexp2.MustCompile(`^(?<name>.*?)\s*\((?<place>[^)]*)\)\s*$`, regexp2.None)

// reduceSqlmap 把 Parameter/Type/Title/Payload 行折叠为注入点
func reduceSqlmap(value interface{}, opts core.Options) (interface{}, error) {
	items, err := asRecords(core.ToolSqlmap, value)
	if err != nil {
		return nil, err
	}

	points := make([]interface{}, 0)
	var current map[string]interface{}
	var technique map[string]interface{}

	for _, item := range items {
		rec, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		val := field(rec, "value")
		switch field(rec, "key") {
		case "Parameter":
			name, place := val, ""
			if m, err := sqlmapParameter.FindStringMatch(val); err == nil && m != nil {
				name, place = m.GroupByName("name").String(), m.GroupByName("place").String()
			}
			current = map[string]interface{}{"parameter": name, "place": place, "techniques": []interface{}{}}
			technique = nil
			points = append(points, current)
		case "Type":
			if current == nil {
				continue
			}
			technique = map[string]interface{}{"type": val, "title": "", "payload": ""}
			current["techniques"] = append(current["techniques"].([]interface{}), technique)
		case "Title", "Payload":
			if technique == nil {
				continue
			}
			technique[strings.ToLower(field(rec, "key"))] = val
		}
	}

	return map[string]interface{}{
		"url":              opts["url"],
		"vulnerable":       len(points) > 0,
		"injection_points": points,
	}, nil
}

// ==================== amass ====================

// reduceAmass 每行第一个字段是发现的名称
func reduceAmass(value interface{}, opts core.Options) (interface{}, error) {
	items, err := asRecords(core.ToolAmass, value)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(items))
	for _, item := range items {
		line, ok := item.(string)
		if !ok {
			continue
		}
		if fields := strings.Fields(line); len(fields) > 0 {
			names = append(names, fields[0])
		}
	}
	names = utils.Dedup(names)

	out := make([]interface{}, 0, len(names))
	for _, n := range names {
		out = append(out, n)
	}
	return map[string]interface{}{
		"domain": opts["domain"],
		"names":  out,
		"count":  len(out),
	}, nil
}
