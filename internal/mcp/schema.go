package mcp

import (
	"fmt"

	"github.com/liyander/secops-mcp/internal/executor/catalog"
	"github.com/liyander/secops-mcp/internal/executor/core"
)

// 保留参数与批量工具
const (
	timeoutArgument = "timeout_seconds"

	BulkScanTool       = catalog.BulkScanName
	ArjunBulkScanTool  = catalog.ArjunBulkScanName
	arjunBulkTargetKey = "urls"
)

// InputSchema 根据选项表生成 JSON Schema
func InputSchema(spec *core.ToolSpec) map[string]interface{} {
	props := make(map[string]interface{}, len(spec.Options)+1)
	required := make([]string, 0)
	for i := range spec.Options {
		opt := &spec.Options[i]
		props[opt.Name] = optionSchema(opt)
		if opt.Required {
			required = append(required, opt.Name)
		}
	}
	props[timeoutArgument] = timeoutSchema()
	return objectSchema(props, required)
}

// ToolDefinitions 目录中每个工具按 MCP 名称和别名各出一项，最后是两个批量工具
func ToolDefinitions(cat *catalog.Catalog) []ToolDefinition {
	tools := cat.Tools()
	defs := make([]ToolDefinition, 0, len(tools)+4)
	for _, spec := range tools {
		schema := InputSchema(spec)
		defs = append(defs, ToolDefinition{Name: spec.MCPName, Description: spec.Description, InputSchema: schema})
		for _, alias := range spec.Aliases {
			defs = append(defs, ToolDefinition{Name: alias, Description: spec.Description, InputSchema: schema})
		}
	}

	if arjun, err := cat.Lookup(core.ToolArjun); err == nil {
		defs = append(defs, ToolDefinition{
			Name:        ArjunBulkScanTool,
			Description: "Discover HTTP parameters on multiple URLs with arjun",
			InputSchema: arjunBulkSchema(arjun),
		})
	}
	defs = append(defs, ToolDefinition{
		Name:        BulkScanTool,
		Description: "Run one tool against multiple targets concurrently",
		InputSchema: bulkSchema(cat),
	})
	return defs
}

func arjunBulkSchema(spec *core.ToolSpec) map[string]interface{} {
	props := make(map[string]interface{}, len(spec.Options)+2)
	for i := range spec.Options {
		opt := &spec.Options[i]
		if opt.Name == spec.TargetOption {
			continue
		}
		props[opt.Name] = optionSchema(opt)
	}
	props[arjunBulkTargetKey] = map[string]interface{}{
		"type":        "array",
		"items":       map[string]interface{}{"type": "string"},
		"description": "Target URLs",
	}
	props["concurrency"] = map[string]interface{}{"type": "integer", "description": "Parallel scans"}
	props[timeoutArgument] = timeoutSchema()
	return objectSchema(props, []string{arjunBulkTargetKey})
}

func bulkSchema(cat *catalog.Catalog) map[string]interface{} {
	names := make([]string, 0, cat.Len())
	for _, spec := range cat.Tools() {
		if spec.TargetOption != "" {
			names = append(names, string(spec.Name))
		}
	}
	props := map[string]interface{}{
		"tool": map[string]interface{}{
			"type":        "string",
			"enum":        names,
			"description": "Tool to run for each target",
		},
		"targets": map[string]interface{}{
			"type":        "array",
			"items":       map[string]interface{}{"type": "string"},
			"description": "Targets, each one fills the tool's target option",
		},
		"options": map[string]interface{}{
			"type":        "object",
			"description": "Options shared by every target",
		},
		"concurrency":   map[string]interface{}{"type": "integer", "description": "Parallel scans"},
		timeoutArgument: timeoutSchema(),
	}
	return objectSchema(props, []string{"tool", "targets"})
}

func optionSchema(opt *core.OptionSpec) map[string]interface{} {
	s := map[string]interface{}{"type": opt.Kind.String()}
	switch opt.Kind {
	case core.KindList, core.KindJoined:
		s["items"] = map[string]interface{}{"type": "string"}
	case core.KindEnum:
		s["enum"] = opt.Choices
	}
	desc := opt.Description
	if opt.Style == core.StyleLocal && desc == "" {
		desc = "Applied to the results, not passed to the tool"
	}
	if desc != "" {
		s["description"] = desc
	}
	if opt.Default != nil {
		s["default"] = opt.Default
	}
	return s
}

func timeoutSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"minimum":     1,
		"description": fmt.Sprintf("Per-call time limit in seconds (%s is not passed to the tool)", timeoutArgument),
	}
}

func objectSchema(props map[string]interface{}, required []string) map[string]interface{} {
	s := map[string]interface{}{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}
