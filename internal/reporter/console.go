package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm" // 引入 pterm 库用于控制台输出

	"github.com/liyander/secops-mcp/internal/executor/core"
	"github.com/liyander/secops-mcp/internal/executor/manager"
)

// ConsoleReporter 控制台输出
type ConsoleReporter struct {
	out io.Writer
	raw bool // 直接输出 JSON
}

// NewConsoleReporter out 为空时写标准输出
func NewConsoleReporter(out io.Writer, raw bool) *ConsoleReporter {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleReporter{out: out, raw: raw}
}

// Report 输出一次调用的结果
func (r *ConsoleReporter) Report(tool string, env *core.ResultEnvelope) error {
	if env == nil {
		return nil
	}
	if r.raw {
		return r.printJSON(env)
	}

	if !env.Success {
		fmt.Fprint(r.out, pterm.Error.Sprintfln("%s failed: %s", tool, env.Error))
		return nil
	}

	if summary, ok := BulkSummary(env); ok {
		fmt.Fprint(r.out, pterm.Success.Sprintfln("%s bulk scan finished", tool))
		return r.printTable(summary)
	}

	data, err := Tabulate(env.Results)
	if err != nil {
		// 最后的回退：打印原始数据
		return r.printJSON(env)
	}
	if data.Empty() {
		fmt.Fprint(r.out, pterm.Warning.Sprintln("No results found."))
		return nil
	}
	fmt.Fprint(r.out, pterm.Success.Sprintfln("%s returned %d rows", tool, len(data.Rows)))
	return r.printTable(data)
}

// ReportTools 输出工具目录
func (r *ConsoleReporter) ReportTools(tools []manager.ToolDescriptor) error {
	if r.raw {
		return r.printJSON(tools)
	}
	data := &TabularData{Headers: []string{"Name", "MCP Name", "Category", "Binary", "Available"}}
	for _, t := range tools {
		available := pterm.Red("no")
		if t.Available {
			available = pterm.Green("yes")
		}
		data.Rows = append(data.Rows, []string{t.Name, t.MCPName, t.Category, t.Binary, available})
	}
	return r.printTable(data)
}

func (r *ConsoleReporter) printTable(data *TabularData) error {
	tableData := pterm.TableData{data.Headers}
	tableData = append(tableData, data.Rows...)
	s, err := pterm.DefaultTable.WithHasHeader(true).WithBoxed(false).WithData(tableData).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(r.out, s)
	return err
}

func (r *ConsoleReporter) printJSON(v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(r.out, string(b))
	return err
}
