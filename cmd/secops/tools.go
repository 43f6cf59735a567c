package main

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/liyander/secops-mcp/internal/executor/manager"
	"github.com/liyander/secops-mcp/internal/reporter"
)

var toolsJSON bool

var toolsCmd = &cobra.Command{
	Use:   "tools [name]",
	Short: "列出工具目录",
	Long: `不带参数时列出全部工具及二进制是否可用，指定名称 (或 MCP 名称、别名) 时输出该工具的选项表。

示例:
  secops-mcp tools
  secops-mcp tools nmap_scan`,
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{annotationInteractive: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := manager.NewFromConfig(rt.cfg)
		if err != nil {
			return err
		}
		r := reporter.NewConsoleReporter(os.Stdout, toolsJSON)
		if len(args) == 0 {
			return r.ReportTools(mgr.DescribeAll())
		}

		desc, err := mgr.DescribeTool(args[0])
		if err != nil {
			return err
		}
		if toolsJSON {
			return r.ReportTools([]manager.ToolDescriptor{desc})
		}
		return printToolDetail(desc)
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
	toolsCmd.Flags().BoolVar(&toolsJSON, "json", false, "以 JSON 输出")
}

func printToolDetail(desc manager.ToolDescriptor) error {
	pterm.DefaultSection.Println(desc.Name)
	pterm.Println(desc.Description)
	pterm.Printfln("MCP name: %s   binary: %s   available: %t   default timeout: %ds",
		desc.MCPName, desc.Binary, desc.Available, desc.DefaultTimeout)

	tableData := pterm.TableData{{"Option", "Type", "Flag", "Required", "Default", "Description"}}
	for _, opt := range desc.Options {
		def := ""
		if opt.Default != nil {
			def = fmt.Sprint(opt.Default)
		}
		flag := opt.Flag
		if opt.Local {
			flag = "(local)"
		}
		tableData = append(tableData, []string{opt.Name, opt.Type, flag, fmt.Sprintf("%t", opt.Required), def, opt.Description})
	}
	return pterm.DefaultTable.WithHasHeader(true).WithBoxed(false).WithData(tableData).Render()
}
