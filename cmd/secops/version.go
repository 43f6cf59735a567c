package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/liyander/secops-mcp/internal/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Long:  "显示 secops-mcp 的版本信息，包括版本号、构建时间、Git 提交和 Go 版本。",
	Run: func(cmd *cobra.Command, args []string) {
		info := version.GetInfo()
		fmt.Printf("secops-mcp %s\n", info.Version)
		fmt.Printf("Build Time: %s\n", info.BuildTime)
		fmt.Printf("Git Commit: %s\n", info.GitCommit)
		fmt.Printf("Go Version: %s\n", info.GoVersion)
		fmt.Printf("Platform: %s\n", info.Platform)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
