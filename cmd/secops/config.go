package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "配置管理",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "输出合并环境变量后的生效配置",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := rt.cfg.Dump()
		if err != nil {
			return err
		}
		if rt.configFile != "" {
			fmt.Fprintf(os.Stderr, "# loaded from %s\n", rt.configFile)
		}
		_, err = os.Stdout.Write(data)
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "生成配置文件",
	Long:  "把当前生效配置 (未使用配置文件时即默认值) 写入指定路径，默认 configs/config.yaml。",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "configs/config.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil && !configForce {
			return fmt.Errorf("%s already exists, use --force to overwrite", path)
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err := rt.cfg.Save(path); err != nil {
			return err
		}
		pterm.Success.Printfln("Config written to %s", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd, configInitCmd)
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "覆盖已存在的文件")
}
