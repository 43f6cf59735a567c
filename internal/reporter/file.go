package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/liyander/secops-mcp/internal/executor/core"
)

// SaveResult 按扩展名保存结果，.csv 输出表格，其余输出 JSON
func SaveResult(path string, env *core.ResultEnvelope) error {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return SaveCsvResult(path, env)
	}
	return SaveJsonResult(path, env)
}

// SaveJsonResult 保存完整结果结构
func SaveJsonResult(path string, env *core.ResultEnvelope) error {
	b, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %v", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("failed to write json file: %v", err)
	}
	return nil
}

// SaveCsvResult 保存结果表格，批量结果保存按目标汇总
func SaveCsvResult(path string, env *core.ResultEnvelope) error {
	if env == nil || !env.Success {
		return fmt.Errorf("no successful result to export")
	}

	data, ok := BulkSummary(env)
	if !ok {
		var err error
		if data, err = Tabulate(env.Results); err != nil {
			return err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create csv file: %v", err)
	}
	defer f.Close()

	// 写入 UTF-8 BOM，防止 Excel 打开乱码
	if _, err := f.WriteString("\xEF\xBB\xBF"); err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if len(data.Headers) > 0 {
		if err := w.Write(data.Headers); err != nil {
			return err
		}
	}
	if err := w.WriteAll(data.Rows); err != nil {
		return err
	}
	return w.Error()
}
