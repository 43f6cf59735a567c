/**
 * 工具处理器
 * @author: sun977
 * @date: 2026.02.15
 * @description: 工具目录查询与调用的 HTTP 接口
 * @func:
 *   - ListTools  GET  /api/v1/tools
 *   - GetTool    GET  /api/v1/tools/:name
 *   - RunTool    POST /api/v1/tools/:name/run
 *   - BulkScan   POST /api/v1/tools/:name/bulk
 */
package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/liyander/secops-mcp/internal/executor/core"
	"github.com/liyander/secops-mcp/internal/executor/manager"
	"github.com/liyander/secops-mcp/internal/model/base"
	"github.com/liyander/secops-mcp/internal/pkg/logger"
	"github.com/liyander/secops-mcp/internal/pkg/utils"
)

// maxBodyBytes 请求体上限
const maxBodyBytes = 4 << 20

// Service 处理器依赖的调度能力，*manager.Manager 即实现
type Service interface {
	DescribeAll() []manager.ToolDescriptor
	DescribeTool(name string) (manager.ToolDescriptor, error)
	Invoke(ctx context.Context, req manager.InvokeRequest) *core.ResultEnvelope
	Bulk(ctx context.Context, req manager.BulkRequest) *core.ResultEnvelope
}

// RunRequest 单次调用请求体
type RunRequest struct {
	Options        map[string]interface{} `json:"options"`
	TimeoutSeconds int                    `json:"timeout_seconds"`
}

// BulkRequest 批量扫描请求体，targets 可以是数组或逗号分隔字符串
type BulkRequest struct {
	Targets        interface{}            `json:"targets"`
	Options        map[string]interface{} `json:"options"`
	Concurrency    int                    `json:"concurrency"`
	TimeoutSeconds int                    `json:"timeout_seconds"`
}

// ToolHandler 工具处理器
type ToolHandler struct {
	service Service
}

var errNegativeTimeout = errors.New("timeout_seconds must not be negative")

// NewToolHandler 创建 ToolHandler
func NewToolHandler(service Service) *ToolHandler {
	return &ToolHandler{service: service}
}

// ListTools 列出全部工具
func (h *ToolHandler) ListTools(c *gin.Context) {
	tools := h.service.DescribeAll()
	c.JSON(http.StatusOK, base.NewSuccessResponse(fmt.Sprintf("%d tools", len(tools)), tools))
}

// GetTool 获取单个工具描述
func (h *ToolHandler) GetTool(c *gin.Context) {
	desc, err := h.service.DescribeTool(c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, base.NewSuccessResponse("Success", desc))
}

// RunTool 执行一次工具调用，工具自身的失败以 success:false 的结果结构返回
func (h *ToolHandler) RunTool(c *gin.Context) {
	name := c.Param("name")
	if _, err := h.service.DescribeTool(name); err != nil {
		h.fail(c, err)
		return
	}

	var req RunRequest
	if err := decodeBody(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, base.NewErrorResponse(http.StatusBadRequest, "Invalid request body", err))
		return
	}
	if req.TimeoutSeconds < 0 {
		c.JSON(http.StatusBadRequest, base.NewErrorResponse(http.StatusBadRequest, "Invalid timeout_seconds", errNegativeTimeout))
		return
	}

	env := h.service.Invoke(c.Request.Context(), manager.InvokeRequest{
		Tool:           core.ToolName(name),
		Options:        core.Options(req.Options),
		TimeoutSeconds: req.TimeoutSeconds,
	})
	h.respond(c, "run_tool", name, env)
}

// BulkScan 对多个目标执行同一工具
func (h *ToolHandler) BulkScan(c *gin.Context) {
	name := c.Param("name")
	if _, err := h.service.DescribeTool(name); err != nil {
		h.fail(c, err)
		return
	}

	var req BulkRequest
	if err := decodeBody(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, base.NewErrorResponse(http.StatusBadRequest, "Invalid request body", err))
		return
	}
	if req.TimeoutSeconds < 0 {
		c.JSON(http.StatusBadRequest, base.NewErrorResponse(http.StatusBadRequest, "Invalid timeout_seconds", errNegativeTimeout))
		return
	}
	targets, err := utils.ToStringSlice(req.Targets)
	if req.Targets == nil || err != nil {
		if err == nil {
			err = errors.New("targets is required")
		}
		c.JSON(http.StatusBadRequest, base.NewErrorResponse(http.StatusBadRequest, "Invalid targets", err))
		return
	}

	env := h.service.Bulk(c.Request.Context(), manager.BulkRequest{
		Tool:           core.ToolName(name),
		Targets:        targets,
		Options:        core.Options(req.Options),
		Concurrency:    req.Concurrency,
		TimeoutSeconds: req.TimeoutSeconds,
	})
	h.respond(c, "bulk_scan", name, env)
}

// respond 配置错误返回 400，其余结果原样返回 200
func (h *ToolHandler) respond(c *gin.Context, operation, name string, env *core.ResultEnvelope) {
	var ce *core.ConfigurationError
	if !env.Success && errors.As(env.Err, &ce) {
		status := http.StatusBadRequest
		if core.IsUnknownTool(env.Err) {
			status = http.StatusNotFound
		}
		c.JSON(status, base.APIResponse{
			Code:    status,
			Status:  "failed",
			Message: "Invalid tool options",
			Data:    env,
			Error:   env.Error,
		})
		return
	}

	logger.WithFields(map[string]interface{}{
		"path":      c.Request.URL.String(),
		"operation": operation,
		"tool":      name,
		"success":   env.Success,
		"func_name": "handler.tool." + operation,
	}).Info("工具调用完成")
	c.JSON(http.StatusOK, env)
}

func (h *ToolHandler) fail(c *gin.Context, err error) {
	if core.IsUnknownTool(err) {
		c.JSON(http.StatusNotFound, base.NewErrorResponse(http.StatusNotFound, "Tool not found", err))
		return
	}
	c.JSON(http.StatusInternalServerError, base.NewErrorResponse(http.StatusInternalServerError, "Failed to resolve tool", err))
}

// decodeBody 空请求体视为全部缺省，数字保留为 json.Number
func decodeBody(c *gin.Context, v interface{}) error {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes+1))
	if err != nil {
		return err
	}
	if len(body) > maxBodyBytes {
		return fmt.Errorf("request body exceeds %d bytes", maxBodyBytes)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	return dec.Decode(v)
}
