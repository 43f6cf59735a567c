/**
 * 通用响应结构体
 * @author: sun977
 * @date: 2026.02.15
 * @description: 通用API响应结构，工具调用结果放在 Data 中原样返回
 */

package base

import "net/http"

// APIResponse 通用API响应结构
type APIResponse struct {
	Code    int         `json:"code"`            // 响应状态码
	Status  string      `json:"status"`          // 响应状态："success" 或 "failed"
	Message string      `json:"message"`         // 响应消息
	Data    interface{} `json:"data,omitempty"`  // 响应数据，可选
	Error   string      `json:"error,omitempty"` // 错误信息，可选
}

// NewSuccessResponse 成功响应
func NewSuccessResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Code:    http.StatusOK,
		Status:  "success",
		Message: message,
		Data:    data,
	}
}

// NewErrorResponse 失败响应
func NewErrorResponse(code int, message string, err error) APIResponse {
	resp := APIResponse{
		Code:    code,
		Status:  "failed",
		Message: message,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}
