// 结构化日志条目
package logger

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// FormatTimestamp 格式化时间戳为统一的毫秒精度格式
func FormatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05.000")
}

// NowFormatted 返回当前时间的格式化字符串
func NowFormatted() string {
	return FormatTimestamp(time.Now())
}

// LogType 日志类型枚举
type LogType string

const (
	// AccessLog 访问日志 - 记录HTTP请求
	AccessLog LogType = "access"
	// ErrorLog 错误日志 - 记录系统错误和异常
	ErrorLog LogType = "error"
	// SystemLog 系统日志 - 记录系统运行状态
	SystemLog LogType = "system"
	// ToolLog 工具日志 - 记录每次工具调用
	ToolLog LogType = "tool"
)

// ToolLogEntry 工具调用日志条目
type ToolLogEntry struct {
	InvocationID string        `json:"invocation_id"` // 调用ID
	Tool         string        `json:"tool"`          // 工具名
	Status       string        `json:"status"`        // success/failed
	ExitCode     int           `json:"exit_code"`     // 退出码，-1 表示未启动或被结束
	Duration     time.Duration `json:"duration"`      // 耗时
	TimedOut     bool          `json:"timed_out"`     // 是否超时
	Error        string        `json:"error"`         // 失败原因
}

// LogToolInvocation 记录工具调用日志
// 成功记 info，失败记 warn，参数列表只在 debug 级别输出
func LogToolInvocation(entry ToolLogEntry, argv []string) {
	if LoggerInstance == nil {
		return
	}

	fields := logrus.Fields{
		"type":          ToolLog,
		"invocation_id": entry.InvocationID,
		"tool":          entry.Tool,
		"status":        entry.Status,
		"exit_code":     entry.ExitCode,
		"duration_ms":   entry.Duration.Milliseconds(),
		"timed_out":     entry.TimedOut,
	}
	if LoggerInstance.logger.IsLevelEnabled(logrus.DebugLevel) && len(argv) > 0 {
		fields["argv"] = argv
	}

	if entry.Status == "success" {
		LoggerInstance.logger.WithFields(fields).Info(fmt.Sprintf("Tool invocation finished: %s", entry.Tool))
		return
	}
	fields["error"] = entry.Error
	LoggerInstance.logger.WithFields(fields).Warn(fmt.Sprintf("Tool invocation failed: %s", entry.Tool))
}

// LogAccessRequest 记录HTTP访问日志
func LogAccessRequest(c *gin.Context, startTime time.Time, requestID string) {
	if LoggerInstance == nil {
		return
	}

	LoggerInstance.logger.WithFields(logrus.Fields{
		"type":          AccessLog,
		"method":        c.Request.Method,
		"path":          c.Request.URL.Path,
		"query":         c.Request.URL.RawQuery,
		"status_code":   c.Writer.Status(),
		"response_time": time.Since(startTime).Milliseconds(),
		"client_ip":     c.ClientIP(),
		"user_agent":    c.Request.UserAgent(),
		"request_id":    requestID,
		"request_size":  c.Request.ContentLength,
		"response_size": int64(c.Writer.Size()),
	}).Info("HTTP request processed")
}

// LogError 记录错误日志
func LogError(err error, requestID string, extraFields map[string]interface{}) {
	if LoggerInstance == nil || err == nil {
		return
	}

	fields := logrus.Fields{
		"type":       ErrorLog,
		"error":      err.Error(),
		"request_id": requestID,
	}
	for k, v := range extraFields {
		fields[k] = v
	}

	LoggerInstance.logger.WithFields(fields).Errorf("System error occurred: %s", err.Error())
}

// LogSystemEvent 记录系统事件日志
// 用于记录启动、关闭、配置重载等
func LogSystemEvent(component, event, message string, level LogLevel, extraFields map[string]interface{}) {
	if LoggerInstance == nil {
		return
	}

	fields := logrus.Fields{
		"type":      SystemLog,
		"component": component,
		"event":     event,
	}
	for k, v := range extraFields {
		fields[k] = v
	}

	LoggerInstance.logger.WithFields(fields).Log(toLogrusLevel(level), message)
}

// LogLevel 日志级别类型，封装logrus.Level避免调用方直接依赖logrus
type LogLevel int

const (
	// DebugLevel 调试级别
	DebugLevel LogLevel = iota
	// InfoLevel 信息级别
	InfoLevel
	// WarnLevel 警告级别
	WarnLevel
	// ErrorLevel 错误级别
	ErrorLevel
)

// toLogrusLevel 将封装的LogLevel转换为logrus.Level
func toLogrusLevel(level LogLevel) logrus.Level {
	switch level {
	case DebugLevel:
		return logrus.DebugLevel
	case InfoLevel:
		return logrus.InfoLevel
	case WarnLevel:
		return logrus.WarnLevel
	case ErrorLevel:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
