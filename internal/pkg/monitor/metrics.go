/**
 * 主机状态采集
 * @author: sun977
 * @date: 2026.02.15
 * @description: /health 接口使用的主机信息，单项采集失败只记录日志，其余字段照常返回
 */
package monitor

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/liyander/secops-mcp/internal/pkg/logger"
)

// HostStatus 主机运行状态
type HostStatus struct {
	Hostname      string  `json:"hostname"`
	OS            string  `json:"os"`
	Platform      string  `json:"platform"`
	KernelVersion string  `json:"kernel_version"`
	Arch          string  `json:"arch"`
	CPUCores      int     `json:"cpu_cores"`
	UptimeSeconds uint64  `json:"uptime_seconds"`
	Load1         float64 `json:"load1"`
	Load5         float64 `json:"load5"`
	Load15        float64 `json:"load15"`
	MemoryUsage   float64 `json:"memory_usage"`
	Goroutines    int     `json:"goroutines"`
}

// GetHostStatus 获取主机状态
func GetHostStatus() *HostStatus {
	status := &HostStatus{
		OS:         runtime.GOOS,
		Arch:       runtime.GOARCH,
		CPUCores:   runtime.NumCPU(),
		Goroutines: runtime.NumGoroutine(),
	}

	if info, err := host.Info(); err != nil {
		logger.LogSystemEvent("Monitor", "GetHostStatus", "Failed to get host info: "+err.Error(), logger.WarnLevel, nil)
	} else {
		status.Hostname = info.Hostname
		status.Platform = info.Platform
		status.KernelVersion = info.KernelVersion
		status.UptimeSeconds = info.Uptime
		if info.OS != "" {
			status.OS = info.OS
		}
		if info.KernelArch != "" {
			status.Arch = info.KernelArch
		}
	}

	// windows 上没有 load average
	if avg, err := load.Avg(); err != nil {
		logger.LogSystemEvent("Monitor", "GetHostStatus", "Failed to get load average: "+err.Error(), logger.DebugLevel, nil)
	} else {
		status.Load1, status.Load5, status.Load15 = avg.Load1, avg.Load5, avg.Load15
	}

	if vMem, err := mem.VirtualMemory(); err != nil {
		logger.LogSystemEvent("Monitor", "GetHostStatus", "Failed to get memory usage: "+err.Error(), logger.WarnLevel, nil)
	} else {
		status.MemoryUsage = vMem.UsedPercent
	}

	return status
}
