//go:build windows

package runner

import (
	"os/exec"

	"github.com/shirou/gopsutil/v3/process"
)

func setProcAttr(cmd *exec.Cmd) {}

// killTree Windows 没有进程组信号，按快照逐个结束后代，再结束根进程
func killTree(pid int) {
	descendants := snapshotDescendants(pid)
	killAll(descendants)
	if p, err := process.NewProcess(int32(pid)); err == nil {
		_ = p.Kill()
	}
}

func reapGroup(pid int) {}
