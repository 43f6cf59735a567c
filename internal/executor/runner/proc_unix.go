//go:build !windows

package runner

import (
	"os/exec"
	"syscall"
)

// setProcAttr 子进程放入独立进程组，便于整组结束
func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killTree 结束进程树
// 先快照后代(根进程一旦退出，后代会被 init 收养，无法再通过父子关系找到)，再结束整个进程组，
// 最后结束通过 setsid 等方式脱离进程组的后代
func killTree(pid int) {
	descendants := snapshotDescendants(pid)
	_ = syscall.Kill(-pid, syscall.SIGKILL)
	killAll(descendants)
}

// reapGroup 结束进程组剩余成员，进程组为空时返回 ESRCH，忽略
func reapGroup(pid int) {
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}
