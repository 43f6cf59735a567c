package runner

import (
	"os"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/liyander/secops-mcp/internal/pkg/logger"
)

// maxTreeDepth 后代遍历的最大深度
const maxTreeDepth = 32

// markerEnv 每次调用注入的环境变量，值为本次调用的随机标记
const markerEnv = "SECOPS_INVOCATION_MARK"

// snapshotDescendants 广度优先收集 pid 的全部后代
func snapshotDescendants(pid int) []*process.Process {
	root, err := process.NewProcess(int32(pid))
	if err != nil {
		return nil
	}

	var out []*process.Process
	seen := map[int32]struct{}{root.Pid: {}}
	level := []*process.Process{root}
	for depth := 0; depth < maxTreeDepth && len(level) > 0; depth++ {
		var next []*process.Process
		for _, p := range level {
			children, err := p.Children()
			if err != nil {
				// 没有子进程时 gopsutil 返回 ErrorNoChildren
				continue
			}
			for _, c := range children {
				if _, ok := seen[c.Pid]; ok {
					continue
				}
				seen[c.Pid] = struct{}{}
				out = append(out, c)
				next = append(next, c)
			}
		}
		level = next
	}
	return out
}

// findMarked 扫描环境变量中带有本次标记的存活进程
// 根进程退出后后代已被收养，父子关系和进程组都不可靠，环境变量会随 fork/exec 继承
func findMarked(mark string) []*process.Process {
	procs, err := process.Processes()
	if err != nil {
		return nil
	}
	want := markerEnv + "=" + mark
	self := int32(os.Getpid())

	var out []*process.Process
	for _, p := range procs {
		if p.Pid == self {
			continue
		}
		// 其他用户的进程读不到环境变量，直接跳过
		env, err := p.Environ()
		if err != nil {
			continue
		}
		for _, kv := range env {
			if kv == want {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// killAll 结束快照中的进程，已经退出的忽略
func killAll(procs []*process.Process) {
	for _, p := range procs {
		if err := p.Kill(); err != nil {
			logger.Debugf("kill descendant %d: %v", p.Pid, err)
		}
	}
}

// Alive 进程是否仍在运行，僵尸进程视为已退出
func Alive(pid int) bool {
	exists, err := process.PidExists(int32(pid))
	if err != nil || !exists {
		return false
	}
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return false
	}
	status, err := p.Status()
	if err != nil {
		return true
	}
	for _, s := range status {
		if s == process.Zombie {
			return false
		}
	}
	return true
}
