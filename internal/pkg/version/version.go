// 版本信息，BuildTime 与 GitCommit 由构建脚本通过 -ldflags "-X" 注入

package version

import (
	"fmt"
	"runtime"
)

var (
	Version   = "1.0.0" // 版本号 -- 发布时候更新版本号
	BuildTime string
	GitCommit string
)

// Info 版本详情
type Info struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func GetVersion() string {
	return Version
}

// GetInfo 未注入的字段显示为 unknown
func GetInfo() Info {
	return Info{
		Version:   Version,
		BuildTime: orUnknown(BuildTime),
		GitCommit: orUnknown(GitCommit),
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

func GetUserAgent() string {
	return "secops-mcp/" + Version
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
