package version

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetInfo(t *testing.T) {
	info := GetInfo()
	assert.Equal(t, Version, info.Version)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
	if GitCommit == "" {
		assert.Equal(t, "unknown", info.GitCommit)
	}
	assert.True(t, strings.HasSuffix(GetUserAgent(), "/"+GetVersion()))
}
