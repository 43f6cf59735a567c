package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHostStatus(t *testing.T) {
	status := GetHostStatus()
	require.NotNil(t, status)
	assert.NotEmpty(t, status.OS)
	assert.NotEmpty(t, status.Arch)
	assert.Greater(t, status.CPUCores, 0)
	assert.Greater(t, status.Goroutines, 0)
	assert.GreaterOrEqual(t, status.MemoryUsage, 0.0)
}
