package probe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGpuProcessCommand(t *testing.T) {
	cmd := GpuProcessCommand(2)
	assert.Contains(t, cmd, "-i 2")
	assert.Contains(t, cmd, "--query-compute-apps")
}

func TestDegradedMessage(t *testing.T) {
	r := &Result{}
	assert.Equal(t, "", r.DegradedMessage())

	r.Degraded = []string{"GPU query exited with code 9"}
	assert.Equal(t, "GPU query exited with code 9", r.DegradedMessage())

	r.Degraded = append(r.Degraded, "process query for GPU 1 exited with code 6")
	assert.Equal(t, "GPU query exited with code 9; process query for GPU 1 exited with code 6", r.DegradedMessage())
}
