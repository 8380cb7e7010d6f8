// stemsep/desktop/diagnostics_test.go
package desktop

import (
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckSeparator(t *testing.T) {
	t.Run("finds a tool on PATH", func(t *testing.T) {
		if _, err := exec.LookPath("sh"); err != nil {
			t.Skip("sh not available")
		}

		report := checkSeparator("sh")
		assert.True(t, report.ToolFound)
		assert.NotEmpty(t, report.ToolPath)
		assert.Contains(t, report.Message, report.ToolPath)
		assert.False(t, report.GeneratedAt.IsZero())
	})

	t.Run("reports a missing tool", func(t *testing.T) {
		report := checkSeparator("definitely-not-a-real-separator")
		assert.False(t, report.ToolFound)
		assert.Empty(t, report.ToolPath)
		assert.Contains(t, report.Message, "was not found on PATH")
	})
}
