package desktop

import (
	"fmt"
	"os/exec"
	"time"
)

// DiagnosticReport tells the frontend whether the separation tool is usable
// before the user spends time picking files.
type DiagnosticReport struct {
	GeneratedAt time.Time `json:"generatedAt"`
	ToolFound   bool      `json:"toolFound"`
	ToolPath    string    `json:"toolPath,omitempty"`
	Message     string    `json:"message"`
}

// checkSeparator looks for the separation binary on PATH.
func checkSeparator(bin string) DiagnosticReport {
	report := DiagnosticReport{GeneratedAt: time.Now().UTC()}

	path, err := exec.LookPath(bin)
	if err != nil {
		report.Message = fmt.Sprintf("%s was not found on PATH. Install it and make sure it is reachable before starting a separation.", bin)
		return report
	}

	report.ToolFound = true
	report.ToolPath = path
	report.Message = fmt.Sprintf("Found %s at %s", bin, path)
	return report
}
