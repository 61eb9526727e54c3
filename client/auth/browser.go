package auth

import (
	"fmt"
	"os/exec"
	"runtime"
)

// openBrowser opens the URL in the system browser.
func openBrowser(URL string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", URL)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", URL)
	default:
		cmd = exec.Command("xdg-open", URL)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	return nil
}
