// Package browser opens URLs in the user's default web browser.
package browser

import (
	"fmt"
	"os/exec"
	"runtime"

	log "github.com/sirupsen/logrus"
	"github.com/skratchdot/open-golang/open"
)

// linuxBrowsers are tried in order when the desktop opener is unavailable.
var linuxBrowsers = []string{"xdg-open", "x-www-browser", "www-browser", "firefox", "chromium", "google-chrome"}

// openFunc is replaced in tests.
var openFunc = open.Run

// OpenURL opens the specified URL in the default web browser.
// It first attempts open-golang and falls back to platform specific commands.
func OpenURL(url string) error {
	log.Debugf("opening authorization url in browser")

	err := openFunc(url)
	if err == nil {
		return nil
	}
	log.Debugf("open-golang failed: %v, trying platform-specific commands", err)
	return openURLPlatformSpecific(url)
}

func openURLPlatformSpecific(url string) error {
	name, args, err := platformCommand(url)
	if err != nil {
		return err
	}
	cmd := exec.Command(name, args...)
	log.Debugf("Running command: %s", cmd.Path)
	if err = cmd.Start(); err != nil {
		return fmt.Errorf("failed to start browser command: %w", err)
	}
	return nil
}

func platformCommand(url string) (string, []string, error) {
	switch runtime.GOOS {
	case "darwin":
		return "open", []string{url}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}, nil
	case "linux":
		for _, candidate := range linuxBrowsers {
			if _, err := exec.LookPath(candidate); err == nil {
				return candidate, []string{url}, nil
			}
		}
		return "", nil, fmt.Errorf("no suitable browser found on Linux system")
	default:
		return "", nil, fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}
}

// IsAvailable reports whether a browser launcher exists on this system.
func IsAvailable() bool {
	_, _, err := platformCommand("about:blank")
	if err != nil {
		return false
	}
	if runtime.GOOS == "linux" {
		return true
	}
	name, _, _ := platformCommand("about:blank")
	_, err = exec.LookPath(name)
	return err == nil
}
