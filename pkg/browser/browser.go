package browser

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"
)

// ErrNoBrowser is returned when no launcher is available on the platform
var ErrNoBrowser = errors.New("could not find a browser to open - please visit the URL manually")

// start launches a command without waiting for it
var start = func(name string, args ...string) error {
	return exec.Command(name, args...).Start()
}

// Open opens a URL in the default browser for the current platform
func Open(url string) error {
	candidates := launchers(runtime.GOOS, url)
	if len(candidates) == 0 {
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	var lastErr error
	for _, c := range candidates {
		if err := start(c[0], c[1:]...); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("%w: %w", ErrNoBrowser, lastErr)
}

// launchers lists the commands to try, in order, for goos
func launchers(goos, url string) [][]string {
	switch goos {
	case "darwin":
		return [][]string{{"open", url}}
	case "windows":
		return [][]string{{"rundll32", "url.dll,FileProtocolHandler", url}}
	case "linux", "freebsd", "openbsd", "netbsd":
		// Different distros have different defaults
		return [][]string{{"xdg-open", url}, {"x-www-browser", url}, {"www-browser", url}}
	default:
		return nil
	}
}
