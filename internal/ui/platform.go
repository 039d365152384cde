package ui

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// Clipboard and browser hooks. Tests swap them for no-ops with
// StubPlatformActions.
var (
	copyToClipboardFn = copyToClipboardImpl
	openURLFn         = openURLImpl
)

// CopyToClipboard copies text to the system clipboard.
func CopyToClipboard(text string) error { return copyToClipboardFn(text) }

// OpenURL opens url in the default browser.
func OpenURL(url string) error { return openURLFn(url) }

// StubPlatformActions replaces the clipboard and browser hooks with no-ops
// and returns a restore function.
func StubPlatformActions() (restore func()) {
	origCopy, origOpen := copyToClipboardFn, openURLFn
	copyToClipboardFn = func(string) error { return nil }
	openURLFn = func(string) error { return nil }
	return func() {
		copyToClipboardFn = origCopy
		openURLFn = origOpen
	}
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// clipboardCommand picks the first clipboard tool available on goos.
func clipboardCommand(ctx context.Context, goos string, lookPath func(string) (string, error)) (*exec.Cmd, error) {
	switch goos {
	case "darwin":
		return exec.CommandContext(ctx, "pbcopy"), nil
	case "windows":
		return exec.CommandContext(ctx, "clip"), nil
	case "linux", "freebsd":
		candidates := [][]string{
			{"wl-copy"},
			{"xclip", "-selection", "clipboard"},
			{"xsel", "--clipboard", "--input"},
		}
		for _, c := range candidates {
			if _, err := lookPath(c[0]); err == nil {
				return exec.CommandContext(ctx, c[0], c[1:]...), nil
			}
		}
		return nil, fmt.Errorf("no clipboard command found (install wl-clipboard, xclip or xsel)")
	}
	return nil, fmt.Errorf("unsupported platform: %s", goos)
}

func copyToClipboardImpl(text string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cmd, err := clipboardCommand(ctx, runtime.GOOS, exec.LookPath)
	if err != nil {
		return err
	}
	cmd.Stdin = strings.NewReader(text)
	return cmd.Run()
}

// openURLImpl starts the browser detached; the child outlives the caller.
func openURLImpl(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux", "freebsd":
		if _, err := exec.LookPath("xdg-open"); err != nil {
			return fmt.Errorf("xdg-open not found (install xdg-utils)")
		}
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	return cmd.Start()
}
