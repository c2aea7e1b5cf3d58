// Package startup registers or removes the daemon as a login item, per
// platform: a LaunchAgent plist on macOS, an XDG autostart entry on Linux
// and a Run registry value on Windows.
package startup

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

const appName = "padmapper"

// Sync brings the login-item registration in line with want. It is
// idempotent: enabling twice rewrites the same entry, disabling an absent
// entry is a no-op.
func Sync(want bool) error {
	if want == IsEnabled() {
		if !want {
			return nil
		}
		// Rewrite anyway so a moved binary keeps launching.
	}
	if want {
		return Enable()
	}
	return Disable()
}

// Enable registers the daemon to launch at login.
func Enable() error {
	switch runtime.GOOS {
	case "darwin":
		return enableMacOS()
	case "linux":
		return enableLinux()
	case "windows":
		return enableWindows()
	default:
		return fmt.Errorf("startup: unsupported platform %s", runtime.GOOS)
	}
}

// Disable removes the login-item registration.
func Disable() error {
	switch runtime.GOOS {
	case "darwin":
		return disableMacOS()
	case "linux":
		return disableLinux()
	case "windows":
		return disableWindows()
	default:
		return fmt.Errorf("startup: unsupported platform %s", runtime.GOOS)
	}
}

// IsEnabled reports whether a login-item registration exists.
func IsEnabled() bool {
	switch runtime.GOOS {
	case "darwin":
		return isEnabledMacOS()
	case "linux":
		return isEnabledLinux()
	case "windows":
		return isEnabledWindows()
	default:
		return false
	}
}

// --- macOS ---

func macOSPlistPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "Library", "LaunchAgents", "com."+appName+".plist")
}

func enableMacOS() error {
	execPath, err := os.Executable()
	if err != nil {
		return err
	}

	plist := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>com.%s</string>
    <key>ProgramArguments</key>
    <array>
        <string>%s</string>
    </array>
    <key>RunAtLoad</key>
    <true/>
</dict>
</plist>
`, appName, execPath)

	path := macOSPlistPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(plist), 0o644)
}

func disableMacOS() error {
	err := os.Remove(macOSPlistPath())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func isEnabledMacOS() bool {
	_, err := os.Stat(macOSPlistPath())
	return err == nil
}

// --- Linux ---

func linuxDesktopPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "autostart", appName+".desktop")
}

func enableLinux() error {
	execPath, err := os.Executable()
	if err != nil {
		return err
	}

	entry := fmt.Sprintf(`[Desktop Entry]
Type=Application
Name=%s
Exec=%s
Hidden=false
NoDisplay=true
X-GNOME-Autostart-enabled=true
`, appName, execPath)

	path := linuxDesktopPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(entry), 0o644)
}

func disableLinux() error {
	err := os.Remove(linuxDesktopPath())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func isEnabledLinux() bool {
	_, err := os.Stat(linuxDesktopPath())
	return err == nil
}

// --- Windows ---

const windowsRunKey = `HKCU\Software\Microsoft\Windows\CurrentVersion\Run`

func enableWindows() error {
	execPath, err := os.Executable()
	if err != nil {
		return err
	}
	return exec.Command("reg", "add", windowsRunKey,
		"/v", appName, "/t", "REG_SZ", "/d", execPath, "/f").Run()
}

func disableWindows() error {
	output, err := exec.Command("reg", "delete", windowsRunKey,
		"/v", appName, "/f").CombinedOutput()
	if err != nil && !strings.Contains(string(output), "unable to find") {
		return err
	}
	return nil
}

func isEnabledWindows() bool {
	return exec.Command("reg", "query", windowsRunKey, "/v", appName).Run() == nil
}
