package commands

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "dittoftp"

// GetDefaultStateDir is where the daemon keeps its PID and log files:
// %LOCALAPPDATA%\dittoftp on Windows, $XDG_STATE_HOME/dittoftp elsewhere.
func GetDefaultStateDir() string {
	if runtime.GOOS == "windows" {
		if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
			return filepath.Join(dir, appName)
		}
		return homeRelative("AppData", "Local", appName)
	}
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	return homeRelative(".local", "state", appName)
}

func homeRelative(elem ...string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), appName)
	}
	return filepath.Join(append([]string{home}, elem...)...)
}

func GetDefaultPidFile() string {
	return filepath.Join(GetDefaultStateDir(), appName+".pid")
}

// GetDefaultLogFile is the log destination of a backgrounded server.
func GetDefaultLogFile() string {
	return filepath.Join(GetDefaultStateDir(), appName+".log")
}
