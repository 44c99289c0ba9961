package session

import (
	"os"
	"path/filepath"
)

// EnvHome overrides the data directory.
const EnvHome = "LIBRARYCHAT_HOME"

// BaseDir returns ~/.librarychat, or $LIBRARYCHAT_HOME when set.
func BaseDir() string {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".librarychat")
}

// Dir returns the user-specific directory.
func Dir(user string) string {
	return filepath.Join(BaseDir(), "users", user)
}

// LockPath returns the lock file path for a user.
func LockPath(user string) string {
	return filepath.Join(Dir(user), "LOCK")
}

// DBPath returns the read-receipt database path.
func DBPath(user string) string {
	return filepath.Join(Dir(user), "receipts.db")
}

// LogDir returns the log directory for a user.
func LogDir(user string) string {
	return filepath.Join(Dir(user), "logs")
}

// LogPath returns the log file path of the named binary.
func LogPath(user, binary string) string {
	return filepath.Join(LogDir(user), binary+".log")
}

// HostLogPath returns the log file of a binary before a user is known.
func HostLogPath(binary string) string {
	return filepath.Join(BaseDir(), "logs", binary+".log")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// EnvPath returns the optional .env file path.
func EnvPath() string {
	return filepath.Join(BaseDir(), ".env")
}

// EnsureDir creates the user directory tree with proper permissions.
func EnsureDir(user string) error {
	dirs := []string{
		Dir(user),
		LogDir(user),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
