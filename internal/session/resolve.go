package session

import "github.com/avitalVissoky/ChatLibrary/internal/config"

// Resolve determines the active user using precedence:
// 1. flagOverride (--user flag)
// 2. cfg.DefaultUser (config.toml or LIBRARYCHAT_USER)
// An empty result means the user has to log in.
func Resolve(flagOverride string, cfg *config.Config) string {
	if flagOverride != "" {
		return flagOverride
	}
	if cfg != nil {
		return cfg.DefaultUser
	}
	return ""
}
