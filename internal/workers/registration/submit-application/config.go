// internal/workers/registration/submit-application/config.go
package submitapplication

import "time"

type Config struct {
	Timeout time.Duration
	// HookTimeout bounds each post-commit hook.
	HookTimeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout:     15 * time.Second,
		HookTimeout: 5 * time.Second,
	}
}
