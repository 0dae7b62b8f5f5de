// internal/workers/review/update-application-status/config.go
package updateapplicationstatus

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{Timeout: 10 * time.Second}
}
