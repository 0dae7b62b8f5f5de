// internal/workers/maintenance/cleanup-empty-records/config.go
package cleanupemptyrecords

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{Timeout: 2 * time.Minute}
}
