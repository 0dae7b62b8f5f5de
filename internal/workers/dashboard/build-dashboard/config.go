// internal/workers/dashboard/build-dashboard/config.go
package builddashboard

import "time"

type Config struct {
	Timeout           time.Duration
	RiskThresholdDays int
	CacheTTL          time.Duration
	CacheKey          string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:           10 * time.Second,
		RiskThresholdDays: 14,
		CacheTTL:          time.Minute,
		CacheKey:          "dashboard:v1",
	}
}
