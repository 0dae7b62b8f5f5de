// internal/workers/dashboard/search-applications/config.go
package searchapplications

import "time"

type Config struct {
	Timeout    time.Duration
	Index      string
	MaxResults int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:    5 * time.Second,
		Index:      "childcare-applications",
		MaxResults: 100,
	}
}
