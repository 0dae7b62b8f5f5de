// internal/workers/registration/validate-sections/config.go
package validatesections

import "time"

type Config struct {
	Timeout time.Duration
	// AdultAge is the age from which a household member counts as an adult.
	AdultAge int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:  10 * time.Second,
		AdultAge: 16,
	}
}
