// internal/workers/notification/send-submission-notice/config.go
package sendsubmissionnotice

import "time"

type Config struct {
	Timeout       time.Duration
	EmailEnabled  bool
	EventsEnabled bool
	FromEmail     string
	TopicARN      string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:   30 * time.Second,
		FromEmail: "registrations@childcare.example",
	}
}
