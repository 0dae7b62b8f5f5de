// internal/workers/notification/send-submission-notice/models.go
package sendsubmissionnotice

type Input struct {
	ApplicationID string `json:"applicationId"`
}

type Output struct {
	NotificationID string `json:"notificationId"`
	EmailStatus    string `json:"emailStatus"` // "sent", "failed", "disabled"
	EventStatus    string `json:"eventStatus"`
	SentAt         string `json:"sentAt"` // ISO 8601
}

// Statuses
const (
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
)

const EventApplicationSubmitted = "application.submitted"

// submittedEvent is the SNS message body.
type submittedEvent struct {
	Event             string `json:"event"`
	NotificationID    string `json:"notificationId"`
	ApplicationID     string `json:"applicationId"`
	ApplicationNumber string `json:"applicationNumber"`
	LocalAuthority    string `json:"localAuthority,omitempty"`
	OccurredAt        string `json:"occurredAt"`
}

const (
	subjectTemplate = "Application {{applicationNumber}} received"
	bodyTemplate    = `Dear {{applicantName}},

Thank you for applying to register as a childminder. Your application {{applicationNumber}} was submitted on {{submittedAt}}.

A case worker will review it and contact you about the next checks.`
)
