// internal/workers/notification/send-submission-notice/notifier.go
package sendsubmissionnotice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"childcare-registration/internal/common/logger"
	"childcare-registration/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

var ErrNotificationSendFailed = errors.New("NOTIFICATION_SEND_FAILED")

type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Notifier emails the applicant and publishes the submitted event.
type Notifier struct {
	config *Config
	ses    SESService
	sns    SNSService
	clock  clockwork.Clock
	logger logger.Logger
}

func NewNotifier(config *Config, sesClient SESService, snsClient SNSService, clock clockwork.Clock, log logger.Logger) *Notifier {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Notifier{
		config: config,
		ses:    sesClient,
		sns:    snsClient,
		clock:  clock,
		logger: log,
	}
}

func (n *Notifier) Name() string {
	return "submission-notice"
}

func (n *Notifier) AfterSubmit(ctx context.Context, agg *models.Aggregate) error {
	_, err := n.Notify(ctx, agg)
	return err
}

// Notify sends every enabled channel. A failed channel does not stop the
// others; the returned error reports any failure.
func (n *Notifier) Notify(ctx context.Context, agg *models.Aggregate) (*Output, error) {
	if agg.IsNew() {
		return nil, fmt.Errorf("%w: application has not been saved", ErrNotificationSendFailed)
	}

	out := &Output{
		NotificationID: uuid.New().String(),
		EmailStatus:    StatusDisabled,
		EventStatus:    StatusDisabled,
		SentAt:         n.clock.Now().UTC().Format(time.RFC3339),
	}
	var failures []string

	if n.config.EmailEnabled && n.ses != nil && agg.Personal != nil && agg.Personal.Email != "" {
		if err := n.sendEmail(ctx, agg); err != nil {
			n.logger.Error("email send failed", map[string]interface{}{
				"error":         err.Error(),
				"applicationId": agg.Application.ID.String(),
			})
			out.EmailStatus = StatusFailed
			failures = append(failures, "email: "+err.Error())
		} else {
			out.EmailStatus = StatusSent
		}
	}

	if n.config.EventsEnabled && n.sns != nil && n.config.TopicARN != "" {
		if err := n.publishEvent(ctx, agg, out); err != nil {
			n.logger.Error("event publish failed", map[string]interface{}{
				"error":         err.Error(),
				"applicationId": agg.Application.ID.String(),
			})
			out.EventStatus = StatusFailed
			failures = append(failures, "event: "+err.Error())
		} else {
			out.EventStatus = StatusSent
		}
	}

	if len(failures) > 0 {
		return out, fmt.Errorf("%w: %s", ErrNotificationSendFailed, strings.Join(failures, "; "))
	}
	return out, nil
}

func (n *Notifier) sendEmail(ctx context.Context, agg *models.Aggregate) error {
	data := map[string]string{
		"applicantName":     agg.Personal.FullName(),
		"applicationNumber": agg.Application.ApplicationNumber,
		"submittedAt":       agg.Application.UpdatedAt.UTC().Format("2 January 2006"),
	}
	subject := renderTemplate(subjectTemplate, data)
	body := renderTemplate(bodyTemplate, data)

	_, err := n.ses.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{agg.Personal.Email},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(n.config.FromEmail),
	})
	return err
}

func (n *Notifier) publishEvent(ctx context.Context, agg *models.Aggregate, out *Output) error {
	event := submittedEvent{
		Event:             EventApplicationSubmitted,
		NotificationID:    out.NotificationID,
		ApplicationID:     agg.Application.ID.String(),
		ApplicationNumber: agg.Application.ApplicationNumber,
		OccurredAt:        out.SentAt,
	}
	if agg.Premises != nil {
		event.LocalAuthority = agg.Premises.LocalAuthority
	}
	msg, err := json.Marshal(event)
	if err != nil {
		return err
	}

	_, err = n.sns.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.config.TopicARN),
		Message:  aws.String(string(msg)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"eventType": {
				DataType:    aws.String("String"),
				StringValue: aws.String(EventApplicationSubmitted),
			},
		},
	})
	return err
}

// renderTemplate replaces {{key}} placeholders.
func renderTemplate(tmpl string, data map[string]string) string {
	pairs := make([]string, 0, len(data)*2)
	for k, v := range data {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
