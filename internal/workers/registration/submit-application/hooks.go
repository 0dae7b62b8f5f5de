// internal/workers/registration/submit-application/hooks.go
package submitapplication

import (
	"context"

	"childcare-registration/internal/common/camunda"
	"childcare-registration/internal/models"
)

// Hook runs after a submission has been committed. Failures are logged and
// never undo the submission.
type Hook interface {
	Name() string
	AfterSubmit(ctx context.Context, agg *models.Aggregate) error
}

type ReviewStarter interface {
	StartReviewProcess(ctx context.Context, req camunda.ReviewRequest) (int64, error)
}

// ReviewHook starts the case-worker review process for a submitted application.
type ReviewHook struct {
	starter ReviewStarter
}

func NewReviewHook(starter ReviewStarter) *ReviewHook {
	return &ReviewHook{starter: starter}
}

func (h *ReviewHook) Name() string {
	return "review-process"
}

func (h *ReviewHook) AfterSubmit(ctx context.Context, agg *models.Aggregate) error {
	_, err := h.starter.StartReviewProcess(ctx, reviewRequest(agg))
	return err
}

func reviewRequest(agg *models.Aggregate) camunda.ReviewRequest {
	req := camunda.ReviewRequest{
		ApplicationID:     agg.Application.ID.String(),
		ApplicationNumber: agg.Application.ApplicationNumber,
		ApplicantName:     agg.Personal.FullName(),
		SubmittedAt:       agg.Application.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	if agg.Personal != nil {
		req.ApplicantEmail = agg.Personal.Email
	}
	if agg.Premises != nil {
		req.LocalAuthority = agg.Premises.LocalAuthority
	}
	return req
}
