// internal/workers/dashboard/build-dashboard/builder.go
package builddashboard

import (
	"time"

	"childcare-registration/internal/models"

	"github.com/jonboulle/clockwork"
)

// Check keys in display order.
var checkKeys = []string{
	"dbs",
	"local_authority",
	"ofsted",
	"gp_health",
	"reference_1",
	"reference_2",
	"first_aid",
	"safeguarding",
}

// Builder projects aggregates into the case-worker dashboard.
type Builder struct {
	riskThresholdDays int
	clock             clockwork.Clock
}

func NewBuilder(riskThresholdDays int, clock clockwork.Clock) *Builder {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Builder{riskThresholdDays: riskThresholdDays, clock: clock}
}

func (b *Builder) Build(aggs []*models.Aggregate) *models.Dashboard {
	now := b.clock.Now().UTC()

	summary := models.DashboardSummary{
		ByStatus: make(map[models.Status]int, len(models.AllStatuses)),
	}
	for _, s := range models.AllStatuses {
		summary.ByStatus[s] = 0
	}

	views := make([]models.ApplicationView, 0, len(aggs))
	for _, agg := range aggs {
		if agg == nil || agg.Application == nil {
			continue
		}
		view := b.project(agg, now)

		summary.TotalApps++
		summary.ByStatus[view.Status]++
		switch view.Stage {
		case models.StageRequiresAction:
			summary.RequiresAction++
		case models.StageInProgress:
			summary.InProgress++
		case models.StageCompleted:
			summary.Completed++
		}
		if view.Risk == models.RiskHigh {
			summary.HighRisk++
		}
		views = append(views, view)
	}

	return &models.Dashboard{
		Summary:      summary,
		Applications: views,
		GeneratedAt:  now,
	}
}

func (b *Builder) project(agg *models.Aggregate, now time.Time) models.ApplicationView {
	app := agg.Application
	days := daysBetween(app.UpdatedAt, now)
	risk := models.RiskLow
	if days > b.riskThresholdDays && app.Status != models.StatusRegistered {
		risk = models.RiskHigh
	}

	return models.ApplicationView{
		ID:                   app.ID,
		ApplicationNumber:    app.ApplicationNumber,
		ApplicantName:        agg.Personal.FullName(),
		Status:               app.Status,
		Stage:                classify(app.Status, risk),
		DaysInStage:          days,
		Risk:                 risk,
		LastSectionCompleted: app.LastSectionCompleted,
		CreatedAt:            app.CreatedAt,
		UpdatedAt:            app.UpdatedAt,
		Personal:             agg.Personal,
		Premises:             agg.Premises,
		Service:              agg.Service,
		Training:             agg.Training,
		Suitability:          agg.Suitability,
		DeclarationSigned:    signed(agg.Declaration),
		Checks:               checks(agg),
		Registers:            registers(agg.Service),
		Household:            nonNil(agg.Household),
		References:           nonNil(agg.References),
		Addresses:            nonNil(agg.Addresses),
		Employment:           nonNil(agg.Employment),
	}
}

func classify(status models.Status, risk string) string {
	switch status {
	case models.StatusRegistered:
		return models.StageCompleted
	case models.StatusSubmitted:
		return models.StageRequiresAction
	case models.StatusUnderReview, models.StatusChecksInProgress:
		if risk == models.RiskHigh {
			return models.StageRequiresAction
		}
		return models.StageInProgress
	default:
		return models.StageInProgress
	}
}

// daysBetween counts whole elapsed days; a future timestamp counts as zero.
func daysBetween(from, to time.Time) int {
	if from.IsZero() || !to.After(from) {
		return 0
	}
	return int(to.Sub(from) / (24 * time.Hour))
}

func signed(d *models.Declaration) bool {
	return d != nil && d.Signature != "" && d.DateSigned != nil && d.AllConsentsGiven()
}

// checks derives display statuses from the data on file. They summarize
// progress only; no external verification is performed.
func checks(agg *models.Aggregate) map[string]string {
	status := agg.Application.Status
	reviewed := status.After(models.StatusUnderReview)
	out := make(map[string]string, len(checkKeys))

	switch {
	case agg.Suitability == nil || !agg.Suitability.HasDBS:
		out["dbs"] = models.CheckNotStarted
	case agg.Suitability.DBSNumber != "" && reviewed:
		out["dbs"] = models.CheckComplete
	default:
		out["dbs"] = models.CheckPending
	}

	switch {
	case agg.Premises == nil || agg.Premises.LocalAuthority == "":
		out["local_authority"] = models.CheckNotStarted
	case reviewed:
		out["local_authority"] = models.CheckComplete
	default:
		out["local_authority"] = models.CheckPending
	}

	switch status {
	case models.StatusDraft:
		out["ofsted"] = models.CheckNotStarted
	case models.StatusRegistered:
		out["ofsted"] = models.CheckComplete
	default:
		out["ofsted"] = models.CheckPending
	}

	switch {
	case agg.Suitability == nil:
		out["gp_health"] = models.CheckNotStarted
	case !agg.Suitability.HasMedicalCondition || reviewed:
		out["gp_health"] = models.CheckComplete
	default:
		out["gp_health"] = models.CheckPending
	}

	for i, key := range []string{"reference_1", "reference_2"} {
		switch {
		case i >= len(agg.References):
			out[key] = models.CheckNotStarted
		case status == models.StatusRegistered:
			out[key] = models.CheckComplete
		default:
			out[key] = models.CheckPending
		}
	}

	out["first_aid"] = trainingCheck(agg.Training, func(t *models.Training) (bool, *models.Date) {
		return t.FirstAidCompleted, t.FirstAidDate
	})
	out["safeguarding"] = trainingCheck(agg.Training, func(t *models.Training) (bool, *models.Date) {
		return t.SafeguardingCompleted, t.SafeguardingDate
	})
	return out
}

func trainingCheck(t *models.Training, field func(*models.Training) (bool, *models.Date)) string {
	if t == nil {
		return models.CheckNotStarted
	}
	done, date := field(t)
	switch {
	case done && date != nil:
		return models.CheckComplete
	case done:
		return models.CheckPending
	default:
		return models.CheckNotStarted
	}
}

func registers(s *models.ChildcareService) []string {
	out := []string{}
	if s == nil {
		return out
	}
	if s.CareAge0To5 {
		out = append(out, models.RegisterEarlyYears)
	}
	if s.CareAge5To8 {
		out = append(out, models.RegisterChildcareCompulsory)
	}
	if s.CareAge8Plus {
		out = append(out, models.RegisterChildcareVoluntary)
	}
	return out
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
