// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"childcare-registration/internal/api"
	"childcare-registration/internal/common/config"
	"childcare-registration/internal/common/database"
	"childcare-registration/internal/common/logger"
	"childcare-registration/internal/models"
	"childcare-registration/internal/repository"
	builddashboard "childcare-registration/internal/workers/dashboard/build-dashboard"
	searchapplications "childcare-registration/internal/workers/dashboard/search-applications"
	cleanupemptyrecords "childcare-registration/internal/workers/maintenance/cleanup-empty-records"
	resumeapplication "childcare-registration/internal/workers/registration/resume-application"
	savedraft "childcare-registration/internal/workers/registration/save-draft"
	submitapplication "childcare-registration/internal/workers/registration/submit-application"
	validatesections "childcare-registration/internal/workers/registration/validate-sections"
	updateapplicationstatus "childcare-registration/internal/workers/review/update-application-status"
	"childcare-registration/pkg/registry"
	"childcare-registration/pkg/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// E2E_POSTGRES=1 runs the same journey against the database in configs/.
const postgresEnv = "E2E_POSTGRES"

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type harness struct {
	server *api.Server
	store  repository.Store
	status *updateapplicationstatus.Handler
	clean  *cleanupemptyrecords.Handler
	clock  *clockwork.FakeClock
}

func newHarness(t *testing.T, store repository.Store, clock *clockwork.FakeClock) *harness {
	t.Helper()
	log := logger.NewTestLogger(t)

	mr := miniredis.RunT(t)
	cache := builddashboard.NewCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "dashboard:e2e", time.Minute)

	sections := registry.Default()
	validator := validatesections.NewValidator(validatesections.LoadConfig(), sections, clock)

	server := api.NewServer(api.Deps{
		Config:    config.HTTPConfig{CookieName: "application_id", CookieMaxAge: 3600},
		Resume:    resumeapplication.NewHandler(resumeapplication.LoadConfig(), store, sections, log),
		SaveDraft: savedraft.NewHandler(savedraft.LoadConfig(), store, validator, cache, log),
		Submit:    submitapplication.NewHandler(submitapplication.LoadConfig(), store, validator, []submitapplication.Hook{cache}, log),
		Dashboard: builddashboard.NewHandler(builddashboard.LoadConfig(), store, cache, clock, log),
		Search:    searchapplications.NewHandler(searchapplications.LoadConfig(), nil, store, log),
		Logger:    log,
	})

	return &harness{
		server: server,
		store:  store,
		status: updateapplicationstatus.NewHandler(updateapplicationstatus.LoadConfig(), store, cache, log),
		clean:  cleanupemptyrecords.NewHandler(cleanupemptyrecords.LoadConfig(), store, cache, log),
		clock:  clock,
	}
}

func TestRegistrationJourney_Memory(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testNow)
	runJourney(t, newHarness(t, repository.NewMemoryStore(clock), clock))
}

func TestRegistrationJourney_Postgres(t *testing.T) {
	if os.Getenv(postgresEnv) == "" {
		t.Skipf("set %s=1 to run against PostgreSQL", postgresEnv)
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err)
	t.Cleanup(func() { pg.Close() })
	require.NoError(t, pg.Ping(context.Background()), "PostgreSQL ping failed")

	_, err = pg.Migrate()
	require.NoError(t, err)

	clock := clockwork.NewFakeClockAt(time.Now().UTC())
	runJourney(t, newHarness(t, repository.NewPostgresStore(pg.DB, clock), clock))
}

// runJourney walks an applicant from a blank form to a submitted application
// and a case worker from the dashboard to registration.
func runJourney(t *testing.T, h *harness) {
	ctx := context.Background()
	handler := h.server.Handler()

	// 1. A fresh visit starts an unsaved application.
	rr := testutil.DoRequest(handler, httptest.NewRequest(http.MethodGet, "/register", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)
	fresh := testutil.UnmarshalResponse[resumeapplication.Output](t, rr)
	require.False(t, fresh.Resumed)

	// 2. Save the first section; the cookie now carries the application.
	rr = testutil.DoRequest(handler, testutil.NewJSONRequest(t, http.MethodPost, "/register", testutil.DraftPayload()))
	testutil.AssertStatus(t, rr, http.StatusOK)
	draft := testutil.UnmarshalResponse[savedraft.Output](t, rr)
	require.Equal(t, models.StatusDraft, draft.Status)
	cookie := cookieNamed(rr, "application_id")
	require.NotNil(t, cookie)

	// 3. Submit the whole form as the browser posts it.
	req := testutil.NewFormRequest(t, "/register", testutil.CompleteForm())
	req.AddCookie(cookie)
	rr = testutil.DoRequest(handler, req)
	testutil.AssertStatus(t, rr, http.StatusOK)
	submitted := testutil.UnmarshalResponse[submitapplication.Output](t, rr)
	require.True(t, submitted.Submitted)
	assert.Equal(t, draft.ApplicationID, submitted.ApplicationID, "submission completes the draft")
	assert.Equal(t, models.StatusSubmitted, submitted.Status)

	id := uuid.MustParse(submitted.ApplicationID)
	agg, err := h.store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Jane", agg.Personal.FirstName)
	assert.Len(t, agg.Addresses, 1)
	assert.Len(t, agg.Employment, 1)
	assert.Len(t, agg.Household, 1)
	assert.Len(t, agg.References, 2)
	assert.Equal(t, 10, agg.Application.LastSectionCompleted)

	// 4. The dashboard shows the application awaiting a case worker.
	h.clock.Advance(20 * 24 * time.Hour)
	dash := fetchDashboard(t, handler, "/dashboard?q="+submitted.ApplicationNumber)
	require.Equal(t, 1, dash.Summary.TotalApps)
	view := dash.Applications[0]
	assert.Equal(t, models.StageRequiresAction, view.Stage)
	assert.Len(t, view.References, 2)
	assert.Contains(t, view.Registers, models.RegisterEarlyYears)
	assert.True(t, view.DeclarationSigned)

	// 5. Further edits are refused.
	req = testutil.NewJSONRequest(t, http.MethodPost, "/register", testutil.DraftPayload())
	req.AddCookie(cookie)
	rr = testutil.DoRequest(handler, req)
	testutil.AssertStatus(t, rr, http.StatusConflict)

	// 6. Review moves the application forward and the cached view follows.
	for _, to := range []models.Status{models.StatusUnderReview, models.StatusChecksInProgress, models.StatusRegistered} {
		out, err := h.status.Execute(ctx, &updateapplicationstatus.Input{ApplicationID: id.String(), Status: to})
		require.NoError(t, err)
		assert.Equal(t, to, out.Status)
	}
	dash = fetchDashboard(t, handler, "/dashboard")
	view = findView(t, dash, id)
	assert.Equal(t, models.StatusRegistered, view.Status)
	assert.Equal(t, models.StageCompleted, view.Stage)

	// 7. Maintenance never touches submitted applications.
	report, err := h.clean.Execute(ctx, &cleanupemptyrecords.Input{DryRun: true})
	require.NoError(t, err)
	assert.True(t, report.DryRun)
}

func fetchDashboard(t *testing.T, handler http.Handler, path string) *models.Dashboard {
	t.Helper()
	rr := testutil.DoRequest(handler, httptest.NewRequest(http.MethodGet, path, nil))
	testutil.AssertStatus(t, rr, http.StatusOK)
	return testutil.UnmarshalResponse[models.Dashboard](t, rr)
}

func findView(t *testing.T, dash *models.Dashboard, id uuid.UUID) models.ApplicationView {
	t.Helper()
	for _, v := range dash.Applications {
		if v.ID == id {
			return v
		}
	}
	require.FailNow(t, "application missing from dashboard", id.String())
	return models.ApplicationView{}
}

func cookieNamed(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
