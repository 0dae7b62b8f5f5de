package savedraft

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"childcare-registration/internal/common/logger"
	"childcare-registration/internal/models"
	"childcare-registration/internal/repository"
	validatesections "childcare-registration/internal/workers/registration/validate-sections"
	"childcare-registration/pkg/registry"
	"childcare-registration/pkg/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func createTestHandler(t *testing.T, store repository.Store) *Handler {
	clock := clockwork.NewFakeClockAt(testNow)
	validator := validatesections.NewValidator(validatesections.LoadConfig(), registry.Default(), clock)
	return NewHandler(LoadConfig(), store, validator, nil, logger.NewTestLogger(t))
}

func newStore() *repository.MemoryStore {
	return repository.NewMemoryStore(clockwork.NewFakeClockAt(testNow))
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_FirstSaveCreatesApplication(t *testing.T) {
	store := newStore()
	h := createTestHandler(t, store)

	out, err := h.Execute(context.Background(), &Input{Payload: *testutil.DraftPayload()})
	require.NoError(t, err)

	assert.NotEmpty(t, out.ApplicationID)
	assert.Equal(t, "RK-2025-00001", out.ApplicationNumber)
	assert.Equal(t, models.StatusDraft, out.Status)
	assert.Equal(t, 1, out.LastSectionCompleted)
	assert.Equal(t, 2, out.NextSection)
	assert.True(t, out.Complete)

	agg, err := store.Load(context.Background(), uuid.MustParse(out.ApplicationID))
	require.NoError(t, err)
	assert.Equal(t, "Jane", agg.Personal.FirstName)
}

func TestHandler_Execute_PartialSave(t *testing.T) {
	store := newStore()
	h := createTestHandler(t, store)

	payload := models.Payload{
		Action:  models.ActionSaveAndExit,
		Section: 3,
		Personal: map[string]interface{}{
			"first_name": "Jane",
			"email":      "jane@",
		},
		Premises: map[string]interface{}{"local_authority": "Leeds"},
		References: []map[string]interface{}{
			{"full_name": "Good Ref", "email": "good@example.com"},
			{"full_name": "Bad Ref", "years_known": "many"},
		},
	}

	out, err := h.Execute(context.Background(), &Input{Payload: payload})
	require.NoError(t, err)

	assert.False(t, out.Complete)
	assert.Equal(t, 3, out.NextSection, "save and exit stays on the section")
	paths := []string{}
	for _, e := range out.Errors {
		paths = append(paths, e.Path())
	}
	assert.ElementsMatch(t, []string{"personal.email", "reference[1].years_known"}, paths)

	agg, err := store.Load(context.Background(), uuid.MustParse(out.ApplicationID))
	require.NoError(t, err)
	assert.Nil(t, agg.Personal, "invalid entity is not saved")
	require.NotNil(t, agg.Premises)
	assert.Equal(t, "Leeds", agg.Premises.LocalAuthority)
	require.Len(t, agg.References, 1)
	assert.Equal(t, "Good Ref", agg.References[0].FullName)
	assert.Equal(t, 3, agg.Application.LastSectionCompleted)
}

func TestHandler_Execute_ResaveIsIdempotent(t *testing.T) {
	store := newStore()
	h := createTestHandler(t, store)
	ctx := context.Background()

	payload := testutil.CompletePayload()
	payload.Action = models.ActionSaveAndContinue

	first, err := h.Execute(ctx, &Input{Payload: *payload})
	require.NoError(t, err)
	second, err := h.Execute(ctx, &Input{ApplicationID: first.ApplicationID, Payload: *testutil.CompletePayload()})
	require.NoError(t, err)
	assert.Equal(t, first.ApplicationID, second.ApplicationID)

	agg, err := store.Load(ctx, uuid.MustParse(first.ApplicationID))
	require.NoError(t, err)
	assert.Len(t, agg.Addresses, 1)
	assert.Len(t, agg.Employment, 1)
	assert.Len(t, agg.Household, 1)
	assert.Len(t, agg.References, 2)
	assert.Equal(t, models.StatusDraft, agg.Application.Status)
}

func TestHandler_Execute_ProgressNeverDecreases(t *testing.T) {
	store := newStore()
	h := createTestHandler(t, store)
	ctx := context.Background()

	out, err := h.Execute(ctx, &Input{Payload: models.Payload{Action: models.ActionSaveAndContinue, Section: 5}})
	require.NoError(t, err)
	out, err = h.Execute(ctx, &Input{ApplicationID: out.ApplicationID, Payload: models.Payload{Action: models.ActionSaveAndContinue, Section: 2}})
	require.NoError(t, err)

	assert.Equal(t, 5, out.LastSectionCompleted)
	assert.Equal(t, 3, out.NextSection)
}

func TestHandler_Execute_HouseholdFlags(t *testing.T) {
	store := newStore()
	h := createTestHandler(t, store)
	yes := true

	out, err := h.Execute(context.Background(), &Input{Payload: models.Payload{Section: 7, ChildrenInHome: &yes}})
	require.NoError(t, err)

	agg, err := store.Load(context.Background(), uuid.MustParse(out.ApplicationID))
	require.NoError(t, err)
	assert.True(t, agg.Application.ChildrenInHome)
	assert.False(t, agg.Application.AdultsInHome)
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_LockedAfterSubmit(t *testing.T) {
	store := newStore()
	app, err := store.Save(context.Background(), uuid.Nil, &models.Changeset{Status: models.StatusSubmitted})
	require.NoError(t, err)

	_, err = createTestHandler(t, store).Execute(context.Background(), &Input{
		ApplicationID: app.ID.String(),
		Payload:       *testutil.DraftPayload(),
	})
	assert.ErrorIs(t, err, ErrApplicationLocked)
}

func TestHandler_Execute_UnknownIDStartsNewApplication(t *testing.T) {
	store := newStore()
	stale := uuid.NewString()

	out, err := createTestHandler(t, store).Execute(context.Background(), &Input{
		ApplicationID: stale,
		Payload:       *testutil.DraftPayload(),
	})
	require.NoError(t, err)
	assert.NotEqual(t, stale, out.ApplicationID)
}

func TestHandler_Execute_PersistenceFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectBegin().WillReturnError(sql.ErrConnDone)

	h := createTestHandler(t, repository.NewPostgresStore(db, clockwork.NewFakeClockAt(testNow)))
	_, err = h.Execute(context.Background(), &Input{Payload: *testutil.DraftPayload()})

	assert.ErrorIs(t, err, ErrPersistenceFailed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNextSection(t *testing.T) {
	assert.Equal(t, 2, nextSection(models.Payload{Action: models.ActionSaveAndContinue, Section: 1}, 10))
	assert.Equal(t, 10, nextSection(models.Payload{Action: models.ActionSaveAndContinue, Section: 10}, 10))
	assert.Equal(t, 4, nextSection(models.Payload{Action: models.ActionSaveAndExit, Section: 4}, 10))
}

type countingInvalidator struct {
	calls int
}

func (c *countingInvalidator) Invalidate(ctx context.Context) error {
	c.calls++
	return nil
}

func TestHandler_Execute_InvalidatesDashboardOnCreate(t *testing.T) {
	store := newStore()
	inv := &countingInvalidator{}
	validator := validatesections.NewValidator(validatesections.LoadConfig(), registry.Default(), clockwork.NewFakeClockAt(testNow))
	h := NewHandler(LoadConfig(), store, validator, inv, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{Payload: *testutil.DraftPayload()})
	require.NoError(t, err)
	assert.Equal(t, 1, inv.calls)

	_, err = h.Execute(context.Background(), &Input{ApplicationID: out.ApplicationID, Payload: *testutil.DraftPayload()})
	require.NoError(t, err)
	assert.Equal(t, 1, inv.calls, "resave of an existing draft")

	_, err = h.Execute(context.Background(), &Input{ApplicationID: uuid.NewString(), Payload: *testutil.DraftPayload()})
	require.NoError(t, err)
	assert.Equal(t, 2, inv.calls, "unknown id starts a new application")
}
