package cleanupemptyrecords

import (
	"context"
	"errors"
	"testing"
	"time"

	"childcare-registration/internal/common/logger"
	"childcare-registration/internal/models"
	"childcare-registration/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func seedDraftWithEmptyRows(t *testing.T) (*repository.MemoryStore, uuid.UUID) {
	store := repository.NewMemoryStore(clockwork.NewFakeClockAt(testNow))
	app, err := store.Save(context.Background(), uuid.Nil, &models.Changeset{
		Premises:    &models.Premises{},
		Training:    &models.Training{},
		Suitability: &models.Suitability{HasDBS: true},
	})
	require.NoError(t, err)
	return store, app.ID
}

func TestHandler_Execute_DryRun(t *testing.T) {
	store, id := seedDraftWithEmptyRows(t)
	h := NewHandler(LoadConfig(), store, nil, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{DryRun: true})
	require.NoError(t, err)
	assert.True(t, out.DryRun)
	assert.Equal(t, int64(2), out.Total)
	assert.Equal(t, int64(1), out.ByTable["premises"])
	assert.Equal(t, int64(1), out.ByTable["training"])
	assert.Equal(t, int64(0), out.ByTable["suitability"])

	agg, err := store.Load(context.Background(), id)
	require.NoError(t, err)
	assert.NotNil(t, agg.Premises)
}

func TestHandler_Execute_Delete(t *testing.T) {
	store, id := seedDraftWithEmptyRows(t)
	h := NewHandler(LoadConfig(), store, nil, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{})
	require.NoError(t, err)
	assert.False(t, out.DryRun)
	assert.Equal(t, int64(2), out.Total)

	agg, err := store.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, agg.Premises)
	assert.Nil(t, agg.Training)
	assert.NotNil(t, agg.Suitability)

	out, err = h.Execute(context.Background(), &Input{})
	require.NoError(t, err)
	assert.Zero(t, out.Total)
}

func TestHandler_Execute_StoreFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT").WillReturnError(errors.New("relation does not exist"))
	mock.ExpectRollback()

	store := repository.NewPostgresStore(db, clockwork.NewFakeClockAt(testNow))
	h := NewHandler(LoadConfig(), store, nil, logger.NewTestLogger(t))

	_, err = h.Execute(context.Background(), &Input{DryRun: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCleanupFailed))
	assert.NoError(t, mock.ExpectationsWereMet())
}

type countingInvalidator struct {
	calls int
}

func (c *countingInvalidator) Invalidate(ctx context.Context) error {
	c.calls++
	return nil
}

func TestHandler_Execute_InvalidatesDashboardAfterDelete(t *testing.T) {
	store, _ := seedDraftWithEmptyRows(t)
	inv := &countingInvalidator{}
	h := NewHandler(LoadConfig(), store, inv, logger.NewTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{DryRun: true})
	require.NoError(t, err)
	assert.Zero(t, inv.calls)

	_, err = h.Execute(context.Background(), &Input{})
	require.NoError(t, err)
	assert.Equal(t, 1, inv.calls)

	// nothing left to delete
	_, err = h.Execute(context.Background(), &Input{})
	require.NoError(t, err)
	assert.Equal(t, 1, inv.calls)
}
