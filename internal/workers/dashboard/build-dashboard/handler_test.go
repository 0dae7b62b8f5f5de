package builddashboard

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"childcare-registration/internal/common/logger"
	"childcare-registration/internal/models"
	"childcare-registration/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestHandler(t *testing.T, store repository.Store, cache *Cache, clock clockwork.Clock) *Handler {
	return NewHandler(LoadConfig(), store, cache, clock, logger.NewTestLogger(t))
}

func seedStore(t *testing.T, clock *clockwork.FakeClock) (*repository.MemoryStore, []uuid.UUID) {
	store := repository.NewMemoryStore(clock)
	ctx := context.Background()

	var ids []uuid.UUID
	names := []string{"Jane", "Sam", "Alex"}
	for i, name := range names {
		status := models.StatusDraft
		if i == 0 {
			status = models.StatusSubmitted
		}
		app, err := store.Save(ctx, uuid.Nil, &models.Changeset{
			Status:     status,
			Section:    1,
			Personal:   &models.PersonalDetails{FirstName: name, LastName: "Smith"},
			References: []models.Reference{{FullName: "Ref " + name}, {FullName: "Other " + name}},
		})
		require.NoError(t, err)
		ids = append(ids, app.ID)
	}
	return store, ids
}

func newMiniredisCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewCache(rdb, "dashboard:test", time.Minute), mr
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_AllApplications(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testNow)
	store, _ := seedStore(t, clock)
	h := createTestHandler(t, store, nil, clock)

	clock.Advance(20 * 24 * time.Hour)

	out, err := h.Execute(context.Background(), &Input{})
	require.NoError(t, err)
	assert.False(t, out.Cached)

	dash := out.Dashboard
	assert.Equal(t, 3, dash.Summary.TotalApps)
	assert.Equal(t, 2, dash.Summary.ByStatus[models.StatusDraft])
	assert.Equal(t, 1, dash.Summary.ByStatus[models.StatusSubmitted])
	assert.Equal(t, 1, dash.Summary.RequiresAction)
	assert.Equal(t, 2, dash.Summary.InProgress)
	assert.Equal(t, 3, dash.Summary.HighRisk)
	for _, view := range dash.Applications {
		assert.Equal(t, 20, view.DaysInStage)
		assert.Len(t, view.References, 2)
	}
}

func TestHandler_Execute_Filters(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testNow)
	store, ids := seedStore(t, clock)
	h := createTestHandler(t, store, nil, clock)

	t.Run("by id", func(t *testing.T) {
		out, err := h.Execute(context.Background(), &Input{ApplicationIDs: []string{ids[1].String(), "garbage"}})
		require.NoError(t, err)
		require.Len(t, out.Dashboard.Applications, 1)
		assert.Equal(t, "Sam Smith", out.Dashboard.Applications[0].ApplicantName)
	})

	t.Run("empty id list matches nothing", func(t *testing.T) {
		out, err := h.Execute(context.Background(), &Input{ApplicationIDs: []string{}})
		require.NoError(t, err)
		assert.Equal(t, 0, out.Dashboard.Summary.TotalApps)
		assert.Len(t, out.Dashboard.Summary.ByStatus, 5)
	})

	t.Run("by status", func(t *testing.T) {
		out, err := h.Execute(context.Background(), &Input{Status: models.StatusSubmitted})
		require.NoError(t, err)
		require.Len(t, out.Dashboard.Applications, 1)
		assert.Equal(t, ids[0], out.Dashboard.Applications[0].ID)
	})

	t.Run("invalid status", func(t *testing.T) {
		_, err := h.Execute(context.Background(), &Input{Status: "ARCHIVED"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidStatus))
	})
}

func TestHandler_Execute_UsesCache(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testNow)
	store, _ := seedStore(t, clock)
	cache, mr := newMiniredisCache(t)
	h := createTestHandler(t, store, cache, clock)
	ctx := context.Background()

	first, err := h.Execute(ctx, &Input{})
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.True(t, mr.Exists("dashboard:test"))
	assert.Equal(t, time.Minute, mr.TTL("dashboard:test"))

	_, err = store.Save(ctx, uuid.Nil, &models.Changeset{Personal: &models.PersonalDetails{FirstName: "Late"}})
	require.NoError(t, err)

	second, err := h.Execute(ctx, &Input{})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, 3, second.Dashboard.Summary.TotalApps)

	require.NoError(t, cache.AfterSubmit(ctx, nil))
	assert.False(t, mr.Exists("dashboard:test"))

	third, err := h.Execute(ctx, &Input{})
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.Equal(t, 4, third.Dashboard.Summary.TotalApps)
}

func TestHandler_Execute_FilteredBypassesCache(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testNow)
	store, _ := seedStore(t, clock)
	cache, mr := newMiniredisCache(t)
	h := createTestHandler(t, store, cache, clock)

	_, err := h.Execute(context.Background(), &Input{Status: models.StatusDraft})
	require.NoError(t, err)
	assert.False(t, mr.Exists("dashboard:test"))
}

func TestHandler_Execute_CacheErrorsAreIgnored(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testNow)
	store, _ := seedStore(t, clock)

	redisClient, redisMock := redismock.NewClientMock()
	redisMock.ExpectGet("dashboard:v1").SetErr(errors.New("connection reset"))
	// the follow-up SET is unexpected, so the mock fails it too

	h := createTestHandler(t, store, NewCache(redisClient, "dashboard:v1", time.Minute), clock)

	out, err := h.Execute(context.Background(), &Input{})
	require.NoError(t, err)
	assert.Equal(t, 3, out.Dashboard.Summary.TotalApps)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestHandler_Execute_StoreFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection refused"))

	store := repository.NewPostgresStore(db, clockwork.NewFakeClockAt(testNow))
	h := createTestHandler(t, store, nil, clockwork.NewFakeClockAt(testNow))

	_, err = h.Execute(context.Background(), &Input{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrQueryFailed))
}

func TestCache_Invalidate(t *testing.T) {
	redisClient, redisMock := redismock.NewClientMock()
	redisMock.ExpectDel("dashboard:v1").SetVal(1)
	redisMock.ExpectGet("dashboard:v1").RedisNil()

	cache := NewCache(redisClient, "dashboard:v1", time.Minute)
	assert.Equal(t, "dashboard-cache", cache.Name())
	require.NoError(t, cache.Invalidate(context.Background()))

	dash, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Nil(t, dash)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestCache_RoundTrip(t *testing.T) {
	cache, _ := newMiniredisCache(t)
	ctx := context.Background()

	miss, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, miss)

	agg := aggregate(models.StatusSubmitted, testNow)
	agg.Personal = &models.PersonalDetails{FirstName: "Jane", LastName: "Smith", DOB: models.NewDate(1985, time.May, 20)}
	dash := NewBuilder(14, clockwork.NewFakeClockAt(testNow)).Build([]*models.Aggregate{agg})
	require.NoError(t, cache.Set(ctx, dash))

	got, err := cache.Get(ctx)
	require.NoError(t, err)
	require.Len(t, got.Applications, 1)
	assert.Equal(t, "Jane Smith", got.Applications[0].ApplicantName)
	assert.Equal(t, "1985-05-20", got.Applications[0].Personal.DOB.String())
	assert.Nil(t, got.Applications[0].Suitability)
}

func TestOutput_SerializesMissingChildrenAsNull(t *testing.T) {
	dash := NewBuilder(14, clockwork.NewFakeClockAt(testNow)).Build([]*models.Aggregate{aggregate(models.StatusDraft, testNow)})

	data, err := json.Marshal(dash.Applications[0])
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "suitability")
	assert.Nil(t, raw["suitability"])
	assert.Equal(t, []interface{}{}, raw["references"])
}
