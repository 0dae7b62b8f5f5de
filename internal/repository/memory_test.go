package repository

import (
	"context"
	"testing"
	"time"

	"childcare-registration/internal/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryStore() (*MemoryStore, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClockAt(testNow)
	return NewMemoryStore(clock), clock
}

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }

func twoReferences() []models.Reference {
	return []models.Reference{
		{FullName: "Bob Jones", Email: "bob@example.com", Phone: "07111111111", Relationship: "Friend", YearsKnown: intPtr(5)},
		{FullName: "Sue Brown", Email: "sue@example.com", Phone: "07222222222", Relationship: "Colleague", YearsKnown: intPtr(3)},
	}
}

// ==========================
// Save
// ==========================

func TestMemoryStore_Save_CreatesWithSequentialNumbers(t *testing.T) {
	store, _ := newMemoryStore()
	ctx := context.Background()

	first, err := store.Save(ctx, uuid.Nil, &models.Changeset{Section: 1})
	require.NoError(t, err)
	second, err := store.Save(ctx, uuid.Nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "RK-2025-00001", first.ApplicationNumber)
	assert.Equal(t, "RK-2025-00002", second.ApplicationNumber)
	assert.Equal(t, models.StatusDraft, first.Status)
	assert.Equal(t, 1, first.LastSectionCompleted)
	assert.Equal(t, 0, second.LastSectionCompleted)
}

func TestMemoryStore_Save_ResaveDoesNotDuplicateChildren(t *testing.T) {
	store, _ := newMemoryStore()
	ctx := context.Background()

	app, err := store.Save(ctx, uuid.Nil, &models.Changeset{
		Section:    8,
		Personal:   &models.PersonalDetails{FirstName: "Jane", LastName: "Smith"},
		References: twoReferences(),
	})
	require.NoError(t, err)

	// same content posted again without ids
	_, err = store.Save(ctx, app.ID, &models.Changeset{
		Section:    8,
		Personal:   &models.PersonalDetails{FirstName: "Jane", LastName: "Smith"},
		References: twoReferences(),
	})
	require.NoError(t, err)

	agg, err := store.Load(ctx, app.ID)
	require.NoError(t, err)
	assert.Len(t, agg.References, 2)
	require.NotNil(t, agg.Personal)
	assert.Equal(t, app.ID, agg.Personal.ApplicationID)
}

func TestMemoryStore_Save_UpdatesAndDeletesByID(t *testing.T) {
	store, clock := newMemoryStore()
	ctx := context.Background()

	cs := &models.Changeset{
		Section: 2,
		Addresses: []models.AddressEntry{
			{Line1: "1 High St", Town: "Leeds", MoveInDate: models.NewDate(2015, 1, 1)},
			{Line1: "2 Low Rd", Town: "York", MoveInDate: models.NewDate(2020, 6, 1), IsCurrent: true},
		},
	}
	app, err := store.Save(ctx, uuid.Nil, cs)
	require.NoError(t, err)
	oldID, currentID := cs.Addresses[0].ID, cs.Addresses[1].ID
	require.NotZero(t, oldID)
	require.NotZero(t, currentID)

	clock.Advance(time.Minute)
	_, err = store.Save(ctx, app.ID, &models.Changeset{
		Section: 1,
		Addresses: []models.AddressEntry{
			{ID: currentID, Line1: "2 Low Road", Town: "York", MoveInDate: models.NewDate(2020, 6, 1), IsCurrent: true},
		},
		Deleted: map[string][]int64{models.SectionAddresses: {oldID}},
	})
	require.NoError(t, err)

	agg, err := store.Load(ctx, app.ID)
	require.NoError(t, err)
	require.Len(t, agg.Addresses, 1)
	assert.Equal(t, currentID, agg.Addresses[0].ID)
	assert.Equal(t, "2 Low Road", agg.Addresses[0].Line1)
	assert.Equal(t, 2, agg.Application.LastSectionCompleted, "progress never moves backwards")
}

func TestMemoryStore_Save_ForeignIDTreatedAsNew(t *testing.T) {
	store, _ := newMemoryStore()
	ctx := context.Background()

	other, err := store.Save(ctx, uuid.Nil, &models.Changeset{
		Household: []models.HouseholdMember{{FirstName: "Tom", LastName: "Smith"}},
	})
	require.NoError(t, err)
	otherAgg, err := store.Load(ctx, other.ID)
	require.NoError(t, err)
	foreignID := otherAgg.Household[0].ID

	mine, err := store.Save(ctx, uuid.Nil, &models.Changeset{
		Household: []models.HouseholdMember{{ID: foreignID, FirstName: "Amy", LastName: "Jones"}},
		Deleted:   map[string][]int64{models.SectionHousehold: {foreignID}},
	})
	require.NoError(t, err)

	otherAgg, err = store.Load(ctx, other.ID)
	require.NoError(t, err)
	require.Len(t, otherAgg.Household, 1)
	assert.Equal(t, "Tom", otherAgg.Household[0].FirstName)

	myAgg, err := store.Load(ctx, mine.ID)
	require.NoError(t, err)
	require.Len(t, myAgg.Household, 1)
	assert.NotEqual(t, foreignID, myAgg.Household[0].ID)
	assert.Equal(t, mine.ID, myAgg.Household[0].ApplicationID)
}

func TestMemoryStore_Save_LockedAfterSubmit(t *testing.T) {
	store, _ := newMemoryStore()
	ctx := context.Background()

	app, err := store.Save(ctx, uuid.Nil, &models.Changeset{Status: models.StatusSubmitted, Section: 10})
	require.NoError(t, err)

	_, err = store.Save(ctx, app.ID, &models.Changeset{Personal: &models.PersonalDetails{FirstName: "X"}})
	assert.ErrorIs(t, err, ErrLocked)

	_, err = store.Save(ctx, uuid.New(), &models.Changeset{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Save_SetsHouseholdFlags(t *testing.T) {
	store, _ := newMemoryStore()
	ctx := context.Background()

	app, err := store.Save(ctx, uuid.Nil, &models.Changeset{AdultsInHome: boolPtr(true)})
	require.NoError(t, err)
	assert.True(t, app.AdultsInHome)

	app, err = store.Save(ctx, app.ID, &models.Changeset{ChildrenInHome: boolPtr(true)})
	require.NoError(t, err)
	assert.True(t, app.AdultsInHome)
	assert.True(t, app.ChildrenInHome)
}

func TestMemoryStore_Load_ReturnsCopy(t *testing.T) {
	store, _ := newMemoryStore()
	ctx := context.Background()

	app, err := store.Save(ctx, uuid.Nil, &models.Changeset{Personal: &models.PersonalDetails{FirstName: "Jane"}})
	require.NoError(t, err)

	agg, err := store.Load(ctx, app.ID)
	require.NoError(t, err)
	agg.Personal.FirstName = "Changed"

	again, err := store.Load(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane", again.Personal.FirstName)
}

// ==========================
// Queries
// ==========================

func TestMemoryStore_ListAndSearch(t *testing.T) {
	store, clock := newMemoryStore()
	ctx := context.Background()

	jane, err := store.Save(ctx, uuid.Nil, &models.Changeset{
		Personal: &models.PersonalDetails{FirstName: "Jane", LastName: "Smith", Email: "jane@example.com"},
	})
	require.NoError(t, err)
	clock.Advance(time.Second)
	bob, err := store.Save(ctx, uuid.Nil, &models.Changeset{
		Status:   models.StatusSubmitted,
		Personal: &models.PersonalDetails{FirstName: "Bob", LastName: "Jones"},
	})
	require.NoError(t, err)

	all, err := store.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, bob.ID, all[0].Application.ID, "most recently updated first")

	submitted, err := store.List(ctx, Filter{Status: models.StatusSubmitted})
	require.NoError(t, err)
	require.Len(t, submitted, 1)
	assert.Equal(t, bob.ID, submitted[0].Application.ID)

	none, err := store.List(ctx, Filter{IDs: []uuid.UUID{}})
	require.NoError(t, err)
	assert.Empty(t, none)

	ids, err := store.Search(ctx, "SMITH")
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{jane.ID}, ids)

	ids, err = store.Search(ctx, "rk-2025-0000")
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}

// ==========================
// Status and cleanup
// ==========================

func TestMemoryStore_UpdateStatus(t *testing.T) {
	store, _ := newMemoryStore()
	ctx := context.Background()

	draft, err := store.Save(ctx, uuid.Nil, nil)
	require.NoError(t, err)
	_, err = store.UpdateStatus(ctx, draft.ID, models.StatusUnderReview)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	submitted, err := store.Save(ctx, uuid.Nil, &models.Changeset{Status: models.StatusSubmitted})
	require.NoError(t, err)

	app, err := store.UpdateStatus(ctx, submitted.ID, models.StatusChecksInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.StatusChecksInProgress, app.Status)

	_, err = store.UpdateStatus(ctx, submitted.ID, models.StatusUnderReview)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = store.UpdateStatus(ctx, submitted.ID, models.Status("ARCHIVED"))
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = store.UpdateStatus(ctx, uuid.New(), models.StatusRegistered)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCheckTransition(t *testing.T) {
	tests := []struct {
		from, to models.Status
		ok       bool
	}{
		{models.StatusSubmitted, models.StatusUnderReview, true},
		{models.StatusSubmitted, models.StatusRegistered, true},
		{models.StatusUnderReview, models.StatusChecksInProgress, true},
		{models.StatusRegistered, models.StatusRegistered, false},
		{models.StatusDraft, models.StatusSubmitted, false},
		{models.StatusUnderReview, models.StatusSubmitted, false},
		{models.StatusSubmitted, models.StatusDraft, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			err := checkTransition(tt.from, tt.to)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition)
			}
		})
	}
}

func TestMemoryStore_DeleteEmptyChildren(t *testing.T) {
	store, _ := newMemoryStore()
	ctx := context.Background()

	draft, err := store.Save(ctx, uuid.Nil, &models.Changeset{
		Premises:    &models.Premises{},
		Service:     &models.ChildcareService{CareAge0To5: true},
		Training:    &models.Training{},
		Declaration: &models.Declaration{},
	})
	require.NoError(t, err)
	submitted, err := store.Save(ctx, uuid.Nil, &models.Changeset{
		Status:   models.StatusSubmitted,
		Premises: &models.Premises{},
	})
	require.NoError(t, err)

	report, err := store.DeleteEmptyChildren(ctx, true)
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, int64(3), report.Total())
	assert.Equal(t, int64(0), report.ByTable["suitability"])

	agg, err := store.Load(ctx, draft.ID)
	require.NoError(t, err)
	assert.NotNil(t, agg.Premises, "dry run leaves rows in place")

	report, err = store.DeleteEmptyChildren(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, int64(3), report.Total())

	agg, err = store.Load(ctx, draft.ID)
	require.NoError(t, err)
	assert.Nil(t, agg.Premises)
	assert.Nil(t, agg.Training)
	assert.Nil(t, agg.Declaration)
	assert.NotNil(t, agg.Service)

	agg, err = store.Load(ctx, submitted.ID)
	require.NoError(t, err)
	assert.NotNil(t, agg.Premises, "submitted applications are never cleaned")

	report, err = store.DeleteEmptyChildren(ctx, false)
	require.NoError(t, err)
	assert.Zero(t, report.Total())
}

// ==========================
// Reconciliation
// ==========================

func TestPlanCollection(t *testing.T) {
	existing := []models.Reference{
		{ID: 1, FullName: "A", Email: "a@example.com"},
		{ID: 2, FullName: "B", Email: "b@example.com"},
		{ID: 3, FullName: "C", Email: "c@example.com"},
		{ID: 4, FullName: "E", Email: "e@example.com"},
	}
	incoming := []models.Reference{
		{ID: 1, FullName: "A", Email: "a@example.com"},       // unchanged
		{ID: 2, FullName: "B", Email: "b2@example.com"},      // changed
		{FullName: "C", Email: "c@example.com"},              // duplicate of 3
		{FullName: "C", Email: "c@example.com"},              // second copy is new
		{ID: 42, FullName: "D", Email: "d@example.com"},      // foreign id
		{ID: 4, FullName: "E", Email: "changed@example.com"}, // deleted below, ignored
	}

	plan := planCollection(referenceTable, existing, incoming, []int64{4, 4, 77}, false)

	assert.Equal(t, []int64{4}, plan.deletes)
	require.Len(t, plan.updates, 1)
	assert.Equal(t, int64(2), plan.updates[0].ID)
	require.Len(t, plan.inserts, 2)
	assert.Equal(t, "C", plan.inserts[0].FullName)
	assert.Equal(t, "D", plan.inserts[1].FullName)
	assert.Zero(t, plan.inserts[1].ID)
}

func TestPlanCollection_NewItemMatchingEditedRowIsKept(t *testing.T) {
	existing := []models.Reference{{ID: 5, FullName: "A"}}
	incoming := []models.Reference{
		{ID: 5, FullName: "B"},
		{FullName: "A"},
	}

	plan := planCollection(referenceTable, existing, incoming, nil, false)

	require.Len(t, plan.updates, 1)
	assert.Equal(t, "B", plan.updates[0].FullName)
	require.Len(t, plan.inserts, 1)
	assert.Equal(t, "A", plan.inserts[0].FullName)
	assert.Empty(t, plan.deletes)
}

func TestPlanCollection_Replace(t *testing.T) {
	existing := []models.Reference{
		{ID: 1, FullName: "A"},
		{ID: 2, FullName: "Half Done"},
		{ID: 3, FullName: "C"},
	}
	incoming := []models.Reference{
		{ID: 1, FullName: "A"},
		{FullName: "C"},
		{FullName: "D"},
	}

	plan := planCollection(referenceTable, existing, incoming, nil, true)

	assert.Equal(t, []int64{2}, plan.deletes)
	assert.Empty(t, plan.updates)
	require.Len(t, plan.inserts, 1)
	assert.Equal(t, "D", plan.inserts[0].FullName)
	assert.Equal(t, int64(3), incoming[1].ID)

	plan = planCollection(referenceTable, existing, nil, nil, true)
	assert.Equal(t, []int64{1, 2, 3}, plan.deletes)
}

func TestMemoryStore_Save_SubmitReplacesCollections(t *testing.T) {
	store, _ := newMemoryStore()
	ctx := context.Background()

	app, err := store.Save(ctx, uuid.Nil, &models.Changeset{
		Section:    8,
		References: []models.Reference{{FullName: "Half Done"}},
		Household:  []models.HouseholdMember{{FirstName: "Old", LastName: "Lodger"}},
	})
	require.NoError(t, err)

	_, err = store.Save(ctx, app.ID, &models.Changeset{
		Status:     models.StatusSubmitted,
		References: twoReferences(),
	})
	require.NoError(t, err)

	agg, err := store.Load(ctx, app.ID)
	require.NoError(t, err)
	require.Len(t, agg.References, 2)
	assert.Equal(t, "Bob Jones", agg.References[0].FullName)
	assert.Empty(t, agg.Household)
}
