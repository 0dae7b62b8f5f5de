// internal/repository/memory.go
package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"childcare-registration/internal/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// MemoryStore is an in-process Store used by tests and local runs without Postgres.
type MemoryStore struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	apps    map[uuid.UUID]*models.Aggregate
	nextID  int64
	numbers map[int]int
}

func NewMemoryStore(clock clockwork.Clock) *MemoryStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryStore{
		clock:   clock,
		apps:    make(map[uuid.UUID]*models.Aggregate),
		numbers: make(map[int]int),
	}
}

func (s *MemoryStore) Load(ctx context.Context, id uuid.UUID) (*models.Aggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	agg, ok := s.apps[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneAggregate(agg), nil
}

func (s *MemoryStore) Save(ctx context.Context, id uuid.UUID, cs *models.Changeset) (*models.Application, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cs == nil {
		cs = &models.Changeset{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now().UTC()

	var agg *models.Aggregate
	if id == uuid.Nil {
		s.numbers[now.Year()]++
		agg = models.NewAggregate()
		agg.Application = &models.Application{
			ID:                uuid.New(),
			ApplicationNumber: models.FormatApplicationNumber(now.Year(), s.numbers[now.Year()]),
			Status:            models.StatusDraft,
			CreatedAt:         now,
		}
	} else {
		current, ok := s.apps[id]
		if !ok {
			return nil, ErrNotFound
		}
		if !current.Application.Status.Editable() {
			return nil, fmt.Errorf("%w: status %s", ErrLocked, current.Application.Status)
		}
		agg = cloneAggregate(current)
	}

	app := agg.Application
	if cs.Status != "" {
		app.Status = cs.Status
	}
	if cs.Section > app.LastSectionCompleted {
		app.LastSectionCompleted = cs.Section
	}
	if cs.AdultsInHome != nil {
		app.AdultsInHome = *cs.AdultsInHome
	}
	if cs.ChildrenInHome != nil {
		app.ChildrenInHome = *cs.ChildrenInHome
	}
	app.UpdatedAt = now

	agg.Personal = putOne(s, personalTable, app.ID, agg.Personal, cs.Personal)
	agg.Premises = putOne(s, premisesTable, app.ID, agg.Premises, cs.Premises)
	agg.Service = putOne(s, serviceTable, app.ID, agg.Service, cs.Service)
	agg.Training = putOne(s, trainingTable, app.ID, agg.Training, cs.Training)
	agg.Suitability = putOne(s, suitabilityTable, app.ID, agg.Suitability, cs.Suitability)
	agg.Declaration = putOne(s, declarationTable, app.ID, agg.Declaration, cs.Declaration)

	replace := cs.Status == models.StatusSubmitted
	agg.Addresses = putMany(s, addressTable, app.ID, agg.Addresses, cs.Addresses, cs.Deleted[models.SectionAddresses], replace)
	agg.Employment = putMany(s, employmentTable, app.ID, agg.Employment, cs.Employment, cs.Deleted[models.SectionEmployment], replace)
	agg.Household = putMany(s, householdTable, app.ID, agg.Household, cs.Household, cs.Deleted[models.SectionHousehold], replace)
	agg.References = putMany(s, referenceTable, app.ID, agg.References, cs.References, cs.Deleted[models.SectionReferences], replace)
	sortAddresses(agg.Addresses)
	sortEmployment(agg.Employment)

	s.apps[app.ID] = agg
	saved := *app
	return &saved, nil
}

func (s *MemoryStore) id() int64 {
	s.nextID++
	return s.nextID
}

func putOne[T any](s *MemoryStore, t childTable[T], appID uuid.UUID, current, incoming *T) *T {
	if incoming == nil {
		return current
	}
	item := *incoming
	*t.appID(&item) = appID
	if current != nil {
		*t.id(&item) = *t.id(current)
	} else {
		*t.id(&item) = s.id()
	}
	*t.id(incoming) = *t.id(&item)
	return &item
}

func putMany[T any](s *MemoryStore, t childTable[T], appID uuid.UUID, existing, incoming []T, deleted []int64, replace bool) []T {
	plan := planCollection(t, existing, incoming, deleted, replace)

	removed := make(map[int64]bool, len(plan.deletes))
	for _, id := range plan.deletes {
		removed[id] = true
	}
	updates := make(map[int64]*T, len(plan.updates))
	for _, item := range plan.updates {
		updates[*t.id(item)] = item
	}

	out := make([]T, 0, len(existing)+len(plan.inserts))
	for _, item := range existing {
		id := *t.id(&item)
		if removed[id] {
			continue
		}
		if upd, ok := updates[id]; ok {
			item = *upd
			*t.appID(&item) = appID
		}
		out = append(out, item)
	}
	for _, item := range plan.inserts {
		*t.id(item) = s.id()
		stored := *item
		*t.appID(&stored) = appID
		out = append(out, stored)
	}
	return out
}

func (s *MemoryStore) List(ctx context.Context, filter Filter) ([]*models.Aggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var wanted map[uuid.UUID]bool
	if filter.IDs != nil {
		wanted = make(map[uuid.UUID]bool, len(filter.IDs))
		for _, id := range filter.IDs {
			wanted[id] = true
		}
	}

	out := []*models.Aggregate{}
	for id, agg := range s.apps {
		if wanted != nil && !wanted[id] {
			continue
		}
		if filter.Status != "" && agg.Application.Status != filter.Status {
			continue
		}
		out = append(out, cloneAggregate(agg))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Application.UpdatedAt.After(out[j].Application.UpdatedAt)
	})
	return out, nil
}

func (s *MemoryStore) Search(ctx context.Context, query string) ([]uuid.UUID, error) {
	q := strings.ToLower(strings.TrimSpace(query))

	aggs, err := s.List(ctx, Filter{})
	if err != nil {
		return nil, err
	}

	ids := []uuid.UUID{}
	for _, agg := range aggs {
		candidates := []string{agg.Application.ApplicationNumber}
		if p := agg.Personal; p != nil {
			candidates = append(candidates, p.FirstName, p.LastName, p.Email)
		}
		for _, c := range candidates {
			if strings.Contains(strings.ToLower(c), q) {
				ids = append(ids, agg.Application.ID)
				break
			}
		}
	}
	return ids, nil
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, id uuid.UUID, to models.Status) (*models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	agg, ok := s.apps[id]
	if !ok {
		return nil, ErrNotFound
	}
	if err := checkTransition(agg.Application.Status, to); err != nil {
		return nil, err
	}
	agg.Application.Status = to
	agg.Application.UpdatedAt = s.clock.Now().UTC()

	updated := *agg.Application
	return &updated, nil
}

func (s *MemoryStore) DeleteEmptyChildren(ctx context.Context, dryRun bool) (*CleanupReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := &CleanupReport{DryRun: dryRun, ByTable: map[string]int64{}}
	for _, t := range cleanupTables {
		report.ByTable[t.name] = 0
	}

	for _, agg := range s.apps {
		if agg.Application.Status != models.StatusDraft {
			continue
		}
		if agg.Premises != nil && agg.Premises.Empty() {
			report.ByTable[premisesTable.name]++
			if !dryRun {
				agg.Premises = nil
			}
		}
		if agg.Service != nil && agg.Service.Empty() {
			report.ByTable[serviceTable.name]++
			if !dryRun {
				agg.Service = nil
			}
		}
		if agg.Training != nil && agg.Training.Empty() {
			report.ByTable[trainingTable.name]++
			if !dryRun {
				agg.Training = nil
			}
		}
		if agg.Suitability != nil && agg.Suitability.Empty() {
			report.ByTable[suitabilityTable.name]++
			if !dryRun {
				agg.Suitability = nil
			}
		}
		if agg.Declaration != nil && agg.Declaration.Empty() {
			report.ByTable[declarationTable.name]++
			if !dryRun {
				agg.Declaration = nil
			}
		}
	}
	return report, nil
}

func cloneAggregate(agg *models.Aggregate) *models.Aggregate {
	out := &models.Aggregate{
		Personal:    clonePtr(agg.Personal),
		Premises:    clonePtr(agg.Premises),
		Service:     clonePtr(agg.Service),
		Training:    clonePtr(agg.Training),
		Suitability: clonePtr(agg.Suitability),
		Declaration: clonePtr(agg.Declaration),
		Addresses:   append([]models.AddressEntry{}, agg.Addresses...),
		Employment:  append([]models.EmploymentEntry{}, agg.Employment...),
		Household:   append([]models.HouseholdMember{}, agg.Household...),
		References:  append([]models.Reference{}, agg.References...),
	}
	out.Application = clonePtr(agg.Application)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

func sortAddresses(items []models.AddressEntry) {
	sort.SliceStable(items, func(i, j int) bool {
		return datesDescending(items[i].MoveInDate, items[j].MoveInDate, items[i].ID, items[j].ID)
	})
}

func sortEmployment(items []models.EmploymentEntry) {
	sort.SliceStable(items, func(i, j int) bool {
		return datesDescending(items[i].StartDate, items[j].StartDate, items[i].ID, items[j].ID)
	})
}

// datesDescending orders newest first with missing dates last, then by id.
func datesDescending(a, b *models.Date, idA, idB int64) bool {
	switch {
	case a == nil && b == nil:
		return idA < idB
	case a == nil:
		return false
	case b == nil:
		return true
	case a.Equal(b):
		return idA < idB
	default:
		return b.Before(a)
	}
}
