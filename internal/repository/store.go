// internal/repository/store.go
package repository

import (
	"context"
	"errors"
	"sort"

	"childcare-registration/internal/models"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("application not found")
	ErrLocked            = errors.New("application is no longer editable")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Store persists Application aggregates. Save and UpdateStatus are atomic.
type Store interface {
	// Load returns the full child graph or ErrNotFound.
	Load(ctx context.Context, id uuid.UUID) (*models.Aggregate, error)

	// Save applies cs to the DRAFT application id, creating a new application
	// when id is uuid.Nil. Returns ErrLocked when the application has left DRAFT.
	Save(ctx context.Context, id uuid.UUID, cs *models.Changeset) (*models.Application, error)

	List(ctx context.Context, filter Filter) ([]*models.Aggregate, error)

	// Search matches application number, applicant name or email.
	Search(ctx context.Context, query string) ([]uuid.UUID, error)

	// UpdateStatus moves a submitted application forward in the review lifecycle.
	UpdateStatus(ctx context.Context, id uuid.UUID, to models.Status) (*models.Application, error)

	// DeleteEmptyChildren removes default-valued one-to-one children of DRAFT
	// applications. With dryRun it only counts them.
	DeleteEmptyChildren(ctx context.Context, dryRun bool) (*CleanupReport, error)
}

// Filter narrows List. A nil IDs slice means all applications; an empty
// non-nil slice matches nothing.
type Filter struct {
	IDs    []uuid.UUID
	Status models.Status
}

type CleanupReport struct {
	DryRun  bool             `json:"dryRun"`
	ByTable map[string]int64 `json:"byTable"`
}

func (r *CleanupReport) Total() int64 {
	var n int64
	for _, c := range r.ByTable {
		n += c
	}
	return n
}

// collectionPlan is the reconciliation of submitted items against stored ones.
type collectionPlan[T any] struct {
	inserts []*T
	updates []*T
	deletes []int64
}

// planCollection matches incoming items to existing ones by id. Items whose
// id is not owned by the application are treated as new. A new item identical
// to a stored row that no incoming item claimed by id takes over that row
// instead of being inserted. With replace, stored rows left unclaimed are
// deleted, so the incoming list becomes the whole collection.
func planCollection[T any](t childTable[T], existing []T, incoming []T, deleted []int64, replace bool) collectionPlan[T] {
	var plan collectionPlan[T]

	byID := make(map[int64]*T, len(existing))
	for i := range existing {
		byID[*t.id(&existing[i])] = &existing[i]
	}

	removed := make(map[int64]bool, len(deleted))
	for _, id := range deleted {
		if _, ok := byID[id]; ok && !removed[id] {
			removed[id] = true
			plan.deletes = append(plan.deletes, id)
		}
	}

	claimed := make(map[int64]bool, len(incoming))
	var fresh []*T
	for i := range incoming {
		item := &incoming[i]
		id := *t.id(item)
		current, ok := byID[id]
		if !ok || id == 0 || claimed[id] {
			*t.id(item) = 0
			fresh = append(fresh, item)
			continue
		}
		if removed[id] {
			continue
		}
		claimed[id] = true
		if t.key(current) != t.key(item) {
			plan.updates = append(plan.updates, item)
		}
	}

	// unclaimed stored rows by content, in stored order
	spare := make(map[string][]int64)
	for i := range existing {
		id := *t.id(&existing[i])
		if removed[id] || claimed[id] {
			continue
		}
		k := t.key(&existing[i])
		spare[k] = append(spare[k], id)
	}

	for _, item := range fresh {
		k := t.key(item)
		if ids := spare[k]; len(ids) > 0 {
			*t.id(item) = ids[0]
			claimed[ids[0]] = true
			spare[k] = ids[1:]
			continue
		}
		plan.inserts = append(plan.inserts, item)
	}

	if replace {
		for i := range existing {
			id := *t.id(&existing[i])
			if !removed[id] && !claimed[id] {
				plan.deletes = append(plan.deletes, id)
			}
		}
	}

	sort.Slice(plan.deletes, func(i, j int) bool { return plan.deletes[i] < plan.deletes[j] })
	return plan
}
