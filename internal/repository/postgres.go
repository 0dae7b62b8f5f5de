// internal/repository/postgres.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"childcare-registration/internal/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/lib/pq"
)

const defaultTxTimeout = 10 * time.Second

type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// PostgresStore keeps aggregates in the schema created by the embedded migrations.
type PostgresStore struct {
	db    *sql.DB
	clock clockwork.Clock
}

func NewPostgresStore(db *sql.DB, clock clockwork.Clock) *PostgresStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &PostgresStore{db: db, clock: clock}
}

const applicationColumns = `id, application_number, status, last_section_completed,
	adults_in_home, children_in_home, created_at, updated_at`

func scanApplication(row interface{ Scan(...interface{}) error }) (*models.Application, error) {
	var app models.Application
	var number sql.NullString
	err := row.Scan(
		&app.ID, &number, &app.Status, &app.LastSectionCompleted,
		&app.AdultsInHome, &app.ChildrenInHome, &app.CreatedAt, &app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	app.ApplicationNumber = number.String
	return &app, nil
}

func (s *PostgresStore) Load(ctx context.Context, id uuid.UUID) (*models.Aggregate, error) {
	app, err := scanApplication(s.db.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load application: %w", err)
	}

	agg := models.NewAggregate()
	agg.Application = app

	if agg.Personal, err = loadOne(ctx, s.db, personalTable, id); err != nil {
		return nil, err
	}
	if agg.Premises, err = loadOne(ctx, s.db, premisesTable, id); err != nil {
		return nil, err
	}
	if agg.Service, err = loadOne(ctx, s.db, serviceTable, id); err != nil {
		return nil, err
	}
	if agg.Training, err = loadOne(ctx, s.db, trainingTable, id); err != nil {
		return nil, err
	}
	if agg.Suitability, err = loadOne(ctx, s.db, suitabilityTable, id); err != nil {
		return nil, err
	}
	if agg.Declaration, err = loadOne(ctx, s.db, declarationTable, id); err != nil {
		return nil, err
	}
	if agg.Addresses, err = loadMany(ctx, s.db, addressTable, id); err != nil {
		return nil, err
	}
	if agg.Employment, err = loadMany(ctx, s.db, employmentTable, id); err != nil {
		return nil, err
	}
	if agg.Household, err = loadMany(ctx, s.db, householdTable, id); err != nil {
		return nil, err
	}
	if agg.References, err = loadMany(ctx, s.db, referenceTable, id); err != nil {
		return nil, err
	}
	return agg, nil
}

func loadOne[T any](ctx context.Context, q querier, t childTable[T], appID uuid.UUID) (*T, error) {
	items, err := loadMany(ctx, q, t, appID)
	if err != nil || len(items) == 0 {
		return nil, err
	}
	return &items[0], nil
}

func loadMany[T any](ctx context.Context, q querier, t childTable[T], appID uuid.UUID) ([]T, error) {
	rows, err := q.QueryContext(ctx, t.selectByApplication(), appID)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", t.name, err)
	}
	defer rows.Close()

	items := []T{}
	for rows.Next() {
		var item T
		if err := rows.Scan(t.scanDest(&item)...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.name, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", t.name, err)
	}
	return items, nil
}

// loadBatch loads one table for many applications in a single query.
func loadBatch[T any](ctx context.Context, q querier, t childTable[T], ids []string) (map[uuid.UUID][]T, error) {
	rows, err := q.QueryContext(ctx, t.selectByApplications(), pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", t.name, err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]T)
	for rows.Next() {
		var item T
		if err := rows.Scan(t.scanDest(&item)...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.name, err)
		}
		appID := *t.appID(&item)
		out[appID] = append(out[appID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", t.name, err)
	}
	return out, nil
}

func (s *PostgresStore) runInTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTxTimeout)
		defer cancel()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, id uuid.UUID, cs *models.Changeset) (*models.Application, error) {
	if cs == nil {
		cs = &models.Changeset{}
	}

	var saved *models.Application
	err := s.runInTx(ctx, func(tx *sql.Tx) error {
		now := s.clock.Now().UTC()

		var app *models.Application
		var err error
		if id == uuid.Nil {
			app, err = s.createApplication(ctx, tx, cs, now)
		} else {
			app, err = s.updateApplication(ctx, tx, id, cs, now)
		}
		if err != nil {
			return err
		}

		// A submit on an existing draft replaces its collections outright.
		replace := id != uuid.Nil && cs.Status == models.StatusSubmitted
		if err := s.writeChildren(ctx, tx, app.ID, cs, replace); err != nil {
			return err
		}
		saved = app
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (s *PostgresStore) createApplication(ctx context.Context, tx *sql.Tx, cs *models.Changeset, now time.Time) (*models.Application, error) {
	number, err := allocateApplicationNumber(ctx, tx, now.Year())
	if err != nil {
		return nil, err
	}

	app := &models.Application{
		ID:                   uuid.New(),
		ApplicationNumber:    number,
		Status:               models.StatusDraft,
		LastSectionCompleted: cs.Section,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if cs.Status != "" {
		app.Status = cs.Status
	}
	if cs.AdultsInHome != nil {
		app.AdultsInHome = *cs.AdultsInHome
	}
	if cs.ChildrenInHome != nil {
		app.ChildrenInHome = *cs.ChildrenInHome
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO applications (`+applicationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		app.ID, app.ApplicationNumber, app.Status, app.LastSectionCompleted,
		app.AdultsInHome, app.ChildrenInHome, app.CreatedAt, app.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert application: %w", err)
	}
	return app, nil
}

// allocateApplicationNumber hands out the next RK-<year>-NNNNN under a
// transaction-scoped advisory lock.
func allocateApplicationNumber(ctx context.Context, tx *sql.Tx, year int) (string, error) {
	prefix := models.ApplicationNumberPrefix(year)

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, prefix); err != nil {
		return "", fmt.Errorf("lock application numbers: %w", err)
	}

	var last int
	err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(CAST(SUBSTRING(application_number FROM LENGTH($1) + 1) AS INTEGER)), 0)
		FROM applications
		WHERE application_number LIKE $1 || '%'`, prefix).Scan(&last)
	if err != nil {
		return "", fmt.Errorf("read last application number: %w", err)
	}
	return models.FormatApplicationNumber(year, last+1), nil
}

func (s *PostgresStore) updateApplication(ctx context.Context, tx *sql.Tx, id uuid.UUID, cs *models.Changeset, now time.Time) (*models.Application, error) {
	var current models.Status
	err := tx.QueryRowContext(ctx, `SELECT status FROM applications WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock application: %w", err)
	}
	if !current.Editable() {
		return nil, fmt.Errorf("%w: status %s", ErrLocked, current)
	}

	app, err := scanApplication(tx.QueryRowContext(ctx, `
		UPDATE applications SET
			status = COALESCE(NULLIF($2, ''), status),
			last_section_completed = GREATEST(last_section_completed, $3),
			adults_in_home = COALESCE($4, adults_in_home),
			children_in_home = COALESCE($5, children_in_home),
			updated_at = $6
		WHERE id = $1
		RETURNING `+applicationColumns,
		id, string(cs.Status), cs.Section, cs.AdultsInHome, cs.ChildrenInHome, now,
	))
	if err != nil {
		return nil, fmt.Errorf("update application: %w", err)
	}
	return app, nil
}

func (s *PostgresStore) writeChildren(ctx context.Context, tx *sql.Tx, appID uuid.UUID, cs *models.Changeset, replace bool) error {
	if err := upsertOne(ctx, tx, personalTable, appID, cs.Personal); err != nil {
		return err
	}
	if err := upsertOne(ctx, tx, premisesTable, appID, cs.Premises); err != nil {
		return err
	}
	if err := upsertOne(ctx, tx, serviceTable, appID, cs.Service); err != nil {
		return err
	}
	if err := upsertOne(ctx, tx, trainingTable, appID, cs.Training); err != nil {
		return err
	}
	if err := upsertOne(ctx, tx, suitabilityTable, appID, cs.Suitability); err != nil {
		return err
	}
	if err := upsertOne(ctx, tx, declarationTable, appID, cs.Declaration); err != nil {
		return err
	}

	if err := reconcile(ctx, tx, addressTable, appID, cs.Addresses, cs.Deleted[models.SectionAddresses], replace); err != nil {
		return err
	}
	if err := reconcile(ctx, tx, employmentTable, appID, cs.Employment, cs.Deleted[models.SectionEmployment], replace); err != nil {
		return err
	}
	if err := reconcile(ctx, tx, householdTable, appID, cs.Household, cs.Deleted[models.SectionHousehold], replace); err != nil {
		return err
	}
	return reconcile(ctx, tx, referenceTable, appID, cs.References, cs.Deleted[models.SectionReferences], replace)
}

func upsertOne[T any](ctx context.Context, tx *sql.Tx, t childTable[T], appID uuid.UUID, item *T) error {
	if item == nil {
		return nil
	}
	args := append([]interface{}{appID}, t.values(item)...)
	var id int64
	if err := tx.QueryRowContext(ctx, t.upsert(), args...).Scan(&id); err != nil {
		return fmt.Errorf("upsert %s: %w", t.name, err)
	}
	*t.id(item) = id
	*t.appID(item) = appID
	return nil
}

func reconcile[T any](ctx context.Context, tx *sql.Tx, t childTable[T], appID uuid.UUID, incoming []T, deleted []int64, replace bool) error {
	if len(incoming) == 0 && len(deleted) == 0 && !replace {
		return nil
	}

	existing, err := loadMany(ctx, tx, t, appID)
	if err != nil {
		return err
	}
	plan := planCollection(t, existing, incoming, deleted, replace)

	if len(plan.deletes) > 0 {
		if _, err := tx.ExecContext(ctx, t.deleteByIDs(), appID, pq.Array(plan.deletes)); err != nil {
			return fmt.Errorf("delete %s: %w", t.name, err)
		}
	}
	for _, item := range plan.updates {
		args := append([]interface{}{*t.id(item), appID}, t.values(item)...)
		if _, err := tx.ExecContext(ctx, t.update(), args...); err != nil {
			return fmt.Errorf("update %s: %w", t.name, err)
		}
	}
	for _, item := range plan.inserts {
		args := append([]interface{}{appID}, t.values(item)...)
		var id int64
		if err := tx.QueryRowContext(ctx, t.insert(), args...).Scan(&id); err != nil {
			return fmt.Errorf("insert %s: %w", t.name, err)
		}
		*t.id(item) = id
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]*models.Aggregate, error) {
	if filter.IDs != nil && len(filter.IDs) == 0 {
		return []*models.Aggregate{}, nil
	}

	var where []string
	var args []interface{}
	if filter.IDs != nil {
		ids := make([]string, len(filter.IDs))
		for i, id := range filter.IDs {
			ids[i] = id.String()
		}
		args = append(args, pq.Array(ids))
		where = append(where, fmt.Sprintf("id = ANY($%d::uuid[])", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + applicationColumns + ` FROM applications`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY updated_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var aggs []*models.Aggregate
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		agg := models.NewAggregate()
		agg.Application = app
		aggs = append(aggs, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applications: %w", err)
	}
	if len(aggs) == 0 {
		return []*models.Aggregate{}, nil
	}

	if err := s.attachChildren(ctx, aggs); err != nil {
		return nil, err
	}
	return aggs, nil
}

func (s *PostgresStore) attachChildren(ctx context.Context, aggs []*models.Aggregate) error {
	ids := make([]string, len(aggs))
	for i, agg := range aggs {
		ids[i] = agg.Application.ID.String()
	}

	personal, err := loadBatch(ctx, s.db, personalTable, ids)
	if err != nil {
		return err
	}
	premises, err := loadBatch(ctx, s.db, premisesTable, ids)
	if err != nil {
		return err
	}
	services, err := loadBatch(ctx, s.db, serviceTable, ids)
	if err != nil {
		return err
	}
	training, err := loadBatch(ctx, s.db, trainingTable, ids)
	if err != nil {
		return err
	}
	suitability, err := loadBatch(ctx, s.db, suitabilityTable, ids)
	if err != nil {
		return err
	}
	declarations, err := loadBatch(ctx, s.db, declarationTable, ids)
	if err != nil {
		return err
	}
	addresses, err := loadBatch(ctx, s.db, addressTable, ids)
	if err != nil {
		return err
	}
	employment, err := loadBatch(ctx, s.db, employmentTable, ids)
	if err != nil {
		return err
	}
	household, err := loadBatch(ctx, s.db, householdTable, ids)
	if err != nil {
		return err
	}
	references, err := loadBatch(ctx, s.db, referenceTable, ids)
	if err != nil {
		return err
	}

	for _, agg := range aggs {
		id := agg.Application.ID
		agg.Personal = first(personal[id])
		agg.Premises = first(premises[id])
		agg.Service = first(services[id])
		agg.Training = first(training[id])
		agg.Suitability = first(suitability[id])
		agg.Declaration = first(declarations[id])
		agg.Addresses = orEmpty(addresses[id])
		agg.Employment = orEmpty(employment[id])
		agg.Household = orEmpty(household[id])
		agg.References = orEmpty(references[id])
	}
	return nil
}

func first[T any](items []T) *T {
	if len(items) == 0 {
		return nil
	}
	return &items[0]
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func (s *PostgresStore) Search(ctx context.Context, query string) ([]uuid.UUID, error) {
	pattern := "%" + escapeLike(strings.TrimSpace(query)) + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id
		FROM applications a
		LEFT JOIN personal_details p ON p.application_id = a.id
		WHERE a.application_number ILIKE $1
		   OR p.first_name ILIKE $1
		   OR p.last_name ILIKE $1
		   OR p.email ILIKE $1
		ORDER BY a.updated_at DESC`, pattern)
	if err != nil {
		return nil, fmt.Errorf("search applications: %w", err)
	}
	defer rows.Close()

	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id uuid.UUID, to models.Status) (*models.Application, error) {
	var updated *models.Application
	err := s.runInTx(ctx, func(tx *sql.Tx) error {
		var current models.Status
		err := tx.QueryRowContext(ctx, `SELECT status FROM applications WHERE id = $1 FOR UPDATE`, id).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock application: %w", err)
		}
		if err := checkTransition(current, to); err != nil {
			return err
		}

		app, err := scanApplication(tx.QueryRowContext(ctx, `
			UPDATE applications SET status = $2, updated_at = $3
			WHERE id = $1
			RETURNING `+applicationColumns, id, string(to), s.clock.Now().UTC()))
		if err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		updated = app
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// checkTransition allows only forward moves out of SUBMITTED or later;
// leaving DRAFT is reserved for submit.
func checkTransition(from, to models.Status) error {
	if !to.Valid() || from == models.StatusDraft || !to.After(from) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
	}
	return nil
}

func (s *PostgresStore) DeleteEmptyChildren(ctx context.Context, dryRun bool) (*CleanupReport, error) {
	report := &CleanupReport{DryRun: dryRun, ByTable: map[string]int64{}}

	err := s.runInTx(ctx, func(tx *sql.Tx) error {
		for _, t := range cleanupTables {
			var n int64
			if dryRun {
				if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) "+t.from).Scan(&n); err != nil {
					return fmt.Errorf("count empty %s: %w", t.name, err)
				}
			} else {
				res, err := tx.ExecContext(ctx, "DELETE "+t.from)
				if err != nil {
					return fmt.Errorf("delete empty %s: %w", t.name, err)
				}
				if n, err = res.RowsAffected(); err != nil {
					return fmt.Errorf("delete empty %s: %w", t.name, err)
				}
			}
			report.ByTable[t.name] = n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

type cleanupTable struct {
	name string
	from string
}

var cleanupTables = []cleanupTable{
	{premisesTable.name, premisesTable.emptyDraftRows()},
	{serviceTable.name, serviceTable.emptyDraftRows()},
	{trainingTable.name, trainingTable.emptyDraftRows()},
	{suitabilityTable.name, suitabilityTable.emptyDraftRows()},
	{declarationTable.name, declarationTable.emptyDraftRows()},
}
