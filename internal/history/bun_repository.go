package history

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "github.com/mattn/go-sqlite3"
)

var errNoDatabase = errors.New("history: bun repository requires a database")

// OpenSQLite opens a bun database over the sqlite3 driver. Use
// "file::memory:?cache=shared" for an ephemeral store.
func OpenSQLite(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	sqldb.SetMaxOpenConns(1)
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

// BunRepository persists build runs using a Bun-backed database.
type BunRepository struct {
	db  *bun.DB
	now func() time.Time
}

// NewBunRepository constructs a Bun-backed repository.
func NewBunRepository(db *bun.DB) *BunRepository {
	return &BunRepository{db: db, now: time.Now}
}

// Migrate creates the runs table when it does not exist yet.
func (r *BunRepository) Migrate(ctx context.Context) error {
	if r.db == nil {
		return errNoDatabase
	}
	if _, err := r.db.NewCreateTable().Model((*runModel)(nil)).IfNotExists().Exec(ctx); err != nil {
		return err
	}
	_, err := r.db.NewCreateIndex().
		Model((*runModel)(nil)).
		Index("idx_build_runs_started_at").
		Column("started_at").
		IfNotExists().
		Exec(ctx)
	return err
}

// Record stores a run, assigning an id and start time when missing.
func (r *BunRepository) Record(ctx context.Context, run Run) (Run, error) {
	if r.db == nil {
		return Run{}, errNoDatabase
	}
	run = prepare(run, r.now)
	model := modelFromRun(run)
	if _, err := r.db.NewInsert().Model(model).Exec(ctx); err != nil {
		return Run{}, err
	}
	return run, nil
}

// Get returns the run with id or ErrRunNotFound.
func (r *BunRepository) Get(ctx context.Context, id uuid.UUID) (Run, error) {
	if r.db == nil {
		return Run{}, errNoDatabase
	}
	var model runModel
	if err := r.db.NewSelect().Model(&model).Where("id = ?", id.String()).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, ErrRunNotFound
		}
		return Run{}, err
	}
	return model.toRun(), nil
}

// Recent returns the newest runs first.
func (r *BunRepository) Recent(ctx context.Context, limit int) ([]Run, error) {
	if r.db == nil {
		return nil, errNoDatabase
	}
	var models []runModel
	err := r.db.NewSelect().
		Model(&models).
		Order("started_at DESC", "id ASC").
		Limit(normalizeLimit(limit)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	runs := make([]Run, 0, len(models))
	for i := range models {
		runs = append(runs, models[i].toRun())
	}
	return runs, nil
}

// Prune deletes everything but the newest keep runs and returns how many
// rows were removed.
func (r *BunRepository) Prune(ctx context.Context, keep int) (int, error) {
	if r.db == nil {
		return 0, errNoDatabase
	}
	if keep < 0 {
		keep = 0
	}
	newest := r.db.NewSelect().
		Model((*runModel)(nil)).
		Column("id").
		Order("started_at DESC", "id ASC").
		Limit(keep)
	res, err := r.db.NewDelete().
		Model((*runModel)(nil)).
		Where("id NOT IN (?)", newest).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

type runModel struct {
	bun.BaseModel `bun:"table:build_runs"`

	ID            string    `bun:"id,pk"`
	Command       string    `bun:"command,notnull"`
	StartedAt     time.Time `bun:"started_at,notnull"`
	DurationMS    int64     `bun:"duration_ms,notnull"`
	Posts         int       `bun:"posts,notnull"`
	PagesBuilt    int       `bun:"pages_built,notnull"`
	PagesSkipped  int       `bun:"pages_skipped,notnull"`
	AssetsBuilt   int       `bun:"assets_built,notnull"`
	AssetsSkipped int       `bun:"assets_skipped,notnull"`
	FeedsWritten  int       `bun:"feeds_written,notnull"`
	DryRun        bool      `bun:"dry_run,notnull"`
	Error         string    `bun:"error"`
}

func modelFromRun(run Run) *runModel {
	return &runModel{
		ID:            run.ID.String(),
		Command:       run.Command,
		StartedAt:     run.StartedAt,
		DurationMS:    run.Duration.Milliseconds(),
		Posts:         run.Posts,
		PagesBuilt:    run.PagesBuilt,
		PagesSkipped:  run.PagesSkipped,
		AssetsBuilt:   run.AssetsBuilt,
		AssetsSkipped: run.AssetsSkipped,
		FeedsWritten:  run.FeedsWritten,
		DryRun:        run.DryRun,
		Error:         run.Error,
	}
}

func (m *runModel) toRun() Run {
	id, _ := uuid.Parse(m.ID)
	return Run{
		ID:            id,
		Command:       m.Command,
		StartedAt:     m.StartedAt.UTC(),
		Duration:      time.Duration(m.DurationMS) * time.Millisecond,
		Posts:         m.Posts,
		PagesBuilt:    m.PagesBuilt,
		PagesSkipped:  m.PagesSkipped,
		AssetsBuilt:   m.AssetsBuilt,
		AssetsSkipped: m.AssetsSkipped,
		FeedsWritten:  m.FeedsWritten,
		DryRun:        m.DryRun,
		Error:         m.Error,
	}
}

var _ Repository = (*BunRepository)(nil)
