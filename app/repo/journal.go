package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dbforge/mongomigrate/app/db"
	"github.com/dbforge/mongomigrate/app/entity"
)

var ErrNotFound = errors.New("sql: no rows in result set")

type JournalRepository interface {
	UpdateRun(ctx context.Context, run entity.Run) error
	GetRun(ctx context.Context, runID string) (entity.Run, error)
}

type JournalRepo struct {
	db *db.Db
}

func NewJournalRepo(db *db.Db) JournalRepository {
	return &JournalRepo{
		db: db,
	}
}

func (j *JournalRepo) UpdateRun(ctx context.Context, run entity.Run) error {
	upsertQuery := `
		insert into runs (run_id, source, target, db_name, status, err, started_at, finished_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
		on conflict(run_id) do update set
			source      = excluded.source,
			target      = excluded.target,
			db_name     = excluded.db_name,
			status      = excluded.status,
			err         = excluded.err,
			started_at  = COALESCE(NULLIF(excluded.started_at, ''), runs.started_at),
			finished_at = excluded.finished_at;
	`

	_, err := j.db.WriterDB.ExecContext(
		ctx, upsertQuery,
		run.RunID, run.Source, run.Target, run.Database,
		run.Status, run.Err, run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("error updating run status: %w", err)
	}
	return nil
}

func (j *JournalRepo) GetRun(ctx context.Context, runID string) (entity.Run, error) {
	var run entity.Run
	query := `select * from runs where run_id = $1`

	err := j.db.ReaderDB.QueryRowxContext(ctx, query, runID).StructScan(&run)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Run{}, fmt.Errorf("no run found with run_id %s: %w", runID, ErrNotFound)
		}
		return entity.Run{}, fmt.Errorf("error getting run: %w", err)
	}
	return run, nil
}

// NoopJournal is used when the journal database cannot be opened. History is
// advisory, so a broken journal must not block a migration.
type NoopJournal struct{}

func (NoopJournal) UpdateRun(ctx context.Context, run entity.Run) error { return nil }

func (NoopJournal) GetRun(ctx context.Context, runID string) (entity.Run, error) {
	return entity.Run{}, ErrNotFound
}
