package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/cte-extractor/constants"
	"github.com/joseph-ayodele/cte-extractor/internal/common"
	"github.com/joseph-ayodele/cte-extractor/internal/entity"
)

type RunRepository interface {
	CreateRun(ctx context.Context, source string) (uuid.UUID, error)
	SaveOutcome(ctx context.Context, runID uuid.UUID, o entity.Outcome) error
	FinishRun(ctx context.Context, runID uuid.UUID, stats entity.RunStats, status constants.RunStatus) error
	GetRun(ctx context.Context, runID uuid.UUID) (*entity.Run, error)
	ListRuns(ctx context.Context, limit int) ([]*entity.Run, error)
	ListOutcomes(ctx context.Context, runID uuid.UUID) ([]entity.Outcome, error)
}

type runRepo struct {
	db     *DB
	logger *slog.Logger
	now    func() time.Time
}

func NewRunRepository(db *DB, logger *slog.Logger) RunRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &runRepo{
		db:     db,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func dbError(op string, err error) error {
	return common.NewAppError(common.CodeDatabase, op, fmt.Errorf("%w: %w", common.ErrDatabase, err))
}

func (r *runRepo) CreateRun(ctx context.Context, source string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		`INSERT INTO runs (id, source, status, started_at) VALUES (?, ?, ?, ?)`),
		id.String(), source, string(constants.RunStatusRunning), formatTime(r.now()))
	if err != nil {
		r.logger.Error("failed to create run", "source", source, "error", err)
		return uuid.Nil, dbError("create run", err)
	}
	return id, nil
}

func (r *runRepo) SaveOutcome(ctx context.Context, runID uuid.UUID, o entity.Outcome) error {
	var recordJSON, traceJSON sql.NullString
	if o.Record != nil {
		b, err := json.Marshal(o.Record)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		recordJSON = sql.NullString{String: string(b), Valid: true}
	}
	if o.Trace != nil {
		b, err := json.Marshal(o.Trace)
		if err != nil {
			return fmt.Errorf("marshal trace: %w", err)
		}
		traceJSON = sql.NullString{String: string(b), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		`INSERT INTO outcomes (run_id, seq, name, content_hash, status, record_json, trace_json, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		runID.String(), o.Seq, o.Name, o.ContentHash, string(o.Status()),
		recordJSON, traceJSON, o.Err, formatTime(r.now()))
	if err != nil {
		r.logger.Error("failed to save outcome", "run_id", runID, "document", o.Name, "error", err)
		return dbError("save outcome", err)
	}
	return nil
}

func (r *runRepo) FinishRun(ctx context.Context, runID uuid.UUID, stats entity.RunStats, status constants.RunStatus) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(
		`UPDATE runs SET status = ?, documents = ?, succeeded = ?, failed = ?, finished_at = ? WHERE id = ?`),
		string(status), stats.Documents, stats.Succeeded, stats.Failed, formatTime(r.now()), runID.String())
	if err != nil {
		r.logger.Error("failed to finish run", "run_id", runID, "error", err)
		return dbError("finish run", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: run %s", common.ErrNotFound, runID)
	}
	return nil
}

const runColumns = `id, source, status, documents, succeeded, failed, started_at, finished_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (*entity.Run, error) {
	var (
		run      entity.Run
		id       string
		started  string
		finished sql.NullString
	)
	if err := s.Scan(&id, &run.Source, &run.Status, &run.Documents, &run.Succeeded, &run.Failed, &started, &finished); err != nil {
		return nil, err
	}
	var err error
	if run.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("run id: %w", err)
	}
	if run.StartedAt, err = parseTime(started); err != nil {
		return nil, fmt.Errorf("run started_at: %w", err)
	}
	if finished.Valid {
		t, err := parseTime(finished.String)
		if err != nil {
			return nil, fmt.Errorf("run finished_at: %w", err)
		}
		run.FinishedAt = &t
	}
	return &run, nil
}

func (r *runRepo) GetRun(ctx context.Context, runID uuid.UUID) (*entity.Run, error) {
	row := r.db.QueryRowContext(ctx, r.db.Rebind(`SELECT `+runColumns+` FROM runs WHERE id = ?`), runID.String())
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: run %s", common.ErrNotFound, runID)
	}
	if err != nil {
		r.logger.Error("failed to get run", "run_id", runID, "error", err)
		return nil, dbError("get run", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first.
func (r *runRepo) ListRuns(ctx context.Context, limit int) ([]*entity.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC LIMIT ?`), limit)
	if err != nil {
		return nil, dbError("list runs", err)
	}
	defer rows.Close()

	var out []*entity.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, dbError("scan run", err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// ListOutcomes returns a run's outcomes in document order.
func (r *runRepo) ListOutcomes(ctx context.Context, runID uuid.UUID) ([]entity.Outcome, error) {
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(
		`SELECT seq, name, content_hash, record_json, trace_json, error
		 FROM outcomes WHERE run_id = ? ORDER BY seq`), runID.String())
	if err != nil {
		return nil, dbError("list outcomes", err)
	}
	defer rows.Close()

	var out []entity.Outcome
	for rows.Next() {
		var (
			o                     entity.Outcome
			recordJSON, traceJSON sql.NullString
		)
		if err := rows.Scan(&o.Seq, &o.Name, &o.ContentHash, &recordJSON, &traceJSON, &o.Err); err != nil {
			return nil, dbError("scan outcome", err)
		}
		if recordJSON.Valid {
			if err := json.Unmarshal([]byte(recordJSON.String), &o.Record); err != nil {
				return nil, fmt.Errorf("decode record for %s: %w", o.Name, err)
			}
		}
		if traceJSON.Valid {
			if err := json.Unmarshal([]byte(traceJSON.String), &o.Trace); err != nil {
				return nil, fmt.Errorf("decode trace for %s: %w", o.Name, err)
			}
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
