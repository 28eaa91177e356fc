package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/omerfehmii/izlenebilir-gorev-kuyrugu/internal/provision"
)

// AuditRecord — запись о прогоне setup/verify.
type AuditRecord struct {
	RunID      uuid.UUID       `json:"run_id"`
	Command    string          `json:"command"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Attempts   int             `json:"readiness_attempts"`
	OK         int             `json:"ok"`
	Failed     int             `json:"failed"`
	Skipped    int             `json:"skipped"`
	Missing    int             `json:"missing"`
	Aborted    bool            `json:"aborted"`
	Summary    json.RawMessage `json:"summary"`
}

// NewAuditRecord собирает запись из результата прогона.
// summary сериализуется в JSON как есть.
func NewAuditRecord(command string, out *provision.Outcome, started, finished time.Time, summary any) (*AuditRecord, error) {
	runID, err := uuid.Parse(out.RunID)
	if err != nil {
		return nil, fmt.Errorf("parse run id: %w", err)
	}

	raw, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("marshal summary: %w", err)
	}

	rec := &AuditRecord{
		RunID:      runID,
		Command:    command,
		StartedAt:  started,
		FinishedAt: finished,
		Attempts:   out.Attempts,
		Summary:    raw,
	}

	if p := out.Provision; p != nil {
		rec.OK = p.Count(provision.StatusOK)
		rec.Failed = p.Count(provision.StatusFailed)
		rec.Skipped = p.Count(provision.StatusSkipped)
		rec.Aborted = p.Aborted
	}
	if v := out.Verification; v != nil {
		rec.Missing = len(v.MissingResources())
		rec.Aborted = rec.Aborted || v.Aborted
	}

	return rec, nil
}

// AuditRepo — журнал прогонов в PostgreSQL.
type AuditRepo struct {
	pool *pgxpool.Pool
}

// NewAuditRepo создаёт новый AuditRepo.
func NewAuditRepo(pool *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

// EnsureSchema создаёт таблицу журнала, если её нет.
func (r *AuditRepo) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS topology_runs (
			run_id      uuid PRIMARY KEY,
			command     text        NOT NULL,
			started_at  timestamptz NOT NULL,
			finished_at timestamptz NOT NULL,
			attempts    integer     NOT NULL,
			ok          integer     NOT NULL,
			failed      integer     NOT NULL,
			skipped     integer     NOT NULL,
			missing     integer     NOT NULL,
			aborted     boolean     NOT NULL,
			summary     jsonb       NOT NULL
		)
	`
	if _, err := r.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create topology_runs: %w", err)
	}
	return nil
}

// Record сохраняет запись о прогоне.
func (r *AuditRepo) Record(ctx context.Context, rec *AuditRecord) error {
	query := `
		INSERT INTO topology_runs
			(run_id, command, started_at, finished_at, attempts, ok, failed, skipped, missing, aborted, summary)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.pool.Exec(ctx, query,
		rec.RunID,
		rec.Command,
		rec.StartedAt,
		rec.FinishedAt,
		rec.Attempts,
		rec.OK,
		rec.Failed,
		rec.Skipped,
		rec.Missing,
		rec.Aborted,
		[]byte(rec.Summary),
	)
	if err != nil {
		return fmt.Errorf("insert topology run: %w", err)
	}
	return nil
}

// ListRecent возвращает последние прогоны, новые первыми.
func (r *AuditRepo) ListRecent(ctx context.Context, limit int) ([]AuditRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT run_id, command, started_at, finished_at, attempts, ok, failed, skipped, missing, aborted, summary
		FROM topology_runs
		ORDER BY started_at DESC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query topology runs: %w", err)
	}
	defer rows.Close()

	var records []AuditRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate topology runs: %w", err)
	}
	return records, nil
}

func scanRecord(row pgx.Row) (*AuditRecord, error) {
	var rec AuditRecord
	var summary []byte

	err := row.Scan(
		&rec.RunID,
		&rec.Command,
		&rec.StartedAt,
		&rec.FinishedAt,
		&rec.Attempts,
		&rec.OK,
		&rec.Failed,
		&rec.Skipped,
		&rec.Missing,
		&rec.Aborted,
		&summary,
	)
	if err != nil {
		return nil, fmt.Errorf("scan topology run: %w", err)
	}

	rec.Summary = summary
	return &rec, nil
}
