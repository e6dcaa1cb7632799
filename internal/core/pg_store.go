package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/metasync/internal/mapping"
	"github.com/JonMunkholm/metasync/internal/reconcile"
)

const storeSchema = `
CREATE TABLE IF NOT EXISTS metasync_runs (
    id          uuid PRIMARY KEY,
    status      text NOT NULL,
    source      text NOT NULL DEFAULT '',
    key_column  text NOT NULL,
    mappings    jsonb NOT NULL,
    stats       jsonb NOT NULL,
    outcome     jsonb,
    error       text NOT NULL DEFAULT '',
    ip_address  text NOT NULL DEFAULT '',
    user_agent  text NOT NULL DEFAULT '',
    started_at  timestamptz NOT NULL,
    finished_at timestamptz NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_metasync_runs_started ON metasync_runs (started_at DESC);

CREATE TABLE IF NOT EXISTS metasync_presets (
    id         uuid PRIMARY KEY,
    name       text NOT NULL,
    key_column text NOT NULL,
    mappings   jsonb NOT NULL,
    headers    jsonb NOT NULL,
    created_at timestamptz NOT NULL DEFAULT now(),
    updated_at timestamptz NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS metasync_presets_name_unique ON metasync_presets (lower(name));
`

// PGStore keeps history and presets in Postgres.
type PGStore struct {
	db DBTX
}

// NewPGStore wraps db. Call EnsureSchema once before use.
func NewPGStore(db DBTX) *PGStore {
	return &PGStore{db: db}
}

// EnsureSchema creates the store tables when missing.
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, storeSchema); err != nil {
		return fmt.Errorf("create store schema: %w", err)
	}
	return nil
}

func (s *PGStore) SaveRun(ctx context.Context, run Run) error {
	mappingsJSON, err := json.Marshal(run.Mappings)
	if err != nil {
		return fmt.Errorf("marshal mappings: %w", err)
	}
	statsJSON, err := json.Marshal(run.Stats)
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	var outcomeJSON []byte
	if run.Outcome != nil {
		if outcomeJSON, err = json.Marshal(run.Outcome); err != nil {
			return fmt.Errorf("marshal outcome: %w", err)
		}
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO metasync_runs
		    (id, status, source, key_column, mappings, stats, outcome, error,
		     ip_address, user_agent, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		run.ID, string(run.Status), run.Source, run.KeyColumn, mappingsJSON, statsJSON,
		outcomeJSON, run.Error, run.IPAddress, run.UserAgent, run.StartedAt, run.FinishedAt)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

func (s *PGStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(ctx, `
		SELECT id::text, status, source, key_column, mappings, stats, NULL::jsonb, error,
		       ip_address, user_agent, started_at, finished_at
		FROM metasync_runs
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

func (s *PGStore) GetRun(ctx context.Context, id string) (*Run, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("run %q: %w", id, ErrNotFound)
	}
	row := s.db.QueryRow(ctx, `
		SELECT id::text, status, source, key_column, mappings, stats, outcome, error,
		       ip_address, user_agent, started_at, finished_at
		FROM metasync_runs
		WHERE id = $1::uuid`, id)
	r, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("run %q: %w", id, ErrNotFound)
	}
	return r, err
}

func (s *PGStore) PruneRuns(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM metasync_runs WHERE started_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PGStore) CreatePreset(ctx context.Context, p mapping.Preset) (*mapping.Preset, error) {
	mappingsJSON, headersJSON, err := presetJSON(p)
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO metasync_presets (id, name, key_column, mappings, headers)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id::text, name, key_column, mappings, headers, created_at, updated_at`,
		uuid.NewString(), p.Name, p.KeyColumn, mappingsJSON, headersJSON)
	out, err := scanPreset(row)
	if err != nil {
		return nil, presetWriteError("create", err)
	}
	return out, nil
}

func (s *PGStore) UpdatePreset(ctx context.Context, p mapping.Preset) (*mapping.Preset, error) {
	if _, err := uuid.Parse(p.ID); err != nil {
		return nil, fmt.Errorf("preset %q: %w", p.ID, ErrNotFound)
	}
	mappingsJSON, headersJSON, err := presetJSON(p)
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRow(ctx, `
		UPDATE metasync_presets
		SET name = $2, key_column = $3, mappings = $4, headers = $5, updated_at = now()
		WHERE id = $1::uuid
		RETURNING id::text, name, key_column, mappings, headers, created_at, updated_at`,
		p.ID, p.Name, p.KeyColumn, mappingsJSON, headersJSON)
	out, err := scanPreset(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("preset %q: %w", p.ID, ErrNotFound)
	}
	if err != nil {
		return nil, presetWriteError("update", err)
	}
	return out, nil
}

func (s *PGStore) GetPreset(ctx context.Context, id string) (*mapping.Preset, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("preset %q: %w", id, ErrNotFound)
	}
	row := s.db.QueryRow(ctx, `
		SELECT id::text, name, key_column, mappings, headers, created_at, updated_at
		FROM metasync_presets
		WHERE id = $1::uuid`, id)
	p, err := scanPreset(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("preset %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get preset: %w", err)
	}
	return p, nil
}

func (s *PGStore) ListPresets(ctx context.Context) ([]mapping.Preset, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id::text, name, key_column, mappings, headers, created_at, updated_at
		FROM metasync_presets
		ORDER BY lower(name)`)
	if err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	defer rows.Close()

	presets := make([]mapping.Preset, 0)
	for rows.Next() {
		p, err := scanPreset(rows)
		if err != nil {
			return nil, fmt.Errorf("list presets: %w", err)
		}
		presets = append(presets, *p)
	}
	return presets, rows.Err()
}

func (s *PGStore) DeletePreset(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("preset %q: %w", id, ErrNotFound)
	}
	tag, err := s.db.Exec(ctx, `DELETE FROM metasync_presets WHERE id = $1::uuid`, id)
	if err != nil {
		return fmt.Errorf("delete preset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("preset %q: %w", id, ErrNotFound)
	}
	return nil
}

func scanRun(row pgx.Row) (*Run, error) {
	var (
		r                   Run
		status              string
		mappingsJSON, stats []byte
		outcomeJSON         []byte
	)
	err := row.Scan(&r.ID, &status, &r.Source, &r.KeyColumn, &mappingsJSON, &stats,
		&outcomeJSON, &r.Error, &r.IPAddress, &r.UserAgent, &r.StartedAt, &r.FinishedAt)
	if err != nil {
		return nil, err
	}
	r.Status = RunStatus(status)
	if err := json.Unmarshal(mappingsJSON, &r.Mappings); err != nil {
		return nil, fmt.Errorf("decode run mappings: %w", err)
	}
	if err := json.Unmarshal(stats, &r.Stats); err != nil {
		return nil, fmt.Errorf("decode run stats: %w", err)
	}
	if len(outcomeJSON) > 0 {
		r.Outcome = new(reconcile.Outcome)
		if err := json.Unmarshal(outcomeJSON, r.Outcome); err != nil {
			return nil, fmt.Errorf("decode run outcome: %w", err)
		}
	}
	return &r, nil
}

func scanPreset(row pgx.Row) (*mapping.Preset, error) {
	var (
		p                         mapping.Preset
		mappingsJSON, headersJSON []byte
	)
	err := row.Scan(&p.ID, &p.Name, &p.KeyColumn, &mappingsJSON, &headersJSON, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(mappingsJSON, &p.Mappings); err != nil {
		return nil, fmt.Errorf("decode preset mappings: %w", err)
	}
	if err := json.Unmarshal(headersJSON, &p.Headers); err != nil {
		return nil, fmt.Errorf("decode preset headers: %w", err)
	}
	return &p, nil
}

func presetJSON(p mapping.Preset) (mappingsJSON, headersJSON []byte, err error) {
	if mappingsJSON, err = json.Marshal(p.Mappings); err != nil {
		return nil, nil, fmt.Errorf("marshal mappings: %w", err)
	}
	headers := p.Headers
	if headers == nil {
		headers = []string{}
	}
	if headersJSON, err = json.Marshal(headers); err != nil {
		return nil, nil, fmt.Errorf("marshal headers: %w", err)
	}
	return mappingsJSON, headersJSON, nil
}

// presetWriteError turns a unique violation on the name index into
// ErrPresetExists.
func presetWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrPresetExists
	}
	return fmt.Errorf("%s preset: %w", op, err)
}
