package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/trutrend/internal/core"
)

// DBTX is the subset of pgxpool.Pool, pgx.Conn and pgx.Tx used here.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS patient_analyses (
    patient_id    TEXT PRIMARY KEY,
    analysis_id   UUID NOT NULL,
    dataset_id    TEXT NOT NULL,
    device_type   TEXT NOT NULL,
    received_at   TIMESTAMPTZ NOT NULL,
    finding_count INTEGER NOT NULL,
    payload       JSONB NOT NULL
)`

const replaceSQL = `
INSERT INTO patient_analyses (patient_id, analysis_id, dataset_id, device_type, received_at, finding_count, payload)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (patient_id) DO UPDATE SET
    analysis_id   = EXCLUDED.analysis_id,
    dataset_id    = EXCLUDED.dataset_id,
    device_type   = EXCLUDED.device_type,
    received_at   = EXCLUDED.received_at,
    finding_count = EXCLUDED.finding_count,
    payload       = EXCLUDED.payload`

const latestSQL = `SELECT payload FROM patient_analyses WHERE patient_id = $1`

const deleteSQL = `DELETE FROM patient_analyses WHERE patient_id = $1`

// PostgresStore is a ResultStore backed by the patient_analyses table.
// The full analysis is kept as JSONB; the other columns are for querying.
type PostgresStore struct {
	db DBTX
}

func NewPostgresStore(db DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the table if it does not exist.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create patient_analyses: %w", err)
	}
	return nil
}

func (p *PostgresStore) Replace(ctx context.Context, a *core.Analysis) error {
	id, err := uuid.Parse(a.ID)
	if err != nil {
		return fmt.Errorf("analysis id %q: %w", a.ID, err)
	}
	payload, err := encode(a)
	if err != nil {
		return err
	}

	_, err = p.db.Exec(ctx, replaceSQL,
		a.PatientID,
		pgtype.UUID{Bytes: id, Valid: true},
		a.DatasetID,
		string(a.Device),
		pgtype.Timestamptz{Time: a.ReceivedAt, Valid: true},
		len(a.Findings),
		payload,
	)
	if err != nil {
		return fmt.Errorf("replace analysis for %s: %w", a.PatientID, err)
	}
	return nil
}

func (p *PostgresStore) Latest(ctx context.Context, patientID string) (*core.Analysis, error) {
	var payload []byte
	err := p.db.QueryRow(ctx, latestSQL, patientID).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load analysis for %s: %w", patientID, err)
	}
	return decode(payload)
}

func (p *PostgresStore) Delete(ctx context.Context, patientID string) error {
	if _, err := p.db.Exec(ctx, deleteSQL, patientID); err != nil {
		return fmt.Errorf("delete analysis for %s: %w", patientID, err)
	}
	return nil
}
