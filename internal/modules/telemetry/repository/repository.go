package repository

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"tc-cloud-server/internal/modules/telemetry/types"
)

//go:embed sql/insert-record.sql
var insertRecordSQL string

//go:embed sql/list-records.sql
var listRecordsSQL string

// insertedAtLayout matches sqlite's datetime('now') text format.
const insertedAtLayout = "2006-01-02 15:04:05"

// TelemetryRepository is the append-only store for canonical records.
type TelemetryRepository interface {
	// Insert persists rec, assigns the next id and stamps inserted_at.
	// The stored record is returned.
	Insert(rec types.Record) (types.Record, error)
	// List returns all records, most recently inserted first.
	List() ([]types.Record, error)
}

type repositoryImpl struct {
	db  *sql.DB
	now func() time.Time
}

func NewRepository(db *sql.DB) TelemetryRepository {
	return &repositoryImpl{db: db, now: time.Now}
}

func (r *repositoryImpl) Insert(rec types.Record) (types.Record, error) {
	rec.InsertedAt = r.now().UTC().Format(insertedAtLayout)

	res, err := r.db.Exec(insertRecordSQL,
		rec.DeviceID, rec.Longitude, rec.Latitude, rec.Battery, rec.Date, rec.Time, rec.InsertedAt)
	if err != nil {
		return types.Record{}, fmt.Errorf("insert telemetry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return types.Record{}, fmt.Errorf("insert telemetry id: %w", err)
	}
	rec.ID = id
	return rec, nil
}

func (r *repositoryImpl) List() ([]types.Record, error) {
	rows, err := r.db.Query(listRecordsSQL)
	if err != nil {
		return nil, fmt.Errorf("list telemetry: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close telemetry rows", "error", err)
		}
	}()

	var out []types.Record
	for rows.Next() {
		var rec types.Record
		if err := rows.Scan(&rec.ID, &rec.DeviceID, &rec.Longitude, &rec.Latitude,
			&rec.Battery, &rec.Date, &rec.Time, &rec.InsertedAt); err != nil {
			return nil, fmt.Errorf("scan telemetry: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list telemetry: %w", err)
	}
	return out, nil
}
