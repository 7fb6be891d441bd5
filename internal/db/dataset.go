package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/banshee-data/equipment.report/internal/equipment"
	"github.com/google/uuid"
)

// CreateDataset writes ds and all of its records in one transaction.
// Either every record and the dataset row are committed, or nothing is.
// Empty ID and zero CreatedAt are filled in; RecordCount is set to
// len(records).
func (db *DB) CreateDataset(ctx context.Context, ds *equipment.Dataset, records []equipment.Record) error {
	if ds.ID == "" {
		ds.ID = uuid.New().String()
	}
	if ds.CreatedAt.IsZero() {
		ds.CreatedAt = time.Now().UTC()
	}
	ds.RecordCount = len(records)

	summary, err := json.Marshal(ds.Summary)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}

	return retryOnBusy(func() error {
		return db.createDatasetTx(ctx, ds, string(summary), records)
	})
}

func (db *DB) createDatasetTx(ctx context.Context, ds *equipment.Dataset, summary string, records []equipment.Record) error {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			// ErrTxDone means transaction was already committed/rolled back
			log.Printf("warning: failed to rollback transaction: %v", err)
		}
	}()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO datasets (dataset_id, filename, created_at, record_count, summary_json)
		VALUES (?, ?, ?, ?, ?)`,
		ds.ID, ds.Filename, ds.CreatedAt.UnixNano(), ds.RecordCount, summary,
	); err != nil {
		return fmt.Errorf("failed to insert dataset: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO equipment_records (
			dataset_id, position, equipment_name, equipment_type,
			flowrate, pressure, temperature
		) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare record insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err := stmt.ExecContext(ctx,
			ds.ID, i, r.Name, r.Type, r.Flowrate, r.Pressure, r.Temperature,
		); err != nil {
			return fmt.Errorf("failed to insert record %d (%s): %w", i, r.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit dataset: %w", err)
	}
	return nil
}

const datasetColumns = `dataset_id, filename, created_at, record_count, summary_json`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDataset(row rowScanner) (*equipment.Dataset, error) {
	var (
		ds        equipment.Dataset
		createdAt int64
		summary   string
	)
	if err := row.Scan(&ds.ID, &ds.Filename, &createdAt, &ds.RecordCount, &summary); err != nil {
		return nil, err
	}
	ds.CreatedAt = time.Unix(0, createdAt).UTC()
	ds.Summary = equipment.DecodeSummary(summary)
	return &ds, nil
}

// GetDataset returns a dataset by ID, or a dataset-not-found error.
func (db *DB) GetDataset(ctx context.Context, id string) (*equipment.Dataset, error) {
	row := db.QueryRowContext(ctx, `SELECT `+datasetColumns+` FROM datasets WHERE dataset_id = ?`, id)
	ds, err := scanDataset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, equipment.DatasetNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}
	return ds, nil
}

// ListDatasets returns up to limit datasets, most recent first.
func (db *DB) ListDatasets(ctx context.Context, limit int) ([]equipment.Dataset, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+datasetColumns+`
		FROM datasets
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query datasets: %w", err)
	}
	defer rows.Close()

	var out []equipment.Dataset
	for rows.Next() {
		ds, err := scanDataset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
		out = append(out, *ds)
	}
	return out, rows.Err()
}

// CountDatasets returns the number of stored datasets.
func (db *DB) CountDatasets(ctx context.Context) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM datasets`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count datasets: %w", err)
	}
	return n, nil
}

// DeleteDataset removes a dataset and, by cascade, its records.
func (db *DB) DeleteDataset(ctx context.Context, id string) error {
	return retryOnBusy(func() error {
		result, err := db.ExecContext(ctx, `DELETE FROM datasets WHERE dataset_id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete dataset: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return equipment.DatasetNotFound(id)
		}
		return nil
	})
}

// Records returns the records of a dataset in stored order. A dataset
// with no records, or an unknown ID, yields an empty slice.
func (db *DB) Records(ctx context.Context, datasetID string) ([]equipment.Record, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT position, equipment_name, equipment_type, flowrate, pressure, temperature
		FROM equipment_records
		WHERE dataset_id = ?
		ORDER BY position ASC`, datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var out []equipment.Record
	for rows.Next() {
		var r equipment.Record
		if err := rows.Scan(&r.Position, &r.Name, &r.Type, &r.Flowrate, &r.Pressure, &r.Temperature); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PruneDatasets keeps the keep most recently created datasets and
// deletes the rest, cascading to their records. It returns how many
// datasets were deleted.
func (db *DB) PruneDatasets(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		return 0, fmt.Errorf("retention count must be non-negative, got %d", keep)
	}

	var deleted int64
	err := retryOnBusy(func() error {
		result, err := db.ExecContext(ctx, `
			DELETE FROM datasets
			WHERE dataset_id NOT IN (
				SELECT dataset_id FROM datasets
				ORDER BY created_at DESC, rowid DESC
				LIMIT ?
			)`, keep)
		if err != nil {
			return fmt.Errorf("failed to prune datasets: %w", err)
		}
		deleted, err = result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		return nil
	})
	return int(deleted), err
}
