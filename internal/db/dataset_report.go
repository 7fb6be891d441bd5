package db

import (
	"context"
	"fmt"
	"time"
)

// DatasetReport records one report generated for a dataset. Only the
// metadata is kept; the document itself is streamed to the caller.
type DatasetReport struct {
	ID         int       `json:"id"`
	DatasetID  string    `json:"dataset_id"`
	Format     string    `json:"format"`      // pdf or xlsx
	SizeBytes  int       `json:"size_bytes"`  // size of the rendered document
	DurationMs float64   `json:"duration_ms"` // time spent composing and rendering
	Charts     bool      `json:"charts"`      // false when the chart set was omitted
	CreatedAt  time.Time `json:"created_at"`
}

// CreateDatasetReport inserts a report log entry and sets its ID.
func (db *DB) CreateDatasetReport(ctx context.Context, report *DatasetReport) error {
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}

	var id int64
	err := retryOnBusy(func() error {
		result, err := db.ExecContext(ctx, `
			INSERT INTO dataset_reports (dataset_id, format, size_bytes, duration_ms, charts, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			report.DatasetID, report.Format, report.SizeBytes, report.DurationMs,
			report.Charts, report.CreatedAt.UnixNano(),
		)
		if err != nil {
			return fmt.Errorf("failed to create dataset report: %w", err)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert ID: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	report.ID = int(id)
	return nil
}

// GetRecentReportsForDataset retrieves the most recent reports for a dataset.
func (db *DB) GetRecentReportsForDataset(ctx context.Context, datasetID string, limit int) ([]DatasetReport, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT report_id, dataset_id, format, size_bytes, duration_ms, charts, created_at
		FROM dataset_reports
		WHERE dataset_id = ?
		ORDER BY created_at DESC, report_id DESC
		LIMIT ?`, datasetID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query dataset reports: %w", err)
	}
	defer rows.Close()

	var reports []DatasetReport
	for rows.Next() {
		var (
			r         DatasetReport
			createdAt int64
		)
		if err := rows.Scan(&r.ID, &r.DatasetID, &r.Format, &r.SizeBytes, &r.DurationMs, &r.Charts, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan dataset report: %w", err)
		}
		r.CreatedAt = time.Unix(0, createdAt).UTC()
		reports = append(reports, r)
	}
	return reports, rows.Err()
}
