// Package pipeline wires parsing, validation, cleaning, statistics and
// storage into a single ingestion call, followed by best-effort
// retention.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/banshee-data/equipment.report/internal/equipment"
	"github.com/banshee-data/equipment.report/internal/ingest"
	"github.com/banshee-data/equipment.report/internal/monitoring"
	"github.com/banshee-data/equipment.report/internal/stats"
)

// Store is the persistence boundary the pipeline needs.
type Store interface {
	CreateDataset(ctx context.Context, ds *equipment.Dataset, records []equipment.Record) error
	GetDataset(ctx context.Context, id string) (*equipment.Dataset, error)
	ListDatasets(ctx context.Context, limit int) ([]equipment.Dataset, error)
	DeleteDataset(ctx context.Context, id string) error
	Records(ctx context.Context, datasetID string) ([]equipment.Record, error)
	PruneDatasets(ctx context.Context, keep int) (int, error)
}

// DefaultRetention is how many datasets are kept when no count is configured.
const DefaultRetention = 5

// Options configures an Ingester. Zero values fall back to the standard
// equipment header, ".csv" uploads and DefaultRetention.
type Options struct {
	Columns    ingest.Columns
	Extensions []string
	Retention  int
	Logf       func(format string, v ...interface{})
	Now        func() time.Time
}

// Ingester runs the ingestion pipeline against a Store.
type Ingester struct {
	store     Store
	parser    ingest.Parser
	columns   ingest.Columns
	retention int
	logf      func(format string, v ...interface{})
	now       func() time.Time
}

// NewIngester returns an Ingester writing to store.
func NewIngester(store Store, opts Options) *Ingester {
	in := &Ingester{
		store:     store,
		parser:    ingest.Parser{Extensions: opts.Extensions},
		columns:   opts.Columns.Normalize(),
		retention: opts.Retention,
		logf:      opts.Logf,
		now:       opts.Now,
	}
	if in.retention <= 0 {
		in.retention = DefaultRetention
	}
	if in.logf == nil {
		in.logf = monitoring.Logf
	}
	if in.now == nil {
		in.now = func() time.Time { return time.Now().UTC() }
	}
	return in
}

// Retention returns the number of datasets the ingester keeps.
func (in *Ingester) Retention() int { return in.retention }

// Result reports the independent outcomes of one ingestion.
type Result struct {
	Dataset           *equipment.Dataset
	DroppedIncomplete int
	DroppedInvalid    int

	// Pruned is the number of old datasets removed after the create.
	Pruned int
	// PruneErr is set when retention failed. The ingestion itself still
	// succeeded.
	PruneErr error
}

// Prepare runs the pure stages (parse, validate, clean, summarise)
// without touching the store.
func (in *Ingester) Prepare(filename string, content []byte) (*ingest.Cleaned, equipment.Summary, error) {
	tbl, err := in.parser.Parse(filename, content)
	if err != nil {
		return nil, equipment.Summary{}, err
	}
	if err := ingest.ValidateColumns(tbl, in.columns.Required); err != nil {
		return nil, equipment.Summary{}, err
	}
	cleaned, err := ingest.Clean(tbl, in.columns)
	if err != nil {
		return nil, equipment.Summary{}, err
	}
	summary, err := stats.Compute(cleaned.Records)
	if err != nil {
		return nil, equipment.Summary{}, err
	}
	return cleaned, summary, nil
}

// Ingest turns an uploaded file into a stored dataset. Input errors are
// returned as *equipment.Error values and nothing is written. After a
// successful create the retention policy runs; its failure is logged and
// reported in Result.PruneErr, never returned.
func (in *Ingester) Ingest(ctx context.Context, filename string, content []byte) (*Result, error) {
	start := time.Now()
	cleaned, summary, err := in.Prepare(filename, content)
	if err != nil {
		monitoring.IngestFailures.WithLabelValues(equipment.KindOf(err).String()).Inc()
		return nil, err
	}

	ds := &equipment.Dataset{
		Filename:  filename,
		CreatedAt: in.now(),
		Summary:   summary,
	}
	if err := in.store.CreateDataset(ctx, ds, cleaned.Records); err != nil {
		monitoring.IngestFailures.WithLabelValues("store").Inc()
		return nil, fmt.Errorf("failed to store dataset %q: %w", filename, err)
	}

	res := &Result{
		Dataset:           ds,
		DroppedIncomplete: cleaned.DroppedIncomplete,
		DroppedInvalid:    cleaned.DroppedInvalid,
	}
	monitoring.IngestedRecords.Add(float64(ds.RecordCount))
	monitoring.IngestDuration.Observe(time.Since(start).Seconds())
	in.logf("ingested %s as dataset %s: %d records (%d incomplete, %d invalid rows dropped)",
		filename, ds.ID, ds.RecordCount, cleaned.DroppedIncomplete, cleaned.DroppedInvalid)

	res.Pruned, res.PruneErr = in.Prune(ctx)
	return res, nil
}

// Prune applies the retention policy. Errors are logged and returned.
func (in *Ingester) Prune(ctx context.Context) (int, error) {
	n, err := in.store.PruneDatasets(ctx, in.retention)
	if err != nil {
		monitoring.PruneFailures.Inc()
		in.logf("non-critical cleanup error: %v", err)
		return 0, err
	}
	if n > 0 {
		monitoring.PrunedDatasets.Add(float64(n))
		in.logf("retention removed %d dataset(s), keeping %d", n, in.retention)
	}
	return n, nil
}

// Recompute derives a fresh summary from the stored records of a dataset.
func (in *Ingester) Recompute(ctx context.Context, id string) (equipment.Summary, error) {
	if _, err := in.store.GetDataset(ctx, id); err != nil {
		return equipment.Summary{}, err
	}
	recs, err := in.store.Records(ctx, id)
	if err != nil {
		return equipment.Summary{}, err
	}
	return stats.Compute(recs)
}
