package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/equipment.report/internal/db"
	"github.com/banshee-data/equipment.report/internal/equipment"
	"github.com/banshee-data/equipment.report/internal/ingest"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `Equipment Name,Type,Flowrate,Pressure,Temperature
Pump-1,Pump,10,5,70
Pump-2,Pump,20,7,72
Valve-1,Valve,5,2,60
`

func setupStore(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.NewDB(filepath.Join(t.TempDir(), "pipeline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

// steppingClock returns strictly increasing timestamps so recency
// ordering is deterministic.
func steppingClock() func() time.Time {
	t := time.Date(2025, time.May, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func quiet(string, ...interface{}) {}

func TestIngest(t *testing.T) {
	store := setupStore(t)
	in := NewIngester(store, Options{Logf: quiet, Now: steppingClock()})
	ctx := context.Background()

	res, err := in.Ingest(ctx, "plant.csv", []byte(sampleCSV))
	require.NoError(t, err)
	require.NoError(t, res.PruneErr)

	ds := res.Dataset
	assert.Equal(t, 3, ds.RecordCount)
	assert.Equal(t, 3, ds.Summary.TotalCount)
	assert.InDelta(t, 11.67, ds.Summary.Flowrate.Avg, 0.005)
	assert.Equal(t, map[string]int{"Pump": 2, "Valve": 1}, ds.Summary.TypeDistribution)

	recs, err := store.Records(ctx, ds.ID)
	require.NoError(t, err)
	assert.Len(t, recs, ds.RecordCount)
}

func TestIngestDropsInvalidRow(t *testing.T) {
	store := setupStore(t)
	in := NewIngester(store, Options{Logf: quiet})

	csv := strings.Replace(sampleCSV, "Pump-2,Pump,20", "Pump-2,Pump,abc", 1)
	res, err := in.Ingest(context.Background(), "plant.csv", []byte(csv))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Dataset.RecordCount)
	assert.Equal(t, 1, res.DroppedInvalid)
	assert.Equal(t, map[string]int{"Pump": 1, "Valve": 1}, res.Dataset.Summary.TypeDistribution)
}

func TestPrepareParsesEveryMeasurement(t *testing.T) {
	// a narrowed required set still validates and parses all three
	// measurements
	in := NewIngester(setupStore(t), Options{
		Columns: ingest.Columns{Required: []string{"Flowrate"}},
		Logf:    quiet,
	})
	csv := "Equipment Name,Type,Flowrate,Pressure,Temperature\nP1,Pump,10,abc,70\nP2,Pump,20,7,72\n"

	cleaned, summary, err := in.Prepare("plant.csv", []byte(csv))
	require.NoError(t, err)
	require.Len(t, cleaned.Records, 1)
	assert.Equal(t, 1, cleaned.DroppedInvalid)
	assert.Equal(t, equipment.Record{Name: "P2", Type: "Pump", Flowrate: 20, Pressure: 7, Temperature: 72}, cleaned.Records[0])
	assert.Equal(t, equipment.MeasurementSummary{Min: 7, Avg: 7, Max: 7}, summary.Pressure)
	assert.Equal(t, equipment.MeasurementSummary{Min: 72, Avg: 72, Max: 72}, summary.Temperature)
}

func TestPrepareRequiresRecordColumns(t *testing.T) {
	tests := []struct {
		name     string
		required []string
		header   string
		row      string
		missing  []string
	}{
		{
			name:     "name left out of required",
			required: []string{"Type", "Flowrate", "Pressure", "Temperature"},
			header:   "Type,Flowrate,Pressure,Temperature",
			row:      "Pump,10,5,70",
			missing:  []string{"Equipment Name"},
		},
		{
			name:     "type left out of required",
			required: []string{"Equipment Name", "Flowrate", "Pressure", "Temperature"},
			header:   "Equipment Name,Flowrate,Pressure,Temperature",
			row:      "P1,10,5,70",
			missing:  []string{"Type"},
		},
		{
			name:     "measurement left out of required",
			required: []string{"Equipment Name", "Type", "Flowrate"},
			header:   "Equipment Name,Type,Flowrate,Temperature",
			row:      "P1,Pump,10,70",
			missing:  []string{"Pressure"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := NewIngester(setupStore(t), Options{Columns: ingest.Columns{Required: tt.required}, Logf: quiet})
			_, _, err := in.Prepare("plant.csv", []byte(tt.header+"\n"+tt.row+"\n"))
			require.Error(t, err)
			assert.Equal(t, equipment.KindMissingColumns, equipment.KindOf(err))
			assert.Equal(t, tt.missing, equipment.MissingOf(err))
		})
	}
}

func TestIngestErrorsWriteNothing(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  string
		want     error
		missing  []string
	}{
		{"extension", "plant.txt", sampleCSV, equipment.ErrUnsupportedFormat, nil},
		{"empty", "plant.csv", "Equipment Name,Type,Flowrate,Pressure,Temperature\n", equipment.ErrEmptyInput, nil},
		{"missing columns", "plant.csv", "Equipment Name,Flowrate,Temperature\nA,1,2\n", equipment.ErrMissingColumns, []string{"Type", "Pressure"}},
		{"no valid data", "plant.csv", "Equipment Name,Type,Flowrate,Pressure,Temperature\nA,,1,2,3\n,B,1,2,3\n", equipment.ErrNoValidData, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := setupStore(t)
			in := NewIngester(store, Options{Logf: quiet})

			_, err := in.Ingest(context.Background(), tt.filename, []byte(tt.content))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "err = %v", err)
			if tt.missing != nil {
				assert.Equal(t, tt.missing, equipment.MissingOf(err))
			}

			n, err := store.CountDatasets(context.Background())
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestIngestRetention(t *testing.T) {
	store := setupStore(t)
	const keep, extra = 5, 3
	in := NewIngester(store, Options{Retention: keep, Logf: quiet, Now: steppingClock()})
	ctx := context.Background()

	var ids []string
	for i := 0; i < keep+extra; i++ {
		res, err := in.Ingest(ctx, fmt.Sprintf("upload-%d.csv", i), []byte(sampleCSV))
		require.NoError(t, err)
		ids = append(ids, res.Dataset.ID)
	}

	remaining, err := store.ListDatasets(ctx, 100)
	require.NoError(t, err)
	require.Len(t, remaining, keep)

	var got []string
	for _, ds := range remaining {
		got = append(got, ds.ID)
	}
	want := ids[extra:]
	if diff := cmp.Diff(want, got, cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
		t.Errorf("retained datasets mismatch (-want +got):\n%s", diff)
	}

	n, err := in.Prune(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

// failingPruneStore wraps a real store but fails retention.
type failingPruneStore struct {
	Store
}

func (failingPruneStore) PruneDatasets(context.Context, int) (int, error) {
	return 0, errors.New("prune exploded")
}

func TestIngestSucceedsWhenRetentionFails(t *testing.T) {
	store := setupStore(t)
	var logged []string
	logf := func(format string, v ...interface{}) {
		logged = append(logged, fmt.Sprintf(format, v...))
	}
	in := NewIngester(failingPruneStore{store}, Options{Logf: logf})

	res, err := in.Ingest(context.Background(), "plant.csv", []byte(sampleCSV))
	require.NoError(t, err, "retention failure must not fail the ingestion")
	require.Error(t, res.PruneErr)
	assert.Zero(t, res.Pruned)

	got, err := store.GetDataset(context.Background(), res.Dataset.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.RecordCount)
	assert.Contains(t, strings.Join(logged, "\n"), "prune exploded")
}

func TestRecomputeIsIdempotent(t *testing.T) {
	store := setupStore(t)
	in := NewIngester(store, Options{Logf: quiet})
	ctx := context.Background()

	res, err := in.Ingest(ctx, "plant.csv", []byte(sampleCSV))
	require.NoError(t, err)

	first, err := in.Recompute(ctx, res.Dataset.ID)
	require.NoError(t, err)
	second, err := in.Recompute(ctx, res.Dataset.ID)
	require.NoError(t, err)

	approx := cmpopts.EquateApprox(0, 1e-9)
	if diff := cmp.Diff(first, second, approx); diff != "" {
		t.Errorf("recompute not idempotent (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(res.Dataset.Summary, first, approx); diff != "" {
		t.Errorf("recomputed summary differs from stored (-stored +recomputed):\n%s", diff)
	}
}

func TestRecomputeUnknownDataset(t *testing.T) {
	in := NewIngester(setupStore(t), Options{Logf: quiet})
	_, err := in.Recompute(context.Background(), "nope")
	assert.True(t, errors.Is(err, equipment.ErrDatasetNotFound))
}

func TestNewIngesterDefaults(t *testing.T) {
	in := NewIngester(setupStore(t), Options{})
	assert.Equal(t, DefaultRetention, in.Retention())
	assert.Equal(t, equipment.RequiredColumns, in.columns.Required)
}
