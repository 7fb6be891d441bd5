package ingest

import (
	"errors"
	"testing"

	"github.com/banshee-data/equipment.report/internal/equipment"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `Equipment Name,Type,Flowrate,Pressure,Temperature
Pump-1,Pump,10,5,70
Pump-2,Pump,20,7,72
Valve-1,Valve,5,2,60
`

func TestParse(t *testing.T) {
	tbl, err := Parse("plant.csv", []byte(sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, equipment.RequiredColumns, tbl.Columns)
	assert.Equal(t, 3, tbl.Len())
	v, ok := tbl.Cell(1, "Flowrate")
	assert.True(t, ok)
	assert.Equal(t, "20", v)
}

func TestParseStripsBOM(t *testing.T) {
	content := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Equipment Name,Type,Flowrate,Pressure,Temperature\nA,B,1,2,3\n")...)
	tbl, err := Parse("x.CSV", content)
	require.NoError(t, err)
	assert.True(t, tbl.HasColumn("Equipment Name"))
	assert.True(t, tbl.HasColumn("Type"))
}

func TestHeaderNamesAreExact(t *testing.T) {
	tbl, err := Parse("plant.csv", []byte(" Equipment Name ,Type,Flowrate,Pressure,temperature\nA,B,1,2,3\n"))
	require.NoError(t, err)
	assert.True(t, tbl.HasColumn(" Equipment Name "))

	err = ValidateColumns(tbl, equipment.RequiredColumns)
	require.Error(t, err)
	assert.Equal(t, []string{"Equipment Name", "Temperature"}, equipment.MissingOf(err))
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  string
		kind     equipment.ErrorKind
	}{
		{"wrong extension", "plant.xlsx", sampleCSV, equipment.KindUnsupportedFormat},
		{"no extension", "plant", sampleCSV, equipment.KindUnsupportedFormat},
		{"ragged rows", "plant.csv", "a,b,c\n1,2\n", equipment.KindUnsupportedFormat},
		{"bad quoting", "plant.csv", "a,b\n\"1,2\n", equipment.KindUnsupportedFormat},
		{"duplicate header", "plant.csv", "a,b,a\n1,2,3\n", equipment.KindUnsupportedFormat},
		{"invalid utf8", "plant.csv", "a,b\n\xff\xfe,1\n", equipment.KindUnsupportedFormat},
		{"no content", "plant.csv", "", equipment.KindUnsupportedFormat},
		{"header only", "plant.csv", "Equipment Name,Type,Flowrate,Pressure,Temperature\n", equipment.KindEmptyInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.filename, []byte(tt.content))
			require.Error(t, err)
			assert.Equal(t, tt.kind, equipment.KindOf(err), "err = %v", err)
		})
	}
}

func TestParserCustomExtensions(t *testing.T) {
	p := Parser{Extensions: []string{".txt"}}
	_, err := p.Parse("plant.txt", []byte(sampleCSV))
	assert.NoError(t, err)
	_, err = p.Parse("plant.csv", []byte(sampleCSV))
	assert.True(t, errors.Is(err, equipment.ErrUnsupportedFormat))
}

func TestValidateColumns(t *testing.T) {
	tbl := NewTable([]string{"Equipment Name", "Flowrate", "Extra"}, [][]string{{"a", "1", "x"}})

	err := ValidateColumns(tbl, equipment.RequiredColumns)
	require.Error(t, err)
	assert.True(t, errors.Is(err, equipment.ErrMissingColumns))
	assert.Equal(t, []string{"Type", "Pressure", "Temperature"}, equipment.MissingOf(err))
}

func TestValidateColumnsCaseSensitive(t *testing.T) {
	tbl := NewTable([]string{"equipment name", "Type", "Flowrate", "Pressure", "Temperature"}, nil)
	err := ValidateColumns(tbl, equipment.RequiredColumns)
	assert.Equal(t, []string{"Equipment Name"}, equipment.MissingOf(err))
}

func TestValidateColumnsOrderIndependent(t *testing.T) {
	tbl := NewTable([]string{"Temperature", "Pressure", "Flowrate", "Type", "Equipment Name"}, nil)
	assert.NoError(t, ValidateColumns(tbl, equipment.RequiredColumns))
}

func TestClean(t *testing.T) {
	tbl, err := Parse("plant.csv", []byte(sampleCSV))
	require.NoError(t, err)

	out, err := Clean(tbl, DefaultColumns())
	require.NoError(t, err)

	want := []equipment.Record{
		{Position: 0, Name: "Pump-1", Type: "Pump", Flowrate: 10, Pressure: 5, Temperature: 70},
		{Position: 1, Name: "Pump-2", Type: "Pump", Flowrate: 20, Pressure: 7, Temperature: 72},
		{Position: 2, Name: "Valve-1", Type: "Valve", Flowrate: 5, Pressure: 2, Temperature: 60},
	}
	if diff := cmp.Diff(want, out.Records); diff != "" {
		t.Errorf("Clean records mismatch (-want +got):\n%s", diff)
	}
	assert.Zero(t, out.DroppedIncomplete)
	assert.Zero(t, out.DroppedInvalid)
}

func TestCleanDropsUnparseableRowOnly(t *testing.T) {
	csv := `Equipment Name,Type,Flowrate,Pressure,Temperature
Pump-1,Pump,10,5,70
Pump-2,Pump,abc,7,72
Valve-1,Valve,5,2,60
`
	tbl, err := Parse("plant.csv", []byte(csv))
	require.NoError(t, err)

	out, err := Clean(tbl, Columns{})
	require.NoError(t, err)
	require.Len(t, out.Records, 2)
	assert.Equal(t, "Pump-1", out.Records[0].Name)
	assert.Equal(t, "Valve-1", out.Records[1].Name)
	assert.Equal(t, 1, out.Records[1].Position)
	assert.Equal(t, 1, out.DroppedInvalid)
}

func TestCleanNarrowedRequiredStillParsesMeasurements(t *testing.T) {
	csv := `Equipment Name,Type,Flowrate,Pressure,Temperature
P1,Pump,10,abc,70
P2,Pump,20,7,
P3,Pump,30,8,74
`
	tbl, err := Parse("plant.csv", []byte(csv))
	require.NoError(t, err)

	out, err := Clean(tbl, Columns{Required: []string{"Flowrate"}})
	require.NoError(t, err)
	want := []equipment.Record{{Name: "P3", Type: "Pump", Flowrate: 30, Pressure: 8, Temperature: 74}}
	if diff := cmp.Diff(want, out.Records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, out.DroppedIncomplete)
	assert.Equal(t, 1, out.DroppedInvalid)
}

func TestColumnsNormalize(t *testing.T) {
	got := Columns{Required: []string{"Site", "Flowrate"}}.Normalize()
	assert.Equal(t, []string{"Site", "Flowrate", "Equipment Name", "Type", "Pressure", "Temperature"}, got.Required)
	assert.Equal(t, equipment.ColumnName, got.Name)
	assert.Equal(t, equipment.ColumnType, got.Type)

	assert.Equal(t, equipment.RequiredColumns, Columns{}.Normalize().Required)
}

func TestCleanDropsIncompleteAndPreservesOrder(t *testing.T) {
	csv := `Equipment Name,Type,Flowrate,Pressure,Temperature
C,Pump,1,1,1
,Pump,2,2,2
B,  ,3,3,3
A,Valve,4,4,4
`
	tbl, err := Parse("plant.csv", []byte(csv))
	require.NoError(t, err)

	out, err := Clean(tbl, Columns{})
	require.NoError(t, err)
	names := []string{}
	for _, r := range out.Records {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"C", "A"}, names)
	assert.Equal(t, 2, out.DroppedIncomplete)
}

func TestCleanRejectsNonFiniteAndNegative(t *testing.T) {
	csv := `Equipment Name,Type,Flowrate,Pressure,Temperature
A,Pump,NaN,1,1
B,Pump,1,Inf,1
C,Pump,-1,1,1
D,Pump,1,-0.5,1
E,Pump,1,1,-40
`
	tbl, err := Parse("plant.csv", []byte(csv))
	require.NoError(t, err)

	out, err := Clean(tbl, Columns{})
	require.NoError(t, err)
	require.Len(t, out.Records, 1)
	assert.Equal(t, "E", out.Records[0].Name)
	assert.Equal(t, -40.0, out.Records[0].Temperature)
	assert.Equal(t, 4, out.DroppedInvalid)
}

func TestCleanNoValidData(t *testing.T) {
	t.Run("all incomplete", func(t *testing.T) {
		tbl := NewTable(equipment.RequiredColumns, [][]string{
			{"A", "", "1", "1", "1"},
			{"", "Pump", "1", "1", "1"},
			{"B", "Pump", "1", "", "1"},
		})
		_, err := Clean(tbl, Columns{})
		assert.True(t, errors.Is(err, equipment.ErrNoValidData), "err = %v", err)
	})

	t.Run("all non numeric", func(t *testing.T) {
		tbl := NewTable(equipment.RequiredColumns, [][]string{
			{"A", "Pump", "x", "1", "1"},
			{"B", "Pump", "1", "y", "1"},
		})
		_, err := Clean(tbl, Columns{})
		assert.True(t, errors.Is(err, equipment.ErrNoValidData), "err = %v", err)
	})
}

func TestParseMeasurement(t *testing.T) {
	v, err := ParseMeasurement(" 12.5 ")
	require.NoError(t, err)
	assert.Equal(t, 12.5, v)

	for _, bad := range []string{"", "abc", "NaN", "+Inf", "-inf", "1e400"} {
		_, err := ParseMeasurement(bad)
		assert.Error(t, err, bad)
	}
}
