package excel

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"gradtrends/domain/core"
	"gradtrends/domain/source"
	"gradtrends/domain/tidy"
	"gradtrends/internal/config"
	"gradtrends/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// writeWorkbook lays rows out from A1 on the first sheet.
func writeWorkbook(t *testing.T, path string, rows [][]interface{}) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		row := r
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
}

func TestReadTableSkipsTitleRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "total_applicants.xlsx")
	writeWorkbook(t, path, [][]interface{}{
		{"Applicants, total"},
		{"Washington, 2001-2003"},
		{"Time", "Total applicants School 1 (IPEDS) count", "Total applicants School 2 (IPEDS) count"},
		{2001, 10, 12},
		{2002, nil, 14},
		{nil, nil, nil},
		{2003, 11.5, "n/a"},
	})

	table, err := NewDataReader(path).ReadTable("", 2)
	require.NoError(t, err)

	assert.Equal(t, "Time", table.YearHeader())
	assert.Len(t, table.ValueHeaders(), 2)
	require.Len(t, table.Rows, 3)
	assert.Equal(t, source.RawRow{"2002", "", "14"}, table.Rows[1])
	assert.Equal(t, "11.5", table.Cell(2, 1))
	assert.Equal(t, "n/a", table.Cell(2, 2))
}

func TestReadTableCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grad.csv")
	content := "Graduation rates\n" +
		"Time,Grad rate School 1 total,Grad rate School 2 total\n" +
		"2001,55,60\n" +
		"2002,56\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	table, err := NewDataReader(path).ReadTable("", 1)
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "", table.Cell(1, 2), "short rows are padded")
}

func TestReadTableErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := NewDataReader(filepath.Join(dir, "missing.xlsx")).ReadTable("", 0)
	assert.Error(t, err)

	path := filepath.Join(dir, "short.xlsx")
	writeWorkbook(t, path, [][]interface{}{{"Time", "School 1"}})
	_, err = NewDataReader(path).ReadTable("", 0)
	assert.Error(t, err, "header only")

	_, err = NewDataReader(path).ReadTable("NoSuchSheet", 0)
	assert.Error(t, err)

	_, err = NewDataReader(path).ReadTable("", -1)
	assert.Error(t, err)
}

func TestWriteTableRoundTrip(t *testing.T) {
	b := tidy.NewBuilder()
	require.NoError(t, b.AddColumn("applicants", ""))
	require.NoError(t, b.AddColumn("grad_rate", ""))
	row, _ := b.EnsureKey(tidy.Key{Institution: "Gonzaga University", Year: 2001})
	require.NoError(t, b.Set(row, "applicants", tidy.Of(1200)))
	row, _ = b.EnsureKey(tidy.Key{Institution: "Gonzaga University", Year: 2002})
	require.NoError(t, b.Set(row, "grad_rate", tidy.Of(0)))
	table := b.Table()

	dir := t.TempDir()
	xlsx := filepath.Join(dir, "tidy.xlsx")
	require.NoError(t, WriteTable(table, xlsx))

	f, err := excelize.OpenFile(xlsx)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(TidySheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"institution", "year", "applicants", "grad_rate"}, rows[0])
	assert.Equal(t, []string{"Gonzaga University", "2001", "1200"}, rows[1])
	assert.Equal(t, []string{"Gonzaga University", "2002", "", "0"}, rows[2])

	csvPath := filepath.Join(dir, "tidy.csv")
	require.NoError(t, WriteTable(table, csvPath))
	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, "institution,year,applicants,grad_rate\n"+
		"Gonzaga University,2001,1200,\n"+
		"Gonzaga University,2002,,0\n", string(data))
}

func TestSourceLoaderRoundTrip(t *testing.T) {
	cat := config.DefaultSources()
	gen := testkit.NewCampusDataGenerator(testkit.DefaultCampusConfig())
	tables, err := gen.Generate(cat.Sources)
	require.NoError(t, err)

	loader := NewSourceLoader(ExcelConfig{DataDir: t.TempDir()})
	require.NoError(t, loader.WriteSources(cat.Sources, tables))

	inputs, err := loader.LoadAll(context.Background(), cat.Sources)
	require.NoError(t, err)
	require.Len(t, inputs, len(cat.Sources))

	for _, in := range inputs {
		want := tables[in.Spec.ID]
		assert.Equal(t, want.Headers, in.Table.Headers, in.Spec.ID)
		assert.Equal(t, len(want.Rows), len(in.Table.Rows), in.Spec.ID)
	}
}

func TestSourceLoaderErrors(t *testing.T) {
	loader := NewSourceLoader(ExcelConfig{DataDir: t.TempDir()})

	_, err := loader.Load(source.Spec{ID: "x", Statistic: "x"})
	assert.Error(t, err)

	_, err = loader.Load(source.Spec{ID: "applicants", Statistic: "applicants", File: "nope.xlsx"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "applicants")

	err = loader.WriteSources([]source.Spec{{ID: "applicants", File: "a.xlsx"}}, map[core.SourceID]*source.RawTable{})
	assert.Error(t, err)

	assert.Equal(t, "/abs/a.xlsx", loader.Path(source.Spec{File: "/abs/a.xlsx"}))
}
