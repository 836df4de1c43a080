package dataset

import (
	"errors"
	"testing"

	"gradtrends/domain/core"
	"gradtrends/domain/tidy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(institution string, year int, v float64) tidy.Record {
	return tidy.Record{Institution: institution, Year: year, Value: tidy.Of(v)}
}

func TestMerge_OuterJoinFillsSentinel(t *testing.T) {
	applicants := NewRecordSet("applicants", "applicants", "", []tidy.Record{
		rec("School A", 1, 100),
		rec("School B", 1, 200),
	})
	grad := NewRecordSet("grad_rate", "grad_rate", "", []tidy.Record{
		rec("School B", 1, 60),
		rec("School C", 1, 70),
	})

	table, err := NewTableMerger(nil).Merge([]RecordSet{applicants, grad})
	require.NoError(t, err)

	assert.Equal(t, []string{"applicants", "grad_rate"}, table.Columns())
	assert.Equal(t, []tidy.Key{
		{Institution: "School A", Year: 1},
		{Institution: "School B", Year: 1},
		{Institution: "School C", Year: 1},
	}, table.Keys())

	v, ok := table.Lookup(tidy.Key{Institution: "School A", Year: 1}, "grad_rate")
	assert.True(t, ok, "School A must not be dropped")
	assert.True(t, v.IsMissing())

	v, _ = table.Lookup(tidy.Key{Institution: "School C", Year: 1}, "applicants")
	assert.True(t, v.IsMissing())

	v, _ = table.Lookup(tidy.Key{Institution: "School B", Year: 1}, "grad_rate")
	assert.Equal(t, tidy.Of(60), v)
}

func TestMerge_KeySetIsSupersetOfInputs(t *testing.T) {
	sets := []RecordSet{
		NewRecordSet("a", "applicants", "", []tidy.Record{rec("A", 1, 1), rec("A", 2, 1), rec("B", 1, 1)}),
		NewRecordSet("g", "grad_rate", "", []tidy.Record{rec("C", 3, 1)}),
		NewRecordSet("p", "population", "", []tidy.Record{rec("B", 2, 1), rec("A", 1, 9)}),
	}

	table, err := NewTableMerger(nil).Merge(sets)
	require.NoError(t, err)

	for _, set := range sets {
		for _, r := range set.Records {
			_, ok := table.RowOf(r.Key())
			assert.Truef(t, ok, "key %+v lost", r.Key())
		}
	}
	assert.Equal(t, 5, table.Len())
}

func TestMerge_CollisionSuffixesOnlyCollidingPair(t *testing.T) {
	sets := []RecordSet{
		NewRecordSet("applicants", "applicants", "", []tidy.Record{rec("A", 1, 10)}),
		NewRecordSet("private_fin", "fin_aid", "private", []tidy.Record{rec("Gonzaga", 1, 500)}),
		NewRecordSet("public_fin", "fin_aid", "public", []tidy.Record{rec("A", 1, 300)}),
	}

	result, err := NewTableMerger(nil).MergeWithStats(sets)
	require.NoError(t, err)
	table := result.Table

	assert.Equal(t, []string{"applicants", "fin_aid_private", "fin_aid_public"}, table.Columns())
	assert.Equal(t, "private", table.Role("fin_aid_private"))
	assert.Equal(t, map[string]string{"fin_aid": "fin_aid_private"}, result.Steps[2].Renamed)
	assert.Nil(t, result.Steps[1].Renamed)

	v, _ := table.Lookup(tidy.Key{Institution: "Gonzaga", Year: 1}, "fin_aid_private")
	assert.Equal(t, tidy.Of(500), v)
	v, _ = table.Lookup(tidy.Key{Institution: "A", Year: 1}, "fin_aid_public")
	assert.Equal(t, tidy.Of(300), v)
}

func TestMerge_CollisionWithoutRolesFails(t *testing.T) {
	tests := []struct {
		name        string
		first, next string
	}{
		{"no roles", "", ""},
		{"one role", "private", ""},
		{"same role", "public", "public"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sets := []RecordSet{
				NewRecordSet("x", "fin_aid", tt.first, []tidy.Record{rec("A", 1, 1)}),
				NewRecordSet("y", "fin_aid", tt.next, []tidy.Record{rec("A", 1, 2)}),
			}
			_, err := NewTableMerger(nil).Merge(sets)
			assert.True(t, errors.Is(err, core.ErrColumnCollision), "got %v", err)
		})
	}
}

func TestMerge_SuffixedNameAlreadyTaken(t *testing.T) {
	sets := []RecordSet{
		NewRecordSet("x", "fin_aid_public", "", []tidy.Record{rec("A", 1, 1)}),
		NewRecordSet("y", "fin_aid", "private", []tidy.Record{rec("A", 1, 2)}),
		NewRecordSet("z", "fin_aid", "public", []tidy.Record{rec("A", 1, 3)}),
	}
	_, err := NewTableMerger(nil).Merge(sets)
	assert.True(t, errors.Is(err, core.ErrColumnCollision))
}

func TestMerge_DuplicateKeyFails(t *testing.T) {
	sets := []RecordSet{
		NewRecordSet("applicants", "applicants", "", []tidy.Record{rec("A", 1, 10), rec("A", 1, 11)}),
	}
	_, err := NewTableMerger(nil).Merge(sets)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrDuplicateKey))
	assert.Contains(t, err.Error(), "applicants")
}

func TestMerge_EmptyInput(t *testing.T) {
	_, err := NewTableMerger(nil).Merge(nil)
	assert.Error(t, err)
}

func TestMerge_ThirdSetReusingSplitName(t *testing.T) {
	base := []RecordSet{
		NewRecordSet("private_fin", "fin_aid", "private", []tidy.Record{rec("A", 1, 500)}),
		NewRecordSet("public_fin", "fin_aid", "public", []tidy.Record{rec("A", 1, 300)}),
	}

	tests := []struct {
		name    string
		role    string
		wantErr bool
		wantCol string
	}{
		{"no role", "", true, ""},
		{"role already used", "public", true, ""},
		{"new role", "tribal", false, "fin_aid_tribal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sets := append(append([]RecordSet{}, base...),
				NewRecordSet("third_fin", "fin_aid", tt.role, []tidy.Record{rec("A", 1, 100)}))

			result, err := NewTableMerger(nil).MergeWithStats(sets)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, core.ErrColumnCollision), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []string{"fin_aid_private", "fin_aid_public", tt.wantCol}, result.Table.Columns())
			assert.Equal(t, tt.wantCol, result.Steps[2].Column)
			assert.Nil(t, result.Steps[2].Renamed)
			assert.False(t, result.Table.HasColumn("fin_aid"))
		})
	}
}

func TestMerge_EmptyRecordSetStillAddsColumn(t *testing.T) {
	table, err := NewTableMerger(nil).Merge([]RecordSet{
		NewRecordSet("a", "applicants", "", []tidy.Record{rec("A", 1, 10)}),
		NewRecordSet("g", "grad_rate", "", nil),
	})
	require.NoError(t, err)
	assert.True(t, table.HasColumn("grad_rate"))
	assert.True(t, table.Value(0, "grad_rate").IsMissing())
}

func TestMerge_ProgressAndDeterminism(t *testing.T) {
	var messages []string
	config := DefaultMergeConfig()
	config.ProgressCallback = func(_ float64, message string) {
		messages = append(messages, message)
	}

	sets := []RecordSet{
		NewRecordSet("a", "applicants", "", []tidy.Record{rec("B", 2, 1), rec("A", 1, 2)}),
		NewRecordSet("g", "grad_rate", "", []tidy.Record{rec("C", 1, 3)}),
	}
	first, err := NewTableMerger(config).Merge(sets)
	require.NoError(t, err)
	second, err := NewTableMerger(nil).Merge(sets)
	require.NoError(t, err)

	assert.Equal(t, first.Fingerprint(), second.Fingerprint())
	assert.Len(t, messages, 3)
}
