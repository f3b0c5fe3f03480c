package dataprocessing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/almartin82/vtschooldata/internal/errors"
	"github.com/almartin82/vtschooldata/internal/shared/testutil"
	"github.com/almartin82/vtschooldata/pkg/contracts/domain"
)

func passTable(rows ...[]string) *domain.RawTable {
	return domain.NewRawTable([]string{"DATA_COLLECTION", "SU_ID", "SCHOOL_ID", "TOTAL"}, rows)
}

func TestReconcile_SampleExport(t *testing.T) {
	out, err := Reconcile(testutil.SampleVEDTable(), 2024)
	require.NoError(t, err)

	require.Equal(t, 4, out.Len())
	collection := out.ColumnIndex("DATA_COLLECTION")
	year := out.ColumnIndex("SCHOOL_YEAR")
	for i := 0; i < out.Len(); i++ {
		assert.Contains(t, out.Cell(i, collection), "DC#06")
		assert.Equal(t, "2023-24", out.Cell(i, year))
	}
}

func TestReconcile_YearFilter(t *testing.T) {
	out, err := Reconcile(testutil.SampleVEDTable(), 2023)
	require.NoError(t, err)
	require.Equal(t, 1, out.Len())
	assert.Equal(t, "450", out.Cell(0, out.ColumnIndex("TOTAL")))
}

func TestReconcile_CollectionPass(t *testing.T) {
	tests := []struct {
		name       string
		table      *domain.RawTable
		wantTotals []string
	}{
		{
			name: "october census preferred over year end",
			table: passTable(
				[]string{"DC#04 Year End", "SU1", "S1", "99"},
				[]string{"DC#06 Oct 1", "SU1", "S1", "100"},
				[]string{"DC#04 Year End", "SU1", "S2", "50"},
			),
			wantTotals: []string{"100"},
		},
		{
			name: "year end used when census is missing",
			table: passTable(
				[]string{"DC#05", "SU1", "S1", "7"},
				[]string{"DC #04", "SU1", "S1", "99"},
				[]string{"dc#04", "SU1", "S2", "50"},
			),
			wantTotals: []string{"99", "50"},
		},
		{
			name: "untagged rows pass through",
			table: passTable(
				[]string{"Fall", "SU1", "S1", "1"},
				[]string{"Spring", "SU1", "S2", "2"},
			),
			wantTotals: []string{"1", "2"},
		},
		{
			name: "no collection column",
			table: domain.NewRawTable([]string{"SU_ID", "SCHOOL_ID", "TOTAL"}, [][]string{
				{"SU1", "S1", "1"},
				{"SU1", "S2", "2"},
			}),
			wantTotals: []string{"1", "2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Reconcile(tt.table, 2024)
			require.NoError(t, err)

			total := out.ColumnIndex("TOTAL")
			var got []string
			for i := 0; i < out.Len(); i++ {
				got = append(got, out.Cell(i, total))
			}
			assert.Equal(t, tt.wantTotals, got)
		})
	}
}

func TestReconcile_Deduplicate(t *testing.T) {
	table := domain.NewRawTable([]string{"SU_ID", "SCHOOL_ID", "SCHOOL_NAME", "TOTAL"}, [][]string{
		{"SU1", "S1", "Bridport Central", "10"},
		{"SU1", "S1", "Bridport Central School", "12"},
		{"", "", "Unlabelled A", "3"},
		{"", "", "Unlabelled B", "4"},
		{"SU1", "", "", "100"},
		{"SU1", " ", "", "101"},
		{"SU2", "S1", "Other", "5"},
	})

	out, err := Reconcile(table, 2024)
	require.NoError(t, err)

	total := out.ColumnIndex("TOTAL")
	var got []string
	for i := 0; i < out.Len(); i++ {
		got = append(got, out.Cell(i, total))
	}
	assert.Equal(t, []string{"10", "3", "4", "100", "5"}, got)
}

func TestReconcile_NoData(t *testing.T) {
	tests := []struct {
		name  string
		table *domain.RawTable
	}{
		{"nil table", nil},
		{"no rows", domain.NewRawTable([]string{"SU_ID"}, nil)},
		{"year not present", testutil.SampleVEDTable()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Reconcile(tt.table, 2012)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrNoDataForYear))
			assert.Contains(t, err.Error(), "2012")
		})
	}
}
