package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/almartin82/vtschooldata/internal/shared/testutil"
	"github.com/almartin82/vtschooldata/pkg/contracts/domain"
)

func TestBind_AliasPriority(t *testing.T) {
	catalog := DefaultCatalog()

	tests := []struct {
		name    string
		columns []string
		field   Field
		wantIdx int
		wantOK  bool
	}{
		{"word name wins over compact", []string{"GR01", "FIRSTGRADE"}, GradeField(1), 1, true},
		{"compact name", []string{"SU", "GR01"}, GradeField(1), 1, true},
		{"case insensitive", []string{"firstgrade"}, GradeField(1), 0, true},
		{"whitespace insensitive", []string{" First Grade "}, GradeField(1), 0, true},
		{"numeric name", []string{"1", "2"}, GradeField(2), 1, true},
		{"g prefix", []string{"G12"}, GradeField(12), 0, true},
		{"byte order mark", []string{"\ufeffSU_ID"}, FieldDistrictID, 0, true},
		{"unbound", []string{"SU_ID"}, GradeField(3), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := catalog.Bind(tt.columns)
			idx, ok := b[tt.field]
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantIdx, idx)
			}
		})
	}
}

func TestMapColumns_WordNamedRow(t *testing.T) {
	table := domain.NewRawTable(
		[]string{"SU_ID", "SCHOOL_ID", "FIRSTGRADE", "KINDERGARTENFULLTIME", "KINDERGARTENPARTTIME"},
		[][]string{{"SU001", "PS001", "1,234", "10", "*"}},
	)

	rows := MapColumns(table, DefaultCatalog())
	require.Len(t, rows, 1)

	g1, ok := rows[0].Grades[domain.Grade01]
	require.True(t, ok)
	require.NotNil(t, g1)
	assert.Equal(t, int64(1234), *g1)

	k, ok := rows[0].Grades[domain.GradeK]
	require.True(t, ok)
	require.NotNil(t, k)
	assert.Equal(t, int64(10), *k)

	_, hasPK := rows[0].Grades[domain.GradePK]
	assert.False(t, hasPK, "no PreK column means no PreK field")
}

func TestMapColumns_Kindergarten(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		cells   []string
		want    *int64
		present bool
	}{
		{"full and part", []string{"KINDERGARTENFULLTIME", "KINDERGARTENPARTTIME"}, []string{"20", "5"}, int64Ptr(25), true},
		{"part suppressed", []string{"KINDERGARTENFULLTIME", "KINDERGARTENPARTTIME"}, []string{"20", "<5"}, int64Ptr(20), true},
		{"full suppressed", []string{"KINDERGARTENFULLTIME", "KINDERGARTENPARTTIME"}, []string{"*", "6"}, int64Ptr(6), true},
		{"both suppressed", []string{"KINDERGARTENFULLTIME", "KINDERGARTENPARTTIME"}, []string{"*", ""}, nil, true},
		{"full only column", []string{"KF"}, []string{"14"}, int64Ptr(14), true},
		{"combined column", []string{"K"}, []string{"31"}, int64Ptr(31), true},
		{"split preferred over combined", []string{"K", "KF", "KP"}, []string{"99", "10", "2"}, int64Ptr(12), true},
		{"no kindergarten columns", []string{"GR01"}, []string{"5"}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := domain.NewRawTable(tt.columns, [][]string{tt.cells})
			rows := MapColumns(table, DefaultCatalog())
			require.Len(t, rows, 1)

			k, ok := rows[0].Grades[domain.GradeK]
			assert.Equal(t, tt.present, ok)
			if tt.want == nil {
				assert.Nil(t, k)
				return
			}
			require.NotNil(t, k)
			assert.Equal(t, *tt.want, *k)
		})
	}
}

func TestMapColumns_RowTotal(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		cells   []string
		want    *int64
	}{
		{"source total", []string{"GR01", "GR02", "TOTAL"}, []string{"10", "20", "35"}, int64Ptr(35)},
		{"suppressed total stays null", []string{"GR01", "GR02", "TOTAL"}, []string{"10", "20", "*"}, nil},
		{"no total column", []string{"GR01", "GR02"}, []string{"10", "<5"}, int64Ptr(10)},
		{"nothing usable", []string{"GR01", "GR02"}, []string{"*", "*"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := MapColumns(domain.NewRawTable(tt.columns, [][]string{tt.cells}), DefaultCatalog())
			require.Len(t, rows, 1)
			if tt.want == nil {
				assert.Nil(t, rows[0].RowTotal)
				return
			}
			require.NotNil(t, rows[0].RowTotal)
			assert.Equal(t, *tt.want, *rows[0].RowTotal)
		})
	}
}

func TestMapColumns_CompactSchema(t *testing.T) {
	cells := []string{"SU045", "Windham Southeast", "PS100", "Green Street", "*", "22",
		"20", "21", "19", "18", "", "", "", "", "", "", "", "", "100"}
	rows := MapColumns(domain.NewRawTable(testutil.CompactColumns, [][]string{cells}), DefaultCatalog())
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, "SU045", *row.DistrictID)
	assert.Equal(t, "Windham Southeast", *row.DistrictName)
	assert.Equal(t, "PS100", *row.CampusID)
	assert.Equal(t, "Green Street", *row.CampusName)
	assert.Nil(t, row.County)

	pk, ok := row.Grades[domain.GradePK]
	assert.True(t, ok)
	assert.Nil(t, pk)
	assert.Equal(t, int64(22), *row.Grades[domain.GradeK])
	assert.Equal(t, int64(18), *row.Grades[domain.Grade04])
	g12, ok := row.Grades[domain.Grade12]
	assert.True(t, ok)
	assert.Nil(t, g12)
	assert.Equal(t, int64(100), *row.RowTotal)
	assert.Len(t, row.Grades, len(domain.GradeKeys))
}

func TestMapColumns_Empty(t *testing.T) {
	assert.Nil(t, MapColumns(nil, DefaultCatalog()))
	assert.Nil(t, MapColumns(domain.NewRawTable([]string{"GR01"}, nil), DefaultCatalog()))
}
