package exporter

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/almartin82/vtschooldata/pkg/contracts/domain"
)

func ptr[T any](v T) *T { return &v }

func wideFixture() []domain.CanonicalOrgRecord {
	return []domain.CanonicalOrgRecord{
		{
			EndYear:  2024,
			OrgLevel: domain.LevelState,
			Grades:   domain.GradeFields{domain.GradeK: ptr(int64(125)), domain.Grade01: ptr(int64(130))},
			RowTotal: ptr(int64(255)),
		},
		{
			EndYear:      2024,
			OrgLevel:     domain.LevelCampus,
			DistrictID:   ptr("SU001"),
			DistrictName: ptr("Addison Central SU"),
			CampusID:     ptr("PS001"),
			CampusName:   ptr("Bridport Central"),
			County:       ptr("Addison"),
			Grades:       domain.GradeFields{domain.GradePK: nil, domain.GradeK: ptr(int64(10))},
			RowTotal:     nil,
		},
	}
}

func TestEnrollmentRecords_Wide(t *testing.T) {
	table := &domain.EnrollmentTable{Shape: domain.ShapeWide, Wide: wideFixture()}

	headers, rows := EnrollmentRecords(table)

	assert.Equal(t, []string{
		"end_year", "type", "district_id", "district_name", "campus_id", "campus_name", "county",
		"grade_PK", "grade_K", "grade_01", "row_total", "derived_from_campus",
	}, headers)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"2024", "State", "", "", "", "", "", "", "125", "130", "255", "false"}, rows[0])
	assert.Equal(t, []string{"2024", "Campus", "SU001", "Addison Central SU", "PS001", "Bridport Central", "Addison", "", "10", "", "", "false"}, rows[1])
	for _, row := range rows {
		assert.Len(t, row, len(headers))
	}
}

func TestEnrollmentRecords_Tidy(t *testing.T) {
	table := &domain.EnrollmentTable{Shape: domain.ShapeTidy, Tidy: []domain.TidyRecord{{
		EndYear:    2024,
		OrgLevel:   domain.LevelDistrict,
		DistrictID: ptr("SU001"),
		GradeLevel: domain.GradeTotal,
		Subgroup:   domain.SubgroupTotalEnrollment,
		NStudents:  ptr(int64(425)),
		Pct:        ptr(1.0),
		IsDistrict: true,
	}}}

	headers, rows := EnrollmentRecords(table)

	assert.Equal(t, TidyHeaders(), headers)
	assert.Equal(t, [][]string{{
		"2024", "District", "SU001", "", "", "", "",
		"TOTAL", "total_enrollment", "425", "1", "false", "true", "false",
	}}, rows)
}

func TestEnrollmentExporter_Export(t *testing.T) {
	_, paths := setupTestEnv(t)
	exp := NewEnrollmentExporter(paths, nil)
	table := &domain.EnrollmentTable{Shape: domain.ShapeWide, Wide: wideFixture()}

	require.NoError(t, exp.Export(table, "enrollment_2024.csv"))

	hasBOM, records := readCSV(t, paths.GetExportPath("enrollment_2024.csv"))
	assert.True(t, hasBOM)
	assert.Len(t, records, 3)
}

func TestEnrollmentExporter_ExportTo(t *testing.T) {
	exp := NewEnrollmentExporter(nil, nil)
	var buf bytes.Buffer

	require.NoError(t, exp.ExportTo(&buf, &domain.EnrollmentTable{Shape: domain.ShapeWide, Wide: wideFixture()}))

	assert.False(t, bytes.HasPrefix(buf.Bytes(), utf8BOM))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestWideGradeColumns(t *testing.T) {
	tests := []struct {
		name     string
		records  []domain.CanonicalOrgRecord
		expected []domain.GradeLevel
	}{
		{name: "no records", records: nil, expected: nil},
		{
			name: "canonical order regardless of map order",
			records: []domain.CanonicalOrgRecord{
				{Grades: domain.GradeFields{domain.Grade12: nil, domain.GradeK: nil}},
				{Grades: domain.GradeFields{domain.Grade05: ptr(int64(1))}},
			},
			expected: []domain.GradeLevel{domain.GradeK, domain.Grade05, domain.Grade12},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, WideGradeColumns(tt.records))
		})
	}
}
