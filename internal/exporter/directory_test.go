package exporter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/almartin82/vtschooldata/pkg/contracts/domain"
)

func TestDirectoryRecords(t *testing.T) {
	t.Run("raw listing keeps source columns", func(t *testing.T) {
		raw := domain.NewRawTable([]string{"Org ID", "Zip"}, [][]string{{"PS001", "05734"}})
		headers, rows := DirectoryRecords(&domain.DirectoryTable{Shape: domain.ShapeWide, Raw: raw})

		assert.Equal(t, []string{"Org ID", "Zip"}, headers)
		assert.Equal(t, [][]string{{"PS001", "05734"}}, rows)
	})

	t.Run("raw listing missing", func(t *testing.T) {
		headers, rows := DirectoryRecords(&domain.DirectoryTable{Shape: domain.ShapeWide})
		assert.Nil(t, headers)
		assert.Nil(t, rows)
	})

	t.Run("joined directory", func(t *testing.T) {
		table := &domain.DirectoryTable{Shape: domain.ShapeTidy, Records: []domain.DirectoryRecord{{
			OrgID:              "PS001",
			OrgName:            "Bridport Central",
			OrgType:            "Public School",
			OrgLevel:           domain.LevelCampus,
			DistrictID:         ptr("SU001"),
			Zip:                ptr("05734"),
			PrincipalName:      ptr("Ada Lovelace"),
			SuperintendentName: ptr("Grace Hopper"),
			IsCampus:           true,
		}}}

		headers, rows := DirectoryRecords(table)
		require.Len(t, rows, 1)
		require.Len(t, rows[0], len(headers))

		row := make(map[string]string, len(headers))
		for i, h := range headers {
			row[h] = rows[0][i]
		}
		assert.Equal(t, "PS001", row["org_id"])
		assert.Equal(t, "Campus", row["type"])
		assert.Equal(t, "05734", row["zip"])
		assert.Equal(t, "Ada Lovelace", row["principal_name"])
		assert.Equal(t, "", row["principal_email"])
		assert.Equal(t, "Grace Hopper", row["superintendent_name"])
		assert.Equal(t, "true", row["is_campus"])
		assert.Equal(t, "false", row["is_district"])
	})
}

func TestDirectoryExporter_Export(t *testing.T) {
	_, paths := setupTestEnv(t)
	exp := NewDirectoryExporter(paths, nil)
	raw := domain.NewRawTable([]string{"Org ID"}, [][]string{{"SU001"}, {"PS001"}})

	require.NoError(t, exp.Export(&domain.DirectoryTable{Shape: domain.ShapeWide, Raw: raw}, "directory.csv"))

	hasBOM, records := readCSV(t, paths.GetExportPath("directory.csv"))
	assert.True(t, hasBOM)
	assert.Equal(t, [][]string{{"Org ID"}, {"SU001"}, {"PS001"}}, records)
}
