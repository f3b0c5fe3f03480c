package exporter

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/almartin82/vtschooldata/internal/config"
	"github.com/almartin82/vtschooldata/pkg/contracts/domain"
)

var orgHeaders = []string{"end_year", "type", "district_id", "district_name", "campus_id", "campus_name", "county"}

// EnrollmentExporter writes wide and tidy enrollment tables as CSV.
type EnrollmentExporter struct {
	csvWriter *CSVWriter
}

// NewEnrollmentExporter creates a new enrollment exporter
func NewEnrollmentExporter(paths *config.Paths, logger *slog.Logger) *EnrollmentExporter {
	return &EnrollmentExporter{csvWriter: NewCSVWriter(paths, logger)}
}

// Export writes table to filePath in its own layout.
func (e *EnrollmentExporter) Export(table *domain.EnrollmentTable, filePath string) error {
	headers, records := EnrollmentRecords(table)
	if err := e.csvWriter.WriteSimpleCSV(filePath, headers, records); err != nil {
		return fmt.Errorf("failed to export %s enrollment: %w", table.Shape, err)
	}
	return nil
}

// ExportTo writes table to out without a BOM.
func (e *EnrollmentExporter) ExportTo(out io.Writer, table *domain.EnrollmentTable) error {
	headers, records := EnrollmentRecords(table)
	return Write(out, WriteOptions{Headers: headers, Records: records})
}

// EnrollmentRecords renders table as CSV header and rows.
func EnrollmentRecords(table *domain.EnrollmentTable) ([]string, [][]string) {
	if table.Shape == domain.ShapeTidy {
		return TidyHeaders(), TidyRows(table.Tidy)
	}
	grades := WideGradeColumns(table.Wide)
	return WideHeaders(grades), WideRows(table.Wide, grades)
}

// WideGradeColumns lists, in canonical order, the grade keys carried by at
// least one record. Grades no record carries get no column.
func WideGradeColumns(records []domain.CanonicalOrgRecord) []domain.GradeLevel {
	var out []domain.GradeLevel
	for _, g := range domain.GradeKeys {
		for _, r := range records {
			if _, ok := r.Grade(g); ok {
				out = append(out, g)
				break
			}
		}
	}
	return out
}

// WideHeaders returns the wide layout header for the given grade columns.
func WideHeaders(grades []domain.GradeLevel) []string {
	headers := make([]string, 0, len(orgHeaders)+len(grades)+2)
	headers = append(headers, orgHeaders...)
	for _, g := range grades {
		headers = append(headers, "grade_"+string(g))
	}
	return append(headers, "row_total", "derived_from_campus")
}

// WideRows renders records with one cell per grade column.
func WideRows(records []domain.CanonicalOrgRecord, grades []domain.GradeLevel) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		row := []string{
			formatInt(int64(r.EndYear)),
			string(r.OrgLevel),
			formatText(r.DistrictID),
			formatText(r.DistrictName),
			formatText(r.CampusID),
			formatText(r.CampusName),
			formatText(r.County),
		}
		for _, g := range grades {
			row = append(row, formatCount(r.Grades[g]))
		}
		row = append(row, formatCount(r.RowTotal), formatBool(r.DerivedFromCampus))
		rows = append(rows, row)
	}
	return rows
}

// TidyHeaders returns the long layout header, shared with grade bands.
func TidyHeaders() []string {
	headers := make([]string, 0, len(orgHeaders)+7)
	headers = append(headers, orgHeaders...)
	return append(headers, "grade_level", "subgroup", "n_students", "pct", "is_state", "is_district", "is_campus")
}

// TidyRows renders tidy records or grade-band aggregates.
func TidyRows(records []domain.TidyRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			formatInt(int64(r.EndYear)),
			string(r.OrgLevel),
			formatText(r.DistrictID),
			formatText(r.DistrictName),
			formatText(r.CampusID),
			formatText(r.CampusName),
			formatText(r.County),
			string(r.GradeLevel),
			r.Subgroup,
			formatCount(r.NStudents),
			formatPct(r.Pct),
			formatBool(r.IsState),
			formatBool(r.IsDistrict),
			formatBool(r.IsCampus),
		})
	}
	return rows
}
