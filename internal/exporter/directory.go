package exporter

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/almartin82/vtschooldata/internal/config"
	"github.com/almartin82/vtschooldata/pkg/contracts/domain"
)

// DirectoryExporter writes the school directory as CSV.
type DirectoryExporter struct {
	csvWriter *CSVWriter
}

// NewDirectoryExporter creates a new directory exporter
func NewDirectoryExporter(paths *config.Paths, logger *slog.Logger) *DirectoryExporter {
	return &DirectoryExporter{csvWriter: NewCSVWriter(paths, logger)}
}

// Export writes table to filePath. The raw listing keeps its source columns.
func (d *DirectoryExporter) Export(table *domain.DirectoryTable, filePath string) error {
	headers, records := DirectoryRecords(table)
	if err := d.csvWriter.WriteSimpleCSV(filePath, headers, records); err != nil {
		return fmt.Errorf("failed to export directory: %w", err)
	}
	return nil
}

// ExportTo writes table to out without a BOM.
func (d *DirectoryExporter) ExportTo(out io.Writer, table *domain.DirectoryTable) error {
	headers, records := DirectoryRecords(table)
	return Write(out, WriteOptions{Headers: headers, Records: records})
}

// DirectoryRecords renders table as CSV header and rows.
func DirectoryRecords(table *domain.DirectoryTable) ([]string, [][]string) {
	if table.Shape != domain.ShapeTidy {
		if table.Raw == nil {
			return nil, nil
		}
		return table.Raw.Columns, table.Raw.Rows
	}
	return directoryHeaders(), directoryRows(table.Records)
}

func directoryHeaders() []string {
	return []string{
		"org_id", "org_name", "org_type", "type", "district_id", "district_name",
		"address", "city", "state", "zip", "phone", "county", "grade_span",
		"principal_name", "principal_email", "superintendent_name", "superintendent_email",
		"is_district", "is_campus",
	}
}

func directoryRows(records []domain.DirectoryRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.OrgID,
			r.OrgName,
			r.OrgType,
			string(r.OrgLevel),
			formatText(r.DistrictID),
			formatText(r.DistrictName),
			formatText(r.Address),
			formatText(r.City),
			formatText(r.State),
			formatText(r.Zip),
			formatText(r.Phone),
			formatText(r.County),
			formatText(r.GradeSpan),
			formatText(r.PrincipalName),
			formatText(r.PrincipalEmail),
			formatText(r.SuperintendentName),
			formatText(r.SuperintendentEmail),
			formatBool(r.IsDistrict),
			formatBool(r.IsCampus),
		})
	}
	return rows
}
