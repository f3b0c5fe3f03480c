package testutil

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/almartin82/vtschooldata/pkg/contracts/domain"
)

// VEDColumns is the header of the pipe-delimited enrollment export.
var VEDColumns = []string{
	"SCHOOL_YEAR", "DATA_COLLECTION", "SU_ID", "SU_NAME", "SCHOOL_ID", "SCHOOL_NAME", "COUNTY",
	"PREKINDERGARTEN", "KINDERGARTENFULLTIME", "KINDERGARTENPARTTIME",
	"FIRSTGRADE", "SECONDGRADE", "THIRDGRADE", "FOURTHGRADE", "FIFTHGRADE", "SIXTHGRADE",
	"SEVENTHGRADE", "EIGHTHGRADE", "NINTHGRADE", "TENTHGRADE", "ELEVENTHGRADE", "TWELFTHGRADE",
	"TOTAL",
}

// CompactColumns is the header of the older per-year workbooks.
var CompactColumns = []string{
	"SU", "SU Name", "Org ID", "Org Name",
	"PK", "K",
	"GR01", "GR02", "GR03", "GR04", "GR05", "GR06",
	"GR07", "GR08", "GR09", "GR10", "GR11", "GR12",
	"Total",
}

// VEDRow builds one VED export row. grades holds PK, K full, K part and
// grades 1-12 in order (15 cells).
func VEDRow(year, collection, suID, suName, schoolID, schoolName, county string, grades []string, total string) []string {
	if len(grades) != 15 {
		panic(fmt.Sprintf("VEDRow: want 15 grade cells, got %d", len(grades)))
	}
	row := []string{year, collection, suID, suName, schoolID, schoolName, county}
	row = append(row, grades...)
	return append(row, total)
}

// SampleVEDTable is a small two-pass export for 2023-24: two supervisory
// unions and three schools in the October census, plus a year-end pass
// and a row from the previous year that must be filtered out.
func SampleVEDTable() *domain.RawTable {
	g := func(cells ...string) []string { return cells }
	rows := [][]string{
		VEDRow("2023-24", "DC#06 Oct 1 Census", "SU001", "Addison Central SU", "", "", "Addison",
			g("10", "20", "5", "30", "30", "30", "30", "30", "30", "30", "30", "40", "40", "40", "40"), "435"),
		VEDRow("2023-24", "DC#06 Oct 1 Census", "SU001", "Addison Central SU", "PS001", "Bridport Central", "Addison",
			g("*", "8", "2", "10", "12", "11", "9", "<5", "", "", "", "", "", "", ""), "55"),
		VEDRow("2023-24", "DC#06 Oct 1 Census", "SU002", "Burlington SD", "", "", "Chittenden",
			g("40", "100", "0", "1,000", "110", "105", "100", "98", "97", "96", "95", "90", "88", "85", "80"), "2,184"),
		VEDRow("2023-24", "DC#06 Oct 1 Census", "SU002", "Burlington SD", "PS010", "Burlington High", "Chittenden",
			g("", "", "", "", "", "", "", "", "", "", "", "90", "88", "85", "80"), "343"),
		VEDRow("2023-24", "DC#04 Year End", "SU002", "Burlington SD", "PS010", "Burlington High", "Chittenden",
			g("", "", "", "", "", "", "", "", "", "", "", "91", "87", "84", "79"), "341"),
		VEDRow("2022-23", "DC#06 Oct 1 Census", "SU001", "Addison Central SU", "", "", "Addison",
			g("9", "19", "4", "29", "29", "29", "29", "29", "29", "29", "29", "39", "39", "39", "39"), "450"),
	}
	return domain.NewRawTable(VEDColumns, rows)
}

// PipeDelimited renders a table the way the VED export is published.
func PipeDelimited(table *domain.RawTable) []byte {
	var b bytes.Buffer
	b.WriteString(strings.Join(table.Columns, "|"))
	b.WriteByte('\n')
	for _, row := range table.Rows {
		b.WriteString(strings.Join(row, "|"))
		b.WriteByte('\n')
	}
	return b.Bytes()
}

// BuildWorkbook writes header and rows to a single-sheet xlsx and returns
// its bytes. titleRows are written above the header, as the published
// workbooks carry a title banner.
func BuildWorkbook(t *testing.T, sheet string, titleRows []string, columns []string, rows [][]string) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		t.Fatalf("rename sheet: %v", err)
	}

	line := 1
	for _, title := range titleRows {
		if err := f.SetCellValue(sheet, fmt.Sprintf("A%d", line), title); err != nil {
			t.Fatalf("write title: %v", err)
		}
		line++
	}

	writeRow := func(cells []string) {
		values := make([]interface{}, len(cells))
		for i, c := range cells {
			values[i] = c
		}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", line), &values); err != nil {
			t.Fatalf("write row %d: %v", line, err)
		}
		line++
	}

	writeRow(columns)
	for _, row := range rows {
		writeRow(row)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}
