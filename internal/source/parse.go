package source

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/almartin82/vtschooldata/pkg/contracts/domain"
)

// headerScanRows bounds how far into a sheet the header row is searched.
// Published workbooks carry a title banner of a few rows above it.
const headerScanRows = 15

var zipMagic = []byte("PK\x03\x04")

// Format is the detected layout of a downloaded file.
type Format string

const (
	FormatWorkbook  Format = "xlsx"
	FormatDelimited Format = "delimited"
)

// DetectFormat sniffs data: zip archives are workbooks, everything else is
// treated as delimited text.
func DetectFormat(data []byte) Format {
	if bytes.HasPrefix(data, zipMagic) {
		return FormatWorkbook
	}
	return FormatDelimited
}

// ParseTable parses a downloaded file into a raw table. Every cell stays
// text and column names are kept as published.
func ParseTable(data []byte) (*domain.RawTable, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("empty file")
	}
	if DetectFormat(data) == FormatWorkbook {
		return ParseWorkbook(data)
	}
	return ParseDelimited(data)
}

// ParseWorkbook reads the first sheet that has a header row.
func ParseWorkbook(data []byte) (*domain.RawTable, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		if table := tableFromRows(rows); table != nil {
			return table, nil
		}
	}
	return nil, errors.New("workbook has no header row")
}

// ParseDelimited reads pipe, comma, tab or semicolon separated text.
func ParseDelimited(data []byte) (*domain.RawTable, error) {
	data = bytes.TrimPrefix(data, []byte("\ufeff"))

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = sniffDelimiter(data)
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read delimited file: %w", err)
		}
		records = append(records, rec)
	}

	table := tableFromRows(records)
	if table == nil {
		return nil, errors.New("file has no header row")
	}
	return table, nil
}

// sniffDelimiter picks the candidate seen most often in the leading lines.
// Title lines without any delimiter do not count against the others.
func sniffDelimiter(data []byte) rune {
	lines := bytes.SplitN(data, []byte("\n"), 11)
	if len(lines) > 10 {
		lines = lines[:10]
	}

	best, bestCount := ',', 0
	for _, d := range []rune{'|', ',', '\t', ';'} {
		n := 0
		for _, line := range lines {
			n += bytes.Count(line, []byte(string(d)))
		}
		if n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// tableFromRows finds the header (the widest of the leading rows, earliest
// on ties) and keeps the non-blank rows after it.
func tableFromRows(rows [][]string) *domain.RawTable {
	header, width := -1, 1
	for i := 0; i < len(rows) && i < headerScanRows; i++ {
		if n := filled(rows[i]); n > width {
			header, width = i, n
		}
	}
	if header < 0 {
		return nil
	}

	columns := trimTrailingBlank(rows[header])
	for i, c := range columns {
		columns[i] = strings.TrimSpace(c)
	}

	data := make([][]string, 0, len(rows)-header-1)
	for _, row := range rows[header+1:] {
		if filled(row) == 0 {
			continue
		}
		data = append(data, row)
	}
	return domain.NewRawTable(columns, data)
}

func filled(row []string) int {
	n := 0
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			n++
		}
	}
	return n
}

func trimTrailingBlank(row []string) []string {
	end := len(row)
	for end > 0 && strings.TrimSpace(row[end-1]) == "" {
		end--
	}
	out := make([]string, end)
	copy(out, row[:end])
	return out
}
