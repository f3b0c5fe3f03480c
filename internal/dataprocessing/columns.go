package dataprocessing

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/almartin82/vtschooldata/pkg/contracts/domain"
)

// Field is a canonical target of the column mapper.
type Field string

const (
	FieldDistrictID   Field = "district_id"
	FieldDistrictName Field = "district_name"
	FieldCampusID     Field = "campus_id"
	FieldCampusName   Field = "campus_name"
	FieldCounty       Field = "county"
	FieldSchoolYear   Field = "school_year"
	FieldCollection   Field = "collection"
	FieldPreK         Field = "prek"
	FieldKFull        Field = "k_full"
	FieldKPart        Field = "k_part"
	FieldKCombined    Field = "k_combined"
	FieldTotal        Field = "total"
)

// GradeField returns the field for numbered grade n (1-12).
func GradeField(n int) Field {
	return Field(fmt.Sprintf("grade_%02d", n))
}

// ColumnCatalog lists, per field, the accepted source column names in
// priority order. The first alias present in a table binds the field.
type ColumnCatalog map[Field][]string

var gradeWords = []string{
	"FIRST", "SECOND", "THIRD", "FOURTH", "FIFTH", "SIXTH",
	"SEVENTH", "EIGHTH", "NINTH", "TENTH", "ELEVENTH", "TWELFTH",
}

// DefaultCatalog covers the pipe-delimited VED export (word-named grades,
// e.g. FIRSTGRADE) and the older compact workbooks (GR01, G1, ...).
func DefaultCatalog() ColumnCatalog {
	c := ColumnCatalog{
		FieldDistrictID:   {"SU_ID", "SUID", "SU_CODE", "SU", "LEA_ID", "LEAID", "DISTRICT_ID", "DISTRICTID"},
		FieldDistrictName: {"SU_NAME", "SUNAME", "SUPERVISORY_UNION", "SUPERVISORYUNION", "LEA_NAME", "DISTRICT_NAME", "DISTRICTNAME"},
		FieldCampusID:     {"SCHOOL_ID", "SCHOOLID", "ORG_ID", "ORGID", "ORGANIZATION_ID", "SCH_ID"},
		FieldCampusName:   {"SCHOOL_NAME", "SCHOOLNAME", "ORG_NAME", "ORGNAME", "ORGANIZATION_NAME", "SCH_NAME"},
		FieldCounty:       {"COUNTY", "COUNTY_NAME", "COUNTYNAME"},
		FieldSchoolYear:   {"SCHOOL_YEAR", "SCHOOLYEAR", "SY", "YEAR"},
		FieldCollection:   {"DATA_COLLECTION", "DATACOLLECTION", "COLLECTION", "COLLECTION_NAME", "DC"},
		FieldPreK:         {"PREKINDERGARTEN", "PRE_KINDERGARTEN", "PREK", "PRE_K", "PK", "GRPK", "GR_PK"},
		FieldKFull:        {"KINDERGARTENFULLTIME", "KINDERGARTEN_FULL_TIME", "KINDERGARTENFULL", "K_FULL", "KFT", "KF"},
		FieldKPart:        {"KINDERGARTENPARTTIME", "KINDERGARTEN_PART_TIME", "KINDERGARTENPART", "K_PART", "KPT", "KP"},
		FieldKCombined:    {"KINDERGARTEN", "GRK", "GR_K", "GRADE_K", "KG", "K"},
		FieldTotal:        {"TOTAL", "TOTALENROLLMENT", "TOTAL_ENROLLMENT", "ENROLLMENT", "ALL_GRADES", "TOTALSTUDENTS"},
	}

	for n := 1; n <= 12; n++ {
		c[GradeField(n)] = []string{
			gradeWords[n-1] + "GRADE",
			fmt.Sprintf("GR%02d", n),
			fmt.Sprintf("GRADE_%02d", n),
			fmt.Sprintf("GRADE%02d", n),
			fmt.Sprintf("%d", n),
			fmt.Sprintf("G%d", n),
			fmt.Sprintf("GRADE_%d", n),
			fmt.Sprintf("GR%d", n),
		}
	}

	return c
}

// Binding records the column index bound to each field. Fields without a
// matching column are not in the map.
type Binding map[Field]int

// Bind matches catalog aliases against columns, ignoring case and whitespace.
func (c ColumnCatalog) Bind(columns []string) Binding {
	index := make(map[string]int, len(columns))
	for i, col := range columns {
		key := normalizeColumn(col)
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}

	b := make(Binding, len(c))
	for field, aliases := range c {
		for _, alias := range aliases {
			if i, ok := index[normalizeColumn(alias)]; ok {
				b[field] = i
				break
			}
		}
	}
	return b
}

// Has reports whether field was bound.
func (b Binding) Has(field Field) bool {
	_, ok := b[field]
	return ok
}

func normalizeColumn(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, strings.TrimPrefix(name, "\ufeff"))
}

// MappedRow is one source row translated to canonical fields. Identity
// fields are nil when unbound or blank. Grades follows the absent/null
// convention of domain.GradeFields.
type MappedRow struct {
	DistrictID   *string
	DistrictName *string
	CampusID     *string
	CampusName   *string
	County       *string
	Grades       domain.GradeFields
	RowTotal     *int64
	// SourceTotal is the sanitized source total column, nil when the
	// column is unbound or its cell unusable.
	SourceTotal *int64
}

// MapColumns binds catalog fields once and translates every row.
func MapColumns(table *domain.RawTable, catalog ColumnCatalog) []MappedRow {
	if table.Len() == 0 {
		return nil
	}

	b := catalog.Bind(table.Columns)
	out := make([]MappedRow, 0, table.Len())
	for i := range table.Rows {
		out = append(out, mapRow(table, i, b))
	}
	return out
}

func mapRow(table *domain.RawTable, i int, b Binding) MappedRow {
	text := cellReader(table, i, b)
	count := func(f Field) *int64 {
		return SanitizeCount(table.Cell(i, b[f]))
	}

	row := MappedRow{
		DistrictID:   text(FieldDistrictID),
		DistrictName: text(FieldDistrictName),
		CampusID:     text(FieldCampusID),
		CampusName:   text(FieldCampusName),
		County:       text(FieldCounty),
		Grades:       make(domain.GradeFields),
	}

	if b.Has(FieldPreK) {
		row.Grades[domain.GradePK] = count(FieldPreK)
	}

	switch {
	case b.Has(FieldKFull) || b.Has(FieldKPart):
		var full, part *int64
		if b.Has(FieldKFull) {
			full = count(FieldKFull)
		}
		if b.Has(FieldKPart) {
			part = count(FieldKPart)
		}
		row.Grades[domain.GradeK] = addNullable(full, part)
	case b.Has(FieldKCombined):
		row.Grades[domain.GradeK] = count(FieldKCombined)
	}

	for n := 1; n <= 12; n++ {
		f := GradeField(n)
		if b.Has(f) {
			row.Grades[domain.GradeKeys[n+1]] = count(f)
		}
	}

	// A bound total column is authoritative, suppressed cells included.
	// The grade sum is used only when the source publishes no total.
	if b.Has(FieldTotal) {
		row.SourceTotal = count(FieldTotal)
		row.RowTotal = row.SourceTotal
	} else if sum, ok := GradeSum(row.Grades); ok {
		row.RowTotal = &sum
	}

	return row
}

// GradeSum adds the non-null grade counts. ok is false when every grade is
// null or absent.
func GradeSum(grades domain.GradeFields) (sum int64, ok bool) {
	for _, v := range grades {
		if v != nil {
			sum += *v
			ok = true
		}
	}
	return sum, ok
}

// addNullable sums two nullable counts, treating one missing side as zero.
// Both missing yields nil.
func addNullable(a, b *int64) *int64 {
	if a == nil && b == nil {
		return nil
	}
	var n int64
	if a != nil {
		n += *a
	}
	if b != nil {
		n += *b
	}
	return &n
}
