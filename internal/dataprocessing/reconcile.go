package dataprocessing

import (
	"strings"

	apperrors "github.com/almartin82/vtschooldata/internal/errors"
	"github.com/almartin82/vtschooldata/pkg/contracts/domain"
)

// Collection-pass tags. The October census is authoritative; the year-end
// pass is used only when a year has no census rows.
const (
	PrimaryCollectionTag   = "DC#06"
	SecondaryCollectionTag = "DC#04"
)

// Reconcile reduces a year's raw rows to one row per organization using the
// default catalog. See ReconcileWith.
func Reconcile(table *domain.RawTable, endYear int) (*domain.RawTable, error) {
	return ReconcileWith(table, endYear, DefaultCatalog())
}

// ReconcileWith keeps the rows of table that describe endYear:
//
//  1. when a school-year column exists, rows for other years are dropped;
//  2. when a collection-pass column exists, DC#06 rows are kept, falling
//     back to DC#04 rows, or everything when neither tag appears;
//  3. duplicates on (district id, organization id) are dropped, first
//     occurrence wins. Rows with both ids blank are kept as they are.
//
// An empty result is reported as a NoDataForYear error.
func ReconcileWith(table *domain.RawTable, endYear int, catalog ColumnCatalog) (*domain.RawTable, error) {
	if table.Len() == 0 {
		return nil, apperrors.NewNoDataForYearError(endYear)
	}

	b := catalog.Bind(table.Columns)
	rows := make([]int, 0, table.Len())
	for i := range table.Rows {
		rows = append(rows, i)
	}

	if idx, ok := b[FieldSchoolYear]; ok {
		rows = filterRows(rows, func(i int) bool {
			y, err := ParseYear(table.Cell(i, idx))
			return err == nil && y == endYear
		})
	}

	if idx, ok := b[FieldCollection]; ok {
		rows = selectCollectionPass(table, rows, idx)
	}

	rows = dedupeOrganizations(table, rows, b)

	if len(rows) == 0 {
		return nil, apperrors.NewNoDataForYearError(endYear)
	}
	return table.Subset(rows), nil
}

func selectCollectionPass(table *domain.RawTable, rows []int, idx int) []int {
	tagged := func(tag string) []int {
		return filterRows(rows, func(i int) bool {
			return hasCollectionTag(table.Cell(i, idx), tag)
		})
	}

	if primary := tagged(PrimaryCollectionTag); len(primary) > 0 {
		return primary
	}
	if secondary := tagged(SecondaryCollectionTag); len(secondary) > 0 {
		return secondary
	}
	return rows
}

// hasCollectionTag matches "DC#06", "DC #06 - Oct 1 Census" and the like.
func hasCollectionTag(cell, tag string) bool {
	return strings.Contains(strings.ToUpper(strings.ReplaceAll(cell, " ", "")), tag)
}

func dedupeOrganizations(table *domain.RawTable, rows []int, b Binding) []int {
	districtIdx, hasDistrict := b[FieldDistrictID]
	campusIdx, hasCampus := b[FieldCampusID]
	if !hasDistrict && !hasCampus {
		return rows
	}

	cell := func(i, idx int, bound bool) string {
		if !bound {
			return ""
		}
		return strings.TrimSpace(table.Cell(i, idx))
	}

	seen := make(map[[2]string]struct{}, len(rows))
	return filterRows(rows, func(i int) bool {
		key := [2]string{cell(i, districtIdx, hasDistrict), cell(i, campusIdx, hasCampus)}
		if key[0] == "" && key[1] == "" {
			return true
		}
		if _, dup := seen[key]; dup {
			return false
		}
		seen[key] = struct{}{}
		return true
	})
}

func filterRows(rows []int, keep func(int) bool) []int {
	out := make([]int, 0, len(rows))
	for _, i := range rows {
		if keep(i) {
			out = append(out, i)
		}
	}
	return out
}
