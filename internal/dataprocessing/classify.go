package dataprocessing

import (
	"github.com/almartin82/vtschooldata/pkg/contracts/domain"
)

// ClassifyAndAggregate turns mapped rows into wide records and prepends the
// synthesized State row. A row with a campus id is a Campus; anything else
// is a District. The State row sums District rows, or Campus rows when the
// year has no District rows, never both.
func ClassifyAndAggregate(endYear int, rows []MappedRow) []domain.CanonicalOrgRecord {
	records := make([]domain.CanonicalOrgRecord, 0, len(rows)+1)
	records = append(records, domain.CanonicalOrgRecord{}) // State placeholder

	var districts, campuses []int
	for _, row := range rows {
		rec := domain.CanonicalOrgRecord{
			EndYear:  endYear,
			Grades:   cloneGrades(row.Grades),
			RowTotal: cloneInt(row.RowTotal),
			County:   cloneString(row.County),
		}

		if row.CampusID != nil {
			rec.OrgLevel = domain.LevelCampus
			rec.CampusID = cloneString(row.CampusID)
			rec.CampusName = cloneString(row.CampusName)
			// Parent linkage only when the source carries it.
			rec.DistrictID = cloneString(row.DistrictID)
			rec.DistrictName = cloneString(row.DistrictName)
			campuses = append(campuses, len(records))
		} else {
			rec.OrgLevel = domain.LevelDistrict
			rec.DistrictID = cloneString(row.DistrictID)
			rec.DistrictName = cloneString(row.DistrictName)
			districts = append(districts, len(records))
		}
		records = append(records, rec)
	}

	constituents := districts
	fromCampus := false
	if len(districts) == 0 && len(campuses) > 0 {
		constituents = campuses
		fromCampus = true
	}

	records[0] = aggregateState(endYear, records, constituents)
	records[0].DerivedFromCampus = fromCampus
	return records
}

// aggregateState sums the records at idx. A grade absent from every
// constituent stays absent; one that is null in every constituent stays null.
func aggregateState(endYear int, records []domain.CanonicalOrgRecord, idx []int) domain.CanonicalOrgRecord {
	state := domain.CanonicalOrgRecord{
		EndYear:  endYear,
		OrgLevel: domain.LevelState,
		Grades:   make(domain.GradeFields),
	}

	for _, i := range idx {
		rec := records[i]
		for key, v := range rec.Grades {
			state.Grades[key] = addNullSafe(state.Grades[key], v)
		}
		state.RowTotal = addNullSafe(state.RowTotal, rec.RowTotal)
	}
	return state
}

// addNullSafe adds b onto acc. nil + nil stays nil.
func addNullSafe(acc, b *int64) *int64 {
	if b == nil {
		return acc
	}
	n := *b
	if acc != nil {
		n += *acc
	}
	return &n
}

// LevelFlags derives is_state, is_district and is_campus from an org level.
// It is the only place the flags are computed.
func LevelFlags(level domain.OrgLevel) (isState, isDistrict, isCampus bool) {
	switch level {
	case domain.LevelState:
		return true, false, false
	case domain.LevelDistrict:
		return false, true, false
	default:
		return false, false, true
	}
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneInt(n *int64) *int64 {
	if n == nil {
		return nil
	}
	v := *n
	return &v
}

func cloneGrades(g domain.GradeFields) domain.GradeFields {
	out := make(domain.GradeFields, len(g))
	for k, v := range g {
		out[k] = cloneInt(v)
	}
	return out
}
