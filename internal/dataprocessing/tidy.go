package dataprocessing

import (
	"github.com/almartin82/vtschooldata/pkg/contracts/domain"
)

// Tidy reshapes wide records to one row per organization and grade level,
// in the order TOTAL, PK, K, 01..12. Rows without a count are dropped.
func Tidy(wide []domain.CanonicalOrgRecord) []domain.TidyRecord {
	out := make([]domain.TidyRecord, 0, len(wide)*(len(domain.GradeKeys)+1))

	for _, rec := range wide {
		if rec.RowTotal != nil {
			one := 1.0
			out = append(out, newTidyRow(rec, domain.GradeTotal, rec.RowTotal, &one))
		}

		for _, key := range domain.GradeKeys {
			n, ok := rec.Grades[key]
			if !ok || n == nil {
				continue
			}
			out = append(out, newTidyRow(rec, key, n, gradePct(*n, rec.RowTotal)))
		}
	}

	return out
}

func newTidyRow(rec domain.CanonicalOrgRecord, level domain.GradeLevel, n *int64, pct *float64) domain.TidyRecord {
	isState, isDistrict, isCampus := LevelFlags(rec.OrgLevel)
	return domain.TidyRecord{
		EndYear:      rec.EndYear,
		OrgLevel:     rec.OrgLevel,
		DistrictID:   cloneString(rec.DistrictID),
		DistrictName: cloneString(rec.DistrictName),
		CampusID:     cloneString(rec.CampusID),
		CampusName:   cloneString(rec.CampusName),
		County:       cloneString(rec.County),
		GradeLevel:   level,
		Subgroup:     domain.SubgroupTotalEnrollment,
		NStudents:    cloneInt(n),
		Pct:          pct,
		IsState:      isState,
		IsDistrict:   isDistrict,
		IsCampus:     isCampus,
	}
}

// gradePct is n/total when total > 0, 0 when total is 0, nil when unknown.
func gradePct(n int64, total *int64) *float64 {
	if total == nil {
		return nil
	}
	var p float64
	if *total > 0 {
		p = float64(n) / float64(*total)
	}
	return &p
}

// ClassifyLevels returns a copy of rows with the level flags re-derived from
// OrgLevel through LevelFlags.
func ClassifyLevels(rows []domain.TidyRecord) []domain.TidyRecord {
	out := make([]domain.TidyRecord, len(rows))
	for i, r := range rows {
		r.IsState, r.IsDistrict, r.IsCampus = LevelFlags(r.OrgLevel)
		out[i] = r
	}
	return out
}
