package dataprocessing

import (
	"github.com/almartin82/vtschooldata/pkg/contracts/domain"
)

// GradeBand is a named set of grade levels summed into one row.
type GradeBand struct {
	Level  domain.GradeLevel
	Grades []domain.GradeLevel
}

// Bands are emitted in this order for every group.
var Bands = []GradeBand{
	{Level: domain.BandK8, Grades: []domain.GradeLevel{
		domain.GradeK, domain.Grade01, domain.Grade02, domain.Grade03, domain.Grade04,
		domain.Grade05, domain.Grade06, domain.Grade07, domain.Grade08,
	}},
	{Level: domain.BandHS, Grades: []domain.GradeLevel{
		domain.Grade09, domain.Grade10, domain.Grade11, domain.Grade12,
	}},
	{Level: domain.BandK12, Grades: []domain.GradeLevel{
		domain.GradeK, domain.Grade01, domain.Grade02, domain.Grade03, domain.Grade04,
		domain.Grade05, domain.Grade06, domain.Grade07, domain.Grade08,
		domain.Grade09, domain.Grade10, domain.Grade11, domain.Grade12,
	}},
}

type optString struct {
	value string
	set   bool
}

func optOf(s *string) optString {
	if s == nil {
		return optString{}
	}
	return optString{value: *s, set: true}
}

// bandGroupKey is every tidy field except grade level, count and pct.
type bandGroupKey struct {
	endYear      int
	orgLevel     domain.OrgLevel
	districtID   optString
	districtName optString
	campusID     optString
	campusName   optString
	county       optString
	subgroup     string
	isState      bool
	isDistrict   bool
	isCampus     bool
}

func groupKeyOf(r domain.TidyRecord) bandGroupKey {
	return bandGroupKey{
		endYear:      r.EndYear,
		orgLevel:     r.OrgLevel,
		districtID:   optOf(r.DistrictID),
		districtName: optOf(r.DistrictName),
		campusID:     optOf(r.CampusID),
		campusName:   optOf(r.CampusName),
		county:       optOf(r.County),
		subgroup:     r.Subgroup,
		isState:      r.IsState,
		isDistrict:   r.IsDistrict,
		isCampus:     r.IsCampus,
	}
}

type bandGroup struct {
	template domain.TidyRecord
	counts   map[domain.GradeLevel]int64
}

// AggregateBands sums tidy rows into K8, HS and K12 rows per organization.
// Missing grades count as zero and Pct is always nil. Rows outside the
// total_enrollment subgroup are ignored.
func AggregateBands(rows []domain.TidyRecord) []domain.GradeBandAggregate {
	var order []bandGroupKey
	groups := make(map[bandGroupKey]*bandGroup)

	for _, r := range rows {
		if r.Subgroup != domain.SubgroupTotalEnrollment {
			continue
		}
		key := groupKeyOf(r)
		g, ok := groups[key]
		if !ok {
			g = &bandGroup{template: r, counts: make(map[domain.GradeLevel]int64)}
			groups[key] = g
			order = append(order, key)
		}
		if r.NStudents != nil {
			g.counts[r.GradeLevel] += *r.NStudents
		}
	}

	out := make([]domain.GradeBandAggregate, 0, len(order)*len(Bands))
	for _, key := range order {
		g := groups[key]
		for _, band := range Bands {
			var n int64
			for _, grade := range band.Grades {
				n += g.counts[grade]
			}
			row := g.template
			row.DistrictID = cloneString(row.DistrictID)
			row.DistrictName = cloneString(row.DistrictName)
			row.CampusID = cloneString(row.CampusID)
			row.CampusName = cloneString(row.CampusName)
			row.County = cloneString(row.County)
			row.GradeLevel = band.Level
			row.NStudents = &n
			row.Pct = nil
			out = append(out, row)
		}
	}
	return out
}
