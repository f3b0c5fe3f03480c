package domain

// OrgLevel is the aggregation level of an enrollment row.
type OrgLevel string

const (
	LevelState    OrgLevel = "State"
	LevelDistrict OrgLevel = "District"
	LevelCampus   OrgLevel = "Campus"
)

// GradeLevel labels a tidy row. Grade keys, TOTAL and the band labels share
// one type so band aggregates and tidy rows can be concatenated.
type GradeLevel string

const (
	GradeTotal GradeLevel = "TOTAL"
	GradePK    GradeLevel = "PK"
	GradeK     GradeLevel = "K"
	Grade01    GradeLevel = "01"
	Grade02    GradeLevel = "02"
	Grade03    GradeLevel = "03"
	Grade04    GradeLevel = "04"
	Grade05    GradeLevel = "05"
	Grade06    GradeLevel = "06"
	Grade07    GradeLevel = "07"
	Grade08    GradeLevel = "08"
	Grade09    GradeLevel = "09"
	Grade10    GradeLevel = "10"
	Grade11    GradeLevel = "11"
	Grade12    GradeLevel = "12"

	BandK8  GradeLevel = "K8"
	BandHS  GradeLevel = "HS"
	BandK12 GradeLevel = "K12"
)

// GradeKeys is the canonical order of per-grade fields in the wide schema.
var GradeKeys = []GradeLevel{
	GradePK, GradeK,
	Grade01, Grade02, Grade03, Grade04, Grade05, Grade06,
	Grade07, Grade08, Grade09, Grade10, Grade11, Grade12,
}

// SubgroupTotalEnrollment is the only subgroup published for this dataset.
const SubgroupTotalEnrollment = "total_enrollment"

// GradeFields maps a grade key to a nullable count. A key missing from the
// map means the source had no column for it; a nil value means the column
// existed but the cell was suppressed or blank.
type GradeFields map[GradeLevel]*int64

// CanonicalOrgRecord is one organization's enrollment for one year (wide schema).
type CanonicalOrgRecord struct {
	EndYear           int         `json:"end_year" validate:"required"`
	OrgLevel          OrgLevel    `json:"type" validate:"required,oneof=State District Campus"`
	DistrictID        *string     `json:"district_id"`
	DistrictName      *string     `json:"district_name"`
	CampusID          *string     `json:"campus_id"`
	CampusName        *string     `json:"campus_name"`
	County            *string     `json:"county"`
	Grades            GradeFields `json:"grades"`
	RowTotal          *int64      `json:"row_total"`
	DerivedFromCampus bool        `json:"derived_from_campus,omitempty"`
}

// Grade returns the count for key and whether the source carried that field.
func (r CanonicalOrgRecord) Grade(key GradeLevel) (*int64, bool) {
	v, ok := r.Grades[key]
	return v, ok
}

// TidyRecord is one (organization, grade level) observation (long schema).
type TidyRecord struct {
	EndYear      int        `json:"end_year"`
	OrgLevel     OrgLevel   `json:"type"`
	DistrictID   *string    `json:"district_id"`
	DistrictName *string    `json:"district_name"`
	CampusID     *string    `json:"campus_id"`
	CampusName   *string    `json:"campus_name"`
	County       *string    `json:"county"`
	GradeLevel   GradeLevel `json:"grade_level"`
	Subgroup     string     `json:"subgroup"`
	NStudents    *int64     `json:"n_students"`
	Pct          *float64   `json:"pct"`
	IsState      bool       `json:"is_state"`
	IsDistrict   bool       `json:"is_district"`
	IsCampus     bool       `json:"is_campus"`
}

// GradeBandAggregate is a derived K8, HS or K12 row. It shares the tidy
// shape so the two tables can be stacked; Pct is always nil.
type GradeBandAggregate = TidyRecord

// TableShape selects between the wide and tidy enrollment layouts.
type TableShape string

const (
	ShapeWide TableShape = "wide"
	ShapeTidy TableShape = "tidy"
)

// EnrollmentTable carries the result of an enrollment query. Exactly one of
// Wide or Tidy is populated, according to Shape.
type EnrollmentTable struct {
	Shape TableShape           `json:"shape"`
	Wide  []CanonicalOrgRecord `json:"wide,omitempty"`
	Tidy  []TidyRecord         `json:"tidy,omitempty"`
}

// Len returns the number of rows in the populated layout.
func (t *EnrollmentTable) Len() int {
	if t.Shape == ShapeTidy {
		return len(t.Tidy)
	}
	return len(t.Wide)
}

// Append concatenates other onto t. Shapes must match.
func (t *EnrollmentTable) Append(other *EnrollmentTable) {
	t.Wide = append(t.Wide, other.Wide...)
	t.Tidy = append(t.Tidy, other.Tidy...)
}
