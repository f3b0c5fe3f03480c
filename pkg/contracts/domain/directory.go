package domain

// DirectoryRecord is one school or supervisory union from the state
// organizations listing, joined with its principal and superintendent.
type DirectoryRecord struct {
	OrgID               string   `json:"org_id" validate:"required"`
	OrgName             string   `json:"org_name"`
	OrgType             string   `json:"org_type"`
	OrgLevel            OrgLevel `json:"type"`
	DistrictID          *string  `json:"district_id"`
	DistrictName        *string  `json:"district_name"`
	Address             *string  `json:"address"`
	City                *string  `json:"city"`
	State               *string  `json:"state"`
	Zip                 *string  `json:"zip"`
	Phone               *string  `json:"phone"`
	County              *string  `json:"county"`
	GradeSpan           *string  `json:"grade_span"`
	PrincipalName       *string  `json:"principal_name"`
	PrincipalEmail      *string  `json:"principal_email"`
	SuperintendentName  *string  `json:"superintendent_name"`
	SuperintendentEmail *string  `json:"superintendent_email"`
	IsDistrict          bool     `json:"is_district"`
	IsCampus            bool     `json:"is_campus"`
}

// DirectoryTable carries the result of a directory query. Raw holds the
// organizations listing as published; Records holds the joined directory.
type DirectoryTable struct {
	Shape   TableShape        `json:"shape"`
	Raw     *RawTable         `json:"raw,omitempty"`
	Records []DirectoryRecord `json:"records,omitempty"`
}

// Len returns the number of rows in the populated layout.
func (t *DirectoryTable) Len() int {
	if t.Shape == ShapeTidy {
		return len(t.Records)
	}
	return t.Raw.Len()
}
