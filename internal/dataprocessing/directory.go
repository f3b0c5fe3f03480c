package dataprocessing

import (
	"strings"

	"github.com/almartin82/vtschooldata/pkg/contracts/domain"
)

const (
	FieldOrgID      Field = "org_id"
	FieldOrgName    Field = "org_name"
	FieldOrgType    Field = "org_type"
	FieldAddress    Field = "address"
	FieldCity       Field = "city"
	FieldState      Field = "state"
	FieldZip        Field = "zip"
	FieldPhone      Field = "phone"
	FieldGradeSpan  Field = "grade_span"
	FieldPersonName Field = "person_name"
	FieldFirstName  Field = "first_name"
	FieldLastName   Field = "last_name"
	FieldEmail      Field = "email"
)

// DirectoryCatalog covers the organizations, principals and
// superintendents listings.
func DirectoryCatalog() ColumnCatalog {
	return ColumnCatalog{
		FieldOrgID:        {"ORG_ID", "ORGID", "ORGANIZATION_ID", "SCHOOL_ID", "SCHOOLID", "ID"},
		FieldOrgName:      {"ORG_NAME", "ORGNAME", "ORGANIZATION_NAME", "SCHOOL_NAME", "SCHOOLNAME", "NAME"},
		FieldOrgType:      {"ORG_TYPE", "ORGTYPE", "ORGANIZATION_TYPE", "TYPE"},
		FieldDistrictID:   {"SU_ID", "SUID", "SU_CODE", "SU", "LEA_ID", "DISTRICT_ID"},
		FieldDistrictName: {"SU_NAME", "SUNAME", "SUPERVISORY_UNION", "LEA_NAME", "DISTRICT_NAME"},
		FieldAddress:      {"ADDRESS", "ADDRESS1", "ADDRESS_1", "STREET", "MAILING_ADDRESS", "PHYSICAL_ADDRESS"},
		FieldCity:         {"CITY", "TOWN"},
		FieldState:        {"STATE", "ST"},
		FieldZip:          {"ZIP", "ZIPCODE", "ZIP_CODE", "POSTAL_CODE"},
		FieldPhone:        {"PHONE", "TELEPHONE", "PHONE_NUMBER"},
		FieldCounty:       {"COUNTY", "COUNTY_NAME"},
		FieldGradeSpan:    {"GRADES", "GRADE_SPAN", "GRADESPAN", "GRADES_SERVED", "GRADE_RANGE"},
		FieldPersonName:   {"PRINCIPAL", "PRINCIPAL_NAME", "SUPERINTENDENT", "SUPERINTENDENT_NAME", "FULL_NAME", "CONTACT_NAME"},
		FieldFirstName:    {"FIRST_NAME", "FIRSTNAME", "FNAME"},
		FieldLastName:     {"LAST_NAME", "LASTNAME", "LNAME"},
		FieldEmail:        {"EMAIL", "EMAIL_ADDRESS", "PRINCIPAL_EMAIL", "SUPERINTENDENT_EMAIL"},
	}
}

type contact struct {
	name  *string
	email *string
}

// NormalizeDirectory joins the organizations listing with principal contacts
// (by organization id) and superintendent contacts (by supervisory union id).
// principals and superintendents may be nil. Organizations without an id
// are skipped and repeated ids keep their first row.
func NormalizeDirectory(orgs, principals, superintendents *domain.RawTable) []domain.DirectoryRecord {
	if orgs.Len() == 0 {
		return nil
	}

	catalog := DirectoryCatalog()
	principalByOrg := indexContacts(principals, catalog, FieldOrgID)
	superByDistrict := indexContacts(superintendents, catalog, FieldDistrictID)

	b := catalog.Bind(orgs.Columns)
	seen := make(map[string]struct{}, orgs.Len())
	out := make([]domain.DirectoryRecord, 0, orgs.Len())

	for i := range orgs.Rows {
		text := cellReader(orgs, i, b)

		id := text(FieldOrgID)
		if id == nil {
			continue
		}
		if _, dup := seen[*id]; dup {
			continue
		}
		seen[*id] = struct{}{}

		rec := domain.DirectoryRecord{
			OrgID:        *id,
			OrgName:      deref(text(FieldOrgName)),
			OrgType:      deref(text(FieldOrgType)),
			DistrictID:   text(FieldDistrictID),
			DistrictName: text(FieldDistrictName),
			Address:      text(FieldAddress),
			City:         text(FieldCity),
			State:        text(FieldState),
			Zip:          text(FieldZip),
			Phone:        text(FieldPhone),
			County:       text(FieldCounty),
			GradeSpan:    text(FieldGradeSpan),
		}

		rec.OrgLevel = directoryLevel(rec)
		_, rec.IsDistrict, rec.IsCampus = LevelFlags(rec.OrgLevel)

		if c, ok := principalByOrg[rec.OrgID]; ok && rec.IsCampus {
			rec.PrincipalName, rec.PrincipalEmail = c.name, c.email
		}

		suKey := rec.OrgID
		if rec.IsCampus && rec.DistrictID != nil {
			suKey = *rec.DistrictID
		}
		if c, ok := superByDistrict[suKey]; ok {
			rec.SuperintendentName, rec.SuperintendentEmail = c.name, c.email
		}

		out = append(out, rec)
	}
	return out
}

// directoryLevel treats supervisory unions and districts as District rows.
func directoryLevel(rec domain.DirectoryRecord) domain.OrgLevel {
	if rec.DistrictID != nil && *rec.DistrictID == rec.OrgID {
		return domain.LevelDistrict
	}
	t := strings.ToUpper(rec.OrgType)
	if t == "SU" || t == "SD" || strings.Contains(t, "SUPERVISORY") || strings.Contains(t, "DISTRICT") {
		return domain.LevelDistrict
	}
	return domain.LevelCampus
}

func indexContacts(table *domain.RawTable, catalog ColumnCatalog, key Field) map[string]contact {
	out := make(map[string]contact)
	if table.Len() == 0 {
		return out
	}

	b := catalog.Bind(table.Columns)
	if !b.Has(key) {
		return out
	}

	for i := range table.Rows {
		text := cellReader(table, i, b)
		id := text(key)
		if id == nil {
			continue
		}
		if _, dup := out[*id]; dup {
			continue
		}

		name := text(FieldPersonName)
		if name == nil {
			name = joinNames(text(FieldFirstName), text(FieldLastName))
		}
		out[*id] = contact{name: name, email: text(FieldEmail)}
	}
	return out
}

func cellReader(table *domain.RawTable, i int, b Binding) func(Field) *string {
	return func(f Field) *string {
		idx, ok := b[f]
		if !ok {
			return nil
		}
		s := strings.TrimSpace(table.Cell(i, idx))
		if s == "" {
			return nil
		}
		return &s
	}
}

func joinNames(first, last *string) *string {
	parts := make([]string, 0, 2)
	for _, p := range []*string{first, last} {
		if p != nil {
			parts = append(parts, *p)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	s := strings.Join(parts, " ")
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
