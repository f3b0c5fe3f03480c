package domain

import "fmt"

// DatasetID names a logical source table published by the Agency of Education.
type DatasetID string

const (
	DatasetEnrollment      DatasetID = "enrollment"
	DatasetOrganizations   DatasetID = "organizations"
	DatasetPrincipals      DatasetID = "principals"
	DatasetSuperintendents DatasetID = "superintendents"
)

// DatasetKind identifies the shape of a cached table.
type DatasetKind string

const (
	KindEnrollmentWide DatasetKind = "enrollment-wide"
	KindEnrollmentTidy DatasetKind = "enrollment-tidy"
	KindDirectoryRaw   DatasetKind = "directory-raw"
	KindDirectoryTidy  DatasetKind = "directory-tidy"
	KindRawSourceBlob  DatasetKind = "raw-source-blob"
)

// AllDatasetKinds lists every cacheable kind.
var AllDatasetKinds = []DatasetKind{
	KindEnrollmentWide,
	KindEnrollmentTidy,
	KindDirectoryRaw,
	KindDirectoryTidy,
	KindRawSourceBlob,
}

// ParseDatasetKind validates a kind name.
func ParseDatasetKind(s string) (DatasetKind, error) {
	for _, k := range AllDatasetKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown dataset kind %q", s)
}
