// Package api contains the HTTP contract of the enrollment API.
// Version v1 represents the current stable API version.
package api

// TableQuery selects enrollment years and output layout. Years come from
// the {year} path segment or a comma separated ?years= list.
type TableQuery struct {
	Years  []int  `json:"years" query:"years" validate:"required,min=1,max=30"`
	Tidy   bool   `json:"tidy" query:"tidy"`
	Format string `json:"format" query:"format" validate:"omitempty,oneof=json csv"`
}

// DirectoryQuery selects the directory layout.
type DirectoryQuery struct {
	Tidy   bool   `json:"tidy" query:"tidy"`
	Format string `json:"format" query:"format" validate:"omitempty,oneof=json csv"`
}

// InvalidateRequest names the cache entries to drop. Directory entries
// live under year 0.
type InvalidateRequest struct {
	Kind string `json:"kind" param:"kind" validate:"required,dataset_kind"`
	Year int    `json:"year" param:"year" validate:"min=0"`
}
