package config

import (
	"time"

	"github.com/almartin82/vtschooldata/pkg/contracts"
)

// Application constants
const (
	AppName    = "vtschooldata"
	AppVersion = contracts.Version

	// Published enrollment range, as end years of the school year.
	MinYear = 2004
	MaxYear = 2025

	// Freshness policy defaults
	RawSourceMaxAge = 24 * time.Hour
	DirectoryMaxAge = 30 * 24 * time.Hour

	DefaultPruneSchedule   = "@every 6h"
	DefaultHTTPTimeout     = 60 * time.Second
	DefaultPipelineTimeout = 5 * time.Minute
	DefaultSourceRPS       = 2.0
)

// Agency of Education endpoints
const (
	DefaultEnrollmentPageURL  = "https://education.vermont.gov/data-and-reporting/school-reports/enrollment-reports"
	DefaultOrganizationsURL   = "https://education.vermont.gov/documents/data-organizations-listing"
	DefaultPrincipalsURL      = "https://education.vermont.gov/documents/data-principals-listing"
	DefaultSuperintendentsURL = "https://education.vermont.gov/documents/data-superintendents-listing"
)

// AvailableYears returns the contiguous range of published end years.
func AvailableYears() []int {
	years := make([]int, 0, MaxYear-MinYear+1)
	for y := MinYear; y <= MaxYear; y++ {
		years = append(years, y)
	}
	return years
}

// IsAvailableYear reports whether year falls inside the published range.
func IsAvailableYear(year int) bool {
	return year >= MinYear && year <= MaxYear
}
