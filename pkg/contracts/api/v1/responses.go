package api

import (
	"time"

	"github.com/almartin82/vtschooldata/pkg/contracts/domain"
)

// TableResponse wraps an enrollment or directory table.
type TableResponse struct {
	Shape domain.TableShape `json:"shape"`
	Count int               `json:"count"`
	Data  interface{}       `json:"data"`
}

// YearsResponse lists the available end years.
type YearsResponse struct {
	Years []int `json:"years"`
	Min   int   `json:"min"`
	Max   int   `json:"max"`
}

// CacheEntry describes one cached table.
type CacheEntry struct {
	Key        string    `json:"key"`
	Kind       string    `json:"kind"`
	EndYear    int       `json:"end_year"`
	Size       int64     `json:"size"`
	StoredAt   time.Time `json:"stored_at"`
	AgeSeconds float64   `json:"age_seconds"`
	Fresh      bool      `json:"fresh"`
}

// CacheStatusResponse lists the cache contents.
type CacheStatusResponse struct {
	Count   int          `json:"count"`
	Entries []CacheEntry `json:"entries"`
}

// RemovedResponse reports how many cache entries an operation removed.
type RemovedResponse struct {
	Removed int `json:"removed"`
}
