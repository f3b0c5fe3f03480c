package cache

import (
	"time"

	"github.com/almartin82/vtschooldata/internal/config"
	"github.com/almartin82/vtschooldata/pkg/contracts/domain"
)

// Policy is the maximum age per dataset kind. Zero means an entry never
// goes stale and stays until it is invalidated.
type Policy map[domain.DatasetKind]time.Duration

// DefaultPolicy keeps downloads for a day, directory tables for thirty days
// and enrollment tables until cleared.
func DefaultPolicy() Policy {
	return Policy{
		domain.KindRawSourceBlob:  config.RawSourceMaxAge,
		domain.KindDirectoryRaw:   config.DirectoryMaxAge,
		domain.KindDirectoryTidy:  config.DirectoryMaxAge,
		domain.KindEnrollmentWide: 0,
		domain.KindEnrollmentTidy: 0,
	}
}

// PolicyFromConfig applies the configured max ages.
func PolicyFromConfig(cfg config.CacheConfig) Policy {
	return Policy{
		domain.KindRawSourceBlob:  cfg.RawMaxAge,
		domain.KindDirectoryRaw:   cfg.DirectoryMaxAge,
		domain.KindDirectoryTidy:  cfg.DirectoryMaxAge,
		domain.KindEnrollmentWide: cfg.EnrollmentMaxAge,
		domain.KindEnrollmentTidy: cfg.EnrollmentMaxAge,
	}
}

// MaxAge returns the limit for kind; kinds missing from p never expire.
func (p Policy) MaxAge(kind domain.DatasetKind) time.Duration {
	return p[kind]
}

// Fresh reports whether an entry of kind that is age old may be served.
func (p Policy) Fresh(kind domain.DatasetKind, age time.Duration) bool {
	limit := p.MaxAge(kind)
	return limit <= 0 || age <= limit
}
