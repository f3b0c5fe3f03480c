package cache

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/almartin82/vtschooldata/pkg/contracts/domain"
)

var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Key addresses one cached table. Name qualifies raw-source-blob entries so
// the enrollment export and the directory listings of one year do not
// collide; it is empty for processed tables.
type Key struct {
	EndYear int
	Kind    domain.DatasetKind
	Name    string
}

// NewKey builds a key without a name qualifier.
func NewKey(endYear int, kind domain.DatasetKind) Key {
	return Key{EndYear: endYear, Kind: kind}
}

// RawKey builds the key for a downloaded source file of dataset.
func RawKey(endYear int, dataset domain.DatasetID) Key {
	return Key{EndYear: endYear, Kind: domain.KindRawSourceBlob, Name: string(dataset)}
}

// String renders the key as year/kind or year/kind/name.
func (k Key) String() string {
	if k.Name == "" {
		return fmt.Sprintf("%d/%s", k.EndYear, k.Kind)
	}
	return fmt.Sprintf("%d/%s/%s", k.EndYear, k.Kind, k.Name)
}

// Validate rejects unknown kinds and names that are unsafe as path segments.
func (k Key) Validate() error {
	if k.EndYear < 0 {
		return fmt.Errorf("invalid cache key %s: negative year", k)
	}
	if _, err := domain.ParseDatasetKind(string(k.Kind)); err != nil {
		return fmt.Errorf("invalid cache key %s: %w", k, err)
	}
	if k.Name != "" && !namePattern.MatchString(k.Name) {
		return fmt.Errorf("invalid cache key %s: bad name %q", k, k.Name)
	}
	return nil
}

// ParseKey is the inverse of String.
func ParseKey(s string) (Key, error) {
	parts := strings.Split(strings.Trim(s, "/"), "/")
	if len(parts) < 2 || len(parts) > 3 {
		return Key{}, fmt.Errorf("invalid cache key %q", s)
	}

	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return Key{}, fmt.Errorf("invalid cache key %q: %w", s, err)
	}

	k := Key{EndYear: year, Kind: domain.DatasetKind(parts[1])}
	if len(parts) == 3 {
		k.Name = parts[2]
	}
	if err := k.Validate(); err != nil {
		return Key{}, err
	}
	return k, nil
}

// MarshalText encodes the key as its string form.
func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses the string form.
func (k *Key) UnmarshalText(text []byte) error {
	parsed, err := ParseKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
