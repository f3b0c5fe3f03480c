package dataprocessing

import (
	"math"
	"strings"
	"unicode"

	"github.com/spf13/cast"
)

// suppressionMarkers are the cell values the Agency of Education uses for
// suppressed or unavailable counts, upper-cased.
var suppressionMarkers = map[string]struct{}{
	"*":    {},
	"***":  {},
	".":    {},
	"-":    {},
	"-1":   {},
	"<5":   {},
	"N/A":  {},
	"NA":   {},
	"":     {},
	"NULL": {},
}

// IsSuppressed reports whether text is a suppression marker.
func IsSuppressed(text string) bool {
	_, ok := suppressionMarkers[strings.ToUpper(strings.TrimSpace(text))]
	return ok
}

// Sanitize converts a raw cell to a number. The second result is false when
// the cell is suppressed, blank or not numeric; callers cannot tell those
// cases apart and should not need to.
func Sanitize(text string) (float64, bool) {
	s := stripThousands(strings.TrimSpace(text))
	if IsSuppressed(s) {
		return 0, false
	}

	v, err := cast.ToFloat64E(s)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// SanitizeCount is Sanitize for head counts: the value is rounded to the
// nearest integer and negative values are treated as missing.
func SanitizeCount(text string) *int64 {
	v, ok := Sanitize(text)
	if !ok || v < 0 {
		return nil
	}
	n := int64(math.Round(v))
	return &n
}

// stripThousands drops commas that sit between two digits.
func stripThousands(s string) string {
	if !strings.Contains(s, ",") {
		return s
	}

	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s))
	for i, r := range runes {
		if r == ',' && i > 0 && i < len(runes)-1 &&
			unicode.IsDigit(runes[i-1]) && unicode.IsDigit(runes[i+1]) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
