package dataprocessing

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseYear converts a school-year label to its end year. It accepts
// "2023-24", "2023-2024", "SY 2023-24" and bare "2024".
//
// A two-digit end part takes the century of the start part, so "1999-00"
// yields 1900. Published years start in 2004 and the case never arises.
func ParseYear(text string) (int, error) {
	s := strings.TrimSpace(text)
	if len(s) >= 2 && strings.EqualFold(s[:2], "SY") {
		s = strings.TrimSpace(s[2:])
	}
	s = strings.ReplaceAll(s, "–", "-")

	start, end, found := strings.Cut(s, "-")
	if !found {
		year, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("unrecognized school year %q", text)
		}
		return year, nil
	}

	start = strings.TrimSpace(start)
	end = strings.TrimSpace(end)

	endYear, err := strconv.Atoi(end)
	if err != nil {
		return 0, fmt.Errorf("unrecognized school year %q", text)
	}
	if len(end) != 2 {
		return endYear, nil
	}

	startYear, err := strconv.Atoi(start)
	if err != nil {
		return 0, fmt.Errorf("unrecognized school year %q", text)
	}
	return startYear/100*100 + endYear, nil
}

// FormatYear renders an end year as "YYYY-YY", e.g. 2024 -> "2023-24".
func FormatYear(endYear int) string {
	return fmt.Sprintf("%d-%02d", endYear-1, endYear%100)
}
