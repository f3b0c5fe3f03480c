package exporter

import (
	"strconv"
)

// formatFloat formats a float64 without trailing zeros
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatInt formats an int64 value for CSV output
func formatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}

// formatBool formats a boolean value for CSV output
func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// Missing values are written as empty cells.

func formatCount(v *int64) string {
	if v == nil {
		return ""
	}
	return formatInt(*v)
}

func formatPct(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatText(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
