package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/almartin82/vtschooldata/internal/config"
)

func TestParseYear(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"2023-24", 2024, false},
		{"2023-2024", 2024, false},
		{"SY 2023-24", 2024, false},
		{"sy2023-24", 2024, false},
		{"2024", 2024, false},
		{" 2024 ", 2024, false},
		{"2009 - 10", 2010, false},
		{"2007-08", 2008, false},
		{"2008-09", 2009, false},
		{"2009–10", 2010, false},
		{"abc", 0, true},
		{"2023-xx", 0, true},
		{"ab-24", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseYear(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// The two-digit expansion borrows the start year's century, so a label
// spanning a century boundary resolves a hundred years early.
func TestParseYear_CenturyBoundaryLimitation(t *testing.T) {
	got, err := ParseYear("1999-00")
	require.NoError(t, err)
	assert.Equal(t, 1900, got)

	got, err = ParseYear("1999-2000")
	require.NoError(t, err)
	assert.Equal(t, 2000, got)
}

func TestFormatYear(t *testing.T) {
	assert.Equal(t, "2023-24", FormatYear(2024))
	assert.Equal(t, "2008-09", FormatYear(2009))
	assert.Equal(t, "2009-10", FormatYear(2010))
}

func TestYearRoundTrip(t *testing.T) {
	for _, y := range config.AvailableYears() {
		got, err := ParseYear(FormatYear(y))
		require.NoError(t, err)
		assert.Equal(t, y, got)
	}
}
