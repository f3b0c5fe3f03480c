package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/almartin82/vtschooldata/internal/config"
	apperrors "github.com/almartin82/vtschooldata/internal/errors"
	"github.com/almartin82/vtschooldata/internal/shared/testutil"
	"github.com/almartin82/vtschooldata/pkg/contracts/domain"
)

type fixtureFetcher struct{}

func (fixtureFetcher) FetchSourceTable(_ context.Context, dataset domain.DatasetID, _ int) (*domain.RawTable, error) {
	switch dataset {
	case domain.DatasetEnrollment:
		return testutil.SampleVEDTable(), nil
	case domain.DatasetOrganizations:
		return domain.NewRawTable([]string{"Org ID", "Org Name", "Org Type", "SU ID"}, [][]string{
			{"SU001", "Addison Central SU", "SU", "SU001"},
			{"PS001", "Bridport Central", "Public School", "SU001"},
		}), nil
	default:
		return nil, apperrors.NewSourceUnavailableError(string(dataset), nil)
	}
}

// setupEnv points the cache at a temp dir so state survives between runs.
func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("VTSD_CACHE_DRIVER", "fs")
	t.Setenv("VTSD_CACHE_DIR", t.TempDir())
	t.Setenv("VTSD_TELEMETRY_METRICS_ENABLED", "false")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)

	var out bytes.Buffer
	c := &cli{out: &out, fetcher: fixtureFetcher{}, logger: logger}
	root := newRootCmd(c)
	root.SetArgs(args)

	err := root.Execute()
	c.close()
	return out.String(), err
}

func readCSV(t *testing.T, s string) [][]string {
	t.Helper()
	records, err := csv.NewReader(strings.NewReader(s)).ReadAll()
	require.NoError(t, err)
	return records
}

func TestYearsCommand(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "years", "--format", "csv")
	require.NoError(t, err)

	records := readCSV(t, out)
	require.Len(t, records, config.MaxYear-config.MinYear+2)
	assert.Equal(t, []string{"end_year", "school_year"}, records[0])
	assert.Equal(t, []string{"2004", "2003-04"}, records[1])

	out, err = run(t, "years")
	require.NoError(t, err)
	assert.Contains(t, out, "2024-25")
}

func TestFetchCommand(t *testing.T) {
	setupEnv(t)

	t.Run("wide csv", func(t *testing.T) {
		out, err := run(t, "fetch", "2024", "--format", "csv")
		require.NoError(t, err)

		records := readCSV(t, out)
		require.Len(t, records, 6)
		assert.Equal(t, "end_year", records[0][0])
		assert.Equal(t, "State", records[1][1])
	})

	t.Run("multiple years as json", func(t *testing.T) {
		out, err := run(t, "fetch", "--years", "2024,2023", "--format", "json")
		require.NoError(t, err)

		var rows []map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(out), &rows))
		require.Len(t, rows, 7)
		assert.EqualValues(t, 2024, rows[0]["end_year"])
		assert.EqualValues(t, 2023, rows[len(rows)-1]["end_year"])
	})

	t.Run("tidy json", func(t *testing.T) {
		out, err := run(t, "fetch", "2024", "--tidy", "--format", "json")
		require.NoError(t, err)

		var rows []map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(out), &rows))
		assert.Len(t, rows, 56)
	})

	t.Run("table", func(t *testing.T) {
		out, err := run(t, "fetch", "2024")
		require.NoError(t, err)
		assert.Contains(t, out, "Bridport Central")
		assert.Contains(t, out, "Burlington High")
	})

	t.Run("out file carries a BOM", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "enrollment.csv")

		out, err := run(t, "fetch", "2024", "--out", path)
		require.NoError(t, err)
		assert.Empty(t, out)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(data, []byte("\ufeffend_year,")))
	})

	t.Run("year out of range", func(t *testing.T) {
		out, err := run(t, "fetch", "1999")
		assert.ErrorIs(t, err, &apperrors.AppError{Type: apperrors.ErrTypeInvalidYear})
		assert.Empty(t, out)
	})

	t.Run("year not a number", func(t *testing.T) {
		_, err := run(t, "fetch", "twenty")
		assert.ErrorContains(t, err, `"twenty" is not a year`)
	})

	t.Run("no rows for year", func(t *testing.T) {
		_, err := run(t, "fetch", "2019")
		assert.ErrorIs(t, err, &apperrors.AppError{Type: apperrors.ErrTypeNoData})
	})
}

func TestBandsCommand(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "bands", "2024", "--format", "csv")
	require.NoError(t, err)

	records := readCSV(t, out)
	require.Len(t, records, 16)

	_, err = run(t, "bands")
	assert.Error(t, err)
}

func TestBandsCommand_HelpMatchesBands(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "bands", "2024", "--format", "csv")
	require.NoError(t, err)

	records := readCSV(t, out)
	col := -1
	for i, h := range records[0] {
		if h == "grade_level" {
			col = i
		}
	}
	require.GreaterOrEqual(t, col, 0)

	seen := map[string]bool{}
	for _, rec := range records[1:] {
		seen[rec[col]] = true
	}
	assert.Equal(t, map[string]bool{"K8": true, "HS": true, "K12": true}, seen)

	bands, _, err := newRootCmd(&cli{}).Find([]string{"bands"})
	require.NoError(t, err)
	assert.Equal(t, "Grade-band totals (K-8, 9-12, K-12) for a year", bands.Short)
}

func TestDirectoryCommand(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "directory", "--tidy", "--format", "json")
	require.NoError(t, err)

	var records []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "SU001", records[0]["org_id"])

	out, err = run(t, "directory", "--format", "csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"Org ID", "Org Name", "Org Type", "SU ID"}, readCSV(t, out)[0])
}

func TestCacheCommands(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "fetch", "2024", "--tidy", "--format", "csv")
	require.NoError(t, err)

	out, err := run(t, "cache", "status", "--format", "json")
	require.NoError(t, err)
	var entries []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	assert.Len(t, entries, 2)

	removed := func(out string) float64 {
		var body map[string]float64
		require.NoError(t, json.Unmarshal([]byte(out), &body))
		return body["removed"]
	}

	out, err = run(t, "cache", "invalidate", "enrollment-tidy", "2024", "--format", "json")
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed(out))

	_, err = run(t, "cache", "invalidate", "bogus", "2024")
	assert.Error(t, err)

	out, err = run(t, "cache", "prune", "--format", "json")
	require.NoError(t, err)
	assert.EqualValues(t, 0, removed(out))

	out, err = run(t, "cache", "clear", "--format", "json")
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed(out))
}

func TestUnknownFormat(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "years", "--format", "xml")
	assert.ErrorContains(t, err, `unknown format "xml"`)
}

func TestCollectYears(t *testing.T) {
	tests := []struct {
		name     string
		flag     []int
		args     []string
		expected []int
		wantErr  bool
	}{
		{name: "default", expected: []int{config.MaxYear}},
		{name: "flag then args", flag: []int{2022}, args: []string{"2024", "2023"}, expected: []int{2022, 2024, 2023}},
		{name: "bad arg", args: []string{"x"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := collectYears(tt.flag, tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
