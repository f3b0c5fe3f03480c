package services

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/almartin82/vtschooldata/internal/cache"
	"github.com/almartin82/vtschooldata/internal/config"
	apperrors "github.com/almartin82/vtschooldata/internal/errors"
	"github.com/almartin82/vtschooldata/internal/shared/testutil"
	"github.com/almartin82/vtschooldata/pkg/contracts/domain"
)

func TestEnrollmentService_AvailableYears(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	years := svc.AvailableYears()
	assert.Equal(t, config.MinYear, years[0])
	assert.Equal(t, config.MaxYear, years[len(years)-1])
	assert.Len(t, years, config.MaxYear-config.MinYear+1)
}

func TestEnrollmentService_InvalidYearFetchesNothing(t *testing.T) {
	svc, fetcher, _, _ := newTestService(t)
	ctx := context.Background()

	for _, year := range []int{1999, config.MinYear - 1, config.MaxYear + 1} {
		_, err := svc.FetchEnrollment(ctx, year, false)
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrInvalidYear)
	}

	_, err := svc.FetchEnrollmentMulti(ctx, []int{2024, 1999}, true)
	assert.ErrorIs(t, err, apperrors.ErrInvalidYear)

	fetcher.AssertNotCalled(t, "FetchSourceTable", mock.Anything, mock.Anything, mock.Anything)
}

func TestEnrollmentService_FetchEnrollment(t *testing.T) {
	svc, fetcher, _, handler := newTestService(t)
	ctx := context.Background()

	fetcher.On("FetchSourceTable", mock.Anything, domain.DatasetEnrollment, 2024).
		Return(testutil.SampleVEDTable(), nil).Once()

	wide, err := svc.FetchEnrollment(ctx, 2024, false)
	require.NoError(t, err)
	assert.Equal(t, domain.ShapeWide, wide.Shape)
	require.Equal(t, 5, wide.Len())
	assert.Equal(t, domain.LevelState, wide.Wide[0].OrgLevel)
	assert.Equal(t, int64(2619), *wide.Wide[0].RowTotal)

	// Served from cache, including the tidy form built from the cached wide table.
	again, err := svc.FetchEnrollment(ctx, 2024, false)
	require.NoError(t, err)
	assert.Equal(t, wide.Wide[0].Grades, again.Wide[0].Grades)

	tidy, err := svc.FetchEnrollment(ctx, 2024, true)
	require.NoError(t, err)
	assert.Equal(t, domain.ShapeTidy, tidy.Shape)
	assert.Equal(t, svc.Tidy(wide.Wide), tidy.Tidy)

	tidyAgain, err := svc.FetchEnrollment(ctx, 2024, true)
	require.NoError(t, err)
	assert.Equal(t, tidy.Tidy, tidyAgain.Tidy)

	fetcher.AssertNumberOfCalls(t, "FetchSourceTable", 1)
	testutil.AssertLogContains(t, handler, slog.LevelInfo, "enrollment built")
}

func TestEnrollmentService_CachedWideKeepsAbsentAndNullGrades(t *testing.T) {
	svc, fetcher, _, _ := newTestService(t)
	ctx := context.Background()

	fetcher.On("FetchSourceTable", mock.Anything, domain.DatasetEnrollment, 2024).
		Return(testutil.SampleVEDTable(), nil).Once()

	first, err := svc.FetchEnrollment(ctx, 2024, false)
	require.NoError(t, err)
	cached, err := svc.FetchEnrollment(ctx, 2024, false)
	require.NoError(t, err)

	campus := cached.Wide[2]
	pk, ok := campus.Grade(domain.GradePK)
	assert.True(t, ok)
	assert.Nil(t, pk)
	assert.Equal(t, len(first.Wide[2].Grades), len(campus.Grades))
}

func TestEnrollmentService_FetchEnrollmentMulti(t *testing.T) {
	svc, fetcher, _, _ := newTestService(t)
	ctx := context.Background()

	fetcher.On("FetchSourceTable", mock.Anything, domain.DatasetEnrollment, mock.AnythingOfType("int")).
		Return(testutil.SampleVEDTable(), nil)

	wide, err := svc.FetchEnrollmentMulti(ctx, []int{2024, 2023}, false)
	require.NoError(t, err)
	require.Equal(t, 5+2, wide.Len())
	for i, rec := range wide.Wide {
		want := 2024
		if i >= 5 {
			want = 2023
		}
		assert.Equal(t, want, rec.EndYear, "row %d", i)
	}

	tidy, err := svc.FetchEnrollmentMulti(ctx, []int{2023, 2024}, true)
	require.NoError(t, err)
	assert.Equal(t, 2023, tidy.Tidy[0].EndYear)
	assert.Equal(t, 2024, tidy.Tidy[len(tidy.Tidy)-1].EndYear)

	_, err = svc.FetchEnrollmentMulti(ctx, nil, false)
	assert.ErrorIs(t, err, &apperrors.AppError{Type: apperrors.ErrTypeValidation})
}

func TestEnrollmentService_Errors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection reset by peer")

	t.Run("fetch failure is wrapped unchanged", func(t *testing.T) {
		svc, fetcher, _, _ := newTestService(t)
		fetcher.On("FetchSourceTable", mock.Anything, domain.DatasetEnrollment, 2024).Return(nil, boom)

		_, err := svc.FetchEnrollment(ctx, 2024, false)
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrSourceUnavailable)
		assert.Same(t, boom, errors.Unwrap(err))
	})

	t.Run("classified errors pass through", func(t *testing.T) {
		svc, fetcher, _, _ := newTestService(t)
		original := apperrors.NewSourceUnavailableError("enrollment", boom)
		fetcher.On("FetchSourceTable", mock.Anything, domain.DatasetEnrollment, 2024).Return(nil, original)

		_, err := svc.FetchEnrollment(ctx, 2024, true)
		assert.Same(t, original, err)
	})

	t.Run("no rows for year", func(t *testing.T) {
		svc, fetcher, c, _ := newTestService(t)
		fetcher.On("FetchSourceTable", mock.Anything, domain.DatasetEnrollment, 2019).
			Return(testutil.SampleVEDTable(), nil)

		_, err := svc.FetchEnrollment(ctx, 2019, false)
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrNoDataForYear)
		assert.Contains(t, err.Error(), "2019")

		status, err := c.Status(ctx)
		require.NoError(t, err)
		assert.Empty(t, status, "failures are not cached")
	})
}

func TestEnrollmentService_TransformStages(t *testing.T) {
	svc, fetcher, _, _ := newTestService(t)
	fetcher.On("FetchSourceTable", mock.Anything, domain.DatasetEnrollment, 2024).
		Return(testutil.SampleVEDTable(), nil)

	wide, err := svc.FetchEnrollment(context.Background(), 2024, false)
	require.NoError(t, err)

	tidy := svc.Tidy(wide.Wide)
	assert.Equal(t, tidy, svc.ClassifyLevels(tidy))

	bands := svc.GradeBandAggregates(tidy)
	require.Len(t, bands, 15)
	for i := 0; i < len(bands); i += 3 {
		assert.Equal(t, *bands[i+2].NStudents, *bands[i].NStudents+*bands[i+1].NStudents)
	}
}

func directoryTables() (orgs, principals, supers *domain.RawTable) {
	orgs = domain.NewRawTable([]string{"Org ID", "Org Name", "Org Type", "SU ID"}, [][]string{
		{"SU001", "Addison Central SU", "SU", "SU001"},
		{"PS001", "Bridport Central", "Public School", "SU001"},
	})
	principals = domain.NewRawTable([]string{"Org ID", "Principal", "Email"}, [][]string{
		{"PS001", "Ada Lovelace", "ada@example.org"},
	})
	supers = domain.NewRawTable([]string{"SU ID", "Superintendent"}, [][]string{
		{"SU001", "Grace Hopper"},
	})
	return orgs, principals, supers
}

func TestEnrollmentService_FetchDirectory(t *testing.T) {
	svc, fetcher, _, _ := newTestService(t)
	ctx := context.Background()
	orgs, principals, supers := directoryTables()

	fetcher.On("FetchSourceTable", mock.Anything, domain.DatasetOrganizations, 0).Return(orgs, nil).Once()
	fetcher.On("FetchSourceTable", mock.Anything, domain.DatasetPrincipals, 0).Return(principals, nil).Once()
	fetcher.On("FetchSourceTable", mock.Anything, domain.DatasetSuperintendents, 0).Return(supers, nil).Once()

	dir, err := svc.FetchDirectory(ctx, true)
	require.NoError(t, err)
	require.Equal(t, 2, dir.Len())
	assert.Equal(t, "Ada Lovelace", *dir.Records[1].PrincipalName)
	assert.Equal(t, "Grace Hopper", *dir.Records[1].SuperintendentName)

	cached, err := svc.FetchDirectory(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, dir.Records, cached.Records)

	raw, err := svc.FetchDirectory(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, orgs.Columns, raw.Raw.Columns)
	assert.Equal(t, 2, raw.Len())

	fetcher.AssertExpectations(t)
}

func TestEnrollmentService_FetchDirectoryWithoutContacts(t *testing.T) {
	svc, fetcher, _, handler := newTestService(t)
	orgs, _, _ := directoryTables()

	fetcher.On("FetchSourceTable", mock.Anything, domain.DatasetOrganizations, 0).Return(orgs, nil)
	fetcher.On("FetchSourceTable", mock.Anything, domain.DatasetPrincipals, 0).
		Return(nil, apperrors.NewSourceUnavailableError("principals", errors.New("404")))
	fetcher.On("FetchSourceTable", mock.Anything, domain.DatasetSuperintendents, 0).
		Return(nil, apperrors.NewSourceUnavailableError("superintendents", errors.New("404")))

	dir, err := svc.FetchDirectory(context.Background(), true)
	require.NoError(t, err)
	assert.Nil(t, dir.Records[1].PrincipalName)
	assert.Len(t, handler.GetRecordsByLevel(slog.LevelWarn), 2)
}

func TestEnrollmentService_FetchDirectoryFailure(t *testing.T) {
	svc, fetcher, _, _ := newTestService(t)
	fetcher.On("FetchSourceTable", mock.Anything, domain.DatasetOrganizations, 0).Return(nil, errors.New("timeout"))

	_, err := svc.FetchDirectory(context.Background(), false)
	assert.ErrorIs(t, err, apperrors.ErrSourceUnavailable)
}

func TestEnrollmentService_CacheAdministration(t *testing.T) {
	svc, fetcher, c, _ := newTestService(t)
	ctx := context.Background()

	fetcher.On("FetchSourceTable", mock.Anything, domain.DatasetEnrollment, mock.AnythingOfType("int")).
		Return(testutil.SampleVEDTable(), nil)

	_, err := svc.FetchEnrollment(ctx, 2024, true)
	require.NoError(t, err)
	_, err = svc.FetchEnrollment(ctx, 2023, false)
	require.NoError(t, err)

	status, err := svc.CacheStatus(ctx)
	require.NoError(t, err)
	assert.Len(t, status, 3)

	n, err := svc.InvalidateCache(ctx, domain.KindEnrollmentTidy, 2024)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = svc.InvalidateCache(ctx, domain.DatasetKind("bogus"), 2024)
	assert.ErrorIs(t, err, &apperrors.AppError{Type: apperrors.ErrTypeValidation})

	n, err = svc.PruneCache(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "enrollment tables never expire by default")

	n, err = svc.ClearCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, ok, err := c.Get(ctx, cache.NewKey(2024, domain.KindEnrollmentWide))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEnrollmentService_WithoutCache(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	fetcher := &MockSourceFetcher{}
	fetcher.On("FetchSourceTable", mock.Anything, domain.DatasetEnrollment, 2024).Return(testutil.SampleVEDTable(), nil)
	svc := NewEnrollmentService(fetcher, nil, logger, nil)
	ctx := context.Background()

	_, err := svc.FetchEnrollment(ctx, 2024, false)
	require.NoError(t, err)
	_, err = svc.FetchEnrollment(ctx, 2024, false)
	require.NoError(t, err)
	fetcher.AssertNumberOfCalls(t, "FetchSourceTable", 2)

	status, err := svc.CacheStatus(ctx)
	require.NoError(t, err)
	assert.Empty(t, status)
}
