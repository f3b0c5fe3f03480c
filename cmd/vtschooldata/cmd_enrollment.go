package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/almartin82/vtschooldata/internal/config"
	"github.com/almartin82/vtschooldata/internal/dataprocessing"
	"github.com/almartin82/vtschooldata/internal/exporter"
	"github.com/almartin82/vtschooldata/pkg/contracts/domain"
)

func (c *cli) yearsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "years",
		Short: "List the school years with published enrollment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			years := c.app.Enrollment.AvailableYears()
			rows := make([][]string, len(years))
			for i, y := range years {
				rows[i] = []string{cast.ToString(y), dataprocessing.FormatYear(y)}
			}
			return c.emit(years, []string{"end_year", "school_year"}, rows)
		},
	}
}

func (c *cli) fetchCmd() *cobra.Command {
	var (
		years []int
		tidy  bool
		out   string
	)

	cmd := &cobra.Command{
		Use:   "fetch [end-year...]",
		Short: "Fetch enrollment for one or more school years",
		Long: `Fetch enrollment for the given end years (2024 is the 2023-24 school
year). Without years the latest available year is fetched. Years may be
given as arguments or with --years.`,
		Example: `  vtschooldata fetch 2024
  vtschooldata fetch --years 2022,2023,2024 --tidy --format csv
  vtschooldata fetch 2024 --out enrollment_2024.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			endYears, err := collectYears(years, args)
			if err != nil {
				return err
			}

			table, err := c.app.Enrollment.FetchEnrollmentMulti(cmd.Context(), endYears, tidy)
			if err != nil {
				return err
			}
			return c.writeEnrollment(cmd, table, out)
		},
	}

	cmd.Flags().IntSliceVar(&years, "years", nil, "end years to fetch, comma separated")
	cmd.Flags().BoolVar(&tidy, "tidy", false, "one row per organization, grade and subgroup")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write CSV to this file instead of stdout")
	return cmd
}

func (c *cli) bandsCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "bands <end-year>",
		Short: "Grade-band totals (K-8, 9-12, K-12) for a year",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := cast.ToIntE(args[0])
			if err != nil {
				return fmt.Errorf("%q is not a year", args[0])
			}

			table, err := c.app.Enrollment.FetchEnrollment(cmd.Context(), year, true)
			if err != nil {
				return err
			}

			bands := c.app.Enrollment.GradeBandAggregates(table.Tidy)
			return c.writeEnrollment(cmd, &domain.EnrollmentTable{Shape: domain.ShapeTidy, Tidy: bands}, out)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "write CSV to this file instead of stdout")
	return cmd
}

func (c *cli) writeEnrollment(cmd *cobra.Command, table *domain.EnrollmentTable, out string) error {
	if out != "" {
		if err := exporter.NewEnrollmentExporter(nil, c.logger).Export(table, out); err != nil {
			return err
		}
		c.logger.InfoContext(cmd.Context(), "enrollment exported",
			slog.String("path", out),
			slog.Int("rows", table.Len()))
		return nil
	}

	headers, rows := exporter.EnrollmentRecords(table)
	var data interface{} = table.Wide
	if table.Shape == domain.ShapeTidy {
		data = table.Tidy
	}
	return c.emit(data, headers, rows)
}

// collectYears merges --years with positional years, defaulting to the
// latest available year.
func collectYears(flagYears []int, args []string) ([]int, error) {
	years := append([]int(nil), flagYears...)
	for _, a := range args {
		y, err := cast.ToIntE(a)
		if err != nil {
			return nil, fmt.Errorf("%q is not a year", a)
		}
		years = append(years, y)
	}
	if len(years) == 0 {
		years = []int{config.MaxYear}
	}
	return years, nil
}
