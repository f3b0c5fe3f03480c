package main

import (
	"fmt"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/almartin82/vtschooldata/pkg/contracts/domain"
)

func (c *cli) cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the local cache",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "List cached entries with their age and freshness",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				entries, err := c.app.Enrollment.CacheStatus(cmd.Context())
				if err != nil {
					return err
				}

				rows := make([][]string, len(entries))
				for i, e := range entries {
					rows[i] = []string{
						e.Kind,
						cast.ToString(e.EndYear),
						cast.ToString(e.Size),
						e.StoredAt.Format(time.RFC3339),
						e.Age.Round(time.Second).String(),
						cast.ToString(e.Fresh),
					}
				}
				return c.emit(entries, []string{"kind", "end_year", "bytes", "stored_at", "age", "fresh"}, rows)
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove every cached entry",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				n, err := c.app.Enrollment.ClearCache(cmd.Context())
				if err != nil {
					return err
				}
				return c.reportRemoved(n)
			},
		},
		&cobra.Command{
			Use:   "prune",
			Short: "Remove entries older than their configured max age",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				n, err := c.app.Enrollment.PruneCache(cmd.Context())
				if err != nil {
					return err
				}
				return c.reportRemoved(n)
			},
		},
		&cobra.Command{
			Use:   "invalidate <kind> <end-year>",
			Short: "Remove the entries of one kind and year",
			Long: `Remove the entries of one kind and year. Kinds are enrollment-wide,
enrollment-tidy, directory-raw, directory-tidy and raw-source-blob. Directory
entries are stored under year 0.`,
			Args: cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				kind, err := domain.ParseDatasetKind(args[0])
				if err != nil {
					return err
				}
				year, err := cast.ToIntE(args[1])
				if err != nil {
					return fmt.Errorf("%q is not a year", args[1])
				}

				n, err := c.app.Enrollment.InvalidateCache(cmd.Context(), kind, year)
				if err != nil {
					return err
				}
				return c.reportRemoved(n)
			},
		},
	)
	return cmd
}

func (c *cli) reportRemoved(n int) error {
	return c.emit(map[string]int{"removed": n}, []string{"removed"}, [][]string{{cast.ToString(n)}})
}
