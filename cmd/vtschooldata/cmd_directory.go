package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/almartin82/vtschooldata/internal/exporter"
	"github.com/almartin82/vtschooldata/pkg/contracts/domain"
)

func (c *cli) directoryCmd() *cobra.Command {
	var (
		tidy bool
		out  string
	)

	cmd := &cobra.Command{
		Use:   "directory",
		Short: "Fetch the school and district directory",
		Long: `Fetch the organization directory merged with principal and
superintendent contacts. Without --tidy the organization listing is
returned with its published columns.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table, err := c.app.Enrollment.FetchDirectory(cmd.Context(), tidy)
			if err != nil {
				return err
			}

			if out != "" {
				if err := exporter.NewDirectoryExporter(nil, c.logger).Export(table, out); err != nil {
					return err
				}
				c.logger.InfoContext(cmd.Context(), "directory exported",
					slog.String("path", out),
					slog.Int("rows", table.Len()))
				return nil
			}

			headers, rows := exporter.DirectoryRecords(table)
			var data interface{} = table.Records
			if table.Shape != domain.ShapeTidy {
				data = table.Raw
			}
			return c.emit(data, headers, rows)
		},
	}

	cmd.Flags().BoolVar(&tidy, "tidy", false, "normalize to one record per organization with contacts")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write CSV to this file instead of stdout")
	return cmd
}
