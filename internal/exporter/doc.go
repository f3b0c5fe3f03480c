// Package exporter writes enrollment and directory tables as CSV.
//
// CSVWriter handles files: relative paths land in the exports directory and
// files carry a UTF-8 BOM so Excel opens them correctly. EnrollmentExporter
// renders the wide layout (one column per grade the source carried) and the
// tidy layout, which grade-band aggregates share. DirectoryExporter renders
// the raw organizations listing or the joined directory.
//
// Missing and suppressed counts are both written as empty cells.
//
// Example usage:
//
//	exp := exporter.NewEnrollmentExporter(paths, logger)
//	err := exp.Export(table, "enrollment_2024.csv")
package exporter
