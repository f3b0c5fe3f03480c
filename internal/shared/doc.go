// Package shared groups helpers used across packages. Its testutil
// subpackage provides a capturing slog handler and source fixtures:
// pipe-delimited enrollment exports and excelize-built workbooks.
package shared
