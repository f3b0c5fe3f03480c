// Package dataprocessing normalizes Vermont enrollment and directory tables.
//
// # Stages
//
// A raw source table flows through these stages:
//
//	RawTable → Reconcile → MapColumns → ClassifyAndAggregate → wide records
//	wide records → Tidy → AggregateBands
//
// Reconcile drops rows for other years, picks the October census (DC#06)
// collection pass over the year-end pass (DC#04), and removes duplicate
// organizations. MapColumns binds each canonical field to the first
// matching alias in a ColumnCatalog, so both the VED pipe-delimited export
// and the older compact workbooks are handled without telling the mapper
// which one it is reading. ClassifyAndAggregate labels rows District or
// Campus and synthesizes the single State row.
//
// # Missing values
//
// Suppressed cells ("*", "<5", "N/A", ...) become nil counts. A grade whose
// column does not exist in the source is absent from GradeFields, which is
// different from nil. Neither case is an error.
//
// # Usage
//
//	p := dataprocessing.NewProcessor(logger, metrics)
//	wide, err := p.ProcessEnrollment(ctx, table, 2024)
//	if err != nil {
//	    return err
//	}
//	tidy := dataprocessing.Tidy(wide)
//	bands := dataprocessing.AggregateBands(tidy)
package dataprocessing
