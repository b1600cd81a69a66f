// Package dataprocessing loads, cleans and aggregates the car loan
// applications behind the dashboard.
//
// # Architecture
//
// The package is organized into four components:
//
// 1. Sources: fetch the raw sheet from an XLSX workbook, a CSV file or a
// Google Sheets range
// 2. Parser: maps header names (English or French) to fields and converts
// rows into records
// 3. Cleaning: ordered rules that drop out-of-range records and derive
// department, request date and age
// 4. Analytics: filter evaluation, KPIs, groupings and filter options
//
// # Usage
//
//	table, err := dataprocessing.Load(ctx, &dataprocessing.XLSXSource{Path: "demandes.xlsx"})
//	if err != nil {
//	    return err
//	}
//	res := dataprocessing.Apply(table, domain.Filters{
//	    domain.FieldLoanType: domain.NewValueSet("LOA"),
//	})
//
// A Cache memoizes tables by source so repeated loads of unchanged content
// reuse the parsed table; concurrent loads of one source share a single
// parse.
//
// # Data Flow
//
//	Source → RawSheet → Schema.ParseRows → Clean → Table → Apply → FilteredResult
//
// # Error Handling
//
// Load errors wrap one of ErrUnreadableSource, ErrEmptySource,
// ErrMissingColumn or ErrMalformedDateParts and name the source; row errors
// carry the 1-based sheet line.
package dataprocessing
