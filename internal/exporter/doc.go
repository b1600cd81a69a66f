// Package exporter writes the filtered loan view for download.
//
// CSV output is UTF-8 with a header row and the cleaned table's column
// order; an optional BOM helps Excel detect the encoding. The same rows can
// be written as a single-sheet XLSX workbook.
//
// Example usage:
//
//	res := dataprocessing.Apply(table, filters)
//	err := exporter.WriteLoansCSV(w, res.Records, exporter.LoanExportOptions{
//	    Extended: table.Extended(),
//	})
//
// StreamWriter is the lower level piece: it encodes rows to any io.Writer.
package exporter
