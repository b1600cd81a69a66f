package exporter

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"loandash/pkg/contracts/domain"
)

// DefaultFilename is the download name of the filtered view.
const DefaultFilename = "donnees_filtrees_credits_auto.csv"

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts "csv" and "xlsx", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatXLSX:
		return f, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// ContentType is the HTTP media type of the format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Filename returns name with the format's extension.
func (f Format) Filename(name string) string {
	base := strings.TrimSuffix(strings.TrimSuffix(name, ".csv"), ".xlsx")
	return base + "." + string(f)
}

// LoanExportOptions describes one export of a filtered view.
type LoanExportOptions struct {
	Extended  bool
	BOMPrefix bool
	SheetName string
}

// WriteLoans writes records in the requested format.
func WriteLoans(w io.Writer, format Format, records []domain.LoanApplication, opts LoanExportOptions) error {
	switch format {
	case FormatXLSX:
		return WriteLoansXLSX(w, records, opts)
	case FormatCSV:
		return WriteLoansCSV(w, records, opts)
	}
	return fmt.Errorf("unsupported export format %q", format)
}

// WriteLoansCSV writes a header row and one row per record, in the cleaned
// table's column order. Output is UTF-8.
func WriteLoansCSV(w io.Writer, records []domain.LoanApplication, opts LoanExportOptions) error {
	cols := domain.TableColumns(opts.Extended)
	sw, err := NewStreamWriter(w, cols, opts.BOMPrefix)
	if err != nil {
		return err
	}
	for i, l := range records {
		if err := sw.WriteRecord(LoanRow(l, cols)); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	return sw.Flush()
}

// WriteLoansXLSX writes the same table as WriteLoansCSV to a single-sheet
// workbook.
func WriteLoansXLSX(w io.Writer, records []domain.LoanApplication, opts LoanExportOptions) error {
	sheet := opts.SheetName
	if sheet == "" {
		sheet = "Demandes"
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet writer: %w", err)
	}

	cols := domain.TableColumns(opts.Extended)
	header := make([]interface{}, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for i, l := range records {
		row := make([]interface{}, len(cols))
		for j, c := range cols {
			row[j] = cellValue(l, c)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
