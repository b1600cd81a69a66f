package dataprocessing

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestLoadXLSX(t *testing.T) {
	path := writeWorkbook(t, baseHeader, [][]interface{}{
		row("Crédit classique", "A", "Octroyé", "75001", 2021, 3, 10000, -5),
		row("Crédit classique", "B", "Octroyé", "75002", 2021, 3, 12000, 150),
		row("LOA", "B", "Refusé", "1000", 2021, 3, 8000, 42.5),
		row("LOA", "C", "Octroyé", "13001", 2021, 13, 9000, 20),
	})

	table, err := Load(context.Background(), &XLSXSource{Path: path})
	require.NoError(t, err)

	require.Equal(t, 2, table.Len())
	assert.False(t, table.Extended())

	kept := table.At(0)
	assert.Equal(t, 42.5, kept.DebtRatio.Float64)
	assert.Equal(t, "01000", kept.PostalCode)
	assert.Equal(t, "01", kept.Department)
	assert.Equal(t, "2021-03-01", kept.RequestDate.String())

	nullDate := table.At(1)
	assert.False(t, nullDate.RequestDate.Valid)

	meta := table.Meta()
	assert.Equal(t, "xlsx:"+path, meta.Source)
	assert.Len(t, meta.Digest, 64)
}

func TestLoadXLSXNamedSheet(t *testing.T) {
	path := writeWorkbook(t, extendedHeader, nil)

	_, err := Load(context.Background(), &XLSXSource{Path: path, Sheet: "Absent"})
	assert.ErrorIs(t, err, ErrUnreadableSource)

	table, err := Load(context.Background(), &XLSXSource{Path: path, Sheet: "Demandes"})
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
	assert.True(t, table.Extended())
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	partial := filepath.Join(dir, "partial.csv")
	require.NoError(t, os.WriteFile(partial, []byte("loan_type,debt_ratio\nLOA,10\n"), 0o644))
	garbage := filepath.Join(dir, "garbage.xlsx")
	require.NoError(t, os.WriteFile(garbage, []byte("not a workbook"), 0o644))

	tests := []struct {
		name string
		src  Source
		want error
	}{
		{"missing file", &XLSXSource{Path: filepath.Join(dir, "absent.xlsx")}, ErrUnreadableSource},
		{"corrupt workbook", &XLSXSource{Path: garbage}, ErrUnreadableSource},
		{"empty csv", &CSVSource{Path: empty}, ErrEmptySource},
		{"missing columns", &CSVSource{Path: partial}, ErrMissingColumn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := Load(context.Background(), tt.src)
			assert.Nil(t, table)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewFileSource(t *testing.T) {
	src, err := NewFileSource("data/demandes.XLSX", "Feuil1")
	require.NoError(t, err)
	assert.Equal(t, "xlsx:data/demandes.XLSX#Feuil1", src.String())

	src, err = NewFileSource("export.csv", "")
	require.NoError(t, err)
	assert.IsType(t, &CSVSource{}, src)

	_, err = NewFileSource("demandes.ods", "")
	assert.ErrorIs(t, err, ErrUnreadableSource)
}

func TestLoadXLSXIgnoresNumberFormats(t *testing.T) {
	path := writeWorkbook(t, baseHeader, [][]interface{}{
		row("Crédit classique", "A", "Octroyé", "75001", 2021, 3, 12345, 30),
		row("LOA", "B", "Octroyé", "75002", 2021, 3, 1234.5, 0.425),
	})

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	thousands, err := f.NewStyle(&excelize.Style{NumFmt: 3})
	require.NoError(t, err)
	decimals, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	require.NoError(t, err)
	percent, err := f.NewStyle(&excelize.Style{NumFmt: 10})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle("Demandes", "J2", "J2", thousands))
	require.NoError(t, f.SetCellStyle("Demandes", "J3", "J3", decimals))
	require.NoError(t, f.SetCellStyle("Demandes", "N3", "N3", percent))
	require.NoError(t, f.Save())
	require.NoError(t, f.Close())

	table, err := Load(context.Background(), &XLSXSource{Path: path})
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())

	assert.Equal(t, 12345.0, table.At(0).LoanAmount.Float64)
	assert.True(t, table.At(1).LoanAmount.Valid)
	assert.Equal(t, 1234.5, table.At(1).LoanAmount.Float64)
	assert.Equal(t, 0.425, table.At(1).DebtRatio.Float64)
}
