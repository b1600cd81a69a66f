package dataprocessing

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/blake2b"
	"google.golang.org/api/sheets/v4"
)

// RawSheet is the untyped content of a source: a header row followed by
// data rows, plus a digest of the bytes it was read from.
type RawSheet struct {
	Name   string
	Rows   [][]string
	Digest string
}

// Source provides the raw dataset. String returns a stable identity used as
// the memoization key.
type Source interface {
	Fetch(ctx context.Context) (*RawSheet, error)
	String() string
}

// NewFileSource picks a source implementation from the file extension.
func NewFileSource(path, sheet string) (Source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return &XLSXSource{Path: path, Sheet: sheet}, nil
	case ".csv":
		return &CSVSource{Path: path}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported file type %q", ErrUnreadableSource, filepath.Ext(path))
	}
}

// Digest returns the hex BLAKE2b-256 sum of data.
func Digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// XLSXSource reads an Excel workbook. The first sheet is used when Sheet is
// empty.
type XLSXSource struct {
	Path  string
	Sheet string
}

func (s *XLSXSource) String() string {
	if s.Sheet == "" {
		return "xlsx:" + s.Path
	}
	return "xlsx:" + s.Path + "#" + s.Sheet
}

// Fetch reads the workbook and returns the rows of the selected sheet.
func (s *XLSXSource) Fetch(ctx context.Context) (*RawSheet, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableSource, s.Path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableSource, s.Path, err)
	}
	defer f.Close()

	sheet := s.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%w: %s has no sheets", ErrEmptySource, s.Path)
		}
		sheet = sheets[0]
	}

	// Raw values: a number format such as #,##0 or 0.00% would otherwise
	// change what the parser sees.
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: sheet %q: %v", ErrUnreadableSource, sheet, err)
	}

	return &RawSheet{Name: sheet, Rows: rows, Digest: Digest(data)}, nil
}

// CSVSource reads a comma separated file with a header row, as produced by
// the CSV export.
type CSVSource struct {
	Path string
}

func (s *CSVSource) String() string { return "csv:" + s.Path }

// Fetch reads and splits the file.
func (s *CSVSource) Fetch(ctx context.Context) (*RawSheet, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableSource, s.Path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	r.FieldsPerRecord = -1
	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableSource, s.Path, err)
		}
		rows = append(rows, rec)
	}

	return &RawSheet{Name: filepath.Base(s.Path), Rows: rows, Digest: Digest(data)}, nil
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SheetsSource reads a range of a Google spreadsheet through the Sheets API.
type SheetsSource struct {
	Service       *sheets.Service
	SpreadsheetID string
	Range         string
}

func (s *SheetsSource) String() string {
	return "gsheet:" + s.SpreadsheetID + "!" + s.Range
}

// Fetch retrieves unformatted cell values so numbers arrive as stored
// rather than as displayed. The digest covers the returned values since the
// API exposes no content hash.
func (s *SheetsSource) Fetch(ctx context.Context) (*RawSheet, error) {
	resp, err := s.Service.Spreadsheets.Values.Get(s.SpreadsheetID, s.Range).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("%w: spreadsheet %s: %v", ErrUnreadableSource, s.SpreadsheetID, err)
	}

	var buf bytes.Buffer
	rows := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, len(raw))
		for i, cell := range raw {
			row[i] = cellString(cell)
		}
		rows = append(rows, row)
		buf.WriteString(strings.Join(row, "\x1f"))
		buf.WriteByte('\x1e')
	}

	return &RawSheet{Name: resp.Range, Rows: rows, Digest: Digest(buf.Bytes())}, nil
}

func cellString(cell interface{}) string {
	switch v := cell.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
