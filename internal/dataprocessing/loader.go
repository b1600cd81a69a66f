package dataprocessing

import (
	"context"
	"fmt"
	"time"

	"loandash/pkg/contracts/domain"
)

// LoadResult is a cleaned table with the counts of what cleaning dropped.
type LoadResult struct {
	Table  *domain.Table
	Report CleaningReport
}

// Load reads src and returns the cleaned table. The records depend only on
// the source content.
func Load(ctx context.Context, src Source) (*domain.Table, error) {
	res, err := LoadWithReport(ctx, src)
	if err != nil {
		return nil, err
	}
	return res.Table, nil
}

// LoadWithReport is Load that also returns the cleaning report.
func LoadWithReport(ctx context.Context, src Source) (*LoadResult, error) {
	raw, err := src.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", src, err)
	}
	res, err := Build(raw, src.String())
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", src, err)
	}
	return res, nil
}

// Build parses and cleans an already fetched sheet. The header is the first
// row.
func Build(raw *RawSheet, source string) (*LoadResult, error) {
	if raw == nil || len(raw.Rows) == 0 {
		return nil, ErrEmptySource
	}

	schema, err := ParseHeader(raw.Rows[0])
	if err != nil {
		return nil, err
	}

	records, err := schema.ParseRows(raw.Rows[1:], 2)
	if err != nil {
		return nil, err
	}

	cleaned, report := Clean(records, DefaultRules(schema.Extended))
	table := domain.NewTable(cleaned, domain.TableMeta{
		Source:   source,
		Digest:   raw.Digest,
		Extended: schema.Extended,
		LoadedAt: time.Now().UTC(),
	})
	return &LoadResult{Table: table, Report: report}, nil
}
