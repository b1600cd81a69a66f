package exporter

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamWriter(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		bom     bool
		records [][]string
		want    string
	}{
		{
			name:    "quoted values",
			headers: []string{"department", "count"},
			records: [][]string{{"75", "10"}, {"13", "a, quoted"}},
			want:    "department,count\n75,10\n13,\"a, quoted\"\n",
		},
		{
			name:    "bom and headers only",
			headers: []string{"loan_type"},
			bom:     true,
			want:    string(utf8BOM) + "loan_type\n",
		},
		{
			name:    "no headers",
			records: [][]string{{"LOA", "20"}},
			want:    "LOA,20\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			sw, err := NewStreamWriter(&buf, tt.headers, tt.bom)
			require.NoError(t, err)
			for _, r := range tt.records {
				require.NoError(t, sw.WriteRecord(r))
			}
			require.NoError(t, sw.Flush())
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestStreamWriter_WriteError(t *testing.T) {
	_, err := NewStreamWriter(failingWriter{}, nil, true)
	assert.ErrorContains(t, err, "failed to write BOM")

	sw, err := NewStreamWriter(failingWriter{}, []string{"a"}, false)
	require.NoError(t, err)
	assert.ErrorContains(t, sw.Flush(), "disk full")
}
