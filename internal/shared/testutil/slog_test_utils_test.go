package testutil

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferedSlogHandler(t *testing.T) {
	t.Run("captures log records", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("Dataset loaded", slog.String("source", "xlsx:demandes.xlsx"))
		logger.Error("Reload failed", slog.Int("status", 502))

		assert.Equal(t, 2, handler.Count())
		assert.True(t, handler.ContainsMessage("Dataset loaded"))
		assert.True(t, handler.ContainsAttr("source", "xlsx:demandes.xlsx"))
		assert.Len(t, handler.GetRecordsByLevel(slog.LevelError), 1)
	})

	t.Run("derived loggers share records and keep attrs", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.With("component", "dataset_service").Info("reloaded")
		logger.WithGroup("filters").Info("applied", "loan_type", 2)

		assert.True(t, handler.ContainsAttr("component", "dataset_service"))
		assert.True(t, handler.ContainsAttr("filters.loan_type", int64(2)))
		AssertLogContains(t, handler, slog.LevelInfo, "applied")
	})

	t.Run("clear", func(t *testing.T) {
		logger, handler := NewTestLogger(t)
		logger.Info("one")
		handler.Clear()
		assert.Equal(t, 0, handler.Count())
		AssertNoErrors(t, handler)
	})
}
