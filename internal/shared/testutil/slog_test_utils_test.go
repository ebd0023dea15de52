package testutil

import (
	"log/slog"
	"testing"
)

func TestBufferedSlogHandler(t *testing.T) {
	t.Run("captures log records", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("rows cleaned", slog.String("table", "cleaned"))
		logger.Error("write failed", slog.Int("code", 5))

		if handler.Count() != 2 {
			t.Errorf("Expected 2 records, got %d", handler.Count())
		}
		if !handler.ContainsMessage("rows cleaned") {
			t.Error("Expected to find 'rows cleaned'")
		}
		if !handler.ContainsAttr("table", "cleaned") {
			t.Error("Expected to find attribute table=cleaned")
		}
		if !handler.ContainsAttr("code", int64(5)) {
			t.Error("Expected to find attribute code=5")
		}
	})

	t.Run("keeps attrs from With and groups", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		cleaner := logger.With("component", "cleaner")
		cleaner.Info("cleaning completed")
		cleaner.WithGroup("report").Info("summary", slog.Int("duplicates", 2))
		logger.Info("unrelated")

		if got := len(handler.GetRecordsByComponent("cleaner")); got != 2 {
			t.Errorf("Expected 2 cleaner records, got %d", got)
		}
		if !handler.ContainsAttr("report.duplicates", int64(2)) {
			t.Error("Expected grouped attribute report.duplicates=2")
		}
	})

	t.Run("filters by level", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Debug("debug msg")
		logger.Info("info msg")
		logger.Warn("warn msg")
		logger.Error("error msg")

		if got := len(handler.GetRecordsByLevel(slog.LevelInfo)); got != 1 {
			t.Errorf("Expected 1 info record, got %d", got)
		}
		if got := len(handler.GetRecordsByLevel(slog.LevelDebug)); got != 1 {
			t.Errorf("Expected 1 debug record, got %d", got)
		}
	})

	t.Run("clear functionality", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("message 1")
		logger.With("component", "x").Info("message 2")
		handler.Clear()

		if handler.Count() != 0 {
			t.Errorf("Expected 0 records after clear, got %d", handler.Count())
		}
	})

	t.Run("assertion helpers", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("important message", slog.String("component", "test"))
		logger.Warn("warning message", slog.Int("retry", 3))

		AssertLogContains(t, handler, slog.LevelInfo, "important")
		AssertLogAttr(t, handler, "component", "test")
		AssertNoErrors(t, handler)
	})
}
