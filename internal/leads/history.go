package leads

import (
	"context"
	"encoding/json"
	"log/slog"
)

// LineReader returns the last limit raw lines of a journal. store.Worker
// implements it.
type LineReader interface {
	Read(ctx context.Context, journal string, limit int) ([]string, error)
}

// ReadLeads decodes the most recent lead records. Lines that are not valid
// JSON are skipped.
func ReadLeads(ctx context.Context, r LineReader, file string, limit int) ([]LeadRecord, error) {
	return readRecords[LeadRecord](ctx, r, file, limit)
}

// ReadFeedback decodes the most recent feedback records.
func ReadFeedback(ctx context.Context, r LineReader, file string, limit int) ([]FeedbackRecord, error) {
	return readRecords[FeedbackRecord](ctx, r, file, limit)
}

func readRecords[T any](ctx context.Context, r LineReader, file string, limit int) ([]T, error) {
	lines, err := r.Read(ctx, file, limit)
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(lines))
	for i, line := range lines {
		var rec T
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			slog.Warn("Skipping malformed journal line", "file", file, "line", i, "error", err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
