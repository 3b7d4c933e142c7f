package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// AnalysisKind labels an analysis_log row.
type AnalysisKind string

const (
	AnalysisTrust       AnalysisKind = "trust"
	AnalysisTransition  AnalysisKind = "transition"
	AnalysisGaps        AnalysisKind = "gaps"
	AnalysisConnections AnalysisKind = "connections"
)

// AnalysisRecord is one archived engine run.
type AnalysisRecord struct {
	ID            int64           `json:"id"`
	Kind          AnalysisKind    `json:"kind"`
	ChapterNumber int             `json:"chapter_number"`
	Score         int             `json:"score"`
	Payload       json.RawMessage `json:"payload"`
	CreatedAt     time.Time       `json:"created_at"`
}

// LogAnalysis archives one engine result. The payload is stored as JSON; a
// payload that cannot marshal is recorded as an empty object rather than
// failing the log write.
func (s *Store) LogAnalysis(ctx context.Context, kind AnalysisKind, chapterNumber, score int, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte("{}")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO analysis_log (kind, chapter_number, score, payload)
		VALUES (?, ?, ?, ?)`,
		string(kind), chapterNumber, score, string(data))
	if err != nil {
		return fmt.Errorf("logging %s analysis: %w", kind, err)
	}
	return nil
}

// RecentAnalyses returns the newest records of a kind, newest first.
func (s *Store) RecentAnalyses(ctx context.Context, kind AnalysisKind, limit int) ([]AnalysisRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, chapter_number, score, payload, created_at
		FROM analysis_log WHERE kind = ?
		ORDER BY id DESC LIMIT ?`, string(kind), limit)
	if err != nil {
		return nil, fmt.Errorf("listing %s analyses: %w", kind, err)
	}
	defer rows.Close()

	var out []AnalysisRecord
	for rows.Next() {
		var r AnalysisRecord
		var payload string
		if err := rows.Scan(&r.ID, &r.Kind, &r.ChapterNumber, &r.Score, &payload, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning analysis record: %w", err)
		}
		r.Payload = json.RawMessage(payload)
		out = append(out, r)
	}
	return out, rows.Err()
}

// AverageAnalysisScore returns the mean score for a kind, or 0 when the log
// has no rows of that kind.
func (s *Store) AverageAnalysisScore(ctx context.Context, kind AnalysisKind) (float64, error) {
	var avg float64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(AVG(score), 0) FROM analysis_log WHERE kind = ?`, string(kind)).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("averaging %s scores: %w", kind, err)
	}
	return avg, nil
}

// Counts returns per-table row counts for observability.
func (s *Store) Counts(ctx context.Context) (map[string]int64, error) {
	tables := []string{
		"characters", "relationships", "chapters", "scenes", "arcs",
		"items", "techniques", "antagonists", "world_entries", "analysis_log",
	}
	out := make(map[string]int64, len(tables))
	for _, t := range tables {
		var n int64
		// Table names come from the fixed list above.
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t).Scan(&n); err != nil {
			return nil, fmt.Errorf("counting %s: %w", t, err)
		}
		out[t] = n
	}
	return out, nil
}
