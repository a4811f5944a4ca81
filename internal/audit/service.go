package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ideapods/moderation/internal/moderation"
)

// DB is the subset of *pgxpool.Pool the audit service needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Entry is one recorded verdict. The raw text is never stored; only the
// sanitized variant of flagged content is.
type Entry struct {
	ModerationID     string    `json:"moderation_id"`
	ContentID        string    `json:"content_id,omitempty"`
	Category         string    `json:"category"`
	Source           string    `json:"source"`
	Allowed          bool      `json:"is_allowed"`
	Confidence       float64   `json:"confidence"`
	Violations       []string  `json:"violations"`
	SanitizedContent *string   `json:"sanitized_content,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// FromVerdict builds the audit entry for a verdict.
func FromVerdict(v moderation.Verdict, contentID string, category moderation.Category) Entry {
	violations := make([]string, len(v.Violations))
	for i, k := range v.Violations {
		violations[i] = string(k)
	}
	return Entry{
		ModerationID:     v.ID,
		ContentID:        contentID,
		Category:         string(category),
		Source:           string(v.Source),
		Allowed:          v.Allowed,
		Confidence:       v.Confidence,
		Violations:       violations,
		SanitizedContent: v.SanitizedContent,
	}
}

type Service struct {
	db DB
}

func NewService(db DB) *Service {
	return &Service{db: db}
}

func (s *Service) Record(ctx context.Context, e Entry) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO moderation_audit (moderation_id, content_id, category, source, is_allowed, confidence, violations, sanitized_content)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ModerationID, e.ContentID, e.Category, e.Source, e.Allowed, e.Confidence, e.Violations, e.SanitizedContent,
	)
	if err != nil {
		return fmt.Errorf("insert moderation audit: %w", err)
	}
	return nil
}

// Recent returns the newest entries first. limit is clamped to [1, 200].
func (s *Service) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	limit = min(limit, 200)

	rows, err := s.db.Query(ctx,
		`SELECT moderation_id::text, content_id, category, source, is_allowed, confidence, violations, sanitized_content, created_at
		 FROM moderation_audit ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query moderation audit: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ModerationID, &e.ContentID, &e.Category, &e.Source, &e.Allowed,
			&e.Confidence, &e.Violations, &e.SanitizedContent, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan moderation audit: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate moderation audit: %w", err)
	}
	return entries, nil
}
