package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/ideapods/moderation/internal/audit"
	"github.com/ideapods/moderation/internal/moderation"
	"github.com/ideapods/moderation/internal/queue"
)

type Moderator interface {
	Moderate(ctx context.Context, text string, category moderation.Category) moderation.Verdict
}

type Recorder interface {
	Record(ctx context.Context, e audit.Entry) error
}

// ModerationWorker moderates queued content and records the verdict.
type ModerationWorker struct {
	moderator Moderator
	recorder  Recorder
}

func NewModerationWorker(m Moderator, r Recorder) *ModerationWorker {
	return &ModerationWorker{moderator: m, recorder: r}
}

func (w *ModerationWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.ModerationRunPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	category, err := moderation.ParseCategory(payload.Category)
	if err != nil {
		return fmt.Errorf("content %s: %v: %w", payload.ContentID, err, asynq.SkipRetry)
	}

	v := w.moderator.Moderate(ctx, payload.Text, category)
	slog.Info("content moderated",
		"content_id", payload.ContentID,
		"moderation_id", v.ID,
		"category", category,
		"source", v.Source,
		"allowed", v.Allowed,
	)

	if w.recorder == nil {
		return nil
	}
	// A retry would moderate again under a new moderation ID, so audit
	// failures end the task.
	if err := w.recorder.Record(ctx, audit.FromVerdict(v, payload.ContentID, category)); err != nil {
		slog.Error("failed to record verdict",
			"content_id", payload.ContentID,
			"moderation_id", v.ID,
			"error", err,
		)
	}
	return nil
}
