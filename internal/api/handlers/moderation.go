package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ideapods/moderation/internal/audit"
	"github.com/ideapods/moderation/internal/moderation"
	"github.com/ideapods/moderation/internal/queue"
)

const maxBodyBytes = 64 << 10

type Moderator interface {
	Moderate(ctx context.Context, text string, category moderation.Category) moderation.Verdict
	QuickCheck(text string, category moderation.Category) bool
	TestServices(ctx context.Context) []string
}

type AuditLog interface {
	Record(ctx context.Context, e audit.Entry) error
	Recent(ctx context.Context, limit int) ([]audit.Entry, error)
}

type Enqueuer interface {
	EnqueueModeration(ctx context.Context, payload queue.ModerationRunPayload) (string, error)
}

// ModerationHandler serves the moderation endpoints. audit and queue may
// be nil when Postgres or redis are unavailable.
type ModerationHandler struct {
	moderator Moderator
	audit     AuditLog
	queue     Enqueuer
}

func NewModerationHandler(m Moderator, a AuditLog, q Enqueuer) *ModerationHandler {
	return &ModerationHandler{moderator: m, audit: a, queue: q}
}

type moderationRequest struct {
	Text      string `json:"text"`
	Category  string `json:"category,omitempty"`
	ContentID string `json:"content_id,omitempty"`
}

func (h *ModerationHandler) decode(w http.ResponseWriter, r *http.Request) (moderationRequest, moderation.Category, bool) {
	var req moderationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return req, "", false
	}
	category, err := moderation.ParseCategory(req.Category)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return req, "", false
	}
	return req, category, true
}

// Moderate runs full moderation and records the verdict when an audit
// log is configured.
func (h *ModerationHandler) Moderate(w http.ResponseWriter, r *http.Request) {
	req, category, ok := h.decode(w, r)
	if !ok {
		return
	}

	v := h.moderator.Moderate(r.Context(), req.Text, category)

	if h.audit != nil {
		if err := h.audit.Record(r.Context(), audit.FromVerdict(v, req.ContentID, category)); err != nil {
			slog.Error("failed to record moderation audit", "moderation_id", v.ID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, v)
}

func (h *ModerationHandler) QuickCheck(w http.ResponseWriter, r *http.Request) {
	req, category, ok := h.decode(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"is_allowed": h.moderator.QuickCheck(req.Text, category)})
}

// Async queues content for background moderation.
func (h *ModerationHandler) Async(w http.ResponseWriter, r *http.Request) {
	if h.queue == nil {
		writeError(w, http.StatusServiceUnavailable, "async moderation unavailable")
		return
	}
	req, category, ok := h.decode(w, r)
	if !ok {
		return
	}
	if req.ContentID == "" {
		writeError(w, http.StatusBadRequest, "content_id required")
		return
	}

	taskID, err := h.queue.EnqueueModeration(r.Context(), queue.ModerationRunPayload{
		ContentID: req.ContentID,
		Text:      req.Text,
		Category:  string(category),
	})
	if err != nil {
		slog.Error("failed to enqueue moderation", "content_id", req.ContentID, "error", err)
		writeError(w, http.StatusServiceUnavailable, "failed to queue moderation")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"task_id": taskID, "content_id": req.ContentID})
}

func (h *ModerationHandler) Diagnostics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"lines": h.moderator.TestServices(r.Context())})
}

func (h *ModerationHandler) Audit(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		writeError(w, http.StatusServiceUnavailable, "audit log unavailable")
		return
	}

	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	entries, err := h.audit.Recent(r.Context(), limit)
	if err != nil {
		slog.Error("failed to list moderation audit", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list audit entries")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}
