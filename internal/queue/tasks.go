package queue

const (
	TypeModerationRun = "moderation:run"
)

// ModerationRunPayload asks the worker to moderate stored content.
type ModerationRunPayload struct {
	ContentID string `json:"content_id"`
	Text      string `json:"text"`
	Category  string `json:"category"`
}
