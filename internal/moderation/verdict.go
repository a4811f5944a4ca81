package moderation

import (
	"fmt"
	"strings"
)

// Violation is one kind of policy violation a verdict can carry.
type Violation string

const (
	ViolationHate         Violation = "hate"
	ViolationHarassment   Violation = "harassment"
	ViolationViolence     Violation = "violence"
	ViolationSelfHarm     Violation = "self-harm"
	ViolationSexual       Violation = "sexual"
	ViolationSpam         Violation = "spam"
	ViolationToxicity     Violation = "toxicity"
	ViolationProfanity    Violation = "profanity"
	ViolationPersonalInfo Violation = "personal-info"
)

// AllViolations lists every violation kind a verdict may contain.
func AllViolations() []Violation {
	return []Violation{
		ViolationHate, ViolationHarassment, ViolationViolence, ViolationSelfHarm,
		ViolationSexual, ViolationSpam, ViolationToxicity, ViolationProfanity,
		ViolationPersonalInfo,
	}
}

// Category tags the kind of content being moderated. It is advisory:
// detection does not depend on it.
type Category string

const (
	CategoryIdea           Category = "idea"
	CategoryComment        Category = "comment"
	CategoryChat           Category = "chat"
	CategoryTask           Category = "task"
	CategoryProfile        Category = "profile"
	CategoryPodDescription Category = "pod_description"
)

// ParseCategory maps a wire value to a Category. An empty value means chat.
func ParseCategory(s string) (Category, error) {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case "":
		return CategoryChat, nil
	case CategoryIdea, CategoryComment, CategoryChat, CategoryTask, CategoryProfile, CategoryPodDescription:
		return c, nil
	case "pod-description":
		return CategoryPodDescription, nil
	default:
		return "", fmt.Errorf("unknown content category %q", s)
	}
}

// Source records which strategy produced a verdict.
type Source string

const (
	SourceProvider Source = "provider"
	SourceRules    Source = "rules"
)

// Verdict is the result of a single moderation evaluation. Verdicts are
// created fresh per call and never mutated afterwards.
type Verdict struct {
	ID               string      `json:"moderation_id"`
	Allowed          bool        `json:"is_allowed"`
	Confidence       float64     `json:"confidence"`
	Violations       []Violation `json:"violations"`
	SanitizedContent *string     `json:"sanitized_content,omitempty"`
	Source           Source      `json:"source"`
}

// Has reports whether v contains the given violation.
func (v Verdict) Has(kind Violation) bool {
	for _, k := range v.Violations {
		if k == kind {
			return true
		}
	}
	return false
}
