package moderation

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrCredentialMissing is returned by providers constructed without a
// usable credential.
var ErrCredentialMissing = errors.New("provider credential missing")

// Provider is an external classification service.
type Provider interface {
	Classify(ctx context.Context, text string) (*ProviderResult, error)
	// Ready reports whether the provider has a usable credential.
	Ready() bool
	Name() string
}

// CategoryResult is the provider's judgment for one category.
type CategoryResult struct {
	Flagged bool    `json:"flagged"`
	Score   float64 `json:"score"`
}

// ProviderResult carries the five categories an external provider covers.
type ProviderResult struct {
	Flagged    bool           `json:"flagged"`
	Hate       CategoryResult `json:"hate"`
	Harassment CategoryResult `json:"harassment"`
	Violence   CategoryResult `json:"violence"`
	SelfHarm   CategoryResult `json:"self_harm"`
	Sexual     CategoryResult `json:"sexual"`
}

func (r *ProviderResult) categories() []struct {
	kind   Violation
	result CategoryResult
} {
	return []struct {
		kind   Violation
		result CategoryResult
	}{
		{ViolationHate, r.Hate},
		{ViolationHarassment, r.Harassment},
		{ViolationViolence, r.Violence},
		{ViolationSelfHarm, r.SelfHarm},
		{ViolationSexual, r.Sexual},
	}
}

// ErrorKind classifies provider failures.
type ErrorKind string

const (
	ErrKindCredentialMissing ErrorKind = "credential_missing"
	ErrKindHTTP              ErrorKind = "http_error"
	ErrKindMalformed         ErrorKind = "malformed_response"
	ErrKindTimeout           ErrorKind = "timeout"
)

// ProviderError is the error type every Provider failure is reported as.
// StatusCode is set for http errors and is zero for transport failures.
type ProviderError struct {
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	b.WriteString("provider ")
	b.WriteString(string(e.Kind))
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error { return e.Err }

// AsProviderError converts err into a *ProviderError. Errors that are not
// already classified are treated as transport-level http errors, except
// for context deadlines which become timeouts.
func AsProviderError(err error) *ProviderError {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &ProviderError{Kind: ErrKindTimeout, Err: err}
	}
	if errors.Is(err, ErrCredentialMissing) {
		return &ProviderError{Kind: ErrKindCredentialMissing, Err: err}
	}
	return &ProviderError{Kind: ErrKindHTTP, Err: err}
}

var placeholderKeys = map[string]bool{
	"":                    true,
	"your-api-key":        true,
	"your_api_key":        true,
	"your-openai-api-key": true,
	"YOUR_OPENAI_API_KEY": true,
	"YOUR_API_KEY":        true,
	"changeme":            true,
}

// CredentialUsable reports whether key looks like a real credential rather
// than an unset or template value.
func CredentialUsable(key string) bool {
	key = strings.TrimSpace(key)
	if placeholderKeys[key] {
		return false
	}
	lower := strings.ToLower(key)
	return !strings.HasPrefix(lower, "sk-your") && !strings.HasPrefix(lower, "sk-xxx")
}
