package moderation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig configures the OpenAI moderation adapter.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string // empty means the public API
	Timeout time.Duration
}

// OpenAIProvider classifies text with the OpenAI moderation endpoint.
type OpenAIProvider struct {
	client *openai.Client
	model  string
	ready  bool
}

func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	oc.HTTPClient = &http.Client{Timeout: timeout}

	model := cfg.Model
	if model == "" {
		model = openai.ModerationTextLatest
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(oc),
		model:  model,
		ready:  CredentialUsable(cfg.APIKey),
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Ready() bool { return p.ready }

// Model is the moderation model id sent with every request.
func (p *OpenAIProvider) Model() string { return p.model }

func (p *OpenAIProvider) Classify(ctx context.Context, text string) (*ProviderResult, error) {
	if !p.ready {
		return nil, &ProviderError{Kind: ErrKindCredentialMissing, Err: ErrCredentialMissing}
	}

	resp, err := p.client.Moderations(ctx, openai.ModerationRequest{
		Input: text,
		Model: p.model,
	})
	if err != nil {
		return nil, classifyOpenAIError(err)
	}
	if len(resp.Results) == 0 {
		return nil, &ProviderError{Kind: ErrKindMalformed, Err: errors.New("openai moderation: empty results")}
	}

	// The decoded structs cannot tell a missing field from a zero value.
	// Every real reply names its model and scores at least one category
	// above zero.
	r := resp.Results[0]
	if resp.Model == "" || r.CategoryScores == (openai.ResultCategoryScores{}) {
		return nil, &ProviderError{Kind: ErrKindMalformed, Err: errors.New("openai moderation: incomplete result")}
	}
	return &ProviderResult{
		Flagged:    r.Flagged,
		Hate:       CategoryResult{Flagged: r.Categories.Hate, Score: float64(r.CategoryScores.Hate)},
		Harassment: CategoryResult{Flagged: r.Categories.Harassment, Score: float64(r.CategoryScores.Harassment)},
		Violence:   CategoryResult{Flagged: r.Categories.Violence, Score: float64(r.CategoryScores.Violence)},
		SelfHarm:   CategoryResult{Flagged: r.Categories.SelfHarm, Score: float64(r.CategoryScores.SelfHarm)},
		Sexual:     CategoryResult{Flagged: r.Categories.Sexual, Score: float64(r.CategoryScores.Sexual)},
	}, nil
}

func classifyOpenAIError(err error) *ProviderError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &ProviderError{Kind: ErrKindTimeout, Err: err}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{Kind: ErrKindHTTP, StatusCode: apiErr.HTTPStatusCode, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &ProviderError{Kind: ErrKindHTTP, StatusCode: reqErr.HTTPStatusCode, Err: err}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &ProviderError{Kind: ErrKindMalformed, Err: err}
	}

	return &ProviderError{Kind: ErrKindHTTP, Err: err}
}
