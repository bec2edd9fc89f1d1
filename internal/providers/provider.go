package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Request is a single chat completion sent to a backend.
type Request struct {
	Model       string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Response contains the raw text returned by a backend.
type Response struct {
	Content    string
	TokensUsed int
}

// Client is the inference backend abstraction.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
	Name() string
}

// Options selects and tunes a backend.
type Options struct {
	Provider string
	// BaseURL overrides the backend endpoint. Empty uses the backend default.
	BaseURL string
	// MaxRetries is the number of extra attempts after a rate-limit response.
	MaxRetries int
	// RequestsPerSecond caps the request rate across all callers when > 0.
	RequestsPerSecond float64
	// Timeout bounds a single HTTP exchange when > 0. Callers usually bound
	// requests through the context instead.
	Timeout time.Duration
	// HTTPClient replaces the default client, mostly for tests.
	HTTPClient *http.Client
}

// Names lists the supported provider names.
var Names = []string{"huggingface", "openai", "ollama", "anthropic"}

// New creates a client by provider name.
func New(opts Options) (Client, error) {
	var (
		c   Client
		err error
	)
	switch opts.Provider {
	case "huggingface", "hf":
		c, err = NewHuggingFace(opts)
	case "openai":
		c, err = NewOpenAI(opts)
	case "ollama":
		c, err = NewOllama(opts)
	case "anthropic":
		c, err = NewAnthropic(opts)
	default:
		return nil, fmt.Errorf("unknown provider: %s", opts.Provider)
	}
	if err != nil {
		return nil, err
	}
	return WithRateLimit(c, opts.RequestsPerSecond), nil
}

func (o Options) httpClient() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	return &http.Client{Timeout: o.Timeout}
}
