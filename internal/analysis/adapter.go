package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dshills/smellscan/internal/extract"
	"github.com/dshills/smellscan/internal/providers"
)

// Outcome is the explicit success-or-error value of one inference call.
type Outcome struct {
	Analysis   json.RawMessage
	Err        error
	Duration   time.Duration
	TokensUsed int
}

// OK reports whether the call produced an analysis.
func (o Outcome) OK() bool { return o.Err == nil }

// Invoker runs a prompt against a model.
type Invoker interface {
	Invoke(ctx context.Context, modelID, prompt string) Outcome
}

// Adapter is the Invoker backed by a providers.Client.
type Adapter struct {
	client      providers.Client
	maxTokens   int
	temperature float64
}

// NewAdapter creates an Adapter. maxTokens and temperature apply to every
// call.
func NewAdapter(client providers.Client, maxTokens int, temperature float64) *Adapter {
	return &Adapter{client: client, maxTokens: maxTokens, temperature: temperature}
}

// Invoke makes exactly one Complete call and extracts a JSON object from the
// reply. It never panics on malformed output; every failure is in Err.
func (a *Adapter) Invoke(ctx context.Context, modelID, prompt string) Outcome {
	start := time.Now()
	resp, err := a.client.Complete(ctx, providers.Request{
		Model:       modelID,
		Prompt:      prompt,
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
	})
	out := Outcome{Duration: time.Since(start), TokensUsed: resp.TokensUsed}
	if err != nil {
		out.Err = err
		return out
	}

	raw, err := extract.Object(resp.Content)
	if err != nil {
		out.Err = fmt.Errorf("model %s: %w", modelID, err)
		return out
	}
	out.Analysis = raw
	return out
}
