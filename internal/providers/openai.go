package providers

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sashabaranov/go-openai"
)

const defaultHuggingFaceURL = "https://router.huggingface.co/v1"

// OpenAICompat implements Client for any OpenAI-compatible chat completions
// endpoint. It backs both the huggingface and openai providers.
type OpenAICompat struct {
	name       string
	client     *openai.Client
	maxRetries int
}

// NewHuggingFace creates a client for the Hugging Face inference router.
// The token is read from HF_TOKEN.
func NewHuggingFace(opts Options) (*OpenAICompat, error) {
	token := os.Getenv("HF_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("HF_TOKEN environment variable is not set")
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultHuggingFaceURL
	}
	return newOpenAICompat("huggingface", token, baseURL, opts), nil
}

// NewOpenAI creates a client for OpenAI. The key is read from OPENAI_API_KEY.
func NewOpenAI(opts Options) (*OpenAICompat, error) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
	}
	return newOpenAICompat("openai", key, opts.BaseURL, opts), nil
}

func newOpenAICompat(name, token, baseURL string, opts Options) *OpenAICompat {
	cfg := openai.DefaultConfig(token)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = opts.httpClient()
	return &OpenAICompat{
		name:       name,
		client:     openai.NewClientWithConfig(cfg),
		maxRetries: opts.MaxRetries,
	}
}

func (o *OpenAICompat) Name() string { return o.name }

func (o *OpenAICompat) Complete(ctx context.Context, req Request) (Response, error) {
	chatReq := openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	}

	var resp Response
	err := retryWithBackoff(ctx, o.maxRetries, func() error {
		result, err := o.client.CreateChatCompletion(ctx, chatReq)
		if err != nil {
			return classifyOpenAIError(err)
		}
		if len(result.Choices) == 0 {
			return fmt.Errorf("no choices in response")
		}
		if result.Choices[0].Message.Content == "" {
			return fmt.Errorf("empty text content in API response")
		}
		resp = Response{
			Content:    result.Choices[0].Message.Content,
			TokensUsed: result.Usage.TotalTokens,
		}
		return nil
	})
	if err != nil {
		return Response{}, wrapTransport(o.name, req.Model, err)
	}
	return resp, nil
}

// classifyOpenAIError maps go-openai errors onto the package's typed errors
// so retry and auth detection work the same for every backend.
func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return statusError(apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return statusError(reqErr.HTTPStatusCode, reqErr.Error())
	}
	return fmt.Errorf("sending request: %w", err)
}
