// Package providers implements the inference Client for each supported
// backend.
//
// Supported backends: the Hugging Face router and OpenAI (both through the
// OpenAI-compatible chat completions API), a native Ollama server, and
// Anthropic's Messages API.
//
// Every backend reports failures as a [*TransportError]. Rate-limit responses
// are retried with exponential back-off when MaxRetries > 0, and
// [WithRateLimit] adds a shared token bucket in front of any Client. HTTP
// clients are injectable so tests can point at httptest servers.
//
// Use [New] to obtain a Client by provider name. The model is chosen per
// request, so one Client serves every configured model.
package providers
