package llm

import (
	"encoding/json"
)

// Provider supplies the connection details and request bodies for one
// completion endpoint. Implementations are cheap value-like objects; a
// Session consults its provider on every call.
type Provider interface {
	// API returns the wire-format tag identifying how requests and
	// responses are framed. See WireOpenAICompletions.
	API() string

	// Address returns the base URL of the endpoint, without the
	// wire-format path segments.
	Address() string

	// APIKey returns the credential sent as a bearer token. An empty
	// key means the endpoint is unauthenticated and no Authorization
	// header is sent.
	APIKey() string

	// StreamingPayload builds the request body for a streaming call.
	StreamingPayload(model, prompt string) ([]byte, error)

	// Payload builds the request body for a non-streaming call.
	Payload(model, prompt string) ([]byte, error)
}

// APIProvider is a Provider for OpenAI-compatible completion endpoints.
type APIProvider struct {
	Name     string // informational, shows up in logs and config errors
	Endpoint string // base URL, e.g. "http://localhost:11434"
	Key      string // API key, empty for unauthenticated endpoints
	Format   string // wire-format tag, defaults to WireOpenAICompletions
}

// completionPayload is the request body for the OpenAI-compatible
// completions wire format. Stream is serialized unconditionally so a
// non-streaming request visibly carries "stream": false.
type completionPayload struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// API implements Provider.API.
func (p *APIProvider) API() string {
	if p.Format == "" {
		return WireOpenAICompletions
	}
	return p.Format
}

// Address implements Provider.Address.
func (p *APIProvider) Address() string {
	return p.Endpoint
}

// APIKey implements Provider.APIKey.
func (p *APIProvider) APIKey() string {
	return p.Key
}

// StreamingPayload implements Provider.StreamingPayload.
func (p *APIProvider) StreamingPayload(model, prompt string) ([]byte, error) {
	return json.Marshal(completionPayload{Model: model, Prompt: prompt, Stream: true})
}

// Payload implements Provider.Payload.
func (p *APIProvider) Payload(model, prompt string) ([]byte, error) {
	return json.Marshal(completionPayload{Model: model, Prompt: prompt, Stream: false})
}

// OpenAI returns a provider for the hosted OpenAI completions API.
func OpenAI(apiKey string) *APIProvider {
	return &APIProvider{
		Name:     "openai",
		Endpoint: "https://api.openai.com",
		Key:      apiKey,
	}
}

// Ollama returns a provider for a local Ollama server. An empty host
// selects the default local endpoint.
func Ollama(host string) *APIProvider {
	if host == "" {
		host = "http://localhost:11434"
	}
	return &APIProvider{
		Name:     "ollama",
		Endpoint: host,
	}
}

// LMStudio returns a provider for a local LM Studio server. An empty
// host selects the default local endpoint.
func LMStudio(host string) *APIProvider {
	if host == "" {
		host = "http://localhost:1234"
	}
	return &APIProvider{
		Name:     "lmstudio",
		Endpoint: host,
	}
}

// Ensure APIProvider implements Provider
var _ Provider = (*APIProvider)(nil)
