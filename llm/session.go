package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aschepis/backscratcher/guidance/extract"
)

// Client holds the defaults shared by the sessions it creates: the
// provider to call when a session does not name one, the HTTP transport,
// and the logger. Build one at startup and pass it to whatever issues
// requests. Client fields are fixed at construction; concurrent use is
// safe.
type Client struct {
	provider   Provider
	httpClient *http.Client
	logger     zerolog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithDefaultProvider sets the provider used by sessions that do not
// set one themselves.
func WithDefaultProvider(p Provider) ClientOption {
	return func(c *Client) { c.provider = p }
}

// WithHTTPClient sets the HTTP client used by sessions that do not set
// one themselves. Note that a client timeout bounds the whole exchange
// including body reads, so streaming callers usually want a client
// without one and a context deadline instead.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger for request diagnostics. Without it,
// nothing is logged.
func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger.With().Str("component", "llm").Logger() }
}

// NewClient creates a Client with the given options.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{},
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session creates a session for one model. The returned session carries
// the client's defaults; its exported fields may be adjusted before the
// first call.
func (c *Client) Session(model string, opts ...SessionOption) *Session {
	s := &Session{Model: model, client: c}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session issues completion requests for one model. Instructions, when
// set, are prepended to every prompt. Provider and HTTPClient override
// the client defaults for this session only; both may be left nil.
//
// A zero Session with fields assigned directly also works, as long as a
// Provider is set somewhere:
//
//	s := &llm.Session{Model: "llama3.2:3b", Provider: llm.Ollama("")}
//	text, err := s.Generate(ctx, "Describe Japan in one sentence.")
//
// A Session is not safe for concurrent calls sharing mutable field
// updates; create one per logical request.
type Session struct {
	Model        string
	Instructions string
	Provider     Provider
	HTTPClient   *http.Client

	client *Client
}

// SessionOption configures a Session at creation time.
type SessionOption func(*Session)

// WithInstructions sets the instruction text prepended to every prompt.
func WithInstructions(instructions string) SessionOption {
	return func(s *Session) { s.Instructions = instructions }
}

// WithProvider sets a provider for this session, overriding the client
// default.
func WithProvider(p Provider) SessionOption {
	return func(s *Session) { s.Provider = p }
}

// WithTransport sets an HTTP client for this session, overriding the
// client default.
func WithTransport(hc *http.Client) SessionOption {
	return func(s *Session) { s.HTTPClient = hc }
}

// Generate sends prompt and returns the accumulated raw completion
// text, trimmed of outer whitespace. No JSON extraction is attempted;
// this is the untyped passthrough entry point.
func (s *Session) Generate(ctx context.Context, prompt string) (string, error) {
	provider, wf, err := s.resolve()
	if err != nil {
		return "", err
	}

	payload, err := provider.Payload(s.Model, s.fullPrompt(prompt))
	if err != nil {
		return "", err
	}

	logger := s.requestLogger(provider)
	logger.Debug().Int("payload_bytes", len(payload)).Msg("Sending completion request")

	resp, err := s.send(ctx, provider, wf, payload)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	text, skipped := accumulate(string(body), wf)
	if skipped > 0 {
		logger.Debug().Int("skipped_lines", skipped).Msg("Skipped undecodable response lines")
	}
	logger.Debug().Int("text_bytes", len(text)).Msg("Completion request finished")

	return strings.TrimSpace(text), nil
}

// Respond sends prompt through s and decodes the response into a value
// of type T. The accumulated text is searched for the first complete
// JSON object, which must decode into T; anything else fails with an
// *Error carrying the offending text. It is a free function because Go
// methods cannot introduce type parameters.
func Respond[T any](ctx context.Context, s *Session, prompt string) (T, error) {
	var zero T

	text, err := s.Generate(ctx, prompt)
	if err != nil {
		return zero, err
	}

	candidate, ok := extract.Complete(text)
	if !ok {
		return zero, NewResponseFormatError("no JSON object found in response", text, nil)
	}
	if !utf8.ValidString(candidate) {
		return zero, NewResponseDataError("extracted candidate is not valid UTF-8")
	}

	var value T
	if err := json.Unmarshal([]byte(candidate), &value); err != nil {
		return zero, NewResponseFormatError("response JSON does not match target type", candidate, err)
	}
	return value, nil
}

// resolve looks up the provider for this call and its wire format.
func (s *Session) resolve() (Provider, wireFormat, error) {
	provider := s.Provider
	if provider == nil && s.client != nil {
		provider = s.client.provider
	}
	if provider == nil {
		return nil, wireFormat{}, NewNoProviderError()
	}
	wf, err := lookupWire(provider.API())
	if err != nil {
		return nil, wireFormat{}, err
	}
	return provider, wf, nil
}

// transport resolves the HTTP client for this call: session field,
// client default, then a baseline client.
func (s *Session) transport() *http.Client {
	if s.HTTPClient != nil {
		return s.HTTPClient
	}
	if s.client != nil && s.client.httpClient != nil {
		return s.client.httpClient
	}
	return http.DefaultClient
}

// fullPrompt joins instructions and prompt with a newline. Empty
// instructions contribute nothing, not even the newline.
func (s *Session) fullPrompt(prompt string) string {
	if s.Instructions == "" {
		return prompt
	}
	return s.Instructions + "\n" + prompt
}

// requestLogger returns the session logger bound to a fresh request id.
func (s *Session) requestLogger(provider Provider) zerolog.Logger {
	logger := zerolog.Nop()
	if s.client != nil {
		logger = s.client.logger
	}
	return logger.With().
		Str("request_id", uuid.NewString()).
		Str("model", s.Model).
		Str("address", provider.Address()).
		Logger()
}

// send issues the POST and verifies the response status. Transport
// errors propagate unchanged; a non-2xx status becomes an *Error
// carrying the status code and response body. On success the caller
// owns resp.Body.
func (s *Session) send(ctx context.Context, provider Provider, wf wireFormat, payload []byte) (*http.Response, error) {
	url := strings.TrimRight(provider.Address(), "/") + wf.basePath + wf.generatePath

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if key := provider.APIKey(); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := s.transport().Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, NewResponseStatusError(resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp, nil
}

// accumulate decodes every line of a non-streaming response body and
// concatenates the text fragments in arrival order. Lines that fail
// envelope decoding are skipped, never fatal; the count of skipped
// lines is returned for diagnostics.
func accumulate(body string, wf wireFormat) (string, int) {
	var sb strings.Builder
	skipped := 0
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fragment, err := wf.decode(line)
		if err != nil {
			skipped++
			continue
		}
		sb.WriteString(fragment)
	}
	return sb.String(), skipped
}
