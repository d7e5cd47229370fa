package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// WireOpenAICompletions identifies the OpenAI-compatible completions
// wire format: POST {address}/v1/completions with a JSON payload,
// responses framed as completion envelopes, streamed as SSE data lines.
const WireOpenAICompletions = "openai-completions"

// wireFormat describes how to talk to one style of completion endpoint:
// where requests go and how response units are unwrapped.
type wireFormat struct {
	basePath     string
	generatePath string

	// prepareLine strips streaming transport framing from one line,
	// returning false for lines that carry no envelope.
	prepareLine func(line string) (string, bool)

	// decode unwraps one response envelope and returns its text contents.
	decode func(line string) (string, error)
}

var wireFormats = map[string]wireFormat{
	WireOpenAICompletions: {
		basePath:     "/v1",
		generatePath: "/completions",
		prepareLine:  prepareSSELine,
		decode:       decodeCompletionEnvelope,
	},
}

// lookupWire resolves a provider's wire-format tag. Unknown tags fail
// before any request is sent.
func lookupWire(api string) (wireFormat, error) {
	wf, ok := wireFormats[api]
	if !ok {
		return wireFormat{}, fmt.Errorf("unknown wire format %q", api)
	}
	return wf, nil
}

const (
	sseDataPrefix   = "data: "
	sseDoneSentinel = "[DONE]"
)

// prepareSSELine strips SSE framing from one streamed line. Blank
// keep-alives, non-data fields, and the terminal [DONE] sentinel carry
// no envelope and are dropped.
func prepareSSELine(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", false
	}
	if !strings.HasPrefix(line, sseDataPrefix) {
		return "", false
	}
	payload := strings.TrimPrefix(line, sseDataPrefix)
	if strings.TrimSpace(payload) == sseDoneSentinel {
		return "", false
	}
	return payload, true
}

// decodeCompletionEnvelope decodes one OpenAI-style completion envelope
// and returns the text of its first choice, or an empty string when the
// envelope carries no choices.
func decodeCompletionEnvelope(line string) (string, error) {
	var envelope openai.CompletionResponse
	if err := json.Unmarshal([]byte(line), &envelope); err != nil {
		return "", err
	}
	if len(envelope.Choices) == 0 {
		return "", nil
	}
	return envelope.Choices[0].Text, nil
}
