// Package llm drives schema-guided completion requests against
// OpenAI-compatible text-completion endpoints.
//
// The package owns the request lifecycle: building the payload, sending
// it, accumulating the response text, and extracting typed JSON values
// out of it, including progressively while the response is still
// streaming.
//
// # Core Concepts
//
//  1. Client: the composition root. It carries the default provider,
//     HTTP transport, and logger, and creates Sessions. Build one at
//     startup instead of relying on process-wide mutable defaults.
//
//  2. Session: one model plus optional instruction text. Sessions
//     resolve their provider and transport per call, falling back to
//     the client defaults.
//
//  3. Provider interface: where requests go (address, credential,
//     wire-format tag) and how request bodies are built. APIProvider
//     covers OpenAI-compatible endpoints; OpenAI, Ollama and LMStudio
//     return ready-made presets.
//
//  4. Operations: Generate returns raw completion text. Respond
//     extracts and decodes the first complete JSON object into a typed
//     value. RespondPartially streams progressively more complete typed
//     values as response lines arrive. Respond and RespondPartially are
//     free functions because Go methods cannot introduce type
//     parameters.
//
//  5. Errors: the Error type categorizes failures (no provider,
//     response status, response format, response data) with predicates
//     like IsResponseFormatError. Transport errors are propagated
//     unchanged. Nothing is retried internally; RetryPolicy is the
//     opt-in way to retry retryable failures.
//
// Usage Example
//
//	client := llm.NewClient(
//	    llm.WithDefaultProvider(llm.Ollama("")),
//	    llm.WithLogger(logger),
//	)
//	session := client.Session("llama3.2:3b",
//	    llm.WithInstructions("You are a travel guide."))
//
//	type Facts struct {
//	    Destination string `json:"destination"`
//	    Population  int    `json:"population"`
//	}
//
//	facts, err := llm.Respond[Facts](ctx, session, prompt.Structured(
//	    "Describe Japan.", guide.MustFor[Facts]()))
//
// For streaming consumption, RespondPartially returns a Stream whose
// values grow toward the final object:
//
//	stream, err := llm.RespondPartially[Facts](ctx, session, question,
//	    llm.WithFragments())
//	if err != nil {
//	    return err
//	}
//	defer stream.Close()
//	for stream.Next() {
//	    render(stream.Current())
//	}
//	return stream.Err()
package llm
