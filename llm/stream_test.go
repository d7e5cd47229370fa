package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aschepis/backscratcher/guidance/guide"
)

// sseServer serves the given lines as a streaming response, flushing
// after each line so the client sees them arrive one at a time.
func sseServer(t *testing.T, lines ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			t.Errorf("Expected the response writer to support flushing")
			return
		}
		for _, line := range lines {
			fmt.Fprintf(w, "%s\n", line)
			flusher.Flush()
		}
	}))
}

// dataLine frames a completion envelope carrying text as a data line.
func dataLine(text string) string {
	return "data: " + envelopeLine(text)
}

type destinationFacts struct {
	Destination string `json:"destination"`
}

func TestRespondPartiallyEmitsProgressiveValues(t *testing.T) {
	server := sseServer(t,
		dataLine(`{"destination": "J`),
		dataLine(`ap`),
		dataLine(`an"}`),
		"data: [DONE]",
	)
	defer server.Close()

	stream, err := RespondPartially[destinationFacts](
		context.Background(), testSession(server.URL, ""), "x", WithFragments())
	if err != nil {
		t.Fatalf("RespondPartially failed: %v", err)
	}
	defer stream.Close()

	var got []string
	for stream.Next() {
		got = append(got, stream.Current().Destination)
	}
	if err := stream.Err(); err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	want := []string{"J", "Jap", "Japan"}
	if len(got) != len(want) {
		t.Fatalf("Expected %d values, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected value %d to be %q, got %q", i, want[i], got[i])
		}
	}
}

func TestRespondPartiallyExplicitFragmentGuide(t *testing.T) {
	server := sseServer(t,
		dataLine(`{"destination": "Ma`),
		"data: [DONE]",
	)
	defer server.Close()

	g := guide.Guide{
		"destination": {Type: guide.TypeString, Description: "Where to go"},
	}
	stream, err := RespondPartially[map[string]string](
		context.Background(), testSession(server.URL, ""), "x", WithFragmentGuide(g))
	if err != nil {
		t.Fatalf("RespondPartially failed: %v", err)
	}
	defer stream.Close()

	var got []map[string]string
	for stream.Next() {
		got = append(got, stream.Current())
	}
	if err := stream.Err(); err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	if len(got) != 1 || got[0]["destination"] != "Ma" {
		t.Errorf("Expected one value with the truncated string surfaced, got %v", got)
	}
}

func TestRespondPartiallySkipsMalformedLines(t *testing.T) {
	server := sseServer(t,
		"data: {bad json",
		`data: {"choices":[{"index":0,"text":"{\"destination\": \"Japan\"}"}],"model":"m","created":0,"usage":{"prompt_tokens":0,"completion_tokens":0,"total_tokens":0}}`,
		"not a data line",
		"data: [DONE]",
	)
	defer server.Close()

	stream, err := RespondPartially[destinationFacts](
		context.Background(), testSession(server.URL, ""), "x")
	if err != nil {
		t.Fatalf("RespondPartially failed: %v", err)
	}
	defer stream.Close()

	var got []destinationFacts
	for stream.Next() {
		got = append(got, stream.Current())
	}
	if err := stream.Err(); err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("Expected exactly one value, got %d: %v", len(got), got)
	}
	if got[0].Destination != "Japan" {
		t.Errorf("Expected destination 'Japan', got %q", got[0].Destination)
	}
	if stream.SkippedLines() != 1 {
		t.Errorf("Expected 1 skipped line, got %d", stream.SkippedLines())
	}
	if stream.Next() {
		t.Error("Expected Next to keep returning false after exhaustion")
	}
}

func TestRespondPartiallyWaitsForBoundariesWithoutFragments(t *testing.T) {
	server := sseServer(t,
		dataLine(`{"a": 1, `),
		dataLine(`"b": 2}`),
		"data: [DONE]",
	)
	defer server.Close()

	type pair struct {
		A int `json:"a"`
		B int `json:"b"`
	}
	stream, err := RespondPartially[pair](
		context.Background(), testSession(server.URL, ""), "x")
	if err != nil {
		t.Fatalf("RespondPartially failed: %v", err)
	}
	defer stream.Close()

	var got []pair
	for stream.Next() {
		got = append(got, stream.Current())
	}
	if err := stream.Err(); err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("Expected 2 values, got %d: %v", len(got), got)
	}
	if got[0].A != 1 || got[0].B != 0 {
		t.Errorf("Expected first value {1 0}, got %+v", got[0])
	}
	if got[1].A != 1 || got[1].B != 2 {
		t.Errorf("Expected second value {1 2}, got %+v", got[1])
	}
}

func TestRespondPartiallyNeverEmitsMidNumber(t *testing.T) {
	server := sseServer(t,
		dataLine(`{"count": `),
		dataLine(`4`),
		"data: [DONE]",
	)
	defer server.Close()

	type counter struct {
		Count int `json:"count"`
	}
	stream, err := RespondPartially[counter](
		context.Background(), testSession(server.URL, ""), "x", WithFragments())
	if err != nil {
		t.Fatalf("RespondPartially failed: %v", err)
	}
	defer stream.Close()

	for stream.Next() {
		t.Errorf("Expected no values from a stream cut off mid-number, got %+v", stream.Current())
	}
	if err := stream.Err(); err != nil {
		t.Errorf("Expected nil error, got %v", err)
	}
}

func TestRespondPartiallySkipsCandidatesThatDoNotDecode(t *testing.T) {
	server := sseServer(t,
		dataLine(`{"count": "x"}`),
		"data: [DONE]",
	)
	defer server.Close()

	type counter struct {
		Count int `json:"count"`
	}
	stream, err := RespondPartially[counter](
		context.Background(), testSession(server.URL, ""), "x")
	if err != nil {
		t.Fatalf("RespondPartially failed: %v", err)
	}
	defer stream.Close()

	for stream.Next() {
		t.Errorf("Expected no values when the JSON does not fit the type, got %+v", stream.Current())
	}
	if err := stream.Err(); err != nil {
		t.Errorf("Expected nil error, got %v", err)
	}
	if stream.SkippedLines() != 0 {
		t.Errorf("Expected no skipped lines, the envelope itself was fine; got %d", stream.SkippedLines())
	}
}

func TestRespondPartiallyStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer server.Close()

	stream, err := RespondPartially[destinationFacts](
		context.Background(), testSession(server.URL, ""), "x")
	if stream != nil {
		t.Error("Expected no stream on a status error")
	}
	if !IsResponseStatusError(err) {
		t.Fatalf("Expected a response status error, got %v", err)
	}
	if !IsRetryableError(err) {
		t.Error("Expected a 429 to be retryable")
	}
}

func TestRespondPartiallySendsStreamFlag(t *testing.T) {
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		fmt.Fprintf(w, "%s\ndata: [DONE]\n", dataLine("{}"))
	}))
	defer server.Close()

	stream, err := RespondPartially[map[string]any](
		context.Background(), testSession(server.URL, ""), "x")
	if err != nil {
		t.Fatalf("RespondPartially failed: %v", err)
	}
	defer stream.Close()
	for stream.Next() {
	}

	if !strings.Contains(string(gotBody), `"stream":true`) {
		t.Errorf("Expected a streaming payload, got %s", gotBody)
	}
}

func TestStreamClose(t *testing.T) {
	released := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			t.Errorf("Expected the response writer to support flushing")
			return
		}
		fmt.Fprintf(w, "%s\n", dataLine(`{"destination": "Japan"}`))
		flusher.Flush()
		// Hold the connection open until the client walks away.
		<-r.Context().Done()
		close(released)
	}))
	defer server.Close()

	stream, err := RespondPartially[destinationFacts](
		context.Background(), testSession(server.URL, ""), "x")
	if err != nil {
		t.Fatalf("RespondPartially failed: %v", err)
	}

	if !stream.Next() {
		t.Fatalf("Expected a first value, stream ended with %v", stream.Err())
	}
	if stream.Current().Destination != "Japan" {
		t.Errorf("Expected destination 'Japan', got %q", stream.Current().Destination)
	}

	stream.Close()
	if err := stream.Close(); err != nil {
		t.Errorf("Expected a second Close to be a no-op, got %v", err)
	}

	if stream.Next() {
		t.Error("Expected Next to return false after Close")
	}
	if err := stream.Err(); err != nil {
		t.Errorf("Expected nil error after a voluntary close, got %v", err)
	}

	select {
	case <-released:
	case <-time.After(2 * time.Second):
		t.Error("Expected the server handler to observe the disconnect")
	}
}

func TestStreamReportsAbortedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			t.Errorf("Expected the response writer to support flushing")
			return
		}
		fmt.Fprintf(w, "%s\n", dataLine(`{"destination": "Japan"}`))
		flusher.Flush()
		// Drop the connection without finishing the body.
		panic(http.ErrAbortHandler)
	}))
	defer server.Close()

	stream, err := RespondPartially[destinationFacts](
		context.Background(), testSession(server.URL, ""), "x")
	if err != nil {
		t.Fatalf("RespondPartially failed: %v", err)
	}
	defer stream.Close()

	if !stream.Next() {
		t.Fatalf("Expected the value sent before the drop, stream ended with %v", stream.Err())
	}
	if stream.Current().Destination != "Japan" {
		t.Errorf("Expected destination 'Japan', got %q", stream.Current().Destination)
	}

	// The truncated body must surface as an error, never as a clean
	// end of stream.
	if stream.Next() {
		t.Error("Expected no further values after the connection dropped")
	}
	streamErr := stream.Err()
	if streamErr == nil {
		t.Fatal("Expected a transport error from the dropped connection")
	}
	var llmErr *Error
	if errors.As(streamErr, &llmErr) {
		t.Errorf("Expected the transport error unwrapped, got %v", llmErr)
	}

	if stream.Next() {
		t.Error("Expected Next to keep returning false after a failure")
	}
}
