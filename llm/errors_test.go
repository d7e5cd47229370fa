package llm

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsNoProviderError(t *testing.T) {
	err := NewNoProviderError()
	if !IsNoProviderError(err) {
		t.Error("Expected IsNoProviderError to return true for no provider error")
	}

	otherErr := NewResponseDataError("bad bytes")
	if IsNoProviderError(otherErr) {
		t.Error("Expected IsNoProviderError to return false for other error types")
	}

	if IsNoProviderError(errors.New("plain")) {
		t.Error("Expected IsNoProviderError to return false for plain errors")
	}
}

func TestIsResponseStatusError(t *testing.T) {
	err := NewResponseStatusError(404, "not found")
	if !IsResponseStatusError(err) {
		t.Error("Expected IsResponseStatusError to return true for status error")
	}
	if IsResponseStatusError(NewNoProviderError()) {
		t.Error("Expected IsResponseStatusError to return false for other error types")
	}

	var llmErr *Error
	if !errors.As(err, &llmErr) {
		t.Fatal("Expected the error to be an *Error")
	}
	if llmErr.StatusCode != 404 {
		t.Errorf("Expected status code 404, got %d", llmErr.StatusCode)
	}
	if llmErr.Raw != "not found" {
		t.Errorf("Expected raw body 'not found', got %q", llmErr.Raw)
	}
}

func TestResponseStatusRetryable(t *testing.T) {
	cases := []struct {
		status    int
		retryable bool
	}{
		{429, true},
		{500, true},
		{503, true},
		{400, false},
		{404, false},
	}
	for _, tc := range cases {
		err := NewResponseStatusError(tc.status, "")
		if IsRetryableError(err) != tc.retryable {
			t.Errorf("Expected retryable=%v for status %d", tc.retryable, tc.status)
		}
	}
}

func TestIsResponseFormatError(t *testing.T) {
	err := NewResponseFormatError("no JSON object found in response", "plain text", nil)
	if !IsResponseFormatError(err) {
		t.Error("Expected IsResponseFormatError to return true for format error")
	}
	if IsResponseFormatError(NewResponseStatusError(500, "")) {
		t.Error("Expected IsResponseFormatError to return false for other error types")
	}
}

func TestIsResponseDataError(t *testing.T) {
	err := NewResponseDataError("not valid UTF-8")
	if !IsResponseDataError(err) {
		t.Error("Expected IsResponseDataError to return true for data error")
	}
	if IsResponseDataError(NewResponseFormatError("m", "", nil)) {
		t.Error("Expected IsResponseDataError to return false for other error types")
	}
}

func TestExtractRaw(t *testing.T) {
	err := NewResponseFormatError("bad shape", `{"partial": tru`, nil)
	if got := ExtractRaw(err); got != `{"partial": tru` {
		t.Errorf("Expected the offending text, got %q", got)
	}

	if got := ExtractRaw(errors.New("plain")); got != "" {
		t.Errorf("Expected empty raw text for plain errors, got %q", got)
	}

	// Wrapped errors still expose their raw text.
	wrapped := fmt.Errorf("calling model: %w", err)
	if got := ExtractRaw(wrapped); got != `{"partial": tru` {
		t.Errorf("Expected raw text through wrapping, got %q", got)
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("json: cannot unmarshal")
	err := NewResponseFormatError("response JSON does not match target type", "{}", cause)
	if !errors.Is(err, cause) {
		t.Error("Expected error to unwrap to its cause")
	}
}

func TestErrorMessageIncludesCause(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")
	err := NewResponseFormatError("decode failed", "{", cause)
	want := "decode failed: unexpected end of JSON input"
	if err.Error() != want {
		t.Errorf("Expected %q, got %q", want, err.Error())
	}

	bare := NewNoProviderError()
	if bare.Error() != "no provider configured" {
		t.Errorf("Expected bare message, got %q", bare.Error())
	}
}
