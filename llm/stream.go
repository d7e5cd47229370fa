package llm

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/aschepis/backscratcher/guidance/extract"
	"github.com/aschepis/backscratcher/guidance/guide"
)

// partialConfig carries the options for a RespondPartially call.
type partialConfig struct {
	fragments bool
	guides    guide.Guide
}

// PartialOption configures a RespondPartially call.
type PartialOption func(*partialConfig)

// WithFragments enables completion of string values that are cut off
// mid-token, so a value can be surfaced while the model is still typing
// it. The field guide is derived from the target type by reflection;
// use WithFragmentGuide to supply one explicitly.
func WithFragments() PartialOption {
	return func(c *partialConfig) { c.fragments = true }
}

// WithFragmentGuide enables fragment completion with an explicit field
// guide instead of one derived from the target type.
func WithFragmentGuide(g guide.Guide) PartialOption {
	return func(c *partialConfig) {
		c.fragments = true
		c.guides = g
	}
}

// RespondPartially sends prompt through s as a streaming request and
// returns a stream of progressively more complete values of type T.
//
// Each value decoded from the stream reflects everything the model has
// produced so far; consumers typically keep only the latest one. The
// sequence is lazy and single-pass: nothing is read from the network
// until Next is called, and values cannot be replayed. It is a free
// function because Go methods cannot introduce type parameters.
//
// Errors establishing the request (no provider, transport failure,
// non-2xx status) are returned immediately. After that, malformed
// stream lines are skipped rather than ending the stream; only
// transport failures end it early.
func RespondPartially[T any](ctx context.Context, s *Session, prompt string, opts ...PartialOption) (*Stream[T], error) {
	var cfg partialConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	provider, wf, err := s.resolve()
	if err != nil {
		return nil, err
	}

	extractFn := extract.Partial
	if cfg.fragments {
		guides := cfg.guides
		if guides == nil {
			guides, err = guide.For[T]()
			if err != nil {
				return nil, err
			}
		}
		extractFn = func(text string) (string, bool) {
			return extract.PartialWithFragments(text, guides)
		}
	}

	payload, err := provider.StreamingPayload(s.Model, s.fullPrompt(prompt))
	if err != nil {
		return nil, err
	}

	logger := s.requestLogger(provider)
	logger.Debug().Int("payload_bytes", len(payload)).Msg("Sending streaming completion request")

	// The stream owns a derived context so Close can abort a read that
	// is blocked waiting for the next line.
	streamCtx, cancel := context.WithCancel(ctx)
	resp, err := s.send(streamCtx, provider, wf, payload)
	if err != nil {
		cancel()
		return nil, err
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxStreamLine)

	return &Stream[T]{
		scanner: scanner,
		body:    resp.Body,
		cancel:  cancel,
		wf:      wf,
		extract: extractFn,
		logger:  logger,
	}, nil
}

// maxStreamLine bounds a single streamed line.
const maxStreamLine = 1024 * 1024

// Stream is a pull-based sequence of progressively more complete values
// decoded from a streaming completion response. It is single-consumer
// and non-restartable.
//
//	stream, err := llm.RespondPartially[Facts](ctx, session, prompt)
//	if err != nil {
//		return err
//	}
//	defer stream.Close()
//	for stream.Next() {
//		render(stream.Current())
//	}
//	if err := stream.Err(); err != nil {
//		return err
//	}
type Stream[T any] struct {
	scanner *bufio.Scanner
	body    io.ReadCloser
	cancel  context.CancelFunc
	wf      wireFormat
	extract func(string) (string, bool)
	logger  zerolog.Logger

	buf       []byte
	current   T
	lastEmit  string
	err       error
	skipped   int
	finalDone bool
	closed    atomic.Bool
}

// Next advances to the next value, reading stream lines as needed. It
// blocks while the transport has no new line to deliver. Returns false
// when the stream is exhausted, closed, or failed; check Err afterwards.
func (s *Stream[T]) Next() bool {
	if s.closed.Load() || s.err != nil {
		return false
	}

	for s.scanner.Scan() {
		payload, ok := s.wf.prepareLine(s.scanner.Text())
		if !ok {
			continue
		}

		fragment, err := s.wf.decode(payload)
		if err != nil {
			s.skipped++
			s.logger.Debug().Err(err).Msg("Skipping undecodable stream line")
			continue
		}
		s.buf = append(s.buf, fragment...)

		candidate, ok := s.extract(string(s.buf))
		if !ok || candidate == s.lastEmit {
			continue
		}
		var value T
		if err := json.Unmarshal([]byte(candidate), &value); err != nil {
			// Not decodable yet; wait for more data.
			continue
		}
		s.lastEmit = candidate
		s.current = value
		return true
	}

	if err := s.scanner.Err(); err != nil && !s.closed.Load() {
		s.err = err
		return false
	}

	// Stream closed by the peer: one final pass over the full text may
	// surface a complete object the partial heuristics never caught.
	if !s.finalDone && !s.closed.Load() {
		s.finalDone = true
		if candidate, ok := extract.Complete(string(s.buf)); ok && candidate != s.lastEmit {
			var value T
			if err := json.Unmarshal([]byte(candidate), &value); err == nil {
				s.lastEmit = candidate
				s.current = value
				return true
			}
		}
		if s.skipped > 0 {
			s.logger.Debug().Int("skipped_lines", s.skipped).Msg("Stream finished with undecodable lines")
		}
	}
	return false
}

// Current returns the most recent value produced by Next. It is only
// meaningful after Next has returned true.
func (s *Stream[T]) Current() T {
	return s.current
}

// Err returns the transport error that ended the stream early, or nil
// for a normal end of stream.
func (s *Stream[T]) Err() error {
	return s.err
}

// SkippedLines reports how many stream lines were dropped because their
// envelope could not be decoded.
func (s *Stream[T]) SkippedLines() int {
	return s.skipped
}

// Close releases the underlying connection. It is safe to call more
// than once and safe to call while a Next is blocked on a read; the
// blocked Next returns false. A consumer that stops early must call
// Close, or the connection would be left draining.
func (s *Stream[T]) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.cancel()
	return s.body.Close()
}
