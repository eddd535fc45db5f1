package sink

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
)

// Writer writes one payload per line to an io.Writer.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter creates a line-oriented sink on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteEvent writes payload followed by a newline.
func (s *Writer) WriteEvent(_ context.Context, payload string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintln(s.w, payload)
	return err
}

// Close is a no-op; the caller owns the underlying writer.
func (s *Writer) Close() error {
	return nil
}

// Discard counts events and drops them.
type Discard struct {
	count atomic.Int64
}

// NewDiscard creates a discarding sink.
func NewDiscard() *Discard {
	return &Discard{}
}

// WriteEvent drops payload.
func (s *Discard) WriteEvent(context.Context, string) error {
	s.count.Add(1)
	return nil
}

// Count returns the number of events written.
func (s *Discard) Count() int64 {
	return s.count.Load()
}

// Close is a no-op.
func (s *Discard) Close() error {
	return nil
}

// Recorder keeps every payload in memory. It can run a hook on every write
// and be told to fail, which makes it the fake sink for tests.
type Recorder struct {
	mu        sync.Mutex
	payloads  []string
	onWrite   func(n int)
	failAfter int
	failErr   error
	closed    bool
}

// NewRecorder creates an empty recording sink.
func NewRecorder() *Recorder {
	return &Recorder{failAfter: -1}
}

// OnWrite registers fn to be called after every accepted write with the
// total number of payloads recorded so far. fn runs on the writer's goroutine.
func (s *Recorder) OnWrite(fn func(n int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onWrite = fn
}

// FailAfter makes every write fail with err once n payloads have been recorded.
func (s *Recorder) FailAfter(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAfter = n
	s.failErr = err
}

// WriteEvent records payload.
func (s *Recorder) WriteEvent(_ context.Context, payload string) error {
	s.mu.Lock()
	if s.failAfter >= 0 && len(s.payloads) >= s.failAfter {
		err := s.failErr
		s.mu.Unlock()
		return err
	}
	s.payloads = append(s.payloads, payload)
	n := len(s.payloads)
	hook := s.onWrite
	s.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	return nil
}

// Payloads returns a copy of the recorded payloads.
func (s *Recorder) Payloads() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.payloads))
	copy(out, s.payloads)
	return out
}

// Count returns the number of recorded payloads.
func (s *Recorder) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payloads)
}

// Close marks the recorder closed.
func (s *Recorder) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (s *Recorder) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
