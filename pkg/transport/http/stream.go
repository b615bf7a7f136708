package http

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/rhuss/chatrelay/pkg/transport"
)

// writerState tracks the state of a textStreamWriter.
type writerState int

const (
	writerIdle      writerState = iota // No bytes written, headers still mutable
	writerStreaming                    // Headers committed, fragments flowing
)

// textStreamWriter implements transport.ResponseWriter for the plain-text
// relay stream. Headers are committed lazily so that a relay that fails
// before producing output can still answer with an error status.
type textStreamWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController

	mu    sync.Mutex
	state writerState
}

var _ transport.ResponseWriter = (*textStreamWriter)(nil)

func newTextStreamWriter(w http.ResponseWriter) *textStreamWriter {
	return &textStreamWriter{
		w:  w,
		rc: http.NewResponseController(w),
	}
}

// setStreamHeaders prepares a response for incremental plain-text delivery.
// X-Accel-Buffering disables proxy buffering in nginx.
func setStreamHeaders(h http.Header) {
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("X-Accel-Buffering", "no")
}

// Write sends p to the client, committing the stream headers first.
func (s *textStreamWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.commitLocked()
	n, err := s.w.Write(p)
	if err != nil {
		return n, fmt.Errorf("failed to write fragment: %w", err)
	}
	return n, nil
}

// Flush pushes buffered data to the client.
func (s *textStreamWriter) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.commitLocked()
	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}
	return nil
}

// Started reports whether the stream headers have been sent.
func (s *textStreamWriter) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == writerStreaming
}

// Finish commits the headers of a stream that produced no output, so the
// client still receives an empty 200 answer.
func (s *textStreamWriter) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitLocked()
}

func (s *textStreamWriter) commitLocked() {
	if s.state != writerIdle {
		return
	}
	setStreamHeaders(s.w.Header())
	s.w.WriteHeader(http.StatusOK)
	s.state = writerStreaming
}
