package eventstream

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// ErrClosed is returned by Send after the stream has been closed.
var ErrClosed = errors.New("event stream closed")

// Writer serializes events onto an HTTP response. It is safe for use by one
// producer plus a concurrent Close.
type Writer struct {
	w  http.ResponseWriter
	rc *http.ResponseController

	mu     sync.Mutex
	closed bool
	once   sync.Once
	done   chan struct{}
}

// New prepares w for streaming: it sets the event-stream headers, writes the
// status line and clears the server write deadline.
func New(w http.ResponseWriter) *Writer {
	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	// Runs can outlast the server's WriteTimeout.
	_ = rc.SetWriteDeadline(time.Time{})
	_ = rc.Flush()

	return &Writer{w: w, rc: rc, done: make(chan struct{})}
}

// Send writes one record and flushes it.
func (s *Writer) Send(event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	if err := s.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return fmt.Errorf("flush event: %w", err)
	}
	return nil
}

// Close ends the stream. Only the first call has an effect.
func (s *Writer) Close() error {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.done)
	})
	return nil
}

// Done is closed once the stream has been closed.
func (s *Writer) Done() <-chan struct{} { return s.done }
