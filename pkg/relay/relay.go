package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rhuss/chatrelay/pkg/api"
	"github.com/rhuss/chatrelay/pkg/augment"
	"github.com/rhuss/chatrelay/pkg/debug"
	"github.com/rhuss/chatrelay/pkg/observability"
	"github.com/rhuss/chatrelay/pkg/upstream/ollama"
)

const (
	DefaultModel          = "llama3.1:8b"
	DefaultTemperature    = 0.2
	DefaultReadBufferSize = 32 * 1024
)

// State is the lifecycle position of a relay request.
type State int

const (
	StateAwaitingConnection State = iota
	StateStreaming
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAwaitingConnection:
		return "awaiting_connection"
	case StateStreaming:
		return "streaming"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Upstream opens streaming chat requests. *ollama.Client implements it.
type Upstream interface {
	StreamChat(ctx context.Context, base string, req *ollama.ChatRequest) (io.ReadCloser, error)
}

// Config holds the defaults applied to requests that omit them.
type Config struct {
	DefaultModel string
	DefaultBase  string

	// DefaultTemperature is used as given; zero is a valid temperature.
	DefaultTemperature float64

	ReadBufferSize int
}

// Relay forwards chat requests upstream and streams the answer back.
// It holds no per-request state and is safe for concurrent use.
type Relay struct {
	cfg       Config
	upstream  Upstream
	augmenter augment.Augmenter
}

// New creates a Relay. A nil augmenter disables context lookups.
func New(cfg Config, upstream Upstream, aug augment.Augmenter) *Relay {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = DefaultModel
	}
	if cfg.DefaultBase == "" {
		cfg.DefaultBase = ollama.DefaultBaseURL
	}
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = DefaultReadBufferSize
	}
	if aug == nil {
		aug = augment.Noop{}
	}
	return &Relay{cfg: cfg, upstream: upstream, augmenter: aug}
}

// Result summarizes a finished stream.
type Result struct {
	State      State
	Model      string
	Fragments  int
	Bytes      int64
	Malformed  int
	Done       bool
	DoneReason string

	// ReadErr is the upstream read error that ended the stream early, if
	// any. It does not change State.
	ReadErr error
}

// Stream is an established upstream response waiting to be piped.
type Stream struct {
	body     io.ReadCloser
	model    string
	endpoint string
	bufSize  int
	state    State
}

// Model returns the model the request was sent to.
func (s *Stream) Model() string { return s.model }

// Endpoint returns the upstream base URL.
func (s *Stream) Endpoint() string { return s.endpoint }

// State returns the current lifecycle state.
func (s *Stream) State() State { return s.state }

// Close releases the upstream body without reading it.
func (s *Stream) Close() error {
	return s.body.Close()
}

// Open prepares the upstream conversation and sends it. It returns an
// *UpstreamError when the upstream is unreachable or rejects the request;
// in that case nothing has been written anywhere.
func (r *Relay) Open(ctx context.Context, req *api.ChatRequest) (*Stream, error) {
	model := req.Model
	if model == "" {
		model = r.cfg.DefaultModel
	}
	base := strings.TrimRight(req.Base(), "/")
	if base == "" {
		base = strings.TrimRight(r.cfg.DefaultBase, "/")
	}
	temperature := r.cfg.DefaultTemperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	msgs := BuildMessages(ctx, req.Messages, req.WebAssist, r.augmenter)

	upReq := &ollama.ChatRequest{
		Model:    model,
		Messages: toUpstream(msgs),
		Stream:   true,
		Options:  &ollama.Options{Temperature: &temperature},
	}

	debug.Log("relay", "opening stream", "model", model, "base", base, "messages", len(upReq.Messages), "web_assist", req.WebAssist)

	body, err := r.upstream.StreamChat(ctx, base, upReq)
	if err != nil {
		uerr := classify(base, err)
		slog.Warn("upstream unavailable", "base", base, "model", model, "kind", uerr.Kind.String(), "error", err)
		return nil, uerr
	}

	return &Stream{
		body:     body,
		model:    model,
		endpoint: base,
		bufSize:  r.cfg.ReadBufferSize,
		state:    StateStreaming,
	}, nil
}

// Stream opens the upstream and pipes it to w. On connection failure the
// returned Result has StateFailed and the error is an *UpstreamError.
func (r *Relay) Stream(ctx context.Context, req *api.ChatRequest, w io.Writer) (*Result, error) {
	s, err := r.Open(ctx, req)
	if err != nil {
		return &Result{State: StateFailed, Model: req.Model}, err
	}
	return s.Pipe(ctx, w)
}

// StreamChat is Stream without the summary. It returns an *UpstreamError
// when no stream could be opened, and a wrapped write error when the
// client went away mid-stream.
func (r *Relay) StreamChat(ctx context.Context, req *api.ChatRequest, w io.Writer) error {
	_, err := r.Stream(ctx, req, w)
	return err
}

// Pipe reads the upstream body until it ends, writing each content
// fragment to w as soon as its line is complete. If w implements
// Flush() error or http.Flusher it is flushed after every fragment.
//
// An error is returned only when writing to w fails; the upstream body is
// closed in every case.
func (s *Stream) Pipe(ctx context.Context, w io.Writer) (*Result, error) {
	defer s.body.Close()

	observability.StreamingConnections.Inc()
	defer observability.StreamingConnections.Dec()

	res := &Result{Model: s.model}
	var asm LineAssembler
	buf := make([]byte, s.bufSize)

	for {
		n, rerr := s.body.Read(buf)
		if n > 0 {
			for _, line := range asm.Feed(buf[:n]) {
				if err := s.emit(line, w, res); err != nil {
					asm.Close()
					s.state = StateComplete
					res.State = s.state
					debug.Log("relay", "client write failed, stopping", "model", s.model, "error", err)
					return res, fmt.Errorf("writing to client: %w", err)
				}
			}
		}
		if rerr == nil {
			continue
		}

		if !errors.Is(rerr, io.EOF) {
			res.ReadErr = rerr
			if ctx.Err() != nil {
				debug.Log("relay", "stream cancelled", "model", s.model, "error", rerr)
			} else {
				slog.Warn("upstream stream interrupted", "model", s.model, "base", s.endpoint, "error", rerr)
			}
		}
		if tail := asm.Pending(); tail != "" {
			debug.Log("relay", "discarding unterminated line", "bytes", len(tail))
		}
		asm.Close()
		break
	}

	s.state = StateComplete
	res.State = s.state
	debug.Log("relay", "stream complete",
		"model", s.model,
		"fragments", res.Fragments,
		"bytes", res.Bytes,
		"malformed", res.Malformed,
		"done_reason", res.DoneReason,
	)
	return res, nil
}

// emit handles one complete line. Only write failures are returned.
func (s *Stream) emit(line string, w io.Writer, res *Result) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	frame, ok := parseFrame(line)
	if !ok {
		res.Malformed++
		observability.RelayMalformedFramesTotal.WithLabelValues(s.model).Inc()
		debug.Log("relay", "skipping malformed frame", "line", debug.Truncate(line, 200))
		return nil
	}
	if frame.Done {
		res.Done = true
		res.DoneReason = frame.DoneReason
	}

	fragment := frame.Content()
	if fragment == "" {
		return nil
	}

	n, err := io.WriteString(w, fragment)
	res.Bytes += int64(n)
	if err != nil {
		return err
	}
	res.Fragments++
	observability.RelayFragmentsTotal.WithLabelValues(s.model).Inc()
	return flush(w)
}

func flush(w io.Writer) error {
	switch f := w.(type) {
	case interface{ Flush() error }:
		return f.Flush()
	case http.Flusher:
		f.Flush()
	}
	return nil
}

func toUpstream(msgs []api.ChatMessage) []ollama.Message {
	out := make([]ollama.Message, len(msgs))
	for i, m := range msgs {
		out[i] = ollama.Message{Role: string(m.Role), Content: m.Content}
	}
	return out
}
