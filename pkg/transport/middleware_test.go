package transport

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/rhuss/chatrelay/pkg/api"
)

func noopStreamer() ChatStreamer {
	return ChatStreamerFunc(func(ctx context.Context, req *api.ChatRequest, w io.Writer) error {
		return nil
	})
}

func TestChainAppliesMiddlewareInOrder(t *testing.T) {
	var order []string

	mw := func(name string) Middleware {
		return func(next ChatStreamer) ChatStreamer {
			return ChatStreamerFunc(func(ctx context.Context, req *api.ChatRequest, w io.Writer) error {
				order = append(order, name+":before")
				err := next.StreamChat(ctx, req, w)
				order = append(order, name+":after")
				return err
			})
		}
	}

	handler := ChatStreamerFunc(func(ctx context.Context, req *api.ChatRequest, w io.Writer) error {
		order = append(order, "handler")
		return nil
	})

	wrapped := Chain(mw("first"), mw("second"), mw("third"))(handler)
	wrapped.StreamChat(context.Background(), &api.ChatRequest{}, io.Discard)

	expected := []string{
		"first:before", "second:before", "third:before",
		"handler",
		"third:after", "second:after", "first:after",
	}

	if len(order) != len(expected) {
		t.Fatalf("execution order length = %d, want %d: %v", len(order), len(expected), order)
	}
	for i, got := range order {
		if got != expected[i] {
			t.Errorf("order[%d] = %q, want %q", i, got, expected[i])
		}
	}
}

func TestRecoveryCatchesPanic(t *testing.T) {
	handler := ChatStreamerFunc(func(ctx context.Context, req *api.ChatRequest, w io.Writer) error {
		panic("test panic")
	})

	err := Recovery()(handler).StreamChat(context.Background(), &api.ChatRequest{}, io.Discard)
	if err == nil {
		t.Fatal("expected error after panic, got nil")
	}

	apiErr, ok := err.(*api.APIError)
	if !ok {
		t.Fatalf("expected *api.APIError, got %T: %v", err, err)
	}
	if apiErr.Type != api.ErrorTypeServerError {
		t.Errorf("error type = %q, want %q", apiErr.Type, api.ErrorTypeServerError)
	}
	if !strings.Contains(apiErr.Message, "test panic") {
		t.Errorf("error message = %q, should contain %q", apiErr.Message, "test panic")
	}
}

func TestRecoveryPassesThroughNormalExecution(t *testing.T) {
	if err := Recovery()(noopStreamer()).StreamChat(context.Background(), &api.ChatRequest{}, io.Discard); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRequestIDGeneratesNewID(t *testing.T) {
	var capturedID string

	handler := ChatStreamerFunc(func(ctx context.Context, req *api.ChatRequest, w io.Writer) error {
		capturedID = RequestIDFromContext(ctx)
		return nil
	})

	RequestID()(handler).StreamChat(context.Background(), &api.ChatRequest{}, io.Discard)

	if capturedID == "" {
		t.Fatal("expected a generated request ID, got empty string")
	}
	if _, err := uuid.Parse(capturedID); err != nil {
		t.Errorf("request ID %q is not a UUID: %v", capturedID, err)
	}
}

func TestRequestIDPropagatesExisting(t *testing.T) {
	var capturedID string

	handler := ChatStreamerFunc(func(ctx context.Context, req *api.ChatRequest, w io.Writer) error {
		capturedID = RequestIDFromContext(ctx)
		return nil
	})

	ctx := ContextWithRequestID(context.Background(), "existing-id-123")
	RequestID()(handler).StreamChat(ctx, &api.ChatRequest{}, io.Discard)

	if capturedID != "existing-id-123" {
		t.Errorf("request ID = %q, want %q", capturedID, "existing-id-123")
	}
}

func TestRequestIDUniqueness(t *testing.T) {
	ids := make(map[string]bool)
	handler := ChatStreamerFunc(func(ctx context.Context, req *api.ChatRequest, w io.Writer) error {
		ids[RequestIDFromContext(ctx)] = true
		return nil
	})

	wrapped := RequestID()(handler)
	for i := 0; i < 100; i++ {
		wrapped.StreamChat(context.Background(), &api.ChatRequest{}, io.Discard)
	}

	if len(ids) != 100 {
		t.Errorf("expected 100 unique IDs, got %d", len(ids))
	}
}

func TestLoggingEmitsFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx := ContextWithRequestID(context.Background(), "req-log-test")
	req := &api.ChatRequest{
		Model:     "test-model",
		WebAssist: true,
		Messages:  []api.ChatMessage{{Role: api.RoleUser, Content: "hi"}},
	}
	Logging(logger)(noopStreamer()).StreamChat(ctx, req, io.Discard)

	output := buf.String()
	for _, expected := range []string{"request_id=req-log-test", "model=test-model", "web_assist=true", "messages=1", "chat relay completed"} {
		if !strings.Contains(output, expected) {
			t.Errorf("log output missing %q in:\n%s", expected, output)
		}
	}
}

func TestLoggingEmitsErrorOnFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	handler := ChatStreamerFunc(func(ctx context.Context, req *api.ChatRequest, w io.Writer) error {
		return api.NewUpstreamError("test failure")
	})

	Logging(logger)(handler).StreamChat(context.Background(), &api.ChatRequest{Model: "test"}, io.Discard)

	output := buf.String()
	if !strings.Contains(output, "chat relay failed") {
		t.Errorf("log output missing 'chat relay failed' in:\n%s", output)
	}
	if !strings.Contains(output, "test failure") {
		t.Errorf("log output missing error message in:\n%s", output)
	}
}
