package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rhuss/chatrelay/pkg/debug"
	"github.com/rhuss/chatrelay/pkg/observability"
)

// Client talks to one or more Ollama servers.
type Client struct {
	cfg    Config
	client *http.Client
	stream *http.Client
}

// New creates a Client. Returns an error if the configuration is invalid.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("ollama: BaseURL is required")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	transport := http.DefaultTransport
	return &Client{
		cfg:    cfg,
		client: &http.Client{Transport: transport, Timeout: cfg.Timeout},
		// A stream can legitimately outlive any fixed timeout; its
		// lifetime follows the request context.
		stream: &http.Client{Transport: transport},
	}, nil
}

// BaseURL returns the default server URL.
func (c *Client) BaseURL() string {
	return c.cfg.BaseURL
}

// ChatURL returns the chat endpoint for base, or for the default base when
// base is empty.
func (c *Client) ChatURL(base string) string {
	if base == "" {
		base = c.cfg.BaseURL
	}
	return strings.TrimRight(base, "/") + "/api/chat"
}

// StreamChat sends a streaming chat request and returns the NDJSON body.
// The caller must close it. Network failures are returned unwrapped from
// the HTTP client; non-2xx statuses and missing bodies as *StatusError.
func (c *Client) StreamChat(ctx context.Context, base string, req *ChatRequest) (io.ReadCloser, error) {
	reqCopy := *req
	reqCopy.Stream = true

	resp, err := c.do(ctx, c.stream, base, &reqCopy)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Complete sends a non-streaming chat request and returns the decoded
// response.
func (c *Client) Complete(ctx context.Context, base string, req *ChatRequest) (*ChatResponse, error) {
	reqCopy := *req
	reqCopy.Stream = false

	resp, err := c.do(ctx, c.client, base, &reqCopy)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("ollama: decoding response: %w", err)
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, hc *http.Client, base string, req *ChatRequest) (*http.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("ollama: marshaling request: %w", err)
	}

	url := c.ChatURL(base)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ollama: creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if req.Stream {
		httpReq.Header.Set("Accept", "application/x-ndjson")
	}

	if debug.TraceIsEnabled("upstream") {
		debug.Trace("upstream", "request body", "url", url, "body", debug.Truncate(string(body), 2000))
	} else {
		debug.Log("upstream", "sending chat request", "url", url, "model", req.Model, "stream", req.Stream, "messages", len(req.Messages))
	}

	start := time.Now()
	resp, err := hc.Do(httpReq)
	if err != nil {
		observability.UpstreamRequestsTotal.WithLabelValues(req.Model, "unreachable").Inc()
		return nil, err
	}
	observability.UpstreamLatency.WithLabelValues(req.Model).Observe(time.Since(start).Seconds())
	observability.UpstreamRequestsTotal.WithLabelValues(req.Model, strconv.Itoa(resp.StatusCode/100)+"xx").Inc()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || resp.Body == http.NoBody {
		serr := newStatusError(resp)
		resp.Body.Close()
		debug.Log("upstream", "chat request rejected", "url", url, "status", resp.StatusCode, "body", debug.Truncate(serr.Body, 200))
		return nil, serr
	}
	return resp, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
