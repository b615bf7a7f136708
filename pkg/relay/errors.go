package relay

import (
	"errors"
	"fmt"

	"github.com/rhuss/chatrelay/pkg/upstream/ollama"
)

// ErrorKind classifies failures that prevent a stream from starting.
type ErrorKind int

const (
	// TransportUnavailable means the upstream could not be reached.
	TransportUnavailable ErrorKind = iota + 1
	// UpstreamNonSuccess means the upstream answered with a non-success
	// status or without a body.
	UpstreamNonSuccess
)

func (k ErrorKind) String() string {
	switch k {
	case TransportUnavailable:
		return "transport_unavailable"
	case UpstreamNonSuccess:
		return "upstream_non_success"
	default:
		return "unknown"
	}
}

// UpstreamError is returned by Open when no stream could be established.
// Its message is meant to be shown to the client verbatim.
type UpstreamError struct {
	Kind       ErrorKind
	Endpoint   string
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	switch e.Kind {
	case UpstreamNonSuccess:
		return fmt.Sprintf("Failed to reach upstream server at %s. Status: %d. %s", e.Endpoint, e.StatusCode, e.Body)
	default:
		cause := ""
		if e.Err != nil {
			cause = e.Err.Error()
		}
		return fmt.Sprintf("Cannot reach upstream at %s. %s", e.Endpoint, cause)
	}
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// classify converts an upstream client error into an *UpstreamError.
func classify(endpoint string, err error) *UpstreamError {
	var serr *ollama.StatusError
	if errors.As(err, &serr) {
		return &UpstreamError{
			Kind:       UpstreamNonSuccess,
			Endpoint:   endpoint,
			StatusCode: serr.StatusCode,
			Body:       serr.Body,
			Err:        err,
		}
	}
	return &UpstreamError{
		Kind:     TransportUnavailable,
		Endpoint: endpoint,
		Err:      err,
	}
}
