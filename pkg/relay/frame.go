package relay

import "encoding/json"

// Frame is the subset of an upstream NDJSON line the relay acts on. Other
// fields (timestamps, eval counters) are ignored so that their format can
// never cause a content-bearing line to be dropped.
type Frame struct {
	Model   string `json:"model"`
	Message *struct {
		Content string `json:"content"`
	} `json:"message"`
	Done       bool   `json:"done"`
	DoneReason string `json:"done_reason"`
}

// Content returns the frame's text fragment, or "" if it carries none.
func (f *Frame) Content() string {
	if f.Message == nil {
		return ""
	}
	return f.Message.Content
}

// DecodeFrame parses one trimmed, non-empty upstream line. ok is false when
// the line is not a JSON object. A well-formed frame without content
// yields ("", true).
func DecodeFrame(line string) (fragment string, ok bool) {
	frame, ok := parseFrame(line)
	if !ok {
		return "", false
	}
	return frame.Content(), true
}

func parseFrame(line string) (*Frame, bool) {
	var frame Frame
	if err := json.Unmarshal([]byte(line), &frame); err != nil {
		return nil, false
	}
	return &frame, true
}
