package relay

import "bytes"

// LineAssembler reassembles newline-delimited lines from arbitrarily split
// chunks. Bytes after the last newline are held until a later chunk
// completes the line, which also keeps multi-byte UTF-8 sequences intact
// across chunk boundaries.
//
// A LineAssembler is not safe for concurrent use.
type LineAssembler struct {
	buf  []byte
	done bool
}

// Feed appends chunk to the buffer and returns every line it completes,
// without the trailing newline. Feeding after Close returns nil.
func (a *LineAssembler) Feed(chunk []byte) []string {
	if a.done || len(chunk) == 0 {
		return nil
	}
	a.buf = append(a.buf, chunk...)

	last := bytes.LastIndexByte(a.buf, '\n')
	if last < 0 {
		return nil
	}

	lines := splitLines(a.buf[:last])
	n := copy(a.buf, a.buf[last+1:])
	a.buf = a.buf[:n]
	return lines
}

func splitLines(b []byte) []string {
	parts := bytes.Split(b, []byte{'\n'})
	lines := make([]string, len(parts))
	for i, p := range parts {
		lines[i] = string(p)
	}
	return lines
}

// Pending returns the unterminated tail held in the buffer.
func (a *LineAssembler) Pending() string {
	return string(a.buf)
}

// Close marks the stream finished and discards any unterminated tail.
func (a *LineAssembler) Close() {
	a.done = true
	a.buf = nil
}

// Done reports whether Close has been called.
func (a *LineAssembler) Done() bool {
	return a.done
}
