package client

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/tidwall/gjson"
)

const (
	// DefaultMaxFrameBytes bounds the data payload of one event
	DefaultMaxFrameBytes = 4 << 20

	sseBufferSize = 64 << 10
)

var doneSentinel = []byte("[DONE]")

// ErrFrameTooLarge is returned when an event exceeds the frame limit
var ErrFrameTooLarge = errors.New("sse frame exceeds size limit")

// Event is one decoded server-sent event
type Event struct {
	Name string
	Data []byte
}

// SSEReader frames a text/event-stream body into events. Lines split across
// network reads are buffered until complete. Comment lines and events
// without data are skipped; multiple data lines are joined with "\n".
// Data that already forms a complete JSON value or the [DONE] sentinel ends
// the event at its line, so servers that separate frames with a single
// newline are framed per line.
//
// An SSEReader is a single sequential consumer and not safe for concurrent use.
type SSEReader struct {
	br       *bufio.Reader
	maxFrame int
}

// NewSSEReader creates a reader; maxFrameBytes <= 0 uses DefaultMaxFrameBytes
func NewSSEReader(r io.Reader, maxFrameBytes int) *SSEReader {
	if maxFrameBytes <= 0 {
		maxFrameBytes = DefaultMaxFrameBytes
	}
	return &SSEReader{
		br:       bufio.NewReaderSize(r, sseBufferSize),
		maxFrame: maxFrameBytes,
	}
}

// Next blocks until a complete event is available. It returns io.EOF once
// the body ends; data pending at EOF without a closing blank line is
// returned as a final event.
func (r *SSEReader) Next() (Event, error) {
	var b eventBuilder
	for {
		line, err := r.readLine()
		if errors.Is(err, ErrFrameTooLarge) {
			return Event{}, err
		}
		if len(line) > 0 {
			if b.feed(line) {
				return b.event(), nil
			}
			if b.size > r.maxFrame {
				return Event{}, fmt.Errorf("%w (%d bytes)", ErrFrameTooLarge, b.size)
			}
		}
		if err != nil {
			if b.hasData() {
				return b.event(), nil
			}
			return Event{}, err
		}
	}
}

// Buffered returns the next event only when it is already complete in the
// read buffer. It never blocks on the underlying reader.
func (r *SSEReader) Buffered() (Event, bool) {
	n := r.br.Buffered()
	if n == 0 {
		return Event{}, false
	}
	peek, err := r.br.Peek(n)
	if err != nil {
		return Event{}, false
	}

	var b eventBuilder
	consumed := 0
	for {
		idx := bytes.IndexByte(peek[consumed:], '\n')
		if idx < 0 {
			return Event{}, false
		}
		line := peek[consumed : consumed+idx+1]
		consumed += idx + 1
		if b.feed(line) {
			_, _ = r.br.Discard(consumed)
			return b.event(), true
		}
	}
}

// readLine returns one line including its terminator, or the unterminated
// tail at EOF
func (r *SSEReader) readLine() ([]byte, error) {
	var line []byte
	for {
		chunk, err := r.br.ReadSlice('\n')
		if len(line)+len(chunk) > r.maxFrame {
			return nil, fmt.Errorf("%w (line over %d bytes)", ErrFrameTooLarge, r.maxFrame)
		}
		if err == bufio.ErrBufferFull {
			line = append(line, chunk...)
			continue
		}
		if line == nil {
			line = append([]byte(nil), chunk...)
		} else {
			line = append(line, chunk...)
		}
		return line, err
	}
}

type eventBuilder struct {
	name  string
	data  [][]byte
	size  int
	valid bool
}

// feed consumes one raw line and reports whether it completed an event
func (b *eventBuilder) feed(raw []byte) bool {
	line := bytes.TrimRight(raw, "\r\n")
	if len(line) == 0 {
		return b.hasData()
	}
	if line[0] == ':' {
		return false
	}

	field, value, found := bytes.Cut(line, []byte(":"))
	if found && len(value) > 0 && value[0] == ' ' {
		value = value[1:]
	}
	switch string(field) {
	case "data":
		b.data = append(b.data, append([]byte(nil), value...))
		b.size += len(value)
		b.valid = true
		return b.complete()
	case "event":
		b.name = string(value)
	}
	return false
}

// complete reports whether the data collected so far is a whole frame
func (b *eventBuilder) complete() bool {
	data := b.data[0]
	if len(b.data) > 1 {
		data = bytes.Join(b.data, []byte("\n"))
	}
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, doneSentinel) {
		return true
	}
	return len(data) > 0 && (data[0] == '{' || data[0] == '[') && gjson.ValidBytes(data)
}

func (b *eventBuilder) hasData() bool {
	return b.valid
}

func (b *eventBuilder) event() Event {
	return Event{Name: b.name, Data: bytes.Join(b.data, []byte("\n"))}
}
