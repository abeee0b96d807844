package analysis

import (
	"errors"
	"io"
)

const readChunkSize = 4096

// Decoder reads an assessment event stream and yields decoded events in
// arrival order. It is a forward-only, single-use reader: the same sequence of
// events is produced for every chunking of the same underlying bytes, because
// partial lines are carried over between reads.
type Decoder struct {
	r       io.Reader
	buffer  string
	pending []Event
	done    bool
}

// NewDecoder wraps a stream body. The decoder does not close the reader.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Next returns the next decoded event. It returns io.EOF once the stream is
// exhausted, after flushing any final unterminated line. Transport read errors
// are returned as-is.
func (d *Decoder) Next() (Event, error) {
	for {
		if len(d.pending) > 0 {
			ev := d.pending[0]
			d.pending = d.pending[1:]
			return ev, nil
		}
		if d.done {
			return nil, io.EOF
		}

		chunk := make([]byte, readChunkSize)
		n, err := d.r.Read(chunk)
		if n > 0 {
			var lines []string
			lines, d.buffer = splitLines(d.buffer, string(chunk[:n]))
			d.enqueue(lines)
		}
		if err != nil {
			d.done = true
			if errors.Is(err, io.EOF) {
				// A stream may end without a trailing newline.
				if d.buffer != "" {
					d.enqueue([]string{d.buffer})
					d.buffer = ""
				}
				continue
			}
			return nil, err
		}
	}
}

func (d *Decoder) enqueue(lines []string) {
	for _, line := range lines {
		if ev := DecodeLine(line); ev != nil {
			d.pending = append(d.pending, ev)
		}
	}
}
