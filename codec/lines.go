package codec

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

// MaxLineSize bounds a single newline-delimited record.
const MaxLineSize = 16 << 20

// Record is one decoded line. Raw aliases the reader's buffer and is only
// valid during the callback.
type Record struct {
	Line   int
	Raw    []byte
	Fields map[string]any
}

// ReadLines decodes newline-delimited records from r with c and calls fn for
// each one in input order. Blank lines are skipped. Decoding stops at the
// first error, which names the offending line.
func ReadLines(r io.Reader, c Codec, fn func(Record) error) error {
	if c == nil {
		c = Default
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), MaxLineSize)

	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var fields map[string]any
		if err := c.Unmarshal(raw, &fields); err != nil {
			return fmt.Errorf("line %d: %s: %w", line, c.Name(), err)
		}
		if fields == nil {
			return fmt.Errorf("line %d: not an object", line)
		}
		if err := fn(Record{Line: line, Raw: raw, Fields: fields}); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("line %d: %w", line+1, err)
	}
	return nil
}
