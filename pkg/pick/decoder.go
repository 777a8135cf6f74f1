package pick

import (
	"errors"
	"fmt"
	"io"
)

// ErrMalformed reports a selection buffer that does not follow the hit
// record grammar.
var ErrMalformed = errors.New("pick: malformed selection buffer")

// Hit is one decoded selection record.
type Hit struct {
	Near, Far uint32
	Names     []uint32
}

// Decoder reads hit records of the form
// [name count, min depth, max depth, name0 ... name(count-1)].
type Decoder struct {
	buf  []uint32
	pos  int
	left int
}

// NewDecoder returns a decoder for the given number of hits in buf. A
// negative count, as returned on overflow, is an error on first Next.
func NewDecoder(buf []uint32, hits int) *Decoder {
	return &Decoder{buf: buf, left: hits}
}

// Next returns the next hit, or io.EOF after the last one.
func (d *Decoder) Next() (Hit, error) {
	if d.left < 0 {
		return Hit{}, fmt.Errorf("%w: hit count %d", ErrMalformed, d.left)
	}
	if d.left == 0 {
		return Hit{}, io.EOF
	}
	if len(d.buf)-d.pos < 3 {
		return Hit{}, fmt.Errorf("%w: truncated record header at word %d", ErrMalformed, d.pos)
	}
	count := int(d.buf[d.pos])
	h := Hit{Near: d.buf[d.pos+1], Far: d.buf[d.pos+2]}
	if count > len(d.buf)-d.pos-3 {
		return Hit{}, fmt.Errorf("%w: record at word %d claims %d names, %d words remain",
			ErrMalformed, d.pos, count, len(d.buf)-d.pos-3)
	}
	if h.Near > h.Far {
		return Hit{}, fmt.Errorf("%w: record at word %d has near depth after far depth", ErrMalformed, d.pos)
	}
	h.Names = make([]uint32, count)
	copy(h.Names, d.buf[d.pos+3:])
	d.pos += 3 + count
	d.left--
	return h, nil
}

// Decode reads every hit in buf.
func Decode(buf []uint32, hits int) ([]Hit, error) {
	d := NewDecoder(buf, hits)
	out := make([]Hit, 0, max(hits, 0))
	for {
		h, err := d.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
}
