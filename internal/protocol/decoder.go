package protocol

import (
	"errors"
	"io"
)

const readChunk = 4096

// Decoder reads frames from a byte stream, buffering partial frames across reads.
type Decoder struct {
	r        io.Reader
	buf      []byte
	chunk    []byte
	maxFrame int
}

func NewDecoder(r io.Reader, maxFrame int) *Decoder {
	if maxFrame <= 0 {
		maxFrame = DefaultMaxFrameSize
	}
	return &Decoder{r: r, chunk: make([]byte, readChunk), maxFrame: maxFrame}
}

// Next blocks until a whole frame is available. An *UnknownTypeError means one
// frame was skipped and Next can be called again; any other error is final.
// A stream that ends mid-frame returns io.ErrUnexpectedEOF.
func (d *Decoder) Next() (Message, error) {
	for {
		msg, n, err := decode(d.buf, d.maxFrame)
		if n > 0 {
			d.buf = append(d.buf[:0], d.buf[n:]...)
		}
		if !errors.Is(err, ErrNeedMoreData) {
			return msg, err
		}
		if err := d.fill(); err != nil {
			return nil, err
		}
	}
}

// Buffered returns the number of bytes read but not yet decoded.
func (d *Decoder) Buffered() int { return len(d.buf) }

func (d *Decoder) fill() error {
	n, err := d.r.Read(d.chunk)
	d.buf = append(d.buf, d.chunk[:n]...)
	if n > 0 || err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) && len(d.buf) > 0 {
		return io.ErrUnexpectedEOF
	}
	return err
}
