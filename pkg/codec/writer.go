package codec

import (
	"encoding/binary"
	"fmt"
)

// Writer is a write cursor over a caller-supplied destination buffer. A write
// that does not fit fails with ErrShortBuffer and leaves the cursor where it
// was.
type Writer struct {
	buf []byte
	pos int
}

// NewWriter returns a Writer positioned at the start of buf.
func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf}
}

// Written returns the number of bytes written so far.
func (w *Writer) Written() int { return w.pos }

// Available returns the number of writable bytes left.
func (w *Writer) Available() int { return len(w.buf) - w.pos }

// Bytes returns the written prefix of the destination buffer.
func (w *Writer) Bytes() []byte { return w.buf[:w.pos] }

func (w *Writer) reserve(n int) ([]byte, error) {
	if w.Available() < n {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, n, w.Available())
	}
	b := w.buf[w.pos : w.pos+n]
	w.pos += n
	return b, nil
}

// WriteBytes copies p into the destination.
func (w *Writer) WriteBytes(p []byte) error {
	b, err := w.reserve(len(p))
	if err != nil {
		return err
	}
	copy(b, p)
	return nil
}

// WriteUint8 writes one byte.
func (w *Writer) WriteUint8(v uint8) error {
	b, err := w.reserve(1)
	if err != nil {
		return err
	}
	b[0] = v
	return nil
}

// WriteUint16 writes two bytes in network (big-endian) order.
func (w *Writer) WriteUint16(v uint16) error {
	b, err := w.reserve(2)
	if err != nil {
		return err
	}
	binary.BigEndian.PutUint16(b, v)
	return nil
}

// WriteUint32 writes four bytes in network (big-endian) order.
func (w *Writer) WriteUint32(v uint32) error {
	b, err := w.reserve(4)
	if err != nil {
		return err
	}
	binary.BigEndian.PutUint32(b, v)
	return nil
}
