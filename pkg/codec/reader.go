package codec

import (
	"encoding/binary"
	"fmt"
)

// Reader is a read cursor over an immutable byte slice. It tracks the current
// offset and never advances past the end of the data; a short read fails with
// ErrTruncated and leaves the cursor where it was.
type Reader struct {
	data []byte
	pos  int
}

// NewReader returns a Reader positioned at the start of data. The Reader
// aliases data and never mutates it.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int { return r.pos }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.data) - r.pos }

// ReadN consumes and returns the next n bytes. The returned slice aliases the
// underlying data.
func (r *Reader) ReadN(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative read length %d", ErrInvalidField, n)
	}
	if r.Remaining() < n {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, n, r.Remaining())
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// Peek returns the next n bytes without consuming them.
func (r *Reader) Peek(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative read length %d", ErrInvalidField, n)
	}
	if r.Remaining() < n {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, n, r.Remaining())
	}
	return r.data[r.pos : r.pos+n], nil
}

// Skip consumes n bytes without returning them.
func (r *Reader) Skip(n int) error {
	_, err := r.ReadN(n)
	return err
}

// Rest consumes and returns all remaining bytes.
func (r *Reader) Rest() []byte {
	b := r.data[r.pos:]
	r.pos = len(r.data)
	return b
}

// ReadUint8 consumes one byte.
func (r *Reader) ReadUint8() (uint8, error) {
	b, err := r.ReadN(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadUint16 consumes two bytes in network (big-endian) order.
func (r *Reader) ReadUint16() (uint16, error) {
	b, err := r.ReadN(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// ReadUint32 consumes four bytes in network (big-endian) order.
func (r *Reader) ReadUint32() (uint32, error) {
	b, err := r.ReadN(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}
