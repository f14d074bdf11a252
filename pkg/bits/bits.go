// Package bits provides unsigned integers of arbitrary bit widths and the
// pack/unpack operations used to model sub-byte protocol header fields.
//
// A Uint is backed by a uint64 but guarantees its value never exceeds its
// declared width. A Layout describes an ordered tuple of widths whose sum is
// one of the builtin widths (8, 16, 32 or 64); packing concatenates the tuple
// with the first field in the most significant bits, so a layout reads in the
// same order as the header diagram it models.
package bits

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfRange indicates a value does not fit in its declared bit width.
	ErrOutOfRange = errors.New("strix: value out of range for bit width")

	// ErrBadWidth indicates a bit width outside 1..64.
	ErrBadWidth = errors.New("strix: bit width must be between 1 and 64")

	// ErrBadLayout indicates a layout whose widths do not sum to a builtin width.
	ErrBadLayout = errors.New("strix: layout widths must sum to 8, 16, 32 or 64")

	// ErrFieldMismatch indicates pack was called with fields that do not match
	// the layout.
	ErrFieldMismatch = errors.New("strix: fields do not match layout")
)

// Uint is an unsigned integer constrained to a declared bit width.
// The zero value is a 0-width invalid Uint; construct with New or MustNew.
type Uint struct {
	width int
	value uint64
}

// New constructs a Uint of the given width. It fails with ErrBadWidth for
// widths outside 1..64 and ErrOutOfRange when value >= 2^width.
func New(width int, value uint64) (Uint, error) {
	if width < 1 || width > 64 {
		return Uint{}, fmt.Errorf("%w: %d", ErrBadWidth, width)
	}
	if width < 64 && value >= 1<<uint(width) {
		return Uint{}, fmt.Errorf("%w: %d does not fit in %d bits", ErrOutOfRange, value, width)
	}
	return Uint{width: width, value: value}, nil
}

// MustNew is like New but panics on error. Intended for constants and
// setup-time initialization only.
func MustNew(width int, value uint64) Uint {
	u, err := New(width, value)
	if err != nil {
		panic(err)
	}
	return u
}

// Value returns the contained value.
func (u Uint) Value() uint64 { return u.value }

// Width returns the declared bit width.
func (u Uint) Width() int { return u.width }

// WithValue returns a copy of u holding value, re-checking the range.
func (u Uint) WithValue(value uint64) (Uint, error) {
	return New(u.width, value)
}

func (u Uint) String() string {
	return fmt.Sprintf("%d/u%d", u.value, u.width)
}

// Layout is an ordered tuple of bit widths that packs into exactly one
// builtin unsigned width. Layouts are immutable once constructed and are
// meant to be built in package-level vars via MustLayout, so ill-formed
// width sums surface at init time rather than per packet.
type Layout struct {
	widths []int
	total  int
}

// NewLayout validates that the widths sum to 8, 16, 32 or 64 bits.
func NewLayout(widths ...int) (Layout, error) {
	total := 0
	for _, w := range widths {
		if w < 1 || w > 64 {
			return Layout{}, fmt.Errorf("%w: %d", ErrBadWidth, w)
		}
		total += w
	}
	switch total {
	case 8, 16, 32, 64:
	default:
		return Layout{}, fmt.Errorf("%w: got %d bits", ErrBadLayout, total)
	}
	return Layout{widths: append([]int(nil), widths...), total: total}, nil
}

// MustLayout is like NewLayout but panics on error.
func MustLayout(widths ...int) Layout {
	l, err := NewLayout(widths...)
	if err != nil {
		panic(err)
	}
	return l
}

// Width returns the packed width in bits.
func (l Layout) Width() int { return l.total }

// NumFields returns the number of fields in the layout.
func (l Layout) NumFields() int { return len(l.widths) }

// Pack concatenates the fields into a single integer, first field in the
// most significant bits. The fields must match the layout widths
// positionally.
func (l Layout) Pack(fields ...Uint) (uint64, error) {
	if len(fields) != len(l.widths) {
		return 0, fmt.Errorf("%w: want %d fields, got %d", ErrFieldMismatch, len(l.widths), len(fields))
	}
	var packed uint64
	for i, f := range fields {
		if f.width != l.widths[i] {
			return 0, fmt.Errorf("%w: field %d is %d bits, layout wants %d",
				ErrFieldMismatch, i, f.width, l.widths[i])
		}
		packed = packed<<uint(f.width) | f.value
	}
	return packed, nil
}

// PackValues is a convenience form of Pack that range-checks each raw value
// against the layout widths.
func (l Layout) PackValues(values ...uint64) (uint64, error) {
	if len(values) != len(l.widths) {
		return 0, fmt.Errorf("%w: want %d fields, got %d", ErrFieldMismatch, len(l.widths), len(values))
	}
	fields := make([]Uint, len(values))
	for i, v := range values {
		f, err := New(l.widths[i], v)
		if err != nil {
			return 0, fmt.Errorf("field %d: %w", i, err)
		}
		fields[i] = f
	}
	return l.Pack(fields...)
}

// Unpack splits a packed integer back into its fields, the exact inverse of
// Pack. Bits above the layout width must be zero.
func (l Layout) Unpack(packed uint64) ([]Uint, error) {
	if l.total < 64 && packed >= 1<<uint(l.total) {
		return nil, fmt.Errorf("%w: %#x exceeds %d bits", ErrOutOfRange, packed, l.total)
	}
	fields := make([]Uint, len(l.widths))
	shift := l.total
	for i, w := range l.widths {
		shift -= w
		mask := ^uint64(0) >> uint(64-w)
		fields[i] = Uint{width: w, value: (packed >> uint(shift)) & mask}
	}
	return fields, nil
}

// UnpackValues is like Unpack but returns the raw values.
func (l Layout) UnpackValues(packed uint64) ([]uint64, error) {
	fields, err := l.Unpack(packed)
	if err != nil {
		return nil, err
	}
	values := make([]uint64, len(fields))
	for i, f := range fields {
		values[i] = f.value
	}
	return values, nil
}
