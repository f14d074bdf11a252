// Package checksum implements the 16-bit one's-complement Internet checksum
// (RFC 1071) used by IPv4, UDP and TCP.
package checksum

// Accumulator folds bytes into a running Internet checksum. It implements
// io.Writer so header and payload regions can be streamed in independently;
// an odd trailing byte is carried over to the next Write.
type Accumulator struct {
	sum   uint32
	extra byte
	odd   bool
}

// Write adds p to the running sum. It never fails.
func (a *Accumulator) Write(p []byte) (int, error) {
	n := len(p)
	if a.odd && len(p) > 0 {
		a.sum += uint32(a.extra)<<8 | uint32(p[0])
		a.odd = false
		p = p[1:]
	}
	for len(p) > 1 {
		a.sum += uint32(p[0])<<8 | uint32(p[1])
		p = p[2:]
	}
	if len(p) == 1 {
		a.extra = p[0]
		a.odd = true
	}
	return n, nil
}

// AddUint16 adds one 16-bit word to the running sum. The accumulator must be
// at an even offset.
func (a *Accumulator) AddUint16(v uint16) {
	a.sum += uint32(v)
}

// Sum returns the one's complement of the folded sum. A trailing odd byte is
// padded with zero, as the RFC requires.
func (a *Accumulator) Sum() uint16 {
	sum := a.sum
	if a.odd {
		sum += uint32(a.extra) << 8
	}
	for sum > 0xFFFF {
		sum = (sum & 0xFFFF) + (sum >> 16)
	}
	return ^uint16(sum)
}

// Sum16 computes the checksum of a single byte region.
func Sum16(p []byte) uint16 {
	var a Accumulator
	_, _ = a.Write(p)
	return a.Sum()
}
