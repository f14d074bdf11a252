package packet

import (
	"time"

	"firestige.xyz/strix/pkg/codec"
)

// DefaultMaxDepth bounds the layer walk so crafted next-protocol cycles
// cannot loop indefinitely.
const DefaultMaxDepth = 32

// Decoder walks a raw buffer through a registry, stacking layers until no
// decoder matches. A Decoder is cheap and safe to share between goroutines
// once its registry is fully populated.
type Decoder struct {
	reg      *Registry
	maxDepth int
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithMaxDepth overrides the maximum number of layers per packet.
func WithMaxDepth(n int) Option {
	return func(d *Decoder) {
		if n > 0 {
			d.maxDepth = n
		}
	}
}

// NewDecoder returns a Decoder reading from reg.
func NewDecoder(reg *Registry, opts ...Option) *Decoder {
	d := &Decoder{reg: reg, maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode dissects data starting from the (table, id) context seed. Unknown
// keys, exhausted input or a layer without a next-protocol identifier end the
// walk and the remaining bytes become the packet's opaque payload.
//
// A layer decode failure aborts the walk: the partially built packet is
// returned together with a codec.LayerError naming the failing layer and its
// offset. The failing layer is not appended, and the bytes from its start
// onward are kept as opaque payload so the partial packet still accounts for
// the whole buffer.
func (d *Decoder) Decode(table string, id uint32, data []byte) (*Packet, error) {
	pkt := &Packet{}
	r := codec.NewReader(data)
	np := NextProto{Table: table, ID: id}
	for depth := 0; depth < d.maxDepth; depth++ {
		fn, ok := d.reg.Lookup(np.Table, np.ID)
		if !ok || r.Remaining() == 0 {
			break
		}
		start := r.Offset()
		layer := fn()
		if err := layer.DecodeHeader(r); err != nil {
			pkt.Payload = data[start:]
			return pkt, &codec.LayerError{Layer: layer.LayerName(), Offset: start, Err: err}
		}
		pkt.Layers = append(pkt.Layers, layer)
		next, ok := layer.NextProto()
		if !ok {
			break
		}
		np = next
	}
	pkt.Payload = r.Rest()
	return pkt, nil
}

// DecodeLink dissects one captured frame: data plus the capture file or
// device link-layer type code seeding the linktype table, plus the capture
// timestamp, which is carried through untouched.
func (d *Decoder) DecodeLink(linkType uint32, ts time.Time, data []byte) (*Packet, error) {
	pkt, err := d.Decode(TableLinkType, linkType, data)
	pkt.Timestamp = ts
	return pkt, err
}

// Dissector table names used by the built-in protocol bindings. The table
// string namespaces numeric identifiers, so EtherType 0x0800 and IP protocol
// number 6 never collide.
const (
	TableLinkType  = "linktype"
	TableEtherType = "ethertype"
	TableIPProto   = "ipproto"
)
