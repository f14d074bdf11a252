// Package packet defines the layer/packet model, the dissector registry and
// the decode and finalization passes of the engine. Protocol knowledge lives
// entirely in layer implementations (see pkg/protos); this package only walks
// buffers, dispatches decoders and drives derived-field computation.
package packet

import "firestige.xyz/strix/pkg/codec"

// NextProto identifies the protocol expected to follow a layer: a table name
// discriminating the numbering space (EtherType values and IP protocol
// numbers overlap numerically) and the numeric identifier within it.
type NextProto struct {
	Table string
	ID    uint32
}

// Layer is one decoded or hand-built protocol header.
//
// DecodeHeader must consume exactly the bytes belonging to the header, leave
// the cursor at the first payload byte, and fail with codec.ErrTruncated or
// codec.ErrInvalidField without consuming payload bytes of an inner layer.
// EncodeHeader must write exactly HeaderLen bytes in the same layout.
type Layer interface {
	LayerName() string
	HeaderLen() int
	DecodeHeader(r *codec.Reader) error
	EncodeHeader(w *codec.Writer) error

	// NextProto reports the dissector key for the enclosed data, if the
	// header carries one.
	NextProto() (NextProto, bool)
}

// Trailered is implemented by layers that append bytes after their enclosed
// data, such as Ethernet frame padding.
type Trailered interface {
	Layer
	TrailerLen() int
	EncodeTrailer(w *codec.Writer) error
}

// FinalizeContext carries the information a layer may need to compute its
// derived fields. Cross-layer data flows only through this value; layers
// never hold references to their neighbors.
type FinalizeContext struct {
	// Payload is the fully encoded data the layer encloses: the headers,
	// payload and trailers of everything inside it.
	Payload []byte

	// Outer is the adjacent enclosing layer, or nil for the outermost one.
	Outer Layer

	// Inner is the adjacent enclosed layer, or nil when only opaque
	// payload follows.
	Inner Layer
}

// Finalizer is implemented by layers with derived fields (lengths, checksums,
// next-protocol identifiers). Finalize must be deterministic in the
// non-derived fields so the pass is idempotent.
type Finalizer interface {
	Layer
	Finalize(ctx *FinalizeContext) error
}

// PseudoHeaderProvider is implemented by network layers whose transport
// checksums cover a pseudo-header. The inner layer requests the material
// explicitly during finalization, passing its own protocol number and the
// length it covers.
type PseudoHeaderProvider interface {
	PseudoHeader(protocol uint8, length int) ([]byte, error)
}

// ProtoIdentifier is implemented by layers that have a well-known identifier
// in a dissector table, letting an enclosing layer derive its next-protocol
// field from the layer stacked inside it.
type ProtoIdentifier interface {
	ProtoID(table string) (uint32, bool)
}

// Field is one named header field rendered for display.
type Field struct {
	Name  string
	Value string
}

// FieldProvider is implemented by layers that can describe their fields for
// human-readable output. Layers without it are dumped as raw header bytes.
type FieldProvider interface {
	Fields() []Field
}
