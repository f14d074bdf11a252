package packet

import (
	"fmt"
	"time"

	"firestige.xyz/strix/pkg/codec"
)

// Packet is an ordered stack of layers, outer to inner, plus the trailing
// bytes no registered decoder claimed. For any packet produced by Decode,
// Serialize reproduces the input buffer byte for byte.
type Packet struct {
	Layers  []Layer
	Payload []byte

	// Timestamp is the capture timestamp, passed through unmodified for
	// the caller's use. The engine never interprets it.
	Timestamp time.Time
}

// New builds a packet from hand-constructed layers, for the craft path.
func New(layers ...Layer) *Packet {
	return &Packet{Layers: layers}
}

// Len returns the total encoded size in bytes.
func (p *Packet) Len() int {
	n := len(p.Payload)
	for _, l := range p.Layers {
		n += l.HeaderLen()
		if t, ok := l.(Trailered); ok {
			n += t.TrailerLen()
		}
	}
	return n
}

// LayerNamed returns the first layer with the given name, or nil.
func (p *Packet) LayerNamed(name string) Layer {
	for _, l := range p.Layers {
		if l.LayerName() == name {
			return l
		}
	}
	return nil
}

// Serialize writes the packet as-is: headers outer to inner, then the opaque
// payload, then trailers inner to outer. Derived fields are written with
// their current values; run Finalize first when crafting.
func (p *Packet) Serialize() ([]byte, error) {
	buf := make([]byte, p.Len())
	w := codec.NewWriter(buf)
	if err := p.SerializeTo(w); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// SerializeTo writes the packet into an existing write cursor.
func (p *Packet) SerializeTo(w *codec.Writer) error {
	for _, l := range p.Layers {
		if err := l.EncodeHeader(w); err != nil {
			return fmt.Errorf("encode %s header: %w", l.LayerName(), err)
		}
	}
	if err := w.WriteBytes(p.Payload); err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	for i := len(p.Layers) - 1; i >= 0; i-- {
		if t, ok := p.Layers[i].(Trailered); ok {
			if err := t.EncodeTrailer(w); err != nil {
				return fmt.Errorf("encode %s trailer: %w", t.LayerName(), err)
			}
		}
	}
	return nil
}

// Finalize computes derived fields innermost-first. Each layer is handed the
// already encoded bytes it encloses, so length fields can be measured rather
// than guessed, together with its adjacent neighbors for next-protocol and
// pseudo-header derivation. Running Finalize twice yields identical bytes.
func (p *Packet) Finalize() error {
	inner := p.Payload
	for i := len(p.Layers) - 1; i >= 0; i-- {
		l := p.Layers[i]
		ctx := &FinalizeContext{Payload: inner}
		if i > 0 {
			ctx.Outer = p.Layers[i-1]
		}
		if i < len(p.Layers)-1 {
			ctx.Inner = p.Layers[i+1]
		}
		if f, ok := l.(Finalizer); ok {
			if err := f.Finalize(ctx); err != nil {
				return fmt.Errorf("finalize %s: %w", l.LayerName(), err)
			}
		}

		// Re-encode this layer around its payload so the next outer
		// layer measures and checksums final bytes.
		tlen := 0
		t, trailered := l.(Trailered)
		if trailered {
			tlen = t.TrailerLen()
		}
		buf := make([]byte, l.HeaderLen()+len(inner)+tlen)
		w := codec.NewWriter(buf)
		if err := l.EncodeHeader(w); err != nil {
			return fmt.Errorf("finalize %s: %w", l.LayerName(), err)
		}
		if err := w.WriteBytes(inner); err != nil {
			return fmt.Errorf("finalize %s: %w", l.LayerName(), err)
		}
		if trailered {
			if err := t.EncodeTrailer(w); err != nil {
				return fmt.Errorf("finalize %s: %w", l.LayerName(), err)
			}
		}
		inner = w.Bytes()
	}
	return nil
}

// protoIDOf resolves a layer's well-known identifier in a table, for layers
// deriving their next-protocol field from what is stacked inside them.
func protoIDOf(l Layer, table string) (uint32, bool) {
	if l == nil {
		return 0, false
	}
	if ident, ok := l.(ProtoIdentifier); ok {
		return ident.ProtoID(table)
	}
	return 0, false
}

// InnerProtoID resolves the dissector identifier of ctx.Inner within table.
// Layers use it in Finalize to fill next-protocol fields.
func (ctx *FinalizeContext) InnerProtoID(table string) (uint32, bool) {
	return protoIDOf(ctx.Inner, table)
}

// OuterPseudoHeader requests checksum pseudo-header material from the
// adjacent outer layer. It fails with codec.ErrUnresolved when there is no
// outer layer or it cannot supply one.
func (ctx *FinalizeContext) OuterPseudoHeader(protocol uint8, length int) ([]byte, error) {
	ph, ok := ctx.Outer.(PseudoHeaderProvider)
	if !ok {
		return nil, fmt.Errorf("%w: no outer layer provides a pseudo-header", codec.ErrUnresolved)
	}
	return ph.PseudoHeader(protocol, length)
}
