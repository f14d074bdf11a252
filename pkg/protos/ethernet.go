package protos

import (
	"firestige.xyz/strix/pkg/codec"
	"firestige.xyz/strix/pkg/packet"
)

const (
	ethernetHeaderLen = 14

	// minEthernetPayload is the minimum enclosed size of an Ethernet II
	// frame; shorter frames are padded with a zero trailer.
	minEthernetPayload = 46
)

// Ethernet is an Ethernet II header. The trailer holds frame padding when
// crafting; on decode, padding bytes end up in the packet's opaque payload
// instead, which keeps round-trips byte exact.
type Ethernet struct {
	DstMAC  [6]byte
	SrcMAC  [6]byte
	Type    uint16 // EtherType; derived from the inner layer when left zero
	Trailer []byte
}

func (e *Ethernet) LayerName() string { return "ethernet" }

func (e *Ethernet) HeaderLen() int { return ethernetHeaderLen }

func (e *Ethernet) DecodeHeader(r *codec.Reader) error {
	b, err := r.ReadN(ethernetHeaderLen)
	if err != nil {
		return err
	}
	copy(e.DstMAC[:], b[0:6])
	copy(e.SrcMAC[:], b[6:12])
	e.Type = uint16(b[12])<<8 | uint16(b[13])
	return nil
}

func (e *Ethernet) EncodeHeader(w *codec.Writer) error {
	if err := w.WriteBytes(e.DstMAC[:]); err != nil {
		return err
	}
	if err := w.WriteBytes(e.SrcMAC[:]); err != nil {
		return err
	}
	return w.WriteUint16(e.Type)
}

func (e *Ethernet) NextProto() (packet.NextProto, bool) {
	return packet.NextProto{Table: packet.TableEtherType, ID: uint32(e.Type)}, true
}

func (e *Ethernet) TrailerLen() int { return len(e.Trailer) }

func (e *Ethernet) EncodeTrailer(w *codec.Writer) error {
	return w.WriteBytes(e.Trailer)
}

// Finalize derives the EtherType from the inner layer when the caller left
// it zero, and recomputes the zero padding that brings the enclosed size up
// to the Ethernet minimum. A hand-set type survives, which is how the outer
// tag of a QinQ stack keeps 0x88A8 rather than the inner tag's 0x8100.
func (e *Ethernet) Finalize(ctx *packet.FinalizeContext) error {
	if e.Type == 0 {
		if id, ok := ctx.InnerProtoID(packet.TableEtherType); ok {
			e.Type = uint16(id)
		}
	}
	if pad := minEthernetPayload - len(ctx.Payload); pad > 0 {
		e.Trailer = make([]byte, pad)
	} else {
		e.Trailer = nil
	}
	return nil
}
