package protos

import (
	"fmt"

	"firestige.xyz/strix/pkg/bits"
	"firestige.xyz/strix/pkg/codec"
	"firestige.xyz/strix/pkg/packet"
)

const dot1qHeaderLen = 4

// TCI layout: priority (3), drop eligible (1), VLAN id (12).
var dot1qTCI = bits.MustLayout(3, 1, 12)

// Dot1Q is an 802.1Q VLAN tag. QinQ stacks appear as two consecutive Dot1Q
// layers, since 0x88A8 resolves to the same decoder.
type Dot1Q struct {
	Priority     uint8
	DropEligible bool
	VLAN         uint16
	Type         uint16 // inner EtherType; derived when left zero
}

func (d *Dot1Q) LayerName() string { return "dot1q" }

func (d *Dot1Q) HeaderLen() int { return dot1qHeaderLen }

func (d *Dot1Q) DecodeHeader(r *codec.Reader) error {
	tci, err := r.ReadUint16()
	if err != nil {
		return err
	}
	fields, err := dot1qTCI.UnpackValues(uint64(tci))
	if err != nil {
		return err
	}
	d.Priority = uint8(fields[0])
	d.DropEligible = fields[1] != 0
	d.VLAN = uint16(fields[2])
	d.Type, err = r.ReadUint16()
	return err
}

func (d *Dot1Q) EncodeHeader(w *codec.Writer) error {
	dei := uint64(0)
	if d.DropEligible {
		dei = 1
	}
	tci, err := dot1qTCI.PackValues(uint64(d.Priority), dei, uint64(d.VLAN))
	if err != nil {
		return fmt.Errorf("%w: %v", codec.ErrInvalidField, err)
	}
	if err := w.WriteUint16(uint16(tci)); err != nil {
		return err
	}
	return w.WriteUint16(d.Type)
}

func (d *Dot1Q) NextProto() (packet.NextProto, bool) {
	return packet.NextProto{Table: packet.TableEtherType, ID: uint32(d.Type)}, true
}

func (d *Dot1Q) ProtoID(table string) (uint32, bool) {
	if table == packet.TableEtherType {
		return uint32(EtherTypeVLAN), true
	}
	return 0, false
}

func (d *Dot1Q) Finalize(ctx *packet.FinalizeContext) error {
	if d.Type != 0 {
		return nil
	}
	if id, ok := ctx.InnerProtoID(packet.TableEtherType); ok {
		d.Type = uint16(id)
	}
	return nil
}
