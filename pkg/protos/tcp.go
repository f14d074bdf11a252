package protos

import (
	"fmt"

	"firestige.xyz/strix/pkg/bits"
	"firestige.xyz/strix/pkg/checksum"
	"firestige.xyz/strix/pkg/codec"
	"firestige.xyz/strix/pkg/packet"
)

const tcpHeaderMinLen = 20

// Data offset (4), reserved (3), flags including NS (9).
var tcpOffsetWord = bits.MustLayout(4, 3, 9)

// TCP flag bits, FIN lowest.
const (
	TCPFlagFIN uint16 = 1 << iota
	TCPFlagSYN
	TCPFlagRST
	TCPFlagPSH
	TCPFlagACK
	TCPFlagURG
	TCPFlagECE
	TCPFlagCWR
	TCPFlagNS
)

// TCP is a TCP header. Options are raw bytes with a length that is a multiple
// of four; DataOffset and Checksum are derived at finalization.
type TCP struct {
	SrcPort    uint16
	DstPort    uint16
	Seq        uint32
	Ack        uint32
	DataOffset uint8
	Reserved   uint8
	Flags      uint16 // 9 bits
	Window     uint16
	Checksum   uint16
	Urgent     uint16
	Options    []byte
}

func (t *TCP) LayerName() string { return "tcp" }

func (t *TCP) HeaderLen() int { return tcpHeaderMinLen + len(t.Options) }

func (t *TCP) DecodeHeader(r *codec.Reader) error {
	var err error
	if t.SrcPort, err = r.ReadUint16(); err != nil {
		return err
	}
	if t.DstPort, err = r.ReadUint16(); err != nil {
		return err
	}
	if t.Seq, err = r.ReadUint32(); err != nil {
		return err
	}
	if t.Ack, err = r.ReadUint32(); err != nil {
		return err
	}
	word, err := r.ReadUint16()
	if err != nil {
		return err
	}
	fields, err := tcpOffsetWord.UnpackValues(uint64(word))
	if err != nil {
		return err
	}
	t.DataOffset = uint8(fields[0])
	t.Reserved = uint8(fields[1])
	t.Flags = uint16(fields[2])
	if t.DataOffset < 5 {
		return fmt.Errorf("%w: data offset %d below minimum 5", codec.ErrInvalidField, t.DataOffset)
	}
	if t.Window, err = r.ReadUint16(); err != nil {
		return err
	}
	if t.Checksum, err = r.ReadUint16(); err != nil {
		return err
	}
	if t.Urgent, err = r.ReadUint16(); err != nil {
		return err
	}
	t.Options, err = r.ReadN(int(t.DataOffset-5) * 4)
	return err
}

func (t *TCP) EncodeHeader(w *codec.Writer) error {
	word, err := tcpOffsetWord.PackValues(uint64(t.DataOffset), uint64(t.Reserved), uint64(t.Flags))
	if err != nil {
		return fmt.Errorf("%w: %v", codec.ErrInvalidField, err)
	}
	if err := w.WriteUint16(t.SrcPort); err != nil {
		return err
	}
	if err := w.WriteUint16(t.DstPort); err != nil {
		return err
	}
	if err := w.WriteUint32(t.Seq); err != nil {
		return err
	}
	if err := w.WriteUint32(t.Ack); err != nil {
		return err
	}
	if err := w.WriteUint16(uint16(word)); err != nil {
		return err
	}
	if err := w.WriteUint16(t.Window); err != nil {
		return err
	}
	if err := w.WriteUint16(t.Checksum); err != nil {
		return err
	}
	if err := w.WriteUint16(t.Urgent); err != nil {
		return err
	}
	return w.WriteBytes(t.Options)
}

func (t *TCP) NextProto() (packet.NextProto, bool) {
	return packet.NextProto{}, false
}

func (t *TCP) ProtoID(table string) (uint32, bool) {
	if table == packet.TableIPProto {
		return uint32(IPProtoTCP), true
	}
	return 0, false
}

func (t *TCP) Finalize(ctx *packet.FinalizeContext) error {
	if len(t.Options)%4 != 0 {
		return fmt.Errorf("%w: options length %d is not a multiple of 4",
			codec.ErrInvalidField, len(t.Options))
	}
	offset := t.HeaderLen() / 4
	if offset > 15 {
		return fmt.Errorf("%w: header length %d exceeds 60 bytes", codec.ErrInvalidField, t.HeaderLen())
	}
	t.DataOffset = uint8(offset)

	length := t.HeaderLen() + len(ctx.Payload)
	ph, err := ctx.OuterPseudoHeader(IPProtoTCP, length)
	if err != nil {
		return err
	}
	t.Checksum = 0
	hdr := make([]byte, t.HeaderLen())
	if err := t.EncodeHeader(codec.NewWriter(hdr)); err != nil {
		return err
	}
	var acc checksum.Accumulator
	_, _ = acc.Write(ph)
	_, _ = acc.Write(hdr)
	_, _ = acc.Write(ctx.Payload)
	t.Checksum = acc.Sum()
	return nil
}
