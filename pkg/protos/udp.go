package protos

import (
	"fmt"

	"firestige.xyz/strix/pkg/checksum"
	"firestige.xyz/strix/pkg/codec"
	"firestige.xyz/strix/pkg/packet"
)

const udpHeaderLen = 8

// UDP is a UDP header. Length and Checksum are derived at finalization; the
// checksum covers the pseudo-header requested from the enclosing network
// layer, so finalizing a UDP layer without one fails.
type UDP struct {
	SrcPort  uint16
	DstPort  uint16
	Length   uint16
	Checksum uint16
}

func (u *UDP) LayerName() string { return "udp" }

func (u *UDP) HeaderLen() int { return udpHeaderLen }

func (u *UDP) DecodeHeader(r *codec.Reader) error {
	var err error
	if u.SrcPort, err = r.ReadUint16(); err != nil {
		return err
	}
	if u.DstPort, err = r.ReadUint16(); err != nil {
		return err
	}
	if u.Length, err = r.ReadUint16(); err != nil {
		return err
	}
	if u.Length < udpHeaderLen {
		return fmt.Errorf("%w: UDP length %d below header size", codec.ErrInvalidField, u.Length)
	}
	u.Checksum, err = r.ReadUint16()
	return err
}

func (u *UDP) EncodeHeader(w *codec.Writer) error {
	if err := w.WriteUint16(u.SrcPort); err != nil {
		return err
	}
	if err := w.WriteUint16(u.DstPort); err != nil {
		return err
	}
	if err := w.WriteUint16(u.Length); err != nil {
		return err
	}
	return w.WriteUint16(u.Checksum)
}

func (u *UDP) NextProto() (packet.NextProto, bool) {
	return packet.NextProto{}, false
}

func (u *UDP) ProtoID(table string) (uint32, bool) {
	if table == packet.TableIPProto {
		return uint32(IPProtoUDP), true
	}
	return 0, false
}

func (u *UDP) Finalize(ctx *packet.FinalizeContext) error {
	total := udpHeaderLen + len(ctx.Payload)
	if total > 0xFFFF {
		return fmt.Errorf("%w: datagram length %d exceeds 65535", codec.ErrInvalidField, total)
	}
	u.Length = uint16(total)

	ph, err := ctx.OuterPseudoHeader(IPProtoUDP, total)
	if err != nil {
		return err
	}
	u.Checksum = 0
	hdr := make([]byte, udpHeaderLen)
	if err := u.EncodeHeader(codec.NewWriter(hdr)); err != nil {
		return err
	}
	var acc checksum.Accumulator
	_, _ = acc.Write(ph)
	_, _ = acc.Write(hdr)
	_, _ = acc.Write(ctx.Payload)
	sum := acc.Sum()
	if sum == 0 {
		// A computed zero is transmitted as all ones; zero on the wire
		// means "no checksum".
		sum = 0xFFFF
	}
	u.Checksum = sum
	return nil
}
