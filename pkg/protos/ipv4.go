package protos

import (
	"fmt"
	"net/netip"

	"firestige.xyz/strix/pkg/bits"
	"firestige.xyz/strix/pkg/checksum"
	"firestige.xyz/strix/pkg/codec"
	"firestige.xyz/strix/pkg/packet"
)

const ipv4HeaderMinLen = 20

// IPv4 sub-byte field layouts, in header diagram order.
var (
	ipv4VerIHL   = bits.MustLayout(4, 4)  // version, IHL
	ipv4TOS      = bits.MustLayout(6, 2)  // DSCP, ECN
	ipv4FragWord = bits.MustLayout(3, 13) // flags, fragment offset
)

// IPv4 flag bits.
const (
	IPv4FlagReserved uint8 = 0b100
	IPv4FlagDF       uint8 = 0b010
	IPv4FlagMF       uint8 = 0b001
)

// IPv4 is an IPv4 header. Options are kept as raw bytes; their length must be
// a multiple of four. IHL, TotalLen, Protocol and Checksum are derived at
// finalization.
type IPv4 struct {
	IHL        uint8
	DSCP       uint8
	ECN        uint8
	TotalLen   uint16
	Ident      uint16
	Flags      uint8  // 3 bits
	FragOffset uint16 // 13 bits
	TTL        uint8
	Protocol   uint8
	Checksum   uint16
	SrcIP      netip.Addr
	DstIP      netip.Addr
	Options    []byte
}

func (ip *IPv4) LayerName() string { return "ipv4" }

func (ip *IPv4) HeaderLen() int { return ipv4HeaderMinLen + len(ip.Options) }

func (ip *IPv4) DecodeHeader(r *codec.Reader) error {
	b, err := r.ReadN(ipv4HeaderMinLen)
	if err != nil {
		return err
	}
	vi, err := ipv4VerIHL.UnpackValues(uint64(b[0]))
	if err != nil {
		return err
	}
	if vi[0] != 4 {
		return fmt.Errorf("%w: IP version %d, want 4", codec.ErrInvalidField, vi[0])
	}
	ip.IHL = uint8(vi[1])
	if ip.IHL < 5 {
		return fmt.Errorf("%w: IHL %d below minimum 5", codec.ErrInvalidField, ip.IHL)
	}
	tos, err := ipv4TOS.UnpackValues(uint64(b[1]))
	if err != nil {
		return err
	}
	ip.DSCP = uint8(tos[0])
	ip.ECN = uint8(tos[1])
	ip.TotalLen = uint16(b[2])<<8 | uint16(b[3])
	ip.Ident = uint16(b[4])<<8 | uint16(b[5])
	frag, err := ipv4FragWord.UnpackValues(uint64(b[6])<<8 | uint64(b[7]))
	if err != nil {
		return err
	}
	ip.Flags = uint8(frag[0])
	ip.FragOffset = uint16(frag[1])
	ip.TTL = b[8]
	ip.Protocol = b[9]
	ip.Checksum = uint16(b[10])<<8 | uint16(b[11])
	ip.SrcIP = netip.AddrFrom4([4]byte(b[12:16]))
	ip.DstIP = netip.AddrFrom4([4]byte(b[16:20]))

	// Options are self-describing via IHL; the cursor stops exactly at the
	// first payload byte.
	opts, err := r.ReadN(int(ip.IHL-5) * 4)
	if err != nil {
		return err
	}
	ip.Options = opts
	return nil
}

func (ip *IPv4) EncodeHeader(w *codec.Writer) error {
	verIHL, err := ipv4VerIHL.PackValues(4, uint64(ip.IHL))
	if err != nil {
		return fmt.Errorf("%w: %v", codec.ErrInvalidField, err)
	}
	tos, err := ipv4TOS.PackValues(uint64(ip.DSCP), uint64(ip.ECN))
	if err != nil {
		return fmt.Errorf("%w: %v", codec.ErrInvalidField, err)
	}
	fragWord, err := ipv4FragWord.PackValues(uint64(ip.Flags), uint64(ip.FragOffset))
	if err != nil {
		return fmt.Errorf("%w: %v", codec.ErrInvalidField, err)
	}
	src, err := ip.addr4(ip.SrcIP)
	if err != nil {
		return err
	}
	dst, err := ip.addr4(ip.DstIP)
	if err != nil {
		return err
	}
	if err := w.WriteUint8(uint8(verIHL)); err != nil {
		return err
	}
	if err := w.WriteUint8(uint8(tos)); err != nil {
		return err
	}
	if err := w.WriteUint16(ip.TotalLen); err != nil {
		return err
	}
	if err := w.WriteUint16(ip.Ident); err != nil {
		return err
	}
	if err := w.WriteUint16(uint16(fragWord)); err != nil {
		return err
	}
	if err := w.WriteUint8(ip.TTL); err != nil {
		return err
	}
	if err := w.WriteUint8(ip.Protocol); err != nil {
		return err
	}
	if err := w.WriteUint16(ip.Checksum); err != nil {
		return err
	}
	if err := w.WriteBytes(src[:]); err != nil {
		return err
	}
	if err := w.WriteBytes(dst[:]); err != nil {
		return err
	}
	return w.WriteBytes(ip.Options)
}

func (ip *IPv4) addr4(a netip.Addr) ([4]byte, error) {
	if !a.IsValid() {
		// Zero addresses are legal on the wire (e.g. DHCP discover).
		return [4]byte{}, nil
	}
	if a.Is4() || a.Is4In6() {
		return a.Unmap().As4(), nil
	}
	return [4]byte{}, fmt.Errorf("%w: %s is not an IPv4 address", codec.ErrInvalidField, a)
}

func (ip *IPv4) NextProto() (packet.NextProto, bool) {
	return packet.NextProto{Table: packet.TableIPProto, ID: uint32(ip.Protocol)}, true
}

func (ip *IPv4) ProtoID(table string) (uint32, bool) {
	if table == packet.TableEtherType {
		return uint32(EtherTypeIPv4), true
	}
	return 0, false
}

// Finalize derives IHL from the options length, the total length from the
// enclosed bytes, the protocol number from the inner layer, and the header
// checksum over the finished header.
func (ip *IPv4) Finalize(ctx *packet.FinalizeContext) error {
	if len(ip.Options)%4 != 0 {
		return fmt.Errorf("%w: options length %d is not a multiple of 4",
			codec.ErrInvalidField, len(ip.Options))
	}
	ihl := ip.HeaderLen() / 4
	if ihl > 15 {
		return fmt.Errorf("%w: header length %d exceeds 60 bytes", codec.ErrInvalidField, ip.HeaderLen())
	}
	ip.IHL = uint8(ihl)
	total := ip.HeaderLen() + len(ctx.Payload)
	if total > 0xFFFF {
		return fmt.Errorf("%w: datagram length %d exceeds 65535", codec.ErrInvalidField, total)
	}
	ip.TotalLen = uint16(total)
	if id, ok := ctx.InnerProtoID(packet.TableIPProto); ok {
		ip.Protocol = uint8(id)
	}

	// Header checksum is computed over the header with the checksum field
	// zeroed.
	ip.Checksum = 0
	hdr := make([]byte, ip.HeaderLen())
	if err := ip.EncodeHeader(codec.NewWriter(hdr)); err != nil {
		return err
	}
	ip.Checksum = checksum.Sum16(hdr)
	return nil
}

// PseudoHeader supplies the IPv4 pseudo-header that transport checksums
// cover: source address, destination address, zero, protocol and length.
func (ip *IPv4) PseudoHeader(protocol uint8, length int) ([]byte, error) {
	if length > 0xFFFF {
		return nil, fmt.Errorf("%w: pseudo-header length %d exceeds 65535", codec.ErrInvalidField, length)
	}
	src, err := ip.addr4(ip.SrcIP)
	if err != nil {
		return nil, err
	}
	dst, err := ip.addr4(ip.DstIP)
	if err != nil {
		return nil, err
	}
	ph := make([]byte, 12)
	copy(ph[0:4], src[:])
	copy(ph[4:8], dst[:])
	ph[9] = protocol
	ph[10] = uint8(length >> 8)
	ph[11] = uint8(length)
	return ph, nil
}
