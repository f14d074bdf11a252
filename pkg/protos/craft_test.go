package protos

import (
	"bytes"
	"errors"
	"net/netip"
	"testing"

	"firestige.xyz/strix/pkg/checksum"
	"firestige.xyz/strix/pkg/codec"
	"firestige.xyz/strix/pkg/packet"
)

func TestCraftEthernetIPv4UDP(t *testing.T) {
	// Build top-down with every derived field left at zero.
	eth := &Ethernet{
		DstMAC: [6]byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
		SrcMAC: [6]byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF},
	}
	ip := &IPv4{
		TTL:   64,
		SrcIP: netip.MustParseAddr("10.0.0.1"),
		DstIP: netip.MustParseAddr("10.0.0.2"),
	}
	udp := &UDP{SrcPort: 4000, DstPort: 53}
	pkt := packet.New(eth, ip, udp)
	pkt.Payload = []byte("hello strix")

	if err := pkt.Finalize(); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	// Next-protocol identifiers were derived from the stack.
	if eth.Type != EtherTypeIPv4 {
		t.Errorf("EtherType = %#04x", eth.Type)
	}
	if ip.Protocol != IPProtoUDP {
		t.Errorf("Protocol = %d", ip.Protocol)
	}

	// Lengths match the measured enclosed bytes.
	if want := uint16(20 + 8 + 11); ip.TotalLen != want {
		t.Errorf("TotalLen = %d, want %d", ip.TotalLen, want)
	}
	if ip.IHL != 5 {
		t.Errorf("IHL = %d", ip.IHL)
	}
	if want := uint16(8 + 11); udp.Length != want {
		t.Errorf("UDP length = %d, want %d", udp.Length, want)
	}

	out, err := pkt.Serialize()
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	// Enclosed size is below the Ethernet minimum, so a zero trailer pads
	// the frame to 60 bytes.
	if len(out) != 60 {
		t.Errorf("Frame is %d bytes, want 60", len(out))
	}

	// The IPv4 header checksum verifies: summing the final header yields 0.
	if got := checksum.Sum16(out[14:34]); got != 0 {
		t.Errorf("IPv4 header checksum does not verify: %#04x", got)
	}

	// The UDP checksum verifies over pseudo-header + header + payload.
	var acc checksum.Accumulator
	ph, err := ip.PseudoHeader(IPProtoUDP, int(udp.Length))
	if err != nil {
		t.Fatal(err)
	}
	acc.Write(ph)
	acc.Write(out[34 : 34+int(udp.Length)])
	if got := acc.Sum(); got != 0 {
		t.Errorf("UDP checksum does not verify: %#04x", got)
	}
}

func TestCraftDecodeAgrees(t *testing.T) {
	eth := &Ethernet{DstMAC: [6]byte{2, 4, 6, 8, 10, 12}, SrcMAC: [6]byte{1, 3, 5, 7, 9, 11}}
	ip := &IPv4{
		TTL:   32,
		Ident: 0x1234,
		Flags: IPv4FlagDF,
		SrcIP: netip.MustParseAddr("172.16.0.1"),
		DstIP: netip.MustParseAddr("172.16.0.2"),
	}
	tcp := &TCP{
		SrcPort: 49152,
		DstPort: 443,
		Seq:     0xDEADBEEF,
		Flags:   TCPFlagSYN,
		Window:  0x7210,
		Options: []byte{0x02, 0x04, 0x05, 0xB4},
	}
	pkt := packet.New(eth, ip, tcp)

	if err := pkt.Finalize(); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	wire, err := pkt.Serialize()
	if err != nil {
		t.Fatal(err)
	}

	decoded, err := packet.NewDecoder(DefaultRegistry()).
		Decode(packet.TableLinkType, LinkTypeEthernet, wire)
	if err != nil {
		t.Fatalf("Decode of crafted frame failed: %v", err)
	}
	if len(decoded.Layers) != 3 {
		t.Fatalf("Expected 3 layers, got %d", len(decoded.Layers))
	}
	got := decoded.Layers[2].(*TCP)
	if got.Seq != tcp.Seq || got.DataOffset != 6 || got.Checksum != tcp.Checksum {
		t.Errorf("Decoded TCP = %+v", got)
	}

	// The decoder cannot tell frame padding from payload; everything after
	// the TCP header is the trailing zeros of the Ethernet pad.
	if len(decoded.Payload) != 60-14-20-24 {
		t.Errorf("Trailing payload = %d bytes", len(decoded.Payload))
	}

	rewire, err := decoded.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(rewire, wire) {
		t.Error("Crafted frame does not round-trip through decode")
	}
}

func TestCraftFinalizeIdempotent(t *testing.T) {
	eth := &Ethernet{}
	ip := &IPv4{TTL: 64, SrcIP: netip.MustParseAddr("10.1.1.1"), DstIP: netip.MustParseAddr("10.1.1.2")}
	udp := &UDP{SrcPort: 1, DstPort: 2}
	pkt := packet.New(eth, ip, udp)
	pkt.Payload = []byte{0xAA, 0xBB, 0xCC}

	if err := pkt.Finalize(); err != nil {
		t.Fatal(err)
	}
	once, err := pkt.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	if err := pkt.Finalize(); err != nil {
		t.Fatal(err)
	}
	twice, err := pkt.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(once, twice) {
		t.Error("Finalize is not idempotent")
	}
}

func TestUDPFinalizeWithoutNetworkLayer(t *testing.T) {
	// UDP's checksum needs a pseudo-header from an enclosing network
	// layer; with none present, finalization must refuse to guess.
	pkt := packet.New(&UDP{SrcPort: 1, DstPort: 2})
	pkt.Payload = []byte{0x01}

	err := pkt.Finalize()
	if !errors.Is(err, codec.ErrUnresolved) {
		t.Errorf("Expected ErrUnresolved, got %v", err)
	}
}

func TestUDPFinalizeUnderNonProvider(t *testing.T) {
	// An Ethernet layer directly outside UDP cannot supply a pseudo-header.
	pkt := packet.New(&Ethernet{}, &UDP{SrcPort: 1, DstPort: 2})

	err := pkt.Finalize()
	if !errors.Is(err, codec.ErrUnresolved) {
		t.Errorf("Expected ErrUnresolved, got %v", err)
	}
}

func TestIPv4FinalizeRejectsRaggedOptions(t *testing.T) {
	ip := &IPv4{
		SrcIP:   netip.MustParseAddr("10.0.0.1"),
		DstIP:   netip.MustParseAddr("10.0.0.2"),
		Options: []byte{0x01, 0x01, 0x01}, // not a multiple of 4
	}
	err := packet.New(ip).Finalize()
	if !errors.Is(err, codec.ErrInvalidField) {
		t.Errorf("Expected ErrInvalidField, got %v", err)
	}
}

func TestCraftVLANTag(t *testing.T) {
	eth := &Ethernet{}
	tag := &Dot1Q{Priority: 5, VLAN: 42}
	ip := &IPv4{TTL: 1, SrcIP: netip.MustParseAddr("10.0.0.1"), DstIP: netip.MustParseAddr("10.0.0.2")}
	pkt := packet.New(eth, tag, ip)

	if err := pkt.Finalize(); err != nil {
		t.Fatal(err)
	}
	if eth.Type != EtherTypeVLAN {
		t.Errorf("EtherType = %#04x, want VLAN tag", eth.Type)
	}
	if tag.Type != EtherTypeIPv4 {
		t.Errorf("Tag inner type = %#04x", tag.Type)
	}
}

func TestCraftQinQ(t *testing.T) {
	// The service TPID cannot be derived: both tags bind to 0x8100, so the
	// caller sets the outer EtherType by hand and finalization must keep it.
	eth := &Ethernet{Type: EtherTypeQinQ}
	outer := &Dot1Q{VLAN: 100}
	inner := &Dot1Q{Priority: 3, VLAN: 200}
	ip := &IPv4{TTL: 64, SrcIP: netip.MustParseAddr("10.0.0.1"), DstIP: netip.MustParseAddr("10.0.0.2")}
	udp := &UDP{SrcPort: 2000, DstPort: 2001}
	pkt := packet.New(eth, outer, inner, ip, udp)
	pkt.Payload = []byte{0x01, 0x02}

	if err := pkt.Finalize(); err != nil {
		t.Fatal(err)
	}
	if eth.Type != EtherTypeQinQ {
		t.Errorf("EtherType = %#04x, want QinQ", eth.Type)
	}
	if outer.Type != EtherTypeVLAN {
		t.Errorf("Outer tag type = %#04x, want VLAN", outer.Type)
	}
	if inner.Type != EtherTypeIPv4 {
		t.Errorf("Inner tag type = %#04x, want IPv4", inner.Type)
	}

	wire, err := pkt.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := packet.NewDecoder(DefaultRegistry()).
		Decode(packet.TableLinkType, LinkTypeEthernet, wire)
	if err != nil {
		t.Fatalf("Decode of crafted frame failed: %v", err)
	}
	if len(decoded.Layers) != 5 {
		t.Fatalf("Expected 5 layers, got %d", len(decoded.Layers))
	}
	got := decoded.Layers[1].(*Dot1Q)
	if got.VLAN != 100 || got.Type != EtherTypeVLAN {
		t.Errorf("Decoded outer tag = %+v", got)
	}
}
