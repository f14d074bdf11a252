package protos

import (
	"bytes"
	"errors"
	"testing"

	"firestige.xyz/strix/pkg/codec"
	"firestige.xyz/strix/pkg/packet"
)

func testDecoder(t *testing.T) *packet.Decoder {
	t.Helper()
	return packet.NewDecoder(DefaultRegistry())
}

// ethIPv4UDPFrame builds an Ethernet/IPv4/UDP frame around payload. The IPv4
// checksum is valid; the UDP checksum is zero (not present).
func ethIPv4UDPFrame(payload []byte) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{
		0x00, 0x11, 0x22, 0x33, 0x44, 0x55, // dst MAC
		0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF, // src MAC
		0x08, 0x00, // EtherType: IPv4
	})
	totlen := 20 + 8 + len(payload)
	ihdr := []byte{
		0x45, 0x00, byte(totlen >> 8), byte(totlen),
		0x00, 0x00, 0x40, 0x00, // DF
		0x40, 0x11, 0x00, 0x00, // TTL 64, UDP, checksum placeholder
		0xC0, 0xA8, 0x00, 0x01, // 192.168.0.1
		0xC0, 0xA8, 0x00, 0xC7, // 192.168.0.199
	}
	// Fill in a valid header checksum.
	sum := uint32(0)
	for i := 0; i < len(ihdr); i += 2 {
		sum += uint32(ihdr[i])<<8 | uint32(ihdr[i+1])
	}
	for sum > 0xFFFF {
		sum = (sum & 0xFFFF) + (sum >> 16)
	}
	ck := ^uint16(sum)
	ihdr[10], ihdr[11] = byte(ck>>8), byte(ck)
	buf.Write(ihdr)

	ulen := 8 + len(payload)
	buf.Write([]byte{0x00, 0x35, 0xC0, 0x01, byte(ulen >> 8), byte(ulen), 0x00, 0x00})
	buf.Write(payload)
	return buf.Bytes()
}

func TestDecodeEthernetIPv4UDP(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, 87)
	frame := ethIPv4UDPFrame(payload)

	pkt, err := testDecoder(t).Decode(packet.TableLinkType, LinkTypeEthernet, frame)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(pkt.Layers) != 3 {
		t.Fatalf("Expected 3 layers, got %d", len(pkt.Layers))
	}

	eth := pkt.Layers[0].(*Ethernet)
	if eth.Type != EtherTypeIPv4 {
		t.Errorf("EtherType = %#04x", eth.Type)
	}
	if eth.SrcMAC != [6]byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF} {
		t.Errorf("SrcMAC = %x", eth.SrcMAC)
	}

	ip := pkt.Layers[1].(*IPv4)
	if ip.TotalLen != 115 || ip.TTL != 64 || ip.Protocol != IPProtoUDP {
		t.Errorf("IPv4 = %+v", ip)
	}
	if ip.SrcIP.String() != "192.168.0.1" || ip.DstIP.String() != "192.168.0.199" {
		t.Errorf("Addresses = %s -> %s", ip.SrcIP, ip.DstIP)
	}
	if ip.Flags != IPv4FlagDF || ip.FragOffset != 0 {
		t.Errorf("Flags/FragOffset = %d/%d", ip.Flags, ip.FragOffset)
	}

	udp := pkt.Layers[2].(*UDP)
	if udp.SrcPort != 53 || udp.DstPort != 0xC001 || udp.Length != 95 {
		t.Errorf("UDP = %+v", udp)
	}
	if !bytes.Equal(pkt.Payload, payload) {
		t.Errorf("Payload mismatch: %d bytes", len(pkt.Payload))
	}

	// Decode then encode must reproduce the frame byte for byte.
	out, err := pkt.Serialize()
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	if !bytes.Equal(out, frame) {
		t.Errorf("Round-trip mismatch:\n got %x\nwant %x", out, frame)
	}
}

func TestDecodeZeroPayloadRoundTrip(t *testing.T) {
	// A frame fully claimed by layers: encode(P) == B with no opaque rest.
	frame := ethIPv4UDPFrame(nil)

	pkt, err := testDecoder(t).Decode(packet.TableLinkType, LinkTypeEthernet, frame)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(pkt.Payload) != 0 {
		t.Fatalf("Expected no trailing payload, got %d bytes", len(pkt.Payload))
	}
	out, err := pkt.Serialize()
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	if !bytes.Equal(out, frame) {
		t.Error("Round-trip mismatch on zero-payload frame")
	}
}

func TestDecodeVLANAndQinQ(t *testing.T) {
	frame := []byte{
		0x00, 0x11, 0x22, 0x33, 0x44, 0x55,
		0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF,
		0x88, 0xA8, // QinQ outer tag
		0x00, 0x64, 0x81, 0x00, // VLAN 100 -> inner tag
		0x60, 0x0A, 0x08, 0x00, // prio 3, VLAN 10 -> IPv4
		0x45, 0x00, 0x00, 0x14, 0x00, 0x00, 0x00, 0x00,
		0x40, 0x11, 0x00, 0x00, 0x0A, 0x00, 0x00, 0x01,
		0x0A, 0x00, 0x00, 0x02,
	}
	pkt, err := testDecoder(t).Decode(packet.TableLinkType, LinkTypeEthernet, frame)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(pkt.Layers) != 4 {
		t.Fatalf("Expected 4 layers, got %d", len(pkt.Layers))
	}
	outer := pkt.Layers[1].(*Dot1Q)
	inner := pkt.Layers[2].(*Dot1Q)
	if outer.VLAN != 100 || inner.VLAN != 10 {
		t.Errorf("VLANs = %d/%d", outer.VLAN, inner.VLAN)
	}
	if inner.Priority != 3 {
		t.Errorf("Priority = %d", inner.Priority)
	}
	if _, ok := pkt.Layers[3].(*IPv4); !ok {
		t.Errorf("Expected IPv4 after tags, got %s", pkt.Layers[3].LayerName())
	}
	out, err := pkt.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, frame) {
		t.Error("Round-trip mismatch on tagged frame")
	}
}

func TestDecodeTCPWithOptions(t *testing.T) {
	tcp := []byte{
		0xC0, 0x02, 0x00, 0x50, // ports
		0x00, 0x00, 0x00, 0x01, // seq
		0x00, 0x00, 0x00, 0x00, // ack
		0x70, 0x02, // offset 7, SYN
		0xFF, 0xFF, 0x00, 0x00, 0x00, 0x00, // window, checksum, urgent
		0x02, 0x04, 0x05, 0xB4, // MSS option
		0x01, 0x01, 0x04, 0x02, // NOP, NOP, SACK permitted
	}
	reg := packet.NewRegistry()
	reg.MustRegister(packet.TableIPProto, uint32(IPProtoTCP), func() packet.Layer { return &TCP{} })
	pkt, err := packet.NewDecoder(reg).Decode(packet.TableIPProto, uint32(IPProtoTCP), tcp)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	l := pkt.Layers[0].(*TCP)
	if l.DataOffset != 7 || l.Flags != TCPFlagSYN {
		t.Errorf("DataOffset/Flags = %d/%#x", l.DataOffset, l.Flags)
	}
	if len(l.Options) != 8 {
		t.Errorf("Options = %x", l.Options)
	}
	out, err := pkt.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, tcp) {
		t.Error("Round-trip mismatch on TCP header")
	}
}

func TestDecodeTruncatedIPv4(t *testing.T) {
	// 19 bytes cannot hold the fixed 20-byte header.
	short := make([]byte, 19)
	short[0] = 0x45

	pkt, err := testDecoder(t).Decode(packet.TableEtherType, uint32(EtherTypeIPv4), short)
	if !errors.Is(err, codec.ErrTruncated) {
		t.Fatalf("Expected ErrTruncated, got %v", err)
	}
	if len(pkt.Layers) != 0 {
		t.Errorf("Truncated decode appended %d layers", len(pkt.Layers))
	}
}

func TestDecodeBadIPVersion(t *testing.T) {
	frame := ethIPv4UDPFrame(nil)
	frame[14] = 0x65 // version 6 in an IPv4 context

	pkt, err := testDecoder(t).Decode(packet.TableLinkType, LinkTypeEthernet, frame)
	if !errors.Is(err, codec.ErrInvalidField) {
		t.Fatalf("Expected ErrInvalidField, got %v", err)
	}
	var lerr *codec.LayerError
	if !errors.As(err, &lerr) {
		t.Fatal("Expected a LayerError")
	}
	if lerr.Layer != "ipv4" || lerr.Offset != 14 {
		t.Errorf("LayerError = %s/%d", lerr.Layer, lerr.Offset)
	}
	// The Ethernet layer decoded before the failure is preserved.
	if len(pkt.Layers) != 1 || pkt.Layers[0].LayerName() != "ethernet" {
		t.Errorf("Partial packet layers = %d", len(pkt.Layers))
	}
}

func TestDecodeIPv4WithOptionsStopsAtPayload(t *testing.T) {
	hdr := []byte{
		0x46, 0x00, 0x00, 0x1C, // IHL 6 -> 24-byte header
		0x00, 0x00, 0x00, 0x00,
		0x40, 0x11, 0x00, 0x00,
		0x0A, 0x00, 0x00, 0x01,
		0x0A, 0x00, 0x00, 0x02,
		0x94, 0x04, 0x00, 0x00, // router alert option
		0xDE, 0xAD, // payload, not header
	}
	reg := packet.NewRegistry()
	reg.MustRegister(packet.TableEtherType, uint32(EtherTypeIPv4), func() packet.Layer { return &IPv4{} })
	pkt, err := packet.NewDecoder(reg).Decode(packet.TableEtherType, uint32(EtherTypeIPv4), hdr)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	ip := pkt.Layers[0].(*IPv4)
	if ip.IHL != 6 || len(ip.Options) != 4 {
		t.Errorf("IHL/options = %d/%x", ip.IHL, ip.Options)
	}
	if !bytes.Equal(pkt.Payload, []byte{0xDE, 0xAD}) {
		t.Errorf("Cursor did not stop at first payload byte: %x", pkt.Payload)
	}
}
