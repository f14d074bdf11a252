// Package craft builds finalized packets from a YAML description for the
// craft command.
package craft

import (
	"encoding/hex"
	"fmt"
	"net"
	"net/netip"

	"gopkg.in/yaml.v3"

	"firestige.xyz/strix/pkg/codec"
	"firestige.xyz/strix/pkg/packet"
	"firestige.xyz/strix/pkg/protos"
)

// File is the top-level YAML document: a list of packets to craft.
type File struct {
	Packets []PacketSpec `yaml:"packets"`
}

// PacketSpec describes one packet: a layer stack, outermost first, and an
// optional trailing payload given as text or hex.
type PacketSpec struct {
	Layers     []LayerSpec `yaml:"layers"`
	Payload    string      `yaml:"payload"`
	PayloadHex string      `yaml:"payload_hex"`
}

// LayerSpec holds exactly one layer description, keyed by protocol name.
type LayerSpec struct {
	Ethernet *EthernetSpec `yaml:"ethernet"`
	Dot1Q    *Dot1QSpec    `yaml:"dot1q"`
	IPv4     *IPv4Spec     `yaml:"ipv4"`
	UDP      *UDPSpec      `yaml:"udp"`
	TCP      *TCPSpec      `yaml:"tcp"`
	Raw      *RawSpec      `yaml:"raw"`
}

type EthernetSpec struct {
	Src  string `yaml:"src"`
	Dst  string `yaml:"dst"`
	Type uint16 `yaml:"type"` // optional; derived from the inner layer when 0
}

type Dot1QSpec struct {
	VLAN         uint16 `yaml:"vlan"`
	Priority     uint8  `yaml:"priority"`
	DropEligible bool   `yaml:"dei"`
}

type IPv4Spec struct {
	Src   string `yaml:"src"`
	Dst   string `yaml:"dst"`
	TTL   uint8  `yaml:"ttl"`
	DSCP  uint8  `yaml:"dscp"`
	ECN   uint8  `yaml:"ecn"`
	Ident uint16 `yaml:"ident"`
	DF    bool   `yaml:"df"`
}

type UDPSpec struct {
	SrcPort uint16 `yaml:"src_port"`
	DstPort uint16 `yaml:"dst_port"`
}

type TCPSpec struct {
	SrcPort uint16   `yaml:"src_port"`
	DstPort uint16   `yaml:"dst_port"`
	Seq     uint32   `yaml:"seq"`
	Ack     uint32   `yaml:"ack"`
	Flags   []string `yaml:"flags"`
	Window  uint16   `yaml:"window"`
}

type RawSpec struct {
	Hex string `yaml:"hex"`
}

// Parse decodes a YAML craft file.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", codec.ErrConfig, err)
	}
	if len(f.Packets) == 0 {
		return nil, fmt.Errorf("%w: craft file lists no packets", codec.ErrConfig)
	}
	return &f, nil
}

// Build turns every packet spec into a finalized packet.
func (f *File) Build() ([]*packet.Packet, error) {
	pkts := make([]*packet.Packet, 0, len(f.Packets))
	for i, spec := range f.Packets {
		pkt, err := spec.build()
		if err != nil {
			return nil, fmt.Errorf("packet %d: %w", i, err)
		}
		pkts = append(pkts, pkt)
	}
	return pkts, nil
}

func (p *PacketSpec) build() (*packet.Packet, error) {
	if len(p.Layers) == 0 {
		return nil, fmt.Errorf("%w: packet has no layers", codec.ErrConfig)
	}
	pkt := &packet.Packet{}
	for i, ls := range p.Layers {
		layer, err := ls.layer()
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		pkt.Layers = append(pkt.Layers, layer)
	}
	if p.Payload != "" && p.PayloadHex != "" {
		return nil, fmt.Errorf("%w: payload and payload_hex are mutually exclusive", codec.ErrConfig)
	}
	if p.Payload != "" {
		pkt.Payload = []byte(p.Payload)
	}
	if p.PayloadHex != "" {
		b, err := hex.DecodeString(p.PayloadHex)
		if err != nil {
			return nil, fmt.Errorf("%w: payload_hex: %v", codec.ErrConfig, err)
		}
		pkt.Payload = b
	}
	if err := pkt.Finalize(); err != nil {
		return nil, err
	}
	return pkt, nil
}

func (ls *LayerSpec) layer() (packet.Layer, error) {
	set := 0
	for _, present := range []bool{
		ls.Ethernet != nil, ls.Dot1Q != nil, ls.IPv4 != nil,
		ls.UDP != nil, ls.TCP != nil, ls.Raw != nil,
	} {
		if present {
			set++
		}
	}
	if set != 1 {
		return nil, fmt.Errorf("%w: each layer entry names exactly one protocol", codec.ErrConfig)
	}
	switch {
	case ls.Ethernet != nil:
		return ls.Ethernet.layer()
	case ls.Dot1Q != nil:
		d := ls.Dot1Q
		return &protos.Dot1Q{Priority: d.Priority, DropEligible: d.DropEligible, VLAN: d.VLAN}, nil
	case ls.IPv4 != nil:
		return ls.IPv4.layer()
	case ls.UDP != nil:
		return &protos.UDP{SrcPort: ls.UDP.SrcPort, DstPort: ls.UDP.DstPort}, nil
	case ls.TCP != nil:
		return ls.TCP.layer()
	default:
		b, err := hex.DecodeString(ls.Raw.Hex)
		if err != nil {
			return nil, fmt.Errorf("%w: raw hex: %v", codec.ErrConfig, err)
		}
		return &protos.Raw{Data: b}, nil
	}
}

func (e *EthernetSpec) layer() (*protos.Ethernet, error) {
	eth := &protos.Ethernet{Type: e.Type}
	if err := parseMAC(e.Src, &eth.SrcMAC); err != nil {
		return nil, err
	}
	if err := parseMAC(e.Dst, &eth.DstMAC); err != nil {
		return nil, err
	}
	return eth, nil
}

func (s *IPv4Spec) layer() (*protos.IPv4, error) {
	ip := &protos.IPv4{
		TTL:   s.TTL,
		DSCP:  s.DSCP,
		ECN:   s.ECN,
		Ident: s.Ident,
	}
	if ip.TTL == 0 {
		ip.TTL = 64
	}
	if s.DF {
		ip.Flags = protos.IPv4FlagDF
	}
	var err error
	if ip.SrcIP, err = parseAddr(s.Src); err != nil {
		return nil, err
	}
	if ip.DstIP, err = parseAddr(s.Dst); err != nil {
		return nil, err
	}
	return ip, nil
}

func (s *TCPSpec) layer() (*protos.TCP, error) {
	t := &protos.TCP{
		SrcPort: s.SrcPort,
		DstPort: s.DstPort,
		Seq:     s.Seq,
		Ack:     s.Ack,
		Window:  s.Window,
	}
	for _, name := range s.Flags {
		bit, ok := tcpFlagBits[name]
		if !ok {
			return nil, fmt.Errorf("%w: unknown TCP flag %q", codec.ErrConfig, name)
		}
		t.Flags |= bit
	}
	return t, nil
}

var tcpFlagBits = map[string]uint16{
	"fin": protos.TCPFlagFIN,
	"syn": protos.TCPFlagSYN,
	"rst": protos.TCPFlagRST,
	"psh": protos.TCPFlagPSH,
	"ack": protos.TCPFlagACK,
	"urg": protos.TCPFlagURG,
	"ece": protos.TCPFlagECE,
	"cwr": protos.TCPFlagCWR,
	"ns":  protos.TCPFlagNS,
}

func parseMAC(s string, out *[6]byte) error {
	if s == "" {
		return nil
	}
	hw, err := net.ParseMAC(s)
	if err != nil {
		return fmt.Errorf("%w: %v", codec.ErrConfig, err)
	}
	if len(hw) != 6 {
		return fmt.Errorf("%w: %s is not a 48-bit MAC address", codec.ErrConfig, s)
	}
	copy(out[:], hw)
	return nil
}

func parseAddr(s string) (netip.Addr, error) {
	if s == "" {
		return netip.Addr{}, nil
	}
	a, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%w: %v", codec.ErrConfig, err)
	}
	return a, nil
}
