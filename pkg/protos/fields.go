package protos

import (
	"fmt"
	"net"
	"strings"

	"firestige.xyz/strix/pkg/packet"
)

// Display fields for the text dump, in header diagram order.

func (e *Ethernet) Fields() []packet.Field {
	return []packet.Field{
		{Name: "dst", Value: net.HardwareAddr(e.DstMAC[:]).String()},
		{Name: "src", Value: net.HardwareAddr(e.SrcMAC[:]).String()},
		{Name: "type", Value: fmt.Sprintf("0x%04x", e.Type)},
	}
}

func (d *Dot1Q) Fields() []packet.Field {
	return []packet.Field{
		{Name: "priority", Value: fmt.Sprintf("%d", d.Priority)},
		{Name: "dei", Value: fmt.Sprintf("%t", d.DropEligible)},
		{Name: "vlan", Value: fmt.Sprintf("%d", d.VLAN)},
		{Name: "type", Value: fmt.Sprintf("0x%04x", d.Type)},
	}
}

func (ip *IPv4) Fields() []packet.Field {
	fields := []packet.Field{
		{Name: "ihl", Value: fmt.Sprintf("%d", ip.IHL)},
		{Name: "dscp", Value: fmt.Sprintf("%d", ip.DSCP)},
		{Name: "ecn", Value: fmt.Sprintf("%d", ip.ECN)},
		{Name: "total_len", Value: fmt.Sprintf("%d", ip.TotalLen)},
		{Name: "ident", Value: fmt.Sprintf("0x%04x", ip.Ident)},
		{Name: "flags", Value: ipv4FlagNames(ip.Flags)},
		{Name: "frag_offset", Value: fmt.Sprintf("%d", ip.FragOffset)},
		{Name: "ttl", Value: fmt.Sprintf("%d", ip.TTL)},
		{Name: "protocol", Value: fmt.Sprintf("%d", ip.Protocol)},
		{Name: "checksum", Value: fmt.Sprintf("0x%04x", ip.Checksum)},
		{Name: "src", Value: ip.SrcIP.String()},
		{Name: "dst", Value: ip.DstIP.String()},
	}
	if len(ip.Options) > 0 {
		fields = append(fields, packet.Field{
			Name: "options", Value: fmt.Sprintf("% x", ip.Options),
		})
	}
	return fields
}

func ipv4FlagNames(flags uint8) string {
	var names []string
	if flags&IPv4FlagReserved != 0 {
		names = append(names, "RES")
	}
	if flags&IPv4FlagDF != 0 {
		names = append(names, "DF")
	}
	if flags&IPv4FlagMF != 0 {
		names = append(names, "MF")
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

func (u *UDP) Fields() []packet.Field {
	return []packet.Field{
		{Name: "src_port", Value: fmt.Sprintf("%d", u.SrcPort)},
		{Name: "dst_port", Value: fmt.Sprintf("%d", u.DstPort)},
		{Name: "length", Value: fmt.Sprintf("%d", u.Length)},
		{Name: "checksum", Value: fmt.Sprintf("0x%04x", u.Checksum)},
	}
}

func (t *TCP) Fields() []packet.Field {
	fields := []packet.Field{
		{Name: "src_port", Value: fmt.Sprintf("%d", t.SrcPort)},
		{Name: "dst_port", Value: fmt.Sprintf("%d", t.DstPort)},
		{Name: "seq", Value: fmt.Sprintf("%d", t.Seq)},
		{Name: "ack", Value: fmt.Sprintf("%d", t.Ack)},
		{Name: "data_offset", Value: fmt.Sprintf("%d", t.DataOffset)},
		{Name: "flags", Value: tcpFlagNames(t.Flags)},
		{Name: "window", Value: fmt.Sprintf("%d", t.Window)},
		{Name: "checksum", Value: fmt.Sprintf("0x%04x", t.Checksum)},
		{Name: "urgent", Value: fmt.Sprintf("%d", t.Urgent)},
	}
	if len(t.Options) > 0 {
		fields = append(fields, packet.Field{
			Name: "options", Value: fmt.Sprintf("% x", t.Options),
		})
	}
	return fields
}

func tcpFlagNames(flags uint16) string {
	names := make([]string, 0, 4)
	for _, f := range []struct {
		bit  uint16
		name string
	}{
		{TCPFlagFIN, "FIN"}, {TCPFlagSYN, "SYN"}, {TCPFlagRST, "RST"},
		{TCPFlagPSH, "PSH"}, {TCPFlagACK, "ACK"}, {TCPFlagURG, "URG"},
		{TCPFlagECE, "ECE"}, {TCPFlagCWR, "CWR"}, {TCPFlagNS, "NS"},
	} {
		if flags&f.bit != 0 {
			names = append(names, f.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}
