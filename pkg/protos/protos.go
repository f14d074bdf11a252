// Package protos implements the built-in protocol layers (Ethernet, 802.1Q,
// IPv4, UDP, TCP) and their dissector registry bindings.
package protos

import (
	"sync"

	"firestige.xyz/strix/pkg/packet"
)

// Link-layer type codes, as recorded in capture files and reported by capture
// devices. Only Ethernet is bound by default.
const (
	LinkTypeEthernet uint32 = 1
)

// EtherType values.
const (
	EtherTypeIPv4 uint16 = 0x0800
	EtherTypeARP  uint16 = 0x0806
	EtherTypeVLAN uint16 = 0x8100
	EtherTypeQinQ uint16 = 0x88A8
	EtherTypeIPv6 uint16 = 0x86DD
)

// IP protocol numbers.
const (
	IPProtoTCP uint8 = 6
	IPProtoUDP uint8 = 17
)

// Register binds the built-in layers into reg. It fails with a configuration
// error if any key is already taken.
func Register(reg *packet.Registry) error {
	bindings := []struct {
		table string
		id    uint32
		fn    packet.NewLayerFunc
	}{
		{packet.TableLinkType, LinkTypeEthernet, func() packet.Layer { return &Ethernet{} }},
		{packet.TableEtherType, uint32(EtherTypeVLAN), func() packet.Layer { return &Dot1Q{} }},
		{packet.TableEtherType, uint32(EtherTypeQinQ), func() packet.Layer { return &Dot1Q{} }},
		{packet.TableEtherType, uint32(EtherTypeIPv4), func() packet.Layer { return &IPv4{} }},
		{packet.TableIPProto, uint32(IPProtoUDP), func() packet.Layer { return &UDP{} }},
		{packet.TableIPProto, uint32(IPProtoTCP), func() packet.Layer { return &TCP{} }},
	}
	for _, b := range bindings {
		if err := reg.Register(b.table, b.id, b.fn); err != nil {
			return err
		}
	}
	return nil
}

var (
	defaultRegistry     *packet.Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns a process-wide registry with the built-in bindings.
// It is built once and must not be registered into afterwards; callers that
// need extra protocols should build their own registry via Register.
func DefaultRegistry() *packet.Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = packet.NewRegistry()
		if err := Register(defaultRegistry); err != nil {
			panic(err)
		}
	})
	return defaultRegistry
}
