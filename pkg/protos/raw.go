package protos

import (
	"firestige.xyz/strix/pkg/codec"
	"firestige.xyz/strix/pkg/packet"
)

// Raw is an opaque bytes layer for crafting payloads by hand. It is not
// registered in any table; the decode path represents undecoded bytes as the
// packet's trailing payload instead.
type Raw struct {
	Data []byte
}

func (l *Raw) LayerName() string { return "raw" }

func (l *Raw) HeaderLen() int { return len(l.Data) }

func (l *Raw) DecodeHeader(r *codec.Reader) error {
	l.Data = r.Rest()
	return nil
}

func (l *Raw) EncodeHeader(w *codec.Writer) error {
	return w.WriteBytes(l.Data)
}

func (l *Raw) NextProto() (packet.NextProto, bool) {
	return packet.NextProto{}, false
}
