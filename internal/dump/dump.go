// Package dump renders decoded packets as text for the dump command.
package dump

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"firestige.xyz/strix/pkg/codec"
	"firestige.xyz/strix/pkg/packet"
)

// Options controls how much of a packet the renderer prints.
type Options struct {
	// Payload prints a hex dump of the opaque payload bytes.
	Payload bool
}

// Renderer writes one text block per packet: a summary line, a block per
// layer, and optionally the payload bytes.
type Renderer struct {
	w    io.Writer
	opts Options
}

func NewRenderer(w io.Writer, opts Options) *Renderer {
	return &Renderer{w: w, opts: opts}
}

// Render writes the packet. Layers that describe their fields get one line
// per field; the rest are printed as raw header bytes.
func (r *Renderer) Render(idx int, pkt *packet.Packet) error {
	var b strings.Builder

	fmt.Fprintf(&b, "packet %d: %d bytes", idx, pkt.Len())
	if !pkt.Timestamp.IsZero() {
		fmt.Fprintf(&b, " @ %s", pkt.Timestamp.Format("2006-01-02 15:04:05.000000"))
	}
	b.WriteByte('\n')

	for _, layer := range pkt.Layers {
		fmt.Fprintf(&b, "  [%s]\n", layer.LayerName())
		if fp, ok := layer.(packet.FieldProvider); ok {
			for _, f := range fp.Fields() {
				fmt.Fprintf(&b, "    %-12s %s\n", f.Name, f.Value)
			}
			continue
		}
		hdr := make([]byte, layer.HeaderLen())
		if err := layer.EncodeHeader(codec.NewWriter(hdr)); err != nil {
			return err
		}
		fmt.Fprintf(&b, "    header       % x\n", hdr)
	}

	if len(pkt.Payload) > 0 {
		fmt.Fprintf(&b, "  payload: %d bytes\n", len(pkt.Payload))
		if r.opts.Payload {
			for _, line := range strings.Split(strings.TrimRight(hex.Dump(pkt.Payload), "\n"), "\n") {
				fmt.Fprintf(&b, "    %s\n", line)
			}
		}
	}

	_, err := io.WriteString(r.w, b.String())
	return err
}
