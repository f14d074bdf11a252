package cmd

import (
	"errors"
	"io"
	"os"

	"github.com/google/gopacket/pcapgo"
	"github.com/spf13/cobra"

	"firestige.xyz/strix/internal/dump"
	"firestige.xyz/strix/internal/filter"
	"firestige.xyz/strix/internal/log"
	"firestige.xyz/strix/pkg/packet"
	"firestige.xyz/strix/pkg/protos"
)

var (
	dumpPayload bool
	dumpCount   int
)

var dumpCmd = &cobra.Command{
	Use:   "dump <file.pcap>",
	Short: "Decode a pcap file and print each packet layer by layer",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			exitWithError("invalid configuration", err)
		}
		initLogging(cfg)

		var flt *filter.Filter
		if cfg.Dissect.Filter != "" {
			flt, err = filter.Compile(cfg.Dissect.Filter)
			if err != nil {
				exitWithError("invalid filter", err)
			}
		}

		f, err := os.Open(args[0])
		if err != nil {
			exitWithError("open capture file", err)
		}
		defer f.Close()

		r, err := pcapgo.NewReader(f)
		if err != nil {
			exitWithError("read pcap header", err)
		}

		dec := packet.NewDecoder(protos.DefaultRegistry(),
			packet.WithMaxDepth(cfg.Dissect.MaxDepth))
		renderer := dump.NewRenderer(os.Stdout,
			dump.Options{Payload: dumpPayload || cfg.Dissect.DumpPayload})
		logger := log.GetLogger()

		idx := 0
		for dumpCount <= 0 || idx < dumpCount {
			data, ci, err := r.ReadPacketData()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				exitWithError("read packet", err)
			}
			idx++

			if cfg.Dissect.SnapLen > 0 && len(data) > cfg.Dissect.SnapLen {
				data = data[:cfg.Dissect.SnapLen]
			}
			ok, err := flt.Match(data)
			if err != nil {
				exitWithError("run filter", err)
			}
			if !ok {
				continue
			}

			pkt, err := dec.DecodeLink(uint32(r.LinkType()), ci.Timestamp, data)
			if err != nil {
				// Partial decodes still render; the failing layer's bytes
				// stay in the payload.
				logger.WithError(err).WithField("packet", idx).Warn("decode stopped early")
			}
			if err := renderer.Render(idx, pkt); err != nil {
				exitWithError("write output", err)
			}
		}
	},
}

func init() {
	dumpCmd.Flags().BoolVarP(&dumpPayload, "payload", "x", false,
		"hex dump payload bytes")
	dumpCmd.Flags().IntVarP(&dumpCount, "count", "n", 0,
		"stop after this many packets (0 = all)")
}
