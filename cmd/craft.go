package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/spf13/cobra"

	"firestige.xyz/strix/internal/craft"
)

var craftOutput string

var craftCmd = &cobra.Command{
	Use:   "craft <file.yml>",
	Short: "Build packets from a YAML description",
	Long: `Craft reads a YAML packet description, computes the derived fields
(lengths, checksums, next-protocol identifiers) and either writes the finished
frames to a pcap file or prints them as hex.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		data, err := os.ReadFile(args[0])
		if err != nil {
			exitWithError("read craft file", err)
		}
		f, err := craft.Parse(data)
		if err != nil {
			exitWithError("parse craft file", err)
		}
		pkts, err := f.Build()
		if err != nil {
			exitWithError("build packets", err)
		}

		if craftOutput == "" {
			for i, pkt := range pkts {
				frame, err := pkt.Serialize()
				if err != nil {
					exitWithError("serialize packet", err)
				}
				fmt.Printf("packet %d: % x\n", i+1, frame)
			}
			return
		}

		out, err := os.Create(craftOutput)
		if err != nil {
			exitWithError("create output file", err)
		}
		defer out.Close()
		w := pcapgo.NewWriter(out)
		if err := w.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
			exitWithError("write pcap header", err)
		}
		now := time.Now()
		for i, pkt := range pkts {
			frame, err := pkt.Serialize()
			if err != nil {
				exitWithError("serialize packet", err)
			}
			ci := gopacket.CaptureInfo{
				Timestamp:     now.Add(time.Duration(i) * time.Microsecond),
				CaptureLength: len(frame),
				Length:        len(frame),
			}
			if err := w.WritePacket(ci, frame); err != nil {
				exitWithError("write packet", err)
			}
		}
	},
}

func init() {
	craftCmd.Flags().StringVarP(&craftOutput, "output", "o", "",
		"write frames to a pcap file instead of printing hex")
	rootCmd.AddCommand(craftCmd)
}
