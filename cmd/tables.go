package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"firestige.xyz/strix/pkg/protos"
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List the built-in dissector table bindings",
	Run: func(cmd *cobra.Command, args []string) {
		reg := protos.DefaultRegistry()
		for _, key := range reg.Keys() {
			fn, _ := reg.Lookup(key.Table, key.ID)
			fmt.Printf("%-10s %6d (0x%04x)  %s\n", key.Table, key.ID, key.ID, fn().LayerName())
		}
	},
}
