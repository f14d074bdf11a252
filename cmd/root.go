// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"firestige.xyz/strix/internal/config"
	"firestige.xyz/strix/internal/log"
)

var (
	// Global flags
	configFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "strix",
	Short: "Strix - packet dissection and crafting toolkit",
	Long: `Strix decodes captured network traffic layer by layer (Ethernet, 802.1Q,
IPv4, UDP, TCP) and re-serializes or crafts packets with derived fields
(lengths, checksums, next-protocol identifiers) computed automatically.`,
	Version: "0.1.0",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file path")

	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(tablesCmd)
}

// loadConfig reads the file named by --config, or returns defaults when the
// flag is unset.
func loadConfig() (*config.Config, error) {
	if configFile == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", configFile, err)
	}
	return cfg, nil
}

func initLogging(cfg *config.Config) {
	log.Init(cfg.Logger)
}

// exitWithError prints error message and exits with code 1
func exitWithError(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	os.Exit(1)
}
