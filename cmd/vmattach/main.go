//go:build linux

package main

import (
	"fmt"
	"os"

	"vmattach/cached"
	"vmattach/config"
	"vmattach/hotspot"

	"github.com/spf13/cobra"
)

var (
	v   = config.New("")
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "vmattach",
	Short: "Discover local JVMs and attach agents to them",
	Long: `vmattach lists the HotSpot JVMs running as the current user, shows their
system properties, keeps watching them come and go, and loads Java agents
into them through the dynamic attach mechanism.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (default: ~/.vmattach.yaml)")
	rootCmd.PersistentFlags().String("tmp-dir", hotspot.DefaultTmpDir, "Directory holding hsperfdata and attach sockets")
	rootCmd.PersistentFlags().Duration("attach-timeout", hotspot.DefaultAttachTimeout, "Timeout for starting the attach listener")
	rootCmd.PersistentFlags().Duration("property-ttl", cached.DefaultTTL, "How long fetched properties stay fresh")

	// Bind flags to viper
	v.BindPFlag("discovery.tmp_dir", rootCmd.PersistentFlags().Lookup("tmp-dir"))
	v.BindPFlag("attach.timeout", rootCmd.PersistentFlags().Lookup("attach-timeout"))
	v.BindPFlag("discovery.property_ttl", rootCmd.PersistentFlags().Lookup("property-ttl"))

	// Add subcommands
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(propsCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(attachCmd)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
	}

	c, err := config.Load(v)
	if err != nil {
		return err
	}
	cfg = c
	return nil
}

func newProvider() *hotspot.Provider {
	return hotspot.NewProvider(
		hotspot.WithTmpDir(cfg.Discovery.TmpDir),
		hotspot.WithAttachTimeout(cfg.Attach.Timeout),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}
