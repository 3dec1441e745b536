package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"vortexconv/internal/logger"
)

var (
	cfgFile string
	verbose bool
	logFile string
)

var rootCmd = &cobra.Command{
	Use:   "vortexconv",
	Short: "Convert vless/vmess/trojan/ss share links into client configurations",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := logger.Init(verbose, logFile); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to file instead of stderr (overwrites file)")
}
