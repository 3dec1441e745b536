package main

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"vortexconv/internal/logger"
)

var pruneCmd = &cobra.Command{
	Use:   "prune [limit]",
	Short: "Shrink the conversion history to a specific size",
	Long: `Removes the oldest conversion runs, with their failure records, until the
number of runs matches the target limit. If no limit is provided, the
'database.max_runs' value from config.yaml is used.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		limit := cfg.Database.MaxRuns
		if len(args) > 0 {
			val, err := strconv.Atoi(args[0])
			if err != nil {
				logger.Log.Fatalf("Invalid limit argument: %v", err)
			}
			limit = val
			logger.Log.Infof("🎯 Pruning target manually set to: %d", limit)
		}

		recorder, closeDB := openHistory(cfg)
		defer closeDB()
		if recorder == nil {
			logger.Log.Fatal("History database unavailable.")
		}

		removed, err := recorder.Prune(context.Background(), limit)
		if err != nil {
			logger.Log.Errorf("Pruning failed: %v", err)
			return
		}
		logger.Log.Infof("✅ Database maintenance complete. Removed %d runs.", removed)
	},
}

func init() {
	rootCmd.AddCommand(pruneCmd)
}
