package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"vortexconv/internal/logger"
	"vortexconv/internal/render"
	"vortexconv/internal/source"
)

var statusRecent int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show conversion history and database statistics",
	Long:  `Displays a dashboard of stored conversion runs: totals, formats, the most common failure kinds and the latest runs.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		if cfg.Database.Path == "" {
			logger.Log.Fatal("No database configured (database.path is empty).")
		}

		recorder, closeDB := openHistory(cfg)
		defer closeDB()
		if recorder == nil {
			logger.Log.Fatal("History database unavailable.")
		}

		ctx := context.Background()
		summary, err := recorder.Summary(ctx)
		if err != nil {
			logger.Log.Fatalf("Failed to summarize history: %v", err)
		}
		recent, err := recorder.Recent(ctx, statusRecent)
		if err != nil {
			logger.Log.Fatalf("Failed to load recent runs: %v", err)
		}

		dbSize := getFileSize(cfg.Database.Path)
		walSize := getFileSize(cfg.Database.Path + "-wal")

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

		fmt.Println("\n📊 \033[1mVORTEXCONV STATUS DASHBOARD\033[0m")
		fmt.Println("────────────────────────────────────────")

		fmt.Fprintln(w, "\033[1;36m[ SYSTEM ]\033[0m\t")
		fmt.Fprintf(w, "  Database Path:\t%s\n", cfg.Database.Path)
		fmt.Fprintf(w, "  DB Size:\t%s\n", formatBytes(dbSize))
		if walSize > 0 {
			fmt.Fprintf(w, "  WAL Size:\t%s (pending checkpoint)\n", formatBytes(walSize))
		}
		fmt.Fprintf(w, "  Retention:\t%d runs\n", cfg.Database.MaxRuns)
		fmt.Fprintf(w, "  Formats:\t%v\n", render.Formats())
		fmt.Fprintf(w, "  Sources:\t%v\n", source.Types())
		fmt.Fprintln(w, "\t")

		fmt.Fprintln(w, "\033[1;36m[ TOTALS ]\033[0m\t")
		fmt.Fprintf(w, "  Runs:\t%d\n", summary.Runs)
		fmt.Fprintf(w, "  Links Converted:\t%d\n", summary.Succeeded)
		fmt.Fprintf(w, "  Links Failed:\t%d\n", summary.Failed)
		fmt.Fprintf(w, "  Duplicates:\t%d\n", summary.Duplicates)
		if summary.LastRun != nil {
			fmt.Fprintf(w, "  Last Run:\t%s (%s ago)\n", summary.LastRun.Local().Format(time.DateTime), time.Since(*summary.LastRun).Round(time.Second))
		}
		fmt.Fprintln(w, "\t")

		fmt.Fprintln(w, "\033[1;36m[ FORMATS ]\033[0m\t")
		if len(summary.Formats) == 0 {
			fmt.Fprintln(w, "  (No runs recorded)")
		}
		for _, f := range summary.Formats {
			fmt.Fprintf(w, "  %s:\t%d\n", f.Format, f.Runs)
		}
		fmt.Fprintln(w, "\t")

		fmt.Fprintln(w, "\033[1;36m[ TOP FAILURES ]\033[0m\t")
		if len(summary.TopKinds) == 0 {
			fmt.Fprintln(w, "  (No failures recorded)")
		}
		for _, k := range summary.TopKinds {
			fmt.Fprintf(w, "  %s:\t%d\n", k.Kind, k.Count)
		}
		fmt.Fprintln(w, "\t")

		fmt.Fprintln(w, "\033[1;36m[ RECENT RUNS ]\033[0m\t")
		for _, r := range recent {
			fmt.Fprintf(w, "  %s\t%s\t%s\t%d ok / %d failed\n", r.CreatedAt.Local().Format(time.DateTime), r.Format, r.Source, r.Succeeded, r.Failed)
		}

		w.Flush()
		fmt.Println("")
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusRecent, "recent", 10, "Number of recent runs to list")
	rootCmd.AddCommand(statusCmd)
}
