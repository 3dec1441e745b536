package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"vortexconv/internal/alert"
	"vortexconv/internal/logger"
	"vortexconv/internal/metrics"
	"vortexconv/internal/probe"
)

var (
	probeReport  bool
	probeAlert   bool
	probeWorkers int
)

var probeCmd = &cobra.Command{
	Use:   "probe <host:port>...",
	Short: "TCP-probe proxy endpoints",
	Long:  `Dials every target with the configured timeout and retries. Use --report for timing statistics and --alert to send an alert for every DOWN target.`,
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		geo := openGeoIP(cfg.Probe.GeoIPASNPath, cfg.Probe.GeoIPCountryPath)
		defer geo.Close()

		mc := metrics.New()
		prober, err := probe.New(cfg.Probe, probe.WithGeoIP(geo), probe.WithMetrics(mc))
		if err != nil {
			logger.Log.Fatalf("Failed to set up prober: %v", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		logger.Log.Infof("🔎 Probing %d targets (timeout %s, retries %d)...", len(args), cfg.Probe.Timeout, cfg.Probe.Retries)
		bar := newBar(len(args), "[cyan]Probing...[reset]")
		results := prober.ProbeAll(ctx, args, probeWorkers, func() { _ = bar.Add(1) })
		_ = bar.Finish()

		var notifier alert.Notifier = alert.Nop
		if probeAlert {
			notifier = newNotifier(cfg.Alert.Telegram, alert.NewWriter(os.Stderr))
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "\n\033[1;36m[ PROBE RESULTS ]\033[0m\t\t\t")
		down := 0
		for i, res := range results {
			if res == nil {
				fmt.Fprintf(w, "  %s\tINVALID\t-\t%v\n", args[i], probe.ErrBadTarget)
				continue
			}
			if !res.Up() {
				down++
				fmt.Fprintf(w, "  %s\t\033[31mDOWN\033[0m\t-\t%s\n", res.Proxy, res.TCP.Error)
				if err := notifier.Notify(ctx, alert.DownMessage(res)); err != nil {
					logger.Log.Warnf("Alert for %s failed: %v", res.Proxy, err)
				}
				continue
			}
			location := ""
			if res.Geo != nil {
				location = fmt.Sprintf("%s %s (%s)", getFlagEmoji(res.Geo.Country), res.Geo.Country, res.Geo.ISP)
			}
			fmt.Fprintf(w, "  %s\t\033[32mUP\033[0m\t%dms\t%s\n", res.Proxy, res.TCP.LatencyMS, location)
		}
		w.Flush()

		if probeReport {
			mc.PrintReport(os.Stdout, cfg.Probe.Timeout, cfg.Probe.Retries)
		}
		if down > 0 {
			logger.Log.Warnf("%d of %d targets are DOWN.", down, len(args))
		}
	},
}

func init() {
	probeCmd.Flags().BoolVar(&probeReport, "report", false, "Print latency and error statistics")
	probeCmd.Flags().BoolVar(&probeAlert, "alert", false, "Send an alert for every DOWN target")
	probeCmd.Flags().IntVar(&probeWorkers, "workers", 8, "Concurrent probes")
	rootCmd.AddCommand(probeCmd)
}
