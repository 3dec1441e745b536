package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"vortexconv/internal/alert"
	"vortexconv/internal/geoip"
	"vortexconv/internal/logger"
	"vortexconv/internal/probe"
	"vortexconv/internal/server"
	"vortexconv/internal/template"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP conversion API",
	Long: `Serves /convert/:format, /health, /stats, /metrics and /ping.

The listen address comes from config.yaml, then --listen, then the PORT
environment variable.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		if !verbose {
			gin.SetMode(gin.ReleaseMode)
		}

		addr := cfg.Server.Listen
		if serveListen != "" {
			addr = serveListen
		}
		if port := os.Getenv("PORT"); port != "" {
			addr = ":" + port
		}

		geo := openGeoIP(cfg.Probe.GeoIPASNPath, cfg.Probe.GeoIPCountryPath)
		defer geo.Close()

		prober, err := probe.New(cfg.Probe, probe.WithGeoIP(geo))
		if err != nil {
			logger.Log.Fatalf("Failed to set up prober: %v", err)
		}

		recorder, closeDB := openHistory(cfg)
		defer closeDB()

		srv, err := server.New(*cfg,
			server.WithMerger(template.NewMerger(template.NewFSLoader(os.DirFS(cfg.Templates.Dir)))),
			server.WithProber(prober),
			server.WithNotifier(newNotifier(cfg.Alert.Telegram, alert.Nop)),
			server.WithHistory(recorder),
		)
		if err != nil {
			logger.Log.Fatalf("Failed to build server: %v", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := srv.Run(ctx, addr); err != nil {
			logger.Log.Errorf("Server stopped: %v", err)
		}
	},
}

// openGeoIP returns nil when the databases are not available. A nil DB is
// safe to pass around; lookups simply report ErrNotLoaded.
func openGeoIP(asnPath, countryPath string) *geoip.DB {
	geo, err := geoip.Open(asnPath, countryPath)
	if errors.Is(err, geoip.ErrNotLoaded) {
		return nil
	}
	if err != nil {
		logger.Log.Warnf("GeoIP disabled: %v", err)
		return nil
	}
	return geo
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
