package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"vortexconv/internal/batch"
	"vortexconv/internal/config"
	"vortexconv/internal/history"
	"vortexconv/internal/logger"
	"vortexconv/internal/render"
	"vortexconv/internal/source"
	"vortexconv/internal/template"
)

var (
	convertFormat     string
	convertInput      string
	convertURL        string
	convertOutput     string
	convertNoTemplate bool
	convertWorkers    int
	convertReport     bool
	convertSources    []string
	convertParams     map[string]string
)

var convertCmd = &cobra.Command{
	Use:   "convert [links...]",
	Short: "Convert share links into a client configuration",
	Long: `Converts vless://, vmess://, trojan:// and ss:// links into the chosen format.

Links come from the arguments, --input (a file, or - for stdin), --url (a
subscription URL) and --source (sources defined in config.yaml). Use --param
to override source parameters.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		format := strings.ToLower(convertFormat)
		if _, err := render.Get(format); err != nil {
			logger.Log.Fatalf("%v (available: %s)", err, strings.Join(render.Formats(), ", "))
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		links, origin := gatherLinks(ctx, cfg, args)
		if len(links) == 0 {
			logger.Log.Fatal("No links to convert. Pass links as arguments or use --input, --url or --source.")
		}
		logger.Log.Infof("🔄 Converting %d links to %s...", len(links), format)

		workers := cfg.Converter.Workers
		if convertWorkers > 0 {
			workers = convertWorkers
		}

		bar := newBar(len(links), "[cyan]Converting...[reset]")
		report, err := batch.Convert(ctx, links, format,
			batch.WithWorkers(workers),
			batch.WithBrand(cfg.Converter.Brand),
			batch.WithMaxLength(cfg.Converter.MaxLinkLength),
			batch.WithMaxLinks(cfg.Converter.MaxLinks),
			batch.WithProgress(func(done, _ int) { _ = bar.Set(done) }),
		)
		_ = bar.Finish()

		recorder, closeDB := openHistory(cfg)
		defer closeDB()
		if report != nil {
			if _, herr := recorder.Record(ctx, origin, report); herr != nil {
				logger.Log.Warnf("Failed to record run: %v", herr)
			}
			if convertReport {
				printFailures(os.Stderr, report)
			}
		}

		var allFailed *batch.AllFailedError
		if errors.As(err, &allFailed) {
			fmt.Fprintf(os.Stderr, "All links failed to convert:\n\n%s\n", allFailed.Summary())
			closeDB()
			os.Exit(1)
		}
		if err != nil {
			logger.Log.Fatalf("Conversion failed: %v", err)
		}

		out := report.Output
		if !convertNoTemplate {
			merger := template.NewMerger(template.NewFSLoader(os.DirFS(cfg.Templates.Dir)))
			out, err = merger.Merge(format, report)
			if err != nil {
				logger.Log.Fatalf("Template merge failed: %v", err)
			}
		}

		if err := writeOutput(convertOutput, out); err != nil {
			logger.Log.Fatalf("Failed to write output: %v", err)
		}
		logger.Log.Infof("✅ Converted %d links (%d failed, %d duplicates).", len(report.Succeeded), len(report.Failed), report.Duplicates)
	},
}

// gatherLinks collects links from every input the flags name and reports
// where they came from for the history record.
func gatherLinks(ctx context.Context, cfg *config.Config, args []string) ([]string, string) {
	var links []string
	origin := "cli"
	links = append(links, args...)

	if convertInput != "" {
		body, err := readInput(convertInput)
		if err != nil {
			logger.Log.Fatalf("Failed to read %s: %v", convertInput, err)
		}
		links = append(links, source.Links(body)...)
	}

	var sources []config.SourceConfig
	if convertURL != "" {
		sources = append(sources, config.SourceConfig{Name: "url", Type: "http", Params: map[string]interface{}{"url": convertURL}})
	}
	if len(convertSources) > 0 {
		cfg.FilterSources(convertSources)
		if len(cfg.Sources) == 0 {
			logger.Log.Warn("No sources matched the provided names.")
		}
		sources = append(sources, cfg.Sources...)
	}

	for _, sc := range sources {
		src, err := source.Get(sc.Type)
		if err != nil {
			logger.Log.Warnf("Skipping %s: %v", sc.Name, err)
			continue
		}
		logger.Log.Infof("🏃 Running source: %s (%s)...", sc.Name, sc.Type)
		found, err := src.Collect(ctx, applyParams(sc.Params, convertParams))
		if err != nil {
			logger.Log.Errorf("Source %s failed: %v", sc.Name, err)
			continue
		}
		logger.Log.Infof("    ↳ Found %d links.", len(found))
		links = append(links, found...)
		origin = sc.Name
	}

	var cleaned []string
	for _, l := range links {
		if l = strings.TrimSpace(l); l != "" {
			cleaned = append(cleaned, l)
		}
	}
	return cleaned, origin
}

func readInput(path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(os.Stdin)
		return string(b), err
	}
	b, err := os.ReadFile(path)
	return string(b), err
}

func writeOutput(path, content string) error {
	if path == "" || path == "-" {
		_, err := fmt.Fprintln(os.Stdout, content)
		return err
	}
	if err := os.WriteFile(path, []byte(content+"\n"), 0o644); err != nil {
		return err
	}
	logger.Log.Infof("💾 Wrote %s", path)
	return nil
}

func printFailures(out io.Writer, report *batch.Report) {
	if len(report.Failed) == 0 {
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\n\033[1;36m[ FAILED LINKS ]\033[0m\t\t")
	fmt.Fprintln(w, "  #\tKind\tLink\tError")
	for _, f := range report.Failed {
		fmt.Fprintf(w, "  %d\t%s\t%s\t%v\n", f.Position, history.FailureKind(f.Err), batch.Truncate(f.Link, 40), f.Err)
	}
	w.Flush()
}

func init() {
	convertCmd.Flags().StringVarP(&convertFormat, "format", "f", "clash", "Output format")
	convertCmd.Flags().StringVarP(&convertInput, "input", "i", "", "Read links from a file (- for stdin)")
	convertCmd.Flags().StringVar(&convertURL, "url", "", "Fetch links from a subscription URL")
	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", "", "Write the result to a file instead of stdout")
	convertCmd.Flags().BoolVar(&convertNoTemplate, "no-template", false, "Emit only the converted proxies")
	convertCmd.Flags().IntVar(&convertWorkers, "workers", 0, "Override worker count")
	convertCmd.Flags().BoolVar(&convertReport, "report", false, "Print a table of failed links to stderr")
	convertCmd.Flags().StringSliceVarP(&convertSources, "source", "s", nil, "Run configured sources by name")
	convertCmd.Flags().StringToStringVarP(&convertParams, "param", "p", nil, "Override source params (e.g. -p user_agent=clash)")
	rootCmd.AddCommand(convertCmd)
}
