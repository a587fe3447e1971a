package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aluiziolira/go-scrape-reviews/batch"
	"github.com/aluiziolira/go-scrape-reviews/config"
	"github.com/aluiziolira/go-scrape-reviews/driver"
	"github.com/aluiziolira/go-scrape-reviews/pipeline"
	"github.com/aluiziolira/go-scrape-reviews/scraper"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	exitOK      = 0
	exitSetup   = 1
	exitPartial = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	defaultCfg := config.DefaultConfig()
	if err := applyEnv(defaultCfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitSetup
	}

	listingURL := flag.String("url", defaultCfg.ListingURL, "Listing URL to scrape")
	urlsFile := flag.String("urls-file", "", "File with one listing URL per line (batch mode)")
	outputFile := flag.String("output", defaultCfg.OutputFile, "Output file path")
	outputDir := flag.String("output-dir", "output", "Output directory for batch mode")
	outputFormat := flag.String("format", defaultCfg.OutputFormat, "Output format: csv, json, or dual")
	driverName := flag.String("driver", defaultCfg.Driver, "Page driver: rod or replay")
	headless := flag.Bool("headless", defaultCfg.Headless, "Run the browser headless")
	browserBin := flag.String("browser-bin", defaultCfg.BrowserBin, "Path to a Chromium binary (downloaded when empty)")
	noSandbox := flag.Bool("no-sandbox", defaultCfg.NoSandbox, "Disable the Chromium sandbox (containers)")
	maxIdleRounds := flag.Int("max-idle-rounds", defaultCfg.MaxIdleRounds, "Scroll rounds without new reviews before a hard wait")
	stabilityTimeout := flag.Duration("stability-timeout", defaultCfg.StabilityTimeout, "Wait for the list to settle after each scroll")
	hardWait := flag.Duration("hard-wait", defaultCfg.HardWaitTimeout, "Final wait before declaring the list exhausted")
	target := flag.Int("target", defaultCfg.TargetCount, "Stop after this many reviews (0 = all)")
	scrollDelta := flag.Int("scroll-delta", defaultCfg.ScrollDelta, "Pixels scrolled per round")
	maxRetries := flag.Int("max-retries", defaultCfg.MaxRetries, "Retries per failing driver call")
	retryBackoff := flag.Duration("retry-backoff", defaultCfg.RetryBackoff, "Initial retry backoff")
	retryBackoffMax := flag.Duration("retry-backoff-max", defaultCfg.RetryBackoffMax, "Maximum retry backoff")
	resume := flag.Bool("resume", false, "Append to existing output and skip reviews already written")
	parallelism := flag.Int("parallel", defaultCfg.Parallelism, "Concurrent listings in batch mode")
	showProgress := flag.Bool("progress", false, "Render progress trackers on stderr")
	metricsAddr := flag.String("metrics-addr", defaultCfg.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	verbose := flag.Bool("v", false, "Enable verbose logging")
	findDuplicates := flag.String("find-duplicates", "", "Report duplicate listing outputs in this directory and exit")
	assumeYes := flag.Bool("yes", false, "Delete duplicates without asking")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	if *findDuplicates != "" {
		return runFindDuplicates(*findDuplicates, *assumeYes)
	}

	cfg := defaultCfg.Clone()
	cfg.ListingURL = *listingURL
	cfg.Driver = strings.ToLower(*driverName)
	cfg.Headless = *headless
	cfg.BrowserBin = *browserBin
	cfg.NoSandbox = *noSandbox
	cfg.MaxIdleRounds = *maxIdleRounds
	cfg.StabilityTimeout = *stabilityTimeout
	cfg.HardWaitTimeout = *hardWait
	cfg.TargetCount = *target
	cfg.ScrollDelta = *scrollDelta
	cfg.MaxRetries = *maxRetries
	cfg.RetryBackoff = *retryBackoff
	cfg.RetryBackoffMax = *retryBackoffMax
	cfg.OutputFile = *outputFile
	cfg.OutputFormat = strings.ToLower(*outputFormat)
	cfg.Resume = *resume
	cfg.Parallelism = *parallelism
	cfg.Verbose = *verbose
	cfg.MetricsAddr = *metricsAddr

	var urls []string
	if *urlsFile != "" {
		var err error
		urls, err = readURLsFile(*urlsFile)
		if err != nil {
			slog.Error("reading listing urls", slog.Any("error", err))
			return exitSetup
		}
		if len(urls) == 0 {
			slog.Error("no listing urls found", slog.String("file", *urlsFile))
			return exitSetup
		}
		cfg.ListingURL = urls[0]
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		return exitSetup
	}

	launcher := newLauncher(cfg)
	metrics := scraper.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, flushing the current batch")
	}()

	if cfg.MetricsAddr != "" {
		metricsServer := &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown failed", slog.Any("error", err))
			}
		}()
	}

	var reporter *progressReporter
	if *showProgress {
		reporter = newProgressReporter(cfg.TargetCount)
		defer reporter.Stop()
	}

	if len(urls) > 0 {
		return runBatch(ctx, cfg, launcher, metrics, reporter, urls, *outputDir)
	}
	return runSingle(ctx, cfg, launcher, metrics, reporter)
}

func runSingle(ctx context.Context, cfg *config.Config, launcher driver.Launcher, metrics *scraper.Metrics, reporter *progressReporter) int {
	slog.Info("starting scrape",
		slog.String("url", cfg.ListingURL),
		slog.String("driver", cfg.Driver),
		slog.String("output", cfg.OutputFile),
	)

	opts := []scraper.Option{scraper.WithMetrics(metrics), scraper.WithProgress(reporter.Update)}
	if cfg.Resume {
		state, err := pipeline.LoadResume(cfg.OutputFormat, cfg.OutputFile)
		if err != nil {
			slog.Error("loading previous output", slog.Any("error", err))
			return exitSetup
		}
		if state.Skipped > 0 {
			slog.Warn("previous output has unreadable rows", slog.Int("skipped", state.Skipped))
		}
		slog.Info("resuming", slog.Int("already_written", len(state.SeenIDs)))
		opts = append(opts, scraper.WithResume(state))
	}

	sink, err := pipeline.OpenSink(cfg.OutputFormat, cfg.OutputFile, cfg.Resume)
	if err != nil {
		slog.Error("creating output", slog.Any("error", err))
		return exitSetup
	}
	defer func() {
		if err := sink.Close(); err != nil {
			slog.Error("close output", slog.Any("error", err))
		}
	}()

	session, err := scraper.NewSession(cfg, launcher, sink, opts...)
	if err != nil {
		slog.Error("initialising session", slog.Any("error", err))
		return exitSetup
	}

	result, err := session.Run(ctx)
	reporter.Stop()
	printSessionSummary(result, cfg.OutputFile, sink.GetMetrics())

	if err != nil || !result.Progress.Finished() {
		return exitPartial
	}
	return exitOK
}

func runBatch(ctx context.Context, cfg *config.Config, launcher driver.Launcher, metrics *scraper.Metrics,
	reporter *progressReporter, urls []string, outputDir string) int {
	slog.Info("starting batch",
		slog.Int("listings", len(urls)),
		slog.Int("workers", cfg.Parallelism),
		slog.String("output_dir", outputDir),
	)

	runner, err := batch.NewRunner(cfg, launcher, outputDir,
		batch.WithMetrics(metrics),
		batch.WithProgress(reporter.Update),
	)
	if err != nil {
		slog.Error("initialising batch", slog.Any("error", err))
		return exitSetup
	}

	summary, err := runner.Run(ctx, urls)
	reporter.Stop()
	if err != nil {
		slog.Error("batch failed", slog.Any("error", err))
		return exitSetup
	}
	printBatchSummary(summary)

	if summary.Failed() > 0 || len(summary.Skipped) > 0 {
		return exitPartial
	}
	return exitOK
}

func runFindDuplicates(dir string, assumeYes bool) int {
	groups, err := batch.FindDuplicates(dir)
	if err != nil {
		slog.Error("scanning for duplicates", slog.Any("error", err))
		return exitSetup
	}
	if len(groups) == 0 {
		fmt.Println("No duplicate listing outputs found.")
		return exitOK
	}
	printDuplicates(groups)

	if !assumeYes && !confirm(os.Stdin, "Delete the duplicate files? [y/N]: ") {
		fmt.Println("Nothing deleted.")
		return exitOK
	}
	removed, err := batch.RemoveDuplicates(groups)
	fmt.Printf("Deleted %d files.\n", len(removed))
	if err != nil {
		slog.Error("deleting duplicates", slog.Any("error", err))
		return exitPartial
	}
	return exitOK
}

func newLauncher(cfg *config.Config) driver.Launcher {
	if cfg.Driver == config.DriverReplay {
		return driver.NewReplayLauncher(cfg.ReplayBatchSize)
	}
	opts := driver.DefaultRodOptions()
	opts.Headless = cfg.Headless
	opts.NoSandbox = cfg.NoSandbox
	opts.BrowserBin = cfg.BrowserBin
	return driver.NewRodLauncher(opts)
}

// applyEnv lets SCRAPER_* variables replace the built-in defaults; flags
// still win over both.
func applyEnv(cfg *config.Config) error {
	if value, ok := config.EnvString("SCRAPER_URL"); ok {
		cfg.ListingURL = value
	}
	if value, ok := config.EnvString("SCRAPER_OUTPUT"); ok {
		cfg.OutputFile = value
	}
	if value, ok := config.EnvString("SCRAPER_DRIVER"); ok {
		cfg.Driver = value
	}
	if value, ok := config.EnvString("SCRAPER_BROWSER_BIN"); ok {
		cfg.BrowserBin = value
	}
	if value, ok := config.EnvString("SCRAPER_METRICS_ADDR"); ok {
		cfg.MetricsAddr = value
	}
	if value, ok, err := config.EnvInt("SCRAPER_PARALLEL"); err != nil {
		return fmt.Errorf("invalid SCRAPER_PARALLEL: %w", err)
	} else if ok {
		cfg.Parallelism = value
	}
	if value, ok, err := config.EnvInt("SCRAPER_TARGET"); err != nil {
		return fmt.Errorf("invalid SCRAPER_TARGET: %w", err)
	} else if ok {
		cfg.TargetCount = value
	}
	if value, ok, err := config.EnvBool("SCRAPER_HEADLESS"); err != nil {
		return fmt.Errorf("invalid SCRAPER_HEADLESS: %w", err)
	} else if ok {
		cfg.Headless = value
	}
	if value, ok, err := config.EnvBool("SCRAPER_NO_SANDBOX"); err != nil {
		return fmt.Errorf("invalid SCRAPER_NO_SANDBOX: %w", err)
	} else if ok {
		cfg.NoSandbox = value
	}
	if value, ok, err := config.EnvDuration("SCRAPER_HARD_WAIT"); err != nil {
		return fmt.Errorf("invalid SCRAPER_HARD_WAIT: %w", err)
	} else if ok {
		cfg.HardWaitTimeout = value
	}
	return nil
}

func readURLsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return batch.ReadURLs(f)
}

func confirm(in *os.File, prompt string) bool {
	fmt.Print(prompt)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
