package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/ignite/bulksend/internal/api"
	"github.com/ignite/bulksend/internal/config"
	"github.com/ignite/bulksend/internal/domain"
	"github.com/ignite/bulksend/internal/message"
	"github.com/ignite/bulksend/internal/pkg/logger"
	"github.com/ignite/bulksend/internal/quota"
	"github.com/ignite/bulksend/internal/recipients"
	"github.com/ignite/bulksend/internal/worker"
)

const version = "1.0.0"

// stringList collects a repeatable flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	os.Exit(run())
}

func run() int {
	var csvFiles stringList
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	globPattern := flag.String("glob", "", "glob pattern matching recipient CSV files")
	testMode := flag.Bool("test", false, "send to the first few recipients only")
	limit := flag.Int("limit", 0, "cap the roster at this many recipients (0 = no cap)")
	statusAddr := flag.String("status", "", "serve the status API on this address (e.g. 127.0.0.1:8844)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Var(&csvFiles, "csv", "recipient CSV file (repeatable)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("bulksend %s\n", version)
		return 0
	}

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}

	setupLogging(cfg)
	defer logger.Close()

	content, err := message.LoadContent(cfg.Message)
	if err != nil {
		logger.Error("message content unavailable", "error", err)
		return 1
	}

	roster, err := loadRoster(csvFiles, *globPattern)
	if err != nil {
		logger.Error("could not load recipients", "error", err)
		return 1
	}
	if len(roster.Recipients) == 0 {
		logger.Error("nothing to send", "error", recipients.ErrNoRecipients,
			"invalid_skipped", roster.InvalidSkipped)
		return 1
	}
	if *limit > 0 && len(roster.Recipients) > *limit {
		logger.Info("roster capped", "limit", *limit, "loaded", len(roster.Recipients))
		roster.Recipients = roster.Recipients[:*limit]
	}

	store, err := quota.NewStore(context.Background(), cfg.Quota)
	if err != nil {
		logger.Error("quota store unavailable", "error", err)
		return 1
	}
	defer store.Close()

	tracker := quota.NewTracker(store, cfg.Quota.DailySoftLimit, cfg.Quota.DailyHardLimit)
	tracker.Load(context.Background())

	sender, err := buildSender(cfg)
	if err != nil {
		logger.Error("transport unavailable", "transport", cfg.Transport.Type, "error", err)
		return 1
	}

	builder := message.NewBuilder(content, cfg.Sender)
	engine := worker.NewEngine(sender, tracker, builder, cfg.Sending)
	engine.SetInvalidSkipped(roster.InvalidSkipped)

	if addr := pickStatusAddr(*statusAddr, cfg.Status.Addr); addr != "" {
		statusServer := api.NewServer(engine, tracker, version)
		go func() {
			logger.Info("status server listening", "addr", addr)
			if err := statusServer.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
				logger.Warn("status server stopped", "error", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			statusServer.Shutdown(ctx)
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sig
		logger.Warn("signal received, finishing the current recipient and stopping", "signal", s.String())
		cancel()
	}()

	mode := domain.ModeProduction
	if *testMode {
		mode = domain.ModeTest
	}

	stats, runErr := engine.Run(ctx, roster.Recipients, mode)
	printSummary(stats, tracker)

	if runErr != nil {
		logger.Error("run aborted", "kind", string(domain.KindOf(runErr)), "error", runErr)
		return 1
	}
	return 0
}

// setupLogging applies the configured level and redaction and tees the
// log into a per-run file. A missing log directory only costs the file
// copy, never the run.
func setupLogging(cfg *config.Config) {
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.SetRedactPII(!cfg.Logging.DisableRedaction)

	path := cfg.Logging.File
	if path == "" {
		if cfg.Logging.Dir == "" {
			return
		}
		path = filepath.Join(cfg.Logging.Dir, fmt.Sprintf("bulksend_%s.log", time.Now().Format("20060102_150405")))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		logger.Warn("log directory unavailable, logging to console only", "error", err)
		return
	}
	if err := logger.SetFile(path); err != nil {
		logger.Warn("log file unavailable, logging to console only", "error", err)
		return
	}
	logger.Info("logging to file", "path", path)
}

// loadRoster merges the -csv and -glob sources into one deduplicated
// roster.
func loadRoster(csvFiles stringList, globPattern string) (*recipients.Roster, error) {
	supplier := recipients.NewSupplier()
	if globPattern == "" {
		return supplier.Load(csvFiles...)
	}
	if len(csvFiles) == 0 {
		return supplier.LoadGlob(globPattern)
	}
	matches, err := filepath.Glob(globPattern)
	if err != nil {
		return nil, fmt.Errorf("%w: bad glob %q: %v", recipients.ErrNoSources, globPattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: glob %q matched no files", recipients.ErrNoSources, globPattern)
	}
	sort.Strings(matches)
	return supplier.Load(append([]string(csvFiles), matches...)...)
}

func buildSender(cfg *config.Config) (worker.Sender, error) {
	if cfg.Transport.Type == "ses" {
		return worker.NewSESSender(context.Background(), cfg.Transport.SES)
	}
	return worker.NewSMTPSender(cfg), nil
}

func pickStatusAddr(flagAddr, cfgAddr string) string {
	if flagAddr != "" {
		return flagAddr
	}
	return cfgAddr
}

// printSummary writes the operator-facing report to stdout. Unlike the
// structured log it lists failed recipients in the clear, since the
// operator owns the roster.
func printSummary(stats *domain.RunStatistics, tracker *quota.Tracker) {
	fmt.Printf("\nRun %s (%s) finished in %s\n",
		stats.RunID, stats.Mode, stats.Duration().Round(time.Second))
	fmt.Printf("  Sent:        %d/%d (%.1f%%)\n", stats.Succeeded, stats.TotalAttempted, stats.SuccessRate())
	fmt.Printf("  Failed:      %d\n", stats.Failed)
	fmt.Printf("  Retries:     %d\n", stats.TotalRetryAttempts)
	fmt.Printf("  Invalid:     %d skipped while loading\n", stats.InvalidSkipped)
	if stats.RemainingUnattempted > 0 {
		fmt.Printf("  Unattempted: %d (skipped, not failed)\n", stats.RemainingUnattempted)
	}
	state := tracker.State()
	fmt.Printf("  Daily quota: %d/%d used, %d remaining\n",
		state.CountSentToday, tracker.HardLimit(), tracker.Remaining())

	if stats.Failed > 0 {
		fmt.Println("\nFailed recipients:")
		for _, res := range stats.Results {
			if !res.Success {
				fmt.Printf("  %-40s %s after %d attempt(s): %s\n",
					res.Recipient.Address, res.ErrorKind, res.Attempts, res.Error)
			}
		}
	}
}
