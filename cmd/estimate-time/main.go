// estimate-time batch-estimates, for each source file listed in a CSV,
// how long a junior developer would need to comprehend it, by
// repeatedly querying a local text-generation model.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"github.com/aigoflow/estimate-time/internal/batch"
	"github.com/aigoflow/estimate-time/internal/cache"
	"github.com/aigoflow/estimate-time/internal/client"
	"github.com/aigoflow/estimate-time/internal/config"
	"github.com/aigoflow/estimate-time/internal/store"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI with the given args and returns the process
// exit code. Kept separate from main for tests.
func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "estimate-time: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd(stderr io.Writer) *cobra.Command {
	var (
		inputCSV   string
		outputCSV  string
		model      string
		timeoutSec int
		cacheDir   string
		askRepeats int
		ollamaURL  string
		natsURL    string
		auditDB    string
		envFile    string
	)

	cmd := &cobra.Command{
		Use:   "estimate-time",
		Short: "Batch estimate comprehension time for source files listed in a CSV",
		Long: `Read rows of (file_path, measures) from a CSV, load the cached source
text for each file, and repeatedly ask a local model how many seconds a
junior developer would need to understand the code. Results stream to
the output CSV one flushed line per row, so completed rows survive an
aborted run.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Structured logging goes to stderr; stdout stays free for
			// the operator's own redirection.
			logger := slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}))
			slog.SetDefault(logger)

			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}
			cfg.InputCSV = inputCSV
			cfg.OutputCSV = outputCSV
			cfg.Model = model
			if cmd.Flags().Changed("timeout") {
				cfg.Timeout = time.Duration(timeoutSec) * time.Second
			}
			if cmd.Flags().Changed("cache-dir") {
				cfg.CacheDir = cacheDir
			}
			if cmd.Flags().Changed("ask-repeats") {
				cfg.AskRepeats = askRepeats
			}
			if cmd.Flags().Changed("ollama-url") {
				cfg.OllamaURL = ollamaURL
			}
			if cmd.Flags().Changed("nats-url") {
				cfg.NatsURL = natsURL
			}
			if cmd.Flags().Changed("audit-db") {
				cfg.AuditDB = auditDB
			}

			if cfg.AskRepeats < 1 {
				return fmt.Errorf("ask-repeats must be at least 1, got %d", cfg.AskRepeats)
			}

			return runBatch(cfg, stderr)
		},
	}

	cmd.Flags().StringVarP(&inputCSV, "input-csv", "i", "", "Path to input CSV file with file_path column")
	cmd.Flags().StringVarP(&outputCSV, "output-csv", "o", "", "Path to output CSV to write file_path and estimated seconds")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Model to use")
	cmd.Flags().IntVarP(&timeoutSec, "timeout", "t", 180, "Timeout in seconds for each model request")
	cmd.Flags().StringVarP(&cacheDir, "cache-dir", "c", "./code_cache", "Directory of cached code")
	cmd.Flags().IntVarP(&askRepeats, "ask-repeats", "r", 5, "Number of times to ask the model per file")
	cmd.Flags().StringVar(&ollamaURL, "ollama-url", "http://localhost:11434", "Base URL of the Ollama-compatible endpoint")
	cmd.Flags().StringVar(&natsURL, "nats-url", "", "NATS URL of an aigoflow inference worker (overrides HTTP transport)")
	cmd.Flags().StringVar(&auditDB, "audit-db", "", "Optional SQLite file recording every attempt for diagnosis")
	cmd.Flags().StringVar(&envFile, "env", "", "Optional .env file to load")

	_ = cmd.MarkFlagRequired("input-csv")
	_ = cmd.MarkFlagRequired("output-csv")
	_ = cmd.MarkFlagRequired("model")

	return cmd
}

func runBatch(cfg *config.Config, stderr io.Writer) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runID := ulid.Make().String()

	var audit batch.Audit
	if cfg.AuditDB != "" {
		_ = os.MkdirAll(filepath.Dir(cfg.AuditDB), 0755)
		db, err := store.Open(cfg.AuditDB)
		if err != nil {
			return fmt.Errorf("opening audit store: %w", err)
		}
		defer db.Close()
		db.Event("info", "run.start", "Run starting", map[string]interface{}{
			"run_id":      runID,
			"model":       cfg.Model,
			"input_csv":   cfg.InputCSV,
			"output_csv":  cfg.OutputCSV,
			"ask_repeats": cfg.AskRepeats,
		})
		audit = db
	}

	querier, err := newQuerier(ctx, cfg)
	if err != nil {
		return err
	}
	defer querier.Close()

	slog.Info("It could take some time to initialize the model...", "model", cfg.Model)

	driver := &batch.Driver{
		Processor: &batch.Processor{
			Client:  querier,
			Cache:   cache.NewResolver(cfg.CacheDir),
			Model:   cfg.Model,
			Repeats: cfg.AskRepeats,
			RunID:   runID,
			Audit:   audit,
		},
		Progress: batch.NewProgress(stderr),
		Audit:    audit,
	}

	if err := driver.Run(ctx, cfg.InputCSV, cfg.OutputCSV); err != nil {
		if audit != nil {
			audit.Event("error", "run.failed", "Run failed", map[string]interface{}{
				"run_id": runID,
				"error":  err.Error(),
			})
		}
		return err
	}

	if audit != nil {
		audit.Event("info", "run.complete", "Run completed", map[string]interface{}{
			"run_id": runID,
		})
	}
	return nil
}

// newQuerier picks the transport: NATS when a worker URL is
// configured, the Ollama HTTP endpoint otherwise.
func newQuerier(ctx context.Context, cfg *config.Config) (client.Querier, error) {
	if cfg.NatsURL != "" {
		return client.NewNATSClient(cfg.NatsURL, cfg.ClientID, cfg.Timeout)
	}

	c := client.NewOllamaClient(cfg.OllamaURL, cfg.Timeout)
	found, err := c.CheckModel(ctx, cfg.Model)
	switch {
	case err != nil:
		slog.Warn("Could not check model availability", "model", cfg.Model, "error", err)
	case !found:
		slog.Warn("Model not listed by the server yet", "model", cfg.Model)
	}
	return c, nil
}
