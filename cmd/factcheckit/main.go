// Command factcheckit serves the Fact-CheckIt API and offers offline tools
// around the response normalizer.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/factchecker/factcheckit/internal/api"
	"github.com/factchecker/factcheckit/internal/check"
	"github.com/factchecker/factcheckit/internal/config"
	"github.com/factchecker/factcheckit/internal/database"
	"github.com/factchecker/factcheckit/internal/llm"
	"github.com/factchecker/factcheckit/internal/logging"
	"github.com/factchecker/factcheckit/internal/models"
	"github.com/factchecker/factcheckit/internal/normalize"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	configPath string
	outPath    string
	claim      string
	toolOutput bool
)

var rootCmd = &cobra.Command{
	Use:           "factcheckit",
	Short:         "Fact-CheckIt - bust myths and clarify claims, ready to share",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var generateConfigCmd = &cobra.Command{
	Use:   "generate-config",
	Short: "Write a sample configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.GenerateSample(outPath); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Sample configuration written to %s\n", outPath)
		return nil
	},
}

var normalizeCmd = &cobra.Command{
	Use:   "normalize [file]",
	Short: "Normalize a saved model answer and print the result",
	Long: `Runs the response normalizer on a raw model answer read from a file or
stdin and prints the result as JSON. Flags raised during normalization are
written to stderr. No configuration or network access is needed.

Example:
  factcheckit normalize --claim "The moon is made of cheese" answer.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := cmd.InOrStdin()
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open input: %w", err)
			}
			defer f.Close()
			in = f
		}
		return runNormalize(in, cmd.OutOrStdout(), cmd.ErrOrStderr(), claim, toolOutput)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the configuration file")
	generateConfigCmd.Flags().StringVarP(&outPath, "out", "o", "config.yaml", "where to write the sample configuration")
	normalizeCmd.Flags().StringVar(&claim, "claim", "", "claim the answer responds to (used for fallback sources)")
	normalizeCmd.Flags().BoolVar(&toolOutput, "tool", false, "treat the input as function-call arguments JSON")

	rootCmd.AddCommand(serveCmd, generateConfigCmd, normalizeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logging.Setup(cfg.Logging)

	// Creates the data directory and runs migrations.
	store, err := database.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	provider, err := llm.NewProvider(&cfg.LLM)
	if err != nil {
		return err
	}

	svc := check.NewService(cfg, provider, store, check.NewReferenceFinder(cfg.Search))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: api.NewRouter(cfg, svc, store),
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Int("port", cfg.Server.Port).
			Str("provider", provider.Name()).
			Str("model", cfg.LLM.Model).
			Msg("Fact-CheckIt server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info().Msg("Server stopped")
	return nil
}

type normalizeOutput struct {
	Format string                  `json:"format"`
	Flags  []string                `json:"flags"`
	Result models.ClaimCheckResult `json:"result"`
}

func runNormalize(in io.Reader, out, errOut io.Writer, claim string, structured bool) error {
	raw, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	n := normalize.New(config.DefaultNormalizerConfig())
	res, report := n.Normalize(normalize.Input{
		Text:       string(raw),
		Structured: structured,
		Claim:      strings.TrimSpace(claim),
	})

	flags := report.FlagStrings()
	if len(flags) > 0 {
		fmt.Fprintf(errOut, "flags: %s\n", strings.Join(flags, ", "))
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(normalizeOutput{
		Format: string(report.Format),
		Flags:  flags,
		Result: res,
	})
}
