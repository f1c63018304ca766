// coach-cli runs the coaching operations from a terminal against the same
// provider and handlers the gateway uses.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"voicecoach-gateway/internal/coaching"
	generatescript "voicecoach-gateway/internal/coaching/generate-script"
	speechfeedback "voicecoach-gateway/internal/coaching/speech-feedback"
	transcribeaudio "voicecoach-gateway/internal/coaching/transcribe-audio"
	"voicecoach-gateway/internal/common/config"
	"voicecoach-gateway/internal/common/httpclient"
	"voicecoach-gateway/internal/common/logger"
	"voicecoach-gateway/internal/common/validation"
	"voicecoach-gateway/internal/gateway"
	"voicecoach-gateway/internal/models"
	"voicecoach-gateway/internal/provider"
	"voicecoach-gateway/pkg/registry"
)

var (
	// Global flags
	verbose bool
	asJSON  bool

	// script flags
	topic    string
	duration int

	// analyze flags
	audioPath  string
	scriptPath string
	mimeType   string

	// registry flags
	registryPath string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "coach-cli",
		Short: "Presentation coaching from the command line",
		Long: `coach-cli generates presentation scripts and analyzes recorded rehearsals.

It reads the same configuration as the gateway (configs/config.yaml, .env and
environment variables). GEMINI_API_KEY must be set for script and analyze.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "Print raw JSON instead of the formatted report")

	rootCmd.AddCommand(scriptCmd())
	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(registryCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func scriptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "script",
		Short: "Generate a timed presentation script",
		Long: `Generate a timed presentation script for a topic.

Examples:
  coach-cli script --topic "Quarterly results" --duration 5
  coach-cli script --topic "Product launch" --json > script.json`,
		RunE: runScript,
	}
	cmd.Flags().StringVarP(&topic, "topic", "t", "", "Presentation topic")
	cmd.Flags().IntVarP(&duration, "duration", "d", models.DefaultDurationMinutes, "Target length in minutes")
	_ = cmd.MarkFlagRequired("topic")
	return cmd
}

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a recorded rehearsal against its script",
		Long: `Transcribe a recording and score it against the original script.

The script file may hold a bare array of {timestamp, line} objects or the
{"script": [...]} document printed by "coach-cli script --json".

Examples:
  coach-cli analyze --audio rehearsal.webm --script script.json`,
		RunE: runAnalyze,
	}
	cmd.Flags().StringVarP(&audioPath, "audio", "a", "", "Path to the recorded audio")
	cmd.Flags().StringVarP(&scriptPath, "script", "s", "", "Path to the original script JSON")
	cmd.Flags().StringVar(&mimeType, "mime-type", "", "Audio MIME type (detected when empty)")
	_ = cmd.MarkFlagRequired("audio")
	_ = cmd.MarkFlagRequired("script")
	return cmd
}

func registryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Inspect the operation registry",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadRegistry()
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), reg)
		},
	}

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Validate a registry file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if registryPath == "" {
				return fmt.Errorf("--path is required")
			}
			reg, err := readRegistryFile(registryPath)
			if err != nil {
				return err
			}
			if err := checkRegistry(reg); err != nil {
				return fmt.Errorf("registry validation failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registry validation passed. Found %d operations.\n", len(reg.Operations))
			return nil
		},
	}

	export := &cobra.Command{
		Use:   "export",
		Short: "Write the built-in registry to a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if registryPath == "" {
				return fmt.Errorf("--path is required")
			}
			reg := registry.Default()
			reg.LastUpdated = time.Now().Format(time.RFC3339)
			if err := saveRegistry(reg, registryPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d operations to %s\n", len(reg.Operations), registryPath)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&registryPath, "path", "p", "", "Registry file path")
	cmd.AddCommand(show, validate, export)
	return cmd
}

func runScript(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, gemini, log, err := setup(ctx)
	if err != nil {
		return err
	}

	req := models.ScriptRequest{Topic: topic, Duration: &duration}
	body, _ := json.Marshal(req)
	if err := validateInput(registry.OperationGenerateScript, body); err != nil {
		return err
	}

	h := generatescript.NewHandler(generatescript.LoadConfig(cfg), gemini, nil, log, nil)
	out, err := h.Execute(ctx, generatescript.InputFromRequest(req))
	if err != nil {
		return err
	}

	if asJSON {
		return writeJSON(cmd.OutOrStdout(), out)
	}
	renderScript(cmd.OutOrStdout(), out)
	return nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	rawScript, err := os.ReadFile(scriptPath)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	if err := validateInput(registry.OperationAnalyze, rawScript); err != nil {
		return err
	}
	original, err := coaching.DecodeLines(string(rawScript), "script")
	if err != nil {
		return fmt.Errorf("decode script: %w", err)
	}

	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return fmt.Errorf("read audio: %w", err)
	}
	if len(audio) == 0 {
		return fmt.Errorf("audio file %s is empty", audioPath)
	}

	_, gemini, log, err := setup(ctx)
	if err != nil {
		return err
	}

	mt := gateway.DetectAudioType(filepath.Base(audioPath), mimeType, audio)
	if verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "Transcribing %s (%s, %d bytes)...\n", audioPath, mt, len(audio))
	}

	transcriber := transcribeaudio.NewHandler(transcribeaudio.LoadConfig(), gemini, log, nil)
	transcript, err := transcriber.Execute(ctx, &transcribeaudio.Input{Audio: audio, MimeType: mt})
	if err != nil {
		return err
	}

	feedback := speechfeedback.NewHandler(speechfeedback.LoadConfig(), gemini, log, nil)
	report, err := feedback.Execute(ctx, &speechfeedback.Input{
		OriginalScript: original,
		Transcription:  transcript.Transcription,
	})
	if err != nil {
		return err
	}

	if asJSON {
		return writeJSON(cmd.OutOrStdout(), report)
	}
	renderReport(cmd.OutOrStdout(), report)
	return nil
}

// setup loads configuration and builds the provider. A missing API key fails here.
func setup(ctx context.Context) (*config.Config, *provider.Gemini, logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	log := logger.NewZapAdapter(logger.New(level, "console"))

	hc := httpclient.NewClient(cfg.ProviderTimeout() + 5*time.Second)
	gemini, err := provider.NewGemini(ctx, provider.ConfigFrom(cfg), hc.HTTPClient(), log, nil)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, gemini, log, nil
}

func validateInput(op string, body []byte) error {
	res, err := validation.ValidateJSON(registry.Default().InputSchema(op), body)
	if err != nil {
		return err
	}
	return res.AsError()
}

func loadRegistry() (*registry.OperationRegistry, error) {
	if registryPath == "" {
		return registry.Default(), nil
	}
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}
	return reg, nil
}

// readRegistryFile decodes a registry file as written, without merging it
// over the built-in operations.
func readRegistryFile(path string) (*registry.OperationRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}
	var reg registry.OperationRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("failed to parse registry: %w", err)
	}
	return &reg, nil
}

// checkRegistry enforces what the gateway needs from every operation.
func checkRegistry(reg *registry.OperationRegistry) error {
	if len(reg.Operations) == 0 {
		return fmt.Errorf("registry contains no operations")
	}
	ids := make(map[string]bool)
	routes := make(map[string]string)
	for _, op := range reg.Operations {
		if op.ID == "" {
			return fmt.Errorf("operation missing required field: id")
		}
		if ids[op.ID] {
			return fmt.Errorf("duplicate operation ID: %s", op.ID)
		}
		ids[op.ID] = true

		if op.Method == "" || op.Path == "" {
			return fmt.Errorf("operation %s missing method or path", op.ID)
		}
		route := op.Method + " " + op.Path
		if other, ok := routes[route]; ok {
			return fmt.Errorf("operations %s and %s share route %s", other, op.ID, route)
		}
		routes[route] = op.ID

		if op.Timeout != "" {
			if _, err := time.ParseDuration(op.Timeout); err != nil {
				return fmt.Errorf("operation %s has invalid timeout %q", op.ID, op.Timeout)
			}
		}
		if len(op.InputSchema) > 0 {
			if _, err := validation.ValidateValue(op.InputSchema, map[string]interface{}{}); err != nil {
				return fmt.Errorf("operation %s has an unusable input schema: %w", op.ID, err)
			}
		}
	}
	for _, id := range []string{registry.OperationHealth, registry.OperationGenerateScript, registry.OperationAnalyze} {
		if !ids[id] {
			return fmt.Errorf("registry is missing operation %s", id)
		}
	}
	return nil
}

func saveRegistry(reg *registry.OperationRegistry, path string) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\nInterrupted, canceling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}
