package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aschepis/backscratcher/guidance/config"
	"github.com/aschepis/backscratcher/guidance/guide"
	"github.com/aschepis/backscratcher/guidance/llm"
	guidancelogger "github.com/aschepis/backscratcher/guidance/logger"
	"github.com/aschepis/backscratcher/guidance/prompt"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Parse command-line flags
	var (
		configPath   = flag.String("config", "", "Path to config file (default: ~/.guidance/config.yaml)")
		providerName = flag.String("provider", "", "Provider name from the config (default: the config's default_provider)")
		model        = flag.String("model", "", "Model name (default: the config's model)")
		instructions = flag.String("instructions", "", "Instruction text prepended to the prompt")
		guidePath    = flag.String("guide", "", "Path to a JSON field guide; wraps the prompt with structured-output instructions")
		stream       = flag.Bool("stream", false, "Print progressive snapshots instead of waiting for the full response")
		raw          = flag.Bool("raw", false, "Print the raw completion text without JSON extraction")
		logFile      = flag.String("logfile", "", "Path to log file. If not set, logs to stderr")
		pretty       = flag.Bool("pretty", false, "Use pretty console log output (only valid when logfile is not set)")
	)
	flag.Parse()

	// Validate that --logfile and --pretty are mutually exclusive
	if *logFile != "" && *pretty {
		return fmt.Errorf("--logfile and --pretty are mutually exclusive")
	}
	if *raw && (*stream || *guidePath != "") {
		return fmt.Errorf("--raw cannot be combined with --stream or --guide")
	}

	promptText := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if promptText == "" {
		return fmt.Errorf("no prompt given")
	}

	logger, err := guidancelogger.New(guidancelogger.Options{File: *logFile, Pretty: *pretty})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Load configuration, with flag overrides on top
	path := *configPath
	if path == "" {
		path = config.GetConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if *providerName != "" {
		cfg.DefaultProvider = *providerName
	}
	if *model != "" {
		cfg.Model = *model
	}

	client, err := cfg.Client(logger)
	if err != nil {
		return err
	}
	session := client.Session(cfg.Model, llm.WithInstructions(*instructions))
	logger.Info().Str("provider", cfg.DefaultProvider).Str("model", cfg.Model).Msg("guidance starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *raw {
		text, err := session.Generate(ctx, promptText)
		if err != nil {
			return err
		}
		fmt.Println(text)
		return nil
	}

	var fieldGuide guide.Guide
	if *guidePath != "" {
		fieldGuide, err = loadGuide(*guidePath)
		if err != nil {
			return err
		}
		promptText = prompt.Structured(promptText, fieldGuide)
	}

	if *stream {
		return streamResponse(ctx, session, promptText, fieldGuide)
	}

	value, err := llm.Respond[map[string]any](ctx, session, promptText)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// loadGuide reads a field guide from a JSON file, keyed by field name:
//
//	{"destination": {"type": "string", "description": "Country to visit"}}
func loadGuide(path string) (guide.Guide, error) {
	data, err := os.ReadFile(path) //#nosec 304 -- intentional file read for the guide
	if err != nil {
		return nil, fmt.Errorf("failed to read guide file %q: %w", path, err)
	}
	var g guide.Guide
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to parse guide file %q: %w", path, err)
	}
	return g, nil
}

// streamResponse prints one compact JSON line per progressive snapshot.
// With a field guide, truncated string values are surfaced as they
// arrive; without one, snapshots only appear at value boundaries.
func streamResponse(ctx context.Context, session *llm.Session, promptText string, fieldGuide guide.Guide) error {
	var opts []llm.PartialOption
	if fieldGuide != nil {
		opts = append(opts, llm.WithFragmentGuide(fieldGuide))
	}

	stream, err := llm.RespondPartially[map[string]any](ctx, session, promptText, opts...)
	if err != nil {
		return err
	}
	defer stream.Close() //nolint:errcheck // No remedy for stream close errors

	for stream.Next() {
		out, err := json.Marshal(stream.Current())
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	}
	return stream.Err()
}
