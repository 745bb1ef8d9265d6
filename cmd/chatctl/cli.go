package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"github.com/upb/multichat/app"
	"github.com/upb/multichat/config"
	"github.com/upb/multichat/internal/observability"
)

var version = "dev"

// CliConfig holds the process hooks used by Run
type CliConfig struct {
	Name        string
	Description string
	Version     string
	Exit        func(int)
	Stdout      io.Writer
	Stderr      io.Writer
}

// NewCliConfig returns a CliConfig bound to the real process
func NewCliConfig() *CliConfig {
	return &CliConfig{
		Name:        "chatctl",
		Description: "Chat with OpenAI, Anthropic, Google, IONOS and Ollama models from one command line.",
		Version:     version,
		Exit:        os.Exit,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
	}
}

type cli struct {
	Catalog  string `name:"catalog" short:"c" env:"CONFIG_PATH" help:"Path to the provider catalog YAML."`
	LogLevel string `name:"log-level" default:"warn" help:"Log level written to stderr."`

	Providers cmdProviders `cmd:"" help:"List configured providers."`
	Models    cmdModels    `cmd:"" help:"List the models of a provider."`
	Personas  cmdPersonas  `cmd:"" help:"List personas."`
	Ask       cmdAsk       `cmd:"" help:"Send a message and print the reply."`
	History   cmdHistory   `cmd:"" help:"Inspect stored conversations."`
	Version   cmdVersion   `cmd:"" help:"Show version."`
}

// cliEnv is bound into every command's Run method
type cliEnv struct {
	ctx    context.Context
	deps   *app.Dependencies
	stdout io.Writer
	stderr io.Writer
}

// Run parses args and executes the selected command, returning the exit code
func Run(args []string, cfg *CliConfig) int {
	var c cli
	parser, err := kong.New(&c,
		kong.Name(cfg.Name),
		kong.Description(cfg.Description),
		kong.Exit(cfg.Exit),
		kong.Writers(cfg.Stdout, cfg.Stderr),
		kong.UsageOnError(),
		kong.Vars{"version": cfg.Version},
	)
	if err != nil {
		fmt.Fprintf(cfg.Stderr, "%s: %v\n", cfg.Name, err)
		return 1
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		fmt.Fprintf(cfg.Stderr, "%s: %v\n", cfg.Name, err)
		return 2
	}

	if kctx.Command() == "version" {
		fmt.Fprintln(cfg.Stdout, cfg.Version)
		return 0
	}

	ctx := context.Background()
	rt, cleanup, err := newRuntime(ctx, &c, cfg)
	if err != nil {
		fmt.Fprintf(cfg.Stderr, "%s: %v\n", cfg.Name, err)
		return 1
	}
	defer cleanup()

	if err := kctx.Run(rt); err != nil {
		fmt.Fprintf(cfg.Stderr, "%s: %v\n", cfg.Name, err)
		return 1
	}
	return 0
}

func newRuntime(ctx context.Context, c *cli, cfg *CliConfig) (*cliEnv, func(), error) {
	appCfg, err := config.New(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if c.Catalog != "" {
		appCfg.Providers.CatalogPath = c.Catalog
	}
	appCfg.Observability.LogLevel = c.LogLevel
	appCfg.Observability.LogFormat = "console"

	logger, err := observability.NewLogger(appCfg.Observability)
	if err != nil {
		return nil, nil, err
	}

	deps, err := app.NewDependencies(ctx, appCfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}

	cleanup := func() {
		if err := deps.Close(context.Background()); err != nil {
			logger.Warn("failed to close dependencies", zap.Error(err))
		}
	}
	return &cliEnv{ctx: ctx, deps: deps, stdout: cfg.Stdout, stderr: cfg.Stderr}, cleanup, nil
}
