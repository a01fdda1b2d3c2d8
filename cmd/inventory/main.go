// Package main is the inventory command-line client. Every command goes
// through the client-side inventory store, which mirrors the remote
// inventory service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vyrodovalexey/inventory-tracker/internal/config"
	"github.com/vyrodovalexey/inventory-tracker/internal/handler"
	"github.com/vyrodovalexey/inventory-tracker/internal/inventory"
	"github.com/vyrodovalexey/inventory-tracker/internal/remote"
	"github.com/vyrodovalexey/inventory-tracker/internal/telemetry"
)

const serviceName = "inventory-cli"

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

var errUsage = errors.New("usage")

// app is the state shared by every command.
type app struct {
	cfg    *config.ClientConfig
	store  *inventory.Store
	logger *zap.Logger
	out    io.Writer
}

type command struct {
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"list":   {usage: "list [-status S] [-category C]", run: runList},
	"get":    {usage: "get <id>", run: runGet},
	"add":    {usage: "add -name N [-quantity Q] [-category C] [-status S]", run: runAdd},
	"update": {usage: "update <id> [-name N] [-quantity Q] [-category C] [-status S]", run: runUpdate},
	"delete": {usage: "delete <id>", run: runDelete},
	"watch":  {usage: "watch [-count N]", run: runWatch},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if err := config.LoadEnvFiles(); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitError
	}

	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitError
	}

	fs := flag.NewFlagSet("inventory", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.RemoteURL, "url", cfg.RemoteURL, "inventory service base URL")
	fs.DurationVar(&cfg.RemoteTimeout, "timeout", cfg.RemoteTimeout, "per-request timeout")
	fs.StringVar(&cfg.RemoteAPIKey, "api-key", cfg.RemoteAPIKey, "API key sent as "+remote.APIKeyHeader)
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	fs.Usage = func() { printUsage(fs) }

	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return exitUsage
	}

	cmd, ok := commands[rest[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n", rest[0])
		fs.Usage()
		return exitUsage
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitError
	}

	logger, err := newLogger(cfg.LogLevel, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitError
	}
	defer func() { _ = logger.Sync() }()

	shutdownTelemetry, err := telemetry.Setup(ctx, telemetry.Options{
		ServiceName:    serviceName,
		ServiceVersion: handler.Version,
		Endpoint:       cfg.OTLPEndpoint,
	})
	if err != nil {
		logger.Warn("telemetry setup incomplete", zap.Error(err))
	}
	if shutdownTelemetry != nil {
		defer func() { _ = shutdownTelemetry(context.WithoutCancel(ctx)) }()
	}

	client, err := remote.NewClient(remote.Config{
		BaseURL:   cfg.RemoteURL,
		Timeout:   cfg.RemoteTimeout,
		APIKey:    cfg.RemoteAPIKey,
		BasicUser: cfg.RemoteBasicUser,
		BasicPass: cfg.RemoteBasicPass,
	}, remote.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitError
	}

	a := &app{
		cfg:    cfg,
		store:  inventory.New(client, inventory.WithLogger(logger)),
		logger: logger,
		out:    stdout,
	}

	if err := cmd.run(ctx, a, rest[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(stderr, "%v\nusage: inventory %s\n", err, cmd.usage)
			return exitUsage
		}
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitError
	}

	return exitOK
}

func printUsage(fs *flag.FlagSet) {
	out := fs.Output()
	fmt.Fprintln(out, "usage: inventory [flags] <command> [args]")
	fmt.Fprintln(out, "\ncommands:")

	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %s\n", commands[name].usage)
	}

	fmt.Fprintln(out, "\nflags:")
	fs.PrintDefaults()
}

// newLogger builds a console logger on w. The CLI keeps stdout for
// command output.
func newLogger(level string, w io.Writer) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", level, err)
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(w),
		zap.NewAtomicLevelAt(zapLevel),
	)

	return zap.New(core), nil
}
