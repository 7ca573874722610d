package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mwantia/fsdb/cmd"
	"github.com/mwantia/fsdb/cmd/builtin"
	"github.com/mwantia/fsdb/config"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configPath, args, err := parseGlobalFlags(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return cmd.ExitUsage
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return cmd.ExitFailure
	}

	logger := cfg.NewLogger("fsdb")
	defer logger.Close()

	for _, warning := range config.Validate(cfg) {
		logger.Warn("Config: %s", warning)
	}

	registry := cmd.NewRegistry("fsdb")
	if err := builtin.InitBuiltin(registry); err != nil {
		logger.Error("Failed to setup commands: %v", err)
		return cmd.ExitFailure
	}

	env := &cmd.Env{
		Config: cfg,
		Log:    logger,
	}

	code, err := registry.Execute(ctx, env, os.Stdout, args...)
	if err != nil {
		if errors.Is(err, cmd.ErrUsage) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		} else {
			logger.Error("%v", err)
		}
		if code == cmd.ExitOK {
			code = cmd.ExitFailure
		}
	}

	return code
}

// parseGlobalFlags consumes the flags given before the command name.
func parseGlobalFlags(args []string) (string, []string, error) {
	configPath := ""

	for len(args) > 0 && strings.HasPrefix(args[0], "-") {
		switch arg := args[0]; {
		case arg == "-c" || arg == "--config":
			if len(args) < 2 {
				return "", nil, fmt.Errorf("flag %s requires a value", arg)
			}
			configPath = args[1]
			args = args[2:]
		case strings.HasPrefix(arg, "--config="):
			configPath = strings.TrimPrefix(arg, "--config=")
			args = args[1:]
		default:
			// Leave -h and --help to the registry
			return configPath, args, nil
		}
	}

	return configPath, args, nil
}
