package cmd

import (
	"context"
	"errors"
	"io"

	"github.com/mwantia/fsdb/config"
	"github.com/mwantia/fsdb/log"
)

// ErrUsage marks errors caused by invalid command line arguments.
var ErrUsage = errors.New("invalid usage")

// Env is what commands get to work with besides their arguments.
type Env struct {
	Config *config.Config
	Log    *log.Logger
}

// Command represents an executable fsdb command.
type Command interface {
	// Name returns the command identifier
	Name() string

	// Description returns human-readable help text
	Description() string

	// Usage returns a usage string for help (e.g. "ls [-l] <db> [scan]")
	Usage() string

	// Execute runs the command with parsed arguments
	// The writer parameter is where command output should be written
	// Returns exit code (0 = success) and error message
	Execute(ctx context.Context, env *Env, args *CommandArgs, writer io.Writer) (int, error)

	// GetFlags returns the flag set for this command (this is optional)
	GetFlags() *CommandFlagSet
}
