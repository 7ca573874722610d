package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"
	"sync"
)

const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// Registry handles command registration, parsing, and execution
type Registry struct {
	mu   sync.RWMutex
	name string
	cmds map[string]Command
}

func NewRegistry(name string) *Registry {
	return &Registry{
		name: name,
		cmds: make(map[string]Command),
	}
}

// Register registers a command
func (r *Registry) Register(cmd Command) error {
	if cmd == nil {
		return fmt.Errorf("command cannot be nil")
	}

	name := cmd.Name()
	if name == "" {
		return fmt.Errorf("command name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.cmds[name]; exists {
		return fmt.Errorf("command already registered: %s", name)
	}

	r.cmds[name] = cmd
	return nil
}

// Get returns a command by name
func (r *Registry) Get(name string) (Command, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cmd, exists := r.cmds[name]
	if !exists {
		return nil, fmt.Errorf("command not found: %s: %w", name, ErrUsage)
	}

	return cmd, nil
}

// List returns all registered commands ordered by name
func (r *Registry) List() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	commands := make([]Command, 0, len(r.cmds))
	for _, cmd := range r.cmds {
		commands = append(commands, cmd)
	}
	sort.Slice(commands, func(i, j int) bool {
		return commands[i].Name() < commands[j].Name()
	})

	return commands
}

// Execute parses and executes a command. Usage errors print the usage of
// the command and exit with ExitUsage.
func (r *Registry) Execute(ctx context.Context, env *Env, writer io.Writer, args ...string) (int, error) {
	if len(args) == 0 {
		r.PrintUsage(writer)
		return ExitUsage, fmt.Errorf("no command specified: %w", ErrUsage)
	}

	if slices.Contains([]string{"help", "-h", "--help"}, args[0]) {
		if len(args) > 1 {
			cmd, err := r.Get(args[1])
			if err != nil {
				return ExitUsage, err
			}
			r.PrintCommandUsage(writer, cmd)
			return ExitOK, nil
		}
		r.PrintUsage(writer)
		return ExitOK, nil
	}

	cmd, err := r.Get(args[0])
	if err != nil {
		r.PrintUsage(writer)
		return ExitUsage, err
	}

	if slices.Contains(args[1:], "-h") || slices.Contains(args[1:], "--help") {
		r.PrintCommandUsage(writer, cmd)
		return ExitOK, nil
	}

	parsed, err := NewParser(cmd.GetFlags()).Parse(args[1:])
	if err != nil {
		r.PrintCommandUsage(writer, cmd)
		return ExitUsage, err
	}

	code, err := cmd.Execute(ctx, env, parsed, writer)
	if err != nil && errors.Is(err, ErrUsage) {
		r.PrintCommandUsage(writer, cmd)
		return ExitUsage, err
	}

	return code, err
}

// PrintUsage writes an overview of all registered commands.
func (r *Registry) PrintUsage(writer io.Writer) {
	fmt.Fprintf(writer, "Usage: %s <command> [arguments]\n\nCommands:\n", r.name)
	for _, cmd := range r.List() {
		fmt.Fprintf(writer, "  %-8s %s\n", cmd.Name(), cmd.Description())
	}
	fmt.Fprintf(writer, "\nRun '%s help <command>' for details.\n", r.name)
}

// PrintCommandUsage writes the usage and flags of cmd.
func (r *Registry) PrintCommandUsage(writer io.Writer, cmd Command) {
	fmt.Fprintf(writer, "Usage: %s %s\n", r.name, cmd.Usage())
	if description := cmd.Description(); description != "" {
		fmt.Fprintf(writer, "\n%s\n", description)
	}

	flagSet := cmd.GetFlags()
	if flagSet == nil || len(flagSet.Flags) == 0 {
		return
	}

	names := make([]string, 0, len(flagSet.Flags))
	for name := range flagSet.Flags {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(writer, "\nFlags:")
	for _, name := range names {
		flag := flagSet.Flags[name]

		option := "--" + flag.Name
		if flag.Short != "" {
			option = "-" + flag.Short + ", " + option
		}
		if flag.Type != "bool" {
			option += " <" + flag.Type + ">"
		}
		fmt.Fprintf(writer, "  %-26s %s\n", option, flag.Description)
	}
}
