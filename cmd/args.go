package cmd

import "fmt"

// CommandArgs contains parsed command arguments
type CommandArgs struct {
	// Positional arguments (command-specific)
	Args []string

	// Parsed flags
	Flags map[string]any

	// Raw unparsed arguments (for custom parsing)
	Raw []string
}

// CommandFlagSet defines the expected flags for a command
type CommandFlagSet struct {
	Flags map[string]*CommandFlag
}

// CommandFlag represents a single command-line flag
type CommandFlag struct {
	Name        string `json:"name"`              // e.g., "metadata"
	Short       string `json:"short"`             // Single-char shorthand (e.g., "m")
	Type        string `json:"type"`              // "string", "bool", "int"
	Default     any    `json:"default,omitempty"` // Default value
	Required    bool   `json:"required"`          // Must be provided
	Description string `json:"description"`       // Help text
}

// Arg returns the positional argument at index, or "" if there is none.
func (ca *CommandArgs) Arg(index int) string {
	if index < 0 || index >= len(ca.Args) {
		return ""
	}
	return ca.Args[index]
}

// Has reports whether a flag was given or has a default.
func (ca *CommandArgs) Has(name string) bool {
	_, exists := ca.Flags[name]
	return exists
}

func (ca *CommandArgs) GetString(name string) string {
	if value, ok := ca.Flags[name].(string); ok {
		return value
	}
	return ""
}

func (ca *CommandArgs) GetBool(name string) bool {
	if value, ok := ca.Flags[name].(bool); ok {
		return value
	}
	return false
}

func (ca *CommandArgs) GetInt(name string) int64 {
	switch value := ca.Flags[name].(type) {
	case int64:
		return value
	case int:
		return int64(value)
	}
	return 0
}

// ExpectArgs fails with ErrUsage unless the number of positional
// arguments lies within [min, max]. A negative max means unbounded.
func (ca *CommandArgs) ExpectArgs(min, max int) error {
	if len(ca.Args) < min {
		return fmt.Errorf("expected at least %d arguments, got %d: %w", min, len(ca.Args), ErrUsage)
	}
	if max >= 0 && len(ca.Args) > max {
		return fmt.Errorf("expected at most %d arguments, got %d: %w", max, len(ca.Args), ErrUsage)
	}
	return nil
}
