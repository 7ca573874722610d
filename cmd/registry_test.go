package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

type echoCommand struct{}

func (*echoCommand) Name() string        { return "echo" }
func (*echoCommand) Description() string { return "Prints its arguments" }
func (*echoCommand) Usage() string       { return "echo [-u] <text>..." }

func (*echoCommand) Execute(ctx context.Context, env *Env, args *CommandArgs, writer io.Writer) (int, error) {
	if err := args.ExpectArgs(1, -1); err != nil {
		return ExitUsage, err
	}

	text := strings.Join(args.Args, " ")
	if args.GetBool("upper") {
		text = strings.ToUpper(text)
	}
	if text == "FAIL" {
		return ExitFailure, fmt.Errorf("failed on request")
	}

	fmt.Fprintln(writer, text)
	return ExitOK, nil
}

func (*echoCommand) GetFlags() *CommandFlagSet {
	return &CommandFlagSet{
		Flags: map[string]*CommandFlag{
			"upper": {Name: "upper", Short: "u", Type: "bool", Description: "Print in upper case"},
		},
	}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry("fsdb")

	if err := r.Register(&echoCommand{}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register(&echoCommand{}); err == nil {
		t.Error("Expected duplicate registration to fail")
	}
	if err := r.Register(nil); err == nil {
		t.Error("Expected nil command to fail")
	}

	if _, err := r.Get("echo"); err != nil {
		t.Errorf("Get failed: %v", err)
	}
	if _, err := r.Get("missing"); !errors.Is(err, ErrUsage) {
		t.Errorf("Expected ErrUsage, got %v", err)
	}
	if len(r.List()) != 1 {
		t.Errorf("Expected 1 command, got %d", len(r.List()))
	}
}

func TestRegistry_Execute(t *testing.T) {
	r := NewRegistry("fsdb")
	if err := r.Register(&echoCommand{}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	tests := []struct {
		name     string
		args     []string
		code     int
		err      bool
		contains string
	}{
		{name: "Success", args: []string{"echo", "-u", "hello", "world"}, code: ExitOK, contains: "HELLO WORLD"},
		{name: "Failure", args: []string{"echo", "FAIL"}, code: ExitFailure, err: true},
		{name: "NoCommand", args: []string{}, code: ExitUsage, err: true, contains: "Commands:"},
		{name: "UnknownCommand", args: []string{"cat"}, code: ExitUsage, err: true, contains: "Commands:"},
		{name: "UnknownFlag", args: []string{"echo", "-x", "a"}, code: ExitUsage, err: true, contains: "Usage: fsdb echo"},
		{name: "MissingArgs", args: []string{"echo"}, code: ExitUsage, err: true, contains: "-u, --upper"},
		{name: "Help", args: []string{"help"}, code: ExitOK, contains: "Prints its arguments"},
		{name: "CommandHelp", args: []string{"help", "echo"}, code: ExitOK, contains: "Print in upper case"},
		{name: "HelpFlag", args: []string{"echo", "--help"}, code: ExitOK, contains: "Usage: fsdb echo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			code, err := r.Execute(t.Context(), &Env{}, &buf, tt.args...)
			if code != tt.code {
				t.Errorf("Expected exit code %d, got %d", tt.code, code)
			}
			if (err != nil) != tt.err {
				t.Errorf("Expected error %v, got %v", tt.err, err)
			}
			if !strings.Contains(buf.String(), tt.contains) {
				t.Errorf("Expected output to contain %q, got %q", tt.contains, buf.String())
			}
		})
	}
}
