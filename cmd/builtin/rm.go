package builtin

import (
	"context"
	"fmt"
	"io"

	"github.com/mwantia/fsdb/cmd"
)

type RmCommand struct {
}

// Name returns the command identifier
func (rm *RmCommand) Name() string {
	return "rm"
}

// Description returns human-readable help text
func (rm *RmCommand) Description() string {
	return "Deletes a fileset or a whole scan with all of its content"
}

// Usage returns a usage string for help
func (rm *RmCommand) Usage() string {
	return "rm <db> <scan> [fileset]"
}

// Execute runs the command with parsed arguments
// Returns exit code (0 = success) and error message
func (rm *RmCommand) Execute(ctx context.Context, env *cmd.Env, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	if err := args.ExpectArgs(2, 3); err != nil {
		return cmd.ExitUsage, err
	}

	db, err := openDatabase(ctx, env, args.Arg(0))
	if err != nil {
		return cmd.ExitFailure, err
	}
	defer closeDatabase(ctx, env, db)

	scanID, filesetID := args.Arg(1), args.Arg(2)
	if filesetID == "" {
		if err := db.DeleteScan(ctx, scanID); err != nil {
			return cmd.ExitFailure, err
		}

		fmt.Fprintf(writer, "Deleted scan '%s'\n", scanID)
		return cmd.ExitOK, nil
	}

	scan, err := db.GetScan(ctx, scanID, false)
	if err != nil {
		return cmd.ExitFailure, err
	}
	if err := scan.DeleteFileset(ctx, filesetID); err != nil {
		return cmd.ExitFailure, err
	}

	fmt.Fprintf(writer, "Deleted fileset '%s/%s'\n", scanID, filesetID)
	return cmd.ExitOK, nil
}

// GetFlags returns the flag set for this command (this is optional)
func (rm *RmCommand) GetFlags() *cmd.CommandFlagSet {
	return nil
}
