package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/mwantia/fsdb"
	"github.com/mwantia/fsdb/cmd"
	"github.com/mwantia/fsdb/data"
)

type MetaCommand struct {
}

type metaEntity interface {
	Key() string
	Metadata(ctx context.Context) (data.Metadata, error)
}

// Name returns the command identifier
func (mc *MetaCommand) Name() string {
	return "meta"
}

// Description returns human-readable help text
func (mc *MetaCommand) Description() string {
	return "Prints the metadata of a scan, fileset or file as JSON"
}

// Usage returns a usage string for help
func (mc *MetaCommand) Usage() string {
	return "meta [-k key] <db> <scan> [fileset [file]]"
}

// Execute runs the command with parsed arguments
// Returns exit code (0 = success) and error message
func (mc *MetaCommand) Execute(ctx context.Context, env *cmd.Env, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	if err := args.ExpectArgs(2, 4); err != nil {
		return cmd.ExitUsage, err
	}

	db, err := openDatabase(ctx, env, args.Arg(0), fsdb.WithReadOnly())
	if err != nil {
		return cmd.ExitFailure, err
	}
	defer closeDatabase(ctx, env, db)

	entity, err := mc.resolve(ctx, db, args.Arg(1), args.Arg(2), args.Arg(3))
	if err != nil {
		return cmd.ExitFailure, err
	}

	metadata, err := entity.Metadata(ctx)
	if err != nil {
		return cmd.ExitFailure, err
	}

	var value any = metadata
	if key := args.GetString("key"); key != "" {
		v, exists := metadata.Get(key)
		if !exists {
			return cmd.ExitFailure, fmt.Errorf("metadata key '%s' is not set on '%s': %w", key, entity.Key(), data.ErrNotExist)
		}
		value = v
	}

	buf, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return cmd.ExitFailure, err
	}
	fmt.Fprintf(writer, "%s\n", buf)

	return cmd.ExitOK, nil
}

// GetFlags returns the flag set for this command
func (mc *MetaCommand) GetFlags() *cmd.CommandFlagSet {
	return &cmd.CommandFlagSet{
		Flags: map[string]*cmd.CommandFlag{
			"key": {
				Name:        "key",
				Short:       "k",
				Type:        "string",
				Description: "Print a single metadata value",
			},
		},
	}
}

func (mc *MetaCommand) resolve(ctx context.Context, db *fsdb.DB, scanID, filesetID, fileID string) (metaEntity, error) {
	scan, err := db.GetScan(ctx, scanID, false)
	if err != nil {
		return nil, err
	}
	if filesetID == "" {
		return scan, nil
	}

	fileset, err := scan.GetFileset(ctx, filesetID, false)
	if err != nil {
		return nil, err
	}
	if fileID == "" {
		return fileset, nil
	}

	return fileset.GetFile(ctx, fileID, false)
}
