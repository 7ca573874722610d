package builtin

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/mwantia/fsdb"
	"github.com/mwantia/fsdb/cmd"
	"github.com/mwantia/fsdb/data"
	"github.com/mwantia/fsdb/importer"
)

type ImportCommand struct {
}

// Name returns the command identifier
func (ic *ImportCommand) Name() string {
	return "import"
}

// Description returns human-readable help text
func (ic *ImportCommand) Description() string {
	return "Imports the files of a folder as new fileset into a scan"
}

// Usage returns a usage string for help
func (ic *ImportCommand) Usage() string {
	return "import [-m file | -j text] [-f fileset] [--init] <folder> <scan-path>"
}

// Execute runs the command with parsed arguments
// Returns exit code (0 = success) and error message
func (ic *ImportCommand) Execute(ctx context.Context, env *cmd.Env, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	if err := args.ExpectArgs(2, 2); err != nil {
		return cmd.ExitUsage, err
	}
	if args.Has("metadata") && args.Has("json") {
		return cmd.ExitUsage, fmt.Errorf("--metadata and --json cannot be combined: %w", cmd.ErrUsage)
	}

	metadata, err := ic.loadMetadata(args)
	if err != nil {
		return cmd.ExitFailure, err
	}

	source := args.Arg(0)
	catalog, scanID := resolveScanPath(env, args.Arg(1))

	var opts []fsdb.DatabaseOption
	if args.GetBool("init") {
		opts = append(opts, fsdb.WithInitialize())
	}

	db, err := openDatabase(ctx, env, catalog, opts...)
	if err != nil {
		return cmd.ExitFailure, err
	}
	defer closeDatabase(ctx, env, db)

	im := importer.NewImporter(db, loggerOf(env).Named("import"))
	result, err := im.ImportFolder(ctx, &importer.Request{
		Source:    source,
		ScanID:    scanID,
		FilesetID: args.GetString("fileset"),
		Metadata:  metadata,
	})
	if err != nil {
		return cmd.ExitFailure, err
	}

	fmt.Fprintf(writer, "Imported %d files into '%s/%s'\n", len(result.Files), result.ScanID, result.FilesetID)
	for _, name := range result.Skipped {
		fmt.Fprintf(writer, "Skipped '%s'\n", name)
	}

	return cmd.ExitOK, nil
}

// GetFlags returns the flag set for this command
func (ic *ImportCommand) GetFlags() *cmd.CommandFlagSet {
	return &cmd.CommandFlagSet{
		Flags: map[string]*cmd.CommandFlag{
			"metadata": {
				Name:        "metadata",
				Short:       "m",
				Type:        "string",
				Description: "JSON or TOML file with fileset metadata",
			},
			"json": {
				Name:        "json",
				Short:       "j",
				Type:        "string",
				Description: "Inline fileset metadata as JSON or TOML",
			},
			"fileset": {
				Name:        "fileset",
				Short:       "f",
				Type:        "string",
				Description: "Fileset ID (default: folder name)",
			},
			"init": {
				Name:        "init",
				Type:        "bool",
				Description: "Create the database if it does not exist",
			},
		},
	}
}

func (ic *ImportCommand) loadMetadata(args *cmd.CommandArgs) (data.Metadata, error) {
	if path := args.GetString("metadata"); path != "" {
		return importer.LoadMetadataFile(path)
	}
	if text := args.GetString("json"); text != "" {
		return importer.ParseMetadata(text)
	}
	return nil, nil
}

// resolveScanPath splits a scan path into database and scan ID. A
// configured catalog replaces the database part.
func resolveScanPath(env *cmd.Env, scanPath string) (string, string) {
	scanPath = filepath.Clean(scanPath)
	scanID := filepath.Base(scanPath)

	if catalog := configOf(env).Database.Catalog; catalog != "" {
		return catalog, scanID
	}
	return filepath.Dir(scanPath), scanID
}
