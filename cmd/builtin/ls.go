package builtin

import (
	"context"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mwantia/fsdb"
	"github.com/mwantia/fsdb/cmd"
	"github.com/mwantia/fsdb/data"
)

type LsCommand struct {
}

type lsEntity interface {
	ID() string
	Entry(ctx context.Context) (*data.Entry, error)
}

// Name returns the command identifier
func (ls *LsCommand) Name() string {
	return "ls"
}

// Description returns human-readable help text
func (ls *LsCommand) Description() string {
	return "Lists the scans of a database, the filesets of a scan or the files of a fileset"
}

// Usage returns a usage string for help
func (ls *LsCommand) Usage() string {
	return "ls [-l] <db> [scan [fileset]]"
}

// Execute runs the command with parsed arguments
// Returns exit code (0 = success) and error message
func (ls *LsCommand) Execute(ctx context.Context, env *cmd.Env, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	if err := args.ExpectArgs(1, 3); err != nil {
		return cmd.ExitUsage, err
	}

	db, err := openDatabase(ctx, env, args.Arg(0), fsdb.WithReadOnly())
	if err != nil {
		return cmd.ExitFailure, err
	}
	defer closeDatabase(ctx, env, db)

	entities, err := ls.list(ctx, db, args.Arg(1), args.Arg(2))
	if err != nil {
		return cmd.ExitFailure, err
	}

	if !args.GetBool("long") {
		for _, entity := range entities {
			io.WriteString(writer, entity.ID()+"\n")
		}
		return cmd.ExitOK, nil
	}

	tw := tabwriter.NewWriter(writer, 0, 4, 2, ' ', 0)
	for _, entity := range entities {
		entry, err := entity.Entry(ctx)
		if err != nil {
			return cmd.ExitFailure, err
		}
		tw.Write([]byte(formatEntry(entry)))
	}
	if err := tw.Flush(); err != nil {
		return cmd.ExitFailure, err
	}

	return cmd.ExitOK, nil
}

// GetFlags returns the flag set for this command
func (ls *LsCommand) GetFlags() *cmd.CommandFlagSet {
	return &cmd.CommandFlagSet{
		Flags: map[string]*cmd.CommandFlag{
			"long": {
				Name:        "long",
				Short:       "l",
				Type:        "bool",
				Description: "Show content details and modification time",
			},
		},
	}
}

func (ls *LsCommand) list(ctx context.Context, db *fsdb.DB, scanID, filesetID string) ([]lsEntity, error) {
	if scanID == "" {
		scans, err := db.Scans(ctx)
		if err != nil {
			return nil, err
		}
		return toEntities(scans), nil
	}

	scan, err := db.GetScan(ctx, scanID, false)
	if err != nil {
		return nil, err
	}

	if filesetID == "" {
		filesets, err := scan.Filesets(ctx)
		if err != nil {
			return nil, err
		}
		return toEntities(filesets), nil
	}

	fileset, err := scan.GetFileset(ctx, filesetID, false)
	if err != nil {
		return nil, err
	}

	files, err := fileset.Files(ctx)
	if err != nil {
		return nil, err
	}
	return toEntities(files), nil
}

func toEntities[T lsEntity](items []T) []lsEntity {
	entities := make([]lsEntity, 0, len(items))
	for _, item := range items {
		entities = append(entities, item)
	}
	return entities
}

func formatEntry(entry *data.Entry) string {
	modified := entry.ModifyTime.Format(time.DateTime)
	if entry.Kind != data.KindFile {
		return entry.Name() + "\t" + entry.Kind.String() + "\t" + modified + "\n"
	}

	filename := entry.Filename
	if filename == "" {
		filename = "-"
	}
	return entry.Name() + "\t" + filename + "\t" + humanize.IBytes(uint64(entry.Size)) + "\t" + string(entry.ContentType) + "\t" + modified + "\n"
}
