package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/scoreslides/pkg/config"
	"github.com/matzehuels/scoreslides/pkg/dataset"
	"github.com/matzehuels/scoreslides/pkg/errors"
)

// importOpts holds the command-line flags for the import command.
type importOpts struct {
	to    string // target: sqlite or mongo
	out   string // SQLite file
	table string // SQLite table
}

// importCommand creates the import command, which copies a CSV file into
// SQLite or MongoDB so later runs can read from there.
func (c *CLI) importCommand() *cobra.Command {
	opts := importOpts{to: config.SourceSQLite, out: "scores.db"}

	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Copy a CSV dataset into SQLite or MongoDB",
		Long: `Read and validate a CSV file of score records and store it in a SQLite
table or a MongoDB collection, replacing previous contents. Point --source
and --data (or --mongo-uri) at the result to present it.`,
		Example: `  scoreslides import StudentsPerformance.csv --out scores.db
  scoreslides import StudentsPerformance.csv --to mongo --mongo-uri mongodb://localhost:27017`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runImport(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.to, "to", opts.to, "target: sqlite or mongo")
	cmd.Flags().StringVarP(&opts.out, "out", "o", opts.out, "SQLite database file")
	cmd.Flags().StringVar(&opts.table, "table", "", "SQLite table (default "+dataset.DefaultTable+")")

	return cmd
}

func (c *CLI) runImport(ctx context.Context, path string, opts importOpts) error {
	prog := newProgress(c.Logger)
	store, err := dataset.Load(ctx, dataset.CSVSource{Path: path})
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Read %d records from %s", store.Len(), path))

	spinner := newSpinnerWithContext(ctx, "Importing records...")
	spinner.Start()
	err = c.save(ctx, store, opts)
	spinner.Stop()
	if err != nil {
		return err
	}

	switch opts.to {
	case config.SourceMongo:
		printSuccess("Imported %d records into MongoDB", store.Len())
		printNextStep("Present them with", "scoreslides present --mongo-uri "+c.Config.Data.URI)
	default:
		printSuccess("Imported %d records", store.Len())
		printFile(opts.out)
		printNextStep("Present them with", "scoreslides present --data "+opts.out)
	}
	return nil
}

// save writes store to the import target.
func (c *CLI) save(ctx context.Context, store *dataset.Store, opts importOpts) error {
	switch opts.to {
	case config.SourceSQLite:
		return dataset.SaveSQLite(ctx, opts.out, opts.table, store.Records())
	case config.SourceMongo:
		d := c.Config.Data
		if d.URI == "" {
			return errors.New(errors.ErrCodeInvalidInput, "--mongo-uri or data.uri is required for --to mongo")
		}
		return dataset.SaveMongo(ctx, dataset.MongoSource{
			URI:        d.URI,
			Database:   d.Database,
			Collection: d.Collection,
			Timeout:    d.Timeout,
		}, store.Records())
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown import target %q (valid: sqlite, mongo)", opts.to)
	}
}
