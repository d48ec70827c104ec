package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"catalogrecon/internal/catalog"
	"catalogrecon/internal/cli"
	"catalogrecon/internal/sqlgen"
)

type options struct {
	input      string
	output     string
	table      string
	key        string
	columns    []string
	batchSize  int
	onConflict string
	recreate   bool
}

func main() {
	app := cli.NewApp()
	cli.Main(app, newCommand(app))
}

func newCommand(app *cli.App) *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:   "generate-sql",
		Short: "Render a product file as a PostgreSQL script of batched upserts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, app, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.input, "input", "", "product file (default $CATALOG_DATA_DIR/products.json)")
	f.StringVar(&o.output, "output", "", "SQL output path (\"-\" for stdout; default <input>.sql)")
	f.StringVar(&o.table, "table", "products", "target table")
	f.StringVar(&o.key, "key", "id", "conflict key column")
	f.StringSliceVar(&o.columns, "columns", nil, "columns to emit (default: all known columns)")
	f.IntVar(&o.batchSize, "batch-size", sqlgen.DefaultBatchSize, "rows per INSERT statement")
	f.StringVar(&o.onConflict, "on-conflict", string(sqlgen.ConflictUpdate), "update or nothing")
	f.BoolVar(&o.recreate, "recreate", false, "drop and recreate the table before inserting")
	return app.Command(cmd)
}

func run(cmd *cobra.Command, app *cli.App, o options) error {
	input := app.DataPath(o.input, "products.json")
	products, err := catalog.LoadFile(input)
	if err != nil {
		return err
	}

	g := sqlgen.New(o.table)
	if len(o.columns) > 0 {
		if g.Columns, err = sqlgen.SelectColumns(o.columns); err != nil {
			return err
		}
	}
	g.Key = o.key
	g.BatchSize = o.batchSize
	g.Conflict = sqlgen.Conflict(o.onConflict)
	if o.recreate {
		g.Mode = sqlgen.ModeRecreate
	}

	output := o.output
	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + ".sql"
	}
	var w io.Writer = cmd.OutOrStdout()
	var file *os.File
	if output != "-" {
		if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
			return err
		}
		if file, err = os.Create(output); err != nil {
			return errors.Wrap(err, "create output")
		}
		defer file.Close()
		w = file
	}

	st, err := g.Write(w, products)
	if err != nil {
		return err
	}
	if file != nil {
		if err := file.Close(); err != nil {
			return errors.Wrap(err, "close output")
		}
	}
	app.Log.WithFields(logrus.Fields{
		"rows":          st.Rows,
		"batches":       st.Batches,
		"generated_ids": st.GeneratedIDs,
		"duplicates":    st.Duplicates,
	}).Info("sql generated")
	if output == "-" {
		return nil
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Rows: %d\n", st.Rows)
	fmt.Fprintf(out, "Batches: %d\n", st.Batches)
	if st.GeneratedIDs > 0 {
		fmt.Fprintf(out, "Generated ids: %d\n", st.GeneratedIDs)
	}
	if st.Duplicates > 0 {
		fmt.Fprintf(out, "Dropped duplicate keys: %d\n", st.Duplicates)
	}
	fmt.Fprintf(out, "SQL: %s\n", output)
	return nil
}
