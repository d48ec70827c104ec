package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"catalogrecon/internal/catalog"
	"catalogrecon/internal/cli"
	"catalogrecon/internal/sqlgen"
)

type options struct {
	input  string
	output string
	table  string
}

func main() {
	app := cli.NewApp()
	cli.Main(app, newCommand(app))
}

func newCommand(app *cli.App) *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:   "sql-to-json",
		Short: "Rebuild a product file from the INSERT statements of a SQL script",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, app, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.input, "input", "", "SQL script to read")
	f.StringVar(&o.output, "output", "", "product file to write (default <input>.json)")
	f.StringVar(&o.table, "table", "", "only read inserts into this table")
	_ = cmd.MarkFlagRequired("input")
	return app.Command(cmd)
}

func run(cmd *cobra.Command, app *cli.App, o options) error {
	b, err := os.ReadFile(o.input)
	if err != nil {
		return errors.Wrap(err, "read script")
	}
	inserts, err := sqlgen.ParseScript(string(b), o.table)
	if err != nil {
		return err
	}
	if len(inserts) == 0 {
		return errors.New("no INSERT statements found")
	}
	products, err := sqlgen.ToProducts(inserts, sqlgen.DefaultColumns)
	if err != nil {
		return err
	}

	output := o.output
	if output == "" {
		output = strings.TrimSuffix(o.input, filepath.Ext(o.input)) + ".json"
	}
	if err := catalog.WriteFile(output, products); err != nil {
		return err
	}
	app.Log.WithField("statements", len(inserts)).Debug("inserts parsed")

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Statements: %d\n", len(inserts))
	fmt.Fprintf(out, "Records: %d\n", len(products))
	fmt.Fprintf(out, "JSON: %s\n", output)
	return nil
}
