package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"catalogrecon/internal/catalog"
	"catalogrecon/internal/cli"
	"catalogrecon/internal/export"
)

type options struct {
	input   string
	outDir  string
	csv     string
	sqlite  string
	xlsx    string
	profile string
	table   string
	limit   int
	dedupe  bool
}

func main() {
	app := cli.NewApp()
	cli.Main(app, newCommand(app))
}

func newCommand(app *cli.App) *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:   "export-products",
		Short: "Write a product file as reference CSV, SQLite, XLSX and a markdown profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, app, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.input, "input", "", "product file, JSON array or JSON Lines (default $CATALOG_DATA_DIR/products.json)")
	f.StringVar(&o.outDir, "out-dir", "outputs", "output directory")
	f.StringVar(&o.csv, "csv", "", "reference CSV path (default <out-dir>/products_reference.csv)")
	f.StringVar(&o.sqlite, "sqlite", "", "SQLite path (default <out-dir>/products.sqlite)")
	f.StringVar(&o.xlsx, "xlsx", "", "XLSX path (default <out-dir>/products.xlsx)")
	f.StringVar(&o.profile, "profile", "", "profile markdown path (default <out-dir>/products_profile.md)")
	f.StringVar(&o.table, "table", "products", "SQLite table name")
	f.IntVar(&o.limit, "limit", 0, "JSON Lines only: stop after this many rows (0 = all)")
	f.BoolVar(&o.dedupe, "dedupe", true, "sort by id and keep the last record of each id")
	return app.Command(cmd)
}

func run(cmd *cobra.Command, app *cli.App, o options) error {
	input := app.DataPath(o.input, "products.json")
	outCSV := defaultPath(o.csv, o.outDir, "products_reference.csv")
	outSQLite := defaultPath(o.sqlite, o.outDir, "products.sqlite")
	outXLSX := defaultPath(o.xlsx, o.outDir, "products.xlsx")
	outProfile := defaultPath(o.profile, o.outDir, "products_profile.md")
	if err := os.MkdirAll(o.outDir, 0o755); err != nil {
		return errors.Wrap(err, "mkdir outputs")
	}

	var (
		products []catalog.Product
		st       catalog.LineStats
		err      error
	)
	if catalog.IsLinesFile(input) {
		products, st, err = catalog.LoadLines(input, o.limit)
	} else {
		products, err = catalog.LoadFile(input)
		st.SourceRows = len(products)
	}
	if err != nil {
		return err
	}

	dropped := 0
	if o.dedupe {
		products, dropped = export.Dedupe(products)
	}

	profile := export.BuildProfile(filepath.Base(input), products)
	profile += fmt.Sprintf("\n## Load\n- Source rows: %d\n- Invalid rows skipped: %d\n- Dropped duplicate id rows: %d\n",
		st.SourceRows, st.InvalidRows, dropped)
	if err := os.WriteFile(outProfile, []byte(profile), 0o644); err != nil {
		return errors.Wrap(err, "write profile")
	}

	rows := export.BuildRows(products, export.Columns)
	if err := export.WriteCSV(outCSV, export.Columns, rows); err != nil {
		return errors.Wrap(err, "write csv")
	}
	if err := export.WriteSQLite(outSQLite, o.table, export.Columns, rows); err != nil {
		return errors.Wrap(err, "write sqlite")
	}
	if err := export.WriteXLSX(outXLSX, export.Columns, rows); err != nil {
		return errors.Wrap(err, "write xlsx")
	}
	app.Log.WithFields(logrus.Fields{
		"source_rows": st.SourceRows,
		"invalid":     st.InvalidRows,
		"dropped":     dropped,
	}).Info("export finished")

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Rows read: %d\n", st.SourceRows)
	fmt.Fprintf(out, "Rows written: %d\n", len(rows))
	fmt.Fprintf(out, "Columns written: %d\n", len(export.Columns))
	fmt.Fprintf(out, "CSV: %s\n", outCSV)
	fmt.Fprintf(out, "SQLite: %s\n", outSQLite)
	fmt.Fprintf(out, "XLSX: %s\n", outXLSX)
	fmt.Fprintf(out, "Profile: %s\n", outProfile)
	return nil
}

func defaultPath(flagValue, dir, name string) string {
	if flagValue != "" {
		return flagValue
	}
	return filepath.Join(dir, name)
}
