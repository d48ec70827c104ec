package main

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"catalogrecon/internal/catalog"
	"catalogrecon/internal/cli"
	"catalogrecon/internal/enrich"
	"catalogrecon/internal/matcher"
	"catalogrecon/internal/pipeline"
	"catalogrecon/internal/scrape"
)

type options struct {
	target    string
	reference string
	scraped   string
	key       string
	fields    []string
	report    string
	suffix    string
	dryRun    bool
}

func main() {
	app := cli.NewApp()
	cli.Main(app, newCommand(app))
}

func newCommand(app *cli.App) *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:   "enrich-products",
		Short: "Fill empty product fields from a matched reference dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, app, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.target, "target", "", "product file to enrich in place (default $CATALOG_DATA_DIR/products.json)")
	f.StringVar(&o.reference, "reference", "", "reference product file (default $CATALOG_DATA_DIR/lista.json)")
	f.StringVar(&o.scraped, "scraped", "", "scrape progress file whose results are appended to the reference records")
	f.StringVar(&o.key, "key", "referenceId", "match key: referenceId or name")
	f.StringSliceVar(&o.fields, "fields", enrich.DefaultFields, "fields to fill when empty")
	f.StringVar(&o.report, "report", "", "report path (default <target>-enrich-report.json)")
	f.StringVar(&o.suffix, "backup-suffix", "_backup", "suffix added to the backup file name")
	f.BoolVar(&o.dryRun, "dry-run", false, "report only; no backup and no write")
	return app.Command(cmd)
}

func run(cmd *cobra.Command, app *cli.App, o options) error {
	sel, err := matcher.ParseSelector(o.key)
	if err != nil {
		return err
	}
	for _, field := range o.fields {
		if !catalog.KnownField(field) {
			return errors.Errorf("unknown field %q", field)
		}
	}
	target := app.DataPath(o.target, "products.json")
	refPath := app.DataPath(o.reference, "lista.json")

	refs, err := catalog.LoadFile(refPath)
	if err != nil {
		return errors.Wrap(err, "load reference")
	}
	if o.scraped != "" {
		prog, err := scrape.LoadProgress(o.scraped)
		if err != nil {
			return err
		}
		refs = append(refs, scrape.ToProducts(prog.Results)...)
	}
	idx := matcher.NewIndex(refs, sel)
	app.Log.WithFields(logrus.Fields{
		"reference":  refPath,
		"keys":       idx.Len(),
		"duplicates": idx.Duplicates(),
		"keyless":    idx.Keyless(),
	}).Info("reference index built")

	var rep enrich.Report
	res, err := pipeline.Run(pipeline.Options{
		Path:         target,
		ReportPath:   o.report,
		ReportKind:   "enrich",
		BackupSuffix: o.suffix,
		DryRun:       o.dryRun,
		Log:          app.Log,
	}, func(products []catalog.Product) (any, error) {
		rep = enrich.Run(products, idx, enrich.New(o.fields), app.Log, time.Now())
		return rep, nil
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Products: %d\n", rep.TotalProducts)
	fmt.Fprintf(out, "Matched (%s): %d\n", rep.MatchKey, rep.TotalMatched)
	fmt.Fprintf(out, "Enriched: %d\n", rep.TotalEnriched)
	fmt.Fprintf(out, "Skipped (nothing to fill): %d\n", rep.TotalSkipped)
	fmt.Fprintf(out, "Not matched: %d\n", rep.TotalNotMatched)
	for _, field := range o.fields {
		fmt.Fprintf(out, "  %s: %d\n", field, rep.FieldStatistics[field])
	}
	cli.PrintArtifacts(out, res)
	return nil
}
