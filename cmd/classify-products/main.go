package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"catalogrecon/internal/catalog"
	"catalogrecon/internal/classify"
	"catalogrecon/internal/cli"
	"catalogrecon/internal/pipeline"
)

type options struct {
	target string
	rules  string
	report string
	suffix string
	dryRun bool
}

func main() {
	app := cli.NewApp()
	cli.Main(app, newCommand(app))
}

func newCommand(app *cli.App) *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:   "classify-products",
		Short: "Derive category and brand from product names using keyword rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, app, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.target, "target", "", "product file to classify in place (default $CATALOG_DATA_DIR/products.json)")
	f.StringVar(&o.rules, "rules", "", "YAML rule file (default: built-in rules)")
	f.StringVar(&o.report, "report", "", "report path (default <target>-classify-report.json)")
	f.StringVar(&o.suffix, "backup-suffix", "_backup", "suffix added to the backup file name")
	f.BoolVar(&o.dryRun, "dry-run", false, "report only; no backup and no write")
	return app.Command(cmd)
}

func run(cmd *cobra.Command, app *cli.App, o options) error {
	cfg, err := classify.LoadConfig(o.rules)
	if err != nil {
		return err
	}
	c := classify.New(cfg)

	var rep classify.Report
	res, err := pipeline.Run(pipeline.Options{
		Path:         app.DataPath(o.target, "products.json"),
		ReportPath:   o.report,
		ReportKind:   "classify",
		BackupSuffix: o.suffix,
		DryRun:       o.dryRun,
		Log:          app.Log,
	}, func(products []catalog.Product) (any, error) {
		rep = c.Run(products, app.Log, time.Now())
		return rep, nil
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Products: %d\n", rep.TotalProducts)
	fmt.Fprintf(out, "Classified: %d\n", rep.TotalClassified)
	fmt.Fprintf(out, "Unchanged: %d\n", rep.TotalUnchanged)
	fmt.Fprintf(out, "Category changed: %d\n", rep.CategoryChanged)
	fmt.Fprintf(out, "Brand changed: %d\n", rep.BrandChanged)
	keywords := make([]string, 0, len(rep.ByKeyword))
	for k := range rep.ByKeyword {
		keywords = append(keywords, k)
	}
	sort.Strings(keywords)
	for _, k := range keywords {
		fmt.Fprintf(out, "  %s: %d\n", k, rep.ByKeyword[k])
	}
	cli.PrintArtifacts(out, res)
	return nil
}
