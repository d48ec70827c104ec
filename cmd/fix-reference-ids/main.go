package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"catalogrecon/internal/catalog"
	"catalogrecon/internal/cli"
	"catalogrecon/internal/pipeline"
	"catalogrecon/internal/refid"
)

type options struct {
	target    string
	base      int
	fillEmpty bool
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
		Use:   "fix-reference-ids",
		Short: "Reassign duplicate referenceId values so every record has a unique key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, app, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.target, "target", "", "product file to repair in place (default $CATALOG_DATA_DIR/products.json)")
	f.IntVar(&o.base, "base", refid.DefaultBase, "first referenceId handed out to reassigned records")
	f.BoolVar(&o.fillEmpty, "fill-empty", false, "also assign ids to records with an empty referenceId")
	f.StringVar(&o.report, "report", "", "report path (default <target>-refid-report.json)")
	f.StringVar(&o.suffix, "backup-suffix", "_backup", "suffix added to the backup file name")
	f.BoolVar(&o.dryRun, "dry-run", false, "report only; no backup and no write")
	return app.Command(cmd)
}

func run(cmd *cobra.Command, app *cli.App, o options) error {
	if o.base <= 0 {
		return errors.Errorf("--base must be positive, got %d", o.base)
	}
	var rep refid.Result
	res, err := pipeline.Run(pipeline.Options{
		Path:         app.DataPath(o.target, "products.json"),
		ReportPath:   o.report,
		ReportKind:   "refid",
		BackupSuffix: o.suffix,
		DryRun:       o.dryRun,
		Log:          app.Log,
	}, func(products []catalog.Product) (any, error) {
		rep = refid.Repair(products, refid.Options{Base: o.base, FillEmpty: o.fillEmpty})
		for _, r := range rep.Reassigned {
			app.Log.WithFields(logrus.Fields{
				"product": r.Name,
				"old":     r.Old,
				"new":     r.New,
			}).Debug("referenceId reassigned")
		}
		return rep, nil
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Duplicate groups: %d\n", len(rep.DuplicateGroups))
	fmt.Fprintf(out, "Reassigned: %d\n", len(rep.Reassigned))
	if o.fillEmpty {
		fmt.Fprintf(out, "Filled empty: %d\n", rep.Filled)
	}
	cli.PrintArtifacts(out, res)
	return nil
}
