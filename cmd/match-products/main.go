package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"catalogrecon/internal/catalog"
	"catalogrecon/internal/cli"
	"catalogrecon/internal/matcher"
	"catalogrecon/internal/report"
)

var defaultAgreementFields = []string{"name", "category", "brand_name", "price"}

type selectorReport struct {
	Coverage  matcher.Coverage         `json:"coverage"`
	Agreement []matcher.FieldAgreement `json:"field_agreement"`
}

type reportPayload struct {
	Timestamp      string           `json:"timestamp"`
	Target         string           `json:"target"`
	Reference      string           `json:"reference"`
	Status         string           `json:"status"`
	RecommendedKey string           `json:"recommended_key,omitempty"`
	Selectors      []selectorReport `json:"selectors"`
}

type options struct {
	target     string
	reference  string
	keys       []string
	fields     []string
	outputJSON string
	sampleSize int
}

func main() {
	app := cli.NewApp()
	cli.Main(app, newCommand(app))
}

func newCommand(app *cli.App) *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:   "match-products",
		Short: "Report how well a reference dataset covers a product file under each match key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, app, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.target, "target", "", "product file (default $CATALOG_DATA_DIR/products.json)")
	f.StringVar(&o.reference, "reference", "", "reference file (default $CATALOG_DATA_DIR/lista.json)")
	f.StringSliceVar(&o.keys, "keys", []string{"referenceId", "name"}, "match keys to evaluate")
	f.StringSliceVar(&o.fields, "fields", defaultAgreementFields, "fields compared across matched pairs")
	f.StringVar(&o.outputJSON, "output-json", "", "write the JSON report here instead of stdout")
	f.IntVar(&o.sampleSize, "sample-size", report.SampleSize, "unmatched records listed per key")
	return app.Command(cmd)
}

func run(cmd *cobra.Command, app *cli.App, o options) error {
	if o.sampleSize < 0 {
		return errors.New("--sample-size must not be negative")
	}
	target := app.DataPath(o.target, "products.json")
	refPath := app.DataPath(o.reference, "lista.json")
	rep, err := compareFiles(target, refPath, o.keys, o.fields, o.sampleSize, time.Now())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if o.outputJSON == "" {
		payload, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(payload))
		return nil
	}
	if err := report.WriteJSON(o.outputJSON, rep); err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote JSON report: %s\n", o.outputJSON)
	fmt.Fprintf(out, "Status: %s\n", rep.Status)
	for _, s := range rep.Selectors {
		fmt.Fprintf(out, "Coverage by %s (target/reference): %.6f / %.6f\n", s.Coverage.MatchKey, s.Coverage.CoverageTarget, s.Coverage.CoverageReference)
	}
	if rep.RecommendedKey != "" {
		fmt.Fprintf(out, "Recommended key: %s\n", rep.RecommendedKey)
	}
	return nil
}

func compareFiles(targetPath, refPath string, keys, fields []string, sampleSize int, now time.Time) (reportPayload, error) {
	for _, f := range fields {
		if !catalog.KnownField(f) {
			return reportPayload{}, errors.Errorf("unknown field %q", f)
		}
	}
	selectors := make([]matcher.Selector, 0, len(keys))
	for _, k := range keys {
		sel, err := matcher.ParseSelector(k)
		if err != nil {
			return reportPayload{}, err
		}
		selectors = append(selectors, sel)
	}
	if len(selectors) == 0 {
		return reportPayload{}, errors.New("at least one match key is required")
	}

	targets, err := catalog.LoadFile(targetPath)
	if err != nil {
		return reportPayload{}, errors.Wrap(err, "load target")
	}
	refs, err := catalog.LoadFile(refPath)
	if err != nil {
		return reportPayload{}, errors.Wrap(err, "load reference")
	}

	rep := reportPayload{
		Timestamp: report.Timestamp(now),
		Target:    targetPath,
		Reference: refPath,
	}
	best := -1
	for i, sel := range selectors {
		idx := matcher.NewIndex(refs, sel)
		rep.Selectors = append(rep.Selectors, selectorReport{
			Coverage:  matcher.MeasureCoverage(targets, refs, sel, sampleSize),
			Agreement: matcher.MeasureAgreement(targets, idx, fields),
		})
		if rep.Selectors[i].Coverage.MatchedRows > 0 && (best < 0 || rep.Selectors[i].Coverage.MatchedRows > rep.Selectors[best].Coverage.MatchedRows) {
			best = i
		}
	}
	switch {
	case best < 0:
		rep.Status = "no_key_match"
	case rep.Selectors[best].Coverage.UnmatchedRows == 0:
		rep.Status = "ok"
	default:
		rep.Status = "partial_key_match"
	}
	if best >= 0 {
		rep.RecommendedKey = rep.Selectors[best].Coverage.MatchKey
	}
	return rep, nil
}
