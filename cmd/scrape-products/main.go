package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"catalogrecon/internal/catalog"
	"catalogrecon/internal/cli"
	"catalogrecon/internal/scrape"
)

type options struct {
	input           string
	progress        string
	output          string
	urlTemplate     string
	single          string
	limit           int
	delay           time.Duration
	timeout         time.Duration
	checkpointEvery int
	dryRun          bool
}

func main() {
	app := cli.NewApp()
	cli.Main(app, newCommand(app))
}

func newCommand(app *cli.App) *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:   "scrape-products",
		Short: "Fetch descriptions, images and prices from product pages, resuming from a progress file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, app, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.input, "input", "", "products to scrape (default $CATALOG_DATA_DIR/products.json)")
	f.StringVar(&o.progress, "progress", "", "progress file (default $CATALOG_DATA_DIR/scrape_progress.json)")
	f.StringVar(&o.output, "output", "", "scraped records as a product file (default $CATALOG_DATA_DIR/scraped_products.json)")
	f.StringVar(&o.urlTemplate, "url-template", "", "page URL with {name}, {slug}, {referenceId} or {id} placeholders")
	f.StringVar(&o.single, "single", "", "scrape one product given as JSON and print the result")
	f.IntVar(&o.limit, "limit", 0, "items handled by this run (0 = all remaining)")
	f.DurationVar(&o.delay, "delay", 0, "minimum delay between requests (default $SCRAPE_DELAY)")
	f.DurationVar(&o.timeout, "timeout", 0, "per-request timeout (default $SCRAPE_TIMEOUT)")
	f.IntVar(&o.checkpointEvery, "checkpoint-every", scrape.DefaultCheckpointEvery, "items between progress saves")
	f.BoolVar(&o.dryRun, "dry-run", false, "log the URLs that would be fetched")
	_ = cmd.MarkFlagRequired("url-template")
	return app.Command(cmd)
}

func run(cmd *cobra.Command, app *cli.App, o options) error {
	if o.limit < 0 {
		return errors.New("--limit must not be negative")
	}
	cfg := scrape.Config{
		URLTemplate:     o.urlTemplate,
		Delay:           o.delay,
		Timeout:         o.timeout,
		UserAgent:       app.Config.ScrapeUserAgent,
		CheckpointEvery: o.checkpointEvery,
		DryRun:          o.dryRun,
	}
	if !cmd.Flags().Changed("delay") {
		cfg.Delay = app.Config.ScrapeDelay
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = app.Config.ScrapeTimeout
	}
	out := cmd.OutOrStdout()

	if o.single != "" {
		var p catalog.Product
		if err := json.Unmarshal([]byte(o.single), &p); err != nil {
			return errors.Wrap(err, "--single")
		}
		s, err := scrape.New(cfg, app.Log)
		if err != nil {
			return err
		}
		res, failure, err := s.Fetch(cmd.Context(), &p)
		if err != nil {
			return err
		}
		var v any = res
		if failure != nil {
			v = failure
		}
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(b))
		return nil
	}

	items, err := catalog.LoadFile(app.DataPath(o.input, "products.json"))
	if err != nil {
		return err
	}
	cfg.ProgressPath = app.DataPath(o.progress, "scrape_progress.json")
	s, err := scrape.New(cfg, app.Log)
	if err != nil {
		return err
	}

	prog, runErr := s.Run(cmd.Context(), items, o.limit)
	fmt.Fprintf(out, "Completed: %d/%d\n", prog.Completed, len(items))
	fmt.Fprintf(out, "Scraped: %d\n", len(prog.Results))
	fmt.Fprintf(out, "Failed: %d\n", len(prog.Failed))
	if runErr != nil {
		return runErr
	}
	if o.dryRun {
		return nil
	}
	fmt.Fprintf(out, "Progress: %s\n", cfg.ProgressPath)

	output := app.DataPath(o.output, "scraped_products.json")
	if err := catalog.WriteFile(output, scrape.ToProducts(prog.Results)); err != nil {
		return err
	}
	fmt.Fprintf(out, "Results: %s\n", output)
	return nil
}
