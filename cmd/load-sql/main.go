package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"catalogrecon/internal/cli"
	"catalogrecon/internal/sqlgen"
)

type options struct {
	input  string
	driver string
	dsn    string
}

func main() {
	app := cli.NewApp()
	cli.Main(app, newCommand(app))
}

func newCommand(app *cli.App) *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:   "load-sql",
		Short: "Apply a generated SQL script to a database in one transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, app, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.input, "input", "", "SQL script to apply")
	f.StringVar(&o.driver, "driver", "", "postgres or sqlite (default $DATABASE_DRIVER)")
	f.StringVar(&o.dsn, "dsn", "", "connection string (default $DATABASE_URL)")
	_ = cmd.MarkFlagRequired("input")
	return app.Command(cmd)
}

func run(cmd *cobra.Command, app *cli.App, o options) error {
	driver, dsn := o.driver, o.dsn
	if driver == "" {
		driver = app.Config.DatabaseDriver
	}
	if dsn == "" {
		dsn = app.Config.DatabaseURL
	}
	if dsn == "" {
		return errors.New("no database: set --dsn or DATABASE_URL")
	}
	script, err := os.ReadFile(o.input)
	if err != nil {
		return errors.Wrap(err, "read script")
	}

	ctx := cmd.Context()
	db, err := sqlgen.Open(ctx, driver, dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := sqlgen.Apply(ctx, db, string(script), app.Log.WithField("driver", driver))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Statements applied: %d\n", n)
	return nil
}
