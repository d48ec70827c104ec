// Package pipeline runs the load, backup, mutate, write and report sequence shared
// by every tool that rewrites a product file in place.
package pipeline

import (
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"catalogrecon/internal/backup"
	"catalogrecon/internal/catalog"
	"catalogrecon/internal/report"
)

var (
	ErrRead   = errors.New("read input")
	ErrBackup = errors.New("backup input")
	ErrWrite  = errors.New("write output")
)

// stageError tags a failure with the stage it happened in while keeping the cause.
type stageError struct {
	stage error
	err   error
}

func (e *stageError) Error() string        { return e.stage.Error() + ": " + e.err.Error() }
func (e *stageError) Unwrap() error        { return e.err }
func (e *stageError) Is(target error) bool { return target == e.stage }

type Options struct {
	Path         string
	ReportPath   string
	ReportKind   string
	BackupSuffix string
	DryRun       bool
	Now          time.Time
	Log          logrus.FieldLogger
}

// Result lists the artifacts a run produced. Backup and Output stay empty on dry runs.
type Result struct {
	Records int
	Backup  string
	Output  string
	Report  string
}

// Mutate edits products in place and returns the report payload for the run.
type Mutate func(products []catalog.Product) (any, error)

var writeProducts = catalog.WriteFile

func Run(opts Options, mutate Mutate) (Result, error) {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	if opts.ReportKind == "" {
		opts.ReportKind = "run"
	}
	if opts.ReportPath == "" {
		opts.ReportPath = report.DefaultPath(opts.Path, opts.ReportKind)
	}
	log := opts.Log.WithField("file", opts.Path)

	products, err := catalog.LoadFile(opts.Path)
	if err != nil {
		return Result{}, &stageError{ErrRead, err}
	}
	res := Result{Records: len(products)}
	log.WithField("records", len(products)).Info("loaded")

	if !opts.DryRun {
		res.Backup, err = backup.Create(opts.Path, opts.BackupSuffix, opts.Now)
		if err != nil {
			return res, &stageError{ErrBackup, err}
		}
		log.WithField("backup", res.Backup).Info("backup written")
	}

	payload, err := mutate(products)
	if err != nil {
		return res, errors.Wrap(err, "process records")
	}

	if opts.DryRun {
		log.Info("dry run: input left untouched")
	} else {
		if err := writeProducts(opts.Path, products); err != nil {
			if rerr := backup.Restore(res.Backup, opts.Path); rerr != nil {
				log.WithError(rerr).Error("restore from backup failed")
				err = errors.Wrapf(err, "restore also failed: %v", rerr)
			} else {
				log.WithField("backup", res.Backup).Warn("write failed, input restored from backup")
			}
			return res, &stageError{ErrWrite, err}
		}
		res.Output = opts.Path
		log.Info("updated file written")
	}

	if err := report.WriteJSON(opts.ReportPath, payload); err != nil {
		return res, err
	}
	res.Report = opts.ReportPath
	log.WithField("report", res.Report).Info("report written")
	return res, nil
}
