package scrape

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Progress is the on-disk checkpoint of a scrape run. Completed counts items of the
// input list handled so far, successful or not.
type Progress struct {
	Completed int       `json:"completed"`
	Results   []Result  `json:"results"`
	Failed    []Failure `json:"failed"`
	UpdatedAt string    `json:"updatedAt"`
}

// LoadProgress returns an empty progress when path does not exist yet.
func LoadProgress(path string) (Progress, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Progress{Results: []Result{}, Failed: []Failure{}}, nil
	}
	if err != nil {
		return Progress{}, errors.Wrapf(err, "read progress %s", path)
	}
	var p Progress
	if err := json.Unmarshal(b, &p); err != nil {
		return Progress{}, errors.Wrapf(err, "parse progress %s", path)
	}
	if p.Completed < 0 {
		return Progress{}, errors.Errorf("progress %s: negative completed count", path)
	}
	if p.Results == nil {
		p.Results = []Result{}
	}
	if p.Failed == nil {
		p.Failed = []Failure{}
	}
	return p, nil
}

func SaveProgress(path string, p Progress) error {
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode progress")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "mkdir progress dir")
	}
	tmp, err := os.CreateTemp(dir, ".progress-*")
	if err != nil {
		return errors.Wrap(err, "create progress temp")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write progress")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close progress")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrap(err, "replace progress")
	}
	return nil
}
