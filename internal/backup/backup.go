// Package backup snapshots a data file before it is rewritten.
package backup

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultSuffix = "_backup"
	stampLayout   = "20060102-150405"

	// maxCollisions bounds the -N counter tried when a backup name is taken.
	maxCollisions = 1000
)

// Name returns the sibling path a backup of path would be written to.
func Name(path, suffix string, now time.Time) string {
	dir, base := filepath.Split(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return filepath.Join(dir, stem+suffix+"_"+now.Format(stampLayout)+ext)
}

// Create copies path byte-for-byte to its backup name and returns that name. An
// existing backup is never overwritten: when the name is taken, "-2", "-3", ... is
// appended to the stamp.
func Create(path, suffix string, now time.Time) (string, error) {
	if suffix == "" {
		suffix = DefaultSuffix
	}
	first := Name(path, suffix, now)
	ext := filepath.Ext(first)
	for n := 1; n <= maxCollisions; n++ {
		dst := first
		if n > 1 {
			dst = strings.TrimSuffix(first, ext) + "-" + strconv.Itoa(n) + ext
		}
		err := copyFile(path, dst, os.O_EXCL)
		if err == nil {
			return dst, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", errors.Wrapf(err, "backup %s", path)
		}
	}
	return "", errors.Errorf("backup %s: %d backups already exist for %s", path, maxCollisions, now.Format(stampLayout))
}

// Restore puts the bytes of backup back at path.
func Restore(backup, path string) error {
	if err := copyFile(backup, path, os.O_TRUNC); err != nil {
		return errors.Wrapf(err, "restore %s from %s", path, backup)
	}
	return nil
}

// copyFile copies src to dst; mode is os.O_EXCL to refuse an existing dst or
// os.O_TRUNC to replace it.
func copyFile(src, dst string, mode int) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|mode, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
