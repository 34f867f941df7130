package filter

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Walk calls fn for every regular file under root. If root is itself a
// regular file, fn is called exactly once with root. Directories, symlinks
// and special files are never passed to fn. Errors reading entries below
// root are logged and skipped; an error returned by fn stops the walk.
func Walk(root string, logger *zap.Logger, fn func(path string) error) error {
	fi, err := os.Lstat(root)
	if err != nil {
		return err
	}
	if fi.Mode()&fs.ModeSymlink != 0 {
		// A symlinked root directory is followed; a symlinked file is not a
		// candidate.
		target, err := os.Stat(root)
		if err != nil {
			return err
		}
		if !target.IsDir() {
			return fmt.Errorf("%s: symlink is not a candidate", root)
		}
		if root, err = filepath.EvalSymlinks(root); err != nil {
			return err
		}
		fi = target
	}
	if !fi.IsDir() {
		if !fi.Mode().IsRegular() {
			return fmt.Errorf("%s: not a regular file or directory", root)
		}
		return fn(root)
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			logger.Warn("skipping unreadable path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		return fn(path)
	})
}

// Collect returns every path Walk would visit.
func Collect(root string, logger *zap.Logger) ([]string, error) {
	var files []string
	err := Walk(root, logger, func(path string) error {
		files = append(files, path)
		return nil
	})
	return files, err
}
