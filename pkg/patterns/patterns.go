// Package patterns reads and writes pattern files: plain UTF-8 text with
// one pattern per line. Blank lines are ignored and there are no comments.
package patterns

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const bom = "\ufeff"

// Load returns the non-empty lines of path with surrounding whitespace
// trimmed. A missing file yields an error wrapping fs.ErrNotExist.
func Load(path string) (_ []string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pattern file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing pattern file %s: %w", path, closeErr)
		}
	}()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			line = strings.TrimPrefix(line, bom)
			first = false
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading pattern file %s: %w", path, err)
	}
	return lines, nil
}

// Save replaces path with rows, one per line. It writes to a temp file in
// the same directory first and renames it over path, so readers never see
// a half-written file.
func Save(path string, rows []string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating pattern directory: %w", err)
	}

	var b strings.Builder
	for _, row := range rows {
		b.WriteString(row)
		b.WriteByte('\n')
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("writing pattern file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(b.String()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing pattern file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing pattern file: %w", err)
	}
	if fi, err := os.Stat(path); err == nil {
		_ = os.Chmod(tmpName, fi.Mode().Perm())
	} else {
		_ = os.Chmod(tmpName, 0o644)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("committing pattern file: %w", err)
	}
	return nil
}
