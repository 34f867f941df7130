package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/nethoundsh/rmfile/pkg/fileinfo"
	"github.com/nethoundsh/rmfile/pkg/filter"
	"github.com/nethoundsh/rmfile/pkg/hasher"
	outputpkg "github.com/nethoundsh/rmfile/pkg/output"
	"github.com/nethoundsh/rmfile/pkg/patterns"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config is everything the CLI collected for one run.
type Config struct {
	Location string

	// Explicit pattern files, one per filter kind. Empty means unset.
	Name  string
	IName string
	SHA1  string
	GCID  string

	// FromDir holds name.txt, iname.txt, sha1.txt and gcid.txt; whichever
	// exist are loaded.
	FromDir string

	DryRun bool
	Add    bool
	// Rate caps removals per second. Zero means unlimited.
	Rate float64

	Output       string
	ShowProgress bool
}

func (c Config) mode() string {
	if c.Add {
		return "add"
	}
	return "delete"
}

// Remover deletes a single file. Tests swap it to prove what was removed.
type Remover interface {
	Remove(path string) error
}

type osRemover struct{}

func (osRemover) Remove(path string) error { return os.Remove(path) }

type Runner struct {
	Remover Remover

	cfg       Config
	filters   *filter.Config
	logger    *zap.Logger
	out       io.Writer
	limiter   *rate.Limiter
	protected map[string]bool
}

// New loads every pattern file and validates the location. All fatal
// configuration errors surface here, before anything on disk changes.
func New(cfg Config, logger *zap.Logger, out io.Writer) (*Runner, error) {
	if cfg.Output == "" {
		cfg.Output = outputpkg.FormatText
	}

	location, err := expandPath(cfg.Location)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(location); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrPathNotFound, cfg.Location)
		}
		return nil, err
	}
	cfg.Location = location

	sets, err := LoadSets(cfg, logger)
	if err != nil {
		return nil, err
	}
	filters, err := filter.NewConfig(sets...)
	if err != nil {
		return nil, err
	}
	if cfg.Add && !filters.NeedsContent() {
		return nil, fmt.Errorf("%w: --add needs a sha1 or gcid pattern file", ErrNoActiveFilters)
	}

	r := &Runner{
		Remover:   osRemover{},
		cfg:       cfg,
		filters:   filters,
		logger:    logger,
		out:       out,
		protected: make(map[string]bool),
	}
	for _, s := range sets {
		if abs, err := filepath.Abs(s.Path); err == nil {
			r.protected[abs] = true
		}
		// The walker resolves a symlinked location, so protect the real path too.
		if real, err := filepath.EvalSymlinks(s.Path); err == nil {
			if abs, err := filepath.Abs(real); err == nil {
				r.protected[abs] = true
			}
		}
	}
	if cfg.Rate > 0 && !cfg.Add && !cfg.DryRun {
		r.limiter = rate.NewLimiter(rate.Limit(cfg.Rate), 1)
	}
	return r, nil
}

func expandPath(path string) (string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("expanding %s: %w", path, err)
	}
	return expanded, nil
}

// LoadSets reads the explicit pattern files and the --from-dir files.
// In add mode a missing explicit file is an empty set that will be
// created when new rows are written.
func LoadSets(cfg Config, logger *zap.Logger) ([]*filter.Set, error) {
	var sets []*filter.Set

	explicit := []struct {
		kind filter.Kind
		path string
	}{
		{filter.Name, cfg.Name},
		{filter.IName, cfg.IName},
		{filter.SHA1, cfg.SHA1},
		{filter.GCID, cfg.GCID},
	}
	for _, e := range explicit {
		if e.path == "" {
			continue
		}
		path, err := expandPath(e.path)
		if err != nil {
			return nil, err
		}
		lines, err := patterns.Load(path)
		switch {
		case errors.Is(err, fs.ErrNotExist) && cfg.Add:
			logger.Info("pattern file does not exist yet", zap.String("kind", string(e.kind)), zap.String("path", path))
		case errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("%w: %s pattern file %s", ErrPathNotFound, e.kind, path)
		case err != nil:
			return nil, err
		}
		sets = append(sets, newSet(e.kind, path, lines, logger))
	}

	if cfg.FromDir != "" {
		dir, err := expandPath(cfg.FromDir)
		if err != nil {
			return nil, err
		}
		fi, err := os.Stat(dir)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: pattern directory %s", ErrPathNotFound, dir)
		}
		if err != nil {
			return nil, err
		}
		if !fi.IsDir() {
			return nil, fmt.Errorf("pattern directory %s is not a directory", dir)
		}
		for _, kind := range filter.Kinds {
			path := filepath.Join(dir, string(kind)+".txt")
			lines, err := patterns.Load(path)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return nil, err
			}
			sets = append(sets, newSet(kind, path, lines, logger))
		}
	}

	return sets, nil
}

func newSet(kind filter.Kind, path string, lines []string, logger *zap.Logger) *filter.Set {
	if kind.Content() {
		invalid := 0
		for _, line := range lines {
			if !hasher.IsHexDigest(line, kind.Algo()) {
				invalid++
			}
		}
		if invalid > 0 {
			logger.Warn("pattern file has lines that are not digests",
				zap.String("kind", string(kind)), zap.String("path", path), zap.Int("lines", invalid))
		}
	}
	s := filter.NewSet(kind, path, lines)
	logger.Debug("loaded patterns", zap.String("kind", string(kind)), zap.String("path", path), zap.Int("count", s.Len()))
	return s
}

// Run walks the location once, acting on every candidate, then prints the
// summary. It returns early with ctx.Err() when interrupted; files removed
// up to that point stay removed and add-mode rows are not written.
func (r *Runner) Run(ctx context.Context) (outputpkg.Summary, error) {
	sum := outputpkg.Summary{
		Path:   r.cfg.Location,
		Mode:   r.cfg.mode(),
		DryRun: r.cfg.DryRun,
	}

	var progress *mpb.Progress
	var bar *mpb.Bar
	out := r.out

	visit := func(path string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		defer func() {
			if bar != nil {
				bar.Increment()
			}
		}()
		if abs, err := filepath.Abs(path); err == nil && r.protected[abs] {
			r.logger.Debug("skipping pattern file", zap.String("path", path))
			return nil
		}
		sum.Scanned++
		if r.cfg.Add {
			return r.collect(path, &sum)
		}
		return r.remove(ctx, out, path, &sum)
	}

	var err error
	if r.cfg.ShowProgress {
		files, collectErr := filter.Collect(r.cfg.Location, r.logger)
		if collectErr != nil {
			return sum, collectErr
		}
		if len(files) > 0 {
			progress, bar = initProgressBar(ctx, int64(len(files)))
			out = progress
		}
		for _, path := range files {
			if err = visit(path); err != nil {
				break
			}
		}
	} else {
		err = filter.Walk(r.cfg.Location, r.logger, visit)
	}

	if progress != nil {
		if err != nil {
			bar.Abort(false)
		}
		progress.Wait()
	}
	if err != nil {
		return sum, err
	}

	if r.cfg.Add {
		if err := r.writeAdded(); err != nil {
			return sum, err
		}
	}

	if err := outputpkg.PrintSummary(r.out, r.cfg.Output, sum); err != nil {
		return sum, err
	}
	return sum, nil
}

func (r *Runner) remove(ctx context.Context, out io.Writer, path string, sum *outputpkg.Summary) error {
	cand := r.filters.Candidate(path)
	ok, err := r.filters.Match(cand)
	if err != nil {
		r.skip(&FileError{Op: OpRead, Path: path, Err: err}, sum)
		return nil
	}
	if !ok {
		return nil
	}
	sum.Matched++

	meta, err := fileinfo.Stat(path)
	if err != nil {
		r.logger.Debug("cannot stat matched file", zap.String("path", path), zap.Error(err))
	}

	if r.cfg.DryRun {
		if meta != nil {
			sum.Freed += meta.Size
		}
		r.print(outputpkg.PrintRemove(out, r.cfg.Output, path, meta, true, false))
		return nil
	}

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	if err := r.Remover.Remove(path); err != nil {
		r.skip(&FileError{Op: OpRemove, Path: path, Err: err}, sum)
		return nil
	}
	sum.Removed++
	if meta != nil {
		sum.Freed += meta.Size
	}
	r.print(outputpkg.PrintRemove(out, r.cfg.Output, path, meta, false, true))
	return nil
}

func (r *Runner) collect(path string, sum *outputpkg.Summary) error {
	n, err := r.filters.Collect(r.filters.Candidate(path))
	if err != nil {
		r.skip(&FileError{Op: OpRead, Path: path, Err: err}, sum)
		return nil
	}
	sum.Added += n
	return nil
}

// writeAdded prints the new rows of every content set and, unless this is
// a dry run, rewrites each pattern file as the sorted union of old and new
// rows.
func (r *Runner) writeAdded() error {
	for _, s := range r.filters.ContentSets() {
		added := s.Added()
		if len(added) == 0 {
			continue
		}
		r.print(outputpkg.PrintAdded(r.out, r.cfg.Output, string(s.Kind), s.Path, added, r.cfg.DryRun))
		if r.cfg.DryRun {
			continue
		}
		if err := patterns.Save(s.Path, s.Rows()); err != nil {
			return err
		}
		r.logger.Debug("pattern file updated", zap.String("path", s.Path), zap.Int("added", len(added)))
	}
	return nil
}

func (r *Runner) skip(err *FileError, sum *outputpkg.Summary) {
	sum.Skipped++
	r.logger.Warn("skipping file", zap.String("op", err.Op), zap.String("path", err.Path), zap.Error(err.Err))
}

func (r *Runner) print(err error) {
	if err != nil {
		r.logger.Warn("writing output", zap.Error(err))
	}
}

func initProgressBar(ctx context.Context, total int64) (*mpb.Progress, *mpb.Bar) {
	p := mpb.NewWithContext(ctx, mpb.WithOutput(os.Stderr))
	b := p.New(total,
		mpb.BarStyle().Lbound("[").Filler("=").Tip(">").Padding(" ").Rbound("]"),
		mpb.PrependDecorators(decor.Name("Scanning ")),
		mpb.AppendDecorators(
			decor.CountersNoUnit(" %d / %d "),
			decor.AverageETA(decor.ET_STYLE_MMSS),
		),
		mpb.BarRemoveOnComplete(),
	)
	return p, b
}
