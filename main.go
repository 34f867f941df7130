// rmfile removes files whose name or content fingerprint is listed in
// pattern files. A file is removed only when it matches every pattern file
// given: exact name, case-insensitive name, SHA-1 or GCID.
//
// Pattern files are plain text with one entry per line. With --add, rmfile
// instead records the SHA-1/GCID of every scanned file into the given
// pattern files, which is how a list is seeded from an existing set of files.
//
// Removal is permanent; there is no trash. Use --dry-run to preview.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/nethoundsh/rmfile/internal/runner"
	"github.com/nethoundsh/rmfile/pkg/logging"
	outputpkg "github.com/nethoundsh/rmfile/pkg/output"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// version can be overridden at build time with:
//
//	go build -ldflags "-X main.version=v1.2.3"
var version = "dev"

type options struct {
	cfg        runner.Config
	noColor    bool
	noProgress bool
	debug      bool
}

func main() {
	os.Exit(run(os.Args[1:]))
}

// Exit codes: 0 = success (including no matches), 1 = error.

func run(args []string) int {
	// Cancelled on Ctrl+C so the walk stops between files.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	exitCode := 0
	cmd, err := newRootCmd(func(opts *options) {
		exitCode = execute(ctx, opts)
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	cmd.SetArgs(args)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		fmt.Fprintf(os.Stderr, "Run '%s --help' for usage.\n", cmd.Name())
		return 1
	}
	return exitCode
}

func newRootCmd(action func(*options)) (*cobra.Command, error) {
	opts := &options{}
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "rmfile [flags] LOCATION",
		Short: "Remove files matching name or content pattern lists",
		Long: `Remove files under LOCATION (a file or directory) that match every
pattern file given. Removal is permanent; use --dry-run to preview.

With --add, compute SHA-1/GCID of every scanned file and append the new
ones to the --sha1/--gcid pattern files instead of removing anything.`,
		Version:       version,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.cfg.Location = args[0]
			opts.cfg.FromDir = v.GetString("from-dir")
			action(opts)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.cfg.Name, "name", "", "load name patterns from `FILE`")
	flags.StringVar(&opts.cfg.IName, "iname", "", "same as --name, but case-insensitive")
	flags.StringVar(&opts.cfg.SHA1, "sha1", "", "load sha1 patterns from `FILE`")
	flags.StringVar(&opts.cfg.GCID, "gcid", "", "load gcid patterns from `FILE`")
	flags.String("from-dir", "", "load name.txt, iname.txt, sha1.txt and gcid.txt from `DIR` (env RMFILE_FROM_DIR)")
	flags.BoolVar(&opts.cfg.DryRun, "dry-run", false, "report matches without removing or writing anything")
	flags.BoolVar(&opts.cfg.Add, "add", false, "add digests of scanned files to the sha1/gcid pattern files")
	flags.Float64Var(&opts.cfg.Rate, "rate", 0, "max removals per second (0 = no limit)")
	flags.StringVarP(&opts.cfg.Output, "output", "o", outputpkg.FormatText, "output format: text or json")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	flags.BoolVar(&opts.noProgress, "no-progress", false, "disable progress bar")
	flags.BoolVar(&opts.debug, "debug", false, "verbose diagnostics on stderr")

	if err := bindEnv(v, flags, "from-dir"); err != nil {
		return nil, err
	}
	return cmd, nil
}

// bindEnv lets RMFILE_<KEY> supply a default for each flag in keys. An
// explicit flag still wins.
func bindEnv(v *viper.Viper, flags *pflag.FlagSet, keys ...string) error {
	v.SetEnvPrefix("rmfile")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for _, key := range keys {
		flag := flags.Lookup(key)
		if flag == nil {
			return fmt.Errorf("binding --%s: no such flag", key)
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("binding --%s: %w", key, err)
		}
	}
	return nil
}

func execute(ctx context.Context, opts *options) int {
	cfg := opts.cfg

	switch cfg.Output {
	case outputpkg.FormatText, outputpkg.FormatJSON:
	default:
		fmt.Fprintln(os.Stderr, "Error: invalid --output value; must be 'text' or 'json'")
		return 1
	}
	if cfg.Rate < 0 {
		fmt.Fprintln(os.Stderr, "Error: --rate cannot be negative")
		return 1
	}

	if cfg.Output == outputpkg.FormatJSON || opts.noColor {
		color.NoColor = true
	}

	// Progress bar: text output only, on a real terminal (not piped).
	cfg.ShowProgress = cfg.Output == outputpkg.FormatText && !opts.noProgress &&
		isatty.IsTerminal(os.Stderr.Fd())

	logger, err := logging.New(opts.debug, version)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Warning: logger setup failed:", err)
	}
	defer logging.Sync(logger)

	r, err := runner.New(cfg, logger, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if errors.Is(err, runner.ErrNoActiveFilters) {
			fmt.Fprintln(os.Stderr, "Give at least one of --name, --iname, --sha1, --gcid or --from-dir.")
		}
		return 1
	}

	if _, err := r.Run(ctx); err != nil {
		if ctx.Err() != nil {
			fmt.Fprintln(os.Stderr, "\nInterrupted")
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		return 1
	}
	return 0
}
