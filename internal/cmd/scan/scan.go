package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/CompassSecurity/leekscan/internal/cmd/common"
	"github.com/CompassSecurity/leekscan/pkg/config"
	"github.com/CompassSecurity/leekscan/pkg/format"
	"github.com/CompassSecurity/leekscan/pkg/logging"
	"github.com/CompassSecurity/leekscan/pkg/scan/history"
	"github.com/CompassSecurity/leekscan/pkg/scan/result"
	"github.com/CompassSecurity/leekscan/pkg/scan/runner"
	"github.com/CompassSecurity/leekscan/pkg/scan/tree"
	"github.com/CompassSecurity/leekscan/pkg/scanner"
	"github.com/CompassSecurity/leekscan/pkg/scanner/filter"
	"github.com/CompassSecurity/leekscan/pkg/scanner/types"
	"github.com/CompassSecurity/leekscan/pkg/system"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// ToolName is reported in JSON and SARIF output.
const ToolName = "leekscan"

type ScanOptions struct {
	config.CommonScanOptions
	History config.HistoryScanOptions
}

// DefaultScanOptions returns the flag defaults.
func DefaultScanOptions() ScanOptions {
	return ScanOptions{
		CommonScanOptions: config.DefaultCommonScanOptions(),
		History:           config.DefaultHistoryScanOptions(),
	}
}

var options = DefaultScanOptions()
var noExitCode bool

func NewScanCmd() *cobra.Command {
	scanCmd := &cobra.Command{
		Use:   "scan [paths...]",
		Short: "Scan files, directories or git history for secrets",
		Long: `Scan files and directories for secrets using the configured detection rules.

Directories are walked recursively. Excluded paths and binary files are skipped.
With --git-history the lines added by each commit of the repository containing
the path are scanned instead of the working tree.

### Exit codes
0 no secrets found, 1 secrets found (disable with --exit-code=false), 2 error.
		`,
		Example: `
# Scan the current directory
leekscan scan

# Scan several paths with custom rules and write a SARIF report
leekscan scan ./src ./deploy --rules my_rules.yaml --format sarif --output leekscan.sarif

# Scan the last 100 commits of the current branch
leekscan scan --git-history --max-commits 100

# Scan every ref, oldest commit first, as JSON
leekscan scan /path/to/repo --git-history --all --order oldest --format json
		`,
		Run: Scan,
	}

	flags := scanCmd.Flags()
	flags.StringVarP(&options.RulesFile, "rules", "r", "", "Path to a rules YAML file (embedded defaults when empty)")
	flags.StringVarP(&options.Format, "format", "f", options.Format, "Output format: "+strings.Join(formatNames(), ", "))
	flags.StringVarP(&options.Output, "output", "o", "", "Write the report to a file instead of stdout")
	flags.IntVarP(&options.MaxScanGoRoutines, "threads", "", options.MaxScanGoRoutines, "Number of concurrent scan workers")
	flags.StringVarP(&options.MaxFileSize, "max-file-size", "", options.MaxFileSize, "Skip files larger than this size, e.g. 500KB, 10MB. 0 (default) scans files of any size")
	flags.StringVarP(&options.Encoding, "encoding", "", options.Encoding, "Text encoding of scanned files (IANA name)")
	flags.BoolVarP(&options.Gitignore, "gitignore", "", false, "Also skip paths matched by the .gitignore of each scanned directory")
	flags.BoolVarP(&options.ExitCode, "exit-code", "", options.ExitCode, "Exit with code 1 when secrets are found")
	flags.BoolVarP(&noExitCode, "no-exit-code", "", false, "Always exit with code 0 when the scan completes")
	scanCmd.MarkFlagsMutuallyExclusive("exit-code", "no-exit-code")

	flags.BoolVarP(&options.History.Enabled, "git-history", "g", false, "Scan the git commit history instead of the working tree")
	flags.IntVarP(&options.History.MaxCommits, "max-commits", "", 0, "Maximum number of commits to scan, 0 scans all")
	flags.StringVarP(&options.History.Revision, "rev", "", options.History.Revision, "Revision to start the history walk from")
	flags.BoolVarP(&options.History.All, "all", "", false, "Walk the commits of all refs")
	flags.StringVarP(&options.History.Order, "order", "", options.History.Order, "Commit order: newest or oldest")

	return scanCmd
}

func formatNames() []string {
	names := make([]string, 0, len(result.Formats))
	for _, f := range result.Formats {
		names = append(names, string(f))
	}
	return names
}

func Scan(cmd *cobra.Command, args []string) {
	opts := options
	if noExitCode {
		opts.ExitCode = false
	}

	ctx, stop := system.CancelOnInterrupt(cmd.Context(), nil)
	defer stop()

	code, err := Execute(ctx, opts, args, cmd.OutOrStdout())
	if err != nil {
		log.Fatal().Err(err).Msg("Scan failed")
	}
	common.SetExitCode(code)
}

// Execute runs a scan of targets and renders the report. It returns the
// process exit code. A non-nil error is fatal.
func Execute(ctx context.Context, opts ScanOptions, targets []string, stdout io.Writer) (int, error) {
	if len(targets) == 0 {
		targets = []string{"."}
	}

	runOpts, err := buildRunnerOptions(opts, targets)
	if err != nil {
		return common.ExitFatal, err
	}
	reporter, err := result.New(opts.Format)
	if err != nil {
		return common.ExitFatal, err
	}
	if opts.Output != "" && result.Format(strings.ToLower(opts.Format)) == result.FormatConsole {
		return common.ExitFatal, errors.New("console output is written to the log, use --logfile or another --format with --output")
	}

	logging.RegisterStatusHook(runOpts.Progress.StatusEvent)
	defer logging.RegisterStatusHook(nil)

	var res *types.Result
	if opts.History.Enabled {
		res, err = scanHistory(ctx, opts, runOpts, targets)
	} else {
		res, err = scanTree(ctx, runOpts, targets)
	}
	if err != nil {
		return common.ExitFatal, err
	}

	if err := writeReport(reporter, res, opts, targets, stdout); err != nil {
		return common.ExitFatal, err
	}

	if res.Cancelled {
		log.Warn().Int("findings", len(res.Findings)).Msg("Scan was interrupted, the results are partial")
	}
	if opts.ExitCode && len(res.Findings) > 0 {
		return common.ExitFindings, nil
	}
	return common.ExitOK, nil
}

func buildRunnerOptions(opts ScanOptions, targets []string) (runner.Options, error) {
	if err := config.ValidateThreadCount(opts.MaxScanGoRoutines); err != nil {
		return runner.Options{}, err
	}
	maxFileSize, err := config.ParseMaxFileSize(opts.MaxFileSize)
	if err != nil {
		return runner.Options{}, err
	}
	enc, err := filter.LookupEncoding(opts.Encoding)
	if err != nil {
		return runner.Options{}, err
	}

	engine, err := scanner.NewEngine(opts.RulesFile, enc)
	if err != nil {
		return runner.Options{}, fmt.Errorf("failed loading rules: %w", err)
	}
	for _, warning := range engine.Warnings {
		log.Warn().Msg(warning)
	}

	if opts.Gitignore {
		for _, target := range targets {
			if info, err := os.Stat(target); err != nil || !info.IsDir() {
				continue
			}
			engine, err = engine.WithGitignore(target)
			if err != nil {
				return runner.Options{}, fmt.Errorf("failed reading .gitignore: %w", err)
			}
		}
	}

	log.Debug().
		Int("rules", engine.Rules.Len()).
		Strs("exclusions", engine.Filter.Policy().Patterns()).
		Str("encoding", enc.Name).
		Str("maxFileSize", format.HumanSize(maxFileSize)).
		Msg("Loaded configuration")

	return runner.Options{
		Rules:       engine.Rules,
		Filter:      engine.Filter,
		Workers:     opts.MaxScanGoRoutines,
		MaxFileSize: maxFileSize,
		Progress:    runner.NewProgress(),
	}, nil
}

func scanTree(ctx context.Context, runOpts runner.Options, targets []string) (*types.Result, error) {
	ts, err := tree.New(runOpts)
	if err != nil {
		return nil, err
	}
	log.Info().Strs("targets", targets).Int("threads", runOpts.WorkerCount()).Msg("Scanning files")
	return ts.Scan(ctx, targets)
}

func scanHistory(ctx context.Context, opts ScanOptions, runOpts runner.Options, targets []string) (*types.Result, error) {
	if len(targets) != 1 {
		return nil, fmt.Errorf("git history scans take exactly one repository path, got %d", len(targets))
	}
	if err := config.ValidateMaxCommits(opts.History.MaxCommits); err != nil {
		return nil, err
	}
	order, err := history.ParseOrder(opts.History.Order)
	if err != nil {
		return nil, err
	}

	hs, err := history.Open(targets[0], history.Options{
		Options:    runOpts,
		Revision:   opts.History.Revision,
		All:        opts.History.All,
		Order:      order,
		MaxCommits: opts.History.MaxCommits,
	})
	if err != nil {
		return nil, err
	}

	event := log.Info().Str("repository", targets[0]).Str("order", string(order)).Int("threads", runOpts.WorkerCount())
	if opts.History.All {
		event.Bool("allRefs", true)
	} else {
		event.Str("revision", opts.History.Revision)
	}
	if opts.History.MaxCommits > 0 {
		event.Int("maxCommits", opts.History.MaxCommits)
	}
	event.Msg("Scanning git history")

	return hs.Scan(ctx)
}

func writeReport(reporter result.Reporter, res *types.Result, opts ScanOptions, targets []string, stdout io.Writer) error {
	out := stdout
	if opts.Output != "" {
		// #nosec G304 - User-provided report path via --output flag
		f, err := os.OpenFile(opts.Output, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, format.FileUserReadWrite)
		if err != nil {
			return fmt.Errorf("failed creating report file: %w", err)
		}
		defer f.Close()
		out = f
	}

	meta := result.Meta{
		ToolName:    ToolName,
		ToolVersion: common.Version,
		Target:      strings.Join(targets, ", "),
		History:     opts.History.Enabled,
	}
	if err := reporter.Report(out, res, meta); err != nil {
		return fmt.Errorf("failed writing report: %w", err)
	}
	if opts.Output != "" {
		log.Info().Str("file", opts.Output).Msg("Report written")
	}
	return nil
}
