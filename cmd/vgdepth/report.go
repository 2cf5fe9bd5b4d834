package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/vgkit/vgdepth/pkg/output"
	"github.com/vgkit/vgdepth/pkg/store"
	"github.com/vgkit/vgdepth/pkg/types"
	"golang.org/x/term"
)

var (
	reportDB     string
	reportRun    string
	reportList   bool
	reportFormat string
	reportColor  string
)

// styles holds color formatters for human output
type styles struct {
	heading     *color.Color
	id          *color.Color
	label       *color.Color
	value       *color.Color
	unreachable *color.Color
	metadata    *color.Color
}

// newStyles creates color formatters for report output
// enabled=false respects --color=never and the NO_COLOR env var
func newStyles(enabled bool) *styles {
	s := &styles{
		heading:     color.New(color.Bold, color.FgHiWhite),
		id:          color.New(color.FgHiGreen),
		label:       color.New(color.Bold, color.FgHiBlue),
		value:       color.New(color.FgYellow),
		unreachable: color.New(color.FgRed),
		metadata:    color.New(color.FgHiBlue),
	}

	if !enabled {
		s.heading.DisableColor()
		s.id.DisableColor()
		s.label.DisableColor()
		s.value.DisableColor()
		s.unreachable.DisableColor()
		s.metadata.DisableColor()
	}

	return s
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show results recorded in a database",
	Long: `Read depth results from a database written with "depth --db" and print
them again. By default the most recent run is shown; --run selects a run by
ID or UID and --list prints the recorded runs.`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportDB, "db", "vgdepth.db", "Database file or postgres:// URL")
	reportCmd.Flags().StringVar(&reportRun, "run", "", "Run ID or UID (default: latest run)")
	reportCmd.Flags().BoolVar(&reportList, "list", false, "List recorded runs")
	reportCmd.Flags().StringVar(&reportFormat, "format", "human", "Output format: human, tsv, json")
	reportCmd.Flags().StringVar(&reportColor, "color", "auto", "Color output: auto, always, never")
}

func runReport(cmd *cobra.Command, args []string) error {
	if reportDB == ":memory:" {
		return fmt.Errorf("cannot report from in-memory store")
	}
	if !store.IsPostgresURL(reportDB) {
		if _, err := os.Stat(reportDB); err != nil {
			return fmt.Errorf("database not found: %s", reportDB)
		}
	}

	s, err := store.New(store.Config{Path: reportDB})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	runs, err := s.GetRuns()
	if err != nil {
		return fmt.Errorf("retrieving runs: %w", err)
	}

	st := newStyles(colorEnabled(reportColor))
	if reportList {
		return outputRunList(cmd.OutOrStdout(), s, runs, st)
	}

	run, err := selectRun(runs, reportRun)
	if err != nil {
		return err
	}
	results, err := s.GetResults(run.ID)
	if err != nil {
		return fmt.Errorf("retrieving results: %w", err)
	}

	switch reportFormat {
	case "tsv", "json":
		return outputReportSink(cmd.OutOrStdout(), run, results)
	case "human":
		return outputReportHuman(cmd.OutOrStdout(), run, results, st)
	default:
		return fmt.Errorf("unknown output format: %s", reportFormat)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// colorEnabled resolves the --color flag. "auto" enables color only when
// stdout is a terminal and NO_COLOR is unset.
func colorEnabled(mode string) bool {
	switch mode {
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	default:
		color.NoColor = !term.IsTerminal(int(os.Stdout.Fd())) || os.Getenv("NO_COLOR") != ""
	}
	return !color.NoColor
}

// selectRun picks a run by numeric ID or UID; an empty key selects the latest.
func selectRun(runs []*types.Run, key string) (*types.Run, error) {
	if len(runs) == 0 {
		return nil, fmt.Errorf("database has no runs")
	}
	if key == "" {
		return runs[len(runs)-1], nil
	}

	id, idErr := strconv.ParseInt(key, 10, 64)
	for _, r := range runs {
		if r.UID == key || (idErr == nil && r.ID == id) {
			return r, nil
		}
	}
	return nil, fmt.Errorf("run %s not found", key)
}

func outputReportSink(w io.Writer, run *types.Run, results []types.Result) error {
	sink, err := output.New(reportFormat, w)
	if err != nil {
		return err
	}
	if err := sink.Begin(run.Kind); err != nil {
		return err
	}
	for _, r := range results {
		if err := sink.Write(r); err != nil {
			return err
		}
	}
	return sink.Close()
}

func outputRunList(w io.Writer, s store.Store, runs []*types.Run, st *styles) error {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs.")
		return nil
	}

	for _, r := range runs {
		results, err := s.GetResults(r.ID)
		if err != nil {
			return fmt.Errorf("retrieving results: %w", err)
		}
		fmt.Fprintf(w, "%s %s  %s  %s  %s rows  %s\n",
			st.id.Sprintf("#%d", r.ID),
			st.metadata.Sprint(r.UID),
			st.label.Sprint(r.Graph),
			r.Mode,
			humanize.Comma(int64(len(results))),
			humanize.Time(r.StartedAt),
		)
	}
	return nil
}

func outputReportHuman(w io.Writer, run *types.Run, results []types.Result, st *styles) error {
	unreachable := 0
	for _, r := range results {
		if r.Unreachable {
			unreachable++
		}
	}

	st.heading.Fprintf(w, "Run %d", run.ID)
	fmt.Fprintf(w, " (%s)\n", st.metadata.Sprint(run.UID))
	fmt.Fprintf(w, "Graph: %s\n", st.label.Sprint(run.Graph))
	fmt.Fprintf(w, "Mode: %s, self-exclusion: %s\n", run.Mode, run.SelfExclusion)
	fmt.Fprintf(w, "Started: %s (%s)\n", run.StartedAt.Format("2006-01-02 15:04:05 MST"), humanize.Time(run.StartedAt))
	fmt.Fprintf(w, "Results: %s", humanize.Comma(int64(len(results))))
	if unreachable > 0 {
		fmt.Fprintf(w, ", %s", st.unreachable.Sprintf("%d unreachable", unreachable))
	}
	fmt.Fprintln(w)

	if len(results) == 0 {
		fmt.Fprintf(w, "\nNo results.\n")
		return nil
	}

	fmt.Fprintln(w)
	st.heading.Fprintln(w, types.Header(run.Kind))
	for _, r := range results {
		switch r.Kind {
		case types.KindPathRange:
			fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", st.label.Sprint(r.Path), r.Start, r.End, st.value.Sprint(output.FormatMean(r.Range.Mean)))
		default:
			label := st.label.Sprint(r.Label)
			if r.Unreachable {
				label = st.unreachable.Sprint(r.Label)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", label,
				st.value.Sprint(r.Coverage.TotalSteps), st.value.Sprint(r.Coverage.DistinctPaths))
		}
	}
	return nil
}
