package main

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vgkit/vgdepth/pkg/coverage"
	"github.com/vgkit/vgdepth/pkg/depth"
	"github.com/vgkit/vgdepth/pkg/handlegraph"
	"github.com/vgkit/vgdepth/pkg/metrics"
	"github.com/vgkit/vgdepth/pkg/output"
	"github.com/vgkit/vgdepth/pkg/query"
	"github.com/vgkit/vgdepth/pkg/store"
	"github.com/vgkit/vgdepth/pkg/types"
)

var (
	depthInput         string
	depthSource        query.Source
	depthThreads       int
	depthFormat        string
	depthDB            string
	depthSelfExclusion string
	depthMetricsFile   string
)

var depthCmd = &cobra.Command{
	Use:   "depth",
	Short: "Compute coverage depth",
	Long: `Compute coverage depth of a graph.

Exactly one query input selects the mode. If several are given, the first in
this order wins: --graph-depth, --graph-pos, --graph-pos-file, --path-pos,
--path-pos-file, --bed-input, --path, --paths.

Graph and path positions print "#..._position, coverage, coverage_uniq" rows.
Paths and BED intervals print "#path, start, end, mean_coverage" rows, where the
mean counts the steps of other paths on the interval's nodes.

All records are validated before any row is written; the first bad record
aborts the run.`,
	Annotations: map[string]string{usesConfig: "true"},
	Args:        cobra.NoArgs,
	RunE:        runDepth,
}

func init() {
	addGraphFlags(depthCmd)
	f := depthCmd.Flags()
	f.BoolVarP(&depthSource.GraphDepth, "graph-depth", "d", false, "Compute the depth of every node")
	f.StringVarP(&depthSource.GraphPos, "graph-pos", "g", "", "Depth at a graph position: node[,offset[,(+|-)]]")
	f.StringVarP(&depthSource.GraphPosFile, "graph-pos-file", "G", "", "File with one graph position per line")
	f.StringVarP(&depthSource.PathPos, "path-pos", "p", "", "Depth at a path position: path[,offset[,(+|-)]]")
	f.StringVarP(&depthSource.PathPosFile, "path-pos-file", "F", "", "File with one path position per line")
	f.StringVarP(&depthSource.BEDFile, "bed-input", "b", "", "BED file of path intervals")
	f.StringVarP(&depthSource.PathName, "path", "r", "", "Mean depth over a whole path")
	f.StringVarP(&depthSource.PathFile, "paths", "R", "", "File with one path name per line")
	f.StringVar(&depthFormat, "format", "tsv", "Output format: tsv, json")
	f.StringVar(&depthDB, "db", "", "Also record results in a database (file, postgres:// URL)")
	f.StringVar(&depthMetricsFile, "metrics-file", "", "Write Prometheus metrics to this file when done")
}

// addGraphFlags registers the flags shared by commands that evaluate queries.
func addGraphFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&depthInput, "input", "i", "", "Graph in GFA format, optionally compressed (- for stdin)")
	f.IntVarP(&depthThreads, "threads", "t", 1, "Number of worker threads")
	f.StringVar(&depthSelfExclusion, "self-exclusion", "all", "Own-path steps in range depth: all (never counted), first (only the first per node)")
	_ = cmd.MarkFlagRequired("input")
}

func runDepth(cmd *cobra.Command, args []string) error {
	if depthSource.Mode() == query.ModeNone {
		return fmt.Errorf("one of --graph-depth, --graph-pos, --graph-pos-file, --path-pos, --path-pos-file, --bed-input, --path or --paths is required")
	}

	exec, err := newExecutor()
	if err != nil {
		return err
	}
	if depthMetricsFile != "" {
		exec.Metrics = metrics.New()
	}

	// Ingest every record before writing anything
	batch, err := query.NewIngester(exec.Graph).Ingest(depthSource)
	if err != nil {
		return err
	}

	sink, err := output.New(depthFormat, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	if depthDB != "" {
		s, err := store.New(store.Config{Path: depthDB})
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer s.Close()

		sink = output.Multi(sink, output.NewStoreSink(s, types.Run{
			Graph:         depthInput,
			Mode:          batch.Mode.String(),
			SelfExclusion: exec.SelfExclusion.String(),
		}))
	}

	ctx, cancel := signalContext()
	defer cancel()

	start := time.Now()
	stats, runErr := exec.Run(ctx, batch, sink)
	if err := sink.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("flushing output: %w", err)
	}
	if runErr != nil {
		return runErr
	}

	logrus.WithFields(logrus.Fields{
		"component":   "cli",
		"evaluated":   stats.Evaluated,
		"unreachable": stats.Unreachable,
		"elapsed":     time.Since(start).Round(time.Millisecond),
	}).Info("Depth complete")

	return exec.Metrics.WriteTextfile(depthMetricsFile)
}

// newExecutor loads the graph and validates the shared evaluation flags.
func newExecutor() (*depth.Executor, error) {
	if depthInput == "" {
		return nil, fmt.Errorf("--input is required")
	}
	if depthThreads < 1 {
		return nil, fmt.Errorf("--threads must be at least 1, got %d", depthThreads)
	}
	policy, err := coverage.ParseSelfExclusion(depthSelfExclusion)
	if err != nil {
		return nil, err
	}

	g, err := handlegraph.Open(depthInput)
	if err != nil {
		return nil, err
	}

	return &depth.Executor{
		Graph:         g,
		Threads:       depthThreads,
		SelfExclusion: policy,
	}, nil
}
