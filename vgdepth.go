// Package vgdepth computes coverage depth over pangenome variation graphs.
//
// For a node, a path position or a path interval, vgdepth reports how many
// path steps touch it and how many distinct paths those steps belong to.
//
// # Basic Usage
//
// Load a GFA graph and query it:
//
//	g, err := vgdepth.LoadGraph("graph.gfa.gz")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ev, err := vgdepth.NewEvaluator(g, vgdepth.WithThreads(8))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	r, err := ev.Range("chr1#0\t1000\t2000")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%s\t%.3f\n", r.Path, r.Range.Mean)
//
// # Batches
//
// Run evaluates a whole query source in parallel and streams rows to a sink:
//
//	stats, err := ev.Run(ctx, query.Source{BEDFile: "regions.bed"}, output.NewTSV(os.Stdout))
package vgdepth

import (
	"context"
	"fmt"
	"sort"

	"github.com/vgkit/vgdepth/pkg/coverage"
	"github.com/vgkit/vgdepth/pkg/depth"
	"github.com/vgkit/vgdepth/pkg/handlegraph"
	"github.com/vgkit/vgdepth/pkg/metrics"
	"github.com/vgkit/vgdepth/pkg/output"
	"github.com/vgkit/vgdepth/pkg/query"
	"github.com/vgkit/vgdepth/pkg/types"
)

// Re-export commonly used types for convenience.
type (
	// Graph is the read-only graph interface queries run against.
	Graph = handlegraph.Graph

	// Result is one output row.
	Result = types.Result

	// NodeCoverage counts the steps and distinct paths on a node.
	NodeCoverage = types.NodeCoverage

	// RangeCoverage is the summed and mean coverage of a path interval.
	RangeCoverage = types.RangeCoverage

	// Stats summarizes a batch run.
	Stats = depth.Stats
)

// Re-export self-exclusion policies.
const (
	ExcludeAll   = coverage.ExcludeAll
	ExcludeFirst = coverage.ExcludeFirst
)

// Evaluator answers depth queries against one graph. It is safe for
// concurrent use as long as the graph is not modified.
type Evaluator struct {
	graph  Graph
	exec   *depth.Executor
	config *evaluatorConfig
}

type evaluatorConfig struct {
	threads       int
	selfExclusion coverage.SelfExclusion
	metrics       *metrics.Metrics
}

// Option configures an Evaluator.
type Option func(*evaluatorConfig)

// WithThreads sets the number of workers used by Run. Default is 1.
func WithThreads(n int) Option {
	return func(c *evaluatorConfig) {
		c.threads = n
	}
}

// WithSelfExclusion selects how a range's own path is treated.
// Default is ExcludeAll.
func WithSelfExclusion(p coverage.SelfExclusion) Option {
	return func(c *evaluatorConfig) {
		c.selfExclusion = p
	}
}

// WithMetrics records query counters and timings into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *evaluatorConfig) {
		c.metrics = m
	}
}

// LoadGraph reads a GFA file, possibly gzip, zstd or xz compressed.
// "-" reads standard input.
func LoadGraph(path string) (*handlegraph.MemoryGraph, error) {
	return handlegraph.Open(path)
}

// NewEvaluator creates an Evaluator for g.
func NewEvaluator(g Graph, opts ...Option) (*Evaluator, error) {
	if g == nil {
		return nil, fmt.Errorf("graph is required")
	}

	config := &evaluatorConfig{threads: 1}
	for _, opt := range opts {
		opt(config)
	}
	if config.threads < 1 {
		return nil, fmt.Errorf("threads must be at least 1, got %d", config.threads)
	}

	return &Evaluator{
		graph:  g,
		config: config,
		exec: &depth.Executor{
			Graph:         g,
			Threads:       config.threads,
			SelfExclusion: config.selfExclusion,
			Metrics:       config.metrics,
		},
	}, nil
}

// Threads returns the configured worker count.
func (e *Evaluator) Threads() int {
	return e.config.threads
}

// Node returns the coverage of a node. Unknown nodes are an error.
func (e *Evaluator) Node(id types.NodeID) (NodeCoverage, error) {
	if !e.graph.HasNode(id) {
		return NodeCoverage{}, fmt.Errorf("no node %d in graph: %w", id, query.ErrReferenceNotFound)
	}
	return coverage.Node(e.graph, id), nil
}

// GraphPosition evaluates a "node[,offset[,strand]]" record.
func (e *Evaluator) GraphPosition(record string) (Result, error) {
	return e.evaluate(types.KindGraphPosition, record)
}

// PathPosition evaluates a "path[,offset[,strand]]" record.
func (e *Evaluator) PathPosition(record string) (Result, error) {
	return e.evaluate(types.KindPathPosition, record)
}

// Range evaluates a BED record; a bare path name covers the whole path.
func (e *Evaluator) Range(record string) (Result, error) {
	return e.evaluate(types.KindPathRange, record)
}

func (e *Evaluator) evaluate(kind types.ResultKind, record string) (Result, error) {
	q, err := query.ParseRecord(e.graph, kind, record)
	if err != nil {
		return Result{}, err
	}
	return e.exec.Evaluate(0, q)
}

// Run ingests src and streams one row per query to sink. Ingestion errors
// abort before any row is written. Run does not close sink.
func (e *Evaluator) Run(ctx context.Context, src query.Source, sink output.Sink) (Stats, error) {
	batch, err := query.NewIngester(e.graph).Ingest(src)
	if err != nil {
		return Stats{}, err
	}
	return e.exec.Run(ctx, batch, sink)
}

// GraphDepth returns the coverage of every node, ordered by node ID.
func (e *Evaluator) GraphDepth(ctx context.Context) ([]Result, error) {
	c := &output.Collector{}
	if _, err := e.Run(ctx, query.Source{GraphDepth: true}, c); err != nil {
		return nil, err
	}
	sort.Slice(c.Results, func(i, j int) bool { return c.Results[i].Index < c.Results[j].Index })
	return c.Results, nil
}
