// Package depth evaluates query batches in parallel against a read-only graph.
package depth

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vgkit/vgdepth/pkg/coverage"
	"github.com/vgkit/vgdepth/pkg/handlegraph"
	"github.com/vgkit/vgdepth/pkg/metrics"
	"github.com/vgkit/vgdepth/pkg/output"
	"github.com/vgkit/vgdepth/pkg/query"
	"github.com/vgkit/vgdepth/pkg/resolver"
	"github.com/vgkit/vgdepth/pkg/types"
	"golang.org/x/sync/errgroup"
)

// Executor runs batches over one graph. The graph must not be mutated while
// Run is in progress.
type Executor struct {
	Graph         handlegraph.Graph
	Threads       int
	SelfExclusion coverage.SelfExclusion
	// Metrics is optional.
	Metrics *metrics.Metrics
}

// Stats summarizes a run.
type Stats struct {
	Evaluated   int64 `json:"evaluated"`
	Unreachable int64 `json:"unreachable"`
}

// Run writes the batch header to sink and then one row per query, in
// completion order. Workers pull queries from a shared channel, so a slow
// query never holds back the others. Run does not close sink.
func (e *Executor) Run(ctx context.Context, batch *query.Batch, sink output.Sink) (Stats, error) {
	var evaluated, unreachable atomic.Int64
	stats := func() Stats {
		return Stats{Evaluated: evaluated.Load(), Unreachable: unreachable.Load()}
	}

	sink = output.Synchronized(sink)
	if err := sink.Begin(batch.Kind); err != nil {
		return stats(), fmt.Errorf("writing header: %w", err)
	}

	workers := e.Threads
	if workers < 1 {
		workers = 1
	}
	log := logrus.WithFields(logrus.Fields{"component": "depth", "threads": workers})
	log.WithField("queries", batch.Len()).Debug("Evaluating batch")

	type item struct {
		index int
		q     query.Query
	}

	origCtx := ctx
	g, ctx := errgroup.WithContext(ctx)
	itemsCh := make(chan item, workers*2)

	// Feed queries to workers
	g.Go(func() error {
		defer close(itemsCh)
		for i, q := range batch.Queries {
			select {
			case itemsCh <- item{index: i, q: q}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for it := range itemsCh {
				r, err := e.Evaluate(it.index, it.q)
				if err != nil {
					return err
				}
				evaluated.Add(1)
				if r.Unreachable {
					unreachable.Add(1)
				}
				if err := sink.Write(r); err != nil {
					return fmt.Errorf("writing result: %w", err)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return stats(), err
	}
	if origCtx.Err() != nil {
		return stats(), origCtx.Err()
	}

	log.WithFields(logrus.Fields{
		"evaluated":   evaluated.Load(),
		"unreachable": unreachable.Load(),
	}).Info("Batch complete")
	return stats(), nil
}

// Evaluate computes the row of a single query. It is safe for concurrent use.
// An unreachable path position is not an error: it is logged and reported
// with zero coverage and Unreachable set.
func (e *Executor) Evaluate(index int, q query.Query) (types.Result, error) {
	start := time.Now()
	r := types.Result{Index: index, Kind: q.Kind()}

	switch q := q.(type) {
	case query.GraphQuery:
		r.Label = q.Pos.String()
		r.Node = q.Pos
		r.Coverage = coverage.Node(e.Graph, q.Pos.Node)

	case query.PathQuery:
		r.Path = e.Graph.PathName(q.Pos.Path)
		r.Start = q.Pos.Offset
		r.Label = fmt.Sprintf("%s,%d,%s", r.Path, q.Pos.Offset, types.StrandSymbol(q.Pos.IsReverse))

		pos, err := resolver.ToGraph(e.Graph, q.Pos)
		if err != nil {
			if !errors.Is(err, resolver.ErrPositionUnreachable) {
				return r, err
			}
			logrus.WithField("component", "depth").WithError(err).Warn("Path position is unreachable")
			e.Metrics.Unreachable()
			r.Unreachable = true
		}
		r.Node = pos
		r.Coverage = coverage.Node(e.Graph, pos.Node)

	case query.RangeQuery:
		r.Label = q.Range.Label
		r.Path = e.Graph.PathName(q.Range.Path())
		r.Start = q.Range.Begin.Offset
		r.End = q.Range.End.Offset

		rc, err := coverage.Range(e.Graph, q.Range, e.SelfExclusion)
		if err != nil {
			return r, err
		}
		r.Range = rc

	default:
		return r, fmt.Errorf("unsupported query type %T", q)
	}

	e.Metrics.ObserveQuery(r.Kind, time.Since(start))
	return r, nil
}
