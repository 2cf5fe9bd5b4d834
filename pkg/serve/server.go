// Package serve answers depth queries over a newline-delimited JSON stream.
package serve

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"github.com/vgkit/vgdepth/pkg/depth"
	"github.com/vgkit/vgdepth/pkg/output"
	"github.com/vgkit/vgdepth/pkg/query"
	"github.com/vgkit/vgdepth/pkg/types"
)

// Version is the server protocol version
const Version = "1.0.0"

// Server answers queries against the graph of one executor
type Server struct {
	exec    *depth.Executor
	encoder *json.Encoder
	decoder *json.Decoder
	log     *logrus.Entry

	evaluated   atomic.Int64
	unreachable atomic.Int64
}

// NewServer creates a new streaming server
func NewServer(exec *depth.Executor, in io.Reader, out io.Writer) *Server {
	return &Server{
		exec:    exec,
		encoder: json.NewEncoder(out),
		decoder: json.NewDecoder(bufio.NewReader(in)),
		log:     logrus.WithField("component", "serve"),
	}
}

// Run starts the server main loop
func (s *Server) Run(ctx context.Context) error {
	// Send ready signal
	s.sendReady()

	// Use buffered channels for incoming requests
	reqChan := make(chan Request, 1)
	errChan := make(chan error, 1)

	go func() {
		for {
			var req Request
			if err := s.decoder.Decode(&req); err != nil {
				errChan <- err
				return
			}
			select {
			case reqChan <- req:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Process requests until stdin closes or context cancels
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errChan:
			// Drain any pending requests before handling EOF
			for {
				select {
				case req := <-reqChan:
					if s.processRequest(ctx, req) {
						return nil
					}
				default:
					if err == io.EOF {
						return nil
					}
					s.sendError("decode", err.Error())
					return nil
				}
			}
		case req := <-reqChan:
			if s.processRequest(ctx, req) {
				return nil
			}
		}
	}
}

// processRequest handles a single request and returns true if the server should exit
func (s *Server) processRequest(ctx context.Context, req Request) bool {
	s.log.WithField("type", req.Type).Debug("Request received")

	switch req.Type {
	case "graph_position":
		s.handleQuery(req.Type, types.KindGraphPosition, req.Payload)
	case "path_position":
		s.handleQuery(req.Type, types.KindPathPosition, req.Payload)
	case "range":
		s.handleQuery(req.Type, types.KindPathRange, req.Payload)
	case "batch":
		s.handleBatch(ctx, req.Payload)
	case "stats":
		s.handleStats()
	case "close":
		return true
	default:
		s.sendError("unknown", "unknown request type: "+req.Type)
	}
	return false
}

func (s *Server) sendReady() {
	g := s.exec.Graph
	s.send("ready", ReadyData{Version: Version, Nodes: g.NodeCount(), Paths: g.PathCount()})
}

func (s *Server) handleQuery(reqType string, kind types.ResultKind, payload json.RawMessage) {
	var p QueryPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		s.sendError(reqType, err.Error())
		return
	}

	q, err := query.ParseRecord(s.exec.Graph, kind, p.Record)
	if err != nil {
		s.sendError(reqType, (&query.RecordError{Source: reqType, Record: p.Record, Err: err}).Error())
		return
	}

	result, err := s.exec.Evaluate(0, q)
	if err != nil {
		s.sendError(reqType, err.Error())
		return
	}
	s.count(depth.Stats{Evaluated: 1, Unreachable: boolToInt(result.Unreachable)})

	s.send(reqType, result)
}

func (s *Server) handleBatch(ctx context.Context, payload json.RawMessage) {
	var p BatchPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		s.sendError("batch", err.Error())
		return
	}

	parser := query.NewParser(s.exec.Graph)
	batch := &query.Batch{Kind: p.Kind}
	for i, record := range p.Records {
		q, err := parser.Record(p.Kind, record)
		if err != nil {
			rerr := &query.RecordError{Source: fmt.Sprintf("records[%d]", i), Record: record, Err: err}
			s.sendError("batch", rerr.Error())
			return
		}
		batch.Queries = append(batch.Queries, q)
	}

	collector := &output.Collector{}
	stats, err := s.exec.Run(ctx, batch, collector)
	if err != nil {
		s.sendError("batch", err.Error())
		return
	}
	s.count(stats)

	results := collector.Results
	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })
	s.send("batch", BatchData{Results: results, Unreachable: stats.Unreachable})
}

func (s *Server) handleStats() {
	g := s.exec.Graph
	s.send("stats", StatsData{
		Nodes:       g.NodeCount(),
		Paths:       g.PathCount(),
		MinNodeID:   g.MinNodeID(),
		MaxNodeID:   g.MaxNodeID(),
		Evaluated:   s.evaluated.Load(),
		Unreachable: s.unreachable.Load(),
	})
}

func (s *Server) count(stats depth.Stats) {
	s.evaluated.Add(stats.Evaluated)
	s.unreachable.Add(stats.Unreachable)
}

func (s *Server) send(respType string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.sendError(respType, fmt.Sprintf("encoding response: %v", err))
		return
	}
	s.encode(Response{
		Success: true,
		Type:    respType,
		Data:    data,
	})
}

func (s *Server) sendError(reqType, msg string) {
	s.log.WithField("type", reqType).Debug(msg)
	s.encode(Response{
		Success: false,
		Type:    reqType,
		Error:   msg,
	})
}

func (s *Server) encode(resp Response) {
	if err := s.encoder.Encode(resp); err != nil {
		s.log.WithError(err).WithField("type", resp.Type).Debug("Writing response failed")
	}
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
