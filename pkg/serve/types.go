package serve

import (
	"encoding/json"

	"github.com/vgkit/vgdepth/pkg/types"
)

// Request represents an incoming NDJSON request
type Request struct {
	Type    string          `json:"type"` // "graph_position" | "path_position" | "range" | "batch" | "stats" | "close"
	Payload json.RawMessage `json:"payload"`
}

// QueryPayload is the payload for single-record requests
type QueryPayload struct {
	Record string `json:"record"`
}

// BatchPayload is the payload for "batch" requests
type BatchPayload struct {
	Kind    types.ResultKind `json:"kind"`
	Records []string         `json:"records"`
}

// Response represents an outgoing NDJSON response
type Response struct {
	Success bool            `json:"success"`
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// ReadyData is the data field for "ready" responses
type ReadyData struct {
	Version string `json:"version"`
	Nodes   int    `json:"nodes"`
	Paths   int    `json:"paths"`
}

// BatchData is the data field for "batch" responses. Results are in
// record order.
type BatchData struct {
	Results     []types.Result `json:"results"`
	Unreachable int64          `json:"unreachable"`
}

// StatsData is the data field for "stats" responses
type StatsData struct {
	Nodes       int          `json:"nodes"`
	Paths       int          `json:"paths"`
	MinNodeID   types.NodeID `json:"min_node_id"`
	MaxNodeID   types.NodeID `json:"max_node_id"`
	Evaluated   int64        `json:"evaluated"`
	Unreachable int64        `json:"unreachable"`
}
