package types

// ResultKind tags the query mode a Result row came from.
type ResultKind string

const (
	KindGraphPosition ResultKind = "graph_position"
	KindPathPosition  ResultKind = "path_position"
	KindPathRange     ResultKind = "path_range"
)

// Result is one output row. Which fields are populated depends on Kind:
// position kinds carry Coverage, ranges carry Path, Start, End and Range.
// Label is "node,offset,+" for graph positions, "path,offset,+" for path
// positions and the source record for ranges. Index is the position of the
// query in its batch; rows arrive in completion order, so sort on Index
// when a stable order is needed.
type Result struct {
	Index       int           `json:"index"`
	Kind        ResultKind    `json:"kind"`
	Label       string        `json:"label"`
	Path        string        `json:"path,omitempty"`
	Start       uint64        `json:"start,omitempty"`
	End         uint64        `json:"end,omitempty"`
	Node        GraphPosition `json:"-"`
	Coverage    NodeCoverage  `json:"node_coverage"`
	Range       RangeCoverage `json:"range_coverage"`
	Unreachable bool          `json:"unreachable,omitempty"`
}

// Header returns the column header line for a result kind, without the trailing newline.
func Header(kind ResultKind) string {
	switch kind {
	case KindGraphPosition:
		return "#graph_position\tcoverage\tcoverage_uniq"
	case KindPathPosition:
		return "#path_position\tcoverage\tcoverage_uniq"
	case KindPathRange:
		return "#path\tstart\tend\tmean_coverage"
	default:
		return ""
	}
}
