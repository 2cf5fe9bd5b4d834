package types

// NodeCoverage is the depth of a single node.
type NodeCoverage struct {
	TotalSteps    uint64 `json:"coverage"`
	DistinctPaths uint64 `json:"coverage_uniq"`
}

// RangeCoverage is the depth of a path interval, counting steps of other paths only.
type RangeCoverage struct {
	Sum  uint64  `json:"sum"`
	Mean float64 `json:"mean_coverage"`
}
