package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/vgkit/vgdepth/pkg/handlegraph"
	"github.com/vgkit/vgdepth/pkg/resolver"
	"github.com/vgkit/vgdepth/pkg/types"
)

var (
	statsInput  string
	statsPaths  bool
	statsFormat string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize a graph",
	Long:  "Print node, edge and path counts of a graph, and optionally the length of every path",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().StringVarP(&statsInput, "input", "i", "", "Graph in GFA format, optionally compressed (- for stdin)")
	statsCmd.Flags().BoolVar(&statsPaths, "paths", false, "List every path with its step count and length")
	statsCmd.Flags().StringVar(&statsFormat, "format", "human", "Output format: human, json")
	_ = statsCmd.MarkFlagRequired("input")
}

// GraphStats summarizes a graph.
type GraphStats struct {
	Nodes          int          `json:"nodes"`
	Edges          int          `json:"edges"`
	Paths          int          `json:"paths"`
	SequenceLength uint64       `json:"sequence_length"`
	MinNodeID      types.NodeID `json:"min_node_id"`
	MaxNodeID      types.NodeID `json:"max_node_id"`
	PathStats      []PathStats  `json:"path_stats,omitempty"`
}

// PathStats describes one path.
type PathStats struct {
	Name   string `json:"name"`
	Steps  uint64 `json:"steps"`
	Length uint64 `json:"length"`
}

func runStats(cmd *cobra.Command, args []string) error {
	if statsInput == "" {
		return fmt.Errorf("--input is required")
	}
	g, err := handlegraph.Open(statsInput)
	if err != nil {
		return err
	}

	stats := collectStats(g, statsPaths)
	switch statsFormat {
	case "json":
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(stats)
	case "human":
		outputStatsHuman(cmd.OutOrStdout(), stats)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", statsFormat)
	}
}

func collectStats(g *handlegraph.MemoryGraph, withPaths bool) GraphStats {
	stats := GraphStats{
		Nodes:     g.NodeCount(),
		Edges:     g.EdgeCount(),
		Paths:     g.PathCount(),
		MinNodeID: g.MinNodeID(),
		MaxNodeID: g.MaxNodeID(),
	}
	g.ForEachHandle(func(h handlegraph.Handle) bool {
		stats.SequenceLength += g.GetLength(h)
		return true
	})

	if withPaths {
		g.ForEachPath(func(p types.PathHandle) bool {
			stats.PathStats = append(stats.PathStats, PathStats{
				Name:   g.PathName(p),
				Steps:  g.StepCount(p),
				Length: resolver.PathLength(g, p),
			})
			return true
		})
	}
	return stats
}

func outputStatsHuman(w io.Writer, stats GraphStats) {
	fmt.Fprintf(w, "Nodes: %s (ids %d-%d)\n", humanize.Comma(int64(stats.Nodes)), stats.MinNodeID, stats.MaxNodeID)
	fmt.Fprintf(w, "Edges: %s\n", humanize.Comma(int64(stats.Edges)))
	fmt.Fprintf(w, "Paths: %s\n", humanize.Comma(int64(stats.Paths)))
	fmt.Fprintf(w, "Sequence: %s bp\n", humanize.Comma(int64(stats.SequenceLength)))

	if len(stats.PathStats) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "#path\tsteps\tlength")
	for _, p := range stats.PathStats {
		fmt.Fprintf(w, "%s\t%d\t%d\n", p.Name, p.Steps, p.Length)
	}
}
