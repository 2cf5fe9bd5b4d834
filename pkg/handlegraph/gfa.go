package handlegraph

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/vgkit/vgdepth/pkg/types"
)

// ReadGFA parses a GFA 1.0/1.1 stream. S, L, P and W records are used;
// headers, containments and unknown record types are ignored. Segment
// names must be positive integers.
func ReadGFA(r io.Reader) (*MemoryGraph, error) {
	b := NewBuilder()
	br := bufio.NewReaderSize(r, 1<<20)

	lineNo := 0
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			lineNo++
			if perr := parseGFALine(b, strings.TrimRight(line, "\r\n")); perr != nil {
				return nil, fmt.Errorf("gfa line %d: %w", lineNo, perr)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading gfa: %w", err)
		}
	}

	return b.Build()
}

func parseGFALine(b *Builder, line string) error {
	if line == "" || line[0] == '#' {
		return nil
	}
	fields := strings.Split(line, "\t")
	switch fields[0] {
	case "S":
		return parseSegment(b, fields)
	case "L":
		return parseLink(b, fields)
	case "P":
		return parsePath(b, fields)
	case "W":
		return parseWalk(b, fields)
	default:
		return nil
	}
}

func parseSegment(b *Builder, fields []string) error {
	if len(fields) < 3 {
		return fmt.Errorf("segment record has %d fields, want at least 3", len(fields))
	}
	id, err := parseNodeID(fields[1])
	if err != nil {
		return err
	}
	if fields[2] != "*" {
		return b.AddNode(id, fields[2])
	}
	for _, tag := range fields[3:] {
		if v, ok := strings.CutPrefix(tag, "LN:i:"); ok {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid LN tag %q: %w", tag, err)
			}
			return b.AddNodeLength(id, n)
		}
	}
	return fmt.Errorf("segment %d has no sequence and no LN tag", id)
}

func parseLink(b *Builder, fields []string) error {
	if len(fields) < 5 {
		return fmt.Errorf("link record has %d fields, want at least 5", len(fields))
	}
	from, err := parseOrientedID(fields[1], fields[2])
	if err != nil {
		return err
	}
	to, err := parseOrientedID(fields[3], fields[4])
	if err != nil {
		return err
	}
	b.AddEdge(from, to)
	return nil
}

// parsePath handles "P name 1+,2-,3+ overlaps".
func parsePath(b *Builder, fields []string) error {
	if len(fields) < 3 {
		return fmt.Errorf("path record has %d fields, want at least 3", len(fields))
	}
	var steps []Handle
	if fields[2] != "" && fields[2] != "*" {
		for _, tok := range strings.Split(fields[2], ",") {
			if len(tok) < 2 {
				return fmt.Errorf("invalid path step %q", tok)
			}
			h, err := parseOrientedID(tok[:len(tok)-1], tok[len(tok)-1:])
			if err != nil {
				return err
			}
			steps = append(steps, h)
		}
	}
	_, err := b.AddPath(fields[1], steps)
	return err
}

// parseWalk handles "W sample hap seqid start end >1<2>3". The path is
// named sample#hap#seqid, with ":start-end" appended when start is not 0.
func parseWalk(b *Builder, fields []string) error {
	if len(fields) < 7 {
		return fmt.Errorf("walk record has %d fields, want at least 7", len(fields))
	}
	name := fields[1] + "#" + fields[2] + "#" + fields[3]
	if fields[4] != "*" && fields[4] != "0" {
		name += ":" + fields[4] + "-" + fields[5]
	}

	walk := fields[6]
	var steps []Handle
	for i := 0; i < len(walk); {
		if walk[i] != '>' && walk[i] != '<' {
			return fmt.Errorf("invalid walk %q at byte %d", walk, i)
		}
		j := i + 1
		for j < len(walk) && walk[j] != '>' && walk[j] != '<' {
			j++
		}
		id, err := parseNodeID(walk[i+1 : j])
		if err != nil {
			return err
		}
		steps = append(steps, Handle{ID: id, Reverse: walk[i] == '<'})
		i = j
	}
	_, err := b.AddPath(name, steps)
	return err
}

func parseOrientedID(id, orient string) (Handle, error) {
	nid, err := parseNodeID(id)
	if err != nil {
		return Handle{}, err
	}
	switch orient {
	case "+":
		return Handle{ID: nid}, nil
	case "-":
		return Handle{ID: nid, Reverse: true}, nil
	default:
		return Handle{}, fmt.Errorf("invalid orientation %q for node %s", orient, id)
	}
}

func parseNodeID(s string) (types.NodeID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("segment name %q is not a positive integer", s)
	}
	return types.NodeID(v), nil
}
