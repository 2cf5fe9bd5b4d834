package query

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/vgkit/vgdepth/pkg/handlegraph"
	"github.com/vgkit/vgdepth/pkg/types"
)

// Mode is the input mode of a run. Exactly one mode is active.
type Mode int

const (
	ModeNone Mode = iota
	ModeGraphDepth
	ModeGraphPosition
	ModeGraphPositionFile
	ModePathPosition
	ModePathPositionFile
	ModeBED
	ModePathName
	ModePathFile
)

var modeNames = map[Mode]string{
	ModeNone:              "none",
	ModeGraphDepth:        "graph-depth",
	ModeGraphPosition:     "graph-pos",
	ModeGraphPositionFile: "graph-pos-file",
	ModePathPosition:      "path-pos",
	ModePathPositionFile:  "path-pos-file",
	ModeBED:               "bed-input",
	ModePathName:          "path",
	ModePathFile:          "paths",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Source holds every possible query input of a run. When more than one is
// set, the first in field order wins.
type Source struct {
	GraphDepth   bool
	GraphPos     string
	GraphPosFile string
	PathPos      string
	PathPosFile  string
	BEDFile      string
	PathName     string
	PathFile     string
}

// Mode returns the active input mode.
func (s Source) Mode() Mode {
	switch {
	case s.GraphDepth:
		return ModeGraphDepth
	case s.GraphPos != "":
		return ModeGraphPosition
	case s.GraphPosFile != "":
		return ModeGraphPositionFile
	case s.PathPos != "":
		return ModePathPosition
	case s.PathPosFile != "":
		return ModePathPositionFile
	case s.BEDFile != "":
		return ModeBED
	case s.PathName != "":
		return ModePathName
	case s.PathFile != "":
		return ModePathFile
	default:
		return ModeNone
	}
}

// Active returns the number of inputs that are set.
func (s Source) Active() int {
	n := 0
	if s.GraphDepth {
		n++
	}
	for _, v := range []string{s.GraphPos, s.GraphPosFile, s.PathPos, s.PathPosFile, s.BEDFile, s.PathName, s.PathFile} {
		if v != "" {
			n++
		}
	}
	return n
}

// Ingester validates query records against a graph.
type Ingester struct {
	graph  handlegraph.Graph
	parser *Parser
	open   func(name string) (io.ReadCloser, error)
}

// NewIngester creates an Ingester that reads query files from disk.
func NewIngester(g handlegraph.Graph) *Ingester {
	return &Ingester{
		graph:  g,
		parser: NewParser(g),
		open: func(name string) (io.ReadCloser, error) {
			if name == "-" {
				return io.NopCloser(os.Stdin), nil
			}
			return os.Open(name)
		},
	}
}

// WithOpener replaces the function used to open query files.
func (in *Ingester) WithOpener(open func(name string) (io.ReadCloser, error)) *Ingester {
	in.open = open
	return in
}

// Ingest builds the batch for the active mode of src. It stops at the first
// invalid record and returns a *RecordError wrapping one of the Err* values.
func (in *Ingester) Ingest(src Source) (*Batch, error) {
	mode := src.Mode()
	log := logrus.WithFields(logrus.Fields{"component": "query", "mode": mode.String()})
	if src.Active() > 1 {
		log.Warn("Multiple query inputs given, only the first is used")
	}

	batch := &Batch{Mode: mode}
	var err error
	switch mode {
	case ModeGraphDepth:
		batch.Kind = types.KindGraphPosition
		in.graph.ForEachHandle(func(h handlegraph.Handle) bool {
			batch.Queries = append(batch.Queries, GraphQuery{Pos: types.GraphPosition{Node: in.graph.GetID(h)}})
			return true
		})
	case ModeGraphPosition:
		batch.Kind = types.KindGraphPosition
		err = in.single("graph-pos", src.GraphPos, batch, in.graphQuery)
	case ModeGraphPositionFile:
		batch.Kind = types.KindGraphPosition
		err = in.file(src.GraphPosFile, batch, in.graphQuery)
	case ModePathPosition:
		batch.Kind = types.KindPathPosition
		err = in.single("path-pos", src.PathPos, batch, in.pathQuery)
	case ModePathPositionFile:
		batch.Kind = types.KindPathPosition
		err = in.file(src.PathPosFile, batch, in.pathQuery)
	case ModeBED:
		batch.Kind = types.KindPathRange
		err = in.file(src.BEDFile, batch, in.bedQuery)
	case ModePathName:
		batch.Kind = types.KindPathRange
		err = in.single("path", src.PathName, batch, in.wholePathQuery)
	case ModePathFile:
		batch.Kind = types.KindPathRange
		err = in.file(src.PathFile, batch, in.wholePathQuery)
	}
	if err != nil {
		return nil, err
	}

	log.WithField("queries", batch.Len()).Info("Queries ingested")
	return batch, nil
}

type parseFunc func(record string) (Query, error)

func (in *Ingester) graphQuery(record string) (Query, error) {
	pos, err := in.parser.GraphPosition(record)
	return GraphQuery{Pos: pos}, err
}

func (in *Ingester) pathQuery(record string) (Query, error) {
	pos, err := in.parser.PathPosition(record)
	return PathQuery{Pos: pos}, err
}

func (in *Ingester) bedQuery(record string) (Query, error) {
	r, err := in.parser.BEDRange(record)
	return RangeQuery{Range: r}, err
}

func (in *Ingester) wholePathQuery(record string) (Query, error) {
	r, err := in.parser.WholePath(record)
	return RangeQuery{Range: r}, err
}

func (in *Ingester) single(source, record string, batch *Batch, parse parseFunc) error {
	q, err := parse(record)
	if err != nil {
		return &RecordError{Source: source, Record: record, Err: err}
	}
	batch.Queries = append(batch.Queries, q)
	return nil
}

func (in *Ingester) file(name string, batch *Batch, parse parseFunc) error {
	f, err := in.open(name)
	if err != nil {
		return fmt.Errorf("opening %s: %w", name, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		record := strings.TrimRight(sc.Text(), "\r")
		if skipLine(record) {
			continue
		}
		q, err := parse(record)
		if err != nil {
			return &RecordError{Source: name, Line: line, Record: record, Err: err}
		}
		batch.Queries = append(batch.Queries, q)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}
	return nil
}

// skipLine reports blank lines and comment or BED header lines.
func skipLine(record string) bool {
	if strings.TrimSpace(record) == "" {
		return true
	}
	return strings.HasPrefix(record, "#") ||
		strings.HasPrefix(record, "track ") ||
		strings.HasPrefix(record, "browser ")
}
