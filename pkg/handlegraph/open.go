package handlegraph

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"
	"github.com/ulikunitz/xz"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	xzMagic   = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
)

// Open loads a GFA graph from path, or from stdin when path is "-".
// gzip, zstd and xz input is detected from the leading bytes.
func Open(path string) (*MemoryGraph, error) {
	log := logrus.WithFields(logrus.Fields{"component": "handlegraph", "path": path})

	var in io.Reader
	if path == "-" {
		in = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening graph: %w", err)
		}
		defer f.Close()
		in = f
	}

	r, closer, err := Decompress(in)
	if err != nil {
		return nil, fmt.Errorf("opening graph %s: %w", path, err)
	}
	defer closer()

	log.Debug("Loading graph")
	g, err := ReadGFA(r)
	if err != nil {
		return nil, fmt.Errorf("loading graph %s: %w", path, err)
	}
	log.WithFields(logrus.Fields{
		"nodes": g.NodeCount(),
		"paths": g.PathCount(),
	}).Info("Graph loaded")
	return g, nil
}

// Decompress wraps r with a decompressor if its leading bytes carry a
// known magic number. The returned func releases decoder resources.
func Decompress(r io.Reader) (io.Reader, func(), error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(6)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}

	switch {
	case bytes.HasPrefix(head, gzipMagic):
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, nil, fmt.Errorf("gzip: %w", err)
		}
		return zr, func() { zr.Close() }, nil
	case bytes.HasPrefix(head, zstdMagic):
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, nil, fmt.Errorf("zstd: %w", err)
		}
		return zr, zr.Close, nil
	case bytes.HasPrefix(head, xzMagic):
		xr, err := xz.NewReader(br)
		if err != nil {
			return nil, nil, fmt.Errorf("xz: %w", err)
		}
		return xr, func() {}, nil
	default:
		return br, func() {}, nil
	}
}
