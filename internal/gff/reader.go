// Package gff reads GFF-style regulatory feature files.
package gff

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/inodb/vibe-chunk/internal/feature"
)

// ErrMalformedLine is returned for data lines that cannot be parsed.
var ErrMalformedLine = errors.New("malformed GFF line")

// Column counts with and without the trailing group column.
const (
	columnsWithGroup    = 9
	columnsWithoutGroup = 8
)

// Reader streams features from GFF content.
type Reader struct {
	scanner  *bufio.Scanner
	closers  []io.Closer
	hasGroup bool
	lineNum  int
}

// NewReader creates a reader over r. hasGroup selects between the 9-column GFF
// layout and the 8-column layout used by the micro-RNA text file.
func NewReader(r io.Reader, hasGroup bool) *Reader {
	scanner := bufio.NewScanner(r)
	// Group columns of annotated features can be long
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	return &Reader{scanner: scanner, hasGroup: hasGroup}
}

// Open opens a GFF file for reading. Files ending in .gz are decompressed.
func Open(path string, hasGroup bool) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open GFF file: %w", err)
	}

	var reader io.Reader = f
	closers := []io.Closer{f}

	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		reader = gz
		closers = append([]io.Closer{gz}, closers...)
	}

	r := NewReader(reader, hasGroup)
	r.closers = closers
	return r, nil
}

// Next returns the next feature, or io.EOF when the input is exhausted.
func (r *Reader) Next() (*feature.Feature, error) {
	for r.scanner.Scan() {
		r.lineNum++
		line := r.scanner.Text()

		// Skip comments and empty lines
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		f, err := parseLine(line, r.hasGroup)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
		}
		return f, nil
	}

	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan GFF: %w", err)
	}
	return nil, io.EOF
}

// Line returns the number of lines consumed so far.
func (r *Reader) Line() int {
	return r.lineNum
}

// Close releases the underlying file, if the reader owns one.
func (r *Reader) Close() error {
	var firstErr error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.closers = nil
	return firstErr
}

// ReadAll reads every remaining feature from r.
func ReadAll(r *Reader) ([]feature.Feature, error) {
	var features []feature.Feature
	for {
		f, err := r.Next()
		if err == io.EOF {
			return features, nil
		}
		if err != nil {
			return nil, err
		}
		features = append(features, *f)
	}
}

// parseLine parses a single tab-separated feature line.
func parseLine(line string, hasGroup bool) (*feature.Feature, error) {
	want := columnsWithoutGroup
	if hasGroup {
		want = columnsWithGroup
	}

	fields := strings.Split(line, "\t")
	if len(fields) < want {
		return nil, fmt.Errorf("%w: expected %d fields, got %d", ErrMalformedLine, want, len(fields))
	}

	start, err := strconv.ParseInt(strings.TrimSpace(fields[3]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: parse start: %v", ErrMalformedLine, err)
	}

	end, err := strconv.ParseInt(strings.TrimSpace(fields[4]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: parse end: %v", ErrMalformedLine, err)
	}

	f := &feature.Feature{
		Chromosome: NormalizeChrom(fields[0]),
		Source:     fields[1],
		Type:       fields[2],
		Start:      start,
		End:        end,
		Score:      fields[5],
		Strand:     fields[6],
		Frame:      fields[7],
	}
	if hasGroup {
		f.Group = fields[8]
	}
	return f, nil
}

// NormalizeChrom removes a "chr" prefix so UCSC and Ensembl names compare equal.
func NormalizeChrom(chrom string) string {
	return strings.TrimPrefix(chrom, "chr")
}
