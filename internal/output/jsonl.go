// Package output writes chunk documents to line-delimited sinks.
package output

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/inodb/vibe-chunk/internal/chunk"
)

// legacyEscaper applies the HTML-safe escapes of the legacy exporter's JSON
// library that encoding/json does not (<, > and & are escaped by both).
var legacyEscaper = strings.NewReplacer("=", `\u003d`, "'", `\u0027`)

// JSONLWriter writes one JSON document per chunk, one per line.
type JSONLWriter struct {
	w      *bufio.Writer
	legacy bool
	lines  int
	offset int64
}

// NewJSONLWriter creates a new line-delimited JSON writer.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	return NewJSONLWriterAt(w, 0)
}

// NewJSONLWriterAt creates a writer whose output continues a file that
// already holds offset bytes.
func NewJSONLWriterAt(w io.Writer, offset int64) *JSONLWriter {
	return &JSONLWriter{w: bufio.NewWriter(w), offset: offset}
}

// SetLegacy enables the legacy double encoding, where each chunk document is
// itself written as a JSON string literal. Only needed to reproduce old files.
// Legacy lines also escape = and ' as \u003d and \u0027, as the old files do.
func (jw *JSONLWriter) SetLegacy(legacy bool) {
	jw.legacy = legacy
}

// Write writes a single chunk.
func (jw *JSONLWriter) Write(c *chunk.Chunk) error {
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode chunk %s:%d: %w", c.Chromosome, c.ID, err)
	}

	if jw.legacy {
		if b, err = json.Marshal(legacyEscaper.Replace(string(b))); err != nil {
			return fmt.Errorf("encode chunk %s:%d: %w", c.Chromosome, c.ID, err)
		}
	}

	if _, err := jw.w.Write(b); err != nil {
		return err
	}
	if err := jw.w.WriteByte('\n'); err != nil {
		return err
	}
	jw.lines++
	jw.offset += int64(len(b)) + 1
	return nil
}

// Lines returns the number of chunks written so far.
func (jw *JSONLWriter) Lines() int {
	return jw.lines
}

// Offset returns the output size once everything written so far is flushed.
func (jw *JSONLWriter) Offset() int64 {
	return jw.offset
}

// Flush flushes any buffered data to the underlying writer.
func (jw *JSONLWriter) Flush() error {
	return jw.w.Flush()
}
