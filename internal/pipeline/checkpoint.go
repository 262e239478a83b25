package pipeline

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrCheckpointMismatch is returned when a checkpoint cannot belong to the current run.
var ErrCheckpointMismatch = errors.New("checkpoint does not match run")

// Position marks the last (chromosome, category) pair fully written to the
// output, and the output size right after it was flushed.
type Position struct {
	Chromosome string
	Category   string
	ChunkSize  int64
	Offset     int64
	UpdatedAt  time.Time
}

// Checkpoint persists a Position in a small key=value sidecar file:
//
//	out.jsonl.checkpoint
type Checkpoint struct {
	path string
}

// NewCheckpoint creates a checkpoint stored at path.
func NewCheckpoint(path string) *Checkpoint {
	return &Checkpoint{path: path}
}

// PathFor returns the conventional checkpoint path for an output file.
func PathFor(outputPath string) string {
	return outputPath + ".checkpoint"
}

// Load reads the saved position, or returns nil if there is none.
func (c *Checkpoint) Load() (*Position, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}

	meta := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		if k, v, ok := strings.Cut(line, "="); ok {
			meta[k] = v
		}
	}

	pos := &Position{
		Chromosome: meta["chromosome"],
		Category:   meta["category"],
	}
	if pos.Chromosome == "" || pos.Category == "" {
		return nil, fmt.Errorf("%w: incomplete checkpoint %s", ErrCheckpointMismatch, c.path)
	}
	if pos.ChunkSize, err = strconv.ParseInt(meta["chunk_size"], 10, 64); err != nil {
		return nil, fmt.Errorf("parse checkpoint chunk_size: %w", err)
	}
	if pos.Offset, err = strconv.ParseInt(meta["offset"], 10, 64); err != nil || pos.Offset < 0 {
		return nil, fmt.Errorf("%w: bad offset %q in %s", ErrCheckpointMismatch, meta["offset"], c.path)
	}
	if ts := meta["updated_at"]; ts != "" {
		if pos.UpdatedAt, err = time.Parse(time.RFC3339, ts); err != nil {
			return nil, fmt.Errorf("parse checkpoint updated_at: %w", err)
		}
	}
	return pos, nil
}

// Save atomically replaces the saved position.
func (c *Checkpoint) Save(pos Position) error {
	lines := []string{
		"chromosome=" + pos.Chromosome,
		"category=" + pos.Category,
		"chunk_size=" + strconv.FormatInt(pos.ChunkSize, 10),
		"offset=" + strconv.FormatInt(pos.Offset, 10),
		"updated_at=" + time.Now().UTC().Format(time.RFC3339),
		"",
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename checkpoint: %w", err)
	}
	return nil
}

// Clear removes the checkpoint file.
func (c *Checkpoint) Clear() error {
	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// OpenOutput opens the output file this checkpoint tracks and returns the
// offset writing continues from. Without resume the file is truncated and the
// checkpoint cleared. With resume the file is cut back to the saved offset,
// dropping lines of a category that never finished; with no checkpoint it is
// cut back to empty.
func (c *Checkpoint) OpenOutput(path string, resume bool) (*os.File, int64, error) {
	var offset int64
	if resume {
		pos, err := c.Load()
		if err != nil {
			return nil, 0, err
		}
		if pos != nil {
			offset = pos.Offset
		}
	} else if err := c.Clear(); err != nil {
		return nil, 0, fmt.Errorf("clear checkpoint: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return nil, 0, fmt.Errorf("open output: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("stat output: %w", err)
	}
	if info.Size() < offset {
		f.Close()
		return nil, 0, fmt.Errorf("%w: %s is %d bytes, checkpoint expects %d",
			ErrCheckpointMismatch, path, info.Size(), offset)
	}

	if err := f.Truncate(offset); err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("truncate output: %w", err)
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("seek output: %w", err)
	}
	return f, offset, nil
}
