// Package pipeline drives the per-chromosome chunk export.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/inodb/vibe-chunk/internal/chunk"
	"github.com/inodb/vibe-chunk/internal/feature"
)

// FeatureSource provides the stored features of each category.
type FeatureSource interface {
	Chromosomes(ctx context.Context, category string) ([]string, error)
	Features(ctx context.Context, category, chrom string) ([]feature.Feature, error)
}

// ChunkWriter is the append-only sink for chunk documents. Offset is the
// output size once everything written has been flushed.
type ChunkWriter interface {
	Write(c *chunk.Chunk) error
	Flush() error
	Offset() int64
}

// Stats summarises an export run.
type Stats struct {
	Chromosomes int
	Chunks      int
	Features    int
	Skipped     int // (chromosome, category) pairs skipped on resume
}

// Exporter walks chromosomes in order and, for each, every category in turn,
// writing that category's chunks before moving on.
type Exporter struct {
	source     FeatureSource
	categories []string
	agg        *chunk.Aggregator
	order      *chunk.Orderer
	writer     ChunkWriter
	checkpoint *Checkpoint
	resume     bool
	logger     *zap.Logger
}

// NewExporter creates an exporter. categories fixes the per-chromosome order.
func NewExporter(source FeatureSource, categories []string, agg *chunk.Aggregator, order *chunk.Orderer, w ChunkWriter) *Exporter {
	return &Exporter{
		source:     source,
		categories: categories,
		agg:        agg,
		order:      order,
		writer:     w,
		logger:     zap.NewNop(),
	}
}

// SetLogger sets the logger for progress messages.
func (e *Exporter) SetLogger(l *zap.Logger) {
	e.logger = l
}

// SetCheckpoint records progress in cp after every category. With resume,
// pairs up to and including the saved position are skipped; the output must
// already be cut back to the saved offset (see Checkpoint.OpenOutput).
func (e *Exporter) SetCheckpoint(cp *Checkpoint, resume bool) {
	e.checkpoint = cp
	e.resume = resume
}

// Chromosomes returns the sorted union of chromosomes across all categories.
func (e *Exporter) Chromosomes(ctx context.Context) ([]string, error) {
	sets := make([][]string, 0, len(e.categories))
	for _, cat := range e.categories {
		chroms, err := e.source.Chromosomes(ctx, cat)
		if err != nil {
			return nil, fmt.Errorf("list chromosomes of %s: %w", cat, err)
		}
		sets = append(sets, chroms)
	}
	return e.order.Sort(chunk.Union(sets...))
}

// Run exports every chromosome. Cancellation is checked between chromosomes.
func (e *Exporter) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	chroms, err := e.Chromosomes(ctx)
	if err != nil {
		return stats, err
	}

	done, err := e.resumePoint(chroms)
	if err != nil {
		return stats, err
	}

	e.logger.Info("exporting chunks",
		zap.Int("chromosomes", len(chroms)),
		zap.Strings("categories", e.categories),
		zap.Int64("chunk_size", e.agg.Size()))

	for ci, chrom := range chroms {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		for gi, cat := range e.categories {
			if done(ci, gi) {
				stats.Skipped++
				continue
			}

			n, nf, err := e.exportOne(ctx, chrom, cat)
			if err != nil {
				return stats, fmt.Errorf("chromosome %s, %s: %w", chrom, cat, err)
			}
			stats.Chunks += n
			stats.Features += nf

			if e.checkpoint != nil {
				if err := e.checkpoint.Save(Position{
					Chromosome: chrom,
					Category:   cat,
					ChunkSize:  e.agg.Size(),
					Offset:     e.writer.Offset(),
				}); err != nil {
					return stats, err
				}
			}
		}
		stats.Chromosomes++
		e.logger.Debug("chromosome done", zap.String("chrom", chrom), zap.Int("chunks", stats.Chunks))
	}

	return stats, nil
}

// exportOne writes the chunks of one category on one chromosome and flushes
// them, so a checkpoint taken afterwards covers everything written.
func (e *Exporter) exportOne(ctx context.Context, chrom, cat string) (chunks, features int, err error) {
	fs, err := e.source.Features(ctx, cat, chrom)
	if err != nil {
		return 0, 0, err
	}
	if len(fs) == 0 {
		return 0, 0, nil
	}

	cs, err := e.agg.Assign(chrom, fs)
	if err != nil {
		return 0, 0, err
	}

	for _, c := range cs {
		if err := e.writer.Write(c); err != nil {
			return 0, 0, fmt.Errorf("write chunk %d: %w", c.ID, err)
		}
	}
	if err := e.writer.Flush(); err != nil {
		return 0, 0, fmt.Errorf("flush output: %w", err)
	}
	return len(cs), len(fs), nil
}

// resumePoint returns a predicate reporting whether the pair at
// (chromosome index, category index) was already written.
func (e *Exporter) resumePoint(chroms []string) (func(ci, gi int) bool, error) {
	none := func(int, int) bool { return false }
	if e.checkpoint == nil || !e.resume {
		return none, nil
	}

	pos, err := e.checkpoint.Load()
	if err != nil {
		return nil, err
	}
	if pos == nil {
		return none, nil
	}

	if pos.ChunkSize != e.agg.Size() {
		return nil, fmt.Errorf("%w: chunk size %d, run uses %d", ErrCheckpointMismatch, pos.ChunkSize, e.agg.Size())
	}

	lastChrom, lastCat := indexOf(chroms, pos.Chromosome), indexOf(e.categories, pos.Category)
	if lastChrom < 0 || lastCat < 0 {
		return nil, fmt.Errorf("%w: %s/%s not part of this run", ErrCheckpointMismatch, pos.Chromosome, pos.Category)
	}

	e.logger.Info("resuming export",
		zap.String("after_chrom", pos.Chromosome),
		zap.String("after_category", pos.Category))

	return func(ci, gi int) bool {
		return ci < lastChrom || (ci == lastChrom && gi <= lastCat)
	}, nil
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
