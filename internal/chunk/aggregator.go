// Package chunk groups genomic features into fixed-size position chunks.
package chunk

import (
	"fmt"

	"github.com/biogo/store/llrb"

	"github.com/inodb/vibe-chunk/internal/feature"
)

// DefaultSize is the chunk width used by the regulation export.
const DefaultSize = 2000

// Chunk holds every feature overlapping one chunk of a chromosome.
type Chunk struct {
	Chromosome string            `json:"chromosome"`
	ID         int64             `json:"chunkId"`
	Start      int64             `json:"start"`
	End        int64             `json:"end"`
	Features   []feature.Feature `json:"features"`
}

// key orders chunks by chromosome, then chunk id.
type key struct {
	chrom string
	id    int64
	chunk *Chunk
}

// Compare implements llrb.Comparable.
func (k key) Compare(c llrb.Comparable) int {
	k2 := c.(key)
	if k.chrom != k2.chrom {
		if k.chrom < k2.chrom {
			return -1
		}
		return 1
	}
	switch {
	case k.id < k2.id:
		return -1
	case k.id > k2.id:
		return 1
	}
	return 0
}

// Aggregator assigns features to chunks of a fixed size.
type Aggregator struct {
	size int64
}

// NewAggregator creates an aggregator. Non-positive sizes use DefaultSize.
func NewAggregator(size int64) *Aggregator {
	if size <= 0 {
		size = DefaultSize
	}
	return &Aggregator{size: size}
}

// Size returns the chunk width.
func (a *Aggregator) Size() int64 {
	return a.size
}

// ChunkID returns the chunk containing pos.
func (a *Aggregator) ChunkID(pos int64) int64 {
	return pos / a.size
}

// Bounds returns the genomic span of chunk id. Chunk 0 starts at 1, not 0,
// so it is one base narrower than the others.
func (a *Aggregator) Bounds(id int64) (start, end int64) {
	end = id*a.size + a.size - 1
	if id == 0 {
		return 1, end
	}
	return id * a.size, end
}

// Assign builds the chunks touched by features. A feature spanning a chunk
// boundary is added to every chunk it overlaps. Chunks are keyed by each
// feature's own chromosome; chromosome is only used to label errors.
//
// All features are validated before any chunk is built, so a failed call
// returns no chunks. The result is ordered by chromosome and chunk id.
func (a *Aggregator) Assign(chromosome string, features []feature.Feature) ([]*Chunk, error) {
	for i := range features {
		if err := features[i].Validate(); err != nil {
			return nil, fmt.Errorf("chromosome %s: feature %d: %w", chromosome, i, err)
		}
	}

	var tree llrb.Tree
	for _, f := range features {
		first := a.ChunkID(f.Start)
		last := a.ChunkID(f.End)

		for id := first; id <= last; id++ {
			q := key{chrom: f.Chromosome, id: id}
			var c *Chunk
			if found := tree.Get(q); found != nil {
				c = found.(key).chunk
			} else {
				start, end := a.Bounds(id)
				c = &Chunk{Chromosome: f.Chromosome, ID: id, Start: start, End: end}
				q.chunk = c
				tree.Insert(q)
			}
			c.Features = append(c.Features, f)
		}
	}

	chunks := make([]*Chunk, 0, tree.Len())
	tree.Do(func(item llrb.Comparable) bool {
		chunks = append(chunks, item.(key).chunk)
		return false
	})
	return chunks, nil
}
