package chunk

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// ErrUnparseableChromosome is returned when a chromosome name has no numeric rank.
var ErrUnparseableChromosome = errors.New("unparseable chromosome")

// DefaultAliases maps the sex chromosomes onto numeric ranks after the autosomes.
var DefaultAliases = map[string]int{
	"X": 23,
	"Y": 24,
}

// Orderer sorts chromosome names numerically.
// Names must be integers or one of the configured aliases.
type Orderer struct {
	aliases map[string]int
}

// NewOrderer creates an orderer with DefaultAliases plus any extra aliases
// (e.g. "MT": 25). Extra aliases override the defaults.
func NewOrderer(extra map[string]int) *Orderer {
	aliases := make(map[string]int, len(DefaultAliases)+len(extra))
	for k, v := range DefaultAliases {
		aliases[k] = v
	}
	for k, v := range extra {
		aliases[k] = v
	}
	return &Orderer{aliases: aliases}
}

// Rank returns the numeric sort key of a chromosome name.
func (o *Orderer) Rank(chrom string) (int, error) {
	if r, ok := o.aliases[chrom]; ok {
		return r, nil
	}
	r, err := strconv.Atoi(chrom)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnparseableChromosome, chrom)
	}
	return r, nil
}

// Sort returns names ordered by rank. Any unrankable name fails the whole sort.
func (o *Orderer) Sort(names []string) ([]string, error) {
	ranks := make(map[string]int, len(names))
	for _, n := range names {
		r, err := o.Rank(n)
		if err != nil {
			return nil, err
		}
		ranks[n] = r
	}

	sorted := append([]string(nil), names...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return ranks[sorted[i]] < ranks[sorted[j]]
	})
	return sorted, nil
}

// Union merges chromosome sets, dropping duplicates. Order is first seen.
func Union(sets ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, set := range sets {
		for _, c := range set {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}
