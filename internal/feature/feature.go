// Package feature defines the genomic interval records moved through the importer.
package feature

import (
	"errors"
	"fmt"
	"path/filepath"
)

// ErrInvalidRecord is returned for features with non-positive or inverted coordinates.
var ErrInvalidRecord = errors.New("invalid record")

// Feature is a single GFF-style regulatory feature.
// Coordinates are 1-based and inclusive. All other attributes are carried as-is.
type Feature struct {
	Chromosome string `json:"chromosome"`
	Source     string `json:"source"`
	Type       string `json:"feature"`
	Start      int64  `json:"start"`
	End        int64  `json:"end"`
	Score      string `json:"score"`
	Strand     string `json:"strand"`
	Frame      string `json:"frame"`
	Group      string `json:"group,omitempty"`
}

// Validate checks that the feature has a usable coordinate span.
func (f *Feature) Validate() error {
	if f.Start < 1 || f.Start > f.End {
		return fmt.Errorf("%w: %s:%d-%d", ErrInvalidRecord, f.Chromosome, f.Start, f.End)
	}
	return nil
}

// Category is one independent input source of features, e.g. motif features.
type Category struct {
	Name string `mapstructure:"name" yaml:"name"`
	Path string `mapstructure:"path" yaml:"path"`
	// HasGroup is false for 8-column files without the free-text group column.
	HasGroup bool `mapstructure:"has_group" yaml:"has_group"`
}

// Legacy category names, in the order the exporter walks them.
const (
	MotifFeatures      = "motif_features"
	AnnotatedFeatures  = "annotated_features"
	RegulatoryFeatures = "regulatory_features_multicell"
	MiRNAFeatures      = "mirna_uniq"
)

// DefaultCategories returns the four Ensembl regulation inputs expected in dir.
func DefaultCategories(dir string) []Category {
	return []Category{
		{Name: MotifFeatures, Path: filepath.Join(dir, "MotifFeatures.gff.gz"), HasGroup: true},
		{Name: AnnotatedFeatures, Path: filepath.Join(dir, "AnnotatedFeatures.gff.gz"), HasGroup: true},
		{Name: RegulatoryFeatures, Path: filepath.Join(dir, "RegulatoryFeatures_MultiCell.gff.gz"), HasGroup: true},
		{Name: MiRNAFeatures, Path: filepath.Join(dir, "gff_mirna_uniq.txt"), HasGroup: false},
	}
}
