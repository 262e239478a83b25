package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/inodb/vibe-chunk/internal/duckdb"
	"github.com/inodb/vibe-chunk/internal/feature"
)

// configuredCategories returns the categories from the config file, or the
// four default regulation inputs under data_dir. Relative paths are resolved
// against data_dir.
func configuredCategories() ([]feature.Category, error) {
	dataDir := viper.GetString("data_dir")

	var cats []feature.Category
	if viper.IsSet("categories") {
		if err := viper.UnmarshalKey("categories", &cats); err != nil {
			return nil, fmt.Errorf("parse categories: %w", err)
		}
	}
	if len(cats) == 0 {
		return feature.DefaultCategories(dataDir), nil
	}

	seen := make(map[string]bool)
	for i := range cats {
		c := &cats[i]
		if c.Name == "" || c.Path == "" {
			return nil, fmt.Errorf("category %d: name and path are required", i)
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("category %q listed twice", c.Name)
		}
		seen[c.Name] = true
		if !filepath.IsAbs(c.Path) {
			c.Path = filepath.Join(dataDir, c.Path)
		}
	}
	return cats, nil
}

func categoryNames(cats []feature.Category) []string {
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = c.Name
	}
	return names
}

// chromosomeAliases parses "NAME=RANK" entries, e.g. "MT=25".
// A list is used instead of a map because viper lowercases map keys.
func chromosomeAliases() (map[string]int, error) {
	aliases := make(map[string]int)
	for _, entry := range viper.GetStringSlice("chromosome_aliases") {
		name, rank, ok := strings.Cut(entry, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid chromosome alias %q (want NAME=RANK)", entry)
		}
		r, err := strconv.Atoi(rank)
		if err != nil {
			return nil, fmt.Errorf("invalid chromosome alias %q: %w", entry, err)
		}
		aliases[name] = r
	}
	return aliases, nil
}

func openStore() (*duckdb.Store, error) {
	path := viper.GetString("db")
	store, err := duckdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open feature store %s: %w", path, err)
	}
	store.SetLogger(logger)
	return store, nil
}
