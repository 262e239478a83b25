package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `data_dir: %DATA%
db: %DIR%/features.duckdb
output: %DIR%/regulatory.json
categories:
  - name: motif_features
    path: MotifFeatures.gff
    has_group: true
  - name: annotated_features
    path: AnnotatedFeatures.gff
    has_group: true
  - name: regulatory_features_multicell
    path: RegulatoryFeatures_MultiCell.gff
    has_group: true
  - name: mirna_uniq
    path: gff_mirna_uniq.txt
    has_group: false
`

// setup writes a config file pointing at the test fixtures and returns its path.
func setup(t *testing.T) (cfg, dir string) {
	t.Helper()
	dir = t.TempDir()
	t.Setenv("HOME", dir)

	data, err := filepath.Abs("../../testdata/regulation")
	require.NoError(t, err)

	content := strings.NewReplacer("%DATA%", data, "%DIR%", dir).Replace(testConfig)
	cfg = filepath.Join(dir, "vibe-chunk.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(content), 0644))
	return cfg, dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	cfgFile, verbose = "", false

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

type chunkDoc struct {
	Chromosome string `json:"chromosome"`
	ChunkID    int64  `json:"chunkId"`
	Start      int64  `json:"start"`
	End        int64  `json:"end"`
	Features   []struct {
		Type  string `json:"feature"`
		Start int64  `json:"start"`
		End   int64  `json:"end"`
		Group string `json:"group"`
	} `json:"features"`
}

func TestLoadAndExport(t *testing.T) {
	cfg, dir := setup(t)

	out, err := execute(t, "load", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "motif_features: 2 features")
	assert.Contains(t, out, "annotated_features: 3 features")
	assert.Contains(t, out, "mirna_uniq: 2 features")

	_, err = execute(t, "export", "--config", cfg)
	require.NoError(t, err)

	lines := readLines(t, filepath.Join(dir, "regulatory.json"))
	require.Len(t, lines, 13)

	docs := make([]chunkDoc, len(lines))
	for i, line := range lines {
		require.NoError(t, json.Unmarshal([]byte(line), &docs[i]), "line %d", i)
	}

	// Chromosome 1, motif features: the 1999-2001 motif spans chunks 0 and 1
	assert.Equal(t, "1", docs[0].Chromosome)
	assert.Equal(t, int64(0), docs[0].ChunkID)
	assert.Equal(t, int64(1), docs[0].Start)
	assert.Equal(t, int64(1999), docs[0].End)
	require.Len(t, docs[0].Features, 1)
	assert.Equal(t, "CTCF_motif", docs[0].Features[0].Type)
	assert.Equal(t, int64(1), docs[1].ChunkID)
	assert.Equal(t, docs[0].Features, docs[1].Features)

	// Chromosome 1, annotated features: chunk 0 holds both features in file order
	require.Len(t, docs[2].Features, 2)
	assert.Equal(t, "CTCF", docs[2].Features[0].Type)
	assert.Equal(t, "DNase1", docs[2].Features[1].Type)

	var order []string
	for _, d := range docs {
		if len(order) == 0 || order[len(order)-1] != d.Chromosome {
			order = append(order, d.Chromosome)
		}
	}
	assert.Equal(t, []string{"1", "2", "10", "X", "Y"}, order)

	// The last line is the micro-RNA target on chrY
	last := docs[len(docs)-1]
	assert.Equal(t, "Y", last.Chromosome)
	assert.Equal(t, int64(15), last.ChunkID)
	assert.Equal(t, int64(30000), last.Start)
	assert.Empty(t, last.Features[0].Group)
}

func TestLoad_SkipsUnchanged(t *testing.T) {
	cfg, _ := setup(t)

	_, err := execute(t, "load", "--config", cfg)
	require.NoError(t, err)

	out, err := execute(t, "load", "--config", cfg)
	require.NoError(t, err)
	assert.NotContains(t, out, "features")

	out, err = execute(t, "load", "--config", cfg, "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "motif_features: 2 features")
}

func TestLoad_MissingFile(t *testing.T) {
	_, dir := setup(t)

	_, err := execute(t, "load", "--data-dir", filepath.Join(dir, "empty"), "--db", filepath.Join(dir, "f.duckdb"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "motif_features")
}

func TestExport_ResumeAfterCompletion(t *testing.T) {
	cfg, dir := setup(t)

	_, err := execute(t, "load", "--config", cfg)
	require.NoError(t, err)
	_, err = execute(t, "export", "--config", cfg)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "regulatory.json.checkpoint"))
	require.NoError(t, err)

	// Bytes past the checkpoint are dropped, nothing new is written
	out, err := os.OpenFile(filepath.Join(dir, "regulatory.json"), os.O_WRONLY|os.O_APPEND, 0644)
	require.NoError(t, err)
	_, err = out.WriteString(`{"chromosome":"Y","chu`)
	require.NoError(t, err)
	require.NoError(t, out.Close())

	_, err = execute(t, "export", "--config", cfg, "--resume")
	require.NoError(t, err)
	lines := readLines(t, filepath.Join(dir, "regulatory.json"))
	require.Len(t, lines, 13)
	for i, line := range lines {
		assert.True(t, json.Valid([]byte(line)), "line %d", i)
	}

	// A fresh export truncates the file again
	_, err = execute(t, "export", "--config", cfg)
	require.NoError(t, err)
	assert.Len(t, readLines(t, filepath.Join(dir, "regulatory.json")), 13)
}

func TestExport_Legacy(t *testing.T) {
	cfg, dir := setup(t)

	_, err := execute(t, "load", "--config", cfg)
	require.NoError(t, err)
	_, err = execute(t, "export", "--config", cfg, "--legacy-double-encoding", "-o", filepath.Join(dir, "legacy.json"))
	require.NoError(t, err)

	lines := readLines(t, filepath.Join(dir, "legacy.json"))
	require.Len(t, lines, 13)

	var inner string
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &inner))
	var doc chunkDoc
	require.NoError(t, json.Unmarshal([]byte(inner), &doc))
	assert.Equal(t, "1", doc.Chromosome)
}

func TestChromosomes(t *testing.T) {
	cfg, _ := setup(t)

	_, err := execute(t, "load", "--config", cfg)
	require.NoError(t, err)

	out, err := execute(t, "chromosomes", "--config", cfg)
	require.NoError(t, err)
	assert.Equal(t, "1\n2\n10\nX\nY\n", out)
}

func TestUsageError(t *testing.T) {
	setup(t)

	_, err := execute(t, "export", "--no-such-flag")
	require.Error(t, err)
	var ue usageError
	assert.True(t, errors.As(err, &ue))
}

func TestChromosomeAliases(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("chromosome_aliases", []string{"MT=25", "Un=26"})
	aliases, err := chromosomeAliases()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"MT": 25, "Un": 26}, aliases)

	viper.Set("chromosome_aliases", []string{"MT"})
	_, err = chromosomeAliases()
	assert.Error(t, err)

	viper.Set("chromosome_aliases", []string{"MT=mito"})
	_, err = chromosomeAliases()
	assert.Error(t, err)
}

func TestConfiguredCategories_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("data_dir", "/data/regulation")
	cats, err := configuredCategories()
	require.NoError(t, err)
	require.Len(t, cats, 4)
	assert.Equal(t, "/data/regulation/MotifFeatures.gff.gz", cats[0].Path)
}

func TestConfigSetGet(t *testing.T) {
	cfg, _ := setup(t)

	out, err := execute(t, "config", "set", "chunk_size", "5000", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "Set chunk_size = 5000")

	out, err = execute(t, "config", "get", "chunk_size", "--config", cfg)
	require.NoError(t, err)
	assert.Equal(t, "5000\n", out)

	out, err = execute(t, "config", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "chunk_size: 5000")
}
