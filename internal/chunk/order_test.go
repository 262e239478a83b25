package chunk

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderer_Sort(t *testing.T) {
	o := NewOrderer(nil)

	sorted, err := o.Sort([]string{"2", "1", "X", "10", "Y"})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "10", "X", "Y"}, sorted)
}

func TestOrderer_SortDoesNotModifyInput(t *testing.T) {
	o := NewOrderer(nil)
	input := []string{"Y", "3", "1"}

	_, err := o.Sort(input)
	require.NoError(t, err)
	assert.Equal(t, []string{"Y", "3", "1"}, input)
}

func TestOrderer_Unparseable(t *testing.T) {
	o := NewOrderer(nil)

	for _, name := range []string{"MT", "GL000220.1", "x", ""} {
		sorted, err := o.Sort([]string{"1", name})
		require.Error(t, err, "Sort with %q", name)
		assert.True(t, errors.Is(err, ErrUnparseableChromosome))
		assert.Nil(t, sorted)
	}
}

func TestOrderer_ExtraAliases(t *testing.T) {
	o := NewOrderer(map[string]int{"MT": 25})

	sorted, err := o.Sort([]string{"MT", "Y", "22", "X"})
	require.NoError(t, err)
	assert.Equal(t, []string{"22", "X", "Y", "MT"}, sorted)

	// Defaults are not shared between orderers
	_, err = NewOrderer(nil).Rank("MT")
	assert.True(t, errors.Is(err, ErrUnparseableChromosome))
}

func TestOrderer_Rank(t *testing.T) {
	o := NewOrderer(nil)

	tests := []struct {
		chrom string
		want  int
	}{
		{"1", 1},
		{"22", 22},
		{"X", 23},
		{"Y", 24},
	}

	for _, tt := range tests {
		r, err := o.Rank(tt.chrom)
		require.NoError(t, err)
		assert.Equal(t, tt.want, r, "Rank(%q)", tt.chrom)
	}
}

func TestUnion(t *testing.T) {
	got := Union(
		[]string{"1", "2"},
		[]string{"2", "X"},
		nil,
		[]string{"X", "1", "Y"},
	)
	assert.Equal(t, []string{"1", "2", "X", "Y"}, got)
	assert.Empty(t, Union())
}
