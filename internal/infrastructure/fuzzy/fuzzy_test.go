package fuzzy

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch(t *testing.T) {
	t.Run("exact ignoring case accents and whitespace", func(t *testing.T) {
		assert.Equal(t, 1.0, Match("Lívia  Assan", "livia assan"))
	})

	t.Run("containment", func(t *testing.T) {
		// "livia" (5) inside "livia assan" (11)
		assert.InDelta(t, 0.8+5.0/11.0*0.2, Match("Livia", "Livia Assan"), 1e-9)
		assert.Equal(t, Match("Livia", "Livia Assan"), Match("Livia Assan", "Livia"))
	})

	t.Run("levenshtein", func(t *testing.T) {
		// one substitution over four runes
		assert.InDelta(t, 0.75, Match("casa", "cara"), 1e-9)
	})

	t.Run("completely different", func(t *testing.T) {
		assert.Equal(t, 0.0, Match("abc", "xyz"))
	})

	t.Run("empty against non-empty", func(t *testing.T) {
		assert.Equal(t, 0.0, Match("", "abc"))
	})
}

func TestMatch_Bounds(t *testing.T) {
	samples := []string{"a", "Casa Verde", "LF - Livia", "R$ 1.234,56", "ção", "zzzzzzzzzzzz", " x "}
	for _, a := range samples {
		assert.Equal(t, 1.0, Match(a, a), a)
		for _, b := range samples {
			score := Match(a, b)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 1.0)
		}
	}
}

type contract struct {
	id   int
	name string
}

func name(c contract) string { return c.name }

func TestFindBestMatch(t *testing.T) {
	items := []contract{{1, "Joao Silva"}, {2, "Livia Assan"}, {3, "Livia Assan"}, {4, "Maria"}}

	t.Run("first of equal scores wins", func(t *testing.T) {
		res, ok := FindBestMatch("livia assan", items, name, DefaultThreshold)
		require.True(t, ok)
		assert.Equal(t, 2, res.Item.id)
		assert.Equal(t, 1, res.Index)
		assert.Equal(t, 1.0, res.Score)
	})

	t.Run("below threshold", func(t *testing.T) {
		_, ok := FindBestMatch("Pedro Alvares", items, name, 0.9)
		assert.False(t, ok)
	})

	t.Run("empty collection", func(t *testing.T) {
		_, ok := FindBestMatch("x", []contract{}, name, DefaultThreshold)
		assert.False(t, ok)
	})
}

func TestFindAllMatches(t *testing.T) {
	items := []contract{{1, "Livia"}, {2, "Livia Assan"}, {3, "Lívia Assan"}, {4, "Pedro"}}

	results := FindAllMatches("Livia Assan", items, name, DefaultThreshold)
	require.Len(t, results, 3)
	assert.Equal(t, 2, results[0].Item.id)
	assert.Equal(t, 3, results[1].Item.id)
	assert.Equal(t, 1, results[2].Item.id)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestIndex(t *testing.T) {
	t.Run("small collections scan everything", func(t *testing.T) {
		idx := NewIndex([]contract{{1, "Casa Verde"}, {2, "Casa Azul"}}, name)
		res, ok := idx.Best("casa azul", DefaultThreshold)
		require.True(t, ok)
		assert.Equal(t, 2, res.Item.id)
	})

	t.Run("large collections use the shortlist", func(t *testing.T) {
		items := make([]contract, 0, 300)
		for i := 0; i < 300; i++ {
			items = append(items, contract{i, fmt.Sprintf("Cliente %03d", i)})
		}
		items = append(items, contract{999, "Residencia Alves"})

		idx := NewIndex(items, name)
		assert.Equal(t, 301, idx.Len())

		res, ok := idx.Best("Residência Alves", DefaultThreshold)
		require.True(t, ok)
		assert.Equal(t, 999, res.Item.id)
		assert.Equal(t, 300, res.Index)
	})

	t.Run("falls back to a full scan when the shortlist misses", func(t *testing.T) {
		items := make([]contract, 0, 250)
		for i := 0; i < 249; i++ {
			items = append(items, contract{i, fmt.Sprintf("Cliente %03d", i)})
		}
		items = append(items, contract{999, "LF Arquitetura"})

		idx := NewIndex(items, name)
		want, ok := FindBestMatch("LF", items, name, DefaultThreshold)
		require.True(t, ok)

		res, ok := idx.Best("LF", DefaultThreshold)
		require.True(t, ok)
		assert.Equal(t, 999, res.Item.id)
		assert.Equal(t, want.Index, res.Index)
		assert.Equal(t, 249, res.Index)
	})

	t.Run("no match anywhere", func(t *testing.T) {
		items := make([]contract, 0, 250)
		for i := 0; i < 250; i++ {
			items = append(items, contract{i, fmt.Sprintf("Cliente %03d", i)})
		}

		_, ok := NewIndex(items, name).Best("Residencia Alves", DefaultThreshold)
		assert.False(t, ok)
	})
}
