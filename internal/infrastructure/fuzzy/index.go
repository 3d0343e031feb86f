package fuzzy

import (
	"sort"

	"github.com/schollz/closestmatch"
)

// indexMinSize is the collection size below which Index scans everything.
const indexMinSize = 200

// shortlistSize is how many n-gram neighbours are rescored per query.
const shortlistSize = 25

// Index speeds up repeated lookups against a large collection by
// shortlisting candidates with n-gram bags before exact scoring.
// Small collections are scanned in full.
type Index[T any] struct {
	items  []T
	key    func(T) string
	cm     *closestmatch.ClosestMatch
	byText map[string][]int
}

// NewIndex builds an index over items.
func NewIndex[T any](items []T, key func(T) string) *Index[T] {
	idx := &Index[T]{items: items, key: key}
	if len(items) < indexMinSize {
		return idx
	}

	idx.byText = make(map[string][]int, len(items))
	keys := make([]string, 0, len(items))
	for i, item := range items {
		text := Normalize(key(item))
		if text == "" {
			continue
		}
		if _, seen := idx.byText[text]; !seen {
			keys = append(keys, text)
		}
		idx.byText[text] = append(idx.byText[text], i)
	}
	if len(keys) > 0 {
		idx.cm = closestmatch.New(keys, []int{2, 3})
	}
	return idx
}

// Len returns the number of indexed items
func (idx *Index[T]) Len() int {
	return len(idx.items)
}

// Best returns the best match for query at or above threshold.
// When no shortlisted candidate reaches threshold the whole collection is
// scanned, so Best finds a match whenever FindBestMatch would. A shortlist
// hit is the best among the shortlist only.
func (idx *Index[T]) Best(query string, threshold float64) (Result[T], bool) {
	if idx.cm == nil {
		return FindBestMatch(query, idx.items, idx.key, threshold)
	}

	positions := idx.shortlist(query)
	candidates := make([]T, len(positions))
	for i, pos := range positions {
		candidates[i] = idx.items[pos]
	}
	res, ok := FindBestMatch(query, candidates, idx.key, threshold)
	if !ok {
		return FindBestMatch(query, idx.items, idx.key, threshold)
	}
	res.Index = positions[res.Index]
	return res, true
}

// shortlist returns candidate positions in input order, so ties still
// resolve to the earliest item.
func (idx *Index[T]) shortlist(query string) []int {
	q := Normalize(query)
	seen := map[int]struct{}{}
	var positions []int
	add := func(text string) {
		for _, pos := range idx.byText[text] {
			if _, dup := seen[pos]; !dup {
				seen[pos] = struct{}{}
				positions = append(positions, pos)
			}
		}
	}
	add(q)
	for _, text := range idx.cm.ClosestN(q, shortlistSize) {
		add(text)
	}
	sort.Ints(positions)
	return positions
}
