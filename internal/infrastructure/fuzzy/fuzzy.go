// Package fuzzy scores free-text similarity for resolving entity references,
// such as an extracted client name against existing contracts.
// Scores are never used for identity decisions.
package fuzzy

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/arqcashflow/backend/internal/infrastructure/locale"
	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// DefaultThreshold is the minimum score FindBestMatch and FindAllMatches accept
// when callers have no stronger requirement.
const DefaultThreshold = 0.6

var editOptions = levenshtein.Options{
	InsCost: 1,
	DelCost: 1,
	SubCost: 1,
	Matches: levenshtein.IdenticalRunes,
}

// Normalize prepares text for comparison: case, accents and whitespace runs
// are ignored.
func Normalize(s string) string {
	return locale.CleanText(locale.Fold(s))
}

// Match returns a similarity score in [0,1].
// Equal normalized strings score 1. When one contains the other the score is
// 0.8 plus up to 0.2 in proportion to how much of the longer string the
// shorter covers. Otherwise it is 1 - distance/maxLength, floored at 0.
func Match(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == nb {
		return 1.0
	}
	if na == "" || nb == "" {
		return 0
	}

	la, lb := utf8.RuneCountInString(na), utf8.RuneCountInString(nb)
	needle, haystack, ln, lh := na, nb, la, lb
	if la > lb {
		needle, haystack, ln, lh = nb, na, lb, la
	}
	if strings.Contains(haystack, needle) {
		return 0.8 + float64(ln)/float64(lh)*0.2
	}

	dist := levenshtein.DistanceForStrings([]rune(na), []rune(nb), editOptions)
	score := 1 - float64(dist)/float64(max(la, lb))
	if score < 0 {
		return 0
	}
	return score
}

// Result is one scored candidate.
type Result[T any] struct {
	Item  T
	Index int
	Score float64
}

// FindAllMatches scores every item against query and returns those at or
// above threshold, best first. Equal scores keep input order.
func FindAllMatches[T any](query string, items []T, key func(T) string, threshold float64) []Result[T] {
	var results []Result[T]
	for i, item := range items {
		score := Match(query, key(item))
		if score >= threshold {
			results = append(results, Result[T]{Item: item, Index: i, Score: score})
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// FindBestMatch returns the highest-scoring item at or above threshold.
// The first item wins a tie.
func FindBestMatch[T any](query string, items []T, key func(T) string, threshold float64) (Result[T], bool) {
	var best Result[T]
	found := false
	for i, item := range items {
		score := Match(query, key(item))
		if score < threshold {
			continue
		}
		if !found || score > best.Score {
			best = Result[T]{Item: item, Index: i, Score: score}
			found = true
		}
	}
	return best, found
}
