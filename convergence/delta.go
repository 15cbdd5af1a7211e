// Package convergence implements the roundtable's stop-rule evaluation
// as a pure function over iteration history, grounded on
// original_source/src/ai_orchestrator/convergence.py.
package convergence

import "github.com/pmezard/go-difflib/difflib"

// Delta measures how much current differs from prev, on a [0,1] scale
// where 0 means identical and 1 means completely different. It satisfies
// P5: symmetric, delta=0 iff the two strings are equal, delta=1 whenever
// exactly one side is empty and the other is not, and monotonic under a
// pure insertion or deletion (removing/adding characters can only move
// the two strings further apart, never closer, since SequenceMatcher's
// longest-matching-blocks ratio only decreases as one side grows without
// gaining any new matching runs).
//
// This is the same algorithm original_source's calculate_document_delta
// uses (Python's difflib.SequenceMatcher.ratio()); go-difflib is a
// faithful port of that algorithm, chosen over the O(1) character-length
// ratio spec.md also permits. SequenceMatcher's ratio depends on argument
// order (ratio("tide","diet") is 0.25 but ratio("diet","tide") is 0.5), so
// Delta computes it in both directions and keeps the larger ratio, which
// makes the result symmetric.
func Delta(prev, current string) float64 {
	if prev == "" && current == "" {
		return 0
	}
	if prev == "" || current == "" {
		return 1
	}
	a, b := splitChars(prev), splitChars(current)
	forward := difflib.NewMatcher(a, b).Ratio()
	backward := difflib.NewMatcher(b, a).Ratio()
	return 1 - max(forward, backward)
}

// splitChars breaks s into single-rune strings, the unit go-difflib's
// SequenceMatcher compares over — matching Python's per-character
// comparison of str objects.
func splitChars(s string) []string {
	runes := []rune(s)
	out := make([]string, len(runes))
	for i, r := range runes {
		out[i] = string(r)
	}
	return out
}
