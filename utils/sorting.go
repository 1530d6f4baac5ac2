package utils

import (
	"cmp"
	"sort"
)

// SortOrder defines the direction of sorting
type SortOrder int

const (
	Ascending SortOrder = iota
	Descending
)

// Identifiable is implemented by anything keyed by a numeric id
type Identifiable interface {
	GetID() uint
}

// SortByScoreMap sorts items using a precomputed score map.
// The sort is stable: items with equal scores keep their input order.
func SortByScoreMap[T Identifiable](items []T, scores map[uint]float64, order SortOrder) {
	sort.SliceStable(items, func(i, j int) bool {
		si, sj := scores[items[i].GetID()], scores[items[j].GetID()]
		if order == Descending {
			return si > sj
		}
		return si < sj
	})
}

// DedupeByID removes repeated ids, keeping the first occurrence
func DedupeByID[T Identifiable](items []T) []T {
	seen := make(map[uint]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		id := item.GetID()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, item)
	}
	return out
}

// Take returns at most n leading items. n <= 0 yields an empty slice.
func Take[T any](items []T, n int) []T {
	if n <= 0 {
		return items[:0]
	}
	if len(items) > n {
		return items[:n]
	}
	return items
}

// Filter keeps the items matching keep, preserving order
func Filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}

// RankMap orders map keys by value descending, ties by key ascending
func RankMap[K cmp.Ordered, V cmp.Ordered](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}
