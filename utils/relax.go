package utils

// Tier is one step of a progressive relaxation: a predicate and the
// minimum number of survivors needed for the step to be accepted.
type Tier[T any] struct {
	Name     string
	Keep     func(T) bool
	MinCount int
}

// RelaxResult reports which tier was accepted.
// Tier is empty when every tier under-produced and the fallback was used.
type RelaxResult[T any] struct {
	Items []T
	Tier  string
}

// Relax evaluates tiers in order and returns the first whose survivors
// reach its MinCount. When none does, fallback(items) is returned.
// A nil fallback returns items unchanged.
func Relax[T any](items []T, fallback func([]T) []T, tiers ...Tier[T]) RelaxResult[T] {
	for _, tier := range tiers {
		kept := Filter(items, tier.Keep)
		if len(kept) >= tier.MinCount {
			return RelaxResult[T]{Items: kept, Tier: tier.Name}
		}
	}
	if fallback == nil {
		return RelaxResult[T]{Items: items}
	}
	return RelaxResult[T]{Items: fallback(items)}
}
