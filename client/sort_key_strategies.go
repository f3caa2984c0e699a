package client

import "github.com/halvard/ddbexpr/predicate"

// SortKeyStrategy builds the sort-key half of a key condition once the
// sort key property name is known.
type SortKeyStrategy func(skProperty string) predicate.Node

// Equals matches items whose sort key equals the value.
func Equals[T any](v T) SortKeyStrategy {
	return func(sk string) predicate.Node { return predicate.Eq(sk, v) }
}

// BeginsWith matches items whose sort key starts with the prefix.
func BeginsWith(prefix string) SortKeyStrategy {
	return func(sk string) predicate.Node { return predicate.BeginsWith(sk, prefix) }
}

// Between matches items whose sort key is within the inclusive range.
func Between[T any](start, end T) SortKeyStrategy {
	return func(sk string) predicate.Node { return predicate.Between(sk, start, end) }
}

// GreaterThan matches items whose sort key is greater than the value.
func GreaterThan[T any](v T) SortKeyStrategy {
	return func(sk string) predicate.Node { return predicate.Gt(sk, v) }
}

// GreaterThanOrEqual matches items whose sort key is at least the value.
func GreaterThanOrEqual[T any](v T) SortKeyStrategy {
	return func(sk string) predicate.Node { return predicate.Ge(sk, v) }
}

// LessThan matches items whose sort key is less than the value.
func LessThan[T any](v T) SortKeyStrategy {
	return func(sk string) predicate.Node { return predicate.Lt(sk, v) }
}

// LessThanOrEqual matches items whose sort key is at most the value.
func LessThanOrEqual[T any](v T) SortKeyStrategy {
	return func(sk string) predicate.Node { return predicate.Le(sk, v) }
}

func ptr[T any](v T) *T {
	return &v
}
