package services

// Lookup is the result of a query that may legitimately find nothing.
// Absence is not an error; transport failures are returned separately.
type Lookup[T any] struct {
	value T
	found bool
}

// Found wraps a located value.
func Found[T any](v T) Lookup[T] {
	return Lookup[T]{value: v, found: true}
}

// NotFound reports a successful query with no result.
func NotFound[T any]() Lookup[T] {
	return Lookup[T]{}
}

// Get returns the value and whether it was found.
func (l Lookup[T]) Get() (T, bool) {
	return l.value, l.found
}

// IsFound reports whether the lookup located a value.
func (l Lookup[T]) IsFound() bool {
	return l.found
}

// Value returns the located value or the zero value.
func (l Lookup[T]) Value() T {
	return l.value
}
