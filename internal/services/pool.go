package services

import (
	"fmt"

	"github.com/desertthunder/docmigrate/internal/shared"
)

// CredentialPool hands out one of N equivalent API clients, each bound to its own credential
// and rate limiter.
type CredentialPool[T any] struct {
	members []T
}

// NewCredentialPool builds a pool over members. An empty pool is a configuration error.
func NewCredentialPool[T any](members ...T) (*CredentialPool[T], error) {
	if len(members) == 0 {
		return nil, fmt.Errorf("%w: credential pool is empty", shared.ErrMissingCredentials)
	}
	return &CredentialPool[T]{members: members}, nil
}

// Size returns the number of credentials.
func (p *CredentialPool[T]) Size() int {
	return len(p.members)
}

// At returns the member for partition i, wrapping around the pool.
func (p *CredentialPool[T]) At(i int) T {
	if i < 0 {
		i = -i
	}
	return p.members[i%len(p.members)]
}

// Partition splits items into at most parts contiguous chunks of near-equal size.
// Partition i is meant to be served by [CredentialPool.At](i).
func Partition[T any](items []T, parts int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if parts <= 0 {
		parts = 1
	}
	if parts > len(items) {
		parts = len(items)
	}

	size, extra := len(items)/parts, len(items)%parts
	out := make([][]T, 0, parts)
	start := 0
	for i := range parts {
		end := start + size
		if i < extra {
			end++
		}
		out = append(out, items[start:end])
		start = end
	}
	return out
}
