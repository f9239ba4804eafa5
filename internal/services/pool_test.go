package services

import (
	"errors"
	"testing"

	"github.com/desertthunder/docmigrate/internal/shared"
)

func TestCredentialPool(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		if _, err := NewCredentialPool[string](); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("At wraps", func(t *testing.T) {
		pool, _ := NewCredentialPool("a", "b")
		if pool.At(3) != "b" {
			t.Errorf("At(3) = %s, want b", pool.At(3))
		}
	})
}

func TestPartition(t *testing.T) {
	tc := []struct {
		name  string
		items []int
		parts int
		sizes []int
	}{
		{name: "even halves", items: []int{1, 2, 3, 4}, parts: 2, sizes: []int{2, 2}},
		{name: "odd split", items: []int{1, 2, 3, 4, 5}, parts: 2, sizes: []int{3, 2}},
		{name: "more parts than items", items: []int{1, 2}, parts: 5, sizes: []int{1, 1}},
		{name: "three ways", items: []int{1, 2, 3, 4, 5, 6, 7}, parts: 3, sizes: []int{3, 2, 2}},
		{name: "empty", items: nil, parts: 2, sizes: nil},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			chunks := Partition(tt.items, tt.parts)
			if len(chunks) != len(tt.sizes) {
				t.Fatalf("expected %d chunks, got %d", len(tt.sizes), len(chunks))
			}
			total := 0
			for i, c := range chunks {
				if len(c) != tt.sizes[i] {
					t.Errorf("chunk %d has %d items, want %d", i, len(c), tt.sizes[i])
				}
				total += len(c)
			}
			if total != len(tt.items) {
				t.Errorf("partition lost items: %d of %d", total, len(tt.items))
			}
		})
	}
}

func TestLookup(t *testing.T) {
	found := Found(42)
	if v, ok := found.Get(); !ok || v != 42 {
		t.Errorf("Found(42).Get() = %d, %v", v, ok)
	}
	missing := NotFound[int]()
	if missing.IsFound() || missing.Value() != 0 {
		t.Error("NotFound should report absence with zero value")
	}
}
