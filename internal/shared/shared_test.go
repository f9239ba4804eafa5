package shared

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestSplitDisplayName(t *testing.T) {
	tc := []struct {
		name      string
		input     string
		wantFirst string
		wantLast  string
	}{
		{name: "first and last", input: "Ada Lovelace", wantFirst: "Ada", wantLast: "Lovelace"},
		{name: "multiple last names", input: "Juan  de la Cruz", wantFirst: "Juan", wantLast: "de la Cruz"},
		{name: "single word", input: "Cher", wantFirst: "Cher", wantLast: ""},
		{name: "empty", input: "   ", wantFirst: "", wantLast: ""},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			first, last := SplitDisplayName(tt.input)
			if first != tt.wantFirst || last != tt.wantLast {
				t.Errorf("SplitDisplayName(%q) = (%q, %q), want (%q, %q)", tt.input, first, last, tt.wantFirst, tt.wantLast)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Someone@Example.COM "); got != "someone@example.com" {
		t.Errorf("NormalizeEmail() = %q", got)
	}
}

func TestRandomSlug(t *testing.T) {
	t.Run("length and alphabet", func(t *testing.T) {
		slug, err := RandomSlug(10)
		if err != nil {
			t.Fatalf("RandomSlug() error = %v", err)
		}
		if len(slug) != 10 {
			t.Errorf("expected length 10, got %d", len(slug))
		}
		for _, r := range slug {
			if !strings.ContainsRune(slugAlphabet, r) {
				t.Errorf("unexpected rune %q in slug", r)
			}
		}
	})

	t.Run("invalid length", func(t *testing.T) {
		if _, err := RandomSlug(0); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("distinct", func(t *testing.T) {
		seen := map[string]bool{}
		for range 50 {
			slug, _ := RandomSlug(10)
			if seen[slug] {
				t.Fatalf("duplicate slug %q", slug)
			}
			seen[slug] = true
		}
	})
}

func TestParseLogLevel(t *testing.T) {
	tc := []struct {
		input string
		want  log.Level
	}{
		{"debug", log.DebugLevel},
		{"WARN", log.WarnLevel},
		{"", log.InfoLevel},
		{"chatty", log.InfoLevel},
	}
	for _, tt := range tc {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLogLevel(tt.input); got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := WithLogger(NewLogger(&buf), "category", "users")
	logger.Info("hello")
	if !strings.Contains(buf.String(), "category=users") {
		t.Errorf("expected child logger fields in output, got %q", buf.String())
	}
}

func TestMarshalJSON(t *testing.T) {
	compact, err := MarshalJSON(map[string]int{"a": 1}, false)
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}
	if string(compact) != `{"a":1}` {
		t.Errorf("unexpected compact output %s", compact)
	}

	pretty, _ := MarshalJSON(map[string]int{"a": 1}, true)
	if !strings.Contains(string(pretty), "\n") {
		t.Errorf("expected indented output, got %s", pretty)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tc := []struct{ input, want string }{
		{"user-123", "user-123"},
		{"a/b\\c", "a_b_c"},
		{"name with spaces", "name_with_spaces"},
		{"..", "__"},
		{"", "_"},
		{"é", "_"},
	}
	for _, tt := range tc {
		t.Run(tt.input, func(t *testing.T) {
			if got := SanitizeFilename(tt.input); got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
