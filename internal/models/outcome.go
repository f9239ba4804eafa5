package models

import (
	"sort"
	"time"
)

// OutcomeKind discriminates an [Outcome].
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeSkipped
	OutcomeError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeError:
		return "error"
	default:
		return "unknown"
	}
}

// SkipReason explains an [OutcomeSkipped] outcome.
type SkipReason string

const (
	SkipAlreadyExists SkipReason = "already-exists"
	SkipDryRun        SkipReason = "dry-run"
	SkipDeleted       SkipReason = "deleted-marker"
	SkipInvalid       SkipReason = "invalid"
)

// Outcome is the result of ingesting one cached file.
type Outcome struct {
	File    string
	Kind    OutcomeKind
	Reason  SkipReason
	Entity  any
	Err     error
	Payload any
	Items   *ItemStats
}

// Success builds a successful outcome for file.
func Success(file string, entity any) Outcome {
	return Outcome{File: file, Kind: OutcomeSuccess, Entity: entity}
}

// Skipped builds a skipped outcome for file.
func Skipped(file string, reason SkipReason) Outcome {
	return Outcome{File: file, Kind: OutcomeSkipped, Reason: reason}
}

// Failed builds an error outcome carrying the offending payload.
func Failed(file string, err error, payload any) Outcome {
	return Outcome{File: file, Kind: OutcomeError, Err: err, Payload: payload}
}

// ItemStats aggregates playlist item results.
type ItemStats struct {
	Saved                 int            `json:"saved"`
	SkippedMissingCatalog int            `json:"skipped_missing_catalog"`
	SkippedMissingOwner   int            `json:"skipped_missing_owner"`
	Failed                int            `json:"failed"`
	Languages             map[string]int `json:"languages"`

	variants map[string]struct{}
}

// NewItemStats returns empty item statistics.
func NewItemStats() *ItemStats {
	return &ItemStats{Languages: map[string]int{}, variants: map[string]struct{}{}}
}

// RecordSaved counts a saved item against its catalog variant and language.
func (s *ItemStats) RecordSaved(variantID, languageID string) {
	s.Saved++
	s.variants[variantID] = struct{}{}
	s.Languages[languageID]++
}

// UniqueVariants returns how many distinct catalog entries saved items reference.
func (s *ItemStats) UniqueVariants() int {
	return len(s.variants)
}

// Merge folds other into s.
func (s *ItemStats) Merge(other *ItemStats) {
	if other == nil {
		return
	}
	s.Saved += other.Saved
	s.SkippedMissingCatalog += other.SkippedMissingCatalog
	s.SkippedMissingOwner += other.SkippedMissingOwner
	s.Failed += other.Failed
	for lang, n := range other.Languages {
		s.Languages[lang] += n
	}
	for v := range other.variants {
		s.variants[v] = struct{}{}
	}
}

// LanguageCount is one row of the per-language distribution.
type LanguageCount struct {
	LanguageID string `json:"language_id"`
	Count      int    `json:"count"`
}

// Distribution returns per-language counts sorted by count descending, then language id.
func (s *ItemStats) Distribution() []LanguageCount {
	out := make([]LanguageCount, 0, len(s.Languages))
	for lang, n := range s.Languages {
		out = append(out, LanguageCount{LanguageID: lang, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].LanguageID < out[j].LanguageID
	})
	return out
}

// FileError identifies one failed file in a [Summary].
type FileError struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// Summary aggregates every outcome of a run.
type Summary struct {
	Category   Category           `json:"category"`
	DryRun     bool               `json:"dry_run"`
	Total      int                `json:"total"`
	Processed  int                `json:"processed"`
	Skipped    int                `json:"skipped"`
	Errored    int                `json:"errored"`
	SkipCounts map[SkipReason]int `json:"skip_reasons"`
	Errors     []FileError        `json:"errors,omitempty"`
	Items      *ItemStats         `json:"items,omitempty"`
	StartedAt  time.Time          `json:"started_at"`
	Duration   time.Duration      `json:"duration"`
}

// NewSummary returns an empty summary for category.
func NewSummary(category Category, dryRun bool) *Summary {
	s := &Summary{
		Category:   category,
		DryRun:     dryRun,
		SkipCounts: map[SkipReason]int{},
		StartedAt:  time.Now(),
	}
	if category == CategoryPlaylists {
		s.Items = NewItemStats()
	}
	return s
}

// Add folds one outcome into the summary.
func (s *Summary) Add(o Outcome) {
	s.Total++
	switch o.Kind {
	case OutcomeSuccess:
		s.Processed++
	case OutcomeSkipped:
		s.Skipped++
		s.SkipCounts[o.Reason]++
	case OutcomeError:
		s.Errored++
		msg := ""
		if o.Err != nil {
			msg = o.Err.Error()
		}
		s.Errors = append(s.Errors, FileError{File: o.File, Error: msg})
	}
	if s.Items != nil {
		s.Items.Merge(o.Items)
	}
}
