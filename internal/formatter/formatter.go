// package formatter renders run summaries and run history as text, JSON or CSV
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/desertthunder/docmigrate/internal/models"
	"github.com/desertthunder/docmigrate/internal/shared"
)

// Format names a summary rendering.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat resolves a format name. The empty string means text.
func ParseFormat(name string) (Format, error) {
	switch Format(name) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatCSV:
		return Format(name), nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (expected text, json or csv)", shared.ErrInvalidArgument, name)
	}
}

// Render writes s to w in the given format.
func Render(w io.Writer, s *models.Summary, format Format) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatJSON:
		data, err = SummaryToJSON(s)
	case FormatCSV:
		data, err = SummaryToCSV(s)
	default:
		data = SummaryToText(s)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// SummaryToText renders a human-readable report.
func SummaryToText(s *models.Summary) []byte {
	var buf bytes.Buffer

	mode := ""
	if s.DryRun {
		mode = " (dry run)"
	}
	buf.WriteString(fmt.Sprintf("Ingestion summary: %s%s\n\n", s.Category, mode))
	buf.WriteString(fmt.Sprintf("Files:     %d\n", s.Total))
	buf.WriteString(fmt.Sprintf("Processed: %d\n", s.Processed))
	buf.WriteString(fmt.Sprintf("Skipped:   %d\n", s.Skipped))
	for _, reason := range []models.SkipReason{models.SkipAlreadyExists, models.SkipDryRun, models.SkipDeleted, models.SkipInvalid} {
		if n := s.SkipCounts[reason]; n > 0 {
			buf.WriteString(fmt.Sprintf("  %-15s %d\n", reason, n))
		}
	}
	buf.WriteString(fmt.Sprintf("Errored:   %d\n", s.Errored))
	if s.Duration > 0 {
		buf.WriteString(fmt.Sprintf("Duration:  %s\n", s.Duration.Round(time.Millisecond)))
	}

	if items := s.Items; items != nil {
		buf.WriteString("\nItems\n")
		buf.WriteString(fmt.Sprintf("  saved:                   %d\n", items.Saved))
		buf.WriteString(fmt.Sprintf("  skipped missing catalog: %d\n", items.SkippedMissingCatalog))
		buf.WriteString(fmt.Sprintf("  skipped missing owner:   %d\n", items.SkippedMissingOwner))
		if items.Failed > 0 {
			buf.WriteString(fmt.Sprintf("  failed:                  %d\n", items.Failed))
		}
		buf.WriteString(fmt.Sprintf("  unique catalog entries:  %d\n", items.UniqueVariants()))

		if dist := items.Distribution(); len(dist) > 0 {
			buf.WriteString("\nLanguages\n")
			for _, lc := range dist {
				buf.WriteString(fmt.Sprintf("  %-10s %d\n", lc.LanguageID, lc.Count))
			}
		}
	}

	if len(s.Errors) > 0 {
		buf.WriteString("\nErrors\n")
		for _, fe := range s.Errors {
			buf.WriteString(fmt.Sprintf("  %s: %s\n", fe.File, fe.Error))
		}
	}
	return buf.Bytes()
}

// SummaryToJSON renders the summary with the item distribution expanded.
func SummaryToJSON(s *models.Summary) ([]byte, error) {
	return shared.MarshalJSON(manifestFrom(s), true)
}

// SummaryToCSV renders the per-language distribution of a playlist run. Runs without item
// statistics render their counters as metric,value rows.
func SummaryToCSV(s *models.Summary) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	var rows [][]string
	if s.Items != nil {
		rows = append(rows, []string{"language_id", "count"})
		for _, lc := range s.Items.Distribution() {
			rows = append(rows, []string{lc.LanguageID, strconv.Itoa(lc.Count)})
		}
	} else {
		rows = [][]string{
			{"metric", "value"},
			{"total", strconv.Itoa(s.Total)},
			{"processed", strconv.Itoa(s.Processed)},
			{"skipped", strconv.Itoa(s.Skipped)},
			{"errored", strconv.Itoa(s.Errored)},
		}
	}

	for _, record := range rows {
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// Manifest is the JSON document written after a run.
type Manifest struct {
	*models.Summary
	UniqueVariants int                    `json:"unique_catalog_entries,omitempty"`
	Languages      []models.LanguageCount `json:"language_distribution,omitempty"`
	DurationText   string                 `json:"duration_text"`
}

func manifestFrom(s *models.Summary) Manifest {
	m := Manifest{Summary: s, DurationText: s.Duration.Round(time.Millisecond).String()}
	if s.Items != nil {
		m.UniqueVariants = s.Items.UniqueVariants()
		m.Languages = s.Items.Distribution()
	}
	return m
}

// WriteManifest writes the JSON summary to dir/<category>_manifest.json and returns its path.
func WriteManifest(s *models.Summary, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create manifest directory: %w", err)
	}

	data, err := SummaryToJSON(s)
	if err != nil {
		return "", fmt.Errorf("failed to encode manifest: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_manifest.json", s.Category))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}
	return path, nil
}

// RunsToText renders run history as an aligned table, newest first as given.
func RunsToText(runs []*models.IngestRun) []byte {
	var buf bytes.Buffer
	if len(runs) == 0 {
		buf.WriteString("No ingestion runs recorded.\n")
		return buf.Bytes()
	}

	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tCATEGORY\tSTATUS\tDRY RUN\tPROCESSED\tSKIPPED\tERRORED\tSTARTED\tDURATION")
	for _, r := range runs {
		duration := "-"
		if r.FinishedAt != nil {
			duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%t\t%d\t%d\t%d\t%s\t%s\n",
			r.Sequence, r.Category, r.Status, r.DryRun, r.Processed, r.Skipped, r.Errored,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"), duration)
	}
	tw.Flush()
	return buf.Bytes()
}
