// package formatter renders continue-watching lists to export formats (JSON, CSV, Markdown, plain text)
// and builds third-party player embed URLs.
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/lunastream/internal/models"
	"github.com/desertthunder/lunastream/internal/shared"
)

// Format is an export format name.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// ParseFormat parses a format name. "md" and "txt" are accepted as aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "text", "txt", "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidFlag, s)
	}
}

// Extension returns the file extension used for the format.
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatCSV:
		return ".csv"
	case FormatMarkdown:
		return ".md"
	default:
		return ".txt"
	}
}

// ExportToJSON renders entries as an indented JSON array.
func ExportToJSON(entries []models.WatchProgressEntry) ([]byte, error) {
	if entries == nil {
		entries = []models.WatchProgressEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// ExportToCSV renders entries with columns: Kind, ID, Title, Season, Episode, Position, Duration, Updated
func ExportToCSV(entries []models.WatchProgressEntry) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Kind", "ID", "Title", "Season", "Episode", "Position", "Duration", "Updated"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, e := range entries {
		record := []string{
			e.Kind.String(),
			strconv.Itoa(e.SubjectID),
			e.Title,
			optionalInt(e.Season),
			optionalInt(e.Episode),
			strconv.FormatFloat(e.PositionSeconds, 'f', -1, 64),
			strconv.FormatFloat(e.DurationSeconds, 'f', -1, 64),
			e.LastUpdatedAt.UTC().Format(time.RFC3339),
		}
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

// ExportToMarkdown renders entries as a Markdown list.
//
// When imageBase is set, poster paths are rendered as images under that base URL.
func ExportToMarkdown(entries []models.WatchProgressEntry, imageBase string) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Continue Watching\n\n")
	buf.WriteString(fmt.Sprintf("**Titles**: %d\n\n", len(entries)))

	for i, e := range entries {
		buf.WriteString(fmt.Sprintf("%d. **%s** (%s)", i+1, e.Label(), e.Kind))
		if e.DurationSeconds > 0 {
			buf.WriteString(fmt.Sprintf(" [%s / %s]", shared.FormatSeconds(e.PositionSeconds), shared.FormatSeconds(e.DurationSeconds)))
		}
		buf.WriteString(fmt.Sprintf(" `%s`\n", e.ResumePath()))

		if imageBase != "" && e.PosterPath != "" {
			buf.WriteString(fmt.Sprintf("   ![%s](%s%s)\n", e.Title, strings.TrimRight(imageBase, "/"), e.PosterPath))
		}
	}

	return buf.Bytes(), nil
}

// ExportToText renders entries as plain text
func ExportToText(entries []models.WatchProgressEntry) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Continue watching: %d\n\n", len(entries)))

	for i, e := range entries {
		buf.WriteString(fmt.Sprintf("%d. %s", i+1, e.Label()))
		if !e.LastUpdatedAt.IsZero() {
			buf.WriteString(fmt.Sprintf(" (%s)", e.LastUpdatedAt.Local().Format("2006-01-02 15:04")))
		}
		buf.WriteByte('\n')
	}

	return buf.Bytes(), nil
}

// Export renders entries in the given format.
func Export(entries []models.WatchProgressEntry, format Format, imageBase string) ([]byte, error) {
	switch format {
	case FormatJSON:
		return ExportToJSON(entries)
	case FormatCSV:
		return ExportToCSV(entries)
	case FormatMarkdown:
		return ExportToMarkdown(entries, imageBase)
	case FormatText:
		return ExportToText(entries)
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidFlag, format)
	}
}

// WriteExport renders entries and writes them to path.
//
// Defaults to continue_watching{ext} in the working directory.
func WriteExport(entries []models.WatchProgressEntry, format Format, path, imageBase string) (string, error) {
	if path == "" {
		path = "continue_watching" + format.Extension()
	}

	data, err := Export(entries, format, imageBase)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", format, err)
	}

	return path, nil
}

func optionalInt(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}
