// package formatter renders playlist search results to various formats (JSON, CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/desertthunder/moodify/internal/models"
	"github.com/desertthunder/moodify/internal/shared"
)

// Format is an export format name.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "txt"
)

// Formats lists the supported formats in help order.
var Formats = []Format{FormatText, FormatJSON, FormatCSV, FormatMarkdown}

// ParseFormat resolves a format name. "md" and "text" are accepted as aliases.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "txt", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, name)
	}
}

// Export renders results in the given format. title heads the Markdown and text outputs.
func Export(format Format, title string, results []models.PlaylistSummary) ([]byte, error) {
	switch format {
	case FormatJSON:
		return ExportToJSON(results)
	case FormatCSV:
		return ExportToCSV(results)
	case FormatMarkdown:
		return ExportToMarkdown(title, results)
	case FormatText:
		return ExportToText(title, results)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// ExportToJSON renders results as an indented JSON array. An empty list renders as [].
func ExportToJSON(results []models.PlaylistSummary) ([]byte, error) {
	if results == nil {
		results = []models.PlaylistSummary{}
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// ExportToCSV converts results to CSV format with columns: ID, Name, Owner, Tracks, URL, Description
func ExportToCSV(results []models.PlaylistSummary) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Name", "Owner", "Tracks", "URL", "Description"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, p := range results {
		record := []string{
			p.ID,
			p.Name,
			p.Owner,
			strconv.Itoa(p.TrackCount),
			p.ExternalURL,
			p.Description,
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

// ExportToMarkdown converts results to a Markdown list with cover thumbnails
func ExportToMarkdown(title string, results []models.PlaylistSummary) ([]byte, error) {
	var buf bytes.Buffer

	if title != "" {
		buf.WriteString(fmt.Sprintf("# %s\n\n", title))
	}
	buf.WriteString(fmt.Sprintf("**Playlists**: %d\n\n", len(results)))

	for i, p := range results {
		name := escapeMarkdown(p.Name)
		if p.ExternalURL != "" {
			name = fmt.Sprintf("[%s](%s)", name, p.ExternalURL)
		}
		buf.WriteString(fmt.Sprintf("%d. %s", i+1, name))
		if p.Owner != "" {
			buf.WriteString(fmt.Sprintf(" by %s", escapeMarkdown(p.Owner)))
		}
		if p.TrackCount > 0 {
			buf.WriteString(fmt.Sprintf(" (%d tracks)", p.TrackCount))
		}
		buf.WriteString("\n")

		if p.ImageURL != "" {
			buf.WriteString(fmt.Sprintf("   ![Cover](%s)\n", p.ImageURL))
		}
		if p.Description != "" {
			buf.WriteString(fmt.Sprintf("   > %s\n", escapeMarkdown(p.Description)))
		}
	}

	return buf.Bytes(), nil
}

// ExportToText converts results to plain text format
func ExportToText(title string, results []models.PlaylistSummary) ([]byte, error) {
	var buf bytes.Buffer

	if title != "" {
		buf.WriteString(fmt.Sprintf("Search: %s\n", title))
	}
	buf.WriteString(fmt.Sprintf("Playlists: %d\n\n", len(results)))

	for i, p := range results {
		line := fmt.Sprintf("%d. %s", i+1, p.Name)
		if p.Owner != "" {
			line += fmt.Sprintf(" - %s", p.Owner)
		}
		if p.ExternalURL != "" {
			line += fmt.Sprintf(" <%s>", p.ExternalURL)
		}
		buf.WriteString(line + "\n")
	}

	return buf.Bytes(), nil
}

// WriteExport renders results and writes them to path, creating parent directories as needed.
func WriteExport(path string, format Format, title string, results []models.PlaylistSummary) error {
	if path == "" {
		return fmt.Errorf("%w: output path", shared.ErrMissingArgument)
	}

	data, err := Export(format, title, results)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s file: %w", format, err)
	}
	return nil
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "[", `\[`, "]", `\]`, "*", `\*`, "_", `\_`, "`", "\\`", "\n", " ",
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
