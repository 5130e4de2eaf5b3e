// package formatter writes a mixtape queue to disk as CSV, Markdown, plain text or JSON
package formatter

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/desertthunder/mixtape/internal/models"
)

// Format names accepted by [Write].
const (
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "text"
	FormatJSON     = "json"
)

// ExportToCSV converts a QueueExport to CSV with columns: Position, Title, Artist, Spotify ID, Spotify URI, Added At
func ExportToCSV(export *models.QueueExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "Title", "Artist", "Spotify ID", "Spotify URI", "Added At"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, entry := range export.Entries {
		record := []string{
			strconv.Itoa(i + 1),
			entry.Title,
			entry.Artist,
			entry.SpotifyTrackID,
			entry.SpotifyURI,
			entry.AddedAt.UTC().Format(time.RFC3339),
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

// ExportToMarkdown converts a QueueExport to Markdown with an optional cover image
func ExportToMarkdown(export *models.QueueExport, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s's mixtape\n\n", export.Owner)

	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}

	fmt.Fprintf(&buf, "**Tracks**: %d\n", len(export.Entries))
	fmt.Fprintf(&buf, "**Exported**: %s\n\n", export.ExportedAt.UTC().Format("2006-01-02 15:04"))

	buf.WriteString("## Tracks\n\n")
	for i, entry := range export.Entries {
		fmt.Fprintf(&buf, "%d. %s - %s", i+1, entry.Artist, entry.Title)
		if entry.PreviewURL != nil && *entry.PreviewURL != "" {
			fmt.Fprintf(&buf, " ([preview](%s))", *entry.PreviewURL)
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ExportToText converts a QueueExport to plain text
func ExportToText(export *models.QueueExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Mixtape: %s\n", export.Owner)
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(export.Entries))

	for i, entry := range export.Entries {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, entry.Artist, entry.Title)
	}

	return buf.Bytes(), nil
}

// ExportToJSON converts a QueueExport to indented JSON
func ExportToJSON(export *models.QueueExport) ([]byte, error) {
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// DownloadImage fetches the image at url with client and returns the raw bytes.
//
// A nil client uses one with a 30 second timeout.
func DownloadImage(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build image request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
}

// WriteMarkdownExport writes README.md (and cover.jpg when the queue has album art) into outputDir.
//
// A failed cover download is reported through warn and does not fail the export.
func WriteMarkdownExport(ctx context.Context, client *http.Client, export *models.QueueExport, outputDir string, warn func(error)) (*MarkdownExportResult, error) {
	if outputDir == "" {
		return nil, fmt.Errorf("output directory is required")
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{Directory: outputDir, Files: []string{}}

	var coverImageFilename string
	if url := export.CoverURL(); url != "" {
		imageData, err := DownloadImage(ctx, client, url)
		if err == nil {
			coverImagePath := filepath.Join(outputDir, "cover.jpg")
			if err = os.WriteFile(coverImagePath, imageData, 0644); err == nil {
				coverImageFilename = "cover.jpg"
				result.CoverImage = coverImagePath
				result.Files = append(result.Files, coverImagePath)
			}
		}
		if err != nil && warn != nil {
			warn(err)
		}
	}

	mdData, err := ExportToMarkdown(export, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)
	return result, nil
}

// Render returns the export encoded in format.
func Render(export *models.QueueExport, format string) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(export)
	case FormatMarkdown:
		return ExportToMarkdown(export, "")
	case FormatText:
		return ExportToText(export)
	case FormatJSON:
		return ExportToJSON(export)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// WriteFile renders the export in format and writes it to path.
func WriteFile(export *models.QueueExport, format, path string) error {
	data, err := Render(export, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s file: %w", format, err)
	}
	return nil
}
