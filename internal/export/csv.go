// Package export turns normalized citation rows into CSV artifacts.
// The column layouts are a fixed external interface.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/mkoval/scholarcsv/internal/align"
	"github.com/mkoval/scholarcsv/internal/model"
)

// Builder writes export artifacts under a directory, named by job ID.
type Builder struct {
	Dir string
}

// NewBuilder creates a Builder rooted at dir.
func NewBuilder(dir string) *Builder {
	return &Builder{Dir: dir}
}

// PublicationCSV writes the per-publication export for a single author:
// one row per publication, ranked by total citations descending, with
// numYears phase-shifted year columns.
func (b *Builder) PublicationCSV(jobID string, author model.AuthorRecord, ranked []model.Publication, numYears int) (string, error) {
	header := []string{"Rank", "Title", "Authors", "Journal", "Year of publication", "Qualifying venue", "Full article"}
	for i := 1; i <= numYears; i++ {
		header = append(header, fmt.Sprintf("Year %d", i))
	}
	header = append(header, "TOTAL citations")

	rows := make([][]string, 0, len(ranked))
	for i, pub := range ranked {
		row := []string{
			strconv.Itoa(i + 1),
			pub.Title,
			pub.Authors,
			pub.Venue,
			optionalYear(pub.Year),
			yesNo(pub.Qualifying),
			yesNo(pub.FullArticle),
		}
		row = append(row, align.PublicationRow(pub, numYears)...)
		row = append(row, strconv.Itoa(pub.TotalCitations))
		rows = append(rows, row)
	}
	return b.write(jobID, header, rows)
}

// SummaryCSV writes the author-summary export for a batch: one row per
// author on a uniform summary axis. Cells beyond an author's own span
// stay blank.
func (b *Builder) SummaryCSV(jobID string, authors []model.AuthorRecord, numYears int) (string, error) {
	header := []string{
		"Name", "Affiliation", "Scholar ID",
		"# citations", "h-index", "i10-index",
		"# qualifying publications",
		"Summary start year", "Summary end year",
	}
	for i := 1; i <= numYears; i++ {
		header = append(header, fmt.Sprintf("Year %d", i))
	}

	rows := make([][]string, 0, len(authors))
	for _, a := range authors {
		row := []string{
			a.Name,
			a.Affiliation,
			a.ScholarID,
			strconv.Itoa(a.TotalCitations),
			strconv.Itoa(a.HIndex),
			strconv.Itoa(a.I10Index),
			strconv.Itoa(a.QualifyingCount),
			strconv.Itoa(a.SummaryStartYear),
			strconv.Itoa(a.SummaryEndYear),
		}
		row = append(row, align.SummaryRow(a, numYears)...)
		rows = append(rows, row)
	}
	return b.write(jobID, header, rows)
}

func (b *Builder) write(jobID string, header []string, rows [][]string) (string, error) {
	if err := os.MkdirAll(b.Dir, 0o755); err != nil {
		return "", fmt.Errorf("creating artifact directory: %w", err)
	}

	path := filepath.Join(b.Dir, jobID+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating artifact file: %w", err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("writing header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("writing row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flushing artifact: %w", err)
	}
	return path, nil
}

func optionalYear(y *int) string {
	if y == nil {
		return ""
	}
	return strconv.Itoa(*y)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
