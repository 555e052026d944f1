// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/mkoval/scholarcsv/internal/model"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintAuthorSummary outputs a human-readable summary of a processed author.
func (p *Printer) PrintAuthorSummary(author *model.AuthorRecord) {
	if author == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Author:       %s\n", author.Name))
	if author.Affiliation != "" {
		sb.WriteString(fmt.Sprintf("Affiliation:  %s\n", author.Affiliation))
	}
	sb.WriteString(fmt.Sprintf("Publications: %d (%d qualifying)\n", len(author.Publications), author.QualifyingCount))
	sb.WriteString(fmt.Sprintf("Citations:    %d  h-index: %d  i10-index: %d\n", author.TotalCitations, author.HIndex, author.I10Index))
	sb.WriteString(fmt.Sprintf("Summary axis: %d-%d", author.SummaryStartYear, author.SummaryEndYear))

	p.printBox("AUTHOR SUMMARY", sb.String())
}

// PrintTopPublications outputs the most-cited publications of an author.
func (p *Printer) PrintTopPublications(ranked []model.Publication) {
	if len(ranked) == 0 {
		return
	}

	var sb strings.Builder
	count := min(len(ranked), maxItemsToShow)
	for i := 0; i < count; i++ {
		pub := ranked[i]
		title := pub.Title
		if len(title) > 40 {
			title = title[:37] + "..."
		}
		sb.WriteString(fmt.Sprintf("%d. %s (%d)\n", i+1, title, pub.TotalCitations))
	}
	if len(ranked) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("... and %d more", len(ranked)-maxItemsToShow))
	}

	p.printBox("TOP PUBLICATIONS", strings.TrimSuffix(sb.String(), "\n"))
}
