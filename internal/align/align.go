// Package align computes the citation-year axes: the phase-shifted
// per-publication axis and the author-level summary axis.
package align

import (
	"sort"
	"strconv"
	"time"

	"github.com/mkoval/scholarcsv/internal/model"
)

const (
	// minYearColumns guarantees a usable table even for sparse authors.
	minYearColumns = 5

	// axisHeadroom reserves columns for citations that may still accrue
	// after the latest observed year.
	axisHeadroom = 2

	// fallbackYearColumns is used when no publication has any per-year
	// citation data at all.
	fallbackYearColumns = 10

	// summaryFloorYear clamps the author summary axis; citation data
	// before this year is treated as unreliable.
	summaryFloorYear = 1990
)

// AxisColumns returns the number of Year columns for an author's
// per-publication export.
func AxisColumns(pubs []model.Publication) int {
	maxCite, ok := maxCiteYear(pubs)
	if !ok {
		return fallbackYearColumns
	}

	maxSpan := 0
	for _, p := range pubs {
		if p.StartYear == nil {
			continue
		}
		span := maxCite - *p.StartYear + 1
		if span < 0 {
			span = 0
		}
		if span > maxSpan {
			maxSpan = span
		}
	}

	n := maxSpan + axisHeadroom
	if n < minYearColumns {
		n = minYearColumns
	}
	return n
}

// PublicationRow fills a publication's citation counts onto an n-column
// axis. Column i (1-indexed) maps to calendar year StartYear+i-1; cells
// for unobserved years, and every cell of a publication without a start
// year, are blank.
func PublicationRow(pub model.Publication, n int) []string {
	row := make([]string, n)
	if pub.StartYear == nil {
		return row
	}
	for i := 0; i < n; i++ {
		year := *pub.StartYear + i
		if count, ok := pub.CitationsByYear[year]; ok {
			row[i] = strconv.Itoa(count)
		}
	}
	return row
}

// Aggregate fills an author's per-year citation aggregates and summary
// axis bounds. The qualifying aggregate is restricted to full-length
// articles at qualifying venues. Running it twice on unchanged
// publications produces identical results.
func Aggregate(a *model.AuthorRecord, now time.Time) {
	minYear, maxYear, ok := citeYearBounds(a.Publications)
	if !ok {
		minYear, maxYear, ok = pubYearBounds(a.Publications)
	}
	if !ok {
		minYear, maxYear = now.Year(), now.Year()
	}

	a.Citations = make(map[int]int, maxYear-minYear+1)
	a.QualifyingCitations = make(map[int]int, maxYear-minYear+1)
	for y := minYear; y <= maxYear; y++ {
		a.Citations[y] = 0
		a.QualifyingCitations[y] = 0
	}

	a.QualifyingCount = 0
	for _, p := range a.Publications {
		qualifies := p.Qualifying && p.FullArticle
		if qualifies {
			a.QualifyingCount++
		}
		for y, c := range p.CitationsByYear {
			if y < minYear || y > maxYear {
				continue
			}
			a.Citations[y] += c
			if qualifies {
				a.QualifyingCitations[y] += c
			}
		}
	}

	a.SummaryStartYear = minYear
	if a.SummaryStartYear < summaryFloorYear {
		a.SummaryStartYear = summaryFloorYear
	}
	a.SummaryEndYear = maxYear
	if a.SummaryEndYear < a.SummaryStartYear {
		a.SummaryEndYear = a.SummaryStartYear
	}
}

// SummaryColumns returns the uniform summary-axis width for a set of
// authors: the widest individual span.
func SummaryColumns(authors []model.AuthorRecord) int {
	n := 0
	for _, a := range authors {
		if span := a.SummaryEndYear - a.SummaryStartYear + 1; span > n {
			n = span
		}
	}
	if n < 1 {
		n = 1
	}
	return n
}

// SummaryRow fills an author's aggregate counts onto an n-column axis.
// Within the author's own span missing years are 0; columns beyond the
// span are blank so shorter authors don't read as uncited.
func SummaryRow(a model.AuthorRecord, n int) []string {
	row := make([]string, n)
	for i := 0; i < n; i++ {
		year := a.SummaryStartYear + i
		if year > a.SummaryEndYear {
			break
		}
		row[i] = strconv.Itoa(a.Citations[year])
	}
	return row
}

// RankByCitations orders publications by total citations descending.
// Ties keep the upstream fetch order (stable sort).
func RankByCitations(pubs []model.Publication) []model.Publication {
	ranked := make([]model.Publication, len(pubs))
	copy(ranked, pubs)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TotalCitations > ranked[j].TotalCitations
	})
	return ranked
}

// maxCiteYear returns the latest year appearing in any publication's
// citation data.
func maxCiteYear(pubs []model.Publication) (int, bool) {
	found := false
	maxYear := 0
	for _, p := range pubs {
		for y := range p.CitationsByYear {
			if !found || y > maxYear {
				maxYear = y
				found = true
			}
		}
	}
	return maxYear, found
}

func citeYearBounds(pubs []model.Publication) (minYear, maxYear int, ok bool) {
	for _, p := range pubs {
		for y := range p.CitationsByYear {
			if !ok {
				minYear, maxYear, ok = y, y, true
				continue
			}
			if y < minYear {
				minYear = y
			}
			if y > maxYear {
				maxYear = y
			}
		}
	}
	return minYear, maxYear, ok
}

func pubYearBounds(pubs []model.Publication) (minYear, maxYear int, ok bool) {
	for _, p := range pubs {
		if p.Year == nil {
			continue
		}
		y := *p.Year
		if !ok {
			minYear, maxYear, ok = y, y, true
			continue
		}
		if y < minYear {
			minYear = y
		}
		if y > maxYear {
			maxYear = y
		}
	}
	return minYear, maxYear, ok
}
