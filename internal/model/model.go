// Package model defines the domain types shared across the extraction pipeline.
package model

// RawAuthor is an opaque author record as returned by the data source.
// The core never writes to it; fields are probed by the normalizer.
type RawAuthor map[string]any

// RawPublication is an opaque publication record from the data source.
type RawPublication map[string]any

// Publication is a normalized publication owned by a job.
type Publication struct {
	Title           string      `json:"title"`
	Authors         string      `json:"authors"`
	Venue           string      `json:"venue"`
	Year            *int        `json:"year,omitempty"`
	CitationsByYear map[int]int `json:"citations_by_year,omitempty"`
	TotalCitations  int         `json:"total_citations"`

	// StartYear is the earliest year with a positive citation count,
	// falling back to the earliest known year; nil when the publication
	// has no per-year citation data at all.
	StartYear *int `json:"start_year,omitempty"`

	// Classification flags derived from venue name and page range.
	Qualifying  bool `json:"qualifying_venue"`
	FullArticle bool `json:"full_article"`
}

// AuthorRecord holds one author's normalized publications and aggregates.
type AuthorRecord struct {
	Name        string `json:"name"`
	Affiliation string `json:"affiliation,omitempty"`
	ScholarID   string `json:"scholar_id"`

	Publications []Publication `json:"publications"`

	// Citations sums every publication's per-year counts over the
	// author's citation span. QualifyingCitations is the parallel
	// aggregate restricted to full-length articles at qualifying venues.
	Citations           map[int]int `json:"citations_by_year,omitempty"`
	QualifyingCitations map[int]int `json:"qualifying_citations_by_year,omitempty"`

	SummaryStartYear int `json:"summary_start_year"`
	SummaryEndYear   int `json:"summary_end_year"`

	// Indices passed through from the source profile, never recomputed.
	TotalCitations int `json:"total_citations"`
	HIndex         int `json:"h_index"`
	I10Index       int `json:"i10_index"`

	QualifyingCount int `json:"qualifying_count"`
}
