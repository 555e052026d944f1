package normalize

import (
	"strconv"
	"strings"
)

// QualifyingVenues is the curated allow-list of target journals. Matching
// is a case-insensitive substring check in either direction, so both
// abbreviated and over-long venue strings from the source can hit.
var QualifyingVenues = []string{
	"journal of finance",
	"journal of financial economics",
	"review of financial studies",
	"journal of financial and quantitative analysis",
	"american economic review",
	"econometrica",
	"quarterly journal of economics",
	"journal of political economy",
	"review of economic studies",
	"management science",
	"journal of accounting and economics",
	"journal of accounting research",
}

// fullArticleMinSpan is the minimum end-start page difference for a
// publication to count as a full-length article (7 printed pages).
const fullArticleMinSpan = 6

// urlMarkers truncate venue strings that carry trailing URL/DOI fragments.
var urlMarkers = []string{"https://", "http://", "www.", "doi.org", "doi:"}

// Classify reports the two independent classification flags for a venue
// name and a printed page range, using the built-in allow-list.
func Classify(venue, pages string) (qualifying, fullArticle bool) {
	return ClassifyWith(QualifyingVenues, venue, pages)
}

// ClassifyWith is Classify against an explicit venue allow-list.
// Parse failures yield false, never an error.
func ClassifyWith(venues []string, venue, pages string) (qualifying, fullArticle bool) {
	norm := NormalizeVenue(venue)
	if norm != "" {
		for _, allowed := range venues {
			if strings.Contains(norm, allowed) || strings.Contains(allowed, norm) {
				qualifying = true
				break
			}
		}
	}

	if start, end, ok := parsePageRange(pages); ok {
		fullArticle = end-start >= fullArticleMinSpan
	}
	return qualifying, fullArticle
}

// NormalizeVenue lowercases a venue name, strips URL/DOI fragments and
// surrounding punctuation, and collapses internal whitespace.
func NormalizeVenue(venue string) string {
	s := strings.ToLower(strings.TrimSpace(venue))
	for _, marker := range urlMarkers {
		if idx := strings.Index(s, marker); idx >= 0 {
			s = s[:idx]
		}
	}
	s = strings.Trim(s, " \t.,;:()[]{}\"'-–—")
	return strings.Join(strings.Fields(s), " ")
}

// parsePageRange parses "start-end" page ranges, tolerating en dashes
// and surrounding whitespace.
func parsePageRange(pages string) (start, end int, ok bool) {
	s := strings.TrimSpace(pages)
	if s == "" {
		return 0, 0, false
	}
	s = strings.ReplaceAll(s, "–", "-")
	s = strings.ReplaceAll(s, "—", "-")
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	end, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, false
	}
	return start, end, true
}
