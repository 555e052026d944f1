// Package normalize converts loosely-typed scholar records into structured
// publications. Every function here is tolerant by contract: a field that
// cannot be parsed is absent or defaulted, never an error.
package normalize

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/mkoval/scholarcsv/internal/model"
)

// bibKey is the nested sub-object probed after the top level. Scholar
// records keep most bibliographic fields under "bib".
const bibKey = "bib"

// Field candidate lists, in provider-fallback priority order.
var (
	titleKeys  = []string{"title"}
	authorKeys = []string{"author", "authors"}
	venueKeys  = []string{"journal", "venue", "publisher", "booktitle", "journal_title"}
	yearKeys   = []string{"pub_year", "year", "publication_year"}
	pagesKeys  = []string{"pages", "page_range"}

	citesKeys = []string{"cites_per_year", "citesPerYear"}
	totalKeys = []string{"num_citations", "citedby"}
)

// Normalizer converts raw records into publications using a configured
// venue allow-list.
type Normalizer struct {
	venues []string
}

// New creates a Normalizer. Extra venue names extend the built-in
// qualifying-venue allow-list.
func New(extraVenues ...string) *Normalizer {
	venues := make([]string, 0, len(QualifyingVenues)+len(extraVenues))
	venues = append(venues, QualifyingVenues...)
	for _, v := range extraVenues {
		if n := NormalizeVenue(v); n != "" {
			venues = append(venues, n)
		}
	}
	return &Normalizer{venues: venues}
}

// Normalize builds a Publication from a raw record.
func (n *Normalizer) Normalize(rec model.RawPublication) model.Publication {
	venue := ExtractField(rec, venueKeys, "")
	pages := ExtractField(rec, pagesKeys, "")
	cites := ExtractCitationsByYear(rec)

	pub := model.Publication{
		Title:           ExtractField(rec, titleKeys, ""),
		Authors:         ExtractField(rec, authorKeys, ""),
		Venue:           venue,
		Year:            ExtractYear(rec),
		CitationsByYear: cites,
		TotalCitations:  TotalCitations(rec, cites),
		StartYear:       StartYear(cites),
	}
	pub.Qualifying, pub.FullArticle = ClassifyWith(n.venues, venue, pages)
	return pub
}

// ExtractField probes candidate keys in order against the record, then
// against the nested bib sub-object, returning the first non-empty value
// coerced to a string, else the default.
func ExtractField(rec map[string]any, keys []string, def string) string {
	if rec == nil {
		return def
	}
	for _, k := range keys {
		if s := asString(rec[k]); s != "" {
			return s
		}
	}
	if bib, ok := rec[bibKey].(map[string]any); ok {
		for _, k := range keys {
			if s := asString(bib[k]); s != "" {
				return s
			}
		}
	}
	return def
}

// ExtractCitationsByYear locates a year-to-count mapping under either
// known field-name spelling, at the top level or under bib. Only the
// first matching location is used; entries that fail integer coercion
// are dropped. Returns an empty map when no such field exists.
func ExtractCitationsByYear(rec map[string]any) map[int]int {
	if rec == nil {
		return map[int]int{}
	}
	for _, k := range citesKeys {
		if m, ok := coerceYearMap(rec[k]); ok {
			return m
		}
	}
	if bib, ok := rec[bibKey].(map[string]any); ok {
		for _, k := range citesKeys {
			if m, ok := coerceYearMap(bib[k]); ok {
				return m
			}
		}
	}
	return map[int]int{}
}

// ExtractYear parses the publication year, tolerating string-typed values.
func ExtractYear(rec map[string]any) *int {
	if rec == nil {
		return nil
	}
	probe := func(m map[string]any) *int {
		for _, k := range yearKeys {
			if v, ok := m[k]; ok {
				if y, ok := asInt(v); ok && y != 0 {
					return &y
				}
			}
		}
		return nil
	}
	if bib, ok := rec[bibKey].(map[string]any); ok {
		if y := probe(bib); y != nil {
			return y
		}
	}
	return probe(rec)
}

// TotalCitations returns the source's authoritative citation count when
// one is present and coercible, otherwise the sum of the per-year counts.
func TotalCitations(rec map[string]any, citations map[int]int) int {
	sum := 0
	for _, c := range citations {
		sum += c
	}
	if rec == nil {
		return sum
	}
	for _, k := range totalKeys {
		if v, ok := rec[k]; ok {
			if total, ok := asInt(v); ok {
				return total
			}
		}
	}
	return sum
}

// StartYear returns the earliest year with a strictly positive count,
// falling back to the earliest known year, or nil when the map is empty.
func StartYear(citations map[int]int) *int {
	if len(citations) == 0 {
		return nil
	}
	var minPositive, minAny *int
	for y, c := range citations {
		y := y
		if minAny == nil || y < *minAny {
			minAny = &y
		}
		if c > 0 && (minPositive == nil || y < *minPositive) {
			p := y
			minPositive = &p
		}
	}
	if minPositive != nil {
		return minPositive
	}
	return minAny
}

// coerceYearMap converts a loosely-typed mapping into map[int]int,
// silently discarding entries whose key or value cannot be coerced.
func coerceYearMap(v any) (map[int]int, bool) {
	out := map[int]int{}
	switch m := v.(type) {
	case map[int]int:
		for y, c := range m {
			out[y] = c
		}
	case map[string]any:
		for k, raw := range m {
			y, err := strconv.Atoi(strings.TrimSpace(k))
			if err != nil {
				continue
			}
			if c, ok := asInt(raw); ok {
				out[y] = c
			}
		}
	case map[string]int:
		for k, c := range m {
			if y, err := strconv.Atoi(strings.TrimSpace(k)); err == nil {
				out[y] = c
			}
		}
	default:
		return nil, false
	}
	return out, true
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

func asInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i), true
		}
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return i, true
		}
	}
	return 0, false
}
