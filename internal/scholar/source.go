// Package scholar provides data-source access to Google Scholar profiles:
// a rate-limited HTTP scraping client, a sqlite-backed page cache, and a
// JSONL-backed local source for offline runs and tests.
package scholar

import (
	"context"

	"github.com/mkoval/scholarcsv/internal/model"
)

// Source is the opaque data-source capability the pipeline depends on.
// Calls may fail transiently and have unpredictable latency; every
// implementation inserts its own post-fetch pacing.
type Source interface {
	// SearchAuthor resolves an author identifier to a raw profile record
	// including summary indices (total citations, h-index, i10-index).
	SearchAuthor(ctx context.Context, authorID string) (model.RawAuthor, error)

	// AuthorPublications lists the raw publication records for a
	// previously resolved author. Records are shallow: per-year citation
	// data requires FillPublication.
	AuthorPublications(ctx context.Context, author model.RawAuthor) ([]model.RawPublication, error)

	// FillPublication enriches a shallow record with detailed fields and
	// per-year citation counts.
	FillPublication(ctx context.Context, pub model.RawPublication) (model.RawPublication, error)
}
