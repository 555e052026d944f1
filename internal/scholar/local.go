package scholar

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/mkoval/scholarcsv/internal/model"
	"github.com/mkoval/scholarcsv/internal/schemas"
)

// rawAuthorSchema is the shape check applied to each fixture record.
const rawAuthorSchema = "schemas/raw_author.schema.json"

// LocalSource serves author records from a JSONL fixture file, one
// author object per line. Used for offline runs and tests; records are
// assumed pre-filled, so FillPublication is a pass-through.
type LocalSource struct {
	authors []model.RawAuthor
	byID    map[string]model.RawAuthor
}

// NewLocalSource loads a JSONL fixture file. Records failing the schema
// shape check are skipped with a logged warning, never an error.
func NewLocalSource(path string) (*LocalSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening fixture file: %w", err)
	}
	defer func() { _ = f.Close() }()

	schemaPath := schemas.ResolveSchemaPath(rawAuthorSchema)

	src := &LocalSource{byID: make(map[string]model.RawAuthor)}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			log.Printf("local source: skipping line %d: %v", lineNo, err)
			continue
		}
		if schemaPath != "" {
			if err := schemas.ValidateDocument(schemaPath, rec); err != nil {
				log.Printf("local source: skipping line %d: %v", lineNo, err)
				continue
			}
		}

		author := model.RawAuthor(rec)
		src.authors = append(src.authors, author)
		if id, ok := rec["scholar_id"].(string); ok && id != "" {
			src.byID[id] = author
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading fixture file: %w", err)
	}
	return src, nil
}

// SearchAuthor resolves by scholar ID first, then by case-insensitive
// name match, mirroring the live source's ID-then-search fallback.
func (s *LocalSource) SearchAuthor(_ context.Context, authorID string) (model.RawAuthor, error) {
	if author, ok := s.byID[authorID]; ok {
		return author, nil
	}
	for _, author := range s.authors {
		if name, ok := author["name"].(string); ok && strings.EqualFold(name, authorID) {
			return author, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrAuthorNotFound, authorID)
}

// AuthorPublications returns the author's embedded publication records.
func (s *LocalSource) AuthorPublications(_ context.Context, author model.RawAuthor) ([]model.RawPublication, error) {
	raw, ok := author["publications"].([]any)
	if !ok {
		return nil, nil
	}
	pubs := make([]model.RawPublication, 0, len(raw))
	for _, entry := range raw {
		if rec, ok := entry.(map[string]any); ok {
			pubs = append(pubs, model.RawPublication(rec))
		}
	}
	return pubs, nil
}

// FillPublication is a pass-through: fixture records are already filled.
func (s *LocalSource) FillPublication(_ context.Context, pub model.RawPublication) (model.RawPublication, error) {
	return pub, nil
}
