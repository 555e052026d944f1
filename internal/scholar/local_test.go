package scholar

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkoval/scholarcsv/internal/model"
)

func writeFixture(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "authors.jsonl")
	content := ""
	for _, line := range lines {
		content += line + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const fixtureJane = `{"scholar_id":"id1","name":"Jane Doe","affiliation":"University of Somewhere","citedby":1204,"publications":[{"bib":{"title":"Paper One","journal":"Journal of Finance","pub_year":"2019"},"num_citations":42,"cites_per_year":{"2019":12,"2020":30}}]}`

const fixtureJohn = `{"scholar_id":"id2","name":"John Roe"}`

func TestNewLocalSource(t *testing.T) {
	path := writeFixture(t, fixtureJane, fixtureJohn)

	src, err := NewLocalSource(path)
	require.NoError(t, err)

	author, err := src.SearchAuthor(context.Background(), "id1")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", author["name"])
}

func TestNewLocalSource_SkipsInvalidLines(t *testing.T) {
	path := writeFixture(t,
		fixtureJane,
		`this is not json`,
		`{"scholar_id":"id3"}`, // fails the shape check: no name
		``,
		fixtureJohn,
	)

	src, err := NewLocalSource(path)
	require.NoError(t, err)

	_, err = src.SearchAuthor(context.Background(), "id1")
	assert.NoError(t, err)
	_, err = src.SearchAuthor(context.Background(), "id2")
	assert.NoError(t, err)
	_, err = src.SearchAuthor(context.Background(), "id3")
	assert.ErrorIs(t, err, ErrAuthorNotFound)
}

func TestNewLocalSource_MissingFile(t *testing.T) {
	_, err := NewLocalSource(filepath.Join(t.TempDir(), "nope.jsonl"))
	assert.Error(t, err)
}

func TestLocalSource_SearchAuthorByName(t *testing.T) {
	path := writeFixture(t, fixtureJane)
	src, err := NewLocalSource(path)
	require.NoError(t, err)

	author, err := src.SearchAuthor(context.Background(), "jane doe")
	require.NoError(t, err)
	assert.Equal(t, "id1", author["scholar_id"])

	_, err = src.SearchAuthor(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrAuthorNotFound)
}

func TestLocalSource_AuthorPublications(t *testing.T) {
	path := writeFixture(t, fixtureJane, fixtureJohn)
	src, err := NewLocalSource(path)
	require.NoError(t, err)

	jane, err := src.SearchAuthor(context.Background(), "id1")
	require.NoError(t, err)
	pubs, err := src.AuthorPublications(context.Background(), jane)
	require.NoError(t, err)
	require.Len(t, pubs, 1)

	bib, ok := pubs[0]["bib"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Paper One", bib["title"])

	// Authors without a publications array yield an empty list.
	john, err := src.SearchAuthor(context.Background(), "id2")
	require.NoError(t, err)
	pubs, err = src.AuthorPublications(context.Background(), john)
	require.NoError(t, err)
	assert.Empty(t, pubs)
}

func TestLocalSource_FillPublicationPassThrough(t *testing.T) {
	path := writeFixture(t, fixtureJane)
	src, err := NewLocalSource(path)
	require.NoError(t, err)

	pub := model.RawPublication{"bib": map[string]any{"title": "x"}}
	filled, err := src.FillPublication(context.Background(), pub)
	require.NoError(t, err)
	assert.Equal(t, pub, filled)
}
