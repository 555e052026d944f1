package jobs

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/mkoval/scholarcsv/internal/align"
	"github.com/mkoval/scholarcsv/internal/model"
	"github.com/mkoval/scholarcsv/internal/normalize"
)

// runWorker drives one job end to end. Per-item errors are converted to
// log lines and never unwind the worker; only the artifact-write step
// fails the job outright once data has been collected.
func (m *Manager) runWorker(job *Job, req Request) {
	defer m.wg.Done()

	ctx := context.Background()
	if err := m.sem.Acquire(ctx, 1); err != nil {
		job.fail("could not schedule job: " + err.Error())
		return
	}
	defer m.sem.Release(1)

	if job.isCancelled() {
		job.finishCancelled("Job cancelled before it started.")
		return
	}
	job.setRunning()

	multi := len(req.AuthorIDs) > 1
	var records []model.AuthorRecord
	var lastAuthorErr error
	for _, authorID := range req.AuthorIDs {
		if job.isCancelled() {
			job.finishCancelled("Job cancelled.")
			return
		}
		record, err := m.processAuthor(ctx, job, authorID)
		if err != nil {
			if errors.Is(err, errCancelled) {
				job.finishCancelled("Job cancelled.")
				return
			}
			lastAuthorErr = err
			if multi {
				job.appendLog(fmt.Sprintf("Author %s failed: %v. Continuing with remaining authors.", authorID, err))
				continue
			}
			job.fail(err.Error())
			return
		}
		records = append(records, *record)
	}

	if len(records) == 0 {
		job.fail(fmt.Sprintf("no author could be processed: %v", lastAuthorErr))
		return
	}

	artifact, err := m.writeArtifact(job, req, records)
	if err != nil {
		job.fail("failed to write export artifact: " + err.Error())
		return
	}

	job.complete(
		&Result{Authors: records, ArtifactPath: artifact},
		fmt.Sprintf("Export complete: %d author(s), artifact %s", len(records), artifact),
	)
}

// processAuthor resolves one author and collects its publications.
// A failed publication fetch gets exactly one retry after a short
// jittered backoff, then is skipped with a logged warning.
func (m *Manager) processAuthor(ctx context.Context, job *Job, authorID string) (*model.AuthorRecord, error) {
	job.appendLog(fmt.Sprintf("Searching for author profile: %s", authorID))
	raw, err := m.source.SearchAuthor(ctx, authorID)
	if err != nil {
		return nil, &SourceUnavailableError{Author: authorID, Cause: err}
	}

	name := normalize.ExtractField(raw, []string{"name"}, authorID)
	job.appendLog(fmt.Sprintf("Found author %s. Retrieving publication list...", name))

	rawPubs, err := m.source.AuthorPublications(ctx, raw)
	if err != nil {
		return nil, &SourceUnavailableError{Author: authorID, Cause: err}
	}
	if len(rawPubs) == 0 {
		return nil, fmt.Errorf("%w for author %s", ErrEmptyResult, name)
	}
	job.appendLog(fmt.Sprintf("Found %d publications. Processing details...", len(rawPubs)))

	var pubs []model.Publication
	for i, rawPub := range rawPubs {
		if job.isCancelled() {
			return nil, errCancelled
		}

		title := normalize.ExtractField(rawPub, []string{"title"}, "Unknown")
		job.appendLog(fmt.Sprintf("[%d/%d] Processing: %s", i+1, len(rawPubs), truncate(title, 50)))

		filled, err := m.source.FillPublication(ctx, rawPub)
		if err != nil {
			job.appendLog(fmt.Sprintf("  warning: detail fetch failed (%v), retrying once...", err))
			m.retryBackoff(ctx)
			filled, err = m.source.FillPublication(ctx, rawPub)
			if err != nil {
				job.appendLog(fmt.Sprintf("  failed again (%v), skipping publication.", err))
				continue
			}
		}

		pub := m.normalizer.Normalize(filled)
		pubs = append(pubs, pub)
		job.appendLog(fmt.Sprintf("  done: %s (total citations: %d)", truncate(pub.Title, 50), pub.TotalCitations))
	}

	if len(pubs) == 0 {
		return nil, fmt.Errorf("%w: failed to collect any publication data for %s", ErrEmptyResult, name)
	}

	record := model.AuthorRecord{
		Name:           name,
		Affiliation:    normalize.ExtractField(raw, []string{"affiliation"}, ""),
		ScholarID:      normalize.ExtractField(raw, []string{"scholar_id"}, authorID),
		Publications:   pubs,
		TotalCitations: rawInt(raw, "citedby"),
		HIndex:         rawInt(raw, "hindex"),
		I10Index:       rawInt(raw, "i10index"),
	}
	align.Aggregate(&record, m.opts.Now())
	return &record, nil
}

// writeArtifact builds the CSV export: per-publication for a
// single-author job, author-summary for a multi-author batch.
func (m *Manager) writeArtifact(job *Job, req Request, records []model.AuthorRecord) (string, error) {
	if len(records) > 1 || len(req.AuthorIDs) > 1 {
		n := align.SummaryColumns(records)
		job.appendLog(fmt.Sprintf("Writing author summary with %d year columns...", n))
		return m.exporter.SummaryCSV(job.ID.String(), records, n)
	}

	author := records[0]
	job.appendLog("Analyzing citation data to determine optimal year columns...")
	n := req.YearColumns
	if n <= 0 {
		n = align.AxisColumns(author.Publications)
		job.appendLog(fmt.Sprintf("Using %d year columns based on citation patterns", n))
	} else {
		job.appendLog(fmt.Sprintf("Using %d year columns (explicit override)", n))
	}
	ranked := align.RankByCitations(author.Publications)
	return m.exporter.PublicationCSV(job.ID.String(), author, ranked, n)
}

// retryBackoff sleeps a short jittered interval before the single retry
// of a failed item fetch.
func (m *Manager) retryBackoff(ctx context.Context) {
	d := m.opts.RetryDelayMin
	if m.opts.RetryDelayMax > m.opts.RetryDelayMin {
		d += rand.N(m.opts.RetryDelayMax - m.opts.RetryDelayMin)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func rawInt(rec map[string]any, key string) int {
	switch v := rec[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
