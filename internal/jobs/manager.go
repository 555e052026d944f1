package jobs

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/mkoval/scholarcsv/internal/export"
	"github.com/mkoval/scholarcsv/internal/normalize"
	"github.com/mkoval/scholarcsv/internal/scholar"
)

// Options configures a Manager. Zero values fall back to defaults.
type Options struct {
	// MaxConcurrent bounds how many job workers run at once; queued
	// jobs stay Pending until a slot frees.
	MaxConcurrent int

	// JobTTL is how long a terminal job stays queryable before the
	// janitor evicts it.
	JobTTL time.Duration

	// HeartbeatInterval is the idle threshold after which subscribers
	// receive a heartbeat event.
	HeartbeatInterval time.Duration

	// Retry backoff window for a failed publication fetch.
	RetryDelayMin time.Duration
	RetryDelayMax time.Duration

	// Now is the clock, overridable in tests.
	Now func() time.Time
}

func (o *Options) applyDefaults() {
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = 4
	}
	if o.JobTTL <= 0 {
		o.JobTTL = time.Hour
	}
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = 15 * time.Second
	}
	if o.RetryDelayMin <= 0 {
		o.RetryDelayMin = 200 * time.Millisecond
	}
	if o.RetryDelayMax < o.RetryDelayMin {
		o.RetryDelayMax = 600 * time.Millisecond
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Request describes one extraction job: one or more author identifiers
// and, for the single-author legacy variant, an explicit year-column
// count override (0 means automatic).
type Request struct {
	AuthorIDs   []string
	YearColumns int
}

// Manager owns the job registry and supervises one worker per job.
type Manager struct {
	source     scholar.Source
	normalizer *normalize.Normalizer
	exporter   *export.Builder
	opts       Options

	sem *semaphore.Weighted

	mu   sync.Mutex
	jobs map[uuid.UUID]*Job

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewManager creates a Manager and starts its eviction janitor.
func NewManager(source scholar.Source, normalizer *normalize.Normalizer, exporter *export.Builder, opts Options) *Manager {
	opts.applyDefaults()
	m := &Manager{
		source:     source,
		normalizer: normalizer,
		exporter:   exporter,
		opts:       opts,
		sem:        semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		jobs:       make(map[uuid.UUID]*Job),
		stop:       make(chan struct{}),
	}
	m.wg.Add(1)
	go m.janitor()
	return m
}

// Submit registers a new Pending job and schedules its worker. Returns
// immediately with the job ID.
func (m *Manager) Submit(req Request) (uuid.UUID, error) {
	if len(req.AuthorIDs) == 0 {
		return uuid.Nil, fmt.Errorf("job request has no authors")
	}

	job := newJob()
	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	m.wg.Add(2)
	go m.runWorker(job, req)
	go m.heartbeatLoop(job)

	log.Printf("job %s submitted (%d author(s))", job.ID, len(req.AuthorIDs))
	return job.ID, nil
}

// Snapshot returns a non-blocking view of a job's current status.
func (m *Manager) Snapshot(id uuid.UUID) (Snapshot, error) {
	job, ok := m.lookup(id)
	if !ok {
		return Snapshot{}, ErrJobNotFound
	}
	return job.snapshot(), nil
}

// RequestCancel sets the job's cancellation token. Idempotent; reports
// whether the job existed.
func (m *Manager) RequestCancel(id uuid.UUID) bool {
	job, ok := m.lookup(id)
	if !ok {
		return false
	}
	job.requestCancel()
	return true
}

// Subscribe returns a stream of progress events for a job. The stream
// terminates after a done or error event, or immediately after replaying
// the final outcome when the job is already terminal. The subscription
// is dropped when ctx is cancelled.
func (m *Manager) Subscribe(ctx context.Context, id uuid.UUID) (<-chan Event, error) {
	job, ok := m.lookup(id)
	if !ok {
		return nil, ErrJobNotFound
	}
	subID, ch := job.subscribe()
	if subID >= 0 {
		go func() {
			select {
			case <-ctx.Done():
				job.unsubscribe(subID)
			case <-job.done:
			}
		}()
	}
	return ch, nil
}

// Close stops the janitor and waits for in-flight workers to finish.
func (m *Manager) Close() {
	m.stopOnce.Do(func() { close(m.stop) })
	m.wg.Wait()
}

func (m *Manager) lookup(id uuid.UUID) (*Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	return job, ok
}

// heartbeatLoop emits heartbeats while the job is live and subscribers
// have seen nothing for a full idle interval.
func (m *Manager) heartbeatLoop(job *Job) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.opts.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-job.done:
			return
		case <-m.stop:
			return
		case <-ticker.C:
			job.heartbeat(m.opts.HeartbeatInterval)
		}
	}
}

// janitor evicts terminal jobs past their TTL. Jobs remain queryable
// until evicted by this policy; there is no other automatic eviction.
func (m *Manager) janitor() {
	defer m.wg.Done()
	interval := m.opts.JobTTL / 2
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.evictExpired()
		}
	}
}

func (m *Manager) evictExpired() {
	cutoff := time.Now().Add(-m.opts.JobTTL)
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, job := range m.jobs {
		job.mu.Lock()
		expired := job.state.Terminal() && job.finishedAt.Before(cutoff)
		job.mu.Unlock()
		if expired {
			delete(m.jobs, id)
			log.Printf("job %s evicted after TTL", id)
		}
	}
}
