// Package jobs owns the lifecycle of asynchronous extraction jobs: one
// worker goroutine per job, an append-only progress log, cooperative
// cancellation, and per-job event broadcast to subscribers.
package jobs

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mkoval/scholarcsv/internal/model"
)

// State is a job lifecycle state.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// subscriberBuffer bounds each subscriber's event channel. The worker
// never blocks on a slow subscriber; log events are dropped oldest-first
// when the buffer is full, terminal events always get through.
const subscriberBuffer = 256

// Result holds a completed job's output.
type Result struct {
	Authors      []model.AuthorRecord
	ArtifactPath string
}

// Job is one asynchronous extraction-and-export run. The worker is the
// single writer; observers read through Manager.Snapshot and Subscribe.
type Job struct {
	ID        uuid.UUID
	CreatedAt time.Time

	cancelled atomic.Bool

	mu          sync.Mutex
	state       State
	logLines    []string
	result      *Result
	errMessage  string
	finishedAt  time.Time
	lastEvent   time.Time
	subscribers map[int]chan Event
	nextSub     int
	done        chan struct{}
}

func newJob() *Job {
	return &Job{
		ID:          uuid.New(),
		CreatedAt:   time.Now(),
		state:       StatePending,
		subscribers: make(map[int]chan Event),
		done:        make(chan struct{}),
	}
}

// Snapshot is a point-in-time view of a job for status polling.
type Snapshot struct {
	ID           uuid.UUID
	State        State
	Log          string
	ErrMessage   string
	ArtifactPath string
	Authors      []model.AuthorRecord
}

func (j *Job) snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	snap := Snapshot{
		ID:         j.ID,
		State:      j.state,
		Log:        strings.Join(j.logLines, "\n"),
		ErrMessage: j.errMessage,
	}
	if j.result != nil {
		snap.ArtifactPath = j.result.ArtifactPath
		snap.Authors = j.result.Authors
	}
	return snap
}

// requestCancel sets the cancellation token. Only the first call has an
// effect; the flag is observed at item-boundary checkpoints.
func (j *Job) requestCancel() {
	if j.cancelled.CompareAndSwap(false, true) {
		j.appendLog("Cancellation requested; finishing the current item...")
	}
}

func (j *Job) isCancelled() bool {
	return j.cancelled.Load()
}

// appendLog appends a line to the transcript and broadcasts it. Worker
// use only (plus the one advisory line from requestCancel).
func (j *Job) appendLog(line string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state.Terminal() {
		return
	}
	j.logLines = append(j.logLines, line)
	j.broadcastLocked(Event{Type: EventLog, JobID: j.ID.String(), Text: line})
}

func (j *Job) setRunning() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state == StatePending {
		j.state = StateRunning
	}
}

// complete moves the job to Completed. A final summary line is appended
// before the state flips so it lands in the transcript.
func (j *Job) complete(result *Result, finalLine string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state.Terminal() {
		return
	}
	j.logLines = append(j.logLines, finalLine)
	j.broadcastLocked(Event{Type: EventLog, JobID: j.ID.String(), Text: finalLine})
	j.result = result
	j.finishLocked(StateCompleted)
	j.broadcastLocked(Event{Type: EventDone, JobID: j.ID.String(), Artifact: result.ArtifactPath})
	j.closeSubscribersLocked()
}

// fail moves the job to Failed with a short human-readable message.
func (j *Job) fail(message string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state.Terminal() {
		return
	}
	j.logLines = append(j.logLines, "Error: "+message)
	j.broadcastLocked(Event{Type: EventLog, JobID: j.ID.String(), Text: "Error: " + message})
	j.errMessage = message
	j.finishLocked(StateFailed)
	j.broadcastLocked(Event{Type: EventError, JobID: j.ID.String(), Text: message})
	j.closeSubscribersLocked()
}

// finishCancelled moves the job to Cancelled. Cancellation is not a
// failure: the error message stays empty.
func (j *Job) finishCancelled(finalLine string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state.Terminal() {
		return
	}
	j.logLines = append(j.logLines, finalLine)
	j.broadcastLocked(Event{Type: EventLog, JobID: j.ID.String(), Text: finalLine})
	j.finishLocked(StateCancelled)
	j.broadcastLocked(Event{Type: EventError, JobID: j.ID.String(), Text: "job cancelled"})
	j.closeSubscribersLocked()
}

func (j *Job) finishLocked(s State) {
	j.state = s
	j.finishedAt = time.Now()
	close(j.done)
}

// heartbeat broadcasts a heartbeat if nothing happened within the idle
// interval. Called by the job's heartbeat ticker.
func (j *Job) heartbeat(idle time.Duration) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state.Terminal() || time.Since(j.lastEvent) < idle {
		return
	}
	j.broadcastLocked(Event{Type: EventHeartbeat, JobID: j.ID.String()})
}

func (j *Job) broadcastLocked(ev Event) {
	j.lastEvent = time.Now()
	terminal := ev.Type == EventDone || ev.Type == EventError
	for _, ch := range j.subscribers {
		send(ch, ev, terminal)
	}
}

// send delivers an event without ever blocking the worker. When the
// buffer is full, log and heartbeat events are dropped; terminal events
// evict the oldest buffered event until they fit.
func send(ch chan Event, ev Event, terminal bool) {
	for {
		select {
		case ch <- ev:
			return
		default:
		}
		if !terminal {
			return
		}
		select {
		case <-ch:
		default:
		}
	}
}

func (j *Job) closeSubscribersLocked() {
	for id, ch := range j.subscribers {
		close(ch)
		delete(j.subscribers, id)
	}
}

// subscribe registers an event channel. If the job is already terminal
// the channel replays only the final outcome and is closed immediately.
func (j *Job) subscribe() (int, <-chan Event) {
	j.mu.Lock()
	defer j.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if j.state.Terminal() {
		switch j.state {
		case StateCompleted:
			artifact := ""
			if j.result != nil {
				artifact = j.result.ArtifactPath
			}
			ch <- Event{Type: EventDone, JobID: j.ID.String(), Artifact: artifact}
		case StateFailed:
			ch <- Event{Type: EventError, JobID: j.ID.String(), Text: j.errMessage}
		case StateCancelled:
			ch <- Event{Type: EventError, JobID: j.ID.String(), Text: "job cancelled"}
		}
		close(ch)
		return -1, ch
	}

	id := j.nextSub
	j.nextSub++
	j.subscribers[id] = ch
	return id, ch
}

func (j *Job) unsubscribe(id int) {
	if id < 0 {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if ch, ok := j.subscribers[id]; ok {
		close(ch)
		delete(j.subscribers, id)
	}
}
