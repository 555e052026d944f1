package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkoval/scholarcsv/internal/export"
	"github.com/mkoval/scholarcsv/internal/jobs"
	"github.com/mkoval/scholarcsv/internal/model"
	"github.com/mkoval/scholarcsv/internal/normalize"
)

// stubSource serves a single canned author. The optional gate channel
// blocks every detail fetch until closed, keeping jobs in flight for
// status and download tests.
type stubSource struct {
	gate chan struct{}
}

func (s *stubSource) SearchAuthor(_ context.Context, authorID string) (model.RawAuthor, error) {
	if authorID != "id1" {
		return nil, fmt.Errorf("no profile for %s", authorID)
	}
	return model.RawAuthor{"scholar_id": "id1", "name": "Jane Doe", "citedby": 100}, nil
}

func (s *stubSource) AuthorPublications(_ context.Context, _ model.RawAuthor) ([]model.RawPublication, error) {
	return []model.RawPublication{
		{
			"title":          "Paper One",
			"cites_per_year": map[string]any{"2019": 3, "2020": 7},
			"bib": map[string]any{
				"journal":  "Journal of Finance",
				"pub_year": "2019",
				"pages":    "100-140",
			},
		},
	}, nil
}

func (s *stubSource) FillPublication(_ context.Context, pub model.RawPublication) (model.RawPublication, error) {
	if s.gate != nil {
		<-s.gate
	}
	return pub, nil
}

func newTestServer(t *testing.T, source *stubSource) *Server {
	t.Helper()
	manager := jobs.NewManager(
		source,
		normalize.New(),
		export.NewBuilder(t.TempDir()),
		jobs.Options{
			RetryDelayMin:     time.Millisecond,
			RetryDelayMax:     2 * time.Millisecond,
			HeartbeatInterval: time.Hour,
		},
	)
	t.Cleanup(manager.Close)
	return New(Config{Port: 0}, manager)
}

func submitJob(t *testing.T, handler http.Handler, body string) SubmitResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp SubmitResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotEmpty(t, resp.JobID)
	return resp
}

func waitForState(t *testing.T, handler http.Handler, jobID, want string) StatusResponse {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		req := httptest.NewRequest(http.MethodGet, "/jobs/"+jobID, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp StatusResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		if resp.State == want {
			return resp
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never reached state %q", jobID, want)
	return StatusResponse{}
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, &stubSource{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestSubmit_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "malformed JSON", body: `{`},
		{name: "missing authors", body: `{}`},
		{name: "empty author list", body: `{"authors":[]}`},
		{name: "blank author entry", body: `{"authors":[""]}`},
		{name: "invalid author identifier", body: `{"authors":["not an id"]}`},
		{name: "profile URL without user param", body: `{"authors":["https://scholar.google.com/citations?hl=en"]}`},
		{name: "negative year columns", body: `{"authors":["id1"],"year_columns":-1}`},
		{name: "oversized year columns", body: `{"authors":["id1"],"year_columns":500}`},
	}

	s := newTestServer(t, &stubSource{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestSubmit_AcceptsProfileURL(t *testing.T) {
	s := newTestServer(t, &stubSource{})

	resp := submitJob(t, s.Handler(), `{"authors":["https://scholar.google.com/citations?user=id1&hl=en"]}`)
	assert.Equal(t, "pending", resp.Status)

	status := waitForState(t, s.Handler(), resp.JobID, "completed")
	assert.Contains(t, status.Log, "Jane Doe")
}

func TestJobLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t, &stubSource{})
	handler := s.Handler()

	resp := submitJob(t, handler, `{"authors":["id1"]}`)

	status := waitForState(t, handler, resp.JobID, "completed")
	assert.Empty(t, status.Error)
	assert.Equal(t, "/jobs/"+resp.JobID+"/download", status.DownloadURL)
	assert.Contains(t, status.Log, "Export complete")

	// Download the artifact.
	req := httptest.NewRequest(http.MethodGet, status.DownloadURL, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "scholar_export_")
	assert.Contains(t, rec.Body.String(), "Paper One")
}

func TestStatus_FailedJobHasNoDownloadURL(t *testing.T) {
	s := newTestServer(t, &stubSource{})

	resp := submitJob(t, s.Handler(), `{"authors":["ghost"]}`)

	status := waitForState(t, s.Handler(), resp.JobID, "failed")
	assert.NotEmpty(t, status.Error)
	assert.Empty(t, status.DownloadURL)
}

func TestStatus_Errors(t *testing.T) {
	s := newTestServer(t, &stubSource{})

	req := httptest.NewRequest(http.MethodGet, "/jobs/4b6fae0d-8cb5-4ec2-a9aa-111111111111", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/jobs/not-a-uuid", nil)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDownload_NotReadyConflicts(t *testing.T) {
	source := &stubSource{gate: make(chan struct{})}
	s := newTestServer(t, source)
	handler := s.Handler()

	resp := submitJob(t, handler, `{"authors":["id1"]}`)

	req := httptest.NewRequest(http.MethodGet, "/jobs/"+resp.JobID+"/download", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)

	close(source.gate)
	waitForState(t, handler, resp.JobID, "completed")
}

func TestCancelEndpoint(t *testing.T) {
	source := &stubSource{gate: make(chan struct{})}
	s := newTestServer(t, source)
	handler := s.Handler()

	resp := submitJob(t, handler, `{"authors":["id1"]}`)

	req := httptest.NewRequest(http.MethodPost, "/jobs/"+resp.JobID+"/cancel", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var cancelResp CancelResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&cancelResp))
	assert.True(t, cancelResp.Cancelled)
	assert.Equal(t, resp.JobID, cancelResp.JobID)

	close(source.gate)
	status := waitForState(t, handler, resp.JobID, "cancelled")
	assert.Empty(t, status.Error)
}

func TestCancel_UnknownJob(t *testing.T) {
	s := newTestServer(t, &stubSource{})

	req := httptest.NewRequest(http.MethodPost, "/jobs/4b6fae0d-8cb5-4ec2-a9aa-111111111111/cancel", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEventsStream(t *testing.T) {
	s := newTestServer(t, &stubSource{})

	// SSE needs a real connection so the handler's flusher works.
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(map[string]any{"authors": []string{"id1"}}))
	resp, err := http.Post(srv.URL+"/jobs", "application/json", &buf)
	require.NoError(t, err)
	var submitResp SubmitResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&submitResp))
	resp.Body.Close()

	stream, err := http.Get(srv.URL + "/jobs/" + submitResp.JobID + "/events")
	require.NoError(t, err)
	defer stream.Body.Close()

	assert.Equal(t, "text/event-stream", stream.Header.Get("Content-Type"))

	var eventTypes []string
	scanner := bufio.NewScanner(stream.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event: ") {
			eventTypes = append(eventTypes, strings.TrimPrefix(line, "event: "))
		}
	}

	require.NotEmpty(t, eventTypes)
	assert.Contains(t, eventTypes, "log")
	assert.Equal(t, "done", eventTypes[len(eventTypes)-1])
}

func TestEventsStream_UnknownJob(t *testing.T) {
	s := newTestServer(t, &stubSource{})

	req := httptest.NewRequest(http.MethodGet, "/jobs/4b6fae0d-8cb5-4ec2-a9aa-111111111111/events", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSSEWriter_Format(t *testing.T) {
	rec := httptest.NewRecorder()
	sse, err := NewSSEWriter(rec)
	require.NoError(t, err)

	ev := jobs.Event{Type: jobs.EventLog, JobID: "abc", Text: "hello"}
	require.NoError(t, sse.WriteJobEvent(ev))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, "event: log\ndata: {\"type\":\"log\",\"job_id\":\"abc\",\"text\":\"hello\"}\n\n", string(body))
}
