package poller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type scriptedFetcher struct {
	mu        sync.Mutex
	statuses  map[string]string // documentID -> current status
	flips     map[string]string // documentID -> status after first successful poll
	failPolls int               // number of leading GetStatus calls that error
	listErr   error
	polled    map[string]int
}

func (f *scriptedFetcher) ListDocuments(ctx context.Context) ([]DocumentSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]DocumentSummary, 0, len(f.statuses))
	for id, status := range f.statuses {
		out = append(out, DocumentSummary{DocumentID: id, Status: status})
	}
	return out, nil
}

func (f *scriptedFetcher) GetStatus(ctx context.Context, documentID string) (StatusSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.polled == nil {
		f.polled = make(map[string]int)
	}
	f.polled[documentID]++
	if f.failPolls > 0 {
		f.failPolls--
		return StatusSummary{}, errors.New("temporarily unavailable")
	}
	if next, ok := f.flips[documentID]; ok {
		f.statuses[documentID] = next
		delete(f.flips, documentID)
	}
	status, ok := f.statuses[documentID]
	if !ok {
		return StatusSummary{}, errors.New("unknown document")
	}
	return StatusSummary{ID: documentID, Status: status, HasResult: status == "DONE"}, nil
}

func TestRunReturnsWhenNothingInFlight(t *testing.T) {
	fetcher := &scriptedFetcher{statuses: map[string]string{
		"doc-1": "DONE",
		"doc-2": "CLASSIFICATION_FAILED",
	}}
	w := &Watcher{Client: fetcher, Interval: time.Millisecond}

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(fetcher.polled) != 0 {
		t.Fatalf("expected no polling for terminal documents, polled %v", fetcher.polled)
	}
}

func TestRunFiresOnChangeAndExits(t *testing.T) {
	fetcher := &scriptedFetcher{
		statuses: map[string]string{"doc-1": "PROCESSING"},
		flips:    map[string]string{"doc-1": "DONE"},
	}

	var changes [][]DocumentSummary
	w := &Watcher{
		Client:   fetcher,
		Interval: time.Millisecond,
		OnChange: func(docs []DocumentSummary) { changes = append(changes, docs) },
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := w.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(changes) != 1 {
		t.Fatalf("OnChange fired %d times, want 1", len(changes))
	}
	if len(changes[0]) != 1 || changes[0][0].Status != "DONE" {
		t.Fatalf("change payload = %+v, want the refreshed DONE document", changes[0])
	}
}

func TestRunSurvivesTransientStatusFailures(t *testing.T) {
	fetcher := &scriptedFetcher{
		statuses:  map[string]string{"doc-1": "PROCESSING"},
		flips:     map[string]string{"doc-1": "FAILED"},
		failPolls: 2,
	}
	w := &Watcher{Client: fetcher, Interval: time.Millisecond}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := w.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if fetcher.polled["doc-1"] < 3 {
		t.Fatalf("polled %d times, want the failed ticks retried", fetcher.polled["doc-1"])
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	fetcher := &scriptedFetcher{statuses: map[string]string{"doc-1": "PROCESSING"}}
	w := &Watcher{Client: fetcher, Interval: time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Run did not stop after cancel")
	}
}

func TestRunPropagatesInitialListError(t *testing.T) {
	fetcher := &scriptedFetcher{listErr: errors.New("server down")}
	w := &Watcher{Client: fetcher, Interval: time.Millisecond}

	if err := w.Run(context.Background()); err == nil {
		t.Fatalf("expected initial list error to propagate")
	}
}

func TestClientSendsIdentityHeaders(t *testing.T) {
	var gotAuth, gotGuest string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotGuest = r.Header.Get("X-Applicant-Id")
		json.NewEncoder(w).Encode([]DocumentSummary{})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "tok-1", "")
	if _, err := client.ListDocuments(context.Background()); err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if gotAuth != "Bearer tok-1" || gotGuest != "" {
		t.Fatalf("headers = %q / %q, want bearer token only", gotAuth, gotGuest)
	}

	client = NewClient(srv.URL, "", "alice")
	if _, err := client.ListDocuments(context.Background()); err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if gotGuest != "alice" || gotAuth != "" {
		t.Fatalf("headers = %q / %q, want guest header only", gotAuth, gotGuest)
	}
}

func TestClientGetStatusNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":"not_found"}}`, http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", "alice")
	if _, err := client.GetStatus(context.Background(), "missing"); err == nil {
		t.Fatalf("expected error for 404 response")
	}
}
