package poller

import (
	"context"
	"time"

	"kyc-backend/internal/shared/telemetry"
)

// DefaultInterval matches the reference polling cadence.
const DefaultInterval = 5 * time.Second

// terminal states; the watcher stops tracking a document once it reaches one.
func isTerminal(status string) bool {
	switch status {
	case "DONE", "FAILED", "CLASSIFICATION_FAILED":
		return true
	}
	return false
}

// StatusFetcher is the part of Client the watcher needs.
type StatusFetcher interface {
	ListDocuments(ctx context.Context) ([]DocumentSummary, error)
	GetStatus(ctx context.Context, documentID string) (StatusSummary, error)
}

// Watcher re-queries in-flight documents on a fixed interval and fires
// OnChange with a fresh document list whenever any status moves. Run returns
// once no non-terminal documents remain, or when ctx is cancelled. It should
// be restarted after a new upload creates another in-flight document.
type Watcher struct {
	Client   StatusFetcher
	Interval time.Duration
	OnChange func([]DocumentSummary)
}

// Run drives the polling loop. Individual status-call failures are skipped;
// the document keeps its last observed status until a later tick succeeds.
func (w *Watcher) Run(ctx context.Context) error {
	interval := w.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	docs, err := w.Client.ListDocuments(ctx)
	if err != nil {
		return err
	}
	tracked := trackNonTerminal(docs)
	if len(tracked) == 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		changed := false
		for id, lastStatus := range tracked {
			status, err := w.Client.GetStatus(ctx, id)
			if err != nil {
				telemetry.Warn("poller.status_failed", map[string]any{
					"document_id": id,
					"error":       err.Error(),
				})
				continue
			}
			if status.Status != lastStatus {
				changed = true
			}
			tracked[id] = status.Status
		}

		if changed {
			docs, err := w.Client.ListDocuments(ctx)
			if err != nil {
				telemetry.Warn("poller.refresh_failed", map[string]any{"error": err.Error()})
				continue
			}
			if w.OnChange != nil {
				w.OnChange(docs)
			}
			tracked = trackNonTerminal(docs)
		} else {
			for id, status := range tracked {
				if isTerminal(status) {
					delete(tracked, id)
				}
			}
		}

		if len(tracked) == 0 {
			return nil
		}
	}
}

func trackNonTerminal(docs []DocumentSummary) map[string]string {
	tracked := make(map[string]string)
	for _, doc := range docs {
		if !isTerminal(doc.Status) {
			tracked[doc.DocumentID] = doc.Status
		}
	}
	return tracked
}
