package worklog_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Tiliavir/horas/internal/tracker"
)

// fakeTracker is an in-memory issue tracker.
type fakeTracker struct {
	mu       sync.Mutex
	issues   map[string][]tracker.Worklog // key -> worklogs
	failKeys map[string]error             // Resolve errors per key
	writeErr error
	nextID   int
	creates  int
	updates  int
}

func newFakeTracker(keys ...string) *fakeTracker {
	f := &fakeTracker{issues: map[string][]tracker.Worklog{}, failKeys: map[string]error{}}
	for _, k := range keys {
		f.issues[k] = nil
	}
	return f
}

func (f *fakeTracker) Resolve(ctx context.Context, ticketID string) (tracker.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failKeys[ticketID]; err != nil {
		return tracker.Issue{}, err
	}
	if _, ok := f.issues[ticketID]; !ok {
		return tracker.Issue{}, &tracker.Error{Op: "resolve " + ticketID, StatusCode: 404, Err: tracker.ErrIssueNotFound}
	}
	return tracker.Issue{ID: "id-" + ticketID, Key: ticketID}, nil
}

func (f *fakeTracker) ListWorklogs(ctx context.Context, issue tracker.Issue) ([]tracker.Worklog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tracker.Worklog(nil), f.issues[issue.Key]...), nil
}

func (f *fakeTracker) CreateWorklog(ctx context.Context, issue tracker.Issue, started time.Time, seconds int64, comment string) (tracker.Worklog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return tracker.Worklog{}, f.writeErr
	}
	f.nextID++
	w := tracker.Worklog{ID: fmt.Sprint(f.nextID), Comment: comment, Started: started, TimeSpentSeconds: seconds}
	f.issues[issue.Key] = append(f.issues[issue.Key], w)
	f.creates++
	return w, nil
}

func (f *fakeTracker) UpdateWorklog(ctx context.Context, issue tracker.Issue, w tracker.Worklog, seconds int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	for i := range f.issues[issue.Key] {
		if f.issues[issue.Key][i].ID == w.ID {
			f.issues[issue.Key][i].TimeSpentSeconds = seconds
			f.updates++
			return nil
		}
	}
	return &tracker.Error{Op: "update worklog " + w.ID, StatusCode: 404}
}

func (f *fakeTracker) worklogs(key string) []tracker.Worklog {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tracker.Worklog(nil), f.issues[key]...)
}

func (f *fakeTracker) writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates + f.updates
}
