// Package tracker defines the issue-tracking capability consumed by the
// worklog synchronizer.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrIssueNotFound is returned by Resolve when the ticket does not exist.
// It is permanent: retrying without a configuration change will not help.
var ErrIssueNotFound = errors.New("issue not found")

// Issue is a resolved remote issue.
type Issue struct {
	ID  string
	Key string
}

// Worklog is an existing remote worklog entry.
type Worklog struct {
	ID               string
	Comment          string
	Started          time.Time
	TimeSpentSeconds int64
}

// IssueTracker is the remote issue-tracker capability.
type IssueTracker interface {
	Resolve(ctx context.Context, ticketID string) (Issue, error)
	ListWorklogs(ctx context.Context, issue Issue) ([]Worklog, error)
	CreateWorklog(ctx context.Context, issue Issue, started time.Time, seconds int64, comment string) (Worklog, error)
	UpdateWorklog(ctx context.Context, issue Issue, w Worklog, seconds int64) error
}

// Error is a failed remote call.
type Error struct {
	Op         string
	StatusCode int // 0 when the request never got a response
	Body       string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.StatusCode, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: HTTP %d", e.Op, e.StatusCode)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Temporary reports whether retrying the same call later may succeed.
func (e *Error) Temporary() bool {
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsTemporary reports whether err is a transient tracker failure.
func IsTemporary(err error) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Temporary()
	}
	return false
}
