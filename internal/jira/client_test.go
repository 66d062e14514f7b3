package jira_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Tiliavir/horas/internal/jira"
	"github.com/Tiliavir/horas/internal/tracker"
)

// fakeJira serves a single issue with an in-memory worklog list.
type fakeJira struct {
	mu       sync.Mutex
	key      string
	worklogs []map[string]any
	nextID   int
	auth     []string
	pageSize int
}

func (f *fakeJira) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /rest/api/2/issue/{key}", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		if r.PathValue("key") != f.key {
			http.Error(w, `{"errorMessages":["Issue does not exist"]}`, http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "10001", "key": f.key})
	})
	mux.HandleFunc("GET /rest/api/2/issue/{key}/worklog", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		f.mu.Lock()
		defer f.mu.Unlock()
		startAt, _ := strconv.Atoi(r.URL.Query().Get("startAt"))
		end := min(startAt+f.pageSize, len(f.worklogs))
		page := []map[string]any{}
		if startAt < len(f.worklogs) {
			page = f.worklogs[startAt:end]
		}
		json.NewEncoder(w).Encode(map[string]any{
			"startAt":    startAt,
			"maxResults": f.pageSize,
			"total":      len(f.worklogs),
			"worklogs":   page,
		})
	})
	mux.HandleFunc("POST /rest/api/2/issue/{key}/worklog", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding create body: %v", err)
		}
		f.mu.Lock()
		f.nextID++
		body["id"] = strconv.Itoa(f.nextID)
		f.worklogs = append(f.worklogs, body)
		f.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(body)
	})
	mux.HandleFunc("PUT /rest/api/2/issue/{key}/worklog/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding update body: %v", err)
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		for _, wl := range f.worklogs {
			if wl["id"] == r.PathValue("id") {
				wl["timeSpentSeconds"] = body["timeSpentSeconds"]
				json.NewEncoder(w).Encode(wl)
				return
			}
		}
		http.NotFound(w, r)
	})
	return mux
}

func (f *fakeJira) record(r *http.Request) {
	f.mu.Lock()
	f.auth = append(f.auth, r.Header.Get("Authorization"))
	f.mu.Unlock()
}

func newFake(t *testing.T) (*fakeJira, *httptest.Server) {
	f := &fakeJira{key: "DEV-1234", pageSize: 2}
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	return f, srv
}

func TestResolve(t *testing.T) {
	f, srv := newFake(t)
	c, err := jira.NewClient(context.Background(), jira.Options{Server: srv.URL, Username: "admin", Password: "admin"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	issue, err := c.Resolve(context.Background(), "DEV-1234")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if issue.ID != "10001" || issue.Key != "DEV-1234" {
		t.Errorf("Resolve = %+v", issue)
	}
	if len(f.auth) != 1 || !strings.HasPrefix(f.auth[0], "Basic ") {
		t.Errorf("Authorization = %v, want basic auth", f.auth)
	}

	_, err = c.Resolve(context.Background(), "DEV-9")
	if !errors.Is(err, tracker.ErrIssueNotFound) {
		t.Errorf("Resolve missing issue err = %v, want ErrIssueNotFound", err)
	}
	if tracker.IsTemporary(err) {
		t.Error("not found must not be temporary")
	}
}

func TestBearerToken(t *testing.T) {
	f, srv := newFake(t)
	c, err := jira.NewClient(context.Background(), jira.Options{Server: srv.URL, Token: "pat-123"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := c.Resolve(context.Background(), "DEV-1234"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if f.auth[0] != "Bearer pat-123" {
		t.Errorf("Authorization = %q, want bearer token", f.auth[0])
	}
}

func TestNewClientRequiresCredentials(t *testing.T) {
	if _, err := jira.NewClient(context.Background(), jira.Options{Server: "https://jira.example.com"}); err == nil {
		t.Error("expected error without credentials")
	}
	if _, err := jira.NewClient(context.Background(), jira.Options{Username: "a", Password: "b"}); err == nil {
		t.Error("expected error without server")
	}
}

func TestWorklogLifecycle(t *testing.T) {
	f, srv := newFake(t)
	ctx := context.Background()
	c, err := jira.NewClient(ctx, jira.Options{Server: srv.URL, Username: "admin", Password: "admin"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	issue := tracker.Issue{ID: "10001", Key: "DEV-1234"}
	loc := time.FixedZone("CET", 3600)

	for i := 0; i < 3; i++ {
		started := time.Date(2014, 1, 1+i, 18, 0, 0, 0, loc)
		if _, err := c.CreateWorklog(ctx, issue, started, 600, fmt.Sprintf("work %d", i)); err != nil {
			t.Fatalf("CreateWorklog %d: %v", i, err)
		}
	}
	if got := f.worklogs[0]["started"]; got != "2014-01-01T18:00:00.000+0100" {
		t.Errorf("started = %v, want Jira time layout", got)
	}

	// Three worklogs at page size 2 force a second page.
	wls, err := c.ListWorklogs(ctx, issue)
	if err != nil {
		t.Fatalf("ListWorklogs: %v", err)
	}
	if len(wls) != 3 {
		t.Fatalf("ListWorklogs = %d, want 3", len(wls))
	}
	if wls[2].Comment != "work 2" || wls[2].TimeSpentSeconds != 600 {
		t.Errorf("third worklog = %+v", wls[2])
	}
	if !wls[0].Started.Equal(time.Date(2014, 1, 1, 17, 0, 0, 0, time.UTC)) {
		t.Errorf("Started = %v", wls[0].Started)
	}

	if err := c.UpdateWorklog(ctx, issue, wls[1], 900); err != nil {
		t.Fatalf("UpdateWorklog: %v", err)
	}
	wls, err = c.ListWorklogs(ctx, issue)
	if err != nil {
		t.Fatalf("ListWorklogs after update: %v", err)
	}
	if wls[1].TimeSpentSeconds != 900 {
		t.Errorf("updated seconds = %d, want 900", wls[1].TimeSpentSeconds)
	}
}

func TestServerErrorIsTemporary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := jira.NewClient(context.Background(), jira.Options{Server: srv.URL, Username: "a", Password: "b"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = c.Resolve(context.Background(), "DEV-1")
	var te *tracker.Error
	if !errors.As(err, &te) || te.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("err = %v, want tracker.Error 503", err)
	}
	if !te.Temporary() {
		t.Error("503 should be temporary")
	}
}
