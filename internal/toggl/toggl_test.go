package toggl_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Tiliavir/horas/internal/toggl"
)

func TestFetch(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	var gotStart, gotEnd string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "tok" || pass != "api_token" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if r.URL.Path != "/api/v9/me/time_entries" {
			http.NotFound(w, r)
			return
		}
		gotStart = r.URL.Query().Get("start_date")
		gotEnd = r.URL.Query().Get("end_date")
		w.Write([]byte(`[
			{"description":"DEV-1 standup","duration":900,"workspace_id":1},
			{"description":"DEV-2 review","duration":600,"workspace_id":2},
			{"description":"running","duration":-1700000000,"workspace_id":1}
		]`))
	}))
	defer srv.Close()

	src, err := toggl.New(toggl.Options{APIToken: "tok", BaseURL: srv.URL, WorkspaceID: 1})
	if err != nil {
		t.Fatal(err)
	}
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, loc)
	entries, err := src.Fetch(context.Background(), day)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(entries) != 1 || entries[0].Description != "DEV-1 standup" || entries[0].DurationSeconds != 900 {
		t.Errorf("entries = %+v, want only the finished workspace-1 entry", entries)
	}
	if gotStart != "2026-03-02T00:00:00+01:00" || gotEnd != "2026-03-03T00:00:00+01:00" {
		t.Errorf("window = [%s, %s)", gotStart, gotEnd)
	}
}

func TestFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()
	src, _ := toggl.New(toggl.Options{APIToken: "bad", BaseURL: srv.URL})
	if _, err := src.Fetch(context.Background(), time.Now()); err == nil {
		t.Fatal("expected error on 403")
	}
}

func TestNewRequiresToken(t *testing.T) {
	if _, err := toggl.New(toggl.Options{}); err == nil {
		t.Fatal("expected error without api token")
	}
}
