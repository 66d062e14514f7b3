// Package toggl reads time entries from the Toggl Track API v9.
package toggl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Tiliavir/horas/internal/model"
	"github.com/Tiliavir/horas/internal/timecalc"
	"github.com/Tiliavir/horas/internal/timesource"
)

// DefaultBaseURL is the public Toggl Track API.
const DefaultBaseURL = "https://api.track.toggl.com"

// Source fetches a day of Toggl time entries for the token's user.
type Source struct {
	baseURL     string
	apiToken    string
	workspaceID int64
	httpClient  *http.Client
}

var _ timesource.Source = (*Source)(nil)

// Options configures a Source.
type Options struct {
	APIToken    string
	WorkspaceID int64 // 0 keeps entries of every workspace
	BaseURL     string
	HTTPClient  *http.Client
}

// New creates a Toggl source.
func New(opts Options) (*Source, error) {
	if opts.APIToken == "" {
		return nil, fmt.Errorf("toggl: api_token is required")
	}
	base := opts.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Source{
		baseURL:     strings.TrimRight(base, "/"),
		apiToken:    opts.APIToken,
		workspaceID: opts.WorkspaceID,
		httpClient:  hc,
	}, nil
}

type timeEntry struct {
	Description string `json:"description"`
	Duration    int64  `json:"duration"` // negative while running
	WorkspaceID int64  `json:"workspace_id"`
	Start       string `json:"start"`
}

// Fetch returns the entries that started within [day, next day).
func (s *Source) Fetch(ctx context.Context, day time.Time) ([]model.TimeEntry, error) {
	q := url.Values{
		"start_date": {day.Format(time.RFC3339)},
		"end_date":   {timecalc.NextDay(day).Format(time.RFC3339)},
	}
	endpoint := s.baseURL + "/api/v9/me/time_entries?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.SetBasicAuth(s.apiToken, "api_token")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("toggl request failed: %w", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("toggl API error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var raw []timeEntry
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decoding toggl response: %w", err)
	}
	var entries []model.TimeEntry
	for _, e := range raw {
		if e.Duration < 0 {
			continue
		}
		if s.workspaceID != 0 && e.WorkspaceID != s.workspaceID {
			continue
		}
		entries = append(entries, model.TimeEntry{Description: e.Description, DurationSeconds: e.Duration})
	}
	return entries, nil
}
