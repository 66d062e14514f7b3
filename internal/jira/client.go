// Package jira implements tracker.IssueTracker over the Jira REST API v2.
package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/Tiliavir/horas/internal/tracker"
)

// timeLayout is the format Jira uses for worklog "started".
const timeLayout = "2006-01-02T15:04:05.000-0700"

const (
	pageSize       = 100
	requestTimeout = 30 * time.Second
)

// Options configures a Client.
type Options struct {
	// Server is the Jira base URL, e.g. "https://acme.atlassian.net".
	Server string
	// Username and Password (or API token) select basic auth.
	Username string
	Password string
	// Token is a personal access token sent as a bearer token. It takes
	// precedence over basic auth.
	Token string
	// HTTPClient overrides the transport; its auth is left untouched.
	HTTPClient *http.Client
}

// Client is an authenticated Jira API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

var _ tracker.IssueTracker = (*Client)(nil)

// NewClient creates a Client for the given options.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if opts.Server == "" {
		return nil, fmt.Errorf("jira: server is required")
	}
	if _, err := url.Parse(opts.Server); err != nil {
		return nil, fmt.Errorf("jira: invalid server %q: %w", opts.Server, err)
	}

	httpClient := opts.HTTPClient
	switch {
	case httpClient != nil:
	case opts.Token != "":
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: opts.Token,
			TokenType:   "Bearer",
		}))
		httpClient.Timeout = requestTimeout
	case opts.Username != "":
		httpClient = &http.Client{
			Transport: &basicAuthTransport{username: opts.Username, password: opts.Password},
			Timeout:   requestTimeout,
		}
	default:
		return nil, fmt.Errorf("jira: either a token or username and password are required")
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(opts.Server, "/") + "/rest/api/2",
	}, nil
}

// basicAuthTransport adds HTTP basic credentials to every request.
type basicAuthTransport struct {
	username string
	password string
	base     http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.SetBasicAuth(t.username, t.password)
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(r)
}

type issueResponse struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

type worklogJSON struct {
	ID               string `json:"id,omitempty"`
	Comment          string `json:"comment,omitempty"`
	Started          string `json:"started,omitempty"`
	TimeSpentSeconds int64  `json:"timeSpentSeconds"`
}

type worklogPage struct {
	StartAt    int           `json:"startAt"`
	MaxResults int           `json:"maxResults"`
	Total      int           `json:"total"`
	Worklogs   []worklogJSON `json:"worklogs"`
}

// Resolve looks up an issue by key.
func (c *Client) Resolve(ctx context.Context, ticketID string) (tracker.Issue, error) {
	endpoint := fmt.Sprintf("%s/issue/%s?fields=summary", c.baseURL, url.PathEscape(ticketID))
	var resp issueResponse
	if err := c.do(ctx, "get issue "+ticketID, http.MethodGet, endpoint, nil, &resp); err != nil {
		return tracker.Issue{}, err
	}
	return tracker.Issue{ID: resp.ID, Key: resp.Key}, nil
}

// ListWorklogs returns every worklog of the issue, following pagination.
func (c *Client) ListWorklogs(ctx context.Context, issue tracker.Issue) ([]tracker.Worklog, error) {
	var all []tracker.Worklog
	startAt := 0
	for {
		endpoint := fmt.Sprintf("%s/issue/%s/worklog?startAt=%d&maxResults=%d",
			c.baseURL, url.PathEscape(issueRef(issue)), startAt, pageSize)
		var page worklogPage
		if err := c.do(ctx, "list worklogs "+issue.Key, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}
		for _, w := range page.Worklogs {
			wl, err := fromJSON(w)
			if err != nil {
				return nil, fmt.Errorf("list worklogs %s: %w", issue.Key, err)
			}
			all = append(all, wl)
		}
		startAt = page.StartAt + len(page.Worklogs)
		if len(page.Worklogs) == 0 || startAt >= page.Total {
			break
		}
	}
	return all, nil
}

// CreateWorklog logs seconds against the issue.
func (c *Client) CreateWorklog(ctx context.Context, issue tracker.Issue, started time.Time, seconds int64, comment string) (tracker.Worklog, error) {
	endpoint := fmt.Sprintf("%s/issue/%s/worklog", c.baseURL, url.PathEscape(issueRef(issue)))
	body := worklogJSON{
		Comment:          comment,
		Started:          started.Format(timeLayout),
		TimeSpentSeconds: seconds,
	}
	var created worklogJSON
	if err := c.do(ctx, "create worklog "+issue.Key, http.MethodPost, endpoint, body, &created); err != nil {
		return tracker.Worklog{}, err
	}
	return fromJSON(created)
}

// UpdateWorklog replaces the time spent on an existing worklog.
func (c *Client) UpdateWorklog(ctx context.Context, issue tracker.Issue, w tracker.Worklog, seconds int64) error {
	endpoint := fmt.Sprintf("%s/issue/%s/worklog/%s", c.baseURL, url.PathEscape(issueRef(issue)), url.PathEscape(w.ID))
	body := worklogJSON{TimeSpentSeconds: seconds}
	return c.do(ctx, "update worklog "+w.ID, http.MethodPut, endpoint, body, nil)
}

func issueRef(issue tracker.Issue) string {
	if issue.Key != "" {
		return issue.Key
	}
	return issue.ID
}

func fromJSON(w worklogJSON) (tracker.Worklog, error) {
	started, err := time.Parse(timeLayout, w.Started)
	if err != nil {
		return tracker.Worklog{}, fmt.Errorf("parsing worklog %s started %q: %w", w.ID, w.Started, err)
	}
	return tracker.Worklog{
		ID:               w.ID,
		Comment:          w.Comment,
		Started:          started,
		TimeSpentSeconds: w.TimeSpentSeconds,
	}, nil
}

// do sends a JSON request and decodes a JSON response into out when non-nil.
func (c *Client) do(ctx context.Context, op, method, endpoint string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encoding request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("%s: creating request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &tracker.Error{Op: op, Err: err}
	}
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return &tracker.Error{Op: op, Err: fmt.Errorf("reading response body: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &tracker.Error{Op: op, StatusCode: resp.StatusCode, Err: tracker.ErrIssueNotFound}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &tracker.Error{Op: op, StatusCode: resp.StatusCode, Body: truncate(string(data), 200)}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decoding response: %w", op, err)
	}
	return nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

// String identifies the client in logs.
func (c *Client) String() string {
	return "jira(" + strings.TrimSuffix(c.baseURL, "/rest/api/2") + ")"
}
