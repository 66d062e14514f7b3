// Package registry turns tenant configuration into live adapters. The set
// of adapters is closed: adding one means adding a case here.
package registry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/Tiliavir/horas/internal/config"
	"github.com/Tiliavir/horas/internal/gcal"
	"github.com/Tiliavir/horas/internal/jira"
	"github.com/Tiliavir/horas/internal/msgraph"
	"github.com/Tiliavir/horas/internal/storage"
	"github.com/Tiliavir/horas/internal/ticket"
	"github.com/Tiliavir/horas/internal/timesource"
	"github.com/Tiliavir/horas/internal/toggl"
	"github.com/Tiliavir/horas/internal/tracker"
	"github.com/Tiliavir/horas/internal/worklog"
)

// Registry resolves tenants of one loaded configuration.
type Registry struct {
	Config config.Config
	Logger *slog.Logger
	// Prompt receives interactive sign-in instructions.
	Prompt io.Writer
	// HTTPClient, when set, is used by every HTTP adapter instead of its
	// own authenticated client.
	HTTPClient *http.Client
}

var _ worklog.TenantResolver = (*Registry)(nil)

// Tenant builds the adapters of the tenant with the given id. Every
// failure wraps worklog.ErrConfiguration.
func (r *Registry) Tenant(ctx context.Context, id string) (worklog.Tenant, error) {
	ct, ok := r.Config.Tenant(id)
	if !ok {
		return worklog.Tenant{}, fmt.Errorf("%w: unknown tenant %q", worklog.ErrConfiguration, id)
	}
	t, err := r.build(ctx, ct)
	if err != nil {
		return worklog.Tenant{}, fmt.Errorf("%w: tenant %q: %w", worklog.ErrConfiguration, id, err)
	}
	return t, nil
}

func (r *Registry) build(ctx context.Context, ct config.Tenant) (worklog.Tenant, error) {
	loc, err := ct.Location()
	if err != nil {
		return worklog.Tenant{}, fmt.Errorf("timezone: %w", err)
	}
	matcher, err := ticket.Compile(ct.TicketPatterns)
	if err != nil {
		return worklog.Tenant{}, fmt.Errorf("ticket_patterns: %w", err)
	}
	src, err := r.source(ctx, ct)
	if err != nil {
		return worklog.Tenant{}, fmt.Errorf("time_tracking: %w", err)
	}
	tr, name, err := r.tracker(ctx, ct)
	if err != nil {
		return worklog.Tenant{}, fmt.Errorf("issue_tracking: %w", err)
	}
	return worklog.Tenant{
		ID:           ct.ID,
		Location:     loc,
		Matcher:      matcher,
		Source:       src,
		Tracker:      tr,
		Synchronizer: name,
		ContentMarks: ct.ContentMarks,
	}, nil
}

func (r *Registry) source(ctx context.Context, ct config.Tenant) (timesource.Source, error) {
	loc, err := ct.Location()
	if err != nil {
		return nil, err
	}
	tt := ct.TimeTracking
	switch tt.Kind {
	case config.KindStatic:
		return timesource.Static(tt.Static), nil

	case config.KindToggl:
		if tt.Toggl == nil {
			return nil, fmt.Errorf("missing toggl block")
		}
		return toggl.New(toggl.Options{
			APIToken:    tt.Toggl.APIToken,
			WorkspaceID: tt.Toggl.WorkspaceID,
			BaseURL:     tt.Toggl.BaseURL,
			HTTPClient:  r.HTTPClient,
		})

	case config.KindOutlook:
		if tt.Outlook == nil {
			return nil, fmt.Errorf("missing outlook block")
		}
		if r.HTTPClient != nil {
			return msgraph.NewSourceWithClient(r.HTTPClient, "", loc), nil
		}
		path, err := msgraph.TokenPath(ct.ID)
		if err != nil {
			return nil, err
		}
		return msgraph.NewSource(&msgraph.Authenticator{
			Directory: tt.Outlook.Directory,
			ClientID:  tt.Outlook.ClientID,
			TokenFile: path,
			Prompt:    r.Prompt,
			Logger:    r.Logger,
		}, loc), nil

	case config.KindGCal:
		if tt.GCal == nil {
			return nil, fmt.Errorf("missing gcal block")
		}
		creds, err := storage.ExpandHome(tt.GCal.CredentialsFile)
		if err != nil {
			return nil, err
		}
		return gcal.New(ctx, gcal.Options{
			CredentialsFile: creds,
			CalendarID:      tt.GCal.CalendarID,
			CalendarName:    tt.GCal.CalendarName,
			Location:        loc,
		})
	}
	return nil, fmt.Errorf("unknown kind %q", tt.Kind)
}

// tracker returns the issue tracker and the name its sync marks are kept
// under. The name includes the server, so pointing a tenant at another
// instance pushes everything again.
func (r *Registry) tracker(ctx context.Context, ct config.Tenant) (tracker.IssueTracker, string, error) {
	it := ct.IssueTracking
	switch it.Kind {
	case config.KindJira:
		if it.Jira == nil {
			return nil, "", fmt.Errorf("missing jira block")
		}
		c, err := jira.NewClient(ctx, jira.Options{
			Server:     it.Jira.Server,
			Username:   it.Jira.Username,
			Password:   it.Jira.Password,
			Token:      it.Jira.Token,
			HTTPClient: r.HTTPClient,
		})
		if err != nil {
			return nil, "", err
		}
		return c, SynchronizerName(ct), nil
	}
	return nil, "", fmt.Errorf("unknown kind %q", it.Kind)
}

// SynchronizerName is the name a tenant's sync marks are kept under: the
// issue tracker kind plus its host.
func SynchronizerName(ct config.Tenant) string {
	kind := ct.IssueTracking.Kind
	var server string
	if ct.IssueTracking.Jira != nil {
		server = ct.IssueTracking.Jira.Server
	}
	u, err := url.Parse(server)
	if err != nil || u.Host == "" {
		return kind
	}
	return kind + "@" + u.Host
}
