package config

import (
	"errors"
	"fmt"

	"github.com/Tiliavir/horas/internal/storage"
	"github.com/Tiliavir/horas/internal/ticket"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

// Validate checks the whole configuration and reports every problem found.
// The returned error wraps ErrInvalid.
func (c Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Version != Version {
		add("unsupported version %d (want %d)", c.Version, Version)
	}
	switch c.Database.Driver {
	case storage.DriverSQLite, storage.DriverPostgres, storage.DriverMemory:
	default:
		add("database: unknown driver %q", c.Database.Driver)
	}
	if c.Database.Driver == storage.DriverPostgres && c.Database.DSN == "" {
		add("database: postgres needs a dsn")
	}

	seen := map[string]bool{}
	for i, t := range c.Tenants {
		where := fmt.Sprintf("tenants[%d]", i)
		if t.ID == "" {
			add("%s: id is required", where)
		} else {
			where = fmt.Sprintf("tenant %q", t.ID)
			if seen[t.ID] {
				add("%s: duplicate id", where)
			}
			seen[t.ID] = true
		}
		for _, err := range t.validate() {
			add("%s: %w", where, err)
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

func (t Tenant) validate() []error {
	var errs []error
	if _, err := t.Location(); err != nil || t.Timezone == "" {
		errs = append(errs, fmt.Errorf("timezone %q is not a valid IANA zone", t.Timezone))
	}
	if _, err := ticket.Compile(t.TicketPatterns); err != nil {
		errs = append(errs, fmt.Errorf("ticket_patterns: %w", err))
	}

	tt := t.TimeTracking
	switch tt.Kind {
	case KindStatic:
	case KindToggl:
		if tt.Toggl == nil || tt.Toggl.APIToken == "" {
			errs = append(errs, errors.New("time_tracking: toggl needs api_token"))
		}
	case KindOutlook:
		if tt.Outlook == nil {
			errs = append(errs, errors.New("time_tracking: missing outlook block"))
		}
	case KindGCal:
		if tt.GCal == nil || tt.GCal.CredentialsFile == "" {
			errs = append(errs, errors.New("time_tracking: gcal needs credentials_file"))
		}
	default:
		errs = append(errs, fmt.Errorf("time_tracking: unknown kind %q", tt.Kind))
	}

	it := t.IssueTracking
	switch it.Kind {
	case KindJira:
		j := it.Jira
		switch {
		case j == nil:
			errs = append(errs, errors.New("issue_tracking: missing jira block"))
		case j.Server == "":
			errs = append(errs, errors.New("issue_tracking: jira server is required"))
		case j.Token == "" && (j.Username == "" || j.Password == ""):
			errs = append(errs, errors.New("issue_tracking: jira needs username and password, or token"))
		}
	default:
		errs = append(errs, fmt.Errorf("issue_tracking: unknown kind %q", it.Kind))
	}
	return errs
}
