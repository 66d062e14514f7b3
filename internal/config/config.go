// Package config loads the horas tenant configuration, stored in
// ~/.horas/config.json (JSON with comments) or a YAML file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/Tiliavir/horas/internal/model"
	"github.com/Tiliavir/horas/internal/storage"
)

// Version is the schema version this build reads.
const Version = 1

// Adapter kinds.
const (
	KindStatic  = "static"
	KindToggl   = "toggl"
	KindOutlook = "outlook"
	KindGCal    = "gcal"
	KindJira    = "jira"
)

const (
	// DefaultDirectory is the Microsoft "common" tenant (supports personal and
	// multi-tenant organisational accounts without additional registration).
	DefaultDirectory = "common"
	// DefaultClientID is the well-known public Azure CLI app ID. It supports
	// the device code flow without a client secret.
	DefaultClientID = "04b07795-8542-4c4a-95af-30b2c573d5ab"
)

// Config is the root configuration.
type Config struct {
	Version  int      `json:"version" yaml:"version"`
	Database Database `json:"database" yaml:"database"`
	Tenants  []Tenant `json:"tenants" yaml:"tenants"`
}

// Database selects the task store. An empty DSN uses ~/.horas/horas.db.
type Database struct {
	Driver string `json:"driver" yaml:"driver"`
	DSN    string `json:"dsn" yaml:"dsn"`
}

// Tenant is one account whose time is synchronized.
type Tenant struct {
	ID             string        `json:"id" yaml:"id"`
	Name           string        `json:"name" yaml:"name"`
	Timezone       string        `json:"timezone" yaml:"timezone"`
	TicketPatterns []string      `json:"ticket_patterns" yaml:"ticket_patterns"`
	ContentMarks   bool          `json:"content_marks" yaml:"content_marks"`
	TimeTracking   TimeTracking  `json:"time_tracking" yaml:"time_tracking"`
	IssueTracking  IssueTracking `json:"issue_tracking" yaml:"issue_tracking"`
}

// TimeTracking selects where time entries come from. Only the block named
// by Kind is read.
type TimeTracking struct {
	Kind    string                       `json:"kind" yaml:"kind"`
	Static  map[string][]model.TimeEntry `json:"static,omitempty" yaml:"static,omitempty"`
	Toggl   *Toggl                       `json:"toggl,omitempty" yaml:"toggl,omitempty"`
	Outlook *Outlook                     `json:"outlook,omitempty" yaml:"outlook,omitempty"`
	GCal    *GCal                        `json:"gcal,omitempty" yaml:"gcal,omitempty"`
}

type Toggl struct {
	APIToken    string `json:"api_token" yaml:"api_token"`
	WorkspaceID int64  `json:"workspace_id,omitempty" yaml:"workspace_id,omitempty"`
	BaseURL     string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
}

type Outlook struct {
	// Directory is the Entra ID tenant. "common" works for personal accounts.
	Directory string `json:"directory" yaml:"directory"`
	ClientID  string `json:"client_id" yaml:"client_id"`
}

type GCal struct {
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
	CalendarID      string `json:"calendar_id,omitempty" yaml:"calendar_id,omitempty"`
	CalendarName    string `json:"calendar_name,omitempty" yaml:"calendar_name,omitempty"`
}

// IssueTracking selects where worklogs are written.
type IssueTracking struct {
	Kind string `json:"kind" yaml:"kind"`
	Jira *Jira  `json:"jira,omitempty" yaml:"jira,omitempty"`
}

// Jira authenticates with either Username and Password (or API token) or
// a personal access Token.
type Jira struct {
	Server   string `json:"server" yaml:"server"`
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	Token    string `json:"token,omitempty" yaml:"token,omitempty"`
}

// Location loads the tenant's timezone.
func (t Tenant) Location() (*time.Location, error) {
	return time.LoadLocation(t.Timezone)
}

// Tenant returns the tenant with the given id.
func (c Config) Tenant(id string) (Tenant, bool) {
	for _, t := range c.Tenants {
		if t.ID == id {
			return t, true
		}
	}
	return Tenant{}, false
}

// TenantIDs returns the configured tenant ids in file order.
func (c Config) TenantIDs() []string {
	ids := make([]string, 0, len(c.Tenants))
	for _, t := range c.Tenants {
		ids = append(ids, t.ID)
	}
	return ids
}

// DefaultPath returns ~/.horas/config.json.
func DefaultPath() (string, error) {
	base, err := storage.BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "config.json"), nil
}

// Load reads and validates the configuration at path. An empty path means
// DefaultPath, which is created with an annotated template on first run.
func Load(path string) (Config, error) {
	firstRun := path == ""
	if firstRun {
		p, err := DefaultPath()
		if err != nil {
			return Config{}, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) && firstRun {
		if err := writeDefault(path); err != nil {
			return Config{}, fmt.Errorf("creating config file %s: %w", path, err)
		}
		data = []byte(configTemplate)
	} else if err != nil {
		return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
	}

	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a configuration. ext selects YAML (".yaml", ".yml");
// anything else is read as JSON with comments and trailing commas.
// Secrets of the form $VAR or ${VAR} are expanded from the environment.
func Parse(data []byte, ext string) (Config, error) {
	var cfg Config
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	default:
		if err := json.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
			return Config{}, err
		}
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = storage.DriverSQLite
	}
	for i := range c.Tenants {
		t := &c.Tenants[i]
		if t.Name == "" {
			t.Name = t.ID
		}
		if o := t.TimeTracking.Outlook; o != nil {
			if o.Directory == "" {
				o.Directory = DefaultDirectory
			}
			if o.ClientID == "" {
				o.ClientID = DefaultClientID
			}
		}
		if tg := t.TimeTracking.Toggl; tg != nil {
			tg.APIToken = expandSecret(tg.APIToken)
		}
		if j := t.IssueTracking.Jira; j != nil {
			j.Password = expandSecret(j.Password)
			j.Token = expandSecret(j.Token)
		}
	}
}

func expandSecret(s string) string {
	if strings.HasPrefix(s, "$") {
		return os.ExpandEnv(s)
	}
	return s
}

// writeDefault creates the config directory and writes the annotated
// template.
func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return os.WriteFile(path, []byte(configTemplate), 0o600)
}
