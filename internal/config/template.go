package config

// configTemplate is the annotated config written on first run. It parses
// as-is: comments and trailing commas are allowed.
const configTemplate = `// horas configuration – ~/.horas/config.json
//
// Every tenant pairs one time-tracking source with one issue tracker.
// Time spent on descriptions that mention a ticket (see ticket_patterns)
// is written to that ticket as a worklog, once per day and description.
{
  "version": 1,

  // ── Task store ────────────────────────────────────────────────────────────
  // driver: "sqlite" (default, ~/.horas/horas.db), "postgres" or "memory".
  "database": {
    "driver": "sqlite",
    "dsn": "",
  },

  "tenants": [
    // {
    //   "id": "acme",
    //   "name": "ACME Corp",
    //   // IANA timezone; decides which calendar day a task belongs to.
    //   "timezone": "Europe/Berlin",
    //   // Tried in order; the earliest match in a description wins.
    //   "ticket_patterns": ["[A-Z][A-Z0-9]+-[0-9]+"],
    //   // Skip tasks whose content equals what was last pushed.
    //   "content_marks": false,
    //
    //   // kind: "toggl", "outlook", "gcal" or "static".
    //   "time_tracking": {
    //     "kind": "toggl",
    //     "toggl": { "api_token": "$TOGGL_API_TOKEN" },
    //     // "outlook": { "directory": "common", "client_id": "04b07795-8542-4c4a-95af-30b2c573d5ab" },
    //     // "gcal": { "credentials_file": "~/.horas/gcal.json", "calendar_name": "Work" },
    //   },
    //
    //   "issue_tracking": {
    //     "kind": "jira",
    //     "jira": {
    //       "server": "https://jira.example.com",
    //       "username": "me@example.com",
    //       "password": "$JIRA_API_TOKEN",
    //       // or a personal access token instead of username/password:
    //       // "token": "$JIRA_PAT",
    //     },
    //   },
    // },
  ],
}
`
