package ticket_test

import (
	"errors"
	"testing"

	"github.com/Tiliavir/horas/internal/ticket"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		name        string
		patterns    []string
		description string
		wantOK      bool
		wantTicket  string
		wantComment string
	}{
		{
			name:        "leading ticket is stripped",
			patterns:    []string{"DEV-[0-9]+"},
			description: "DEV-1234 trying to understand the bug",
			wantOK:      true,
			wantTicket:  "DEV-1234",
			wantComment: "trying to understand the bug",
		},
		{
			name:        "earliest mention wins and comment is unchanged",
			patterns:    []string{"DEV-[0-9]+"},
			description: "rewriting the commit function (as defined at DEV-1532), also affects DEV-1534",
			wantOK:      true,
			wantTicket:  "DEV-1532",
			wantComment: "rewriting the commit function (as defined at DEV-1532), also affects DEV-1534",
		},
		{
			name:        "separators after leading ticket are stripped",
			patterns:    []string{"DEV-[0-9]+"},
			description: "DEV-12: fix bug",
			wantOK:      true,
			wantTicket:  "DEV-12",
			wantComment: "fix bug",
		},
		{
			name:        "bare ticket keeps description as comment",
			patterns:    []string{"DEV-[0-9]+"},
			description: "DEV-12",
			wantOK:      true,
			wantTicket:  "DEV-12",
			wantComment: "DEV-12",
		},
		{
			name:        "no match",
			patterns:    []string{"DEV-[0-9]+"},
			description: "standup call",
			wantOK:      false,
		},
		{
			name:        "case sensitive",
			patterns:    []string{"DEV-[0-9]+"},
			description: "dev-12 lowercase",
			wantOK:      false,
		},
		{
			name:        "alphanumeric neighbour on the left rejects",
			patterns:    []string{"DEV-[0-9]+"},
			description: "XDEV-12 nope",
			wantOK:      false,
		},
		{
			name:        "alphanumeric neighbour on the right rejects",
			patterns:    []string{"DEV-[0-9]+"},
			description: "DEV-12a nope",
			wantOK:      false,
		},
		{
			name:        "rejected occurrence does not hide a later valid one",
			patterns:    []string{"DEV-[0-9]+"},
			description: "XDEV-1 then DEV-2",
			wantOK:      true,
			wantTicket:  "DEV-2",
			wantComment: "XDEV-1 then DEV-2",
		},
		{
			name:        "punctuation is a boundary",
			patterns:    []string{"DEV-[0-9]+"},
			description: "[DEV-7] review",
			wantOK:      true,
			wantTicket:  "DEV-7",
			wantComment: "[DEV-7] review",
		},
		{
			name:        "earliest offset beats pattern order",
			patterns:    []string{"OPS-[0-9]+", "DEV-[0-9]+"},
			description: "DEV-3 blocked by OPS-9",
			wantOK:      true,
			wantTicket:  "DEV-3",
			wantComment: "blocked by OPS-9",
		},
		{
			name:        "same offset resolves to first pattern",
			patterns:    []string{"[A-Z]+-[0-9]+", "DEV-[0-9]+"},
			description: "DEV-44 pairing",
			wantOK:      true,
			wantTicket:  "DEV-44",
			wantComment: "pairing",
		},
		{
			name:        "same offset, looser pattern first wins",
			patterns:    []string{"[0-9]+", "[0-9]+-[0-9]+"},
			description: "12-34 split",
			wantOK:      true,
			wantTicket:  "12",
			wantComment: "34 split",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ticket.Compile(tt.patterns)
			if err != nil {
				t.Fatalf("Compile: %v", err)
			}
			got, ok := m.Match(tt.description)
			if ok != tt.wantOK {
				t.Fatalf("Match ok = %v, want %v (got %+v)", ok, tt.wantOK, got)
			}
			if !ok {
				return
			}
			if got.TicketID != tt.wantTicket {
				t.Errorf("TicketID = %q, want %q", got.TicketID, tt.wantTicket)
			}
			if got.Comment != tt.wantComment {
				t.Errorf("Comment = %q, want %q", got.Comment, tt.wantComment)
			}
		})
	}
}

func TestCompileErrors(t *testing.T) {
	if _, err := ticket.Compile(nil); !errors.Is(err, ticket.ErrNoPatterns) {
		t.Errorf("Compile(nil) err = %v, want ErrNoPatterns", err)
	}
	if _, err := ticket.Compile([]string{"DEV-("}); err == nil {
		t.Error("Compile with invalid regexp: expected error")
	}
	if _, err := ticket.Compile([]string{"  "}); err == nil {
		t.Error("Compile with blank pattern: expected error")
	}
}

func TestMatchOffset(t *testing.T) {
	m := ticket.MustCompile("DEV-[0-9]+")
	got, ok := m.Match("see DEV-5")
	if !ok || got.Offset != 4 {
		t.Errorf("Match = %+v, %v; want offset 4", got, ok)
	}
}
