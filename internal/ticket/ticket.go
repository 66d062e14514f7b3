// Package ticket extracts issue identifiers from free-text task descriptions.
//
// Patterns are ordinary RE2 expressions. A pattern only matches where the
// matched text is not glued to a letter or digit on either side, so
// "DEV-[0-9]+" finds "DEV-12" in "(DEV-12)" but not in "XDEV-12" or "DEV-12a".
// When several patterns match, the one starting earliest in the description
// wins and ties go to the pattern listed first.
package ticket

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// ErrNoPatterns is returned by Compile for an empty pattern list.
var ErrNoPatterns = errors.New("no ticket patterns configured")

// Match is the outcome of a successful search.
type Match struct {
	TicketID string
	// Comment is the text used as the worklog comment for this description.
	Comment string
	// Offset is the byte offset of TicketID in the description.
	Offset int
}

// Matcher holds an ordered list of compiled patterns.
type Matcher struct {
	patterns []*regexp.Regexp
	sources  []string
}

// boundary wraps p so that group 1 is only matched between non-alphanumeric
// characters or the ends of the input.
func boundary(p string) string {
	return `(?:^|[^\p{L}\p{N}])(` + p + `)(?:$|[^\p{L}\p{N}])`
}

// Compile compiles patterns in priority order.
func Compile(patterns []string) (*Matcher, error) {
	if len(patterns) == 0 {
		return nil, ErrNoPatterns
	}
	m := &Matcher{}
	for i, p := range patterns {
		if strings.TrimSpace(p) == "" {
			return nil, fmt.Errorf("ticket pattern %d is empty", i)
		}
		re, err := regexp.Compile(boundary(p))
		if err != nil {
			return nil, fmt.Errorf("ticket pattern %d %q: %w", i, p, err)
		}
		m.patterns = append(m.patterns, re)
		m.sources = append(m.sources, p)
	}
	return m, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(patterns ...string) *Matcher {
	m, err := Compile(patterns)
	if err != nil {
		panic(err)
	}
	return m
}

// Patterns returns the source patterns in priority order.
func (m *Matcher) Patterns() []string {
	return append([]string(nil), m.sources...)
}

// Match finds the earliest ticket mention in description.
func (m *Matcher) Match(description string) (Match, bool) {
	best := Match{Offset: -1}
	for _, re := range m.patterns {
		loc := re.FindStringSubmatchIndex(description)
		if loc == nil {
			continue
		}
		start, end := loc[2], loc[3]
		// Strictly smaller keeps the first pattern on ties.
		if best.Offset == -1 || start < best.Offset {
			best = Match{TicketID: description[start:end], Offset: start}
			best.Comment = comment(description, start, end)
		}
	}
	if best.Offset == -1 {
		return Match{}, false
	}
	return best, true
}

// comment strips a leading ticket token and the separators after it. Any
// other position leaves the description untouched.
func comment(description string, start, end int) string {
	if start != 0 {
		return description
	}
	rest := strings.TrimLeftFunc(description[end:], func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if rest == "" {
		return description
	}
	return rest
}
