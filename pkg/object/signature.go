package object

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NewSignature stamps name and email with t, keeping t's zone offset.
func NewSignature(name, email string, t time.Time) Signature {
	return Signature{Name: name, Email: email, When: t.Truncate(time.Second)}
}

// String renders the signature in its commit-line form:
//
//	Name <email> 1616834749 +0900
func (s Signature) String() string {
	return fmt.Sprintf("%s <%s> %d %s", s.Name, s.Email, s.When.Unix(), FormatOffset(s.When))
}

// ParseSignature parses "Name <email> unix ±HHMM". The name may contain
// spaces; the email is bounded by angle brackets.
func ParseSignature(line string) (Signature, error) {
	lt := strings.IndexByte(line, '<')
	gt := strings.LastIndexByte(line, '>')
	if lt < 0 || gt < lt {
		return Signature{}, fmt.Errorf("invalid signature %q: missing <email>", line)
	}
	name := strings.TrimSpace(line[:lt])
	email := line[lt+1 : gt]

	fields := strings.Fields(line[gt+1:])
	if len(fields) != 2 {
		return Signature{}, fmt.Errorf("invalid signature %q: want timestamp and offset", line)
	}
	unix, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Signature{}, fmt.Errorf("invalid signature %q: timestamp: %w", line, err)
	}
	loc, err := ParseOffset(fields[1])
	if err != nil {
		return Signature{}, fmt.Errorf("invalid signature %q: %w", line, err)
	}
	return Signature{
		Name:  name,
		Email: email,
		When:  time.Unix(unix, 0).In(loc),
	}, nil
}

// ParseOffset converts "+0900" / "-0530" to a fixed zone. West offsets are
// negative.
func ParseOffset(s string) (*time.Location, error) {
	if len(s) != 5 || (s[0] != '+' && s[0] != '-') {
		return nil, fmt.Errorf("invalid zone offset %q", s)
	}
	hh, err := strconv.Atoi(s[1:3])
	if err != nil {
		return nil, fmt.Errorf("invalid zone offset %q: %w", s, err)
	}
	mm, err := strconv.Atoi(s[3:5])
	if err != nil || mm >= 60 {
		return nil, fmt.Errorf("invalid zone offset %q", s)
	}
	secs := hh*3600 + mm*60
	if s[0] == '-' {
		secs = -secs
	}
	return time.FixedZone(s, secs), nil
}

// FormatOffset renders t's zone offset as ±HHMM.
func FormatOffset(t time.Time) string {
	_, secs := t.Zone()
	sign := '+'
	if secs < 0 {
		sign = '-'
		secs = -secs
	}
	return fmt.Sprintf("%c%02d%02d", sign, secs/3600, (secs%3600)/60)
}
