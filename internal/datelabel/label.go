// Package datelabel implements the relative-date mini-language used by rule
// literals: TODAY, LAST_<N>_DAYS, NEXT_<N>_DAYS and ISO YYYY-MM-DD dates.
//
// Parsing is pure. Only Resolve consults a clock value, and it receives that
// value from the caller.
package datelabel

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ISOLayout is the calendar date layout accepted for absolute dates.
const ISOLayout = "2006-01-02"

var (
	// ErrUnknownLabel is returned for strings that are neither a known label nor an ISO date.
	ErrUnknownLabel = errors.New("unknown date label")

	// ErrMalformedDate is returned for strings shaped like an ISO date that do not parse.
	ErrMalformedDate = errors.New("malformed ISO date")
)

// Kind identifies the form of a parsed label.
type Kind int

const (
	KindDate Kind = iota
	KindToday
	KindLastDays
	KindNextDays
)

func (k Kind) String() string {
	switch k {
	case KindDate:
		return "DATE"
	case KindToday:
		return "TODAY"
	case KindLastDays:
		return "LAST_DAYS"
	case KindNextDays:
		return "NEXT_DAYS"
	}
	return "UNKNOWN"
}

// Label is a parsed date literal.
type Label struct {
	Kind Kind
	// Days is N for LAST_<N>_DAYS and NEXT_<N>_DAYS.
	Days int
	// Date is the absolute date for KindDate, at midnight UTC.
	Date time.Time
}

// Parse parses a date literal without resolving it.
func Parse(s string) (Label, error) {
	if s == "TODAY" {
		return Label{Kind: KindToday}, nil
	}

	if rest, ok := strings.CutPrefix(s, "LAST_"); ok {
		n, err := parseDays(rest)
		if err != nil {
			return Label{}, fmt.Errorf("%w: %q", err, s)
		}
		return Label{Kind: KindLastDays, Days: n}, nil
	}

	if rest, ok := strings.CutPrefix(s, "NEXT_"); ok {
		n, err := parseDays(rest)
		if err != nil {
			return Label{}, fmt.Errorf("%w: %q", err, s)
		}
		return Label{Kind: KindNextDays, Days: n}, nil
	}

	if !looksLikeDate(s) {
		return Label{}, fmt.Errorf("%w: %q", ErrUnknownLabel, s)
	}
	d, err := time.Parse(ISOLayout, s)
	if err != nil {
		return Label{}, fmt.Errorf("%w: %q", ErrMalformedDate, s)
	}
	return Label{Kind: KindDate, Date: d}, nil
}

// parseDays parses the "<N>_DAYS" tail of a relative label.
func parseDays(s string) (int, error) {
	digits, ok := strings.CutSuffix(s, "_DAYS")
	if !ok || digits == "" {
		return 0, ErrUnknownLabel
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, ErrUnknownLabel
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		// only overflow can get here
		return 0, ErrUnknownLabel
	}
	return n, nil
}

// looksLikeDate reports whether s has the NNNN-NN-NN shape.
func looksLikeDate(s string) bool {
	if len(s) != len(ISOLayout) {
		return false
	}
	for i := 0; i < len(s); i++ {
		switch i {
		case 4, 7:
			if s[i] != '-' {
				return false
			}
		default:
			if s[i] < '0' || s[i] > '9' {
				return false
			}
		}
	}
	return true
}

// Resolve returns the concrete calendar day the label denotes relative to now,
// as midnight UTC. The calendar day of now is taken in now's own location.
func (l Label) Resolve(now time.Time) time.Time {
	if l.Kind == KindDate {
		return l.Date
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	switch l.Kind {
	case KindLastDays:
		return today.AddDate(0, 0, -l.Days)
	case KindNextDays:
		return today.AddDate(0, 0, l.Days)
	}
	return today
}

// String renders the label in its literal form.
func (l Label) String() string {
	switch l.Kind {
	case KindToday:
		return "TODAY"
	case KindLastDays:
		return "LAST_" + strconv.Itoa(l.Days) + "_DAYS"
	case KindNextDays:
		return "NEXT_" + strconv.Itoa(l.Days) + "_DAYS"
	}
	return l.Date.Format(ISOLayout)
}

// Resolve parses s and resolves it against now.
func Resolve(s string, now time.Time) (time.Time, error) {
	l, err := Parse(s)
	if err != nil {
		return time.Time{}, err
	}
	return l.Resolve(now), nil
}

// Truncate returns midnight UTC of t's calendar day in t's location.
func Truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
