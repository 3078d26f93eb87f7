package tradeledger

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// TimestampFormat is the canonical form of a Timestamp. It is fixed width and
// zero padded, hence the lexicographic order of canonical strings is the
// chronological order.
const TimestampFormat = "2006-01-02 15:04:05"

// DateFormat is the date part of TimestampFormat.
const DateFormat = "2006-01-02"

var (
	strictDateRE = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	strictTimeRE = regexp.MustCompile(`^\d{2}:\d{2}(:\d{2})?$`)
)

// Timestamp is a naive wall-clock date and time, with second precision.
//
// There is no timezone: all timestamps of a ledger are assumed to be in the
// same local time.
type Timestamp struct {
	t time.Time // always UTC, used as a naive calendar value
}

// NewTimestamp returns the Timestamp for the given calendar values.
func NewTimestamp(year int, month time.Month, day, hour, min, sec int) Timestamp {
	return Timestamp{t: time.Date(year, month, day, hour, min, sec, 0, time.UTC)}
}

// ParseTimestamp parses a strict date "YYYY-MM-DD" and an optional time
// "HH:MM" or "HH:MM:SS". When clock is empty, date may also carry the time,
// separated by a space or a "T".
func ParseTimestamp(date, clock string) (Timestamp, error) {
	date, clock = strings.TrimSpace(date), strings.TrimSpace(clock)
	if clock == "" {
		if i := strings.IndexAny(date, " T"); i > 0 {
			date, clock = date[:i], strings.TrimSpace(date[i+1:])
		}
	}
	if !strictDateRE.MatchString(date) {
		return Timestamp{}, fmt.Errorf("date %q does not match YYYY-MM-DD", date)
	}
	switch {
	case clock == "":
		clock = "00:00:00"
	case !strictTimeRE.MatchString(clock):
		return Timestamp{}, fmt.Errorf("time %q does not match HH:MM or HH:MM:SS", clock)
	case len(clock) == len("15:04"):
		clock += ":00"
	}
	// time.Parse checks calendar ranges (month 13, February 30, hour 25...)
	t, err := time.Parse(TimestampFormat, date+" "+clock)
	if err != nil {
		return Timestamp{}, fmt.Errorf("invalid timestamp %q: %w", date+" "+clock, err)
	}
	return Timestamp{t: t}, nil
}

// MustParseTimestamp is like ParseTimestamp for a single "YYYY-MM-DD[ HH:MM[:SS]]"
// string but panics on error.
func MustParseTimestamp(s string) Timestamp {
	ts, err := ParseTimestamp(s, "")
	if err != nil {
		panic(err.Error())
	}
	return ts
}

// String returns the canonical form "YYYY-MM-DD HH:MM:SS".
func (ts Timestamp) String() string { return ts.t.Format(TimestampFormat) }

// Date returns the date part "YYYY-MM-DD".
func (ts Timestamp) Date() string { return ts.t.Format(DateFormat) }

// IsZero returns true if the timestamp is the zero value.
func (ts Timestamp) IsZero() bool { return ts.t.IsZero() }

// Before reports whether ts is before x.
func (ts Timestamp) Before(x Timestamp) bool { return ts.t.Before(x.t) }

// After reports whether ts is after x.
func (ts Timestamp) After(x Timestamp) bool { return ts.t.After(x.t) }

// Compare returns -1, 0 or +1 like strings.Compare on the canonical forms.
func (ts Timestamp) Compare(x Timestamp) int { return ts.t.Compare(x.t) }

// Time returns the timestamp as a time.Time in UTC.
func (ts Timestamp) Time() time.Time { return ts.t }

// MarshalJSON implements the json.Marshaler interface.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(ts.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface. Data files are read
// with the same strict rules as user input.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	v, err := ParseTimestamp(str, "")
	if err != nil {
		return err
	}
	*ts = v
	return nil
}

// check that a Timestamp pointer is a valid json marshall/unmarshaller type.
var _ json.Marshaler = (*Timestamp)(nil)
var _ json.Unmarshaler = (*Timestamp)(nil)
