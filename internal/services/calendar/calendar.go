// Package calendar decides when the exchange is in session.
package calendar

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultSessions are the two daily trading windows, inclusive at both ends.
var DefaultSessions = []string{"09:15-11:30", "13:00-15:05"}

// Session is a trading window in minutes since local midnight, inclusive.
type Session struct {
	Start int
	End   int
}

// Contains reports whether minuteOfDay falls within the session.
func (s Session) Contains(minuteOfDay int) bool {
	return minuteOfDay >= s.Start && minuteOfDay <= s.End
}

func (s Session) String() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d", s.Start/60, s.Start%60, s.End/60, s.End%60)
}

// Calendar is a pure weekday-and-session check in the exchange timezone.
// It holds no mutable state.
type Calendar struct {
	loc      *time.Location
	sessions []Session
	now      func() time.Time
}

// Option configures a Calendar
type Option func(*Calendar)

// WithClock injects the wall clock used by Now and IsOpenNow.
func WithClock(now func() time.Time) Option {
	return func(c *Calendar) {
		c.now = now
	}
}

// New builds a Calendar for the named timezone and "HH:MM-HH:MM" sessions.
// An empty session list uses DefaultSessions.
func New(timezone string, sessions []string, opts ...Option) (*Calendar, error) {
	if len(sessions) == 0 {
		sessions = DefaultSessions
	}

	parsed := make([]Session, 0, len(sessions))
	for _, raw := range sessions {
		s, err := ParseSession(raw)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, s)
	}
	sort.Slice(parsed, func(i, j int) bool { return parsed[i].Start < parsed[j].Start })

	c := &Calendar{
		loc:      LoadLocation(timezone),
		sessions: parsed,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// MustDefault returns the default exchange calendar (Asia/Shanghai).
func MustDefault(opts ...Option) *Calendar {
	c, err := New("Asia/Shanghai", DefaultSessions, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// LoadLocation resolves a timezone name, falling back to fixed UTC+8 when
// tzdata is unavailable (e.g. minimal container).
func LoadLocation(name string) *time.Location {
	if name == "" {
		name = "Asia/Shanghai"
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("CST", 8*60*60)
	}
	return loc
}

// ParseSession parses "HH:MM-HH:MM".
func ParseSession(raw string) (Session, error) {
	startStr, endStr, ok := strings.Cut(strings.TrimSpace(raw), "-")
	if !ok {
		return Session{}, fmt.Errorf("invalid session %q: expected HH:MM-HH:MM", raw)
	}
	start, err := parseClock(startStr)
	if err != nil {
		return Session{}, fmt.Errorf("invalid session %q: %w", raw, err)
	}
	end, err := parseClock(endStr)
	if err != nil {
		return Session{}, fmt.Errorf("invalid session %q: %w", raw, err)
	}
	if end < start {
		return Session{}, fmt.Errorf("invalid session %q: end before start", raw)
	}
	return Session{Start: start, End: end}, nil
}

func parseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("bad clock %q", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("bad hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("bad minute in %q", s)
	}
	return h*60 + m, nil
}

// Location returns the exchange timezone.
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// Sessions returns a copy of the configured sessions.
func (c *Calendar) Sessions() []Session {
	out := make([]Session, len(c.sessions))
	copy(out, c.sessions)
	return out
}

// Now returns the injected clock's time in the exchange timezone.
func (c *Calendar) Now() time.Time {
	return c.now().In(c.loc)
}

// IsTradingTime reports whether t is a weekday inside one of the sessions.
func (c *Calendar) IsTradingTime(t time.Time) bool {
	local := t.In(c.loc)
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	hour, min, _ := local.Clock()
	minuteOfDay := hour*60 + min
	for _, s := range c.sessions {
		if s.Contains(minuteOfDay) {
			return true
		}
	}
	return false
}

// IsOpenNow is IsTradingTime for the injected clock.
func (c *Calendar) IsOpenNow() bool {
	return c.IsTradingTime(c.now())
}

// DateBucket formats t as the exchange-local date, YYYY-MM-DD.
func (c *Calendar) DateBucket(t time.Time) string {
	return t.In(c.loc).Format("2006-01-02")
}

// MinuteBucket formats t as the exchange-local minute, HH:mm.
func (c *Calendar) MinuteBucket(t time.Time) string {
	return t.In(c.loc).Format("15:04")
}

// SameMinute reports whether a and b fall in the same exchange-local calendar minute.
func (c *Calendar) SameMinute(a, b time.Time) bool {
	if a.IsZero() || b.IsZero() {
		return false
	}
	return c.DateBucket(a) == c.DateBucket(b) && c.MinuteBucket(a) == c.MinuteBucket(b)
}
