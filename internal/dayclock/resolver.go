// Package dayclock decides which calendar day a timestamp belongs to.
//
// Two notions of "day" exist:
//   - the canonical day, computed in one fixed reference timezone for every
//     account, used by counters that must compare equal across accounts
//     (call_attempts_today, today_spend);
//   - the account-local day, computed in the account's own timezone, used only
//     for revenue-ledger keys and schedule matching.
//
// Days are "2006-01-02" strings and are compared by string equality.
package dayclock

import (
	"fmt"
	"sync"
	"time"
)

const Layout = "2006-01-02"

const DefaultReferenceTimezone = "America/New_York"

// Resolver is safe for concurrent use.
type Resolver struct {
	ref *time.Location
	now func() time.Time

	mu    sync.RWMutex
	cache map[string]*time.Location
}

func New(referenceTZ string) (*Resolver, error) {
	if referenceTZ == "" {
		referenceTZ = DefaultReferenceTimezone
	}
	loc, err := time.LoadLocation(referenceTZ)
	if err != nil {
		return nil, fmt.Errorf("load reference timezone %q: %w", referenceTZ, err)
	}
	return &Resolver{ref: loc, now: time.Now, cache: map[string]*time.Location{referenceTZ: loc}}, nil
}

// WithClock returns a copy of r that reads time from now. Tests use it.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	return &Resolver{ref: r.ref, now: now, cache: map[string]*time.Location{}}
}

func (r *Resolver) Now() time.Time { return r.now() }

func (r *Resolver) Reference() *time.Location { return r.ref }

// CanonicalDay returns t's day in the reference timezone.
func (r *Resolver) CanonicalDay(t time.Time) string {
	return t.In(r.ref).Format(Layout)
}

// Today is CanonicalDay(now).
func (r *Resolver) Today() string {
	return r.CanonicalDay(r.now())
}

// LocalDay returns t's day in the account timezone tz.
func (r *Resolver) LocalDay(t time.Time, tz string) (string, error) {
	loc, err := r.location(tz)
	if err != nil {
		return "", err
	}
	return t.In(loc).Format(Layout), nil
}

// Clock is a wall-clock reading in an account timezone.
type Clock struct {
	Weekday time.Weekday
	Minute  int // minutes after local midnight
	Day     string
}

// LocalClock reads t in the account timezone tz.
func (r *Resolver) LocalClock(t time.Time, tz string) (Clock, error) {
	loc, err := r.location(tz)
	if err != nil {
		return Clock{}, err
	}
	lt := t.In(loc)
	return Clock{
		Weekday: lt.Weekday(),
		Minute:  lt.Hour()*60 + lt.Minute(),
		Day:     lt.Format(Layout),
	}, nil
}

// ValidTimezone reports whether tz can be loaded.
func (r *Resolver) ValidTimezone(tz string) bool {
	_, err := r.location(tz)
	return err == nil
}

func (r *Resolver) location(tz string) (*time.Location, error) {
	if tz == "" {
		return r.ref, nil
	}
	r.mu.RLock()
	loc, ok := r.cache[tz]
	r.mu.RUnlock()
	if ok {
		return loc, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	r.mu.Lock()
	r.cache[tz] = loc
	r.mu.Unlock()
	return loc, nil
}
