// Package quota meters how many jobs an identity may start per calendar
// period. Rollover is lazy: a stale record is treated as empty when checked.
package quota

import (
	"context"
	"fmt"
	"strings"
	"time"

	"colorold/internal/domain"
)

// Period is the counting window.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
)

// UnknownKey is the shared bucket for callers with no usable identity.
const UnknownKey = "unknown-ip"

// ParsePeriod accepts "day" or "month".
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case PeriodDay, PeriodMonth:
		return p, nil
	default:
		return "", fmt.Errorf("quota: unknown period %q", s)
	}
}

// Start returns the UTC start of the period containing t.
func (p Period) Start(t time.Time) time.Time {
	t = t.UTC()
	if p == PeriodMonth {
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Record is one identity's usage within a period.
type Record struct {
	Count       int
	PeriodStart time.Time
}

// Store persists usage records. Implementations need not be atomic across
// Get and Put.
type Store interface {
	Get(ctx context.Context, key string) (Record, bool, error)
	Put(ctx context.Context, key string, rec Record) error
}

// Usage summarises a key's allowance in the current period.
type Usage struct {
	Limit     int    `json:"limit"`
	Used      int    `json:"used"`
	Remaining int    `json:"remaining"`
	Period    Period `json:"period"`
}

// Options configures a Guard.
type Options struct {
	Store  Store
	Limit  int
	Period Period
	// RequireAuth denies unauthenticated callers instead of metering them
	// under their origin key.
	RequireAuth bool
	Now         func() time.Time
}

// Guard enforces Limit uses per Period for each key.
type Guard struct {
	store       Store
	limit       int
	period      Period
	requireAuth bool
	now         func() time.Time
}

func NewGuard(opts Options) *Guard {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	period := opts.Period
	if period == "" {
		period = PeriodDay
	}
	limit := opts.Limit
	if limit < 0 {
		limit = 0
	}
	return &Guard{
		store:       opts.Store,
		limit:       limit,
		period:      period,
		requireAuth: opts.RequireAuth,
		now:         now,
	}
}

// Key maps an identity onto a storage key. Signed-in users are keyed by
// account; everyone else by origin, with a shared bucket when the origin is
// unknown.
func (g *Guard) Key(id domain.Identity) (string, error) {
	key := strings.TrimSpace(id.Key)
	if id.Authenticated && key != "" {
		return "user:" + key, nil
	}
	if g.requireAuth {
		return "", domain.ErrUnauthorized
	}
	if key == "" {
		key = UnknownKey
	}
	return "ip:" + key, nil
}

// Period reports the configured counting window.
func (g *Guard) Period() Period { return g.period }

// CanUse reports whether key has allowance left in the current period.
func (g *Guard) CanUse(ctx context.Context, key string) (bool, error) {
	used, err := g.used(ctx, key)
	if err != nil {
		return false, err
	}
	return used < g.limit, nil
}

// RecordUse consumes one unit. Callers check CanUse first.
func (g *Guard) RecordUse(ctx context.Context, key string) error {
	rec, ok, err := g.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("quota: read %s: %w", key, err)
	}
	start := g.period.Start(g.now())
	if !ok || !g.period.Start(rec.PeriodStart).Equal(start) {
		rec = Record{Count: 0, PeriodStart: start}
	}
	rec.Count++
	if err := g.store.Put(ctx, key, rec); err != nil {
		return fmt.Errorf("quota: write %s: %w", key, err)
	}
	return nil
}

// Remaining reports the allowance left for key.
func (g *Guard) Remaining(ctx context.Context, key string) (Usage, error) {
	used, err := g.used(ctx, key)
	if err != nil {
		return Usage{}, err
	}
	remaining := g.limit - used
	if remaining < 0 {
		remaining = 0
	}
	return Usage{Limit: g.limit, Used: used, Remaining: remaining, Period: g.period}, nil
}

func (g *Guard) used(ctx context.Context, key string) (int, error) {
	rec, ok, err := g.store.Get(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("quota: read %s: %w", key, err)
	}
	if !ok || !g.period.Start(rec.PeriodStart).Equal(g.period.Start(g.now())) {
		return 0, nil
	}
	return rec.Count, nil
}
