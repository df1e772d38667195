package quota

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
)

type stubRow struct {
	scan func(dest ...any) error
}

func (r stubRow) Scan(dest ...any) error { return r.scan(dest...) }

// stubSQL keeps usage_counters rows in a map keyed by the first argument.
type stubSQL struct {
	rows  map[string]Record
	execs []string
}

func (s *stubSQL) Exec(_ context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.execs = append(s.execs, query)
	switch {
	case strings.Contains(query, "insert into usage_counters"):
		s.rows[args[0].(string)] = Record{Count: args[1].(int), PeriodStart: args[2].(time.Time)}
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	case strings.Contains(query, "delete from usage_counters"):
		return pgconn.NewCommandTag("DELETE 3"), nil
	case strings.Contains(query, "create table"):
		return pgconn.NewCommandTag("CREATE TABLE"), nil
	}
	return pgconn.CommandTag{}, errors.New("unexpected exec")
}

func (s *stubSQL) QueryRow(_ context.Context, query string, args ...any) pgx.Row {
	rec, ok := s.rows[args[0].(string)]
	return stubRow{scan: func(dest ...any) error {
		if !ok {
			return pgx.ErrNoRows
		}
		*dest[0].(*int) = rec.Count
		*dest[1].(*time.Time) = rec.PeriodStart
		return nil
	}}
}

func TestPostgresStoreBacksGuard(t *testing.T) {
	db := &stubSQL{rows: map[string]Record{}}
	store := NewPostgresStore(db)
	ctx := context.Background()
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	clock := &fakeClock{t: time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)}
	g := NewGuard(Options{Store: store, Limit: 1, Period: PeriodDay, Now: clock.Now})

	if ok, err := g.CanUse(ctx, "ip:a"); err != nil || !ok {
		t.Fatalf("CanUse = %v, %v", ok, err)
	}
	if err := g.RecordUse(ctx, "ip:a"); err != nil {
		t.Fatalf("RecordUse: %v", err)
	}
	if ok, _ := g.CanUse(ctx, "ip:a"); ok {
		t.Fatalf("expected exhausted allowance")
	}
	rec := db.rows["ip:a"]
	if rec.Count != 1 || !rec.PeriodStart.Equal(time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("stored record = %+v", rec)
	}
	for _, q := range db.execs {
		if !strings.HasPrefix(strings.TrimSpace(q), "--sql ") {
			t.Fatalf("query without marker: %q", q)
		}
	}

	n, err := store.Prune(ctx, clock.t.Add(-DefaultRetention))
	if err != nil || n != 3 {
		t.Fatalf("Prune = %d, %v", n, err)
	}
}

type fakeRedis struct {
	hashes map[string]map[string]string
	ttl    map[string]time.Duration
}

func (f *fakeRedis) HGetAll(_ context.Context, key string) *redis.MapStringStringCmd {
	out := map[string]string{}
	for k, v := range f.hashes[key] {
		out[k] = v
	}
	return redis.NewMapStringStringResult(out, nil)
}

func (f *fakeRedis) HSet(_ context.Context, key string, values ...interface{}) *redis.IntCmd {
	h := f.hashes[key]
	if h == nil {
		h = map[string]string{}
		f.hashes[key] = h
	}
	for i := 0; i+1 < len(values); i += 2 {
		h[values[i].(string)] = fmt.Sprint(values[i+1])
	}
	return redis.NewIntResult(int64(len(values)/2), nil)
}

func (f *fakeRedis) Expire(_ context.Context, key string, d time.Duration) *redis.BoolCmd {
	f.ttl[key] = d
	return redis.NewBoolResult(true, nil)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	fr := &fakeRedis{hashes: map[string]map[string]string{}, ttl: map[string]time.Duration{}}
	store := NewRedisStore(fr, 48*time.Hour)
	ctx := context.Background()

	if _, ok, err := store.Get(ctx, "user:u1"); ok || err != nil {
		t.Fatalf("Get on empty store = %v, %v", ok, err)
	}

	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	if err := store.Put(ctx, "user:u1", Record{Count: 3, PeriodStart: start}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	rec, ok, err := store.Get(ctx, "user:u1")
	if err != nil || !ok {
		t.Fatalf("Get = %v, %v", ok, err)
	}
	if rec.Count != 3 || !rec.PeriodStart.Equal(start) {
		t.Fatalf("record = %+v", rec)
	}
	if fr.ttl["colorold:usage:user:u1"] != 48*time.Hour {
		t.Fatalf("ttl = %v", fr.ttl)
	}
}
