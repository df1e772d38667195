package quota

import (
	"context"
	"fmt"
	"time"

	"colorold/internal/infra"
	"colorold/internal/sqlinline"
)

// PostgresStore keeps records in the usage_counters table so limits survive
// restarts and are shared between API replicas.
type PostgresStore struct {
	db infra.SQLExecutor
}

func NewPostgresStore(db infra.SQLExecutor) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the counters table if it is missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, sqlinline.QCreateUsageCounters); err != nil {
		return fmt.Errorf("quota: ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) (Record, bool, error) {
	var rec Record
	err := s.db.QueryRow(ctx, sqlinline.QSelectUsageCounter, key).Scan(&rec.Count, &rec.PeriodStart)
	if infra.IsNoRows(err) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

func (s *PostgresStore) Put(ctx context.Context, key string, rec Record) error {
	_, err := s.db.Exec(ctx, sqlinline.QUpsertUsageCounter, key, rec.Count, rec.PeriodStart.UTC())
	return err
}

// Prune deletes records not written since before.
func (s *PostgresStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, sqlinline.QPruneUsageCounters, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("quota: prune: %w", err)
	}
	return tag.RowsAffected(), nil
}
