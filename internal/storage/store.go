package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/Ghost-ify/Namite/internal/domain"
)

// ErrUnavailable marks durable-store failures: pool exhaustion, lost
// connections, query timeouts. Callers treat it as "skip this candidate for
// now", never as a verdict.
var ErrUnavailable = errors.New("cooldown store unavailable")

// Store is the durable cooldown tier over Postgres. It also serves the read
// and admin paths of the HTTP API.
type Store struct {
	db      *pgxpool.Pool
	window  time.Duration
	timeout time.Duration
	now     func() time.Time
}

func New(db *pgxpool.Pool, window, timeout time.Duration) *Store {
	return &Store{db: db, window: window, timeout: timeout, now: time.Now}
}

// InCooldown reports whether username was checked inside the cooldown window.
func (s *Store) InCooldown(ctx context.Context, username string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cutoff := s.now().Add(-s.window)
	var one int
	err := s.db.QueryRow(ctx,
		`select 1 from checked_usernames where username = $1 and checked_at > $2`,
		username, cutoff).Scan(&one)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return false, errors.Wrapf(ErrUnavailable, "cooldown lookup for %q: %v", username, err)
}

// Remember upserts the username's latest check, restarting its cooldown.
func (s *Store) Remember(ctx context.Context, rec domain.CooldownRecord) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.db.Exec(ctx, `insert into checked_usernames(
username, checked_at, is_available, status_code, message
) values ($1,$2,$3,$4,$5)
on conflict (username) do update set
checked_at = excluded.checked_at,
is_available = excluded.is_available,
status_code = excluded.status_code,
message = excluded.message`,
		rec.Username, rec.CheckedAt, rec.Available, rec.StatusCode, rec.Message,
	)
	if err != nil {
		return errors.Wrapf(ErrUnavailable, "record check for %q: %v", rec.Username, err)
	}
	return nil
}

// Record loads the stored check for username; found is false when it was
// never checked or already purged.
func (s *Store) Record(ctx context.Context, username string) (domain.CooldownRecord, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var rec domain.CooldownRecord
	err := s.db.QueryRow(ctx,
		`select username, checked_at, is_available, status_code, message
from checked_usernames where username = $1`, username).
		Scan(&rec.Username, &rec.CheckedAt, &rec.Available, &rec.StatusCode, &rec.Message)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.CooldownRecord{}, false, nil
	}
	if err != nil {
		return domain.CooldownRecord{}, false, errors.Wrapf(ErrUnavailable, "load record for %q: %v", username, err)
	}
	return rec, true, nil
}

// RecentAvailable lists the newest checks that came back available.
func (s *Store) RecentAvailable(ctx context.Context, limit int) ([]domain.CooldownRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.Query(ctx,
		`select username, checked_at, is_available, status_code, message
from checked_usernames where is_available order by checked_at desc limit $1`, limit)
	if err != nil {
		return nil, errors.Wrapf(ErrUnavailable, "list recent available: %v", err)
	}
	defer rows.Close()

	var recs []domain.CooldownRecord
	for rows.Next() {
		var rec domain.CooldownRecord
		if err := rows.Scan(&rec.Username, &rec.CheckedAt, &rec.Available, &rec.StatusCode, &rec.Message); err != nil {
			return nil, errors.Wrap(err, "scan record")
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// PurgeOlderThan deletes rows whose last check predates cutoff and returns
// how many went.
func (s *Store) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tag, err := s.db.Exec(ctx, `delete from checked_usernames where checked_at < $1`, cutoff)
	if err != nil {
		return 0, errors.Wrapf(ErrUnavailable, "purge records: %v", err)
	}
	return tag.RowsAffected(), nil
}

// CooldownEndsAt reports when a record's cooldown lapses.
func (s *Store) CooldownEndsAt(rec domain.CooldownRecord) time.Time {
	return rec.CheckedAt.Add(s.window)
}
