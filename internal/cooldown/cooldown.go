package cooldown

import (
	"context"

	"go.uber.org/zap"

	"github.com/Ghost-ify/Namite/internal/domain"
)

// Tier is one layer of the cooldown answer. The memory cache and the durable
// store both implement it; Store walks them in order.
type Tier interface {
	InCooldown(ctx context.Context, username string) (bool, error)
	Remember(ctx context.Context, rec domain.CooldownRecord) error
}

// Store decides whether a username was checked recently enough to skip, and
// records completed checks across every tier.
type Store struct {
	tiers []Tier
	log   *zap.Logger
}

// New composes tiers cheapest first.
func New(log *zap.Logger, tiers ...Tier) *Store {
	return &Store{tiers: tiers, log: log}
}

// ShouldSkip returns true on the first tier reporting a cooldown hit. A tier
// failure surfaces as an error so the caller can skip the check rather than
// re-check blind.
func (s *Store) ShouldSkip(ctx context.Context, username string) (bool, error) {
	for _, t := range s.tiers {
		hit, err := t.InCooldown(ctx, username)
		if err != nil {
			return false, err
		}
		if hit {
			return true, nil
		}
	}
	return false, nil
}

// RecordResult writes a completed outcome to every tier, so negative verdicts
// enter the cooldown too. A failing tier is logged and skipped; the first
// failure is returned after all tiers were attempted.
func (s *Store) RecordResult(ctx context.Context, oc domain.CheckOutcome) error {
	rec := oc.Record()
	var first error
	for _, t := range s.tiers {
		if err := t.Remember(ctx, rec); err != nil {
			s.log.Warn("cooldown tier write failed",
				zap.String("username", rec.Username),
				zap.Error(err))
			if first == nil {
				first = err
			}
		}
	}
	return first
}
