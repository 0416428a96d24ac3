package checker

import (
	"context"
	"sync"
	"time"
)

// Gate is the process-wide rate-limit state every worker shares: a backoff
// level driving an exponential delay and the earliest time any request may go
// out. Workers wait on it before each request; one worker's 429 slows all of
// them down.
type Gate struct {
	mu          sync.Mutex
	level       int
	streak      int
	nextAllowed time.Time

	base       time.Duration
	max        time.Duration
	maxLevel   int
	decayAfter int
	now        func() time.Time
}

type GateConfig struct {
	Base       time.Duration // first backoff step
	Max        time.Duration // delay ceiling
	MaxLevel   int
	DecayAfter int // successes needed to drop one level
}

func NewGate(cfg GateConfig) *Gate {
	g := &Gate{
		base:       cfg.Base,
		max:        cfg.Max,
		maxLevel:   cfg.MaxLevel,
		decayAfter: cfg.DecayAfter,
		now:        time.Now,
	}
	if g.base <= 0 {
		g.base = 2 * time.Second
	}
	if g.max <= 0 {
		g.max = 2 * time.Minute
	}
	if g.maxLevel <= 0 {
		g.maxLevel = 8
	}
	if g.decayAfter <= 0 {
		g.decayAfter = 20
	}
	return g
}

// Wait blocks until the gate allows the next request, or ctx ends.
func (g *Gate) Wait(ctx context.Context) error {
	g.mu.Lock()
	wait := g.nextAllowed.Sub(g.now())
	g.mu.Unlock()
	if wait <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RateLimited raises the backoff level, capped, and pushes the next allowed
// send out by the level's delay. Returns the delay applied.
func (g *Gate) RateLimited() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.streak = 0
	if g.level < g.maxLevel {
		g.level++
	}
	d := g.delay(g.level)
	if next := g.now().Add(d); next.After(g.nextAllowed) {
		g.nextAllowed = next
	}
	return d
}

// Success counts toward decay: the level drops one step only after a
// sustained run of clean responses, never right away.
func (g *Gate) Success() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.streak++
	if g.streak >= g.decayAfter && g.level > 0 {
		g.level--
		g.streak = 0
	}
}

// Level reports the current backoff level. Zero means no delay.
func (g *Gate) Level() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.level
}

func (g *Gate) delay(level int) time.Duration {
	if level <= 0 {
		return 0
	}
	d := g.base << uint(level-1)
	if d > g.max || d <= 0 {
		d = g.max
	}
	return d
}
