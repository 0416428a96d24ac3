package checker

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Ghost-ify/Namite/internal/domain"
	"github.com/Ghost-ify/Namite/internal/roblox"
)

// Validator is the remote availability endpoint.
type Validator interface {
	Validate(ctx context.Context, username string) (roblox.Result, error)
}

type Config struct {
	Workers          int
	RateLimitRetries int
	TransientRetries int
	TransientDelay   time.Duration
}

// Pool runs candidates against the platform with a fixed number of concurrent
// workers sharing one rate-limit gate.
type Pool struct {
	api  Validator
	gate *Gate
	cfg  Config
	log  *zap.Logger
	now  func() time.Time
}

func NewPool(api Validator, gate *Gate, cfg Config, log *zap.Logger) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 5
	}
	if cfg.RateLimitRetries <= 0 {
		cfg.RateLimitRetries = 3
	}
	if cfg.TransientRetries <= 0 {
		cfg.TransientRetries = 2
	}
	if cfg.TransientDelay <= 0 {
		cfg.TransientDelay = 2 * time.Second
	}
	return &Pool{api: api, gate: gate, cfg: cfg, log: log, now: time.Now}
}

// Check runs one candidate through the gate, the endpoint, and both retry
// budgets. It always returns an outcome; failures land in ErrorKind instead
// of an error value.
func (p *Pool) Check(ctx context.Context, cand domain.Candidate) domain.CheckOutcome {
	rateAttempts, transientAttempts := 0, 0
	for {
		if err := p.gate.Wait(ctx); err != nil {
			return p.failure(cand, domain.ErrorTransient, err.Error())
		}

		// A request already on the wire runs to completion; cancellation
		// takes effect between attempts.
		res, err := p.api.Validate(context.WithoutCancel(ctx), cand.Name)
		if err == nil {
			p.gate.Success()
			return domain.CheckOutcome{
				Candidate:  cand,
				Available:  res.Available,
				StatusCode: res.StatusCode,
				Code:       res.Code,
				Message:    res.Message,
				ErrorKind:  domain.ErrorNone,
				CheckedAt:  p.now(),
			}
		}

		if errors.Is(err, roblox.ErrRateLimited) {
			delay := p.gate.RateLimited()
			rateAttempts++
			p.log.Warn("rate limited",
				zap.String("username", cand.Name),
				zap.Int("attempt", rateAttempts),
				zap.Duration("backoff", delay),
				zap.Int("level", p.gate.Level()))
			if rateAttempts > p.cfg.RateLimitRetries {
				return p.failure(cand, domain.ErrorRateLimited, "rate limit retries exhausted")
			}
			continue
		}

		transientAttempts++
		p.log.Debug("transient check failure",
			zap.String("username", cand.Name),
			zap.Int("attempt", transientAttempts),
			zap.Error(err))
		if transientAttempts > p.cfg.TransientRetries {
			return p.failure(cand, domain.ErrorTransient, err.Error())
		}
		if err := p.sleep(ctx, p.cfg.TransientDelay); err != nil {
			return p.failure(cand, domain.ErrorTransient, err.Error())
		}
	}
}

// CheckAll fans candidates out to the worker pool and collects an outcome per
// dispatched candidate. Outcomes arrive in completion order. Cancelling ctx
// stops dispatch; candidates never dispatched produce no outcome.
func (p *Pool) CheckAll(ctx context.Context, cands []domain.Candidate) []domain.CheckOutcome {
	if len(cands) == 0 {
		return nil
	}

	jobs := make(chan domain.Candidate)
	results := make(chan domain.CheckOutcome, len(cands))

	var g errgroup.Group
	workers := min(p.cfg.Workers, len(cands))
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for cand := range jobs {
				results <- p.Check(ctx, cand)
			}
			return nil
		})
	}

feed:
	for _, cand := range cands {
		select {
		case jobs <- cand:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	_ = g.Wait()
	close(results)

	out := make([]domain.CheckOutcome, 0, len(cands))
	for oc := range results {
		out = append(out, oc)
	}
	return out
}

func (p *Pool) failure(cand domain.Candidate, kind domain.ErrorKind, msg string) domain.CheckOutcome {
	return domain.CheckOutcome{
		Candidate: cand,
		ErrorKind: kind,
		Message:   msg,
		CheckedAt: p.now(),
	}
}

func (p *Pool) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
