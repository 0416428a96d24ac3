package pipeline

import (
	"context"
	"math/rand"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Ghost-ify/Namite/internal/chatcolor"
	"github.com/Ghost-ify/Namite/internal/domain"
	"github.com/Ghost-ify/Namite/internal/generate"
	"github.com/Ghost-ify/Namite/internal/rules"
)

// Phase is where the pipeline currently is inside a cycle.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseGenerating  Phase = "generating"
	PhaseChecking    Phase = "checking"
	PhaseDispatching Phase = "dispatching"
)

// Source yields fresh candidates.
type Source interface {
	NextBatch(n int, c generate.Constraints) []domain.Candidate
}

// Skipper is the cooldown surface the cycle needs.
type Skipper interface {
	ShouldSkip(ctx context.Context, username string) (bool, error)
	RecordResult(ctx context.Context, oc domain.CheckOutcome) error
}

// Checker runs candidates against the platform.
type Checker interface {
	Check(ctx context.Context, cand domain.Candidate) domain.CheckOutcome
	CheckAll(ctx context.Context, cands []domain.Candidate) []domain.CheckOutcome
}

// Submitter routes available outcomes toward notification.
type Submitter interface {
	Submit(ctx context.Context, oc domain.CheckOutcome, color chatcolor.Color) error
	FlushDue(ctx context.Context) (bool, error)
}

// Deferrer parks rate-limited candidates for a later cycle.
type Deferrer interface {
	Defer(ctx context.Context, username string, due time.Time) error
	Due(ctx context.Context, now time.Time, limit int64) ([]string, error)
}

// Counter accumulates run statistics.
type Counter interface {
	AddChecked(ctx context.Context, n int64) error
	AddAvailable(ctx context.Context, n int64) error
}

// Learner tunes generation length weights from outcomes.
type Learner interface {
	Record(length int, available, errored bool)
	Weights() map[int]float64
	Adapt()
	Save(ctx context.Context)
}

type Config struct {
	Interval           time.Duration
	CandidatesPerCycle int
	MinLength          int
	MaxLength          int
	RequeueDelay       time.Duration
}

// Deps wires the pipeline's collaborators. Retry, Stats, and Learn may be
// nil; the cycle runs without them.
type Deps struct {
	Source   Source
	Cooldown Skipper
	Checker  Checker
	Dispatch Submitter
	Retry    Deferrer
	Stats    Counter
	Learn    Learner
}

// Pipeline runs the periodic discovery cycle: generate, filter, check,
// record, dispatch.
type Pipeline struct {
	src   Source
	cool  Skipper
	chk   Checker
	disp  Submitter
	retry Deferrer
	stats Counter
	learn Learner

	cfg   Config
	log   *zap.Logger
	phase atomic.Value
	rng   *rand.Rand
	now   func() time.Time
}

func New(d Deps, cfg Config, log *zap.Logger) *Pipeline {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.CandidatesPerCycle <= 0 {
		cfg.CandidatesPerCycle = 10
	}
	if cfg.MinLength <= 0 {
		cfg.MinLength = rules.MinLength
	}
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = 6
	}
	if cfg.RequeueDelay <= 0 {
		cfg.RequeueDelay = 15 * time.Minute
	}
	p := &Pipeline{
		src:   d.Source,
		cool:  d.Cooldown,
		chk:   d.Checker,
		disp:  d.Dispatch,
		retry: d.Retry,
		stats: d.Stats,
		learn: d.Learn,
		cfg:   cfg,
		log:   log,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		now:   time.Now,
	}
	p.phase.Store(PhaseIdle)
	return p
}

// Run executes cycles until ctx ends. The first cycle starts immediately;
// every wait afterwards carries jitter so checks never land on a fixed
// cadence.
func (p *Pipeline) Run(ctx context.Context) error {
	p.log.Info("discovery pipeline started",
		zap.Duration("interval", p.cfg.Interval),
		zap.Int("candidates_per_cycle", p.cfg.CandidatesPerCycle))
	for {
		started := p.now()
		if err := p.Cycle(ctx); err != nil {
			p.log.Warn("cycle completed with errors", zap.Error(err))
		}
		p.log.Debug("cycle complete", zap.Duration("took", p.now().Sub(started)))

		timer := time.NewTimer(p.nextWait())
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Cycle runs one discovery pass. Individual candidate failures never abort
// it; whatever went wrong comes back merged after the pass finishes.
func (p *Pipeline) Cycle(ctx context.Context) error {
	p.setPhase(PhaseGenerating)
	defer p.setPhase(PhaseIdle)

	runnable := p.filter(ctx, p.gather(ctx))
	if len(runnable) == 0 {
		_, err := p.disp.FlushDue(ctx)
		return err
	}

	p.setPhase(PhaseChecking)
	outcomes := p.chk.CheckAll(ctx, runnable)

	p.setPhase(PhaseDispatching)
	var errs error
	checked, found := int64(0), int64(0)
	for _, oc := range outcomes {
		switch oc.ErrorKind {
		case domain.ErrorNone:
			checked++
			if err := p.cool.RecordResult(ctx, oc); err != nil {
				errs = multierr.Append(errs, err)
			}
			if p.learn != nil {
				p.learn.Record(oc.Candidate.Length, oc.Available, false)
			}
			if oc.Available {
				found++
				color := chatcolor.Predict(oc.Candidate.Name)
				p.log.Info("available username found",
					zap.String("username", oc.Candidate.Name),
					zap.String("color", string(color)),
					zap.String("source", string(oc.Candidate.Source)))
				if err := p.disp.Submit(ctx, oc, color); err != nil {
					errs = multierr.Append(errs, err)
				}
			}
		case domain.ErrorRateLimited:
			errs = multierr.Append(errs, p.requeue(ctx, oc))
		default:
			if p.learn != nil {
				p.learn.Record(oc.Candidate.Length, false, true)
			}
			p.log.Debug("dropping candidate",
				zap.String("username", oc.Candidate.Name),
				zap.String("kind", string(oc.ErrorKind)),
				zap.String("reason", oc.Message))
		}
	}

	p.count(ctx, checked, found)
	if p.learn != nil {
		p.learn.Adapt()
		p.learn.Save(ctx)
	}
	if _, err := p.disp.FlushDue(ctx); err != nil {
		errs = multierr.Append(errs, err)
	}
	return errs
}

// Phase reports where the pipeline is; the api serves it.
func (p *Pipeline) Phase() Phase {
	if ph, ok := p.phase.Load().(Phase); ok {
		return ph
	}
	return PhaseIdle
}

func (p *Pipeline) setPhase(ph Phase) { p.phase.Store(ph) }

// gather drains due retries first, then tops up from the generator.
func (p *Pipeline) gather(ctx context.Context) []domain.Candidate {
	target := p.cfg.CandidatesPerCycle
	cands := make([]domain.Candidate, 0, target)
	if p.retry != nil {
		names, err := p.retry.Due(ctx, p.now(), int64(target))
		if err != nil {
			p.log.Warn("drain retry queue", zap.Error(err))
		}
		for _, name := range names {
			cands = append(cands, domain.NewCandidate(name, domain.SourceRandom))
		}
		if len(names) > 0 {
			p.log.Debug("requeued candidates re-entering", zap.Int("count", len(names)))
		}
	}
	if remaining := target - len(cands); remaining > 0 {
		cands = append(cands, p.src.NextBatch(remaining, p.constraints())...)
	}
	return cands
}

func (p *Pipeline) constraints() generate.Constraints {
	c := generate.Constraints{MinLength: p.cfg.MinLength, MaxLength: p.cfg.MaxLength}
	if p.learn != nil {
		c.Weights = p.learn.Weights()
	}
	return c
}

// filter drops rule violations before they cost a network call, then drops
// cooldown hits. A failing cooldown store skips the candidate for this cycle
// rather than checking blind.
func (p *Pipeline) filter(ctx context.Context, cands []domain.Candidate) []domain.Candidate {
	out := make([]domain.Candidate, 0, len(cands))
	for _, cand := range cands {
		if err := rules.Validate(cand.Name); err != nil {
			p.log.Debug("rejecting candidate",
				zap.String("username", cand.Name),
				zap.String("reason", err.Error()))
			continue
		}
		skip, err := p.cool.ShouldSkip(ctx, cand.Name)
		if err != nil {
			p.log.Warn("cooldown lookup failed, skipping candidate",
				zap.String("username", cand.Name),
				zap.Error(err))
			continue
		}
		if skip {
			continue
		}
		out = append(out, cand)
	}
	return out
}

func (p *Pipeline) requeue(ctx context.Context, oc domain.CheckOutcome) error {
	if p.retry == nil {
		p.log.Warn("rate limited with no retry queue, dropping candidate",
			zap.String("username", oc.Candidate.Name))
		return nil
	}
	due := p.now().Add(p.cfg.RequeueDelay)
	if err := p.retry.Defer(ctx, oc.Candidate.Name, due); err != nil {
		return err
	}
	p.log.Debug("candidate requeued",
		zap.String("username", oc.Candidate.Name),
		zap.Time("due", due))
	return nil
}

func (p *Pipeline) count(ctx context.Context, checked, found int64) {
	if p.stats == nil || checked == 0 {
		return
	}
	if err := p.stats.AddChecked(ctx, checked); err != nil {
		p.log.Debug("record stats", zap.Error(err))
		return
	}
	if found > 0 {
		if err := p.stats.AddAvailable(ctx, found); err != nil {
			p.log.Debug("record stats", zap.Error(err))
		}
	}
}

const minWait = 10 * time.Second

// nextWait is the configured interval plus jitter in [-2s, +5s), floored so a
// misconfigured interval cannot hammer the platform.
func (p *Pipeline) nextWait() time.Duration {
	jitter := time.Duration(p.rng.Int63n(int64(7*time.Second))) - 2*time.Second
	wait := p.cfg.Interval + jitter
	if wait < minWait {
		wait = minWait
	}
	return wait
}
