package checker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ghost-ify/Namite/internal/domain"
	"github.com/Ghost-ify/Namite/internal/roblox"
)

type fakeValidator struct {
	mu    sync.Mutex
	calls int
	fn    func(call int, username string) (roblox.Result, error)
}

func (f *fakeValidator) Validate(ctx context.Context, username string) (roblox.Result, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()
	return f.fn(call, username)
}

func (f *fakeValidator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func fastGate() *Gate {
	return NewGate(GateConfig{Base: time.Millisecond, Max: 10 * time.Millisecond, MaxLevel: 4, DecayAfter: 3})
}

func fastConfig() Config {
	return Config{Workers: 5, RateLimitRetries: 3, TransientRetries: 2, TransientDelay: time.Millisecond}
}

func newTestPool(fn func(call int, username string) (roblox.Result, error)) (*Pool, *fakeValidator) {
	fv := &fakeValidator{fn: fn}
	return NewPool(fv, fastGate(), fastConfig(), zap.NewNop()), fv
}

func cand(name string) domain.Candidate { return domain.NewCandidate(name, domain.SourceRandom) }

func TestCheckAvailable(t *testing.T) {
	p, fv := newTestPool(func(int, string) (roblox.Result, error) {
		return roblox.Result{Available: true, StatusCode: 200, Message: "Username is available"}, nil
	})

	oc := p.Check(context.Background(), cand("QJ9"))
	assert.Equal(t, domain.ErrorNone, oc.ErrorKind)
	assert.True(t, oc.Available)
	assert.True(t, oc.Completed())
	assert.False(t, oc.CheckedAt.IsZero())
	assert.Equal(t, 1, fv.callCount())
}

func TestCheckTaken(t *testing.T) {
	p, _ := newTestPool(func(int, string) (roblox.Result, error) {
		return roblox.Result{Available: false, StatusCode: 200, Code: 1, Message: "Username is already in use"}, nil
	})

	oc := p.Check(context.Background(), cand("Builderman"))
	assert.Equal(t, domain.ErrorNone, oc.ErrorKind)
	assert.False(t, oc.Available)
	assert.Equal(t, 1, oc.Code)
	assert.Equal(t, "Username is already in use", oc.Message)
}

func TestCheckRateLimitBudgetExhausted(t *testing.T) {
	p, fv := newTestPool(func(int, string) (roblox.Result, error) {
		return roblox.Result{}, roblox.ErrRateLimited
	})

	oc := p.Check(context.Background(), cand("abc"))
	assert.Equal(t, domain.ErrorRateLimited, oc.ErrorKind)
	assert.False(t, oc.Available)
	// Initial attempt plus three retries.
	assert.Equal(t, 4, fv.callCount())
}

func TestCheckTransientBudgetExhausted(t *testing.T) {
	p, fv := newTestPool(func(int, string) (roblox.Result, error) {
		return roblox.Result{}, errors.New("connection reset")
	})

	oc := p.Check(context.Background(), cand("abc"))
	assert.Equal(t, domain.ErrorTransient, oc.ErrorKind)
	assert.Contains(t, oc.Message, "connection reset")
	// Initial attempt plus two retries.
	assert.Equal(t, 3, fv.callCount())
}

func TestCheckRecoversAfterRateLimit(t *testing.T) {
	p, fv := newTestPool(func(call int, _ string) (roblox.Result, error) {
		if call == 1 {
			return roblox.Result{}, roblox.ErrRateLimited
		}
		return roblox.Result{Available: true, StatusCode: 200}, nil
	})

	oc := p.Check(context.Background(), cand("abc"))
	assert.Equal(t, domain.ErrorNone, oc.ErrorKind)
	assert.True(t, oc.Available)
	assert.Equal(t, 2, fv.callCount())
}

func TestCheckBudgetsAreIndependent(t *testing.T) {
	p, fv := newTestPool(func(call int, _ string) (roblox.Result, error) {
		switch call {
		case 1, 3:
			return roblox.Result{}, roblox.ErrRateLimited
		case 2:
			return roblox.Result{}, errors.New("timeout")
		default:
			return roblox.Result{Available: false, StatusCode: 200, Code: 2}, nil
		}
	})

	oc := p.Check(context.Background(), cand("abc"))
	assert.Equal(t, domain.ErrorNone, oc.ErrorKind)
	assert.Equal(t, 4, fv.callCount())
}

func TestCheckRaisesSharedGate(t *testing.T) {
	gate := fastGate()
	fv := &fakeValidator{fn: func(call int, _ string) (roblox.Result, error) {
		if call == 1 {
			return roblox.Result{}, roblox.ErrRateLimited
		}
		return roblox.Result{StatusCode: 200}, nil
	}}
	p := NewPool(fv, gate, fastConfig(), zap.NewNop())

	p.Check(context.Background(), cand("abc"))
	assert.Equal(t, 1, gate.Level())
}

func TestCheckAllReturnsEveryOutcome(t *testing.T) {
	available := map[string]bool{"aaa": true, "bbb": false, "ccc": true}
	p, _ := newTestPool(func(_ int, username string) (roblox.Result, error) {
		return roblox.Result{Available: available[username], StatusCode: 200}, nil
	})

	cands := []domain.Candidate{cand("aaa"), cand("bbb"), cand("ccc")}
	outcomes := p.CheckAll(context.Background(), cands)
	require.Len(t, outcomes, 3)

	got := make(map[string]bool)
	for _, oc := range outcomes {
		require.Equal(t, domain.ErrorNone, oc.ErrorKind)
		got[oc.Candidate.Name] = oc.Available
	}
	assert.Equal(t, available, got)
}

func TestCheckAllBoundsConcurrency(t *testing.T) {
	var current, peak int64
	p, _ := newTestPool(func(int, string) (roblox.Result, error) {
		c := atomic.AddInt64(&current, 1)
		for {
			prev := atomic.LoadInt64(&peak)
			if c <= prev || atomic.CompareAndSwapInt64(&peak, prev, c) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt64(&current, -1)
		return roblox.Result{StatusCode: 200}, nil
	})

	var cands []domain.Candidate
	for _, name := range []string{"aa1", "aa2", "aa3", "aa4", "aa5", "aa6", "aa7", "aa8", "aa9", "ab1", "ab2", "ab3", "ab4", "ab5", "ab6", "ab7", "ab8", "ab9", "ac1", "ac2"} {
		cands = append(cands, cand(name))
	}
	outcomes := p.CheckAll(context.Background(), cands)
	require.Len(t, outcomes, 20)
	assert.LessOrEqual(t, atomic.LoadInt64(&peak), int64(5))
	assert.Greater(t, atomic.LoadInt64(&peak), int64(1))
}

func TestCheckAllEmptyInput(t *testing.T) {
	p, fv := newTestPool(func(int, string) (roblox.Result, error) {
		return roblox.Result{StatusCode: 200}, nil
	})
	assert.Nil(t, p.CheckAll(context.Background(), nil))
	assert.Equal(t, 0, fv.callCount())
}

func TestCheckAllStopsDispatchOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p, _ := newTestPool(func(call int, _ string) (roblox.Result, error) {
		if call == 5 {
			cancel()
		}
		time.Sleep(2 * time.Millisecond)
		return roblox.Result{StatusCode: 200}, nil
	})

	var cands []domain.Candidate
	for i := 0; i < 50; i++ {
		cands = append(cands, cand("w"+string(rune('a'+i%26))+string(rune('a'+i/26))))
	}
	outcomes := p.CheckAll(ctx, cands)
	assert.GreaterOrEqual(t, len(outcomes), 5)
	assert.Less(t, len(outcomes), 50)
}
