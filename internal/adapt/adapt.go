package adapt

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	r "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const stateKey = "adapt:state"

const (
	learningRate  = 0.1
	minSamples    = 20
	minPerLength  = 5
	perLengthKeep = 50
	recentKeep    = 100
)

// Boost thresholds: short names are worth chasing even at equal hit rates.
const (
	shortBoostLen  = 4
	mediumBoostLen = 6
)

// DefaultWeights is the starting length distribution, biased toward short
// names.
func DefaultWeights() map[int]float64 {
	return map[int]float64{3: 30, 4: 25, 5: 20, 6: 15, 7: 5, 8: 3, 9: 2}
}

type sample struct {
	available bool
	errored   bool
}

// Tracker learns which username lengths keep producing available names and
// shifts generation weight toward them. Safe for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	recent   []sample
	byLength map[int][]sample
	weights  map[int]float64

	rdb *r.Client // optional; persists weights across restarts
	log *zap.Logger
}

func New(rdb *r.Client, log *zap.Logger) *Tracker {
	return &Tracker{
		byLength: make(map[int][]sample),
		weights:  DefaultWeights(),
		rdb:      rdb,
		log:      log,
	}
}

// Record feeds one check result into the learning windows. Errored checks
// count toward nothing but keep the windows honest about volume.
func (t *Tracker) Record(length int, available, errored bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.recent = append(t.recent, sample{available, errored})
	if len(t.recent) > recentKeep {
		t.recent = t.recent[1:]
	}
	window := append(t.byLength[length], sample{available, errored})
	if len(window) > perLengthKeep {
		window = window[1:]
	}
	t.byLength[length] = window
}

// Weights returns a copy of the current per-length weights.
func (t *Tracker) Weights() map[int]float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[int]float64, len(t.weights))
	for l, w := range t.weights {
		out[l] = w
	}
	return out
}

// Adapt reblends weights from recent per-length hit rates. A no-op until
// enough valid samples accumulate, so early noise cannot swing generation.
func (t *Tracker) Adapt() {
	t.mu.Lock()
	defer t.mu.Unlock()

	valid := 0
	for _, s := range t.recent {
		if !s.errored {
			valid++
		}
	}
	if valid < minSamples {
		return
	}

	rates := make(map[int]float64)
	total := 0.0
	for length, window := range t.byLength {
		n, hits := 0, 0
		for _, s := range window {
			if s.errored {
				continue
			}
			n++
			if s.available {
				hits++
			}
		}
		if n < minPerLength {
			continue
		}
		rate := float64(hits) / float64(n)
		rates[length] = rate
		total += rate
	}
	if total <= 0 {
		return
	}

	for length, rate := range rates {
		boost := 1.0
		switch {
		case length <= shortBoostLen:
			boost = 3.0
		case length <= mediumBoostLen:
			boost = 1.5
		}
		target := rate / total * 100 * boost
		t.weights[length] = (1-learningRate)*t.weights[length] + learningRate*target
	}
	t.log.Debug("adapted length weights", zap.Int("valid_samples", valid))
}

// persistedState is the JSON shape stored in Redis.
type persistedState struct {
	Weights   map[int]float64 `json:"length_weights"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Load restores persisted weights; defaults stay when nothing is stored.
func (t *Tracker) Load(ctx context.Context) {
	if t.rdb == nil {
		return
	}
	raw, err := t.rdb.Get(ctx, stateKey).Result()
	if err != nil {
		if !errors.Is(err, r.Nil) {
			t.log.Warn("load adaptive state", zap.Error(err))
		}
		return
	}
	var st persistedState
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		t.log.Warn("decode adaptive state", zap.Error(err))
		return
	}
	if len(st.Weights) == 0 {
		return
	}
	t.mu.Lock()
	t.weights = st.Weights
	t.mu.Unlock()
	t.log.Info("restored adaptive state", zap.Time("updated_at", st.UpdatedAt))
}

// Save persists the current weights.
func (t *Tracker) Save(ctx context.Context) {
	if t.rdb == nil {
		return
	}
	raw, err := json.Marshal(persistedState{Weights: t.Weights(), UpdatedAt: time.Now().UTC()})
	if err != nil {
		return
	}
	if err := t.rdb.Set(ctx, stateKey, raw, 0).Err(); err != nil {
		t.log.Warn("save adaptive state", zap.Error(err))
	}
}
