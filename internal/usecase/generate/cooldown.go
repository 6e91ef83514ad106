package generate

import (
	"sort"
	"sync"
	"time"
)

// CooldownTracker records models that recently answered with a rate limit.
// Entries live for the process lifetime and are only removed by ResetAll.
// It is safe for concurrent use by several document runs.
type CooldownTracker struct {
	mu    sync.Mutex
	until map[string]time.Time
}

// NewCooldownTracker creates an empty tracker.
func NewCooldownTracker() *CooldownTracker {
	return &CooldownTracker{until: make(map[string]time.Time)}
}

// IsAvailable reports whether model may be selected at now.
func (t *CooldownTracker) IsAvailable(model string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	until, ok := t.until[model]
	return !ok || !now.Before(until)
}

// MarkRateLimited excludes model until now+d, replacing any earlier mark.
func (t *CooldownTracker) MarkRateLimited(model string, now time.Time, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.until[model] = now.Add(d)
}

// ResetAll clears every cooldown.
func (t *CooldownTracker) ResetAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	clear(t.until)
}

// Filter returns the models available at now. When every model is cooling
// down the table is reset and the full list is returned with reset=true.
func (t *CooldownTracker) Filter(models []string, now time.Time) (available []string, reset bool) {
	if len(models) == 0 {
		return nil, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, m := range models {
		if until, ok := t.until[m]; !ok || !now.Before(until) {
			available = append(available, m)
		}
	}
	if len(available) > 0 {
		return available, false
	}

	clear(t.until)
	return append([]string(nil), models...), true
}

// Cooldown is one active cooldown entry.
type Cooldown struct {
	Model     string        `json:"model"`
	Until     time.Time     `json:"until"`
	Remaining time.Duration `json:"remaining"`
}

// Snapshot returns the cooldowns still active at now, sorted by model.
func (t *CooldownTracker) Snapshot(now time.Time) []Cooldown {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Cooldown, 0, len(t.until))
	for model, until := range t.until {
		if !now.Before(until) {
			continue
		}
		out = append(out, Cooldown{Model: model, Until: until, Remaining: until.Sub(now)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Model < out[j].Model })
	return out
}
