// Package ratelimit implements sliding-window admission control for
// WebSocket actions, keyed by (action, identifier).
package ratelimit

import (
	"sync"
	"time"
)

// Rule describes the budget for one action.
type Rule struct {
	Limit  int
	Window time.Duration
}

// DefaultRules are the per-user action budgets.
var DefaultRules = map[string]Rule{
	"CREATE_ROOM":   {Limit: 5, Window: time.Minute},
	"JOIN_ROOM":     {Limit: 20, Window: time.Minute},
	"START_GAME":    {Limit: 10, Window: time.Minute},
	"SUBMIT_ANSWER": {Limit: 50, Window: 10 * time.Second},
}

// window tracks a two-bucket sliding window counter.
type window struct {
	currentCount  int
	previousCount int
	windowStart   time.Time
	lastSeen      time.Time
}

// Limiter admits or rejects actions using weighted sliding windows.
// Entries untouched for three window lengths are pruned.
type Limiter struct {
	mu      sync.Mutex
	rules   map[string]Rule
	windows map[string]*window
	now     func() time.Time

	stop chan struct{}
	once sync.Once
}

// NewLimiter creates a limiter with the given rules (nil uses DefaultRules).
func NewLimiter(rules map[string]Rule) *Limiter {
	if rules == nil {
		rules = DefaultRules
	}
	return &Limiter{
		rules:   rules,
		windows: make(map[string]*window),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
}

// Result reports an admission decision.
type Result struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Allow decides whether identifier may perform action now. Actions without a
// configured rule are always admitted.
func (l *Limiter) Allow(action, identifier string) Result {
	rule, ok := l.rules[action]
	if !ok {
		return Result{Allowed: true}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	key := action + ":" + identifier
	w, ok := l.windows[key]
	if !ok {
		w = &window{windowStart: now.Truncate(rule.Window)}
		l.windows[key] = w
	}
	w.lastSeen = now

	// Roll the window forward. If exactly one window elapsed the old current
	// count becomes the previous count; further back it is discarded.
	start := now.Truncate(rule.Window)
	if start.After(w.windowStart) {
		if start.Sub(w.windowStart) == rule.Window {
			w.previousCount = w.currentCount
		} else {
			w.previousCount = 0
		}
		w.currentCount = 0
		w.windowStart = start
	}

	elapsed := now.Sub(w.windowStart)
	weight := 1 - float64(elapsed)/float64(rule.Window)
	if weight < 0 {
		weight = 0
	}
	weighted := float64(w.currentCount) + weight*float64(w.previousCount)

	if weighted >= float64(rule.Limit) {
		return Result{Allowed: false, RetryAfter: rule.Window - elapsed}
	}

	w.currentCount++
	return Result{Allowed: true}
}

// StartPruning launches periodic removal of stale windows.
func (l *Limiter) StartPruning(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-l.stop:
				return
			case <-ticker.C:
				l.prune()
			}
		}
	}()
}

// Stop halts pruning. Safe to call multiple times.
func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

func (l *Limiter) prune() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, w := range l.windows {
		rule, ok := l.ruleForKey(key)
		if !ok {
			delete(l.windows, key)
			continue
		}
		if now.Sub(w.lastSeen) > 3*rule.Window {
			delete(l.windows, key)
		}
	}
}

func (l *Limiter) ruleForKey(key string) (Rule, bool) {
	for action, rule := range l.rules {
		if len(key) > len(action) && key[:len(action)] == action && key[len(action)] == ':' {
			return rule, true
		}
	}
	return Rule{}, false
}
