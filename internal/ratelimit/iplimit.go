package ratelimit

import (
	"sync"
	"time"
)

// IPGuard enforces the per-IP upgrade policy: a concurrent connection cap,
// a rolling rapid-connect budget, and a suspicious set for IPs that blew
// through it.
type IPGuard struct {
	mu sync.Mutex

	maxConcurrent int
	maxAttempts   int
	window        time.Duration
	now           func() time.Time

	concurrent map[string]int
	attempts   map[string][]time.Time
	suspicious map[string]time.Time
}

// NewIPGuard creates an IPGuard. maxConcurrent is the concurrent connection
// cap per IP; maxAttempts connects within window mark the IP suspicious.
func NewIPGuard(maxConcurrent, maxAttempts int, window time.Duration) *IPGuard {
	return &IPGuard{
		maxConcurrent: maxConcurrent,
		maxAttempts:   maxAttempts,
		window:        window,
		now:           time.Now,
		concurrent:    make(map[string]int),
		attempts:      make(map[string][]time.Time),
		suspicious:    make(map[string]time.Time),
	}
}

// Denial explains why an upgrade was refused.
type Denial string

const (
	DenySuspicious   Denial = "suspicious"
	DenyConcurrency  Denial = "too_many_connections"
	DenyRapidConnect Denial = "rapid_connect"
)

// Admit records a connection attempt from ip and reports whether the upgrade
// may proceed. On success the caller must pair it with a Release.
func (g *IPGuard) Admit(ip string) (bool, Denial) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, bad := g.suspicious[ip]; bad {
		return false, DenySuspicious
	}
	if g.concurrent[ip] >= g.maxConcurrent {
		return false, DenyConcurrency
	}

	now := g.now()
	cutoff := now.Add(-g.window)
	recent := g.attempts[ip][:0]
	for _, t := range g.attempts[ip] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	recent = append(recent, now)
	g.attempts[ip] = recent

	if len(recent) > g.maxAttempts {
		g.suspicious[ip] = now
		return false, DenyRapidConnect
	}

	g.concurrent[ip]++
	return true, ""
}

// Release decrements the concurrent count for ip.
func (g *IPGuard) Release(ip string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.concurrent[ip] > 1 {
		g.concurrent[ip]--
	} else {
		delete(g.concurrent, ip)
	}
}

// IsSuspicious reports whether ip has been flagged.
func (g *IPGuard) IsSuspicious(ip string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, bad := g.suspicious[ip]
	return bad
}

// Forgive clears the suspicious flag and attempt history for ip.
func (g *IPGuard) Forgive(ip string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.suspicious, ip)
	delete(g.attempts, ip)
}
