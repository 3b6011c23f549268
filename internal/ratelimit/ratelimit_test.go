package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(rules map[string]Rule) (*Limiter, *time.Time) {
	l := NewLimiter(rules)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestLimiterAllowsUpToLimit(t *testing.T) {
	l, _ := newTestLimiter(map[string]Rule{"SUBMIT_ANSWER": {Limit: 50, Window: 10 * time.Second}})

	for i := 0; i < 50; i++ {
		res := l.Allow("SUBMIT_ANSWER", "user-1")
		require.True(t, res.Allowed, "request %d should be admitted", i+1)
	}

	res := l.Allow("SUBMIT_ANSWER", "user-1")
	assert.False(t, res.Allowed)
	assert.Greater(t, res.RetryAfter, time.Duration(0))
}

func TestLimiterIsPerIdentifier(t *testing.T) {
	l, _ := newTestLimiter(map[string]Rule{"CREATE_ROOM": {Limit: 1, Window: time.Minute}})

	assert.True(t, l.Allow("CREATE_ROOM", "a").Allowed)
	assert.False(t, l.Allow("CREATE_ROOM", "a").Allowed)
	assert.True(t, l.Allow("CREATE_ROOM", "b").Allowed)
}

func TestLimiterUnknownActionAdmitted(t *testing.T) {
	l, _ := newTestLimiter(map[string]Rule{})
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("HEARTBEAT_RESPONSE", "a").Allowed)
	}
}

func TestLimiterSlidingWindowWeighting(t *testing.T) {
	l, now := newTestLimiter(map[string]Rule{"JOIN_ROOM": {Limit: 10, Window: time.Minute}})

	// Fill the first window completely.
	*now = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		require.True(t, l.Allow("JOIN_ROOM", "u").Allowed)
	}

	// At the very start of the next window the previous count carries full
	// weight, so the request is still rejected.
	*now = time.Date(2026, 1, 1, 12, 1, 0, 0, time.UTC)
	assert.False(t, l.Allow("JOIN_ROOM", "u").Allowed)

	// Halfway through, weighted load is 0 + 0.5*10 = 5 < 10.
	*now = time.Date(2026, 1, 1, 12, 1, 30, 0, time.UTC)
	assert.True(t, l.Allow("JOIN_ROOM", "u").Allowed)

	// Two full windows later everything is forgotten.
	*now = time.Date(2026, 1, 1, 12, 5, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		assert.True(t, l.Allow("JOIN_ROOM", "u").Allowed)
	}
}

func TestLimiterPruneRemovesStaleEntries(t *testing.T) {
	l, now := newTestLimiter(map[string]Rule{"JOIN_ROOM": {Limit: 10, Window: time.Minute}})

	l.Allow("JOIN_ROOM", "u")
	require.Len(t, l.windows, 1)

	*now = now.Add(4 * time.Minute)
	l.prune()
	assert.Empty(t, l.windows)
}

func TestIPGuardConcurrencyCap(t *testing.T) {
	g := NewIPGuard(2, 10, time.Minute)

	ok, _ := g.Admit("10.0.0.1")
	require.True(t, ok)
	ok, _ = g.Admit("10.0.0.1")
	require.True(t, ok)

	ok, reason := g.Admit("10.0.0.1")
	assert.False(t, ok)
	assert.Equal(t, DenyConcurrency, reason)

	g.Release("10.0.0.1")
	ok, _ = g.Admit("10.0.0.1")
	assert.True(t, ok)
}

func TestIPGuardRapidConnectMarksSuspicious(t *testing.T) {
	g := NewIPGuard(5, 3, time.Minute)

	for i := 0; i < 3; i++ {
		ok, _ := g.Admit("10.0.0.2")
		require.True(t, ok)
		g.Release("10.0.0.2")
	}

	// Fourth attempt within the window marks the IP suspicious.
	ok, reason := g.Admit("10.0.0.2")
	assert.False(t, ok)
	assert.Equal(t, DenyRapidConnect, reason)
	assert.True(t, g.IsSuspicious("10.0.0.2"))

	// Once suspicious, all further attempts are refused outright.
	ok, reason = g.Admit("10.0.0.2")
	assert.False(t, ok)
	assert.Equal(t, DenySuspicious, reason)

	g.Forgive("10.0.0.2")
	ok, _ = g.Admit("10.0.0.2")
	assert.True(t, ok)
}

func TestIPGuardWindowExpiry(t *testing.T) {
	g := NewIPGuard(5, 3, time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		ok, _ := g.Admit("10.0.0.3")
		require.True(t, ok)
		g.Release("10.0.0.3")
	}

	// After the window rolls, the attempt budget resets.
	now = now.Add(61 * time.Second)
	ok, _ := g.Admit("10.0.0.3")
	assert.True(t, ok)
	assert.False(t, g.IsSuspicious("10.0.0.3"))
}
