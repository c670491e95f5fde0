package plugin

import (
	"sync"
	"time"

	"github.com/vovakirdan/wirebot/internal/state"
)

// Verdict is the limiter's decision for one invocation attempt.
type Verdict int

const (
	// VerdictProceed allows the invocation; last-use is recorded.
	VerdictProceed Verdict = iota
	// VerdictWarn refuses the invocation and asks for exactly one warning
	// reply; the user is placed on the ban list.
	VerdictWarn
	// VerdictSilence refuses the invocation without any reply; the user is
	// serving a ban.
	VerdictSilence
)

// Limiter implements the per-user cooldown/ban policy shared by every
// rate-limited plugin. A user invoking twice within the cooldown window is
// banned for the ban duration; invocations during the ban are ignored
// silently. Keys are normalized user names.
type Limiter struct {
	mu       sync.Mutex
	cooldown time.Duration
	banFor   time.Duration
	lastUsed map[string]time.Time
	banned   map[string]time.Time
}

// NewLimiter builds a limiter with the given cooldown and ban duration.
func NewLimiter(cooldown, banFor time.Duration) *Limiter {
	return &Limiter{
		cooldown: cooldown,
		banFor:   banFor,
		lastUsed: make(map[string]time.Time),
		banned:   make(map[string]time.Time),
	}
}

// Check runs the state machine for one invocation attempt at the given
// time and returns the verdict.
func (l *Limiter) Check(user string, now time.Time) Verdict {
	key := state.Normalize(user)

	l.mu.Lock()
	defer l.mu.Unlock()

	if bannedAt, ok := l.banned[key]; ok {
		if now.Sub(bannedAt) < l.banFor {
			return VerdictSilence
		}
		// Ban served, fall through to the cooldown check.
		delete(l.banned, key)
	}

	if last, ok := l.lastUsed[key]; ok && now.Sub(last) < l.cooldown {
		l.banned[key] = now
		return VerdictWarn
	}

	l.lastUsed[key] = now
	return VerdictProceed
}

// Cooldown returns the configured cooldown window.
func (l *Limiter) Cooldown() time.Duration { return l.cooldown }

// BanDuration returns the configured ban duration.
func (l *Limiter) BanDuration() time.Duration { return l.banFor }
