package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/court-rotation/internal/model"
	"github.com/iliyamo/court-rotation/internal/repository"
)

// TickLock lets one replica advance a session per tick window.
type TickLock interface {
	Acquire(ctx context.Context, sessionID string, ttl time.Duration) (bool, error)
}

// RedisTickLock implements TickLock with SET NX PX.  The key expires on
// its own, so a crashed holder never blocks the next window.
type RedisTickLock struct {
	client *redis.Client
	prefix string
}

// NewRedisTickLock returns a lock over client.  Keys are
// "<prefix>:<session id>".
func NewRedisTickLock(client *redis.Client, prefix string) *RedisTickLock {
	if prefix == "" {
		prefix = "tick"
	}
	return &RedisTickLock{client: client, prefix: prefix}
}

// Acquire reports whether this caller owns the session's current window.
func (l *RedisTickLock) Acquire(ctx context.Context, sessionID string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, l.prefix+":"+sessionID, time.Now().UTC().Format(time.RFC3339Nano), ttl).Result()
}

// Ticker is the background wait-time clock.  Every interval it adds
// minutes to the waiting players of each IN_PROGRESS session.  A session
// whose update fails keeps the missed minutes and gets them on the next
// successful tick.
type Ticker struct {
	sessions *repository.SessionRepo
	waits    *WaitTimeService
	interval time.Duration
	minutes  int
	lock     TickLock

	mu      sync.Mutex
	pending map[string]int
}

// NewTicker builds a Ticker over the engine.  lock may be nil when only
// one replica runs.
func NewTicker(store *repository.Store, engine *Engine, interval time.Duration, minutes int, lock TickLock) *Ticker {
	return &Ticker{
		sessions: store.Sessions,
		waits:    engine.WaitTimes,
		interval: interval,
		minutes:  minutes,
		lock:     lock,
		pending:  map[string]int{},
	}
}

// Run ticks until ctx is cancelled.  The period is fixed and does not
// depend on how long a tick takes.
func (t *Ticker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	log.Info().Str("component", "ticker").Dur("interval", t.interval).Int("minutes", t.minutes).Msg("ticker started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("component", "ticker").Msg("ticker stopped")
			return
		case <-ticker.C:
			t.Tick(ctx)
		}
	}
}

// Tick advances every active session once.
func (t *Ticker) Tick(ctx context.Context) {
	sessions, err := t.sessions.ListByStatus(ctx, model.SessionInProgress)
	if err != nil {
		log.Error().Err(err).Str("component", "ticker").Msg("list active sessions failed")
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	active := make(map[string]bool, len(sessions))
	for _, s := range sessions {
		active[s.ID] = true
		t.advance(ctx, s.ID)
	}
	for id := range t.pending {
		if !active[id] {
			delete(t.pending, id)
		}
	}
}

func (t *Ticker) advance(ctx context.Context, sessionID string) {
	logger := log.With().Str("component", "ticker").Str("session_id", sessionID).Logger()
	if t.lock != nil {
		ok, err := t.lock.Acquire(ctx, sessionID, t.interval*9/10)
		if err != nil {
			logger.Warn().Err(err).Msg("tick lock unavailable, advancing locally")
		} else if !ok {
			logger.Debug().Msg("tick owned by another replica")
			return
		}
	}

	minutes := t.minutes + t.pending[sessionID]
	if minutes > model.MaxWaitMinutes {
		minutes = model.MaxWaitMinutes
	}
	res, err := t.waits.AdvanceWaitTimes(ctx, sessionID, minutes, nil)
	if err != nil {
		if errors.Is(err, ErrSessionNotActive) || errors.Is(err, ErrNotFound) {
			delete(t.pending, sessionID)
			return
		}
		t.pending[sessionID] = minutes
		logger.Error().Err(err).Int("carried_minutes", minutes).Msg("advance wait times failed")
		return
	}
	delete(t.pending, sessionID)
	logger.Debug().Int("minutes", minutes).Int("players", res.Count).Msg("wait times advanced")
}

// Pending returns the minutes carried over for a session.
func (t *Ticker) Pending(sessionID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending[sessionID]
}
