// Package sessions handles the write-side side effects of stream resolution:
// the append-only session log, the last-authenticated stamp, and the
// in-process active-connection estimate reported in the auth response.
package sessions

import (
	"time"

	"xc-gate/work/logger"
	"xc-gate/work/metrics"

	"github.com/panjf2000/ants/v2"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/ratelimit"
)

// Sink is the append-only session log and auth-stamp surface of the store.
type Sink interface {
	AppendSession(subscriberID, channelID, clientAddr string, at time.Time) error
	TouchLastAuth(subscriberID string, at time.Time) error
}

// connectionWindow is how long one stream resolution counts toward a
// subscriber's active connections. The gateway hands playback off to the
// upstream, so it cannot observe when a player actually stops; a resolution
// is treated as an active connection until the window elapses.
const connectionWindow = 5 * time.Minute

// Recorder submits store writes to a bounded worker pool so they never block
// or fail a response. The pool must be non-blocking: when every worker is
// busy, Submit fails immediately and the write is logged and dropped instead
// of stalling the handler. Submissions are paced by a rate limiter inside
// the workers to keep a reconnect storm from flooding the store.
type Recorder struct {
	sink    Sink
	pool    *ants.Pool
	limiter ratelimit.Limiter
	active  *xsync.MapOf[string, []time.Time]
	now     func() time.Time
}

// NewRecorder wires a Recorder onto an existing worker pool. The pool should
// be constructed with ants.WithNonblocking(true).
func NewRecorder(sink Sink, pool *ants.Pool, writesPerSecond int) *Recorder {
	return &Recorder{
		sink:    sink,
		pool:    pool,
		limiter: ratelimit.New(writesPerSecond),
		active:  xsync.NewMapOf[string, []time.Time](),
		now:     time.Now,
	}
}

// RecordSession appends a {subscriber, channel, client} log entry
// fire-and-forget. Errors, including pool overload, are logged and dropped.
func (r *Recorder) RecordSession(subscriberID, channelID, clientAddr string) {
	at := r.now().UTC()
	err := r.pool.Submit(func() {
		r.limiter.Take()
		if err := r.sink.AppendSession(subscriberID, channelID, clientAddr, at); err != nil {
			logger.Warn("{sessions - RecordSession} session append failed for %s: %v", subscriberID, err)
		}
	})
	if err != nil {
		logger.Warn("{sessions - RecordSession} pool rejected session append: %v", err)
	}
}

// StampLastAuth records the last successful authentication time
// fire-and-forget. Errors are logged and dropped.
func (r *Recorder) StampLastAuth(subscriberID string) {
	at := r.now().UTC()
	err := r.pool.Submit(func() {
		r.limiter.Take()
		if err := r.sink.TouchLastAuth(subscriberID, at); err != nil {
			logger.Warn("{sessions - StampLastAuth} last-auth stamp failed for %s: %v", subscriberID, err)
		}
	})
	if err != nil {
		logger.Warn("{sessions - StampLastAuth} pool rejected last-auth stamp: %v", err)
	}
}

// TrackConnect marks a stream resolution for the subscriber. Entries outside
// the connection window are pruned on every touch, so the count decays by
// itself. Monitoring only; nothing is enforced from this figure.
func (r *Recorder) TrackConnect(username string) {
	now := r.now()
	var n int
	r.active.Compute(username, func(old []time.Time, _ bool) ([]time.Time, bool) {
		fresh := append(pruneExpired(old, now), now)
		n = len(fresh)
		return fresh, false
	})
	metrics.ActiveConnections.WithLabelValues(username).Set(float64(n))
}

// ActiveConnections returns the subscriber's resolutions within the
// connection window. An entry whose window has fully elapsed is removed.
func (r *Recorder) ActiveConnections(username string) int64 {
	now := r.now()
	var n int
	r.active.Compute(username, func(old []time.Time, loaded bool) ([]time.Time, bool) {
		fresh := pruneExpired(old, now)
		n = len(fresh)
		return fresh, len(fresh) == 0
	})
	metrics.ActiveConnections.WithLabelValues(username).Set(float64(n))
	return int64(n)
}

func pruneExpired(entries []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-connectionWindow)
	fresh := entries[:0]
	for _, at := range entries {
		if at.After(cutoff) {
			fresh = append(fresh, at)
		}
	}
	return fresh
}
