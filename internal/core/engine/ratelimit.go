package engine

import (
	"context"
	"sort"
	"sync"
	"time"
)

const (
	// DefaultMaxRequests matches the published EDGAR quota.
	DefaultMaxRequests = 10
	// DefaultWindow is the rolling window the quota applies to.
	DefaultWindow = time.Second
)

// Limiter admits one outbound request per Acquire call.
type Limiter interface {
	Acquire(ctx context.Context) error
}

// RequestLog is the timestamp log shared by the blocking and cooperative
// limiters of one client. Every admitted request is recorded at the instant it
// is allowed to go out, which may lie in the future while its caller waits.
type RequestLog struct {
	mu           sync.Mutex
	max          int
	window       time.Duration
	stamps       []time.Time // sorted, non-decreasing
	backoffUntil time.Time
}

// NewRequestLog creates a log allowing limit requests per window.
func NewRequestLog(limit int, window time.Duration) *RequestLog {
	if limit <= 0 {
		limit = DefaultMaxRequests
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &RequestLog{max: limit, window: window}
}

// Max returns the per-window request ceiling.
func (l *RequestLog) Max() int {
	if l == nil {
		return 0
	}
	return l.max
}

// Window returns the rolling window length.
func (l *RequestLog) Window() time.Duration {
	if l == nil {
		return 0
	}
	return l.window
}

// Len returns the number of entries retained at now.
func (l *RequestLog) Len(now time.Time) int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(now)
	return len(l.stamps)
}

// Snapshot returns a copy of the retained entries without pruning.
func (l *RequestLog) Snapshot() []time.Time {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]time.Time, len(l.stamps))
	copy(out, l.stamps)
	return out
}

// Record inserts an entry at t. Used to account for requests made outside the
// limiters and to seed the log.
func (l *RequestLog) Record(t time.Time) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.insert(t)
}

// Backoff holds every future admission until the given instant, typically
// derived from a Retry-After header on a 429 response.
func (l *RequestLog) Backoff(until time.Time) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if until.After(l.backoffUntil) {
		l.backoffUntil = until
	}
}

// prune drops entries whose age is at least one window. Caller holds l.mu.
func (l *RequestLog) prune(now time.Time) {
	cutoff := now.Add(-l.window)
	drop := 0
	for drop < len(l.stamps) && !l.stamps[drop].After(cutoff) {
		drop++
	}
	if drop > 0 {
		l.stamps = append(l.stamps[:0], l.stamps[drop:]...)
	}
}

// timeLeft is the remaining life of the oldest entry, or a full window when the
// log is empty. Caller holds l.mu after pruning.
func (l *RequestLog) timeLeft(now time.Time) time.Duration {
	if len(l.stamps) == 0 {
		return l.window
	}
	left := l.window - now.Sub(l.stamps[0])
	if left > l.window {
		left = l.window
	}
	return left
}

// reserve records the earliest instant at or after earliest at which one more
// request keeps every rolling window at or below max entries. Caller holds
// l.mu after pruning.
//
// No wait is imposed while the post-append count is at or below max.
func (l *RequestLog) reserve(earliest time.Time) time.Time {
	at := earliest
	if n := len(l.stamps); n >= l.max {
		if free := l.stamps[n-l.max].Add(l.window); free.After(at) {
			at = free
		}
	}
	if n := len(l.stamps); n > 0 && l.stamps[n-1].After(at) {
		at = l.stamps[n-1]
	}
	if l.backoffUntil.After(at) {
		at = l.backoffUntil
	}
	l.stamps = append(l.stamps, at)
	return at
}

// release removes one reservation made at t. Caller holds l.mu.
func (l *RequestLog) release(t time.Time) {
	for i := len(l.stamps) - 1; i >= 0; i-- {
		if l.stamps[i].Equal(t) {
			l.stamps = append(l.stamps[:i], l.stamps[i+1:]...)
			return
		}
	}
}

// caller holds l.mu
func (l *RequestLog) insert(t time.Time) {
	idx := sort.Search(len(l.stamps), func(i int) bool {
		return l.stamps[i].After(t)
	})
	l.stamps = append(l.stamps, time.Time{})
	copy(l.stamps[idx+1:], l.stamps[idx:])
	l.stamps[idx] = t
}

// BlockingLimiter parks the calling goroutine until its request may go out.
type BlockingLimiter struct {
	Log     *RequestLog
	Clock   func() time.Time
	Sleep   func(time.Duration)
	OnAdmit func(wait time.Duration)
}

// NewBlockingLimiter creates a blocking limiter over log.
func NewBlockingLimiter(log *RequestLog) *BlockingLimiter {
	return &BlockingLimiter{Log: log}
}

// Acquire records one request and sleeps until it is safe to send. The context
// is only consulted before the request is recorded.
func (b *BlockingLimiter) Acquire(ctx context.Context) error {
	if b == nil || b.Log == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	b.Log.mu.Lock()
	now := b.now()
	b.Log.prune(now)
	at := b.Log.reserve(now)
	b.Log.mu.Unlock()

	wait := at.Sub(now)
	if wait > 0 {
		b.sleep(wait)
	}
	if b.OnAdmit != nil {
		b.OnAdmit(wait)
	}
	return nil
}

func (b *BlockingLimiter) now() time.Time {
	if b != nil && b.Clock != nil {
		return b.Clock()
	}
	return time.Now().UTC()
}

func (b *BlockingLimiter) sleep(d time.Duration) {
	if b.Sleep != nil {
		b.Sleep(d)
		return
	}
	time.Sleep(d)
}

// CooperativeLimiter admits concurrent callers through a permit pool whose
// size is re-derived from the shared log on every admission decision.
type CooperativeLimiter struct {
	Log   *RequestLog
	Clock func() time.Time
	Wait  func(ctx context.Context, d time.Duration) error
	// Smoothing spreads a burst across the remainder of the window by delaying
	// each admission by time_left/requests_left.
	Smoothing bool
	OnAdmit   func(wait time.Duration)

	once    sync.Once
	permits *permitPool
}

// NewCooperativeLimiter creates a cooperative limiter over log.
func NewCooperativeLimiter(log *RequestLog) *CooperativeLimiter {
	c := &CooperativeLimiter{Log: log}
	c.pool()
	return c
}

// Acquire suspends the caller until admitted and records the request. If ctx
// ends before the request is admitted, nothing is recorded.
func (c *CooperativeLimiter) Acquire(ctx context.Context) error {
	if c == nil || c.Log == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	pool := c.pool()

	c.Log.mu.Lock()
	now := c.now()
	c.Log.prune(now)
	requestsLeft := c.Log.max - len(c.Log.stamps)
	timeLeft := c.Log.timeLeft(now)
	pool.Resize(max(1, requestsLeft))
	c.Log.mu.Unlock()

	if err := pool.Acquire(ctx); err != nil {
		return err
	}
	defer pool.Release()

	c.Log.mu.Lock()
	now = c.now()
	c.Log.prune(now)
	earliest := now
	if c.Smoothing && requestsLeft > 0 {
		earliest = now.Add(timeLeft / time.Duration(requestsLeft))
	}
	at := c.Log.reserve(earliest)
	c.Log.mu.Unlock()

	wait := at.Sub(now)
	if wait > 0 {
		if err := c.wait(ctx, wait); err != nil {
			c.Log.mu.Lock()
			c.Log.release(at)
			c.Log.mu.Unlock()
			return err
		}
	}
	if c.OnAdmit != nil {
		c.OnAdmit(wait)
	}
	return nil
}

// Available reports permits currently free in the admission pool.
func (c *CooperativeLimiter) Available() int {
	if c == nil {
		return 0
	}
	return c.pool().Available()
}

func (c *CooperativeLimiter) pool() *permitPool {
	c.once.Do(func() {
		size := DefaultMaxRequests
		if c.Log != nil {
			size = c.Log.max
		}
		c.permits = newPermitPool(size)
	})
	return c.permits
}

func (c *CooperativeLimiter) now() time.Time {
	if c != nil && c.Clock != nil {
		return c.Clock()
	}
	return time.Now().UTC()
}

func (c *CooperativeLimiter) wait(ctx context.Context, d time.Duration) error {
	if c.Wait != nil {
		return c.Wait(ctx, d)
	}
	return sleepContext(ctx, d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
