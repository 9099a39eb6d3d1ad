// Package session holds the screen-time attribution state machine: at
// most one domain is "being attributed" at any moment, and every way a
// session can end produces exactly one close-out record for the
// aggregator. All state mutations run on a single consumer loop, so
// overlapping browser events can never interleave mid-update.
package session

import (
	"context"
	"log/slog"
	"math"
	"net/url"
	"time"

	"github.com/soleren/tempo/internal/aggregate"
	"github.com/soleren/tempo/internal/config"
	"github.com/soleren/tempo/internal/retry"
)

// Sink consumes close-out records. Implemented by aggregate.Aggregator.
type Sink interface {
	Apply(ctx context.Context, rec aggregate.Record, now time.Time) error
}

// FaviconSource resolves a favicon for a domain after the fact. Polled
// with bounded retries when a navigation event arrives without one.
type FaviconSource interface {
	Favicon(ctx context.Context, domain string) (string, error)
}

// Options tunes tracker behavior. FromConfig builds Options from the
// tracking section of the config file.
type Options struct {
	// MinSessionSeconds discards close-outs shorter than this.
	MinSessionSeconds int
	// MaxSessionSeconds caps one close-out; 0 disables the cap.
	MaxSessionSeconds int
	// Heartbeat is how often a long-lived session is flushed and
	// reopened so an unclean shutdown loses at most one interval.
	Heartbeat time.Duration
	// FaviconRetry bounds favicon polling for a new session.
	FaviconRetry retry.Policy
}

// FromConfig maps a TrackingConfig onto Options.
func FromConfig(cfg config.TrackingConfig) Options {
	return Options{
		MinSessionSeconds: cfg.MinSessionSeconds,
		MaxSessionSeconds: cfg.MaxSessionSeconds,
		Heartbeat:         time.Duration(cfg.HeartbeatSeconds) * time.Second,
		FaviconRetry: retry.Policy{
			MaxAttempts: cfg.FaviconMaxAttempts,
			Delay:       time.Duration(cfg.FaviconDelayMs) * time.Millisecond,
		},
	}
}

// active is the in-memory state of the one session being attributed.
type active struct {
	domain    string
	favicon   string
	tabID     int
	startedAt time.Time
}

// Tracker owns the Idle/Tracking state machine. Construct with New,
// feed events through Dispatch, and drive it with Run.
type Tracker struct {
	opts     Options
	ignore   *config.IgnoreMatcher
	sink     Sink
	favicons FaviconSource
	logger   *slog.Logger

	// now is the clock; replaced in tests.
	now func() time.Time

	events chan Event

	// Loop-owned state. Only touched from handle/flush, which the run
	// loop serializes.
	current    *active
	generation uint64
}

// New creates a Tracker. favicons may be nil, in which case no favicon
// polling happens.
func New(opts Options, ignore *config.IgnoreMatcher, sink Sink, favicons FaviconSource, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = 30 * time.Second
	}
	return &Tracker{
		opts:     opts,
		ignore:   ignore,
		sink:     sink,
		favicons: favicons,
		logger:   logger,
		now:      time.Now,
		events:   make(chan Event, 64),
	}
}

// Dispatch queues one event for the tracker loop. Events are consumed
// in FIFO order. Blocks only when the queue is full and returns early if
// ctx is cancelled.
func (t *Tracker) Dispatch(ctx context.Context, ev Event) error {
	select {
	case t.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run consumes events until ctx is cancelled, flushing the active
// session on its heartbeat. The active session is closed out before Run
// returns, so cancellation behaves like a suspend notification.
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.opts.Heartbeat)
	defer ticker.Stop()

	for {
		select {
		case ev := <-t.events:
			t.handle(ctx, ev)
		case <-ticker.C:
			t.flush(ctx)
		case <-ctx.Done():
			// One last close-out; storage calls get a fresh context
			// since ctx is already done.
			t.closeOut(context.Background(), t.now())
			return
		}
	}
}

// handle applies one event to the state machine.
func (t *Tracker) handle(ctx context.Context, ev Event) {
	now := ev.Time
	if now.IsZero() {
		now = t.now()
	}

	switch ev.Kind {
	case EventNavigate:
		t.handleNavigate(ctx, ev, now)

	case EventTabRemoved:
		if t.current != nil && t.current.tabID == ev.TabID {
			t.closeOut(ctx, now)
		}

	case EventFocusChanged:
		if !ev.Focused {
			t.closeOut(ctx, now)
		}
		// Regaining focus opens nothing by itself; the extension sends
		// a navigation event for the tab that became visible.

	case EventIdleStateChanged:
		if ev.IdleState != IdleActive {
			t.closeOut(ctx, now)
		}

	case EventSuspend:
		t.closeOut(ctx, now)

	case eventFaviconFound:
		// Stale results for a session that has since ended are no-ops.
		if t.current != nil && ev.generation == t.generation && t.current.favicon == "" {
			t.current.favicon = ev.Favicon
		}
	}
}

func (t *Tracker) handleNavigate(ctx context.Context, ev Event, now time.Time) {
	domain, path := splitURL(ev.URL)

	if domain == "unknown" || t.ignore.Ignored(domain, path) {
		// Not trackable: close whatever was running and go idle.
		t.closeOut(ctx, now)
		return
	}

	if t.current != nil && t.current.domain == domain {
		// Same domain; attribution continues. Pick up a favicon if one
		// arrived with the navigation.
		t.current.tabID = ev.TabID
		if ev.Favicon != "" {
			t.current.favicon = ev.Favicon
		}
		return
	}

	t.closeOut(ctx, now)
	t.open(ctx, domain, ev.Favicon, ev.TabID, now)
}

// open starts attributing to domain at now.
func (t *Tracker) open(ctx context.Context, domain, favicon string, tabID int, now time.Time) {
	t.generation++
	t.current = &active{
		domain:    domain,
		favicon:   favicon,
		tabID:     tabID,
		startedAt: now,
	}

	if favicon == "" && t.favicons != nil {
		go t.pollFavicon(ctx, t.generation, domain)
	}
}

// pollFavicon retries the favicon source and feeds a hit back into the
// event loop tagged with the session generation that asked for it.
func (t *Tracker) pollFavicon(ctx context.Context, generation uint64, domain string) {
	var favicon string
	err := t.opts.FaviconRetry.Do(ctx, func() error {
		f, err := t.favicons.Favicon(ctx, domain)
		if err != nil {
			return err
		}
		favicon = f
		return nil
	})
	if err != nil || favicon == "" {
		return
	}

	select {
	case t.events <- Event{Kind: eventFaviconFound, Favicon: favicon, generation: generation}:
	case <-ctx.Done():
	}
}

// flush closes out and immediately reopens the active session so that
// long sessions reach storage incrementally.
func (t *Tracker) flush(ctx context.Context) {
	if t.current == nil {
		return
	}
	domain, favicon, tabID := t.current.domain, t.current.favicon, t.current.tabID

	now := t.now()
	t.closeOut(ctx, now)
	t.open(ctx, domain, favicon, tabID, now)
}

// closeOut ends the active session, if any, and hands its record to the
// sink. Sink failures drop the record; the metric under-counts rather
// than blocking the event loop.
func (t *Tracker) closeOut(ctx context.Context, now time.Time) {
	cur := t.current
	if cur == nil {
		return
	}
	t.current = nil

	// Half-second boundaries round down, so an exactly-1.5s session is
	// credited 1 second.
	seconds := int(math.Ceil(now.Sub(cur.startedAt).Seconds() - 0.5))
	if seconds < 0 {
		// Clock went backwards; attribute nothing.
		seconds = 0
	}
	if t.opts.MaxSessionSeconds > 0 && seconds > t.opts.MaxSessionSeconds {
		seconds = t.opts.MaxSessionSeconds
	}

	minSeconds := t.opts.MinSessionSeconds
	if minSeconds < 1 {
		minSeconds = 1
	}
	if seconds < minSeconds {
		return
	}

	rec := aggregate.Record{Domain: cur.domain, Seconds: seconds, Favicon: cur.favicon}
	if err := t.sink.Apply(ctx, rec, now); err != nil {
		t.logger.Warn("dropping close-out record",
			"domain", cur.domain, "seconds", seconds, "error", err)
	}
}

// splitURL extracts the hostname and path from a navigated URL. Any URL
// that cannot be parsed, or has no hostname, maps to the "unknown"
// domain, which is never tracked.
func splitURL(rawURL string) (domain, path string) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown", ""
	}
	return u.Hostname(), u.Path
}
