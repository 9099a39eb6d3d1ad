package session

import "time"

// EventKind identifies a browser lifecycle event delivered to the
// tracker.
type EventKind int

const (
	// EventNavigate reports that the visible tab now shows URL. Fired
	// for tab activation, in-tab navigation, and tab switches.
	EventNavigate EventKind = iota
	// EventTabRemoved reports that the tracked tab was closed.
	EventTabRemoved
	// EventFocusChanged reports a browser window focus change.
	EventFocusChanged
	// EventIdleStateChanged reports the system idle state: "active",
	// "idle", or "locked".
	EventIdleStateChanged
	// EventSuspend reports that the extension is about to suspend.
	EventSuspend

	// eventFaviconFound delivers a late favicon poll result back into
	// the tracker loop.
	eventFaviconFound
)

// IdleActive is the idle state under which tracking continues.
const IdleActive = "active"

// Event is one inbound browser lifecycle event. Events are handled
// strictly in dispatch order.
type Event struct {
	Kind      EventKind
	URL       string
	Favicon   string
	TabID     int
	Focused   bool
	IdleState string
	Time      time.Time

	// generation ties a favicon poll result to the session that
	// requested it.
	generation uint64
}
