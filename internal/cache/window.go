package cache

import "time"

// DefaultWindowTTL is how long a message ID stays in the dedup window.
// Independent of the conversation TTL.
const DefaultWindowTTL = 10 * time.Minute

// Window remembers recently seen message identifiers so that redelivered
// events from the at-least-once transport are processed exactly once per
// window.
type Window struct {
	ids *TTL[string, struct{}]
}

// NewWindow creates a dedup window with the given TTL.
func NewWindow(ttl time.Duration) *Window {
	return &Window{ids: NewTTL[string, struct{}](ttl)}
}

// Seen reports whether id is live in the window.
func (w *Window) Seen(id string) bool {
	_, ok := w.ids.Get(id)
	return ok
}

// Remember records id for the window duration.
func (w *Window) Remember(id string) {
	w.ids.Put(id, struct{}{})
}

// CheckAndRemember atomically records id and reports whether it was already
// present. A concurrent duplicate delivery of the same id sees true even
// while the first processing attempt is still in flight.
func (w *Window) CheckAndRemember(id string) (dup bool) {
	w.ids.Update(id, func(_ struct{}, existed bool) struct{} {
		dup = existed
		return struct{}{}
	})
	return dup
}
