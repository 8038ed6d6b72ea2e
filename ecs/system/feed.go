package system

import (
	"fmt"
	"time"

	"github.com/milk9111/tether/coupling"
	"github.com/milk9111/tether/ecs"
)

// FeedEntry is one line of a NoticeFeed.
type FeedEntry struct {
	Text  string
	Style coupling.Style
	Until time.Time
}

// NoticeFeed keeps the most recent notices and coupling events for display.
// Entries expire ttl after they arrive; only the newest max are kept.
type NoticeFeed struct {
	clock   *ecs.Clock
	ttl     time.Duration
	max     int
	entries []FeedEntry
}

func NewNoticeFeed(clock *ecs.Clock, ttl time.Duration, max int) *NoticeFeed {
	if max < 1 {
		max = 1
	}
	return &NoticeFeed{clock: clock, ttl: ttl, max: max}
}

// Attach installs the feed as the notice and coupling sinks of events.
func (f *NoticeFeed) Attach(events *EventLogSystem) {
	events.OnNotice = f.PushNotice
	events.OnCoupling = f.PushEvent
}

func (f *NoticeFeed) PushNotice(n ecs.Notice) {
	f.push(fmt.Sprintf("-> %s: %s", n.To, n.Message.Text), n.Message.Style)
}

func (f *NoticeFeed) PushEvent(e coupling.Event) {
	text := fmt.Sprintf("%s %s -> %s", e.Kind, e.Captor, e.Target)
	style := coupling.StyleSuccess
	if e.Reason != "" {
		text += " (" + string(e.Reason) + ")"
		if e.Kind == coupling.EventReleased && e.Reason != coupling.ReasonStop {
			style = coupling.StyleWarning
		}
	}
	f.push(text, style)
}

func (f *NoticeFeed) push(text string, style coupling.Style) {
	f.entries = append(f.entries, FeedEntry{Text: text, Style: style, Until: f.clock.Now().Add(f.ttl)})
	if len(f.entries) > f.max {
		f.entries = f.entries[len(f.entries)-f.max:]
	}
}

// Entries drops expired lines and returns the rest, oldest first.
func (f *NoticeFeed) Entries() []FeedEntry {
	now := f.clock.Now()
	kept := f.entries[:0]
	for _, e := range f.entries {
		if !now.After(e.Until) {
			kept = append(kept, e)
		}
	}
	f.entries = kept
	return f.entries
}
