// Package progress implements the cosmetic analysis progress stream.
//
// The stream is decoupled from the actual inference call: events are staged
// on a ticker, cancelled when the analysis finishes, and dropped rather than
// queued when a subscriber is slow. Nothing here gates correctness.
package progress

import (
	"context"
	"sync"
	"time"
)

// Event is one progress notification.
type Event struct {
	Stage   string    `json:"stage"`
	Percent int       `json:"percent"`
	At      time.Time `json:"at"`
}

var stages = []string{
	"preprocessing image",
	"segmenting cells",
	"running deep inference",
	"computing probabilities",
	"finalizing results",
}

// Broadcaster fans progress events out to any number of subscribers.
type Broadcaster struct {
	mu       sync.Mutex
	subs     map[chan Event]struct{}
	interval time.Duration
}

// NewBroadcaster creates a broadcaster emitting at the given cadence.
func NewBroadcaster(interval time.Duration) *Broadcaster {
	if interval <= 0 {
		interval = 400 * time.Millisecond
	}
	return &Broadcaster{
		subs:     make(map[chan Event]struct{}),
		interval: interval,
	}
}

// Subscribe registers a listener. The returned cancel func must be called
// when the listener goes away.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Run starts emitting staged events until the returned stop func is called
// or ctx is cancelled. The final event always reports 100%.
func (b *Broadcaster) Run(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()

		tick := 0
		total := len(stages) * 4 // ~4 ticks per stage before holding at 95%
		for {
			select {
			case <-ctx.Done():
				b.publish(Event{Stage: "done", Percent: 100, At: time.Now()})
				return
			case <-ticker.C:
				stage := stages[min(tick/4, len(stages)-1)]
				percent := min(95, (tick+1)*100/total)
				b.publish(Event{Stage: stage, Percent: percent, At: time.Now()})
				tick++
			}
		}
	}()

	return cancel
}

// publish delivers ev without ever blocking: slow subscribers lose events.
func (b *Broadcaster) publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
