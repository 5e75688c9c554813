package timer

import "time"

// TickSource delivers "one second elapsed" signals.
type TickSource interface {
	C() <-chan time.Time
	Stop()
}

// WallClock is a TickSource backed by time.Ticker. Missed ticks are not
// compensated.
type WallClock struct {
	ticker *time.Ticker
}

// NewWallClock starts a ticker. A non-positive interval defaults to one second.
func NewWallClock(interval time.Duration) *WallClock {
	if interval <= 0 {
		interval = time.Second
	}
	return &WallClock{ticker: time.NewTicker(interval)}
}

// C returns the tick channel.
func (w *WallClock) C() <-chan time.Time {
	return w.ticker.C
}

// Stop releases the ticker.
func (w *WallClock) Stop() {
	w.ticker.Stop()
}

// ManualSource is a TickSource driven by the caller.
type ManualSource struct {
	ch chan time.Time
}

// NewManualSource returns a source with the given channel buffer.
func NewManualSource(buffer int) *ManualSource {
	return &ManualSource{ch: make(chan time.Time, buffer)}
}

// C returns the tick channel.
func (s *ManualSource) C() <-chan time.Time {
	return s.ch
}

// Fire delivers one tick, blocking until the consumer has room.
func (s *ManualSource) Fire() {
	s.ch <- time.Now()
}

// Stop is a no-op; the channel stays open so pending ticks can drain.
func (s *ManualSource) Stop() {}
