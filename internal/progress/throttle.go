// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package progress

import "time"

// DefaultThrottleInterval is the scroll write window.
const DefaultThrottleInterval = time.Second

// sample is one scroll measurement waiting for its window to close.
type sample struct {
	chapterID ChapterID
	position  float64
	height    float64
}

// windowState is the throttle state machine: idle, or open with pending samples.
type windowState int

const (
	windowIdle windowState = iota
	windowOpen
)

// throttle coalesces scroll samples into one write per window, trailing edge.
//
// It holds no lock of its own; every method is called with Tracker.mu held.
type throttle struct {
	interval   time.Duration
	state      windowState
	generation uint64
	timer      *time.Timer
	pending    map[string]sample
}

func newThrottle(interval time.Duration) throttle {
	return throttle{interval: interval, state: windowIdle}
}

// push records s as the latest sample for novelID. In the idle state it opens
// a window and arms expire to run when the window closes.
func (window *throttle) push(novelID string, s sample, expire func(generation uint64)) {
	if window.state == windowIdle {
		window.state = windowOpen
		window.generation++
		window.pending = make(map[string]sample)

		generation := window.generation
		window.timer = time.AfterFunc(window.interval, func() { expire(generation) })
	}
	window.pending[novelID] = s
}

// take closes the window and returns its samples. It stops the timer so a
// forced flush is not followed by a second, empty expiry.
func (window *throttle) take() map[string]sample {
	if window.state == windowIdle {
		return nil
	}
	if window.timer != nil {
		window.timer.Stop()
		window.timer = nil
	}

	batch := window.pending
	window.pending = nil
	window.state = windowIdle
	return batch
}

// current reports whether generation still names the open window.
func (window *throttle) current(generation uint64) bool {
	return window.state == windowOpen && window.generation == generation
}

// pendingFor returns the waiting sample of novelID, if any.
func (window *throttle) pendingFor(novelID string) (sample, bool) {
	s, ok := window.pending[novelID]
	return s, ok
}

// discard drops the waiting sample of novelID. The window stays open so other
// novels keep their samples.
func (window *throttle) discard(novelID string) {
	delete(window.pending, novelID)
}
