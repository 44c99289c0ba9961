package room

// ScrollTriggers reports whether a scroll event should load older messages:
// the first visible row is the top of the timeline. The scroll deltas are
// accepted for signature compatibility and ignored, so a purely vertical
// scroll (dx == 0) triggers too.
func ScrollTriggers(firstVisible, dx, dy int) bool {
	return firstVisible == 0
}
