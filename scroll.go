package adwatch

// growthTracker decides when the page has stopped producing content.
// The document scroll height is the growth signal: a scroll that does
// not increase it counts toward the no-growth streak, and the streak
// resets on any growth.
type growthTracker struct {
	threshold int
	prev      float64
	streak    int
}

func newGrowthTracker(threshold int) *growthTracker {
	return &growthTracker{threshold: threshold}
}

// prime records the extent before the first scroll.
func (g *growthTracker) prime(extent float64) {
	g.prev = extent
}

// observe ingests the extent measured after a scroll and reports whether
// the no-growth streak has reached the threshold.
func (g *growthTracker) observe(extent float64) (exhausted bool) {
	if extent > g.prev {
		g.streak = 0
	} else {
		g.streak++
	}
	g.prev = extent
	return g.streak >= g.threshold
}
