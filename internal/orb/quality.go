package orb

import (
	"github.com/mohamedkhairy/session-range-stats/internal/session"
)

// repeatedBars counts the bars of a day that repeat the previous bar's OHLC.
// Long runs of identical bars mark a stale feed.
func repeatedBars(day session.Day) int {
	count := 0
	var prev *session.TaggedBar
	for _, window := range [][]session.TaggedBar{day.OpeningRange, day.Session} {
		for i := range window {
			b := &window[i]
			if prev != nil && b.SameOHLC(prev.Bar) {
				count++
			}
			prev = b
		}
	}
	return count
}
