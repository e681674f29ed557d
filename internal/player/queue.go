package player

import "github.com/tunevaultapp/tunevault-client/internal/domain"

// noIndex means navigation has nowhere to go: end of a non-repeating queue.
const noIndex = -1

// nextIndex computes where forward navigation lands. randInt must return a
// uniform value in [0, n).
//
//	repeat one        -> the current index, unchanged
//	shuffle           -> uniform random index excluding the current one,
//	                     unless the queue has a single track; with one track
//	                     only repeat-all keeps playing
//	sequential        -> current+1, wrapping to 0 only under repeat-all
func nextIndex(q *domain.QueueState, randInt func(n int) int) int {
	n := q.Len()
	if n == 0 {
		return noIndex
	}
	if q.Repeat == domain.RepeatOne {
		return q.CurrentIndex
	}

	if q.Shuffle {
		if n == 1 {
			if q.Repeat == domain.RepeatAll {
				return q.CurrentIndex
			}
			return noIndex
		}
		// Draw from n-1 slots, then shift past the current index so it is
		// never picked while every other index stays equally likely.
		idx := randInt(n - 1)
		if idx >= q.CurrentIndex {
			idx++
		}
		return idx
	}

	if q.CurrentIndex+1 < n {
		return q.CurrentIndex + 1
	}
	if q.Repeat == domain.RepeatAll {
		return 0
	}
	return noIndex
}

// previousIndex mirrors nextIndex without the shuffle branch: current-1,
// wrapping to the last track only under repeat-all.
func previousIndex(q *domain.QueueState) int {
	n := q.Len()
	if n == 0 {
		return noIndex
	}
	if q.Repeat == domain.RepeatOne {
		return q.CurrentIndex
	}
	if q.CurrentIndex > 0 {
		return q.CurrentIndex - 1
	}
	if q.Repeat == domain.RepeatAll {
		return n - 1
	}
	return noIndex
}
