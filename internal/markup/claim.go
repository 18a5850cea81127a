package markup

import "sort"

type interval struct {
	start int
	end   int
}

// claimSet records the byte ranges already consumed by a higher priority
// lexer rule. Ranges are half-open, sorted and disjoint.
type claimSet struct {
	ranges []interval
}

func (c *claimSet) search(start int) int {
	return sort.Search(len(c.ranges), func(i int) bool {
		return c.ranges[i].end > start
	})
}

// overlaps reports whether any byte of [start, end) is already claimed.
func (c *claimSet) overlaps(start, end int) bool {
	i := c.search(start)
	return i < len(c.ranges) && c.ranges[i].start < end
}

// claim marks [start, end) as consumed. It returns false and leaves the
// set untouched if the range is empty or overlaps an existing claim.
func (c *claimSet) claim(start, end int) bool {
	if start >= end || c.overlaps(start, end) {
		return false
	}
	i := c.search(start)
	c.ranges = append(c.ranges, interval{})
	copy(c.ranges[i+1:], c.ranges[i:])
	c.ranges[i] = interval{start: start, end: end}
	return true
}

// gaps returns the unclaimed ranges of [0, n) in order.
func (c *claimSet) gaps(n int) []interval {
	var out []interval
	pos := 0
	for _, r := range c.ranges {
		if r.start > pos {
			out = append(out, interval{start: pos, end: r.start})
		}
		pos = r.end
	}
	if pos < n {
		out = append(out, interval{start: pos, end: n})
	}
	return out
}
