package markup

// Export internals for testing
type TestClaimSet = claimSet

func (c *claimSet) TestClaim(start, end int) bool { return c.claim(start, end) }

func (c *claimSet) TestOverlaps(start, end int) bool { return c.overlaps(start, end) }

func (c *claimSet) TestGaps(n int) [][2]int {
	var out [][2]int
	for _, g := range c.gaps(n) {
		out = append(out, [2]int{g.start, g.end})
	}
	return out
}

// TokenRanges returns the [start, end) of every token for input.
func TokenRanges(input string, inline bool) [][2]int {
	var out [][2]int
	for _, tok := range tokenize(input, inline) {
		out = append(out, [2]int{tok.Start, tok.End})
	}
	return out
}
