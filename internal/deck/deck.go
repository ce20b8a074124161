// Package deck generates the fixed, ordered set of selectable estimation
// values. Every room shares the same deck; it is a pure function of its
// bounds and is never persisted.
package deck

// Generate returns the card values from start up to limit, inclusive. The
// step is 0.5 below 5 and 1 from 5 onward, so the default deck reads
// 0.5, 1, 1.5, ..., 4.5, 5, 6, 7, ..., 26. A start at or above 5 steps by
// 1 from the first element.
func Generate(start, limit float64) []float64 {
	var cards []float64
	step := 0.5

	for v := start; v <= limit; v += step {
		if v >= 5 {
			step = 1
		}
		cards = append(cards, v)
	}

	return cards
}
