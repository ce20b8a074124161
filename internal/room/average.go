package room

// Average derives the reveal-time aggregate: the mean over every seat's card
// value, counting seats that never selected as 0. The second result is false
// when the room has no players, the "no data" case. Callers should check
// AverageEligible first; computing on a hidden room is their mistake, not
// validated here.
func Average(r Room) (float64, bool) {
	if len(r.Players) == 0 {
		return 0, false
	}

	var sum float64
	for _, p := range r.Players {
		sum += p.Card
	}
	return sum / float64(len(r.Players)), true
}
