package game

import "math/rand"

// Selector picks the next mole holder among the current participants.
// The random source is injected so tests can seed it.
type Selector struct {
	rng *rand.Rand
}

// NewSelector creates a selector backed by the given random source
func NewSelector(rng *rand.Rand) *Selector {
	return &Selector{rng: rng}
}

// Pick selects a participant uniformly at random. When more than one
// participant is present the previous holder is never returned again;
// with a single participant it necessarily is.
func (s *Selector) Pick(participants []string, previous string) string {
	if len(participants) == 0 {
		return ""
	}
	for {
		next := participants[s.rng.Intn(len(participants))]
		if next != previous || len(participants) == 1 {
			return next
		}
	}
}
