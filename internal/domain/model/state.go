package model

// State is the user-facing classification of a day's momentum score.
type State string

// Momentum states. The literals are case-sensitive and stored verbatim.
const (
	StateRising    State = "Rising"
	StateSteady    State = "Steady"
	StateNeedsCare State = "NeedsCare"
)

// Valid reports whether s is one of the three known states.
func (s State) Valid() bool {
	switch s {
	case StateRising, StateSteady, StateNeedsCare:
		return true
	}
	return false
}

// Rank orders states for hysteresis comparisons: higher is better.
func (s State) Rank() int {
	switch s {
	case StateRising:
		return 2
	case StateSteady:
		return 1
	default:
		return 0
	}
}

func (s State) String() string { return string(s) }
