package game

// Phase is the table's current stage. Exactly one is active at a time.
type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhaseBetting  Phase = "betting"
	PhasePlaying  Phase = "playing"
	PhaseDealer   Phase = "dealer"
	PhaseSettling Phase = "settling"
	PhaseRebuy    Phase = "rebuy"
	PhaseStopping Phase = "stopping"
	PhaseStopped  Phase = "stopped"
)

func (p Phase) String() string {
	return string(p)
}

// Closed reports whether the table no longer accepts players.
func (p Phase) Closed() bool {
	return p == PhaseStopping || p == PhaseStopped
}
