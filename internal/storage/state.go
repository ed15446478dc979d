package storage

// State tracks one save attempt through the coordinator.
// Transitions: Idle → Writing → Committed, Idle → Writing → FallenBack →
// Committed, or Idle → Writing → (FallenBack →) Failed.
type State int

const (
	Idle State = iota
	Writing
	FallenBack
	Committed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Writing:
		return "writing"
	case FallenBack:
		return "fallen_back"
	case Committed:
		return "committed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}
