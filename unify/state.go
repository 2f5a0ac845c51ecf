package unify

// State is a step of a kind's collective round.
type State uint8

const (
	// StateCollectLocal exports this rank's self-unified records.
	StateCollectLocal State = iota
	// StateBarrier waits until every rank finished the previous kinds.
	StateBarrier
	// StateMergeGlobal gathers batches at rank 0, which interns them in rank order.
	StateMergeGlobal
	// StateBroadcast returns each rank its self -> global mapping.
	StateBroadcast
	// StateDone marks a finished round.
	StateDone
)

func (s State) String() string {
	switch s {
	case StateCollectLocal:
		return "CollectLocal"
	case StateBarrier:
		return "Barrier"
	case StateMergeGlobal:
		return "MergeGlobal"
	case StateBroadcast:
		return "Broadcast"
	case StateDone:
		return "Done"
	default:
		return "Unknown"
	}
}
