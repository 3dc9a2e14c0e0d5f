package dataset

import "github.com/Prashanth-Madi/Terrascan-ML-Model/internal/aoi"

type State int

const (
	StateNotStarted State = iota
	StateInProgress
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateInProgress:
		return "in_progress"
	case StateCompleted:
		return "completed"
	}
	return "unknown"
}

// StateOf reads the persisted state of a site. InProgress is never
// persisted, so an interrupted site reads as NotStarted.
func StateOf(record *aoi.Record) State {
	if record.Downloaded() {
		return StateCompleted
	}
	return StateNotStarted
}
