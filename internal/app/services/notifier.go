package services

import "time"

// ResultsEventKind names what changed the tallies.
type ResultsEventKind string

const (
	EventBallotCast        ResultsEventKind = "ballot_cast"
	EventBallotInvalidated ResultsEventKind = "ballot_invalidated"
	EventRecount           ResultsEventKind = "recount"
	EventReset             ResultsEventKind = "reset"
	EventVotingState       ResultsEventKind = "voting_state"
)

// ResultsEvent is published after a committed change that affects results.
type ResultsEvent struct {
	Kind      ResultsEventKind `json:"kind"`
	SessionID string           `json:"sessionId,omitempty"`
	At        time.Time        `json:"at"`
}

// ResultsNotifier receives result change events. Implementations must not block.
type ResultsNotifier interface {
	ResultsChanged(event ResultsEvent)
}

type nopNotifier struct{}

func (nopNotifier) ResultsChanged(ResultsEvent) {}

func notifierOrNop(n ResultsNotifier) ResultsNotifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}
