package dto

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yigit/univote/internal/app/models"
)

// CastBallotRequest maps office keys to the chosen candidate ids. Every
// office is optional; an empty map is a blank ballot.
type CastBallotRequest struct {
	Selections map[string]int64 `json:"selections" example:"president:3"`
}

// ToSelections resolves office keys, accepting labels and legacy keys. Two
// keys naming the same office are rejected.
func (r CastBallotRequest) ToSelections() (models.Selections, error) {
	sel := make(models.Selections, len(r.Selections))
	for key, id := range r.Selections {
		office, err := models.ParseOffice(key)
		if err != nil {
			return nil, err
		}
		if _, dup := sel[office]; dup {
			return nil, fmt.Errorf("office %s selected more than once", office)
		}
		sel[office] = id
	}
	return sel, nil
}

// BallotReceipt is returned to the voter after a successful cast
type BallotReceipt struct {
	BallotID   uuid.UUID         `json:"ballotId"`
	SessionID  string            `json:"sessionId"`
	CastAt     time.Time         `json:"castAt"`
	Selections models.Selections `json:"selections"`
}

// NewBallotReceipt builds a receipt from a stored ballot
func NewBallotReceipt(b *models.Ballot) BallotReceipt {
	return BallotReceipt{BallotID: b.ID, SessionID: b.SessionID, CastAt: b.CastAt, Selections: b.Selections}
}

// InvalidateBallotRequest excludes a ballot from every count
type InvalidateBallotRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// ResetRequest carries the confirmation phrase for a full reset
type ResetRequest struct {
	Confirmation string `json:"confirmation" binding:"required"`
}

// SessionOverrideRequest pins or clears the current session id
type SessionOverrideRequest struct {
	SessionID string `json:"sessionId" binding:"omitempty,max=32"`
}

// CountResponse reports how many rows an administrative operation touched
type CountResponse struct {
	Count int64 `json:"count"`
}
