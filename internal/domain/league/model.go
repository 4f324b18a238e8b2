package league

import "time"

const (
	DraftStatePending  = "pending"
	DraftStateActive   = "active"
	DraftStateComplete = "complete"
)

// League is one draft league bound to a real competition season. The
// scoring core reads these rows; draft and membership flows own them.
type League struct {
	ID            string
	Name          string
	AdminToken    string
	CompetitionID int64
	Season        int
	CurrentStage  string
	DraftState    string
	CreatedAt     time.Time
}
