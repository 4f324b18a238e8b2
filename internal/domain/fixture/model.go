package fixture

import (
	"strings"
	"time"
)

// Provider short status codes for a fixture lifecycle.
const (
	StatusNotStarted = "NS"
	StatusFirstHalf  = "1H"
	StatusHalftime   = "HT"
	StatusSecondHalf = "2H"
	StatusExtraTime  = "ET"
	StatusPenalties  = "P"
	StatusFullTime   = "FT"
	StatusAfterExtra = "AET"
	StatusAfterPens  = "PEN"
	StatusPostponed  = "PP"
	StatusCancelled  = "CANC"
	StatusAbandoned  = "ABD"
)

// Fixture is one seeded match tracked by the scoring core. The poller is
// the only writer of Status, Elapsed, the score fields and Finalized.
type Fixture struct {
	ID            int64
	LeagueID      string
	CompetitionID int64
	Season        int
	Stage         string
	HomeTeamID    int64
	AwayTeamID    int64
	HomeTeamName  string
	AwayTeamName  string
	KickoffAt     time.Time
	Status        string
	Elapsed       int
	// HomeGoals/AwayGoals carry the regulation plus extra-time tally;
	// shootout goals live only in the penalty fields.
	HomeGoals     int
	AwayGoals     int
	HomePenalties *int
	AwayPenalties *int
	Finalized     bool
}

func NormalizeStatus(value string) string {
	status := strings.ToUpper(strings.TrimSpace(value))
	if status == "" {
		return StatusNotStarted
	}
	return status
}

func IsFinalStatus(status string) bool {
	switch NormalizeStatus(status) {
	case StatusFullTime, StatusAfterExtra, StatusAfterPens:
		return true
	default:
		return false
	}
}

func IsLiveStatus(status string) bool {
	switch NormalizeStatus(status) {
	case StatusFirstHalf, StatusHalftime, StatusSecondHalf, StatusExtraTime, StatusPenalties, "BT", "LIVE":
		return true
	default:
		return false
	}
}

// ShouldSettle reports whether a fixture in the given state is ready for
// a stats pass. Early first-half and early second-half readings are held
// back until the provider's event feed has caught up (elapsed 1 and 47
// respectively); halftime and pre-kickoff states are never settled.
func ShouldSettle(status string, elapsed int) bool {
	switch NormalizeStatus(status) {
	case StatusFirstHalf:
		return elapsed >= 1
	case StatusSecondHalf:
		return elapsed >= 47
	case StatusExtraTime, StatusPenalties:
		return true
	case StatusFullTime, StatusAfterExtra, StatusAfterPens:
		return true
	default:
		return false
	}
}
