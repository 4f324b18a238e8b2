package pool

// Entry is one draftable asset in a league's player pool: either a real
// player or a team-defense slot.
type Entry struct {
	ID            string
	LeagueID      string
	PlayerID      int64
	TeamID        int64
	IsTeamDefense bool
	Name          string
	Position      string
	Country       string
	DraftedBy     string
	// Scores holds accumulated points per stage, e.g. {"group": 11, "knockout": 5}.
	Scores map[string]int
}

// AssetKey identifies the scoring subject of an entry.
func (e Entry) AssetKey() int64 {
	if e.IsTeamDefense {
		return e.TeamID
	}
	return e.PlayerID
}
