package usecase

import (
	"fmt"
	"sort"
	"strings"

	"github.com/draftball/draft-league/internal/domain/matchstat"
)

const (
	pointsPKGoal     = 2
	pointsPKMiss     = -1
	pointsGoal       = 3
	pointsAssist     = 1
	pointsRedCard    = -2
	pointsWin        = 1
	pointsCleanSheet = 2
	pointsTeamRed    = -1

	reasonPKGoal     = "PK Goal"
	reasonPKMiss     = "PK Miss"
	reasonGoal       = "Goal"
	reasonAssist     = "Assist"
	reasonRedCard    = "Red Card"
	reasonWin        = "Win"
	reasonCleanSheet = "Clean Sheet"
)

// FixtureResult is the settled outcome fed to the scorer. Goal tallies
// cover regulation and extra time; a decided shootout appears only in
// the penalty fields.
type FixtureResult struct {
	FixtureID     int64
	HomeTeamID    int64
	AwayTeamID    int64
	HomeTeamName  string
	AwayTeamName  string
	HomeGoals     int
	AwayGoals     int
	HomePenalties *int
	AwayPenalties *int
}

// PlayerPoints is the scorer output for one player.
type PlayerPoints struct {
	PlayerID   int64
	PlayerName string
	TeamID     int64
	Points     int
	Breakdown  []matchstat.Line
}

// TeamPoints is the scorer output for one team-defense asset.
type TeamPoints struct {
	TeamID    int64
	TeamName  string
	Points    int
	Breakdown []matchstat.Line
}

// ComputeFixturePoints derives per-player and per-team fantasy points
// from a fixture's event feed and settled result. It is pure and
// deterministic: identical inputs yield identical rows in identical
// order, so a settle pass can be re-run safely at any time.
//
// Player rules: penalty goal +2, missed penalty -1, any other goal +3,
// assist +1, red card -2. Team rules: win +1 (shootout winners
// included), clean sheet +2 judged on the regulation+extra-time tally
// only, and -1 per red card aggregated into a single line.
func ComputeFixturePoints(events []ExternalMatchEvent, result FixtureResult) ([]PlayerPoints, []TeamPoints) {
	players := make(map[int64]*PlayerPoints)
	redsByTeam := make(map[int64]int)

	addLine := func(ev ExternalMatchEvent, playerID int64, name string, points int, reason string) {
		if playerID <= 0 {
			return
		}
		row, ok := players[playerID]
		if !ok {
			row = &PlayerPoints{PlayerID: playerID, PlayerName: name, TeamID: ev.TeamID}
			players[playerID] = row
		}
		if row.PlayerName == "" {
			row.PlayerName = name
		}
		row.Points += points
		row.Breakdown = append(row.Breakdown, matchstat.Line{Points: points, Reason: reason})
	}

	for _, ev := range events {
		if isShootoutEvent(ev) {
			continue
		}

		switch {
		case strings.EqualFold(ev.Type, "Goal"):
			detail := strings.ToLower(ev.Detail)
			switch {
			case strings.Contains(detail, "missed penalty"):
				addLine(ev, ev.PlayerID, ev.PlayerName, pointsPKMiss, reasonPKMiss)
			case strings.Contains(detail, "penalty"):
				addLine(ev, ev.PlayerID, ev.PlayerName, pointsPKGoal, reasonPKGoal)
				if ev.AssistID > 0 {
					addLine(ev, ev.AssistID, ev.AssistName, pointsAssist, reasonAssist)
				}
			default:
				addLine(ev, ev.PlayerID, ev.PlayerName, pointsGoal, reasonGoal)
				if ev.AssistID > 0 {
					addLine(ev, ev.AssistID, ev.AssistName, pointsAssist, reasonAssist)
				}
			}
		case strings.EqualFold(ev.Type, "Card") && strings.Contains(strings.ToLower(ev.Detail), "red"):
			addLine(ev, ev.PlayerID, ev.PlayerName, pointsRedCard, reasonRedCard)
			if ev.TeamID > 0 {
				redsByTeam[ev.TeamID]++
			}
		}
	}

	playerRows := make([]PlayerPoints, 0, len(players))
	for _, row := range players {
		playerRows = append(playerRows, *row)
	}
	sort.SliceStable(playerRows, func(i, j int) bool {
		return playerRows[i].PlayerID < playerRows[j].PlayerID
	})

	teamRows := []TeamPoints{
		scoreTeamDefense(result.HomeTeamID, result.HomeTeamName, result.AwayGoals, homeWins(result), redsByTeam[result.HomeTeamID]),
		scoreTeamDefense(result.AwayTeamID, result.AwayTeamName, result.HomeGoals, awayWins(result), redsByTeam[result.AwayTeamID]),
	}
	sort.SliceStable(teamRows, func(i, j int) bool {
		return teamRows[i].TeamID < teamRows[j].TeamID
	})

	return playerRows, teamRows
}

func scoreTeamDefense(teamID int64, teamName string, conceded int, won bool, reds int) TeamPoints {
	row := TeamPoints{TeamID: teamID, TeamName: teamName}
	if won {
		row.Points += pointsWin
		row.Breakdown = append(row.Breakdown, matchstat.Line{Points: pointsWin, Reason: reasonWin})
	}
	if conceded == 0 {
		row.Points += pointsCleanSheet
		row.Breakdown = append(row.Breakdown, matchstat.Line{Points: pointsCleanSheet, Reason: reasonCleanSheet})
	}
	if reds > 0 {
		points := pointsTeamRed * reds
		row.Points += points
		row.Breakdown = append(row.Breakdown, matchstat.Line{Points: points, Reason: redCardReason(reds)})
	}
	return row
}

func redCardReason(count int) string {
	if count == 1 {
		return "1 Red Card"
	}
	return fmt.Sprintf("%d Red Cards", count)
}

func homeWins(result FixtureResult) bool {
	if result.HomeGoals != result.AwayGoals {
		return result.HomeGoals > result.AwayGoals
	}
	if result.HomePenalties != nil && result.AwayPenalties != nil {
		return *result.HomePenalties > *result.AwayPenalties
	}
	return false
}

func awayWins(result FixtureResult) bool {
	if result.HomeGoals != result.AwayGoals {
		return result.AwayGoals > result.HomeGoals
	}
	if result.HomePenalties != nil && result.AwayPenalties != nil {
		return *result.AwayPenalties > *result.HomePenalties
	}
	return false
}

// Shootout attempts arrive as goal events flagged by the provider's
// comment field; they must never reach the scorer.
func isShootoutEvent(ev ExternalMatchEvent) bool {
	return strings.Contains(strings.ToLower(ev.Comments), "penalty shootout")
}
