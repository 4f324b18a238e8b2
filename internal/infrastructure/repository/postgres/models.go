package postgres

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/bytedance/sonic"

	"github.com/draftball/draft-league/internal/domain/fixture"
	"github.com/draftball/draft-league/internal/domain/league"
	"github.com/draftball/draft-league/internal/domain/matchstat"
	"github.com/draftball/draft-league/internal/domain/pool"
)

type leagueTableModel struct {
	ID            string    `db:"id"`
	Name          string    `db:"name"`
	AdminToken    string    `db:"admin_token"`
	CompetitionID int64     `db:"competition_id"`
	Season        int       `db:"season"`
	CurrentStage  string    `db:"current_stage"`
	DraftState    string    `db:"draft_state"`
	CreatedAt     time.Time `db:"created_at"`
}

func (m leagueTableModel) toDomain() league.League {
	return league.League{
		ID:            m.ID,
		Name:          m.Name,
		AdminToken:    m.AdminToken,
		CompetitionID: m.CompetitionID,
		Season:        m.Season,
		CurrentStage:  m.CurrentStage,
		DraftState:    m.DraftState,
		CreatedAt:     m.CreatedAt,
	}
}

type fixtureTableModel struct {
	ID            int64         `db:"id"`
	LeagueID      string        `db:"league_id"`
	CompetitionID int64         `db:"competition_id"`
	Season        int           `db:"season"`
	Stage         string        `db:"stage"`
	HomeTeamID    int64         `db:"home_team_id"`
	AwayTeamID    int64         `db:"away_team_id"`
	HomeTeamName  string        `db:"home_team_name"`
	AwayTeamName  string        `db:"away_team_name"`
	KickoffAt     time.Time     `db:"kickoff_at"`
	Status        string        `db:"status"`
	Elapsed       int           `db:"elapsed"`
	HomeGoals     int           `db:"home_goals"`
	AwayGoals     int           `db:"away_goals"`
	HomePenalties sql.NullInt64 `db:"home_penalties"`
	AwayPenalties sql.NullInt64 `db:"away_penalties"`
	Finalized     bool          `db:"finalized"`
}

func (m fixtureTableModel) toDomain() fixture.Fixture {
	return fixture.Fixture{
		ID:            m.ID,
		LeagueID:      m.LeagueID,
		CompetitionID: m.CompetitionID,
		Season:        m.Season,
		Stage:         m.Stage,
		HomeTeamID:    m.HomeTeamID,
		AwayTeamID:    m.AwayTeamID,
		HomeTeamName:  m.HomeTeamName,
		AwayTeamName:  m.AwayTeamName,
		KickoffAt:     m.KickoffAt,
		Status:        m.Status,
		Elapsed:       m.Elapsed,
		HomeGoals:     m.HomeGoals,
		AwayGoals:     m.AwayGoals,
		HomePenalties: nullInt64ToIntPtr(m.HomePenalties),
		AwayPenalties: nullInt64ToIntPtr(m.AwayPenalties),
		Finalized:     m.Finalized,
	}
}

type matchStatTableModel struct {
	FixtureID  int64  `db:"fixture_id"`
	LeagueID   string `db:"league_id"`
	Stage      string `db:"stage"`
	PlayerID   int64  `db:"player_id"`
	PlayerName string `db:"player_name"`
	TeamID     int64  `db:"team_id"`
	Points     int    `db:"points"`
	Breakdown  []byte `db:"breakdown"`
}

func (m matchStatTableModel) toDomain() (matchstat.MatchStat, error) {
	lines, err := decodeBreakdown(m.Breakdown)
	if err != nil {
		return matchstat.MatchStat{}, fmt.Errorf("decode breakdown fixture=%d player=%d: %w", m.FixtureID, m.PlayerID, err)
	}
	return matchstat.MatchStat{
		FixtureID:  m.FixtureID,
		LeagueID:   m.LeagueID,
		Stage:      m.Stage,
		PlayerID:   m.PlayerID,
		PlayerName: m.PlayerName,
		TeamID:     m.TeamID,
		Points:     m.Points,
		Breakdown:  lines,
	}, nil
}

type teamMatchStatTableModel struct {
	FixtureID int64  `db:"fixture_id"`
	LeagueID  string `db:"league_id"`
	Stage     string `db:"stage"`
	TeamID    int64  `db:"team_id"`
	TeamName  string `db:"team_name"`
	Points    int    `db:"points"`
	Breakdown []byte `db:"breakdown"`
}

func (m teamMatchStatTableModel) toDomain() (matchstat.TeamMatchStat, error) {
	lines, err := decodeBreakdown(m.Breakdown)
	if err != nil {
		return matchstat.TeamMatchStat{}, fmt.Errorf("decode breakdown fixture=%d team=%d: %w", m.FixtureID, m.TeamID, err)
	}
	return matchstat.TeamMatchStat{
		FixtureID: m.FixtureID,
		LeagueID:  m.LeagueID,
		Stage:     m.Stage,
		TeamID:    m.TeamID,
		TeamName:  m.TeamName,
		Points:    m.Points,
		Breakdown: lines,
	}, nil
}

type poolEntryTableModel struct {
	ID            string `db:"id"`
	LeagueID      string `db:"league_id"`
	PlayerID      int64  `db:"player_id"`
	TeamID        int64  `db:"team_id"`
	IsTeamDefense bool   `db:"is_team_defense"`
	Name          string `db:"name"`
	Position      string `db:"position"`
	Country       string `db:"country"`
	DraftedBy     string `db:"drafted_by"`
	Scores        []byte `db:"scores"`
}

func (m poolEntryTableModel) toDomain() (pool.Entry, error) {
	entry := pool.Entry{
		ID:            m.ID,
		LeagueID:      m.LeagueID,
		PlayerID:      m.PlayerID,
		TeamID:        m.TeamID,
		IsTeamDefense: m.IsTeamDefense,
		Name:          m.Name,
		Position:      m.Position,
		Country:       m.Country,
		DraftedBy:     m.DraftedBy,
	}
	if len(m.Scores) > 0 {
		if err := sonic.Unmarshal(m.Scores, &entry.Scores); err != nil {
			return pool.Entry{}, fmt.Errorf("decode scores for pool entry %s: %w", m.ID, err)
		}
	}
	return entry, nil
}

func decodeBreakdown(raw []byte) ([]matchstat.Line, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var lines []matchstat.Line
	if err := sonic.Unmarshal(raw, &lines); err != nil {
		return nil, err
	}
	return lines, nil
}

func encodeBreakdown(lines []matchstat.Line) ([]byte, error) {
	if len(lines) == 0 {
		return []byte("[]"), nil
	}
	return sonic.Marshal(lines)
}

func nullInt64ToIntPtr(value sql.NullInt64) *int {
	if !value.Valid {
		return nil
	}
	out := int(value.Int64)
	return &out
}

func intPtrToNullInt64(value *int) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*value), Valid: true}
}
