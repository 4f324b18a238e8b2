package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"

	"github.com/draftball/draft-league/internal/domain/fixture"
	"github.com/draftball/draft-league/internal/domain/pool"
	"github.com/draftball/draft-league/internal/platform/logging"
	"github.com/draftball/draft-league/internal/usecase"
)

type Handler struct {
	leagueService *usecase.LeagueService
	rosterService *usecase.RosterService
	pollService   *usecase.PollService
	logger        *logging.Logger
	validator     *validator.Validate
}

func NewHandler(
	leagueService *usecase.LeagueService,
	rosterService *usecase.RosterService,
	pollService *usecase.PollService,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		leagueService: leagueService,
		rosterService: rosterService,
		pollService:   pollService,
		logger:        logger,
		validator:     validator.New(),
	}
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeSuccess(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}

type poolEntryDTO struct {
	ID            string         `json:"id"`
	PlayerID      int64          `json:"playerId,omitempty"`
	TeamID        int64          `json:"teamId"`
	IsTeamDefense bool           `json:"isTeamDefense"`
	Name          string         `json:"name"`
	Position      string         `json:"position,omitempty"`
	Country       string         `json:"country,omitempty"`
	DraftedBy     string         `json:"draftedBy,omitempty"`
	TotalPoints   int            `json:"totalPoints"`
	Scores        map[string]int `json:"scores,omitempty"`
}

type leaguePoolDTO struct {
	LeagueID     string         `json:"leagueId"`
	LeagueName   string         `json:"leagueName"`
	CurrentStage string         `json:"currentStage,omitempty"`
	Entries      []poolEntryDTO `json:"entries"`
}

type fixtureDTO struct {
	ID            int64  `json:"id"`
	Stage         string `json:"stage,omitempty"`
	HomeTeamID    int64  `json:"homeTeamId"`
	AwayTeamID    int64  `json:"awayTeamId"`
	HomeTeam      string `json:"homeTeam"`
	AwayTeam      string `json:"awayTeam"`
	KickoffAt     string `json:"kickoffAt"`
	Status        string `json:"status"`
	Elapsed       int    `json:"elapsed,omitempty"`
	HomeGoals     int    `json:"homeGoals"`
	AwayGoals     int    `json:"awayGoals"`
	HomePenalties *int   `json:"homePenalties,omitempty"`
	AwayPenalties *int   `json:"awayPenalties,omitempty"`
	Finalized     bool   `json:"finalized"`
}

func (h *Handler) GetLeaguePool(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetLeaguePool")
	defer span.End()

	leagueID := strings.TrimSpace(r.PathValue("leagueID"))
	view, err := h.leagueService.GetPool(ctx, leagueID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	entries := make([]poolEntryDTO, 0, len(view.Entries))
	for _, entry := range view.Entries {
		entries = append(entries, poolEntryToDTO(entry))
	}

	writeSuccess(ctx, w, http.StatusOK, leaguePoolDTO{
		LeagueID:     view.League.ID,
		LeagueName:   view.League.Name,
		CurrentStage: view.League.CurrentStage,
		Entries:      entries,
	})
}

func (h *Handler) ListLeagueFixtures(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListLeagueFixtures")
	defer span.End()

	leagueID := strings.TrimSpace(r.PathValue("leagueID"))
	fixtures, err := h.leagueService.ListFixtures(ctx, leagueID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	out := make([]fixtureDTO, 0, len(fixtures))
	for _, item := range fixtures {
		out = append(out, fixtureToDTO(item))
	}
	writeSuccess(ctx, w, http.StatusOK, out)
}

// RunPollJob triggers one live-scoring pass outside the scheduled loop.
// An overlapping call while a tick is running comes back as a conflict.
func (h *Handler) RunPollJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunPollJob")
	defer span.End()

	if h.pollService == nil {
		writeError(ctx, w, fmt.Errorf("%w: live polling is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	result, err := h.pollService.Tick(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "run poll job failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

type rosterSyncRequest struct {
	LeagueID string `json:"league_id" validate:"required"`
}

func (h *Handler) RunRosterSyncJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunRosterSyncJob")
	defer span.End()

	if h.rosterService == nil {
		writeError(ctx, w, fmt.Errorf("%w: roster sync is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	var req rosterSyncRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.rosterService.SyncLeaguePool(ctx, req.LeagueID)
	if err != nil {
		h.logger.WarnContext(ctx, "run roster sync job failed", "league_id", req.LeagueID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func decodeJSONBody(r *http.Request, out any) error {
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

func poolEntryToDTO(entry pool.Entry) poolEntryDTO {
	total := 0
	for _, points := range entry.Scores {
		total += points
	}
	return poolEntryDTO{
		ID:            entry.ID,
		PlayerID:      entry.PlayerID,
		TeamID:        entry.TeamID,
		IsTeamDefense: entry.IsTeamDefense,
		Name:          entry.Name,
		Position:      entry.Position,
		Country:       entry.Country,
		DraftedBy:     entry.DraftedBy,
		TotalPoints:   total,
		Scores:        entry.Scores,
	}
}

func fixtureToDTO(item fixture.Fixture) fixtureDTO {
	return fixtureDTO{
		ID:            item.ID,
		Stage:         item.Stage,
		HomeTeamID:    item.HomeTeamID,
		AwayTeamID:    item.AwayTeamID,
		HomeTeam:      item.HomeTeamName,
		AwayTeam:      item.AwayTeamName,
		KickoffAt:     item.KickoffAt.UTC().Format(time.RFC3339),
		Status:        fixture.NormalizeStatus(item.Status),
		Elapsed:       item.Elapsed,
		HomeGoals:     item.HomeGoals,
		AwayGoals:     item.AwayGoals,
		HomePenalties: item.HomePenalties,
		AwayPenalties: item.AwayPenalties,
		Finalized:     item.Finalized,
	}
}
