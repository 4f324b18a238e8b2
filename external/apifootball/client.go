// Package apifootball is the gateway to the API-Football v3 REST API. It
// serializes all outbound traffic, enforces a minimum gap between
// requests, shields the upstream behind a circuit breaker, and caches the
// slow-moving squad rosters.
package apifootball

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"golang.org/x/time/rate"

	"github.com/draftball/draft-league/internal/domain/rawdata"
	"github.com/draftball/draft-league/internal/platform/cache"
	"github.com/draftball/draft-league/internal/platform/logging"
	"github.com/draftball/draft-league/internal/platform/resilience"
	"github.com/draftball/draft-league/internal/usecase"
)

const (
	DefaultBaseURL = "https://v3.football.api-sports.io"

	endpointFixtures          = "/fixtures"
	endpointFixtureEvents     = "/fixtures/events"
	endpointFixtureStatistics = "/fixtures/statistics"
	endpointSquads            = "/players/squads"

	headerAPIKey = "x-apisports-key"

	sourceName = "api-football"

	defaultMinInterval   = 6 * time.Second
	defaultTimeout       = 10 * time.Second
	defaultSquadCacheTTL = 12 * time.Hour
	defaultRetryAfter    = 60 * time.Second

	maxResponseBytes = 8 << 20
)

// errTransient marks failures that say something about upstream health.
// Only marked failures count against the circuit breaker.
var errTransient = crerr.New("transient upstream failure")

type ClientConfig struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
	// MinInterval is the minimum gap between any two outbound requests.
	// The slot is consumed before dispatch, so a failed request still
	// delays the next one.
	MinInterval    time.Duration
	SquadCacheTTL  time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
	Cache          *cache.Store
	Now            func() time.Time
}

// Client talks to API-Football. All requests flow through one dispatch
// lock, so callers observe strict FIFO ordering and the pacing interval
// holds across goroutines.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logging.Logger

	dispatchMu sync.Mutex
	pacer      *rate.Limiter
	now        func() time.Time

	breaker        *resilience.CircuitBreaker
	circuitEnabled bool

	cache    *cache.Store
	squadTTL time.Duration
}

var _ usecase.LiveDataProvider = (*Client)(nil)

func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	minInterval := cfg.MinInterval
	if minInterval <= 0 {
		minInterval = defaultMinInterval
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	squadTTL := cfg.SquadCacheTTL
	if squadTTL <= 0 {
		squadTTL = defaultSquadCacheTTL
	}

	c := &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		logger:     logger,
		pacer:      rate.NewLimiter(rate.Every(minInterval), 1),
		now:        now,
		cache:      cfg.Cache,
		squadTTL:   squadTTL,
	}

	circuitCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)
	if circuitCfg.Enabled {
		c.breaker = resilience.NewCircuitBreaker(
			circuitCfg.FailureThreshold,
			circuitCfg.OpenTimeout,
			circuitCfg.HalfOpenMaxReq,
		)
		c.circuitEnabled = true
	}

	return c
}

// FetchLiveFixtures returns the in-play fixtures of one competition
// season, plus the raw payload for archiving.
func (c *Client) FetchLiveFixtures(ctx context.Context, competitionID int64, season int) ([]usecase.ExternalLiveFixture, rawdata.Payload, error) {
	params := map[string]string{
		"live":   "all",
		"league": strconv.FormatInt(competitionID, 10),
		"season": strconv.Itoa(season),
	}

	env, raw, err := c.call(ctx, endpointFixtures, params)
	if err != nil {
		return nil, rawdata.Payload{}, err
	}

	items, err := decodeItems[wireLiveFixture](env, endpointFixtures, params)
	if err != nil {
		return nil, rawdata.Payload{}, err
	}

	out := make([]usecase.ExternalLiveFixture, 0, len(items))
	for _, item := range items {
		fx := usecase.ExternalLiveFixture{
			FixtureID:     item.Fixture.ID,
			CompetitionID: item.League.ID,
			Season:        item.League.Season,
			Status:        item.Fixture.Status.Short,
			KickoffAt:     item.Fixture.Date,
			HomeTeamID:    item.Teams.Home.ID,
			AwayTeamID:    item.Teams.Away.ID,
			HomeTeamName:  item.Teams.Home.Name,
			AwayTeamName:  item.Teams.Away.Name,
			HomePenalties: cloneInt(item.Score.Penalty.Home),
			AwayPenalties: cloneInt(item.Score.Penalty.Away),
		}
		if item.Fixture.Status.Elapsed != nil {
			fx.Elapsed = *item.Fixture.Status.Elapsed
		}
		if item.Goals.Home != nil {
			fx.HomeGoals = *item.Goals.Home
		}
		if item.Goals.Away != nil {
			fx.AwayGoals = *item.Goals.Away
		}
		out = append(out, fx)
	}

	return out, c.buildPayload(endpointFixtures, params, raw, 0), nil
}

// FetchFixtureEvents returns a fixture's timeline events, including the
// shootout attempts the scorer later filters out.
func (c *Client) FetchFixtureEvents(ctx context.Context, fixtureID int64) ([]usecase.ExternalMatchEvent, rawdata.Payload, error) {
	params := map[string]string{"fixture": strconv.FormatInt(fixtureID, 10)}

	env, raw, err := c.call(ctx, endpointFixtureEvents, params)
	if err != nil {
		return nil, rawdata.Payload{}, err
	}

	items, err := decodeItems[wireEvent](env, endpointFixtureEvents, params)
	if err != nil {
		return nil, rawdata.Payload{}, err
	}

	out := make([]usecase.ExternalMatchEvent, 0, len(items))
	for _, item := range items {
		ev := usecase.ExternalMatchEvent{
			FixtureID:  fixtureID,
			Minute:     item.Time.Elapsed,
			TeamID:     item.Team.ID,
			PlayerID:   item.Player.ID,
			PlayerName: item.Player.Name,
			AssistID:   item.Assist.ID,
			AssistName: item.Assist.Name,
			Type:       item.Type,
			Detail:     item.Detail,
			Comments:   item.Comments,
		}
		if item.Time.Extra != nil {
			ev.ExtraMinute = *item.Time.Extra
		}
		out = append(out, ev)
	}

	return out, c.buildPayload(endpointFixtureEvents, params, raw, fixtureID), nil
}

// FetchFixtureStatistics returns both teams' raw stat tables for a
// fixture.
func (c *Client) FetchFixtureStatistics(ctx context.Context, fixtureID int64) ([]usecase.ExternalTeamStatistic, rawdata.Payload, error) {
	params := map[string]string{"fixture": strconv.FormatInt(fixtureID, 10)}

	env, raw, err := c.call(ctx, endpointFixtureStatistics, params)
	if err != nil {
		return nil, rawdata.Payload{}, err
	}

	items, err := decodeItems[wireTeamStatistics](env, endpointFixtureStatistics, params)
	if err != nil {
		return nil, rawdata.Payload{}, err
	}

	out := make([]usecase.ExternalTeamStatistic, 0, len(items))
	for _, item := range items {
		stat := usecase.ExternalTeamStatistic{
			FixtureID: fixtureID,
			TeamID:    item.Team.ID,
			TeamName:  item.Team.Name,
			Values:    make(map[string]string, len(item.Statistics)),
		}
		for _, row := range item.Statistics {
			if row.Type == "" {
				continue
			}
			stat.Values[row.Type] = formatStatValue(row.Value)
		}
		out = append(out, stat)
	}

	return out, c.buildPayload(endpointFixtureStatistics, params, raw, fixtureID), nil
}

// FetchTeamSquad returns a team's current roster. Squads move on transfer
// windows, not matchdays, so responses are cached; failures are never
// cached and the next call goes upstream again.
func (c *Client) FetchTeamSquad(ctx context.Context, teamID int64) ([]usecase.ExternalSquadPlayer, error) {
	params := map[string]string{"team": strconv.FormatInt(teamID, 10)}
	if c.cache == nil {
		return c.fetchTeamSquad(ctx, teamID, params)
	}

	key := cache.Key(endpointSquads, params)
	value, err := c.cache.GetOrFetch(ctx, key, c.squadTTL, func(ctx context.Context) (any, error) {
		return c.fetchTeamSquad(ctx, teamID, params)
	})
	if err != nil {
		return nil, err
	}

	players, ok := value.([]usecase.ExternalSquadPlayer)
	if !ok {
		return nil, fmt.Errorf("unexpected squad cache value of type %T", value)
	}
	return players, nil
}

func (c *Client) fetchTeamSquad(ctx context.Context, teamID int64, params map[string]string) ([]usecase.ExternalSquadPlayer, error) {
	env, _, err := c.call(ctx, endpointSquads, params)
	if err != nil {
		return nil, err
	}

	items, err := decodeItems[wireSquad](env, endpointSquads, params)
	if err != nil {
		return nil, err
	}

	out := make([]usecase.ExternalSquadPlayer, 0, 32)
	for _, item := range items {
		squadTeamID := item.Team.ID
		if squadTeamID == 0 {
			squadTeamID = teamID
		}
		for _, player := range item.Players {
			out = append(out, usecase.ExternalSquadPlayer{
				TeamID:   squadTeamID,
				PlayerID: player.ID,
				Name:     player.Name,
				Position: player.Position,
				Number:   player.Number,
			})
		}
	}
	return out, nil
}

// call runs one upstream request through the circuit breaker and the
// dispatch queue and classifies the outcome.
func (c *Client) call(ctx context.Context, endpoint string, params map[string]string) (*envelope, []byte, error) {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			return nil, nil, fmt.Errorf("%w: %s", err, endpoint)
		}
	}

	env, raw, err := c.dispatch(ctx, endpoint, params)

	if c.circuitEnabled {
		if err != nil && isCircuitFailure(err) {
			c.breaker.RecordFailure()
		} else {
			c.breaker.RecordSuccess()
		}
	}

	return env, raw, err
}

// dispatch holds the queue lock for the full request so outbound calls
// stay strictly ordered. The pacing slot is reserved before the request
// goes out and is never given back after dispatch.
func (c *Client) dispatch(ctx context.Context, endpoint string, params map[string]string) (*envelope, []byte, error) {
	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()

	if err := c.awaitSlot(ctx); err != nil {
		return nil, nil, err
	}

	req, err := c.newRequest(ctx, endpoint, params)
	if err != nil {
		return nil, nil, fmt.Errorf("build request for %s: %w", endpoint, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "provider request failed", "endpoint", endpoint, "error", c.sanitize(err))
		provErr := c.newError(KindUpstream, endpoint, params)
		return nil, nil, crerr.Mark(fmt.Errorf("%w: %s", provErr, c.sanitize(err)), errTransient)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		provErr := c.newError(KindUpstream, endpoint, params)
		provErr.HTTPStatus = resp.StatusCode
		return nil, nil, crerr.Mark(fmt.Errorf("%w: read body: %s", provErr, c.sanitize(err)), errTransient)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		provErr := c.newError(KindRateLimited, endpoint, params)
		provErr.HTTPStatus = resp.StatusCode
		provErr.ProviderStatus = resp.Status
		provErr.RetryAfter = retryAfterFrom(resp.Header)
		return nil, nil, provErr

	case resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices:
		provErr := c.newError(KindUpstream, endpoint, params)
		provErr.HTTPStatus = resp.StatusCode
		provErr.ProviderStatus = resp.Status
		return nil, nil, crerr.Mark(provErr, errTransient)
	}

	var env envelope
	if err := sonic.Unmarshal(body, &env); err != nil {
		provErr := c.newError(KindMalformed, endpoint, params)
		provErr.HTTPStatus = resp.StatusCode
		return nil, nil, fmt.Errorf("%w: decode envelope: %s", provErr, err)
	}

	// The provider signals quota exhaustion inside a 200 envelope.
	if len(env.Errors) > 0 {
		provErr := c.newError(KindRateLimited, endpoint, params)
		provErr.HTTPStatus = resp.StatusCode
		provErr.ProviderErrors = map[string]string(env.Errors)
		provErr.RetryAfter = defaultRetryAfter
		return nil, nil, provErr
	}

	return &env, body, nil
}

// awaitSlot reserves the next pacing slot and waits it out. The
// reservation is cancelled only when the context dies before dispatch.
func (c *Client) awaitSlot(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	reservation := c.pacer.ReserveN(c.now(), 1)
	if !reservation.OK() {
		return fmt.Errorf("request pacer rejected reservation")
	}

	delay := reservation.DelayFrom(c.now())
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		reservation.CancelAt(c.now())
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) newRequest(ctx context.Context, endpoint string, params map[string]string) (*http.Request, error) {
	query := url.Values{}
	for key, value := range params {
		query.Set(key, value)
	}

	target := c.baseURL + endpoint
	if encoded := query.Encode(); encoded != "" {
		target += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(headerAPIKey, c.apiKey)
	}
	return req, nil
}

func (c *Client) newError(kind ErrorKind, endpoint string, params map[string]string) *Error {
	return &Error{
		Kind:     kind,
		Endpoint: endpoint,
		Params:   cloneParams(params),
	}
}

func (c *Client) buildPayload(endpoint string, params map[string]string, raw []byte, fixtureID int64) rawdata.Payload {
	sum := sha256.Sum256(raw)
	return rawdata.Payload{
		Source:      sourceName,
		Endpoint:    endpoint,
		EntityKey:   cache.Key(endpoint, params),
		FixtureID:   fixtureID,
		PayloadJSON: string(raw),
		PayloadHash: hex.EncodeToString(sum[:]),
		FetchedAt:   c.now().UTC(),
	}
}

// sanitize strips the API key from error text before it reaches logs.
func (c *Client) sanitize(err error) string {
	text := err.Error()
	if c.apiKey != "" {
		text = strings.ReplaceAll(text, c.apiKey, "***")
	}
	return text
}

func isCircuitFailure(err error) bool {
	if crerr.Is(err, errTransient) {
		return true
	}
	if provErr, ok := AsError(err); ok {
		return provErr.Kind == KindUpstream
	}
	return false
}

func decodeItems[T any](env *envelope, endpoint string, params map[string]string) ([]T, error) {
	if len(env.Response) == 0 {
		return nil, nil
	}

	var items []T
	if err := sonic.Unmarshal(env.Response, &items); err != nil {
		return nil, fmt.Errorf("%w: decode response: %s", &Error{
			Kind:     KindMalformed,
			Endpoint: endpoint,
			Params:   cloneParams(params),
		}, err)
	}
	return items, nil
}

func retryAfterFrom(header http.Header) time.Duration {
	raw := header.Get("Retry-After")
	if raw == "" {
		return defaultRetryAfter
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		return defaultRetryAfter
	}
	return time.Duration(seconds) * time.Second
}

func cloneParams(params map[string]string) map[string]string {
	if len(params) == 0 {
		return nil
	}
	out := make(map[string]string, len(params))
	for key, value := range params {
		out[key] = value
	}
	return out
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	cloned := *v
	return &cloned
}
