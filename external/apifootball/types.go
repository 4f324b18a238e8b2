package apifootball

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
)

// envelope is the provider's uniform response wrapper. A 200 response can
// still be a failure: quota and validation problems arrive in Errors with
// an empty Response.
type envelope struct {
	Get      string          `json:"get"`
	Errors   providerErrors  `json:"errors"`
	Results  int             `json:"results"`
	Response json.RawMessage `json:"response"`
}

// providerErrors tolerates both shapes the provider emits: a code to
// message object on failure, an empty array otherwise.
type providerErrors map[string]string

func (p *providerErrors) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] == '[' || bytes.Equal(trimmed, []byte("null")) {
		*p = nil
		return nil
	}

	raw := map[string]any{}
	if err := sonic.Unmarshal(trimmed, &raw); err != nil {
		return err
	}

	out := make(map[string]string, len(raw))
	for key, value := range raw {
		if s, ok := value.(string); ok {
			out[key] = s
			continue
		}
		out[key] = fmt.Sprint(value)
	}
	*p = out
	return nil
}

type wireTeam struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type wireLiveFixture struct {
	Fixture struct {
		ID     int64     `json:"id"`
		Date   time.Time `json:"date"`
		Status struct {
			Short   string `json:"short"`
			Elapsed *int   `json:"elapsed"`
		} `json:"status"`
	} `json:"fixture"`
	League struct {
		ID     int64 `json:"id"`
		Season int   `json:"season"`
	} `json:"league"`
	Teams struct {
		Home wireTeam `json:"home"`
		Away wireTeam `json:"away"`
	} `json:"teams"`
	// Goals track regulation and extra time; shootout results land under
	// Score.Penalty only.
	Goals struct {
		Home *int `json:"home"`
		Away *int `json:"away"`
	} `json:"goals"`
	Score struct {
		Penalty struct {
			Home *int `json:"home"`
			Away *int `json:"away"`
		} `json:"penalty"`
	} `json:"score"`
}

type wireEvent struct {
	Time struct {
		Elapsed int  `json:"elapsed"`
		Extra   *int `json:"extra"`
	} `json:"time"`
	Team   wireTeam `json:"team"`
	Player struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"player"`
	Assist struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"assist"`
	Type     string `json:"type"`
	Detail   string `json:"detail"`
	Comments string `json:"comments"`
}

type wireTeamStatistics struct {
	Team       wireTeam `json:"team"`
	Statistics []struct {
		Type  string `json:"type"`
		Value any    `json:"value"`
	} `json:"statistics"`
}

type wireSquad struct {
	Team    wireTeam `json:"team"`
	Players []struct {
		ID       int64  `json:"id"`
		Name     string `json:"name"`
		Number   int    `json:"number"`
		Position string `json:"position"`
	} `json:"players"`
}

// formatStatValue flattens the provider's mixed-type stat values. Numbers
// arrive as float64, possession as "54%", absent stats as null.
func formatStatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}
