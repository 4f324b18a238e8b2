package apifootball

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

type ErrorKind string

const (
	// KindRateLimited covers HTTP 429 and the provider's 200-with-errors
	// quota responses. Callers should back off for RetryAfter.
	KindRateLimited ErrorKind = "rate_limited"
	// KindUpstream covers transport failures and non-2xx statuses other
	// than 429.
	KindUpstream ErrorKind = "upstream"
	// KindMalformed covers 2xx payloads that cannot be decoded.
	KindMalformed ErrorKind = "malformed"
)

// Error is the gateway's uniform failure shape. Every upstream call that
// does not yield a usable payload returns one of these.
type Error struct {
	Kind           ErrorKind
	HTTPStatus     int
	ProviderStatus string
	ProviderErrors map[string]string
	Endpoint       string
	Params         map[string]string
	RetryAfter     time.Duration
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "api-football %s: %s", e.Kind, e.Endpoint)
	if len(e.Params) > 0 {
		keys := make([]string, 0, len(e.Params))
		for k := range e.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('(')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%s=%s", k, e.Params[k])
		}
		b.WriteByte(')')
	}
	if e.HTTPStatus > 0 {
		fmt.Fprintf(&b, " http_status=%d", e.HTTPStatus)
	}
	for _, k := range sortedKeys(e.ProviderErrors) {
		fmt.Fprintf(&b, " %s=%q", k, e.ProviderErrors[k])
	}
	if e.RetryAfter > 0 {
		fmt.Fprintf(&b, " retry_after=%s", e.RetryAfter)
	}
	return b.String()
}

// AsError unwraps err into the gateway's structured error, when present.
func AsError(err error) (*Error, bool) {
	var provErr *Error
	if stderrors.As(err, &provErr) {
		return provErr, true
	}
	return nil, false
}

func sortedKeys(m map[string]string) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
