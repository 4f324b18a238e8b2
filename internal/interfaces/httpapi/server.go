package httpapi

import (
	"net/http"

	"github.com/draftball/draft-league/internal/platform/logging"
)

// NewRouter wires the public and internal routes behind the shared
// middleware chain. Internal job routes require the configured token.
func NewRouter(handler *Handler, logger *logging.Logger, corsAllowedOrigins []string, internalJobToken string) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", handler.Healthz)
	mux.HandleFunc("GET /v1/leagues/{leagueID}/pool", handler.GetLeaguePool)
	mux.HandleFunc("GET /v1/leagues/{leagueID}/fixtures", handler.ListLeagueFixtures)

	mux.Handle("POST /v1/internal/jobs/poll",
		RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunPollJob)))
	mux.Handle("POST /v1/internal/jobs/sync-roster",
		RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunRosterSyncJob)))

	return RequestTracing(RequestLogging(logger, CORS(corsAllowedOrigins, recoverPanic(logger, mux))))
}

func recoverPanic(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if recovered := recover(); recovered != nil {
				logger.ErrorContext(r.Context(), "panic recovered",
					"method", r.Method,
					"path", r.URL.Path,
					"panic", recovered,
				)
				writeInternalError(r.Context(), w)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
