package authapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"streamhub/cmd/account"
	"streamhub/cmd/internal/auth/session"
)

type contextKey int

const accountKey contextKey = iota

// AccountFromContext returns the authenticated account attached by the
// auth guard. The account carries no server-side secrets.
func AccountFromContext(ctx context.Context) (account.Account, bool) {
	acct, ok := ctx.Value(accountKey).(account.Account)
	return acct, ok
}

// Guard is the auth middleware. It takes the access token from the
// accessToken cookie, falling back to Authorization: Bearer, resolves it
// to a live account, and attaches the account to the request context.
// Requests with a missing, unverifiable, or orphaned token get 401 and
// never reach next; store failures during the lookup surface as 500.
func (h *Handler) Guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := accessTokenFromRequest(r)
		if tok == "" {
			writeFailure(w, http.StatusUnauthorized, "missing access token", nil)
			return
		}

		acct, err := h.sessions.Authenticate(r.Context(), time.Now().UTC(), tok)
		if err != nil {
			// Only taxonomy Unauthorized blames the token; anything else
			// is a server-side failure and must not read as a bad token.
			if errors.Is(err, session.ErrUnauthorized) {
				writeFailure(w, http.StatusUnauthorized, "invalid access token", nil)
				return
			}
			h.log.Error("auth.guard.fail", "err", err)
			writeFailure(w, http.StatusInternalServerError, "internal error", nil)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), accountKey, acct)))
	})
}
