package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/MrEthical07/iammetrics/jwt"
)

// Verifier validates a bearer scrape token.
type Verifier interface {
	Verify(token string) (*jwt.ScrapeClaims, error)
}

type scrapeClaimsContextKey struct{}

// ScrapeClaimsFromContext returns the claims stored by [RequireScrapeToken].
func ScrapeClaimsFromContext(ctx context.Context) (*jwt.ScrapeClaims, bool) {
	claims, ok := ctx.Value(scrapeClaimsContextKey{}).(*jwt.ScrapeClaims)
	return claims, ok
}

// RequireScrapeToken rejects requests without a valid bearer token with 401.
// A nil verifier rejects everything.
func RequireScrapeToken(verifier Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				unauthorized(w)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w)
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), scrapeClaimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="metrics"`)
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
