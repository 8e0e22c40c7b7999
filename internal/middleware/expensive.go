package middleware

import (
	"net/http"
	"strings"

	"golang.org/x/time/rate"
)

// Coach generation and sign placement cost an API call or a map marker,
// so they get their own per-IP buckets: 6/min burst 3 for authenticated
// callers, 2/min burst 1 otherwise.
const (
	expensiveAuthPerMin = 6
	expensiveAuthBurst  = 3
	expensiveAnonPerMin = 2
	expensiveAnonBurst  = 1
)

var expensivePaths = map[string]bool{
	"/api/coach": true,
	"/api/signs": true,
}

func hasBearer(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && len(strings.TrimPrefix(auth, "Bearer ")) > 0
}

// ExpensiveRateLimit applies to POST /api/coach and POST /api/signs only.
func ExpensiveRateLimit(keyFn func(*http.Request) string) func(http.Handler) http.Handler {
	auth := NewIPLimiter(rate.Limit(expensiveAuthPerMin/60.0), expensiveAuthBurst)
	anon := NewIPLimiter(rate.Limit(expensiveAnonPerMin/60.0), expensiveAnonBurst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || !expensivePaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			l := anon
			if hasBearer(r) {
				l = auth
			}
			if !l.Allow(keyFn(r)) {
				tooManyRequests(w, "Too many requests for this action. Please wait a minute.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
