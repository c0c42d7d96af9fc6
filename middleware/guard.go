package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	kitchenauth "github.com/AspireQ-pro/kitchenauth"
)

type authResultContextKey struct{}

// AuthResultFromContext returns the validated identity placed by [Guard].
func AuthResultFromContext(ctx context.Context) (*kitchenauth.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*kitchenauth.AuthResult)
	return res, ok
}

// Guard rejects requests without a valid bearer access token and attaches
// the validated [kitchenauth.AuthResult] to the request context.
func Guard(engine *kitchenauth.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			res, err := engine.ValidateAccess(r.Context(), token)
			if err != nil {
				status := kitchenauth.HTTPStatus(err)
				http.Error(w, http.StatusText(status), status)
				return
			}

			ctx := context.WithValue(r.Context(), authResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Throttle enforces the engine's per-client API budget before the handler
// runs. The response carries no retry-after hint beyond the fixed window.
func Throttle(engine *kitchenauth.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
				return
			}

			if err := engine.AllowClient(r.Context(), ClientID(r)); err != nil {
				status := kitchenauth.HTTPStatus(err)
				http.Error(w, http.StatusText(status), status)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientID derives the throttling key for a request: the first entry of
// X-Forwarded-For when present, otherwise the socket address.
func ClientID(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
