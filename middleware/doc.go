// Package middleware provides net/http adapters for the kitchenauth engine:
// a bearer-token guard that seals the validated [kitchenauth.AuthResult]
// into the request context, and a per-client throttle keyed by the first
// X-Forwarded-For entry or the socket address.
package middleware
