// Package kitchenauth provides the platform's authentication core: password
// and OTP credential paths, HMAC-signed access/refresh token pairs with
// single-use refresh rotation, jti revocation, rate limiting, and audit.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// kitchenauth is the coordinating surface. It exposes [Engine], [Builder],
// [Config], and the collaborator interfaces ([IdentityLookup], [RoleLookup],
// [SmsSender]). Token mechanics live in the token sub-package, password
// hashing in password, and rate-limit windows under internal/rate.
//
// Persistence stays outside the package: the engine only reads identities and
// writes back OTP fields and password hashes through [IdentityLookup]. SMS
// delivery is a fire-and-forget collaborator with a boolean success signal.
//
// All shared mutable state (revocation set, rate-limit windows) lives behind
// store interfaces with in-memory defaults sized for single-instance
// deployments; pass a redis client via [Builder.WithRedis] to share both
// across horizontally scaled instances.
package kitchenauth
