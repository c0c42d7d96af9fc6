// Package token issues, parses, validates, and revokes the signed session
// tokens downstream services trust without a database round-trip.
//
// Tokens are HMAC-SHA256 JWTs. Access tokens carry roles and permissions;
// refresh tokens carry a distinct type claim and a reduced claim set so they
// can never be replayed as access tokens. Revocation is a jti set behind the
// [RevocationStore] interface: in-memory for single-instance deployments,
// redis-backed for horizontal scaling.
package token
