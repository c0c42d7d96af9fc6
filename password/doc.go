// Package password implements password hashing and verification with
// argon2id defaults.
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Hasher.NeedsRehash] reports whether a stored hash was produced with
// weaker parameters than the current configuration, so callers can re-hash
// transparently on the next successful login.
//
// The package owns hashing and verification only: it never stores
// passwords, never logs plaintext, and imports no other kitchenauth
// package.
package password
