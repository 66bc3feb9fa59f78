// Package password provides password hashing and verification for Biblio.
//
// It implements Argon2id hashing using the PHC encoded string format and includes:
// - Configurable Argon2id work factors (via environment variables)
// - Password policy validation
// - Strict hash decoding and verification with anti-DoS bounds
//
// The work factors are embedded in every encoded hash, so hashes produced
// under older parameters remain verifiable after a parameter upgrade.
//
// Security notes:
// - Hash strings are treated as untrusted input during Verify and are validated accordingly.
// - Verification refuses hashes with parameters that exceed reasonable bounds.
package password
