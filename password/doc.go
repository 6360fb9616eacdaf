// Package password implements one-way salted password hashing with
// constant-time verification.
//
// # Output format
//
// Argon2id hashes are PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// bcrypt hashes use the modular crypt format ($2a$, $2b$, $2y$). [Chain]
// hashes with one algorithm and verifies whichever format a stored hash is
// in, so algorithms can be rotated without invalidating existing accounts.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive hashes.
//   - Enforce password policy. Request validation lives outside the core.
//   - Log plaintext passwords.
package password
