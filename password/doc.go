// Package password hashes and verifies passwords with argon2id.
//
// Hashes use the PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Verification reads the cost parameters back out of the encoded hash,
// so a deployment can raise its profile without invalidating stored
// hashes; [Hasher.NeedsRehash] tells the caller when a hash was made
// under a weaker profile and should be replaced on the next successful
// login.
//
// The package owns hashing only. Password policy (minimum length,
// reuse) belongs to the engine, and nothing here logs or stores
// plaintext.
package password
