// Package cryptoutils computes and parses document fingerprints.
//
// A fingerprint is the SHA-256 digest of a transcript's raw bytes, carried as
// a bytes32 on-chain and as 0x-prefixed hex everywhere else.
package cryptoutils
