// Package verification answers whether a transcript is authentic and still
// valid, looking it up by IPFS CID or by the fingerprint of the document
// itself. The chain is consulted first; when it is unreachable a CID lookup
// falls back to the metadata store and the verdict is marked degraded. Any
// revert from the registry is a verdict and never falls back.
package verification
