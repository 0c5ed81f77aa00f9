// Package storage pins documents to content-addressed stores.
//
// Every backend implements interfaces.Pinner and is selected by a location URI:
//
//	pinata://api.pinata.cloud                    Pinata pinning API, JWT bearer auth
//	ipfs://127.0.0.1:5001                         IPFS node HTTP API
//	s3://bucket/prefix?region=eu-west-1           S3 or compatible object storage
//	file:///var/lib/transcripts                   local directory, development only
//
// Pinata and IPFS return the CID assigned by the network. S3 and file backends
// key objects by a locally computed CIDv1 (raw codec, sha2-256), so the same
// bytes produce the same identifier on every backend that computes it.
//
// Pinning is not idempotent and is never retried here: a failed or abandoned
// issuance leaves an orphaned pin, which callers surface rather than hide.
// PinnerFor wraps every backend in a SizeLimitedPinner so oversized documents
// are rejected before any upload.
package storage
