// Package credentials issues and revokes transcripts.
//
// Issuance runs Hashing, Uploading, ChainConfirming and Persisting strictly in
// order. The pinned CID is handed to the registry and to the metadata store
// exactly as the pinning backend returned it. A metadata write that fails after
// the chain confirmed is reported as interfaces.OutcomePartialSuccess.
package credentials
