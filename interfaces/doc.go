// Package interfaces defines the shared types, error taxonomy and collaborator
// interfaces of the transcript registry backend, separating definitions from
// implementations.
//
// # Collaborators
//
// Registry: typed access to the Institution Registry and Transcript Registry
// contracts. The chain is the authoritative source for institution
// verification state and transcript status.
//
// Pinner: uploads document bytes to a content-addressed store and returns the
// content identifier (CID) and retrieval URL.
//
// MetadataStore: off-chain institutions and credentials collections used for
// search, display metadata and as a status fallback when the chain cannot be
// reached. It is never authoritative over status.
//
// InstitutionDirectory: discovery of registered institutions, either by
// scanning registration events or from a persistent index.
//
// # Outcomes
//
// Operations that span an on-chain write and a metadata-store write report an
// Outcome of kind Success, PartialSuccess or Failure. PartialSuccess means the
// on-chain effect is committed while the mirror write failed; the chain is then
// ahead of the store until the next read reconciles it.
//
// # Errors
//
// HashError, PinningError, ChainCallError and MetadataStoreError form the error
// taxonomy. ChainCallError carries a ChainErrorKind decoded from contract
// reverts; callers match kinds with errors.Is against the Err* sentinels, for
// example errors.Is(err, ErrDoesNotExist).
package interfaces
