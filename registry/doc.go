// Package registry talks to the InstitutionRegistry and TranscriptVerification
// contracts.
//
// OnchainRegistryClient implements interfaces.Registry on top of the generated
// bindings in bindings/registry. Reads are plain eth_calls; writes are sent with
// the configured transactor and block until the transaction is mined:
//
//	client, _ := registry.NewOnchainRegistryClient(eth, eth, institutionAddr, transcriptAddr, log)
//	client.SetTransactOpts(auth)
//	receipt, err := client.IssueTranscript(ctx, issue)
//	if errors.Is(err, interfaces.ErrDuplicateCID) { ... }
//
// Every failure is a *interfaces.ChainCallError. Revert data is matched against
// the contracts' custom-error selectors first and the error message second;
// anything the contract did not answer is classified as a transport error, so
// callers can tell "the transcript does not exist" apart from "the node could
// not be reached".
//
// # Institution discovery
//
// The registry contract has no enumeration method. EventScanDirectory walks
// InstitutionRegistered logs in fixed-size block chunks, skipping chunks the RPC
// refuses, and hydrates each address with getInstitutionDetails. CachedDirectory
// keeps the discovered addresses and a scan cursor in Badger so that only new
// blocks are queried on each listing.
//
// MockRegistryClient is an in-memory registry enforcing the contract rules,
// used by tests across the module.
package registry
