// Package main (cmd/registry_client) talks to the institution and transcript
// registry contracts without going through the API server.
//
// Read commands (institution, institutions, verify-cid, student-transcripts,
// stats) only need the RPC endpoint and contract addresses. Commands that send
// transactions (register, verify, suspend, issue, revoke) also need
// TRV_SIGNER_KEY; verify and suspend succeed only when that key is the
// registry admin.
//
// issue runs the full issuance flow: the document is pinned with the configured
// pinning backend, recorded on-chain and saved to the metadata store.
//
//	registry-client --config trv.yaml issue --file transcript.pdf \
//	    --student 0x70997970C51812dc3A010C7d01b50e0d17dc79C8 --degree BACHELOR --year 2025
//
// All results are printed as JSON.
package main
