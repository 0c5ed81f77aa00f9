// Package main (cmd/httpserver) runs the transcript registry API server.
//
// The server binds the institution and transcript registry contracts, opens the
// metadata store and pinning backend, and serves issuance, verification and
// institution lifecycle routes. Settings come from an optional YAML file passed
// with --config, overridden by TRV_* environment variables:
//
//	TRV_RPC_URL=http://127.0.0.1:8545 \
//	TRV_INSTITUTION_REGISTRY=0x5FbDB2315678afecb367f032d93F642f64180aa3 \
//	TRV_TRANSCRIPT_REGISTRY=0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512 \
//	TRV_SIGNER_KEY=<hex key> \
//	TRV_PINATA_JWT=<jwt> \
//	httpserver --listen-addr 0.0.0.0:8080
//
// Without TRV_SIGNER_KEY the server only verifies. Write routes require a
// request signed by the caller's wallet (see api.SignRequest). Issuance,
// revocation and registration accept the signer key's address and any
// TRV_ISSUER_ADDRESSES entry; institution admin actions accept only
// TRV_ADMIN_ADDRESS.
//
// The server shuts down gracefully on SIGINT or SIGTERM.
package main
