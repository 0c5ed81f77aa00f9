// Package institutions manages the lifecycle of issuing institutions.
//
// An institution moves through four states:
//
//	unregistered -> registered-pending   (self-registration, any address)
//	registered-pending -> verified       (admin)
//	verified -> suspended                (admin)
//	suspended -> verified                (admin, reactivation)
//
// The institution registry contract is authoritative for every state. After
// each successful transaction the record is re-read from the chain and mirrored
// into the metadata store; a mirror failure leaves the on-chain change in place
// and is reported as a partial success. Mirror re-syncs a single institution
// without sending a transaction.
//
// Admin actions are gated twice: locally by an AdminAuthorizer before any
// transaction is sent, and on-chain by the contract's owner check.
package institutions
