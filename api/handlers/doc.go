/*
Package handlers implements the transcript registry HTTP routes.

# Routes

	POST /api/credentials                       issue (multipart: file, studentAddress, degreeType, graduationYear, studentId)
	GET  /api/credentials/{id}                  stored credential with link and QR payload
	POST /api/credentials/{id}/revoke           revoke ({"reason": "..."})
	GET  /api/students/{address}/credentials    credentials of a student
	GET  /api/institutions/{address}/credentials
	POST /api/verify/document                   verify an uploaded document (multipart: file)
	GET  /api/verify/cid/{cid}                  verify by IPFS CID
	POST /api/verify/batch/cids                 {"cids": [...]}
	POST /api/verify/batch/documents            multipart: files
	GET  /api/stats
	POST /api/institutions                      self-register the server signer
	GET  /api/institutions
	GET  /api/institutions/{address}
	POST /api/institutions/{address}/{verify|suspend|reactivate|mirror}

# Authentication

Every POST outside /api/verify must be signed by the caller's wallet with
api.SignRequest: X-Caller-Address, X-Caller-Timestamp and X-Caller-Signature
cover the method, path, timestamp and body. Issuance, revocation and
registration accept the server signer and the configured issuers. Institution
actions pass the signed caller to the lifecycle, which admits only the
registry admin.

# Status codes

StatusFor maps orchestrator errors: invalid input is 400, missing or invalid
request signatures 401, authorization failures 403, unknown records 404, conflicting chain state 409 and failures
of the chain RPC, pinning service or metadata store 502.
*/
package handlers
