/*
Package api holds the HTTP surface of the transcript registry backend.

The subpackages split the surface the usual way:

  - handlers maps routes onto the issuance, verification and institution
    lifecycle orchestrators and translates their outcomes into status codes
  - servers owns the listener, health probes, drain handling and the metrics listener
  - clients is a typed client for the same routes

Issuance and lifecycle writes that commit on-chain but fail to update the
metadata store answer 202 Accepted with the outcome in the body. Verification
always answers 200 once a verdict exists, valid or not.
*/
package api
