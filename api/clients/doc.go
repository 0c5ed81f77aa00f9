// Package clients provides a typed HTTP client for the transcript registry API.
//
// TranscriptClient covers issuance, revocation, institution actions,
// verification and stats. Write requests are signed with Key. Error
// statuses come back as *StatusError carrying the server's error message; a
// 202 partial success is not an error and is reported through the outcome.
package clients
