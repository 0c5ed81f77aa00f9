package interfaces

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ChainErrorKind classifies a failed registry call.
type ChainErrorKind int

const (
	// ChainErrTransport covers RPC, network and decoding failures where the
	// contract itself gave no verdict.
	ChainErrTransport ChainErrorKind = iota
	ChainErrAlreadyRegistered
	ChainErrNotAuthorized
	ChainErrDoesNotExist
	ChainErrAlreadyVerified
	ChainErrOnlyVerifiedInstitutions
	ChainErrDuplicateCID
	ChainErrUserRejected
	ChainErrInsufficientFunds
	// ChainErrReverted is a revert whose reason could not be mapped.
	ChainErrReverted
)

func (k ChainErrorKind) String() string {
	switch k {
	case ChainErrTransport:
		return "Transport"
	case ChainErrAlreadyRegistered:
		return "AlreadyRegistered"
	case ChainErrNotAuthorized:
		return "NotAuthorized"
	case ChainErrDoesNotExist:
		return "DoesNotExist"
	case ChainErrAlreadyVerified:
		return "AlreadyVerified"
	case ChainErrOnlyVerifiedInstitutions:
		return "OnlyVerifiedInstitutions"
	case ChainErrDuplicateCID:
		return "DuplicateCID"
	case ChainErrUserRejected:
		return "UserRejected"
	case ChainErrInsufficientFunds:
		return "InsufficientFunds"
	case ChainErrReverted:
		return "Reverted"
	default:
		return "Unknown"
	}
}

// kindError is the sentinel type behind the Err* chain kinds.
type kindError struct {
	kind ChainErrorKind
}

func (e *kindError) Error() string {
	return e.kind.String()
}

var (
	ErrChainTransport           error = &kindError{ChainErrTransport}
	ErrAlreadyRegistered        error = &kindError{ChainErrAlreadyRegistered}
	ErrNotAuthorized            error = &kindError{ChainErrNotAuthorized}
	ErrDoesNotExist             error = &kindError{ChainErrDoesNotExist}
	ErrAlreadyVerified          error = &kindError{ChainErrAlreadyVerified}
	ErrOnlyVerifiedInstitutions error = &kindError{ChainErrOnlyVerifiedInstitutions}
	ErrDuplicateCID             error = &kindError{ChainErrDuplicateCID}
	ErrUserRejected             error = &kindError{ChainErrUserRejected}
	ErrInsufficientFunds        error = &kindError{ChainErrInsufficientFunds}
	ErrReverted                 error = &kindError{ChainErrReverted}
)

var kindSentinels = map[ChainErrorKind]error{
	ChainErrTransport:                ErrChainTransport,
	ChainErrAlreadyRegistered:        ErrAlreadyRegistered,
	ChainErrNotAuthorized:            ErrNotAuthorized,
	ChainErrDoesNotExist:             ErrDoesNotExist,
	ChainErrAlreadyVerified:          ErrAlreadyVerified,
	ChainErrOnlyVerifiedInstitutions: ErrOnlyVerifiedInstitutions,
	ChainErrDuplicateCID:             ErrDuplicateCID,
	ChainErrUserRejected:             ErrUserRejected,
	ChainErrInsufficientFunds:        ErrInsufficientFunds,
	ChainErrReverted:                 ErrReverted,
}

// ChainCallError is returned by every registry operation that fails.
type ChainCallError struct {
	Kind   ChainErrorKind
	Method string
	// TxHash is set when the transaction was broadcast before failing.
	TxHash *common.Hash
	Err    error
}

func (e *ChainCallError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Method, e.Kind)
	if e.TxHash != nil {
		msg += fmt.Sprintf(" (tx %s)", e.TxHash.Hex())
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ChainCallError) Unwrap() error {
	return e.Err
}

// Is matches the Err* sentinel of the error's kind.
func (e *ChainCallError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// NewChainCallError wraps err as a registry failure of the given kind.
func NewChainCallError(method string, kind ChainErrorKind, err error) *ChainCallError {
	return &ChainCallError{Kind: kind, Method: method, Err: err}
}

// ChainErrorKindOf returns the kind of the first ChainCallError in err's chain.
func ChainErrorKindOf(err error) (ChainErrorKind, bool) {
	var cce *ChainCallError
	if errors.As(err, &cce) {
		return cce.Kind, true
	}
	return 0, false
}

// IsChainNotFound reports a deterministic "does not exist" verdict from the contract,
// as opposed to a call that could not be completed.
func IsChainNotFound(err error) bool {
	return errors.Is(err, ErrDoesNotExist)
}

// IsChainUnavailable reports a registry call that produced no contract verdict:
// a transport failure or an error that did not come from the registry client.
// Reverts of any kind are verdicts.
func IsChainUnavailable(err error) bool {
	if err == nil {
		return false
	}
	kind, ok := ChainErrorKindOf(err)
	return !ok || kind == ChainErrTransport
}

// PinningError is returned when a document could not be pinned.
// Pin failures are never retried automatically.
type PinningError struct {
	Backend string
	Err     error
}

func (e *PinningError) Error() string {
	return fmt.Sprintf("pinning via %s failed: %v", e.Backend, e.Err)
}

func (e *PinningError) Unwrap() error {
	return e.Err
}

// ErrRecordNotFound is returned by the metadata store when no document matches.
var ErrRecordNotFound = errors.New("record not found")

// MetadataStoreError is returned by every metadata-store operation that fails.
type MetadataStoreError struct {
	Op  string
	Err error
}

func (e *MetadataStoreError) Error() string {
	return fmt.Sprintf("metadata store %s: %v", e.Op, e.Err)
}

func (e *MetadataStoreError) Unwrap() error {
	return e.Err
}

// IsRecordNotFound reports whether err is a metadata-store miss.
func IsRecordNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound)
}

// ErrInvalidInput is wrapped by orchestrators when a request fails validation
// before any external call is made.
var ErrInvalidInput = errors.New("invalid input")
