package registry

import (
	"encoding/hex"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/ruteri/transcript-registry-backend/bindings/registry"
	"github.com/ruteri/transcript-registry-backend/interfaces"
)

// ErrNoTransactOpts is returned when a transaction is attempted without first setting transaction options.
var ErrNoTransactOpts = errors.New("no authorized transactor available")

// customErrorKinds maps contract custom-error names to chain error kinds.
var customErrorKinds = map[string]interfaces.ChainErrorKind{
	"AlreadyRegistered":        interfaces.ChainErrAlreadyRegistered,
	"NotAuthorized":            interfaces.ChainErrNotAuthorized,
	"InstitutionDoesNotExist":  interfaces.ChainErrDoesNotExist,
	"TranscriptDoesNotExist":   interfaces.ChainErrDoesNotExist,
	"AlreadyVerified":          interfaces.ChainErrAlreadyVerified,
	"OnlyVerifiedInstitutions": interfaces.ChainErrOnlyVerifiedInstitutions,
	"DuplicateCID":             interfaces.ChainErrDuplicateCID,
}

// selectorKinds is keyed by the 4-byte custom-error selector, built from both contract ABIs.
var selectorKinds = buildSelectorKinds()

func buildSelectorKinds() map[[4]byte]interfaces.ChainErrorKind {
	kinds := make(map[[4]byte]interfaces.ChainErrorKind)
	for _, md := range []string{registry.InstitutionRegistryMetaData.ABI, registry.TranscriptVerificationMetaData.ABI} {
		parsed, err := abi.JSON(strings.NewReader(md))
		if err != nil {
			panic("registry: invalid contract ABI: " + err.Error())
		}
		for name, abiErr := range parsed.Errors {
			kind, ok := customErrorKinds[name]
			if !ok {
				continue
			}
			var sel [4]byte
			copy(sel[:], abiErr.ID[:4])
			kinds[sel] = kind
		}
	}
	return kinds
}

// messageKinds are matched against lowercased error messages in order.
// Custom-error names are matched before the generic revert marker.
var messageKinds = []struct {
	needle string
	kind   interfaces.ChainErrorKind
}{
	{"alreadyregistered", interfaces.ChainErrAlreadyRegistered},
	{"already registered", interfaces.ChainErrAlreadyRegistered},
	{"institutiondoesnotexist", interfaces.ChainErrDoesNotExist},
	{"transcriptdoesnotexist", interfaces.ChainErrDoesNotExist},
	{"institution does not exist", interfaces.ChainErrDoesNotExist},
	{"transcript does not exist", interfaces.ChainErrDoesNotExist},
	{"alreadyverified", interfaces.ChainErrAlreadyVerified},
	{"already verified", interfaces.ChainErrAlreadyVerified},
	{"onlyverifiedinstitutions", interfaces.ChainErrOnlyVerifiedInstitutions},
	{"only verified institutions", interfaces.ChainErrOnlyVerifiedInstitutions},
	{"duplicatecid", interfaces.ChainErrDuplicateCID},
	{"duplicate cid", interfaces.ChainErrDuplicateCID},
	{"notauthorized", interfaces.ChainErrNotAuthorized},
	{"not authorized", interfaces.ChainErrNotAuthorized},
	{"user rejected", interfaces.ChainErrUserRejected},
	{"user denied", interfaces.ChainErrUserRejected},
	{"insufficient funds", interfaces.ChainErrInsufficientFunds},
	{"execution reverted", interfaces.ChainErrReverted},
	{"transaction reverted", interfaces.ChainErrReverted},
}

// ClassifyError wraps a failed contract interaction into a *interfaces.ChainCallError.
// Errors that already carry a kind are returned unchanged.
func ClassifyError(method string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNoTransactOpts) {
		return err
	}
	var cce *interfaces.ChainCallError
	if errors.As(err, &cce) {
		return err
	}
	return interfaces.NewChainCallError(method, classify(err), err)
}

func classify(err error) interfaces.ChainErrorKind {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if data := revertData(dataErr.ErrorData()); len(data) >= 4 {
			return classifyRevertData(data)
		}
	}

	msg := strings.ToLower(err.Error())
	for sel, kind := range selectorKinds {
		if strings.Contains(msg, hex.EncodeToString(sel[:])) {
			return kind
		}
	}
	for _, mk := range messageKinds {
		if strings.Contains(msg, mk.needle) {
			return mk.kind
		}
	}
	return interfaces.ChainErrTransport
}

// classifyRevertData maps raw revert data: a known custom-error selector first,
// then an Error(string) reason.
func classifyRevertData(data []byte) interfaces.ChainErrorKind {
	var sel [4]byte
	copy(sel[:], data[:4])
	if kind, ok := selectorKinds[sel]; ok {
		return kind
	}
	if reason, err := abi.UnpackRevert(data); err == nil {
		reason = strings.ToLower(reason)
		for _, mk := range messageKinds {
			if strings.Contains(reason, mk.needle) {
				return mk.kind
			}
		}
	}
	return interfaces.ChainErrReverted
}

func revertData(v interface{}) []byte {
	switch d := v.(type) {
	case string:
		b, err := hexutil.Decode(d)
		if err != nil {
			return nil
		}
		return b
	case []byte:
		return d
	default:
		return nil
	}
}
