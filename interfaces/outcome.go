package interfaces

import "fmt"

// OutcomeKind tags the result of an operation spanning the chain and the metadata store.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	// OutcomePartialSuccess: the on-chain effect is committed, the mirror write is not.
	OutcomePartialSuccess
	OutcomeFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomePartialSuccess:
		return "partial_success"
	case OutcomeFailure:
		return "failure"
	default:
		return "unknown"
	}
}

func (k OutcomeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *OutcomeKind) UnmarshalText(text []byte) error {
	for _, kind := range []OutcomeKind{OutcomeSuccess, OutcomePartialSuccess, OutcomeFailure} {
		if kind.String() == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown outcome kind %q", text)
}

// Stage names a step of a multi-system operation.
type Stage string

const (
	// StageValidating checks request fields before any document or network work.
	StageValidating      Stage = "Validating"
	// StageLoading resolves existing records before a follow-up write such as revocation.
	StageLoading         Stage = "Loading"
	StageAuthorizing     Stage = "Authorizing"
	StageHashing         Stage = "Hashing"
	StageUploading       Stage = "Uploading"
	StageChainConfirming Stage = "ChainConfirming"
	StagePersisting      Stage = "Persisting"
	StageDone            Stage = "Done"
)

// Outcome is the tagged result of a spanning operation.
// Stage is the last stage reached: StageDone on success, otherwise the stage that failed.
type Outcome struct {
	Kind  OutcomeKind `json:"kind"`
	Stage Stage       `json:"stage"`
	Err   error       `json:"-"`
}

// Succeeded returns a Success outcome.
func Succeeded() Outcome {
	return Outcome{Kind: OutcomeSuccess, Stage: StageDone}
}

// PartiallySucceeded returns a PartialSuccess outcome for a mirror failure at stage.
func PartiallySucceeded(stage Stage, err error) Outcome {
	return Outcome{Kind: OutcomePartialSuccess, Stage: stage, Err: err}
}

// Failed returns a Failure outcome at stage.
func Failed(stage Stage, err error) Outcome {
	return Outcome{Kind: OutcomeFailure, Stage: stage, Err: err}
}

// Committed reports whether the on-chain effect landed.
func (o Outcome) Committed() bool {
	return o.Kind != OutcomeFailure
}

func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeSuccess:
		return "success"
	case OutcomePartialSuccess:
		return fmt.Sprintf("partial success: on-chain committed, %s failed: %v", o.Stage, o.Err)
	default:
		return fmt.Sprintf("failed at %s: %v", o.Stage, o.Err)
	}
}

// ErrorMessage returns the outcome error text, empty on success.
func (o Outcome) ErrorMessage() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}
