package interfaces

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/transcript-registry-backend/cryptoutils"
)

type DocumentHash = cryptoutils.DocumentHash
type HashError = cryptoutils.HashError

// ErrInvalidAddress is returned when a wallet address cannot be parsed.
var ErrInvalidAddress = errors.New("invalid wallet address")

// ParseAddress parses a 0x-prefixed hex wallet address.
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return common.HexToAddress(s), nil
}

// NormalizeAddress returns the lowercase hex form used as the metadata-store key.
func NormalizeAddress(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

// DegreeType mirrors the DegreeType enum of the transcript registry.
type DegreeType uint8

const (
	DegreeAssociate DegreeType = iota
	DegreeBachelor
	DegreeMaster
	DegreeDoctorate
	DegreeCertificate
	DegreeDiploma
	DegreePostdoctorate
)

var degreeNames = [...]string{
	"ASSOCIATE",
	"BACHELOR",
	"MASTER",
	"DOCTORATE",
	"CERTIFICATE",
	"DIPLOMA",
	"POSTDOCTORATE",
}

var degreeLabels = [...]string{
	"Associate Degree",
	"Bachelor's Degree",
	"Master's Degree",
	"Doctorate (PhD)",
	"Certificate",
	"Diploma",
	"Post-Doctorate",
}

// ErrInvalidDegreeType is returned for values outside the contract enum.
var ErrInvalidDegreeType = errors.New("invalid degree type")

func (d DegreeType) Valid() bool {
	return int(d) < len(degreeNames)
}

func (d DegreeType) String() string {
	if !d.Valid() {
		return "UNKNOWN"
	}
	return degreeNames[d]
}

// Label returns the human readable degree name.
func (d DegreeType) Label() string {
	if !d.Valid() {
		return "Unknown"
	}
	return degreeLabels[d]
}

// ParseDegreeType accepts either the enum name (case-insensitive) or its numeric value.
func ParseDegreeType(s string) (DegreeType, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseUint(s, 10, 8); err == nil {
		d := DegreeType(n)
		if !d.Valid() {
			return 0, fmt.Errorf("%w: %d", ErrInvalidDegreeType, n)
		}
		return d, nil
	}
	for i, name := range degreeNames {
		if strings.EqualFold(name, s) {
			return DegreeType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidDegreeType, s)
}

// TranscriptStatus mirrors the Status enum of the transcript registry.
// The only legal transition is Active to Revoked.
type TranscriptStatus uint8

const (
	StatusActive TranscriptStatus = iota
	StatusRevoked
)

func (s TranscriptStatus) String() string {
	switch s {
	case StatusActive:
		return "Active"
	case StatusRevoked:
		return "Revoked"
	default:
		return "Unknown"
	}
}

// ParseTranscriptStatus parses the metadata-store representation of a status.
func ParseTranscriptStatus(s string) (TranscriptStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active", "0":
		return StatusActive, nil
	case "revoked", "1":
		return StatusRevoked, nil
	default:
		return 0, fmt.Errorf("unknown transcript status %q", s)
	}
}

func (s TranscriptStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *TranscriptStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseTranscriptStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// InstitutionState is the derived lifecycle state of an institution.
// The registry alone distinguishes Unregistered, Pending and Verified;
// Suspended additionally requires the metadata-store suspension record.
type InstitutionState int

const (
	InstitutionUnregistered InstitutionState = iota
	InstitutionPending
	InstitutionVerified
	InstitutionSuspended
)

func (s InstitutionState) String() string {
	switch s {
	case InstitutionUnregistered:
		return "unregistered"
	case InstitutionPending:
		return "registered-pending"
	case InstitutionVerified:
		return "verified"
	case InstitutionSuspended:
		return "suspended"
	default:
		return "unknown"
	}
}

func (s InstitutionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// InstitutionStatus is the status field of a metadata-store institution document.
type InstitutionStatus string

const (
	InstitutionStatusPending   InstitutionStatus = "Pending"
	InstitutionStatusActive    InstitutionStatus = "Active"
	InstitutionStatusSuspended InstitutionStatus = "Suspended"
)

// InstitutionRecord is an institution as returned by getInstitutionDetails.
type InstitutionRecord struct {
	ID             uint64         `json:"id"`
	WalletAddress  common.Address `json:"walletAddress"`
	Name           string         `json:"name"`
	Country        string         `json:"country"`
	AccreditedURL  string         `json:"accreditedURL"`
	Email          string         `json:"email"`
	IsVerified     bool           `json:"isVerified"`
	DateRegistered time.Time      `json:"dateRegistered"`
}

// TranscriptRecord is a transcript as returned by the transcript registry.
type TranscriptRecord struct {
	ID             uint64           `json:"id"`
	StudentID      string           `json:"studentId"`
	IssuedBy       common.Address   `json:"issuedBy"`
	DocumentHash   DocumentHash     `json:"documentHash"`
	DegreeType     DegreeType       `json:"degreeType"`
	DateIssued     time.Time        `json:"dateIssued"`
	CID            string           `json:"ipfsCid"`
	StudentAddress common.Address   `json:"studentAddress"`
	Status         TranscriptStatus `json:"status"`
	GraduationYear uint64           `json:"graduationYear"`
}

// TranscriptIssue holds the issueTranscripts call parameters.
type TranscriptIssue struct {
	StudentID      string
	CID            string
	DocumentHash   DocumentHash
	DegreeType     DegreeType
	StudentAddress common.Address
	GraduationYear uint64
}

// TxReceipt summarizes a confirmed transaction.
type TxReceipt struct {
	TxHash      common.Hash `json:"transactionHash"`
	BlockNumber uint64      `json:"blockNumber"`
	GasUsed     uint64      `json:"gasUsed"`
}

// InstitutionStats are the registry-wide institution counters.
type InstitutionStats struct {
	TotalInstitutions    uint64 `json:"totalInstitutions"`
	VerifiedInstitutions uint64 `json:"verifiedInstitutions"`
}

// Institution is the metadata-store mirror of an institution.
type Institution struct {
	ID            string            `json:"id"`
	Address       common.Address    `json:"address"`
	Name          string            `json:"name"`
	Country       string            `json:"country"`
	AccreditedURL string            `json:"accreditedURL"`
	Email         string            `json:"email"`
	IsVerified    bool              `json:"isVerified"`
	Status        InstitutionStatus `json:"status"`
	CreatedAt     time.Time         `json:"createdAt"`
	VerifiedAt    *time.Time        `json:"verifiedAt,omitempty"`
	SuspendedAt   *time.Time        `json:"suspendedAt,omitempty"`
	ReactivatedAt *time.Time        `json:"reactivatedAt,omitempty"`
}

// InstitutionPatch lists the mirror fields a lifecycle step may change.
// Nil fields are left untouched.
type InstitutionPatch struct {
	IsVerified    *bool
	Status        *InstitutionStatus
	VerifiedAt    *time.Time
	SuspendedAt   *time.Time
	ReactivatedAt *time.Time
}

// Credential is the metadata-store record of an issued transcript.
type Credential struct {
	ID                 string           `json:"id"`
	TranscriptID       *uint64          `json:"transcriptId,omitempty"`
	StudentID          string           `json:"studentId"`
	StudentAddress     common.Address   `json:"studentAddress"`
	InstitutionAddress common.Address   `json:"institutionAddress"`
	DegreeType         DegreeType       `json:"credentialType"`
	GraduationYear     uint64           `json:"graduationYear"`
	DocumentHash       DocumentHash     `json:"documentHash"`
	CID                string           `json:"ipfsCid"`
	URL                string           `json:"ipfsUrl"`
	TransactionHash    common.Hash      `json:"transactionHash"`
	BlockNumber        uint64           `json:"blockNumber"`
	Status             TranscriptStatus `json:"status"`
	CreatedAt          time.Time        `json:"createdAt"`
	RevocationReason   string           `json:"revocationReason,omitempty"`
	RevokedAt          *time.Time       `json:"revokedAt,omitempty"`
}

// CredentialPatch lists the credential fields that may change after issuance.
// The document hash and CID are immutable and deliberately absent.
type CredentialPatch struct {
	TranscriptID     *uint64
	Status           *TranscriptStatus
	RevocationReason *string
	RevokedAt        *time.Time
}

// CredentialStats are aggregate counters over the credentials collection.
type CredentialStats struct {
	TotalCredentials   int64 `json:"totalCredentials"`
	ActiveCredentials  int64 `json:"activeCredentials"`
	RevokedCredentials int64 `json:"revokedCredentials"`
	InstitutionCount   int64 `json:"institutionCount"`
}

// DirectoryEntry is one institution discovered by an InstitutionDirectory.
// Details is nil when hydration failed for this address.
type DirectoryEntry struct {
	Address common.Address     `json:"address"`
	Details *InstitutionRecord `json:"details,omitempty"`
}
