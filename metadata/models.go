package metadata

import (
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ruteri/transcript-registry-backend/cryptoutils"
	"github.com/ruteri/transcript-registry-backend/interfaces"
)

// timeLayout is RFC 3339 at millisecond precision in UTC. The fixed width keeps
// lexical and chronological order identical.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

type institutionRow struct {
	ID            string `gorm:"primaryKey;size:36"`
	Address       string `gorm:"uniqueIndex;size:42"`
	Name          string
	Country       string
	AccreditedURL string
	Email         string
	IsVerified    bool
	Status        string `gorm:"size:16"`
	Created       string `gorm:"column:created_at;size:32"`
	VerifiedAt    *string
	SuspendedAt   *string
	ReactivatedAt *string
}

func (institutionRow) TableName() string {
	return "institutions"
}

type credentialRow struct {
	ID                 string `gorm:"primaryKey;size:36"`
	TranscriptID       *uint64
	StudentID          string
	StudentAddress     string `gorm:"index;size:42"`
	InstitutionAddress string `gorm:"index;size:42"`
	DegreeType         uint8
	GraduationYear     uint64
	DocumentHash       string `gorm:"index;size:66"`
	CID                string `gorm:"column:cid;index"`
	URL                string
	TransactionHash    string `gorm:"size:66"`
	BlockNumber        uint64
	Status             string `gorm:"index;size:16"`
	Created            string `gorm:"column:created_at;index;size:32"`
	RevocationReason   string
	RevokedAt          *string
}

func (credentialRow) TableName() string {
	return "credentials"
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

// parseTime accepts any RFC 3339 string so rows written by other tools still load.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func parseTimePtr(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t := parseTime(*s)
	return &t
}

func addressKey(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

func institutionToRow(inst *interfaces.Institution) *institutionRow {
	return &institutionRow{
		ID:            inst.ID,
		Address:       addressKey(inst.Address),
		Name:          inst.Name,
		Country:       inst.Country,
		AccreditedURL: inst.AccreditedURL,
		Email:         inst.Email,
		IsVerified:    inst.IsVerified,
		Status:        string(inst.Status),
		Created:       formatTime(inst.CreatedAt),
		VerifiedAt:    formatTimePtr(inst.VerifiedAt),
		SuspendedAt:   formatTimePtr(inst.SuspendedAt),
		ReactivatedAt: formatTimePtr(inst.ReactivatedAt),
	}
}

func (r *institutionRow) toInstitution() interfaces.Institution {
	return interfaces.Institution{
		ID:            r.ID,
		Address:       common.HexToAddress(r.Address),
		Name:          r.Name,
		Country:       r.Country,
		AccreditedURL: r.AccreditedURL,
		Email:         r.Email,
		IsVerified:    r.IsVerified,
		Status:        interfaces.InstitutionStatus(r.Status),
		CreatedAt:     parseTime(r.Created),
		VerifiedAt:    parseTimePtr(r.VerifiedAt),
		SuspendedAt:   parseTimePtr(r.SuspendedAt),
		ReactivatedAt: parseTimePtr(r.ReactivatedAt),
	}
}

func credentialToRow(cred *interfaces.Credential) *credentialRow {
	return &credentialRow{
		ID:                 cred.ID,
		TranscriptID:       cred.TranscriptID,
		StudentID:          cred.StudentID,
		StudentAddress:     addressKey(cred.StudentAddress),
		InstitutionAddress: addressKey(cred.InstitutionAddress),
		DegreeType:         uint8(cred.DegreeType),
		GraduationYear:     cred.GraduationYear,
		DocumentHash:       cred.DocumentHash.Hex(),
		CID:                cred.CID,
		URL:                cred.URL,
		TransactionHash:    cred.TransactionHash.Hex(),
		BlockNumber:        cred.BlockNumber,
		Status:             cred.Status.String(),
		Created:            formatTime(cred.CreatedAt),
		RevocationReason:   cred.RevocationReason,
		RevokedAt:          formatTimePtr(cred.RevokedAt),
	}
}

func (r *credentialRow) toCredential() interfaces.Credential {
	hash, _ := cryptoutils.ParseDocumentHash(r.DocumentHash)
	status, err := interfaces.ParseTranscriptStatus(r.Status)
	if err != nil {
		status = interfaces.StatusActive
	}
	return interfaces.Credential{
		ID:                 r.ID,
		TranscriptID:       r.TranscriptID,
		StudentID:          r.StudentID,
		StudentAddress:     common.HexToAddress(r.StudentAddress),
		InstitutionAddress: common.HexToAddress(r.InstitutionAddress),
		DegreeType:         interfaces.DegreeType(r.DegreeType),
		GraduationYear:     r.GraduationYear,
		DocumentHash:       hash,
		CID:                r.CID,
		URL:                r.URL,
		TransactionHash:    common.HexToHash(r.TransactionHash),
		BlockNumber:        r.BlockNumber,
		Status:             status,
		CreatedAt:          parseTime(r.Created),
		RevocationReason:   r.RevocationReason,
		RevokedAt:          parseTimePtr(r.RevokedAt),
	}
}
