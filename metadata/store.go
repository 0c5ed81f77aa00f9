package metadata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ruteri/transcript-registry-backend/interfaces"
)

const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

var ErrUnsupportedDialect = errors.New("unsupported metadata dialect")

// Store is the gorm-backed MetadataStore.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// Open connects to the metadata database and migrates the schema.
// An empty sqlite DSN opens a private in-memory database.
func Open(dialect, dsn string, log *slog.Logger) (*Store, error) {
	cfg := &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
	}

	var (
		db  *gorm.DB
		err error
	)
	switch dialect {
	case DialectSQLite, "":
		if dsn == "" {
			dsn = fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
		}
		db, err = gorm.Open(sqlite.Open(dsn), cfg)
		if err == nil {
			// An in-memory database lives only as long as its connection.
			sqlDB, dbErr := db.DB()
			if dbErr != nil {
				return nil, fmt.Errorf("get database handle: %w", dbErr)
			}
			sqlDB.SetMaxOpenConns(1)
		}
	case DialectPostgres:
		cfg.PrepareStmt = true
		db, err = gorm.Open(postgres.Open(dsn), cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDialect, dialect)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s metadata store: %w", dialect, err)
	}

	if err := db.AutoMigrate(&institutionRow{}, &credentialRow{}); err != nil {
		return nil, fmt.Errorf("migrate metadata store: %w", err)
	}

	log.Debug("metadata store ready", "dialect", dialect)
	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get database handle: %w", err)
	}
	return db.Close()
}

func storeErr(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = interfaces.ErrRecordNotFound
	}
	return &interfaces.MetadataStoreError{Op: op, Err: err}
}

// CreateInstitution inserts an institution mirror and returns its ID.
// Status defaults to Pending and CreatedAt to now.
func (s *Store) CreateInstitution(ctx context.Context, inst *interfaces.Institution) (string, error) {
	rec := *inst
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Status == "" {
		rec.Status = interfaces.InstitutionStatusPending
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}

	if err := s.db.WithContext(ctx).Create(institutionToRow(&rec)).Error; err != nil {
		return "", storeErr("create institution", err)
	}
	return rec.ID, nil
}

func (s *Store) GetInstitutionByAddress(ctx context.Context, addr common.Address) (*interfaces.Institution, error) {
	var row institutionRow
	err := s.db.WithContext(ctx).Where("address = ?", addressKey(addr)).First(&row).Error
	if err != nil {
		return nil, storeErr("get institution", err)
	}
	inst := row.toInstitution()
	return &inst, nil
}

// UpdateInstitution applies the non-nil fields of patch.
func (s *Store) UpdateInstitution(ctx context.Context, addr common.Address, patch interfaces.InstitutionPatch) error {
	updates := map[string]any{}
	if patch.IsVerified != nil {
		updates["is_verified"] = *patch.IsVerified
	}
	if patch.Status != nil {
		updates["status"] = string(*patch.Status)
	}
	if patch.VerifiedAt != nil {
		updates["verified_at"] = formatTime(*patch.VerifiedAt)
	}
	if patch.SuspendedAt != nil {
		updates["suspended_at"] = formatTime(*patch.SuspendedAt)
	}
	if patch.ReactivatedAt != nil {
		updates["reactivated_at"] = formatTime(*patch.ReactivatedAt)
	}

	query := s.db.WithContext(ctx).Model(&institutionRow{}).Where("address = ?", addressKey(addr))
	if len(updates) == 0 {
		return s.exists("update institution", query)
	}
	res := query.Updates(updates)
	if res.Error != nil {
		return storeErr("update institution", res.Error)
	}
	if res.RowsAffected == 0 {
		return storeErr("update institution", interfaces.ErrRecordNotFound)
	}
	return nil
}

// ListInstitutions returns every mirrored institution, oldest first.
func (s *Store) ListInstitutions(ctx context.Context) ([]interfaces.Institution, error) {
	var rows []institutionRow
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, storeErr("list institutions", err)
	}
	res := make([]interfaces.Institution, 0, len(rows))
	for i := range rows {
		res = append(res, rows[i].toInstitution())
	}
	return res, nil
}

// CreateCredential inserts a credential record and returns its ID.
func (s *Store) CreateCredential(ctx context.Context, cred *interfaces.Credential) (string, error) {
	rec := *cred
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}

	if err := s.db.WithContext(ctx).Create(credentialToRow(&rec)).Error; err != nil {
		return "", storeErr("create credential", err)
	}
	return rec.ID, nil
}

func (s *Store) GetCredential(ctx context.Context, id string) (*interfaces.Credential, error) {
	return s.findCredential(ctx, "get credential", "id = ?", id)
}

// FindCredentialByHash returns the newest credential with the given document hash.
func (s *Store) FindCredentialByHash(ctx context.Context, hash interfaces.DocumentHash) (*interfaces.Credential, error) {
	return s.findCredential(ctx, "find credential by hash", "document_hash = ?", hash.Hex())
}

// FindCredentialByCID returns the newest credential with the given CID.
func (s *Store) FindCredentialByCID(ctx context.Context, cid string) (*interfaces.Credential, error) {
	return s.findCredential(ctx, "find credential by cid", "cid = ?", cid)
}

func (s *Store) findCredential(ctx context.Context, op string, query string, arg any) (*interfaces.Credential, error) {
	var row credentialRow
	err := s.db.WithContext(ctx).
		Where(query, arg).
		Order("created_at DESC").
		First(&row).Error
	if err != nil {
		return nil, storeErr(op, err)
	}
	cred := row.toCredential()
	return &cred, nil
}

func (s *Store) ListCredentialsByStudent(ctx context.Context, student common.Address) ([]interfaces.Credential, error) {
	return s.listCredentials(ctx, "list credentials by student", "student_address = ?", addressKey(student))
}

func (s *Store) ListCredentialsByInstitution(ctx context.Context, institution common.Address) ([]interfaces.Credential, error) {
	return s.listCredentials(ctx, "list credentials by institution", "institution_address = ?", addressKey(institution))
}

func (s *Store) listCredentials(ctx context.Context, op string, query string, arg any) ([]interfaces.Credential, error) {
	var rows []credentialRow
	err := s.db.WithContext(ctx).
		Where(query, arg).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, storeErr(op, err)
	}
	res := make([]interfaces.Credential, 0, len(rows))
	for i := range rows {
		res = append(res, rows[i].toCredential())
	}
	return res, nil
}

// UpdateCredential applies the non-nil fields of patch.
func (s *Store) UpdateCredential(ctx context.Context, id string, patch interfaces.CredentialPatch) error {
	updates := map[string]any{}
	if patch.TranscriptID != nil {
		updates["transcript_id"] = *patch.TranscriptID
	}
	if patch.Status != nil {
		updates["status"] = patch.Status.String()
	}
	if patch.RevocationReason != nil {
		updates["revocation_reason"] = *patch.RevocationReason
	}
	if patch.RevokedAt != nil {
		updates["revoked_at"] = formatTime(*patch.RevokedAt)
	}

	query := s.db.WithContext(ctx).Model(&credentialRow{}).Where("id = ?", id)
	if len(updates) == 0 {
		return s.exists("update credential", query)
	}
	res := query.Updates(updates)
	if res.Error != nil {
		return storeErr("update credential", res.Error)
	}
	if res.RowsAffected == 0 {
		return storeErr("update credential", interfaces.ErrRecordNotFound)
	}
	return nil
}

func (s *Store) exists(op string, query *gorm.DB) error {
	var n int64
	if err := query.Count(&n).Error; err != nil {
		return storeErr(op, err)
	}
	if n == 0 {
		return storeErr(op, interfaces.ErrRecordNotFound)
	}
	return nil
}

// CredentialStats counts credentials by status and distinct issuing institutions.
func (s *Store) CredentialStats(ctx context.Context) (interfaces.CredentialStats, error) {
	var stats interfaces.CredentialStats
	db := s.db.WithContext(ctx)

	if err := db.Model(&credentialRow{}).Count(&stats.TotalCredentials).Error; err != nil {
		return stats, storeErr("count credentials", err)
	}
	if err := db.Model(&credentialRow{}).Where("status = ?", interfaces.StatusActive.String()).Count(&stats.ActiveCredentials).Error; err != nil {
		return stats, storeErr("count active credentials", err)
	}
	if err := db.Model(&credentialRow{}).Where("status = ?", interfaces.StatusRevoked.String()).Count(&stats.RevokedCredentials).Error; err != nil {
		return stats, storeErr("count revoked credentials", err)
	}
	if err := db.Model(&credentialRow{}).Distinct("institution_address").Count(&stats.InstitutionCount).Error; err != nil {
		return stats, storeErr("count institutions", err)
	}
	return stats, nil
}
