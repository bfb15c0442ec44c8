package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ikkim/bizmarket-backend/internal/app/model"
	"github.com/ikkim/bizmarket-backend/internal/app/repository"
	"github.com/ikkim/bizmarket-backend/pkg/logger"
	"github.com/xuri/excelize/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultAuditPageSize = 20
	maxAuditPageSize     = 100
	auditExportSheet     = "AuditLog"
)

// PIICodec encrypts sensitive audit fields at rest
type PIICodec interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

type AuditService interface {
	WithTx(tx *gorm.DB) AuditService
	Append(ctx context.Context, entry *model.AuditLog) error
	QueryBySubject(ctx context.Context, userID uint, page, pageSize int) ([]model.AuditLog, int64, error)
	QueryByDateRange(ctx context.Context, from, to time.Time, page, pageSize int) ([]model.AuditLog, int64, error)
	ExportBySubject(ctx context.Context, userID uint) ([]byte, error)
}

type auditService struct {
	repo  repository.AuditRepository
	codec PIICodec
}

func NewAuditService(repo repository.AuditRepository, codec PIICodec) AuditService {
	return &auditService{repo: repo, codec: codec}
}

func (s *auditService) WithTx(tx *gorm.DB) AuditService {
	return &auditService{repo: s.repo.WithTx(tx), codec: s.codec}
}

// Append stores entry with its sensitive fields encrypted. The caller's entry keeps
// plaintext values and receives the generated ID and timestamp.
func (s *auditService) Append(ctx context.Context, entry *model.AuditLog) error {
	if err := validateAuditEntry(entry); err != nil {
		return err
	}

	stored := *entry
	var err error
	if stored.ActorName, err = s.codec.Encrypt(entry.ActorName); err != nil {
		return fmt.Errorf("encrypt actor name: %w", err)
	}
	if stored.ActorRole, err = s.codec.Encrypt(entry.ActorRole); err != nil {
		return fmt.Errorf("encrypt actor role: %w", err)
	}
	if stored.Reason, err = s.codec.Encrypt(entry.Reason); err != nil {
		return fmt.Errorf("encrypt reason: %w", err)
	}

	if err := s.repo.Create(ctx, &stored); err != nil {
		return err
	}
	entry.ID = stored.ID
	entry.CreatedAt = stored.CreatedAt

	logger.Debug("Audit entry appended", map[string]interface{}{
		"audit_id":        entry.ID,
		"subject_user_id": entry.SubjectUserID,
		"action":          entry.Action,
	})
	return nil
}

func validateAuditEntry(entry *model.AuditLog) error {
	if entry == nil || entry.SubjectUserID == 0 || entry.Action == "" {
		return ErrInvalidAuditEntry
	}
	if entry.Action.MutatesTrustState() && (entry.Before.Data() == nil || entry.After.Data() == nil) {
		return fmt.Errorf("%w: %s requires before and after snapshots", ErrInvalidAuditEntry, entry.Action)
	}
	return nil
}

func (s *auditService) QueryBySubject(ctx context.Context, userID uint, page, pageSize int) ([]model.AuditLog, int64, error) {
	limit, offset := normalizePage(page, pageSize)
	entries, total, err := s.repo.FindBySubject(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	if err := s.decryptAll(entries); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (s *auditService) QueryByDateRange(ctx context.Context, from, to time.Time, page, pageSize int) ([]model.AuditLog, int64, error) {
	if !to.After(from) {
		return []model.AuditLog{}, 0, nil
	}
	limit, offset := normalizePage(page, pageSize)
	entries, total, err := s.repo.FindByDateRange(ctx, from, to, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	if err := s.decryptAll(entries); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// ExportBySubject renders every entry for the subject into an xlsx workbook
func (s *auditService) ExportBySubject(ctx context.Context, userID uint) ([]byte, error) {
	var all []model.AuditLog
	for page := 1; ; page++ {
		entries, total, err := s.QueryBySubject(ctx, userID, page, maxAuditPageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, entries...)
		if len(entries) == 0 || int64(len(all)) >= total {
			break
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), auditExportSheet); err != nil {
		return nil, fmt.Errorf("failed to prepare sheet: %w", err)
	}

	header := []interface{}{"ID", "Created At", "Action", "Actor ID", "Actor Name", "Actor Role", "Reason", "Before", "After", "IP Address"}
	if err := f.SetSheetRow(auditExportSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, entry := range all {
		actorID := ""
		if entry.ActorID != nil {
			actorID = fmt.Sprintf("%d", *entry.ActorID)
		}
		row := []interface{}{
			entry.ID,
			entry.CreatedAt.UTC().Format(time.RFC3339),
			string(entry.Action),
			actorID,
			entry.ActorName,
			entry.ActorRole,
			entry.Reason,
			snapshotJSON(entry.Before.Data()),
			snapshotJSON(entry.After.Data()),
			entry.IPAddress,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(auditExportSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}

	logger.Info("Audit log exported", map[string]interface{}{
		"subject_user_id": userID,
		"entries":         len(all),
	})
	return buf.Bytes(), nil
}

func (s *auditService) decryptAll(entries []model.AuditLog) error {
	for i := range entries {
		e := &entries[i]
		var err error
		if e.ActorName, err = s.codec.Decrypt(e.ActorName); err != nil {
			return fmt.Errorf("decrypt audit %d actor name: %w", e.ID, err)
		}
		if e.ActorRole, err = s.codec.Decrypt(e.ActorRole); err != nil {
			return fmt.Errorf("decrypt audit %d actor role: %w", e.ID, err)
		}
		if e.Reason, err = s.codec.Decrypt(e.Reason); err != nil {
			return fmt.Errorf("decrypt audit %d reason: %w", e.ID, err)
		}
	}
	return nil
}

func normalizePage(page, pageSize int) (limit, offset int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultAuditPageSize
	}
	if pageSize > maxAuditPageSize {
		pageSize = maxAuditPageSize
	}
	return pageSize, (page - 1) * pageSize
}

func snapshotJSON(s *model.Snapshot) string {
	if s == nil {
		return ""
	}
	data, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	return string(data)
}

// newAuditEntry builds an entry with schema-tagged snapshots; nil values leave a snapshot empty
func newAuditEntry(subjectID uint, actor Actor, action model.AuditAction, reason, schema string, before, after interface{}) (*model.AuditLog, error) {
	entry := &model.AuditLog{
		SubjectUserID: subjectID,
		Action:        action,
		Reason:        reason,
	}
	actor.applyTo(entry)

	if before != nil {
		snap, err := model.NewSnapshot(schema, before)
		if err != nil {
			return nil, err
		}
		entry.Before = datatypes.NewJSONType(snap)
	}
	if after != nil {
		snap, err := model.NewSnapshot(schema, after)
		if err != nil {
			return nil, err
		}
		entry.After = datatypes.NewJSONType(snap)
	}
	return entry, nil
}
