package repository

import (
	"context"
	"time"

	"github.com/ikkim/bizmarket-backend/internal/app/model"
	"github.com/ikkim/bizmarket-backend/pkg/logger"
	"gorm.io/gorm"
)

// AuditRepository is append-only: there is no update or delete
type AuditRepository interface {
	WithTx(tx *gorm.DB) AuditRepository
	Create(ctx context.Context, entry *model.AuditLog) error
	FindBySubject(ctx context.Context, userID uint, limit, offset int) ([]model.AuditLog, int64, error)
	FindByDateRange(ctx context.Context, from, to time.Time, limit, offset int) ([]model.AuditLog, int64, error)
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) WithTx(tx *gorm.DB) AuditRepository {
	return &auditRepository{db: tx}
}

func (r *auditRepository) Create(ctx context.Context, entry *model.AuditLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		logger.Error("Failed to append audit log", err, map[string]interface{}{
			"subject_user_id": entry.SubjectUserID,
			"action":          entry.Action,
		})
		return err
	}
	return nil
}

func (r *auditRepository) FindBySubject(ctx context.Context, userID uint, limit, offset int) ([]model.AuditLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.AuditLog{}).Where("subject_user_id = ?", userID)
	return r.page(query, limit, offset)
}

// FindByDateRange matches created_at in [from, to)
func (r *auditRepository) FindByDateRange(ctx context.Context, from, to time.Time, limit, offset int) ([]model.AuditLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.AuditLog{}).
		Where("created_at >= ? AND created_at < ?", from, to)
	return r.page(query, limit, offset)
}

func (r *auditRepository) page(query *gorm.DB, limit, offset int) ([]model.AuditLog, int64, error) {
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.Error("Failed to count audit logs", err)
		return nil, 0, err
	}

	var entries []model.AuditLog
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&entries).Error; err != nil {
		logger.Error("Failed to query audit logs", err, map[string]interface{}{
			"limit":  limit,
			"offset": offset,
		})
		return nil, 0, err
	}
	return entries, total, nil
}
