package repository

import (
	"context"

	"github.com/ikkim/bizmarket-backend/internal/app/model"
	"github.com/ikkim/bizmarket-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CertificationRepository interface {
	WithTx(tx *gorm.DB) CertificationRepository
	Create(ctx context.Context, cert *model.Certification) error
	FindByID(ctx context.Context, id uint) (*model.Certification, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*model.Certification, error)
	FindBySeller(ctx context.Context, sellerID uint) ([]model.Certification, error)
	FindBySellerAndStatus(ctx context.Context, sellerID uint, status model.CertificationStatus) ([]model.Certification, error)
	FindByStatus(ctx context.Context, status model.CertificationStatus) ([]model.Certification, error)
	Update(ctx context.Context, cert *model.Certification) error
}

type certificationRepository struct {
	db *gorm.DB
}

func NewCertificationRepository(db *gorm.DB) CertificationRepository {
	return &certificationRepository{db: db}
}

func (r *certificationRepository) WithTx(tx *gorm.DB) CertificationRepository {
	return &certificationRepository{db: tx}
}

func (r *certificationRepository) Create(ctx context.Context, cert *model.Certification) error {
	logger.Debug("Creating certification in database", map[string]interface{}{
		"seller_id": cert.SellerID,
		"name":      cert.Name,
	})

	if err := r.db.WithContext(ctx).Create(cert).Error; err != nil {
		logger.Error("Failed to create certification in database", err, map[string]interface{}{
			"seller_id": cert.SellerID,
		})
		return err
	}
	return nil
}

func (r *certificationRepository) FindByID(ctx context.Context, id uint) (*model.Certification, error) {
	var cert model.Certification
	if err := r.db.WithContext(ctx).First(&cert, id).Error; err != nil {
		return nil, err
	}
	return &cert, nil
}

// FindByIDForUpdate locks the row on databases that support SELECT ... FOR UPDATE
func (r *certificationRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Certification, error) {
	query := r.db.WithContext(ctx)
	if query.Dialector.Name() != "sqlite" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var cert model.Certification
	if err := query.First(&cert, id).Error; err != nil {
		return nil, err
	}
	return &cert, nil
}

func (r *certificationRepository) FindBySeller(ctx context.Context, sellerID uint) ([]model.Certification, error) {
	var certs []model.Certification
	if err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("submitted_at DESC, id DESC").
		Find(&certs).Error; err != nil {
		logger.Error("Failed to list certifications for seller", err, map[string]interface{}{
			"seller_id": sellerID,
		})
		return nil, err
	}
	return certs, nil
}

func (r *certificationRepository) FindBySellerAndStatus(ctx context.Context, sellerID uint, status model.CertificationStatus) ([]model.Certification, error) {
	var certs []model.Certification
	if err := r.db.WithContext(ctx).
		Where("seller_id = ? AND status = ?", sellerID, status).
		Order("id ASC").
		Find(&certs).Error; err != nil {
		logger.Error("Failed to list certifications by seller and status", err, map[string]interface{}{
			"seller_id": sellerID,
			"status":    status,
		})
		return nil, err
	}
	return certs, nil
}

// FindByStatus returns the admin review queue, oldest submission first
func (r *certificationRepository) FindByStatus(ctx context.Context, status model.CertificationStatus) ([]model.Certification, error) {
	var certs []model.Certification
	if err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("submitted_at ASC, id ASC").
		Find(&certs).Error; err != nil {
		logger.Error("Failed to list certifications by status", err, map[string]interface{}{
			"status": status,
		})
		return nil, err
	}

	logger.Debug("Certifications listed by status", map[string]interface{}{
		"status": status,
		"count":  len(certs),
	})
	return certs, nil
}

func (r *certificationRepository) Update(ctx context.Context, cert *model.Certification) error {
	if err := r.db.WithContext(ctx).Save(cert).Error; err != nil {
		logger.Error("Failed to update certification", err, map[string]interface{}{
			"certification_id": cert.ID,
		})
		return err
	}
	return nil
}
