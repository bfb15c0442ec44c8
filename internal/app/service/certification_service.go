package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ikkim/bizmarket-backend/internal/app/model"
	"github.com/ikkim/bizmarket-backend/internal/app/repository"
	"github.com/ikkim/bizmarket-backend/internal/storage"
	"github.com/ikkim/bizmarket-backend/pkg/logger"
	"gorm.io/gorm"
)

const (
	defaultMaxDocumentBytes   = 10 << 20
	maxCertificationNameChars = 200
)

var defaultDocumentExtensions = []string{".pdf", ".jpg", ".jpeg", ".png"}

// DocumentUpload 업로드된 인증서 문서
type DocumentUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

type SubmitCertificationInput struct {
	Name      string
	Document  DocumentUpload
	IPAddress string
	UserAgent string
}

type CertificationConfig struct {
	MaxDocumentBytes  int64
	AllowedExtensions []string
}

type CertificationService interface {
	Submit(ctx context.Context, sellerID uint, input SubmitCertificationInput) (*model.Certification, error)
	Review(ctx context.Context, actor Actor, certificationID uint, outcome model.CertificationStatus, adminNotes string) (*model.Certification, error)
	ListBySeller(ctx context.Context, sellerID uint) ([]model.Certification, error)
	ListByStatus(ctx context.Context, status model.CertificationStatus) ([]model.Certification, error)
	Get(ctx context.Context, certificationID uint) (*model.Certification, error)
	LoadDocument(ctx context.Context, cert *model.Certification) ([]byte, error)
}

type certificationService struct {
	certRepo     repository.CertificationRepository
	sellerRepo   repository.SellerRepository
	store        storage.DocumentStore
	audit        AuditService
	verification VerificationService
	notifier     NotificationSink
	maxBytes     int64
	allowedExt   map[string]struct{}
}

// ResolveMaxDocumentBytes applies the default cap to a non-positive value.
// Upload readers must use the same limit as the service.
func ResolveMaxDocumentBytes(n int64) int64 {
	if n <= 0 {
		return defaultMaxDocumentBytes
	}
	return n
}

func NewCertificationService(
	certRepo repository.CertificationRepository,
	sellerRepo repository.SellerRepository,
	store storage.DocumentStore,
	audit AuditService,
	verification VerificationService,
	notifier NotificationSink,
	cfg CertificationConfig,
) CertificationService {
	cfg.MaxDocumentBytes = ResolveMaxDocumentBytes(cfg.MaxDocumentBytes)
	if len(cfg.AllowedExtensions) == 0 {
		cfg.AllowedExtensions = defaultDocumentExtensions
	}

	allowed := make(map[string]struct{}, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = struct{}{}
	}

	return &certificationService{
		certRepo:     certRepo,
		sellerRepo:   sellerRepo,
		store:        store,
		audit:        audit,
		verification: verification,
		notifier:     notifier,
		maxBytes:     cfg.MaxDocumentBytes,
		allowedExt:   allowed,
	}
}

func (s *certificationService) validateDocument(doc DocumentUpload) error {
	size := int64(len(doc.Data))
	if size == 0 || size > s.maxBytes {
		return fmt.Errorf("%w: size %d bytes must be between 1 and %d", ErrInvalidDocument, size, s.maxBytes)
	}
	ext := strings.ToLower(filepath.Ext(doc.Filename))
	if _, ok := s.allowedExt[ext]; !ok {
		return fmt.Errorf("%w: extension %q is not allowed", ErrInvalidDocument, ext)
	}
	return nil
}

// Submit stores the document and records a pending certification
func (s *certificationService) Submit(ctx context.Context, sellerID uint, input SubmitCertificationInput) (*model.Certification, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" || utf8.RuneCountInString(name) > maxCertificationNameChars {
		return nil, ErrInvalidCertificationName
	}
	if err := s.validateDocument(input.Document); err != nil {
		logger.Warn("Certification document rejected", map[string]interface{}{
			"seller_id": sellerID,
			"filename":  input.Document.Filename,
			"size":      len(input.Document.Data),
		})
		return nil, err
	}

	if _, err := s.sellerRepo.FindByUserID(ctx, sellerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSellerNotFound
		}
		return nil, err
	}

	ref, err := s.store.Save(ctx, input.Document.Data, storage.DocumentMetadata{
		OwnerID:     sellerID,
		Filename:    input.Document.Filename,
		ContentType: input.Document.ContentType,
	})
	if err != nil {
		return nil, err
	}

	cert := &model.Certification{
		SellerID:            sellerID,
		Name:                name,
		Status:              model.CertificationStatusPending,
		SubmittedAt:         time.Now(),
		DocumentRef:         ref,
		DocumentName:        filepath.Base(input.Document.Filename),
		DocumentContentType: input.Document.ContentType,
		DocumentSize:        int64(len(input.Document.Data)),
		IPAddress:           input.IPAddress,
		UserAgent:           input.UserAgent,
	}

	trigger := Trigger{
		Actor:  Actor{Role: string(model.RoleSeller), IPAddress: input.IPAddress, UserAgent: input.UserAgent},
		Reason: "certification submitted",
	}
	if _, err := s.verification.ApplyFact(ctx, sellerID, trigger, func(ctx context.Context, tx *gorm.DB) error {
		return s.certRepo.WithTx(tx).Create(ctx, cert)
	}); err != nil {
		logger.Warn("Failed to record certification, removing stored document", map[string]interface{}{
			"seller_id":    sellerID,
			"document_ref": ref,
			"error":        err.Error(),
		})
		s.discardDocument(ref)
		return nil, err
	}

	logger.Info("Certification submitted", map[string]interface{}{
		"certification_id": cert.ID,
		"seller_id":        sellerID,
		"name":             cert.Name,
	})
	return cert, nil
}

// Review moves a pending certification to approved or rejected exactly once
func (s *certificationService) Review(ctx context.Context, actor Actor, certificationID uint, outcome model.CertificationStatus, adminNotes string) (*model.Certification, error) {
	if outcome != model.CertificationStatusApproved && outcome != model.CertificationStatusRejected {
		return nil, ErrInvalidReviewOutcome
	}

	existing, err := s.certRepo.FindByID(ctx, certificationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCertificationNotFound
		}
		return nil, err
	}
	if existing.IsReviewed() {
		return nil, ErrInvalidStateTransition
	}

	var reviewed *model.Certification
	trigger := Trigger{
		Actor:  actor,
		Reason: fmt.Sprintf("certification %d %s", certificationID, outcome),
	}
	_, err = s.verification.ApplyFact(ctx, existing.SellerID, trigger, func(ctx context.Context, tx *gorm.DB) error {
		certs := s.certRepo.WithTx(tx)

		// 락 획득 이후 다시 읽어 동시 검토를 막는다
		cert, err := certs.FindByIDForUpdate(ctx, certificationID)
		if err != nil {
			return err
		}
		if cert.IsReviewed() {
			return ErrInvalidStateTransition
		}
		before := model.CertificationSnapshotOf(cert)

		now := time.Now()
		cert.Status = outcome
		cert.ReviewedAt = &now
		cert.ReviewedBy = actor.AdminID
		if notes := strings.TrimSpace(adminNotes); notes != "" {
			cert.AdminNotes = &notes
		}
		if err := certs.Update(ctx, cert); err != nil {
			return err
		}

		entry, err := newAuditEntry(cert.SellerID, actor, model.AuditActionCertificationReviewed, adminNotes,
			model.SnapshotSchemaCertification, before, model.CertificationSnapshotOf(cert))
		if err != nil {
			return err
		}
		if err := s.audit.WithTx(tx).Append(ctx, entry); err != nil {
			return err
		}
		reviewed = cert
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, reviewed.SellerID, model.NotificationTypeCertificationReviewed, reviewMessage(reviewed))

	logger.Info("Certification reviewed", map[string]interface{}{
		"certification_id": reviewed.ID,
		"seller_id":        reviewed.SellerID,
		"status":           reviewed.Status,
		"admin_id":         actor.AdminID,
	})
	return reviewed, nil
}

func reviewMessage(cert *model.Certification) string {
	if cert.Status == model.CertificationStatusApproved {
		return fmt.Sprintf("'%s' 인증서가 승인되었습니다", cert.Name)
	}
	return fmt.Sprintf("'%s' 인증서가 반려되었습니다", cert.Name)
}

func (s *certificationService) ListBySeller(ctx context.Context, sellerID uint) ([]model.Certification, error) {
	return s.certRepo.FindBySeller(ctx, sellerID)
}

func (s *certificationService) ListByStatus(ctx context.Context, status model.CertificationStatus) ([]model.Certification, error) {
	if !status.IsValid() {
		return nil, ErrInvalidCertificationStatus
	}
	return s.certRepo.FindByStatus(ctx, status)
}

func (s *certificationService) Get(ctx context.Context, certificationID uint) (*model.Certification, error) {
	cert, err := s.certRepo.FindByID(ctx, certificationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCertificationNotFound
		}
		return nil, err
	}
	return cert, nil
}

// LoadDocument reads the stored blob; callers check access on cert first
func (s *certificationService) LoadDocument(ctx context.Context, cert *model.Certification) ([]byte, error) {
	data, err := s.store.Load(ctx, cert.DocumentRef)
	if err != nil {
		logger.Error("Failed to load certification document", err, map[string]interface{}{
			"certification_id": cert.ID,
		})
		return nil, err
	}
	return data, nil
}

// discardDocument 요청 ctx 가 끝났을 수 있으므로 별도 ctx 사용
func (s *certificationService) discardDocument(ref string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.Delete(ctx, ref); err != nil {
		logger.Error("Failed to remove orphaned certification document", err, map[string]interface{}{
			"document_ref": ref,
		})
	}
}
