package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/ikkim/bizmarket-backend/internal/app/model"
	"github.com/ikkim/bizmarket-backend/internal/app/repository"
	"github.com/ikkim/bizmarket-backend/internal/db"
	"github.com/ikkim/bizmarket-backend/internal/lock"
	"github.com/ikkim/bizmarket-backend/internal/storage"
	"github.com/ikkim/bizmarket-backend/pkg/crypto"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type trustFixture struct {
	db *gorm.DB

	userRepo     repository.UserRepository
	sellerRepo   repository.SellerRepository
	categoryRepo repository.CategoryRepository
	certRepo     repository.CertificationRepository
	subRepo      repository.SubscriptionRepository
	auditRepo    repository.AuditRepository

	locker        lock.Locker
	codec         *crypto.XChaChaCodec
	store         *storage.MemoryDocumentStore
	audit         AuditService
	notifications NotificationService
	verification  VerificationService
	certs         CertificationService
	policies      CategoryPolicyService
	subs          SubscriptionService
	profiles      ProfileService
}

type fixtureOption func(f *trustFixture)

// withSellerRepo swaps the repository used by the engine
func withSellerRepo(wrap func(repository.SellerRepository) repository.SellerRepository) fixtureOption {
	return func(f *trustFixture) { f.sellerRepo = wrap(f.sellerRepo) }
}

func withLocker(l lock.Locker) fixtureOption {
	return func(f *trustFixture) { f.locker = l }
}

func withAudit(wrap func(AuditService) AuditService) fixtureOption {
	return func(f *trustFixture) { f.audit = wrap(f.audit) }
}

func setupTrustTest(t *testing.T, opts ...fixtureOption) *trustFixture {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	codec, err := crypto.NewXChaChaCodec(key)
	require.NoError(t, err)

	f := &trustFixture{
		db:           testDB,
		userRepo:     repository.NewUserRepository(testDB),
		sellerRepo:   repository.NewSellerRepository(testDB),
		categoryRepo: repository.NewCategoryRepository(testDB),
		certRepo:     repository.NewCertificationRepository(testDB),
		subRepo:      repository.NewSubscriptionRepository(testDB),
		auditRepo:    repository.NewAuditRepository(testDB),
		codec:        codec,
		store:        storage.NewMemoryDocumentStore(),
		locker:       lock.NewKeyedLocker(),
	}
	f.audit = NewAuditService(f.auditRepo, codec)
	f.notifications = NewNotificationService(repository.NewNotificationRepository(testDB), nil)

	for _, opt := range opts {
		opt(f)
	}

	f.verification = NewVerificationService(testDB, f.sellerRepo, f.certRepo, f.subRepo, f.categoryRepo,
		f.audit, f.locker, f.notifications, VerificationConfig{RecomputeConcurrency: 4})
	f.certs = NewCertificationService(f.certRepo, f.sellerRepo, f.store, f.audit, f.verification, f.notifications,
		CertificationConfig{MaxDocumentBytes: 1024})
	f.policies = NewCategoryPolicyService(testDB, f.categoryRepo, f.audit)
	f.subs = NewSubscriptionService(f.subRepo, f.sellerRepo, f.audit, f.verification, f.notifications)
	f.profiles = NewProfileService(f.userRepo, f.sellerRepo, f.categoryRepo, f.verification)
	return f
}

var sellerSeq int

func (f *trustFixture) createSeller(t *testing.T, primaryCategoryID *uint) *model.User {
	t.Helper()
	sellerSeq++
	user := &model.User{
		Email: fmt.Sprintf("seller%d@example.com", sellerSeq),
		Name:  "Seller",
		Role:  model.RoleSeller,
	}
	require.NoError(t, f.userRepo.Create(context.Background(), user))
	require.NoError(t, f.sellerRepo.Create(context.Background(), &model.SellerProfile{
		UserID:            user.ID,
		CompanyName:       fmt.Sprintf("Company %d", sellerSeq),
		PrimaryCategoryID: primaryCategoryID,
	}))
	return user
}

func (f *trustFixture) createBuyer(t *testing.T) *model.User {
	t.Helper()
	sellerSeq++
	user := &model.User{
		Email: fmt.Sprintf("buyer%d@example.com", sellerSeq),
		Name:  "Buyer",
		Role:  model.RoleBuyer,
	}
	require.NoError(t, f.userRepo.Create(context.Background(), user))
	return user
}

func (f *trustFixture) createCategory(t *testing.T, slug string) *model.Category {
	t.Helper()
	category := &model.Category{Name: slug, Slug: slug}
	require.NoError(t, f.categoryRepo.Create(context.Background(), category))
	return category
}

// seedApproved inserts an already-approved certification without going through the engine
func (f *trustFixture) seedApproved(t *testing.T, sellerID uint, name string) *model.Certification {
	t.Helper()
	cert := &model.Certification{
		SellerID:    sellerID,
		Name:        name,
		Status:      model.CertificationStatusApproved,
		DocumentRef: "seed/" + name,
	}
	require.NoError(t, f.certRepo.Create(context.Background(), cert))
	return cert
}

func (f *trustFixture) profile(t *testing.T, sellerID uint) *model.SellerProfile {
	t.Helper()
	p, err := f.sellerRepo.FindByUserID(context.Background(), sellerID)
	require.NoError(t, err)
	return p
}

// auditEntries returns decrypted entries for subject with the given action, newest first
func (f *trustFixture) auditEntries(t *testing.T, subjectID uint, action model.AuditAction) []model.AuditLog {
	t.Helper()
	entries, _, err := f.audit.QueryBySubject(context.Background(), subjectID, 1, maxAuditPageSize)
	require.NoError(t, err)

	var out []model.AuditLog
	for _, e := range entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

func (f *trustFixture) countRows(t *testing.T, m interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(m).Count(&n).Error)
	return n
}

func adminActor(id uint) Actor {
	return Actor{AdminID: &id, Name: "관리자", Role: string(model.RoleAdmin), IPAddress: "10.0.0.1", UserAgent: "test"}
}

func uintPtr(v uint) *uint {
	return &v
}

func pdf(name string) DocumentUpload {
	return DocumentUpload{Filename: name + ".pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4 test")}
}
