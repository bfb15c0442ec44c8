package db

import (
	"github.com/ikkim/bizmarket-backend/internal/app/model"
	"github.com/ikkim/bizmarket-backend/pkg/logger"
	"gorm.io/gorm"
)

// Models lists every table owned by this service
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Category{},
		&model.SellerProfile{},
		&model.CategoryBadgePolicy{},
		&model.Certification{},
		&model.PremiumSubscription{},
		&model.AuditLog{},
		&model.Notification{},
	}
}

// Migrate runs database migrations
func Migrate() error {
	logger.Info("Running database migrations...")

	models := Models()
	if err := DB.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}

// Seed adds initial data to the database (optional)
func Seed() error {
	return seedCategories(DB)
}

// 기본 카테고리 (배지 정책은 관리자가 별도로 설정)
var defaultCategories = []model.Category{
	{Name: "산업 기계", Slug: "industrial-machinery"},
	{Name: "전자 부품", Slug: "electronic-components"},
	{Name: "화학 소재", Slug: "chemicals"},
	{Name: "식품 원료", Slug: "food-ingredients"},
	{Name: "포장재", Slug: "packaging"},
}

func seedCategories(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.Category{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		logger.Info("Categories already seeded, skipping...", map[string]interface{}{
			"existing_count": count,
		})
		return nil
	}

	categories := make([]model.Category, len(defaultCategories))
	copy(categories, defaultCategories)
	if err := db.Create(&categories).Error; err != nil {
		logger.Error("Failed to seed categories", err)
		return err
	}

	logger.Info("Categories seeded successfully", map[string]interface{}{
		"count": len(categories),
	})
	return nil
}
