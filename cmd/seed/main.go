package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/ikkim/bizmarket-backend/config"
	"github.com/ikkim/bizmarket-backend/internal/app/model"
	"github.com/ikkim/bizmarket-backend/internal/app/repository"
	"github.com/ikkim/bizmarket-backend/internal/app/service"
	"github.com/ikkim/bizmarket-backend/internal/db"
	"github.com/ikkim/bizmarket-backend/pkg/crypto"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// 시트 컬럼: 카테고리명 | slug | 배지허용(Y/N) | 최소 인증서 수 | 필수 인증서(쉼표 구분)
const columnCount = 5

type categoryRow struct {
	Name   string
	Slug   string
	Policy *service.BadgePolicyInput
}

func main() {
	// 명령줄 인자 확인
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run cmd/seed/main.go <xlsx_file_path>")
	}

	filePath := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	fmt.Printf("Reading XLSX file: %s\n", filePath)
	rows, err := readCategoriesFromXLSX(filePath)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}

	fmt.Printf("Total categories to import: %d\n", len(rows))

	fmt.Print("Do you want to proceed with the import? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" && confirm != "y" {
		fmt.Println("Import cancelled.")
		return
	}

	database := db.GetDB()
	categoryRepo := repository.NewCategoryRepository(database)

	// 시스템 행위자의 정책 변경은 감사 로그를 남기지 않으므로 코덱은 사용되지 않는다
	key, err := crypto.GenerateKey()
	if err != nil {
		log.Fatal("Failed to generate key:", err)
	}
	codec, err := crypto.NewXChaChaCodec(key)
	if err != nil {
		log.Fatal("Failed to create codec:", err)
	}
	policies := service.NewCategoryPolicyService(database, categoryRepo,
		service.NewAuditService(repository.NewAuditRepository(database), codec))

	created, updated, err := importCategories(context.Background(), categoryRepo, policies, rows)
	if err != nil {
		log.Fatal("Failed to import categories:", err)
	}

	fmt.Println("Import completed successfully!")
	fmt.Printf("  New categories: %d\n", created)
	fmt.Printf("  Policies written: %d\n", updated)
}

func readCategoriesFromXLSX(filePath string) ([]categoryRow, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no sheets found in XLSX file")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no data found in XLSX file")
	}

	var result []categoryRow
	seen := make(map[string]bool)
	skipped := 0

	// 첫 행은 헤더
	for i, row := range rows[1:] {
		parsed, err := parseCategoryRow(row)
		if err != nil {
			fmt.Printf("  row %d skipped: %v\n", i+2, err)
			skipped++
			continue
		}
		if seen[parsed.Slug] {
			skipped++
			continue
		}
		seen[parsed.Slug] = true
		result = append(result, parsed)
	}

	fmt.Printf("\nSummary:\n")
	fmt.Printf("  Total rows: %d\n", len(rows)-1)
	fmt.Printf("  Valid categories: %d\n", len(result))
	fmt.Printf("  Skipped rows: %d\n", skipped)

	return result, nil
}

// parseCategoryRow 정책 컬럼이 모두 비어 있으면 Policy 는 nil
func parseCategoryRow(row []string) (categoryRow, error) {
	cells := make([]string, columnCount)
	for i := 0; i < columnCount && i < len(row); i++ {
		cells[i] = strings.TrimSpace(row[i])
	}

	out := categoryRow{Name: cells[0], Slug: strings.ToLower(cells[1])}
	if out.Name == "" || out.Slug == "" {
		return out, errors.New("name and slug are required")
	}

	if cells[2] == "" && cells[3] == "" && cells[4] == "" {
		return out, nil
	}

	policy := &service.BadgePolicyInput{}
	switch strings.ToUpper(cells[2]) {
	case "Y", "YES", "TRUE", "1":
		policy.AllowsBadge = true
	case "", "N", "NO", "FALSE", "0":
	default:
		return out, fmt.Errorf("allows_badge %q is not Y/N", cells[2])
	}

	if cells[3] != "" {
		n, err := strconv.Atoi(cells[3])
		if err != nil || n < 0 {
			return out, fmt.Errorf("min_certifications %q is not a non-negative integer", cells[3])
		}
		policy.MinCertifications = n
	}

	if cells[4] != "" {
		policy.RequiredCertifications = strings.Split(cells[4], ",")
	}

	out.Policy = policy
	return out, nil
}

// importCategories creates missing categories and upserts their badge policies
func importCategories(ctx context.Context, categories repository.CategoryRepository, policies service.CategoryPolicyService, rows []categoryRow) (int, int, error) {
	created, written := 0, 0
	for _, row := range rows {
		category, err := categories.FindBySlug(ctx, row.Slug)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			category = &model.Category{Name: row.Name, Slug: row.Slug}
			if err := categories.Create(ctx, category); err != nil {
				return created, written, fmt.Errorf("create category %s: %w", row.Slug, err)
			}
			created++
		} else if err != nil {
			return created, written, fmt.Errorf("find category %s: %w", row.Slug, err)
		}

		if row.Policy == nil {
			continue
		}

		_, err = policies.Create(ctx, service.SystemActor, category.ID, *row.Policy)
		if errors.Is(err, service.ErrDuplicatePolicy) {
			_, err = policies.Update(ctx, service.SystemActor, category.ID, *row.Policy)
		}
		if err != nil {
			return created, written, fmt.Errorf("write policy for %s: %w", row.Slug, err)
		}
		written++
	}
	return created, written, nil
}
