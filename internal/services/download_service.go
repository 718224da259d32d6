// internal/services/download_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/PabloB07/mcshop/internal/models"
	"github.com/PabloB07/mcshop/internal/utils"
)

// DownloadService redeems single-use download grants and hands out new ones
// for users who still hold an active license.
type DownloadService struct {
	db             *gorm.DB
	storageService *StorageService
	auditService   *AuditService
}

// DownloadArtifact is a redeemed grant's payload, ready to stream.
type DownloadArtifact struct {
	FileName    string
	ContentType string
	Content     []byte
}

func NewDownloadService(db *gorm.DB, storageService *StorageService, auditService *AuditService) *DownloadService {
	return &DownloadService{
		db:             db,
		storageService: storageService,
		auditService:   auditService,
	}
}

// Redeem consumes a download grant and returns the artifact. The used flag is
// flipped with a conditional update before the file is fetched: of two
// concurrent redemptions exactly one wins, and a crash after marking used
// invalidates the link rather than risking a double serve.
func (s *DownloadService) Redeem(token string, userID uuid.UUID) (*DownloadArtifact, error) {
	var grant models.ProductDownload
	err := s.db.Preload("Product.Versions").Preload("License").
		Where("download_token = ?", token).First(&grant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if grant.UserID != userID {
		return nil, ErrForbidden
	}
	if grant.Used {
		return nil, ErrDownloadUsed
	}
	if time.Now().After(grant.ExpiresAt) {
		return nil, ErrDownloadExpired
	}
	if grant.License != nil && grant.License.Status != models.LicenseStatusActive {
		return nil, ErrLicenseInactive
	}

	jarPath := resolveJarPath(&grant.Product)
	if jarPath == "" {
		return nil, ErrNotFound
	}

	// Single-winner consumption: the WHERE clause loses for everyone but one
	// concurrent redeemer.
	now := time.Now()
	res := s.db.Model(&models.ProductDownload{}).
		Where("id = ? AND used = ?", grant.ID, false).
		Updates(map[string]interface{}{
			"used":    true,
			"used_at": now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrDownloadUsed
	}

	content, err := s.storageService.FetchJar(jarPath)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch artifact %s: %w", jarPath, err)
	}

	s.auditService.Log(&userID, models.AuditActionDownloadCompleted, "product_download", &grant.ID, models.JSONB{
		"product_id": grant.ProductID.String(),
		"file":       jarPath,
	})

	return &DownloadArtifact{
		FileName:    downloadFileName(&grant.Product),
		ContentType: "application/java-archive",
		Content:     content,
	}, nil
}

// GenerateDownload mints a fresh grant for a product the user already owns.
// Used when the original emailed link expired or was consumed.
func (s *DownloadService) GenerateDownload(userID, productID uuid.UUID) (*models.ProductDownload, error) {
	var license models.License
	err := s.db.Where("user_id = ? AND product_id = ? AND status = ?",
		userID, productID, models.LicenseStatusActive).First(&license).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrForbidden
		}
		return nil, err
	}

	token, err := utils.GenerateDownloadToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate download token: %w", err)
	}

	grant := &models.ProductDownload{
		UserID:        userID,
		ProductID:     productID,
		OrderID:       &license.OrderID,
		LicenseID:     &license.ID,
		DownloadToken: token,
		ExpiresAt:     time.Now().Add(downloadGrantTTL),
		Used:          false,
	}

	if err := s.db.Create(grant).Error; err != nil {
		return nil, fmt.Errorf("failed to create download grant: %w", err)
	}

	s.auditService.Log(&userID, models.AuditActionDownloadGenerated, "product_download", &grant.ID, models.JSONB{
		"product_id": productID.String(),
		"expires_at": grant.ExpiresAt,
	})

	return grant, nil
}

// resolveJarPath prefers the product's active uploaded version over the
// product-level path.
func resolveJarPath(product *models.Product) string {
	for _, version := range product.Versions {
		if version.IsActive {
			return version.JarFilePath
		}
	}
	return product.JarFilePath
}

func downloadFileName(product *models.Product) string {
	version := product.Version
	for _, v := range product.Versions {
		if v.IsActive {
			version = v.Version
			break
		}
	}
	if version == "" {
		return fmt.Sprintf("%s.jar", utils.SlugifyFileName(product.Name))
	}
	return fmt.Sprintf("%s-%s.jar", utils.SlugifyFileName(product.Name), version)
}
