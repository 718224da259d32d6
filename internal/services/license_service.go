// internal/services/license_service.go
package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/PabloB07/mcshop/internal/models"
	"github.com/PabloB07/mcshop/internal/utils"
)

type LicenseService struct {
	db           *gorm.DB
	auditService *AuditService
}

type LicenseVerification struct {
	Valid     bool                 `json:"valid"`
	Status    models.LicenseStatus `json:"status"`
	ProductID string               `json:"product_id,omitempty"`
	ExpiresAt *time.Time           `json:"expires_at,omitempty"`
}

func NewLicenseService(db *gorm.DB, auditService *AuditService) *LicenseService {
	return &LicenseService{
		db:           db,
		auditService: auditService,
	}
}

// VerifyLicense checks a license key. A license past its expiry is moved to
// expired on first observation rather than by a background job.
func (s *LicenseService) VerifyLicense(licenseKey string) (*LicenseVerification, error) {
	var license models.License
	err := s.db.Where("license_key = ?", licenseKey).First(&license).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &LicenseVerification{Valid: false}, nil
		}
		return nil, err
	}

	if license.Status == models.LicenseStatusActive &&
		license.ExpiresAt != nil && time.Now().After(*license.ExpiresAt) {
		if err := s.db.Model(&license).Update("status", models.LicenseStatusExpired).Error; err != nil {
			return nil, err
		}
		license.Status = models.LicenseStatusExpired
	}

	s.auditService.Log(&license.UserID, models.AuditActionLicenseVerified, "license", &license.ID, models.JSONB{
		"status": string(license.Status),
	})

	return &LicenseVerification{
		Valid:     license.Status == models.LicenseStatusActive,
		Status:    license.Status,
		ProductID: license.ProductID.String(),
		ExpiresAt: license.ExpiresAt,
	}, nil
}

// RevokeLicense is the admin path for chargebacks and abuse.
func (s *LicenseService) RevokeLicense(adminID, licenseID uuid.UUID) error {
	var license models.License
	if err := s.db.First(&license, licenseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	if err := s.db.Model(&license).Update("status", models.LicenseStatusRevoked).Error; err != nil {
		return err
	}

	s.auditService.Log(&adminID, models.AuditActionLicenseRevoked, "license", &license.ID, models.JSONB{
		"user_id":    license.UserID.String(),
		"product_id": license.ProductID.String(),
	})

	return nil
}

func (s *LicenseService) GetUserLicenses(userID uuid.UUID, params utils.PaginationParams) (*utils.PaginationResult, error) {
	query := s.db.Model(&models.License{}).Preload("Product").Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var licenses []models.License
	query = utils.ApplySort(query, params, []string{"created_at", "status"})
	query = utils.ApplyPagination(query, params)

	if err := query.Find(&licenses).Error; err != nil {
		return nil, err
	}

	result := utils.CreatePaginationResult(licenses, total, params)
	return &result, nil
}
