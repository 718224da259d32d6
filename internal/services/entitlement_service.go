// internal/services/entitlement_service.go
package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/PabloB07/mcshop/internal/models"
	"github.com/PabloB07/mcshop/internal/utils"
)

const downloadGrantTTL = 24 * time.Hour

// EntitlementService turns a paid order into the things the buyer actually
// owns: one license, one user-product grant and one single-use download link
// per line item.
type EntitlementService struct {
	db                  *gorm.DB
	notificationService *NotificationService
	auditService        *AuditService
}

func NewEntitlementService(db *gorm.DB, notificationService *NotificationService, auditService *AuditService) *EntitlementService {
	return &EntitlementService{
		db:                  db,
		notificationService: notificationService,
		auditService:        auditService,
	}
}

// MaterializeOrder creates entitlements for every line item of a paid order.
// Per-item failures are logged and skipped so one broken item cannot block the
// webhook response for the rest of the order; the unique (order_id, product_id)
// index on licenses makes concurrent re-runs collapse to a single license.
func (s *EntitlementService) MaterializeOrder(order *models.Order) error {
	items := order.Items
	if len(items) == 0 {
		if err := s.db.Preload("Product").Where("order_id = ?", order.ID).Find(&items).Error; err != nil {
			return fmt.Errorf("failed to load order items: %w", err)
		}
	}

	var user models.User
	if err := s.db.First(&user, order.UserID).Error; err != nil {
		return fmt.Errorf("failed to load purchasing user: %w", err)
	}

	var firstErr error
	var grants []*models.ProductDownload

	for _, item := range items {
		download, err := s.materializeItem(order, &user, &item)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"order_id":   order.ID,
				"product_id": item.ProductID,
				"error":      err,
			}).Error("Failed to materialize entitlement for line item")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if download != nil {
			grants = append(grants, download)
		}
	}

	// Email delivery is a courtesy, never a blocker.
	if len(grants) > 0 && user.Email != "" {
		if err := s.notificationService.SendDownloadLinks(&user, order, grants); err != nil {
			logrus.WithFields(logrus.Fields{
				"order_id": order.ID,
				"user_id":  user.ID,
				"error":    err,
			}).Warn("Failed to send download link email")
		}
	}

	return firstErr
}

// materializeItem creates the license, grant and download for one line item,
// all inside one transaction so a partial entitlement can never be observed.
// Returns a nil download when the item was already materialized earlier.
func (s *EntitlementService) materializeItem(order *models.Order, user *models.User, item *models.OrderItem) (*models.ProductDownload, error) {
	var existing models.License
	err := s.db.Where("order_id = ? AND product_id = ?", order.ID, item.ProductID).First(&existing).Error
	if err == nil {
		// Already materialized by a previous delivery.
		return nil, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	key, err := utils.GenerateLicenseKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate license key: %w", err)
	}

	var download *models.ProductDownload

	err = s.db.Transaction(func(tx *gorm.DB) error {
		license := &models.License{
			UserID:     user.ID,
			ProductID:  item.ProductID,
			OrderID:    order.ID,
			LicenseKey: key,
			Status:     models.LicenseStatusActive,
		}

		if err := tx.Create(license).Error; err != nil {
			// A duplicate-key error here means a concurrent delivery won the
			// race after our existence check; treat it as already done.
			if isUniqueViolation(err) {
				return nil
			}
			return fmt.Errorf("failed to create license: %w", err)
		}

		grant := &models.UserProduct{
			UserID:    user.ID,
			ProductID: item.ProductID,
			OrderID:   order.ID,
			LicenseID: license.ID,
		}
		if err := tx.Create(grant).Error; err != nil {
			return fmt.Errorf("failed to create user product grant: %w", err)
		}

		if user.Email == "" {
			return nil
		}

		d, err := issueDownloadGrant(tx, user.ID, item.ProductID, &order.ID, &license.ID)
		if err != nil {
			return fmt.Errorf("failed to issue download grant: %w", err)
		}
		download = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	if download != nil {
		s.auditService.Log(&user.ID, models.AuditActionDownloadGenerated, "product_download", &download.ID, models.JSONB{
			"order_id":   order.ID.String(),
			"product_id": item.ProductID.String(),
			"expires_at": download.ExpiresAt,
		})
	}

	return download, nil
}

// issueDownloadGrant mints a fresh 24h single-use token.
func issueDownloadGrant(tx *gorm.DB, userID, productID uuid.UUID, orderID, licenseID *uuid.UUID) (*models.ProductDownload, error) {
	token, err := utils.GenerateDownloadToken()
	if err != nil {
		return nil, err
	}

	download := &models.ProductDownload{
		UserID:        userID,
		ProductID:     productID,
		OrderID:       orderID,
		LicenseID:     licenseID,
		DownloadToken: token,
		ExpiresAt:     time.Now().Add(downloadGrantTTL),
		Used:          false,
	}

	if err := tx.Create(download).Error; err != nil {
		return nil, err
	}
	return download, nil
}

// isUniqueViolation detects postgres unique constraint errors without taking a
// direct dependency on the driver's error type.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "SQLSTATE 23505")
}
