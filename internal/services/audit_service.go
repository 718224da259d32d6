// internal/services/audit_service.go
package services

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/PabloB07/mcshop/internal/models"
	"github.com/PabloB07/mcshop/internal/utils"
)

type AuditService struct {
	db *gorm.DB
}

func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

// Log writes one audit record. Audit writes are best-effort: callers on the
// payment critical path must never fail because an audit insert did.
func (s *AuditService) Log(userID *uuid.UUID, action models.AuditAction, resourceType string, resourceID *uuid.UUID, details models.JSONB) {
	entry := &models.AuditLog{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      details,
	}

	if err := s.db.Create(entry).Error; err != nil {
		logrus.WithFields(logrus.Fields{
			"action":        action,
			"resource_type": resourceType,
			"error":         err,
		}).Warn("Failed to write audit log entry")
	}
}

// LogRequest is Log plus the request's network metadata.
func (s *AuditService) LogRequest(userID *uuid.UUID, action models.AuditAction, resourceType string, resourceID *uuid.UUID, details models.JSONB, ipAddress, userAgent string) {
	entry := &models.AuditLog{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      details,
		IPAddress:    ipAddress,
		UserAgent:    userAgent,
	}

	if err := s.db.Create(entry).Error; err != nil {
		logrus.WithFields(logrus.Fields{
			"action": action,
			"error":  err,
		}).Warn("Failed to write audit log entry")
	}
}

type AuditSearchParams struct {
	utils.PaginationParams
	UserID       *uuid.UUID          `json:"user_id,omitempty"`
	Action       *models.AuditAction `json:"action,omitempty"`
	ResourceType string              `json:"resource_type,omitempty"`
}

func (s *AuditService) Search(params *AuditSearchParams) (*utils.PaginationResult, error) {
	query := s.db.Model(&models.AuditLog{})

	if params.UserID != nil {
		query = query.Where("user_id = ?", *params.UserID)
	}
	if params.Action != nil {
		query = query.Where("action = ?", *params.Action)
	}
	if params.ResourceType != "" {
		query = query.Where("resource_type = ?", params.ResourceType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var logs []models.AuditLog
	query = utils.ApplySort(query, params.PaginationParams, []string{"created_at", "action"})
	query = utils.ApplyPagination(query, params.PaginationParams)

	if err := query.Find(&logs).Error; err != nil {
		return nil, err
	}

	result := utils.CreatePaginationResult(logs, total, params.PaginationParams)
	return &result, nil
}
