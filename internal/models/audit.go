// internal/models/audit.go
package models

import (
	"github.com/google/uuid"
)

type AuditAction string

const (
	AuditActionOrderCreated      AuditAction = "order_created"
	AuditActionOrderPaid         AuditAction = "order_paid"
	AuditActionDownloadGenerated AuditAction = "download_generated"
	AuditActionDownloadCompleted AuditAction = "download_completed"
	AuditActionLicenseVerified   AuditAction = "license_verified"
	AuditActionLicenseRevoked    AuditAction = "license_revoked"
	AuditActionPluginUploaded    AuditAction = "plugin_uploaded"
	AuditActionServerCreated     AuditAction = "server_created"
	AuditActionUserLogin         AuditAction = "user_login"
	AuditActionUserRegistered    AuditAction = "user_registered"
	AuditActionAdminAction       AuditAction = "admin_action"
)

type AuditLog struct {
	BaseModel
	UserID       *uuid.UUID  `json:"user_id" gorm:"type:uuid;index"`
	Action       AuditAction `json:"action" gorm:"size:50;not null;index"`
	ResourceType string      `json:"resource_type" gorm:"size:50;index"`
	ResourceID   *uuid.UUID  `json:"resource_id" gorm:"type:uuid;index"`
	Details      JSONB       `json:"details" gorm:"type:jsonb"`
	IPAddress    string      `json:"ip_address" gorm:"size:45"`
	UserAgent    string      `json:"user_agent" gorm:"size:512"`
}
