// internal/models/license.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// License proves purchase of one product by one user. The (order_id, product_id)
// unique index is the guard that makes entitlement materialization idempotent
// under concurrent webhook deliveries.
type License struct {
	BaseModel
	UserID     uuid.UUID     `json:"user_id" gorm:"type:uuid;not null;index"`
	ProductID  uuid.UUID     `json:"product_id" gorm:"type:uuid;not null;uniqueIndex:idx_licenses_order_product"`
	OrderID    uuid.UUID     `json:"order_id" gorm:"type:uuid;not null;uniqueIndex:idx_licenses_order_product"`
	LicenseKey string        `json:"license_key" gorm:"uniqueIndex;size:64;not null"`
	Status     LicenseStatus `json:"status" gorm:"type:varchar(20);default:'active';index"`
	ExpiresAt  *time.Time    `json:"expires_at"`

	// Relationships
	User    User    `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Product Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	Order   Order   `json:"order,omitempty" gorm:"foreignKey:OrderID"`
}

// UserProduct grants a user access to a product without walking order history.
type UserProduct struct {
	BaseModel
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index:idx_user_products_user_product"`
	ProductID uuid.UUID `json:"product_id" gorm:"type:uuid;not null;index:idx_user_products_user_product"`
	OrderID   uuid.UUID `json:"order_id" gorm:"type:uuid;not null;index"`
	LicenseID uuid.UUID `json:"license_id" gorm:"type:uuid;not null;index"`

	// Relationships
	User    User    `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Product Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	Order   Order   `json:"order,omitempty" gorm:"foreignKey:OrderID"`
	License License `json:"license,omitempty" gorm:"foreignKey:LicenseID"`
}

// ProductDownload is a single-use, time-boxed capability for fetching a
// purchased artifact. Redemption flips Used with a conditional update so two
// concurrent redemptions cannot both serve the file.
type ProductDownload struct {
	BaseModel
	UserID        uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index"`
	ProductID     uuid.UUID  `json:"product_id" gorm:"type:uuid;not null;index"`
	OrderID       *uuid.UUID `json:"order_id" gorm:"type:uuid;index"`
	LicenseID     *uuid.UUID `json:"license_id" gorm:"type:uuid;index"`
	DownloadToken string     `json:"-" gorm:"uniqueIndex;size:64;not null"`
	DownloadURL   string     `json:"download_url" gorm:"size:512"`
	ExpiresAt     time.Time  `json:"expires_at" gorm:"not null"`
	Used          bool       `json:"used" gorm:"default:false"`
	UsedAt        *time.Time `json:"used_at"`

	// Relationships
	User    User     `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Product Product  `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	License *License `json:"license,omitempty" gorm:"foreignKey:LicenseID"`
}
