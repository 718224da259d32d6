// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type UserType string

const (
	UserTypeCustomer UserType = "customer"
	UserTypeAdmin    UserType = "admin"
)

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRejected  OrderStatus = "rejected"
)

// IsTerminal reports whether the status admits no further transition.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusPaid || s == OrderStatusCancelled || s == OrderStatusRejected
}

type LicenseStatus string

const (
	LicenseStatusActive  LicenseStatus = "active"
	LicenseStatusRevoked LicenseStatus = "revoked"
	LicenseStatusExpired LicenseStatus = "expired"
)

type ProductType string

const (
	ProductTypeRank   ProductType = "rank"
	ProductTypeItem   ProductType = "item"
	ProductTypeMoney  ProductType = "money"
	ProductTypePlugin ProductType = "plugin"
)

type MinecraftOrderStatus string

const (
	MinecraftOrderStatusPending  MinecraftOrderStatus = "pending"
	MinecraftOrderStatusApplied  MinecraftOrderStatus = "applied"
	MinecraftOrderStatusFailed   MinecraftOrderStatus = "failed"
	MinecraftOrderStatusRetrying MinecraftOrderStatus = "retrying"
)

type CommandStatus string

const (
	CommandStatusPending CommandStatus = "pending"
	CommandStatusSuccess CommandStatus = "success"
	CommandStatusFailed  CommandStatus = "failed"
)

type CommandType string

const (
	CommandTypeLuckPerms CommandType = "luckperms"
	CommandTypeConsole   CommandType = "console"
	CommandTypePlayer    CommandType = "player"
)

type CurrencyType string

const (
	CurrencyTypeVault        CurrencyType = "vault"
	CurrencyTypePlayerPoints CurrencyType = "playerpoints"
)
