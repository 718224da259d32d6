// internal/models/minecraft.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// MinecraftServer is a registered remote fulfillment target. APISecret is the
// HMAC signing key for the plugin channel; it is returned in cleartext exactly
// once, at registration.
type MinecraftServer struct {
	BaseModel
	Name         string `json:"name" gorm:"size:100;not null"`
	Host         string `json:"host" gorm:"size:255;not null"`
	Port         int    `json:"port" gorm:"default:25565"`
	APIKey       string `json:"api_key" gorm:"uniqueIndex;size:64;not null"`
	APISecret    string `json:"-" gorm:"size:128;not null"`
	WebhookURL   string `json:"webhook_url,omitempty" gorm:"size:512"`
	RconHost     string `json:"rcon_host,omitempty" gorm:"size:255"`
	RconPort     int    `json:"rcon_port,omitempty" gorm:"default:25575"`
	RconPassword string `json:"-" gorm:"size:255"`
	Active       bool   `json:"active" gorm:"default:true;index"`

	// Relationships
	MinecraftOrders  []MinecraftOrder  `json:"minecraft_orders,omitempty" gorm:"foreignKey:ServerID"`
	ExecutedCommands []ExecutedCommand `json:"executed_commands,omitempty" gorm:"foreignKey:ServerID"`
}

// MinecraftOrder correlates a paid Order to a target player; it is the unit the
// dispatcher drives to applied or failed.
type MinecraftOrder struct {
	BaseModel
	OrderID           uuid.UUID            `json:"order_id" gorm:"type:uuid;not null;index"`
	ServerID          *uuid.UUID           `json:"server_id" gorm:"type:uuid;index"`
	MinecraftUsername string               `json:"minecraft_username" gorm:"size:16;not null"`
	MinecraftUUID     string               `json:"minecraft_uuid" gorm:"size:36;not null"`
	Status            MinecraftOrderStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	RetryCount        int                  `json:"retry_count" gorm:"default:0"`
	ErrorMessage      string               `json:"error_message,omitempty" gorm:"type:text"`
	AppliedAt         *time.Time           `json:"applied_at"`

	// Relationships
	Order            Order             `json:"order,omitempty" gorm:"foreignKey:OrderID"`
	Server           *MinecraftServer  `json:"server,omitempty" gorm:"foreignKey:ServerID"`
	ExecutedCommands []ExecutedCommand `json:"executed_commands,omitempty" gorm:"foreignKey:MinecraftOrderID"`
}

// ExecutedCommand is the append-only audit trail of commands sent to a server.
// Rows are created pending before dispatch; only the dispatch result or the
// plugin's own execution report moves them to a terminal status.
type ExecutedCommand struct {
	BaseModel
	MinecraftOrderID uuid.UUID     `json:"minecraft_order_id" gorm:"type:uuid;not null;index"`
	ServerID         uuid.UUID     `json:"server_id" gorm:"type:uuid;not null;index"`
	Command          string        `json:"command" gorm:"type:text;not null"`
	CommandType      CommandType   `json:"command_type" gorm:"type:varchar(20);default:'console'"`
	Status           CommandStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	Response         string        `json:"response,omitempty" gorm:"type:text"`
	ErrorMessage     string        `json:"error_message,omitempty" gorm:"type:text"`
	ExecutedAt       *time.Time    `json:"executed_at"`

	// Relationships
	MinecraftOrder MinecraftOrder  `json:"minecraft_order,omitempty" gorm:"foreignKey:MinecraftOrderID"`
	Server         MinecraftServer `json:"server,omitempty" gorm:"foreignKey:ServerID"`
}
