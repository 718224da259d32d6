// internal/models/order.go
package models

import (
	"github.com/google/uuid"
)

// Order is one checkout attempt. CommerceOrder is the client-generated business
// key used to reconcile against the payment gateway when the token is unknown;
// it never changes after creation. Status only moves forward: pending is the
// sole non-terminal state and the webhook reconciler is the only writer.
type Order struct {
	BaseModel
	UserID          uuid.UUID   `json:"user_id" gorm:"type:uuid;not null;index"`
	Total           int64       `json:"total" gorm:"not null"`
	Currency        string      `json:"currency" gorm:"size:3;default:'CLP'"`
	Status          OrderStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	CommerceOrder   string      `json:"commerce_order" gorm:"uniqueIndex;size:64;not null"`
	FlowToken       string      `json:"flow_token,omitempty" gorm:"size:255;index"`
	FlowOrder       int64       `json:"flow_order,omitempty"`
	ReferenceNumber string      `json:"reference_number,omitempty" gorm:"size:100"`

	// Relationships
	User            User             `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Items           []OrderItem      `json:"items,omitempty" gorm:"foreignKey:OrderID"`
	MinecraftOrders []MinecraftOrder `json:"minecraft_orders,omitempty" gorm:"foreignKey:OrderID"`
}

// OrderItem snapshots the unit price at purchase time.
type OrderItem struct {
	BaseModel
	OrderID   uuid.UUID `json:"order_id" gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID `json:"product_id" gorm:"type:uuid;not null;index"`
	Quantity  int       `json:"quantity" gorm:"not null;default:1"`
	Price     int64     `json:"price" gorm:"not null"`

	// Relationships
	Order   Order   `json:"order,omitempty" gorm:"foreignKey:OrderID"`
	Product Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}
