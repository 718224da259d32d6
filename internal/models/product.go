// internal/models/product.go
package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Product struct {
	BaseModel
	Name               string         `json:"name" gorm:"size:255;not null"`
	Description        string         `json:"description" gorm:"type:text"`
	Price              int64          `json:"price" gorm:"not null"`
	Currency           string         `json:"currency" gorm:"size:3;default:'CLP'"`
	ImageURL           string         `json:"image_url" gorm:"size:512"`
	Category           string         `json:"category" gorm:"size:100;index"`
	ProductType        ProductType    `json:"product_type" gorm:"type:varchar(20);not null;index"`
	Version            string         `json:"version" gorm:"size:50"`
	CompatibleVersions pq.StringArray `json:"compatible_versions" gorm:"type:text[]"`
	JarFilePath        string         `json:"jar_file_path,omitempty" gorm:"size:512"`
	Active             bool           `json:"active" gorm:"default:true;index"`

	// Relationships
	Rank      *Rank           `json:"rank,omitempty" gorm:"foreignKey:ProductID"`
	GameItem  *GameItem       `json:"game_item,omitempty" gorm:"foreignKey:ProductID"`
	GameMoney *GameMoney      `json:"game_money,omitempty" gorm:"foreignKey:ProductID"`
	Versions  []PluginVersion `json:"versions,omitempty" gorm:"foreignKey:ProductID"`
}

// Rank is the fulfillment template for permission-group products. Its commands
// run in execution_order against the target server.
type Rank struct {
	BaseModel
	ProductID      uuid.UUID `json:"product_id" gorm:"type:uuid;not null;index"`
	Name           string    `json:"name" gorm:"size:100;not null"`
	LuckPermsGroup string    `json:"luckperms_group" gorm:"size:100;not null"`
	Priority       int       `json:"priority" gorm:"default:0"`

	// Relationships
	Product  Product       `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	Commands []RankCommand `json:"commands,omitempty" gorm:"foreignKey:RankID"`
}

type RankCommand struct {
	BaseModel
	RankID         uuid.UUID   `json:"rank_id" gorm:"type:uuid;not null;index"`
	ServerID       *uuid.UUID  `json:"server_id" gorm:"type:uuid;index"`
	Command        string      `json:"command" gorm:"type:text;not null"`
	CommandType    CommandType `json:"command_type" gorm:"type:varchar(20);default:'console'"`
	ExecutionOrder int         `json:"execution_order" gorm:"not null;default:0"`

	// Relationships
	Rank   Rank             `json:"rank,omitempty" gorm:"foreignKey:RankID"`
	Server *MinecraftServer `json:"server,omitempty" gorm:"foreignKey:ServerID"`
}

type GameItem struct {
	BaseModel
	ProductID uuid.UUID      `json:"product_id" gorm:"type:uuid;not null;index"`
	ItemID    string         `json:"item_id" gorm:"size:100"`
	Quantity  int            `json:"quantity" gorm:"default:1"`
	Commands  pq.StringArray `json:"commands" gorm:"type:text[]"`

	// Relationships
	Product Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

type GameMoney struct {
	BaseModel
	ProductID    uuid.UUID    `json:"product_id" gorm:"type:uuid;not null;index"`
	Amount       int64        `json:"amount" gorm:"not null"`
	CurrencyType CurrencyType `json:"currency_type" gorm:"type:varchar(20);default:'vault'"`
	Command      string       `json:"command" gorm:"type:text"`

	// Relationships
	Product Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

// PluginVersion tracks uploaded jar builds; at most one is active per product and
// the active one wins over the product-level jar path on download.
type PluginVersion struct {
	BaseModel
	ProductID   uuid.UUID `json:"product_id" gorm:"type:uuid;not null;index"`
	Version     string    `json:"version" gorm:"size:50;not null"`
	JarFilePath string    `json:"jar_file_path" gorm:"size:512;not null"`
	Changelog   string    `json:"changelog" gorm:"type:text"`
	IsActive    bool      `json:"is_active" gorm:"default:false;index"`

	// Relationships
	Product Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}
