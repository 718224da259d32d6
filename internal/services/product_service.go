// internal/services/product_service.go
package services

import (
	"errors"
	"fmt"
	"mime/multipart"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/PabloB07/mcshop/internal/database"
	"github.com/PabloB07/mcshop/internal/models"
	"github.com/PabloB07/mcshop/internal/utils"
)

type ProductService struct {
	db             *gorm.DB
	storageService *StorageService
	auditService   *AuditService
}

type CreateProductRequest struct {
	Name        string             `json:"name" validate:"required,min=3,max=255"`
	Description string             `json:"description,omitempty"`
	Price       int64              `json:"price" validate:"required,min=1"`
	Category    string             `json:"category,omitempty"`
	ProductType models.ProductType `json:"product_type" validate:"required,oneof=rank item money plugin"`

	// Type-specific templates, exactly one should match ProductType.
	Rank  *RankTemplateRequest  `json:"rank,omitempty"`
	Item  *ItemTemplateRequest  `json:"item,omitempty"`
	Money *MoneyTemplateRequest `json:"money,omitempty"`
}

type RankTemplateRequest struct {
	Name           string               `json:"name" validate:"required"`
	LuckPermsGroup string               `json:"luckperms_group" validate:"required"`
	Priority       int                  `json:"priority,omitempty"`
	Commands       []RankCommandRequest `json:"commands,omitempty" validate:"omitempty,dive"`
}

type RankCommandRequest struct {
	ServerID       *uuid.UUID         `json:"server_id,omitempty"`
	Command        string             `json:"command" validate:"required"`
	CommandType    models.CommandType `json:"command_type" validate:"omitempty,oneof=luckperms console player"`
	ExecutionOrder int                `json:"execution_order"`
}

type ItemTemplateRequest struct {
	ItemID   string   `json:"item_id" validate:"required"`
	Quantity int      `json:"quantity" validate:"min=1"`
	Commands []string `json:"commands,omitempty"`
}

type MoneyTemplateRequest struct {
	Amount       int64               `json:"amount" validate:"required,min=1"`
	CurrencyType models.CurrencyType `json:"currency_type" validate:"omitempty,oneof=vault playerpoints"`
	Command      string              `json:"command,omitempty"`
}

type ProductSearchParams struct {
	utils.PaginationParams
	Category    string              `json:"category,omitempty"`
	ProductType *models.ProductType `json:"product_type,omitempty"`
	ActiveOnly  bool                `json:"active_only,omitempty"`
}

func NewProductService(db *gorm.DB, storageService *StorageService, auditService *AuditService) *ProductService {
	return &ProductService{
		db:             db,
		storageService: storageService,
		auditService:   auditService,
	}
}

func (s *ProductService) CreateProduct(adminID uuid.UUID, req *CreateProductRequest) (*models.Product, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	product := &models.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Currency:    "CLP",
		Category:    req.Category,
		ProductType: req.ProductType,
		Active:      true,
	}

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.Create(product).Error; err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}

		switch req.ProductType {
		case models.ProductTypeRank:
			if req.Rank == nil {
				return errors.New("rank products need a rank template")
			}
			rank := &models.Rank{
				ProductID:      product.ID,
				Name:           req.Rank.Name,
				LuckPermsGroup: req.Rank.LuckPermsGroup,
				Priority:       req.Rank.Priority,
			}
			for _, cmd := range req.Rank.Commands {
				commandType := cmd.CommandType
				if commandType == "" {
					commandType = models.CommandTypeConsole
				}
				rank.Commands = append(rank.Commands, models.RankCommand{
					ServerID:       cmd.ServerID,
					Command:        cmd.Command,
					CommandType:    commandType,
					ExecutionOrder: cmd.ExecutionOrder,
				})
			}
			if err := tx.Create(rank).Error; err != nil {
				return fmt.Errorf("failed to create rank template: %w", err)
			}

		case models.ProductTypeItem:
			if req.Item == nil {
				return errors.New("item products need an item template")
			}
			quantity := req.Item.Quantity
			if quantity == 0 {
				quantity = 1
			}
			item := &models.GameItem{
				ProductID: product.ID,
				ItemID:    req.Item.ItemID,
				Quantity:  quantity,
				Commands:  pq.StringArray(req.Item.Commands),
			}
			if err := tx.Create(item).Error; err != nil {
				return fmt.Errorf("failed to create item template: %w", err)
			}

		case models.ProductTypeMoney:
			if req.Money == nil {
				return errors.New("money products need a money template")
			}
			currencyType := req.Money.CurrencyType
			if currencyType == "" {
				currencyType = models.CurrencyTypeVault
			}
			money := &models.GameMoney{
				ProductID:    product.ID,
				Amount:       req.Money.Amount,
				CurrencyType: currencyType,
				Command:      req.Money.Command,
			}
			if err := tx.Create(money).Error; err != nil {
				return fmt.Errorf("failed to create money template: %w", err)
			}

		case models.ProductTypePlugin:
			// Plugins get their artifact through UploadPluginVersion.
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditService.Log(&adminID, models.AuditActionAdminAction, "product", &product.ID, models.JSONB{
		"operation":    "create_product",
		"product_type": string(req.ProductType),
	})

	return s.GetProduct(product.ID)
}

func (s *ProductService) GetProduct(productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := s.db.Preload("Rank.Commands").
		Preload("GameItem").
		Preload("GameMoney").
		Preload("Versions").
		First(&product, productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (s *ProductService) SearchProducts(params *ProductSearchParams) (*utils.PaginationResult, error) {
	query := s.db.Model(&models.Product{})

	if params.Category != "" {
		query = query.Where("category = ?", params.Category)
	}
	if params.ProductType != nil {
		query = query.Where("product_type = ?", *params.ProductType)
	}
	if params.ActiveOnly {
		query = query.Where("active = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var products []models.Product
	query = utils.ApplySort(query, params.PaginationParams, []string{"created_at", "price", "name"})
	query = utils.ApplyPagination(query, params.PaginationParams)

	if err := query.Find(&products).Error; err != nil {
		return nil, err
	}

	result := utils.CreatePaginationResult(products, total, params.PaginationParams)
	return &result, nil
}

func (s *ProductService) SetProductActive(productID uuid.UUID, active bool) error {
	res := s.db.Model(&models.Product{}).Where("id = ?", productID).Update("active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UploadPluginVersion stores a jar and registers it as the product's new
// active version; earlier versions stay downloadable only through history.
func (s *ProductService) UploadPluginVersion(adminID, productID uuid.UUID, version, changelog string, file multipart.File, header *multipart.FileHeader) (*models.PluginVersion, error) {
	product, err := s.GetProduct(productID)
	if err != nil {
		return nil, err
	}
	if product.ProductType != models.ProductTypePlugin {
		return nil, fmt.Errorf("product %s is not a plugin", product.Name)
	}
	if version == "" {
		return nil, errors.New("version is required")
	}

	upload, err := s.storageService.UploadJar(file, header)
	if err != nil {
		return nil, err
	}

	pluginVersion := &models.PluginVersion{
		ProductID:   productID,
		Version:     version,
		JarFilePath: upload.Key,
		Changelog:   changelog,
		IsActive:    true,
	}

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.Model(&models.PluginVersion{}).
			Where("product_id = ?", productID).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Create(pluginVersion).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register plugin version: %w", err)
	}

	s.auditService.Log(&adminID, models.AuditActionPluginUploaded, "plugin_version", &pluginVersion.ID, models.JSONB{
		"product_id": productID.String(),
		"version":    version,
		"size":       upload.Size,
	})

	return pluginVersion, nil
}
