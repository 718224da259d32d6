// internal/services/order_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/PabloB07/mcshop/internal/database"
	"github.com/PabloB07/mcshop/internal/models"
	"github.com/PabloB07/mcshop/internal/utils"
)

type OrderService struct {
	db           *gorm.DB
	auditService *AuditService
}

type CreateOrderItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1,max=100"`
}

type CreateOrderRequest struct {
	Items             []CreateOrderItemRequest `json:"items" validate:"required,min=1,dive"`
	MinecraftUsername string                   `json:"minecraft_username" validate:"required,mc_username"`
	MinecraftUUID     string                   `json:"minecraft_uuid" validate:"required,uuid"`
	ServerID          *uuid.UUID               `json:"server_id,omitempty"`
}

type OrderSearchParams struct {
	utils.PaginationParams
	UserID *uuid.UUID          `json:"user_id,omitempty"`
	Status *models.OrderStatus `json:"status,omitempty"`
}

func NewOrderService(db *gorm.DB, auditService *AuditService) *OrderService {
	return &OrderService{
		db:           db,
		auditService: auditService,
	}
}

// CreateOrder builds a pending order from the cart contents. Prices are
// snapshotted from the catalog at this moment; the commerce order key is
// generated here and never changes afterwards.
func (s *OrderService) CreateOrder(userID uuid.UUID, req *CreateOrderRequest) (*models.Order, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}
	if user.Status != models.UserStatusActive {
		return nil, errors.New("user account is not active")
	}

	if req.ServerID != nil {
		var server models.MinecraftServer
		if err := s.db.First(&server, *req.ServerID).Error; err != nil {
			return nil, fmt.Errorf("server not found: %w", err)
		}
		if !server.Active {
			return nil, ErrServerInactive
		}
	}

	var order *models.Order
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var total int64
		var items []models.OrderItem

		for _, item := range req.Items {
			var product models.Product
			if err := tx.First(&product, item.ProductID).Error; err != nil {
				return fmt.Errorf("product %s not found: %w", item.ProductID, err)
			}
			if !product.Active {
				return fmt.Errorf("product %s is not available for purchase", product.Name)
			}

			total += product.Price * int64(item.Quantity)
			items = append(items, models.OrderItem{
				ProductID: product.ID,
				Quantity:  item.Quantity,
				Price:     product.Price,
			})
		}

		order = &models.Order{
			UserID:        userID,
			Total:         total,
			Currency:      "CLP",
			Status:        models.OrderStatusPending,
			CommerceOrder: generateCommerceOrder(),
			Items:         items,
		}

		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		// The fulfillment record rides along from checkout so the dispatcher
		// knows the target player once the payment confirms.
		minecraftOrder := &models.MinecraftOrder{
			OrderID:           order.ID,
			ServerID:          req.ServerID,
			MinecraftUsername: req.MinecraftUsername,
			MinecraftUUID:     req.MinecraftUUID,
			Status:            models.MinecraftOrderStatusPending,
		}

		if err := tx.Create(minecraftOrder).Error; err != nil {
			return fmt.Errorf("failed to create minecraft order: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditService.Log(&userID, models.AuditActionOrderCreated, "order", &order.ID, models.JSONB{
		"commerce_order": order.CommerceOrder,
		"total":          order.Total,
		"items":          len(order.Items),
	})

	return order, nil
}

func (s *OrderService) GetOrder(orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := s.db.Preload("Items.Product").Preload("MinecraftOrders").First(&order, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (s *OrderService) GetOrderForUser(orderID, userID uuid.UUID) (*models.Order, error) {
	order, err := s.GetOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrForbidden
	}
	return order, nil
}

func (s *OrderService) GetOrderByCommerceOrder(commerceOrder string) (*models.Order, error) {
	var order models.Order
	err := s.db.Preload("Items.Product").Where("commerce_order = ?", commerceOrder).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (s *OrderService) GetOrderByFlowToken(token string) (*models.Order, error) {
	var order models.Order
	err := s.db.Preload("Items.Product").Where("flow_token = ?", token).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (s *OrderService) SearchOrders(params *OrderSearchParams) (*utils.PaginationResult, error) {
	query := s.db.Model(&models.Order{}).Preload("Items.Product")

	if params.UserID != nil {
		query = query.Where("user_id = ?", *params.UserID)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var orders []models.Order
	query = utils.ApplySort(query, params.PaginationParams, []string{"created_at", "total", "status"})
	query = utils.ApplyPagination(query, params.PaginationParams)

	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}

	result := utils.CreatePaginationResult(orders, total, params.PaginationParams)
	return &result, nil
}

// generateCommerceOrder produces the business key sent to the payment gateway.
// It must be unique per checkout attempt; the unix timestamp plus a short
// random suffix keeps it readable in the gateway's dashboard.
func generateCommerceOrder() string {
	suffix, err := utils.RandomDigits(4)
	if err != nil {
		suffix = "0000"
	}
	return fmt.Sprintf("ORDER-%d-%s", time.Now().Unix(), suffix)
}
