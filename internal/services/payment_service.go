// internal/services/payment_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/PabloB07/mcshop/internal/config"
	"github.com/PabloB07/mcshop/internal/flow"
	"github.com/PabloB07/mcshop/internal/models"
)

type PaymentService struct {
	db         *gorm.DB
	config     *config.Config
	flowClient *flow.Client
}

type PaymentCreation struct {
	OrderID       uuid.UUID `json:"order_id"`
	CommerceOrder string    `json:"commerce_order"`
	Token         string    `json:"token"`
	RedirectURL   string    `json:"redirect_url"`
	FlowOrder     int64     `json:"flow_order"`
}

func NewPaymentService(db *gorm.DB, cfg *config.Config, flowClient *flow.Client) *PaymentService {
	return &PaymentService{
		db:         db,
		config:     cfg,
		flowClient: flowClient,
	}
}

// CreatePayment registers the order with the payment gateway and stores the
// issued token. The token write is what later lets the webhook resolve the
// order directly; if it fails we still return the redirect so the user can
// pay, and reconciliation falls back to the commerce order key.
func (s *PaymentService) CreatePayment(ctx context.Context, orderID, userID uuid.UUID) (*PaymentCreation, error) {
	var order models.Order
	if err := s.db.Preload("User").First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	if order.UserID != userID {
		return nil, ErrForbidden
	}
	if order.Status != models.OrderStatusPending {
		return nil, fmt.Errorf("order is already %s", order.Status)
	}

	resp, err := s.flowClient.CreatePaymentOrder(ctx, flow.PaymentOrder{
		CommerceOrder:   order.CommerceOrder,
		Subject:         fmt.Sprintf("MCShop order %s", order.CommerceOrder),
		Amount:          order.Total,
		Currency:        order.Currency,
		Email:           order.User.Email,
		URLReturn:       s.config.Server.PublicURL + "/api/v1/payments/finalize",
		URLConfirmation: s.config.Server.PublicURL + "/api/v1/webhooks/flow",
	})
	if err != nil {
		return nil, fmt.Errorf("payment gateway rejected order %s: %w", order.CommerceOrder, err)
	}

	update := map[string]interface{}{
		"flow_token": resp.Token,
		"flow_order": resp.FlowOrder,
	}
	if err := s.db.Model(&order).Updates(update).Error; err != nil {
		logrus.WithFields(logrus.Fields{
			"order_id":       order.ID,
			"commerce_order": order.CommerceOrder,
			"error":          err,
		}).Warn("Failed to persist flow token on order, webhook will resolve by commerce order")
	}

	return &PaymentCreation{
		OrderID:       order.ID,
		CommerceOrder: order.CommerceOrder,
		Token:         resp.Token,
		RedirectURL:   resp.RedirectURL(),
		FlowOrder:     resp.FlowOrder,
	}, nil
}

// GetPaymentStatus queries the gateway for the authoritative state of a
// payment. Used by the frontend's return page; it does not mutate the order,
// that is the reconciler's job.
func (s *PaymentService) GetPaymentStatus(ctx context.Context, orderID, userID uuid.UUID) (*flow.PaymentStatus, error) {
	var order models.Order
	if err := s.db.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	if order.UserID != userID {
		return nil, ErrForbidden
	}
	if order.FlowToken == "" {
		return nil, fmt.Errorf("order %s has no payment attempt", order.CommerceOrder)
	}

	return s.flowClient.GetPaymentStatus(ctx, order.FlowToken)
}

// RequestRefund opens a refund with the gateway for a paid order. The order
// status is left untouched here; refund settlement is an out-of-band process
// tracked by the operator against the gateway's own dashboard.
func (s *PaymentService) RequestRefund(ctx context.Context, orderID uuid.UUID, comment string) (*flow.RefundStatus, error) {
	var order models.Order
	if err := s.db.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	if order.Status != models.OrderStatusPaid {
		return nil, fmt.Errorf("cannot refund order in status %s", order.Status)
	}
	if order.FlowToken == "" {
		return nil, fmt.Errorf("order %s has no payment token", order.CommerceOrder)
	}

	refund, err := s.flowClient.CreateRefund(ctx, flow.RefundRequest{
		Token:   order.FlowToken,
		Amount:  order.Total,
		Comment: comment,
	})
	if err != nil {
		return nil, fmt.Errorf("refund request failed for order %s: %w", order.CommerceOrder, err)
	}

	return refund, nil
}
