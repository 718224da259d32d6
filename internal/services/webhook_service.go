// internal/services/webhook_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/PabloB07/mcshop/internal/flow"
	"github.com/PabloB07/mcshop/internal/models"
)

// WebhookService reconciles payment gateway notifications against orders.
// It is the only writer of Order.Status and must stay safe to re-invoke for
// any token: the gateway retries on non-200 and users can replay the return
// redirect, so every path through Reconcile has to be idempotent.
type WebhookService struct {
	db                 *gorm.DB
	flowClient         *flow.Client
	entitlementService *EntitlementService
	auditService       *AuditService
}

type ReconcileResult struct {
	OrderID       string             `json:"order_id"`
	CommerceOrder string             `json:"commerce_order"`
	Status        models.OrderStatus `json:"status"`
}

// tokenFieldNames lists the field-name variants the gateway has been observed
// to use for the payment token, in lookup priority order.
var tokenFieldNames = []string{"token", "Token", "TOKEN"}

func NewWebhookService(db *gorm.DB, flowClient *flow.Client, entitlementService *EntitlementService, auditService *AuditService) *WebhookService {
	return &WebhookService{
		db:                 db,
		flowClient:         flowClient,
		entitlementService: entitlementService,
		auditService:       auditService,
	}
}

// ExtractToken pulls the payment token out of a notification's parameters,
// accepting the case variants the gateway sends in the wild.
func ExtractToken(params map[string]string) (string, error) {
	for _, name := range tokenFieldNames {
		if v, ok := params[name]; ok && v != "" {
			return v, nil
		}
	}
	return "", ErrMissingToken
}

// Reconcile runs the full state machine for one notification token:
// resolve the order, ask the gateway for the authoritative status, apply it
// exactly once, and trigger entitlement materialization on payment.
func (s *WebhookService) Reconcile(ctx context.Context, token string) (*ReconcileResult, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	order, err := s.resolveOrder(ctx, token)
	if err != nil {
		return nil, err
	}

	status, err := s.flowClient.GetPaymentStatus(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to query payment status for order %s: %w", order.CommerceOrder, err)
	}

	target := determineOrderStatus(status)

	newlyPaid, err := s.applyStatus(order, target)
	if err != nil {
		return nil, err
	}

	// Materialize on every paid observation, not just the winning transition:
	// a crash between the status write and materialization leaves the gateway
	// retrying, and the materializer's own duplicate guards make re-runs safe.
	if order.Status == models.OrderStatusPaid {
		if err := s.entitlementService.MaterializeOrder(order); err != nil {
			return nil, fmt.Errorf("entitlement materialization failed for order %s: %w", order.CommerceOrder, err)
		}
	}

	if newlyPaid {
		s.auditService.Log(&order.UserID, models.AuditActionOrderPaid, "order", &order.ID, models.JSONB{
			"commerce_order": order.CommerceOrder,
			"amount":         order.Total,
			"status":         string(target),
		})
	}

	return &ReconcileResult{
		OrderID:       order.ID.String(),
		CommerceOrder: order.CommerceOrder,
		Status:        order.Status,
	}, nil
}

// resolveOrder finds the order a token belongs to. Primary path is the stored
// token; if the token was never persisted (the checkout-time update is allowed
// to fail) we ask the gateway which commerce order the token belongs to and
// resolve by that business key, backfilling the token best-effort.
func (s *WebhookService) resolveOrder(ctx context.Context, token string) (*models.Order, error) {
	var order models.Order
	err := s.db.Preload("Items.Product").Where("flow_token = ?", token).First(&order).Error
	if err == nil {
		return &order, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	status, err := s.flowClient.GetPaymentStatus(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("token lookup fallback failed: %w", err)
	}
	if status.CommerceOrder == "" {
		return nil, ErrOrderNotFound
	}

	err = s.db.Preload("Items.Product").Where("commerce_order = ?", status.CommerceOrder).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	// Backfill so future notifications take the direct path. Non-fatal.
	if err := s.db.Model(&order).Update("flow_token", token).Error; err != nil {
		logrus.WithFields(logrus.Fields{
			"order_id":       order.ID,
			"commerce_order": order.CommerceOrder,
			"error":          err,
		}).Warn("Failed to backfill flow token on order")
	} else {
		order.FlowToken = token
	}

	return &order, nil
}

// applyStatus writes the target status onto the order. Terminal states are
// sticky: once paid/cancelled/rejected the order never moves again, so a
// replayed notification is a no-op. Returns whether this call is the one that
// moved the order from pending to paid.
func (s *WebhookService) applyStatus(order *models.Order, target models.OrderStatus) (bool, error) {
	if order.Status.IsTerminal() {
		return false, nil
	}
	if target == order.Status {
		return false, nil
	}

	// The WHERE guard makes the transition single-winner under concurrent
	// deliveries of the same notification.
	res := s.db.Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, models.OrderStatusPending).
		Update("status", target)
	if res.Error != nil {
		return false, fmt.Errorf("failed to update order status: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		// Lost the race; re-read so the response reflects reality.
		if err := s.db.First(order, order.ID).Error; err != nil {
			return false, err
		}
		return false, nil
	}

	order.Status = target
	return target == models.OrderStatusPaid, nil
}

// determineOrderStatus maps a gateway status onto the order state machine.
// Settlement info wins over the numeric code: the gateway has been seen
// reporting status 2 for payments whose funds nonetheless transferred.
func determineOrderStatus(status *flow.PaymentStatus) models.OrderStatus {
	if status.Settled() {
		return models.OrderStatusPaid
	}

	switch status.Status {
	case flow.StatusPaid:
		return models.OrderStatusPaid
	case flow.StatusCancelled:
		return models.OrderStatusCancelled
	case flow.StatusRejected:
		return models.OrderStatusRejected
	default:
		return models.OrderStatusPending
	}
}
