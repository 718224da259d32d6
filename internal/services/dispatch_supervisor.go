// internal/services/dispatch_supervisor.go
package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/PabloB07/mcshop/internal/config"
	"github.com/PabloB07/mcshop/internal/models"
)

const supervisorBatchLimit = 50

// DispatchSupervisor periodically re-drives minecraft orders that are still
// pending or marked retrying. The dispatcher itself never retries; this loop
// is the only retry authority, and FulfillOrder's per-command success ledger
// keeps re-invocations from duplicating grants.
type DispatchSupervisor struct {
	db               *gorm.DB
	config           *config.Config
	minecraftService *MinecraftService
}

func NewDispatchSupervisor(db *gorm.DB, cfg *config.Config, minecraftService *MinecraftService) *DispatchSupervisor {
	return &DispatchSupervisor{
		db:               db,
		config:           cfg,
		minecraftService: minecraftService,
	}
}

// Run blocks until ctx is cancelled, sweeping on a fixed interval.
func (s *DispatchSupervisor) Run(ctx context.Context) {
	interval := time.Duration(s.config.Minecraft.SupervisorInterval) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}

	logrus.WithField("interval", interval).Info("Dispatch supervisor started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logrus.Info("Dispatch supervisor stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep picks up dispatchable orders and runs them sequentially. Server-push
// only applies to orders with an assigned server and a webhook URL; purely
// poll-driven orders are left for the plugin.
func (s *DispatchSupervisor) sweep(ctx context.Context) {
	var orders []models.MinecraftOrder
	err := s.db.Joins("JOIN orders ON orders.id = minecraft_orders.order_id").
		Joins("JOIN minecraft_servers ON minecraft_servers.id = minecraft_orders.server_id").
		Where("minecraft_orders.status IN ?", []models.MinecraftOrderStatus{
			models.MinecraftOrderStatusPending,
			models.MinecraftOrderStatusRetrying,
		}).
		Where("minecraft_orders.retry_count < ?", s.config.Minecraft.MaxRetries).
		Where("orders.status = ?", models.OrderStatusPaid).
		Where("minecraft_servers.active = ? AND minecraft_servers.webhook_url <> ''", true).
		Order("minecraft_orders.created_at ASC").
		Limit(supervisorBatchLimit).
		Find(&orders).Error
	if err != nil {
		logrus.WithError(err).Error("Dispatch supervisor sweep query failed")
		return
	}

	for _, mo := range orders {
		if ctx.Err() != nil {
			return
		}

		if err := s.minecraftService.FulfillOrder(ctx, mo.ID); err != nil {
			logrus.WithFields(logrus.Fields{
				"minecraft_order_id": mo.ID,
				"retry_count":        mo.RetryCount,
				"error":              err,
			}).Warn("Fulfillment attempt failed, will retry on a later sweep")
		}
	}
}
