// internal/services/minecraft_service.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/PabloB07/mcshop/internal/config"
	"github.com/PabloB07/mcshop/internal/flow"
	"github.com/PabloB07/mcshop/internal/models"
)

const pendingOrderBatchLimit = 10

// ErrNoDeliveryChannel is returned when a server has no webhook URL. RCON is
// accepted at registration time as a forward-compatible field but there is no
// RCON client yet; such servers rely on the plugin's polling path.
var ErrNoDeliveryChannel = errors.New("server has no supported delivery channel")

// MinecraftService dispatches fulfillment commands to game servers and
// receives the plugin's execution reports back.
type MinecraftService struct {
	db           *gorm.DB
	config       *config.Config
	auditService *AuditService
	httpClient   *http.Client
}

// commandSpec is one rendered command ready for dispatch.
type commandSpec struct {
	Command     string
	CommandType models.CommandType
}

// dispatchPayload is the body pushed to a server's webhook URL.
type dispatchPayload struct {
	ExecutedCommandID string `json:"executed_command_id"`
	MinecraftOrderID  string `json:"minecraft_order_id"`
	Command           string `json:"command"`
	CommandType       string `json:"command_type"`
	Username          string `json:"username"`
	UUID              string `json:"uuid"`
}

// dispatchResult is what the plugin answers to a pushed command.
type dispatchResult struct {
	Success  bool   `json:"success"`
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

type CommandResultRequest struct {
	ExecutedCommandID uuid.UUID `json:"executed_command_id" validate:"required"`
	Success           bool      `json:"success"`
	Response          string    `json:"response,omitempty"`
	Error             string    `json:"error,omitempty"`
}

type ConfirmOrderRequest struct {
	MinecraftOrderID uuid.UUID `json:"minecraft_order_id" validate:"required"`
	Success          bool      `json:"success"`
	ErrorMessage     string    `json:"error_message,omitempty"`
}

// PendingOrderView is one entry of the plugin's polling response: the
// fulfillment target plus everything needed to run the grants locally.
type PendingOrderView struct {
	MinecraftOrderID  string             `json:"minecraft_order_id"`
	OrderID           string             `json:"order_id"`
	MinecraftUsername string             `json:"minecraft_username"`
	MinecraftUUID     string             `json:"minecraft_uuid"`
	RetryCount        int                `json:"retry_count"`
	Items             []PendingOrderItem `json:"items"`
}

type PendingOrderItem struct {
	ProductID   string             `json:"product_id"`
	ProductName string             `json:"product_name"`
	ProductType models.ProductType `json:"product_type"`
	Quantity    int                `json:"quantity"`
	Commands    []string           `json:"commands"`
}

func NewMinecraftService(db *gorm.DB, cfg *config.Config, auditService *AuditService) *MinecraftService {
	timeout := time.Duration(cfg.Minecraft.DispatchTimeout) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &MinecraftService{
		db:           db,
		config:       cfg,
		auditService: auditService,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// FulfillOrder resolves every line item of a minecraft order into commands and
// dispatches them. Commands that already succeeded in an earlier attempt are
// skipped, so retrying a half-finished order cannot double-grant items.
func (s *MinecraftService) FulfillOrder(ctx context.Context, minecraftOrderID uuid.UUID) error {
	var mo models.MinecraftOrder
	err := s.db.Preload("Order.Items.Product.Rank.Commands").
		Preload("Order.Items.Product.GameItem").
		Preload("Order.Items.Product.GameMoney").
		Preload("Server").
		First(&mo, minecraftOrderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	if mo.Order.Status != models.OrderStatusPaid {
		return fmt.Errorf("order %s is not paid", mo.Order.CommerceOrder)
	}
	if mo.Status == models.MinecraftOrderStatusApplied {
		return nil
	}
	if mo.Server == nil {
		// No assigned server: the plugin's polling path owns this order.
		return nil
	}
	if !mo.Server.Active {
		return ErrServerInactive
	}

	// Per-item dispatch continues past failures; the order fails with the
	// last error observed, matching the batch semantics inside each item.
	var lastErr error
	for _, item := range mo.Order.Items {
		if err := s.applyItemGrant(ctx, &mo, &item); err != nil {
			lastErr = err
		}
	}

	if lastErr != nil {
		s.recordOrderFailure(&mo, lastErr)
		return lastErr
	}
	return s.markOrderApplied(&mo)
}

// applyItemGrant dispatches one line item through its product-type channel.
func (s *MinecraftService) applyItemGrant(ctx context.Context, mo *models.MinecraftOrder, item *models.OrderItem) error {
	product := item.Product
	switch product.ProductType {
	case models.ProductTypeRank:
		if product.Rank == nil {
			return fmt.Errorf("rank product %s has no rank template", product.ID)
		}
		return s.ApplyRank(ctx, mo.Server, mo, product.Rank)

	case models.ProductTypeItem:
		if product.GameItem == nil {
			return fmt.Errorf("item product %s has no item template", product.ID)
		}
		return s.ApplyItem(ctx, mo.Server, mo, product.GameItem, item.Quantity)

	case models.ProductTypeMoney:
		if product.GameMoney == nil {
			return fmt.Errorf("money product %s has no money template", product.ID)
		}
		return s.ApplyMoney(ctx, mo.Server, mo, product.GameMoney, item.Quantity)
	}

	// Plugins are fulfilled through download grants, nothing to run on the
	// server.
	return nil
}

// ApplyRank dispatches a single rank grant to a server. The batch carries the
// rank's commands in their declared execution order.
func (s *MinecraftService) ApplyRank(ctx context.Context, server *models.MinecraftServer, mo *models.MinecraftOrder, rank *models.Rank) error {
	return s.dispatchBatch(ctx, server, mo, buildRankCommands(rank, mo.MinecraftUsername, mo.MinecraftUUID))
}

// ApplyItem dispatches a single item grant.
func (s *MinecraftService) ApplyItem(ctx context.Context, server *models.MinecraftServer, mo *models.MinecraftOrder, item *models.GameItem, quantity int) error {
	return s.dispatchBatch(ctx, server, mo, buildItemCommands(item, mo.MinecraftUsername, mo.MinecraftUUID, quantity))
}

// ApplyMoney dispatches a single currency grant.
func (s *MinecraftService) ApplyMoney(ctx context.Context, server *models.MinecraftServer, mo *models.MinecraftOrder, money *models.GameMoney, quantity int) error {
	return s.dispatchBatch(ctx, server, mo, []commandSpec{buildMoneyCommand(money, mo.MinecraftUsername, mo.MinecraftUUID, quantity)})
}

// buildOrderCommands renders the full command list for an order, in line item
// order, honoring each rank's execution_order.
func (s *MinecraftService) buildOrderCommands(mo *models.MinecraftOrder) ([]commandSpec, error) {
	var specs []commandSpec

	for _, item := range mo.Order.Items {
		product := item.Product
		switch product.ProductType {
		case models.ProductTypeRank:
			if product.Rank == nil {
				return nil, fmt.Errorf("rank product %s has no rank template", product.ID)
			}
			specs = append(specs, buildRankCommands(product.Rank, mo.MinecraftUsername, mo.MinecraftUUID)...)

		case models.ProductTypeItem:
			if product.GameItem == nil {
				return nil, fmt.Errorf("item product %s has no item template", product.ID)
			}
			specs = append(specs, buildItemCommands(product.GameItem, mo.MinecraftUsername, mo.MinecraftUUID, item.Quantity)...)

		case models.ProductTypeMoney:
			if product.GameMoney == nil {
				return nil, fmt.Errorf("money product %s has no money template", product.ID)
			}
			specs = append(specs, buildMoneyCommand(product.GameMoney, mo.MinecraftUsername, mo.MinecraftUUID, item.Quantity))

		case models.ProductTypePlugin:
			// Plugins are fulfilled through download grants, nothing to run
			// on the server.
		}
	}

	return specs, nil
}

// dispatchBatch sends the commands in declared order. Each command gets a
// pending ExecutedCommand row before the remote call; a mid-batch failure does
// not stop later commands, and the batch error is the last one observed.
func (s *MinecraftService) dispatchBatch(ctx context.Context, server *models.MinecraftServer, mo *models.MinecraftOrder, commands []commandSpec) error {
	applied, err := s.succeededCommands(mo.ID)
	if err != nil {
		return err
	}

	var lastErr error

	for _, spec := range commands {
		if applied[spec.Command] {
			continue
		}

		record := &models.ExecutedCommand{
			MinecraftOrderID: mo.ID,
			ServerID:         server.ID,
			Command:          spec.Command,
			CommandType:      spec.CommandType,
			Status:           models.CommandStatusPending,
		}
		if err := s.db.Create(record).Error; err != nil {
			return fmt.Errorf("failed to record command before dispatch: %w", err)
		}

		result, err := s.pushCommand(ctx, server, mo, record)
		now := time.Now()

		if err != nil {
			lastErr = err
			s.db.Model(record).Updates(map[string]interface{}{
				"status":        models.CommandStatusFailed,
				"error_message": err.Error(),
				"executed_at":   now,
			})
			continue
		}

		if result.Success {
			s.db.Model(record).Updates(map[string]interface{}{
				"status":      models.CommandStatusSuccess,
				"response":    result.Response,
				"executed_at": now,
			})
		} else {
			lastErr = fmt.Errorf("command rejected by server: %s", result.Error)
			s.db.Model(record).Updates(map[string]interface{}{
				"status":        models.CommandStatusFailed,
				"response":      result.Response,
				"error_message": result.Error,
				"executed_at":   now,
			})
		}
	}

	return lastErr
}

// pushCommand delivers one command over the server's webhook channel, signed
// with the server's shared secret so the plugin can verify origin.
func (s *MinecraftService) pushCommand(ctx context.Context, server *models.MinecraftServer, mo *models.MinecraftOrder, record *models.ExecutedCommand) (*dispatchResult, error) {
	if server.WebhookURL == "" {
		return nil, ErrNoDeliveryChannel
	}

	payload := dispatchPayload{
		ExecutedCommandID: record.ID.String(),
		MinecraftOrderID:  mo.ID.String(),
		Command:           record.Command,
		CommandType:       string(record.CommandType),
		Username:          mo.MinecraftUsername,
		UUID:              mo.MinecraftUUID,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode dispatch payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, server.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build dispatch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", server.APIKey)
	req.Header.Set("X-Signature", flow.SignBody(body, server.APISecret))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		// Timeouts land here; the command stays failed, never pending.
		return nil, fmt.Errorf("dispatch to %s failed: %w", server.Name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading dispatch response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server %s answered %d: %s", server.Name, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var result dispatchResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("invalid dispatch response from %s: %w", server.Name, err)
	}
	return &result, nil
}

// succeededCommands returns the set of command strings already confirmed
// successful for a minecraft order. Retries consult this set so item and
// money grants are never re-executed.
func (s *MinecraftService) succeededCommands(minecraftOrderID uuid.UUID) (map[string]bool, error) {
	var done []models.ExecutedCommand
	err := s.db.Where("minecraft_order_id = ? AND status = ?", minecraftOrderID, models.CommandStatusSuccess).
		Find(&done).Error
	if err != nil {
		return nil, err
	}

	applied := make(map[string]bool, len(done))
	for _, cmd := range done {
		applied[cmd.Command] = true
	}
	return applied, nil
}

func (s *MinecraftService) markOrderApplied(mo *models.MinecraftOrder) error {
	now := time.Now()
	return s.db.Model(mo).Updates(map[string]interface{}{
		"status":        models.MinecraftOrderStatusApplied,
		"applied_at":    now,
		"error_message": "",
	}).Error
}

func (s *MinecraftService) recordOrderFailure(mo *models.MinecraftOrder, cause error) {
	status := models.MinecraftOrderStatusRetrying
	if mo.RetryCount+1 >= s.config.Minecraft.MaxRetries {
		status = models.MinecraftOrderStatusFailed
	}

	err := s.db.Model(mo).Updates(map[string]interface{}{
		"status":        status,
		"retry_count":   gorm.Expr("retry_count + 1"),
		"error_message": cause.Error(),
	}).Error
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"minecraft_order_id": mo.ID,
			"error":              err,
		}).Error("Failed to record minecraft order failure")
	}
}

// GetPendingOrders is the plugin's polling endpoint: the oldest pending
// orders for the calling server (or unassigned ones), expanded with their
// rendered command lists.
func (s *MinecraftService) GetPendingOrders(server *models.MinecraftServer) ([]PendingOrderView, error) {
	var orders []models.MinecraftOrder
	err := s.db.Preload("Order.Items.Product.Rank.Commands").
		Preload("Order.Items.Product.GameItem").
		Preload("Order.Items.Product.GameMoney").
		Joins("JOIN orders ON orders.id = minecraft_orders.order_id").
		Where("minecraft_orders.status = ?", models.MinecraftOrderStatusPending).
		Where("minecraft_orders.server_id = ? OR minecraft_orders.server_id IS NULL", server.ID).
		Where("orders.status = ?", models.OrderStatusPaid).
		Order("minecraft_orders.created_at ASC").
		Limit(pendingOrderBatchLimit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}

	views := make([]PendingOrderView, 0, len(orders))
	for _, mo := range orders {
		view := PendingOrderView{
			MinecraftOrderID:  mo.ID.String(),
			OrderID:           mo.OrderID.String(),
			MinecraftUsername: mo.MinecraftUsername,
			MinecraftUUID:     mo.MinecraftUUID,
			RetryCount:        mo.RetryCount,
		}

		for _, item := range mo.Order.Items {
			entry := PendingOrderItem{
				ProductID:   item.ProductID.String(),
				ProductName: item.Product.Name,
				ProductType: item.Product.ProductType,
				Quantity:    item.Quantity,
			}

			specs, err := s.buildOrderCommandsForItem(&mo, &item)
			if err != nil {
				logrus.WithFields(logrus.Fields{
					"minecraft_order_id": mo.ID,
					"product_id":         item.ProductID,
					"error":              err,
				}).Warn("Skipping item with unrenderable commands in pending orders")
				continue
			}
			for _, spec := range specs {
				entry.Commands = append(entry.Commands, spec.Command)
			}

			view.Items = append(view.Items, entry)
		}

		views = append(views, view)
	}

	return views, nil
}

func (s *MinecraftService) buildOrderCommandsForItem(mo *models.MinecraftOrder, item *models.OrderItem) ([]commandSpec, error) {
	scoped := *mo
	scoped.Order.Items = []models.OrderItem{*item}
	return s.buildOrderCommands(&scoped)
}

// ReportCommandResult records the plugin's own execution outcome for a
// command, whether it was pushed or picked up by polling.
func (s *MinecraftService) ReportCommandResult(server *models.MinecraftServer, req *CommandResultRequest) error {
	var record models.ExecutedCommand
	if err := s.db.First(&record, req.ExecutedCommandID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	if record.ServerID != server.ID {
		return ErrForbidden
	}

	status := models.CommandStatusFailed
	if req.Success {
		status = models.CommandStatusSuccess
	}

	now := time.Now()
	return s.db.Model(&record).Updates(map[string]interface{}{
		"status":        status,
		"response":      req.Response,
		"error_message": req.Error,
		"executed_at":   now,
	}).Error
}

// ConfirmOrder is the plugin's final word on a fulfillment attempt.
func (s *MinecraftService) ConfirmOrder(server *models.MinecraftServer, req *ConfirmOrderRequest) error {
	var mo models.MinecraftOrder
	if err := s.db.First(&mo, req.MinecraftOrderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	if mo.ServerID != nil && *mo.ServerID != server.ID {
		return ErrForbidden
	}

	if req.Success {
		// An unassigned order is claimed by whichever server confirms it.
		now := time.Now()
		updates := map[string]interface{}{
			"status":        models.MinecraftOrderStatusApplied,
			"applied_at":    now,
			"error_message": "",
		}
		if mo.ServerID == nil {
			updates["server_id"] = server.ID
		}
		return s.db.Model(&mo).Updates(updates).Error
	}

	s.recordOrderFailure(&mo, errors.New(req.ErrorMessage))
	return nil
}

// Command template rendering. Placeholders are an explicit allow-list and the
// values are substituted verbatim; minecraft usernames are constrained to
// [A-Za-z0-9_] at checkout, which is what keeps substitution injection-safe.

func renderCommand(template string, vars map[string]string) string {
	out := template
	for name, value := range vars {
		out = strings.ReplaceAll(out, "{"+name+"}", value)
	}
	return out
}

func buildRankCommands(rank *models.Rank, username, playerUUID string) []commandSpec {
	vars := map[string]string{
		"username": username,
		"uuid":     playerUUID,
		"group":    rank.LuckPermsGroup,
	}

	commands := append([]models.RankCommand(nil), rank.Commands...)
	sortRankCommands(commands)

	if len(commands) == 0 {
		return []commandSpec{{
			Command:     renderCommand("lp user {username} parent set {group}", vars),
			CommandType: models.CommandTypeLuckPerms,
		}}
	}

	specs := make([]commandSpec, 0, len(commands))
	for _, cmd := range commands {
		specs = append(specs, commandSpec{
			Command:     renderCommand(cmd.Command, vars),
			CommandType: cmd.CommandType,
		})
	}
	return specs
}

func buildItemCommands(item *models.GameItem, username, playerUUID string, quantity int) []commandSpec {
	total := item.Quantity * quantity
	if total <= 0 {
		total = quantity
	}
	vars := map[string]string{
		"username": username,
		"uuid":     playerUUID,
		"item":     item.ItemID,
		"quantity": strconv.Itoa(total),
	}

	if len(item.Commands) == 0 {
		return []commandSpec{{
			Command:     renderCommand("give {username} {item} {quantity}", vars),
			CommandType: models.CommandTypeConsole,
		}}
	}

	specs := make([]commandSpec, 0, len(item.Commands))
	for _, template := range item.Commands {
		specs = append(specs, commandSpec{
			Command:     renderCommand(template, vars),
			CommandType: models.CommandTypeConsole,
		})
	}
	return specs
}

func buildMoneyCommand(money *models.GameMoney, username, playerUUID string, quantity int) commandSpec {
	amount := money.Amount * int64(quantity)
	vars := map[string]string{
		"username": username,
		"uuid":     playerUUID,
		"amount":   strconv.FormatInt(amount, 10),
	}

	template := money.Command
	if template == "" {
		switch money.CurrencyType {
		case models.CurrencyTypePlayerPoints:
			template = "points give {username} {amount}"
		default:
			template = "eco give {username} {amount}"
		}
	}

	return commandSpec{
		Command:     renderCommand(template, vars),
		CommandType: models.CommandTypeConsole,
	}
}

// sortRankCommands orders by execution_order ascending; later commands may
// depend on permission state set up by earlier ones.
func sortRankCommands(commands []models.RankCommand) {
	sort.SliceStable(commands, func(i, j int) bool {
		return commands[i].ExecutionOrder < commands[j].ExecutionOrder
	})
}
