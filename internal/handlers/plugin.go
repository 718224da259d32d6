// internal/handlers/plugin.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/PabloB07/mcshop/internal/middleware"
	"github.com/PabloB07/mcshop/internal/services"
	"github.com/PabloB07/mcshop/internal/utils"
)

// PluginHandler serves the endpoints called by the game-server plugin over
// the signed machine-to-machine channel.
type PluginHandler struct {
	minecraftService *services.MinecraftService
	licenseService   *services.LicenseService
}

func NewPluginHandler(minecraftService *services.MinecraftService, licenseService *services.LicenseService) *PluginHandler {
	return &PluginHandler{
		minecraftService: minecraftService,
		licenseService:   licenseService,
	}
}

// PendingOrders is the plugin's polling endpoint.
//
// GET /plugin/pending-orders
func (h *PluginHandler) PendingOrders(c *gin.Context) {
	server, ok := middleware.ServerFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication failed")
		return
	}

	orders, err := h.minecraftService.GetPendingOrders(server)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to load pending orders")
		return
	}

	utils.SuccessResponse(c, gin.H{"orders": orders})
}

// ReportExecution records the plugin's outcome for a single command.
//
// POST /plugin/execute
func (h *PluginHandler) ReportExecution(c *gin.Context) {
	server, ok := middleware.ServerFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication failed")
		return
	}

	var req services.CommandResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	if err := h.minecraftService.ReportCommandResult(server, &req); err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			utils.NotFoundResponse(c, "Executed command not found")
		case errors.Is(err, services.ErrForbidden):
			utils.ForbiddenResponse(c, "Command belongs to another server")
		default:
			utils.InternalErrorResponse(c, "Failed to record command result")
		}
		return
	}

	utils.SuccessResponse(c, gin.H{"recorded": true})
}

// ConfirmOrder is the plugin's final report on a fulfillment attempt.
//
// POST /plugin/confirm-order
func (h *PluginHandler) ConfirmOrder(c *gin.Context) {
	server, ok := middleware.ServerFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication failed")
		return
	}

	var req services.ConfirmOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	if err := h.minecraftService.ConfirmOrder(server, &req); err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			utils.NotFoundResponse(c, "Minecraft order not found")
		case errors.Is(err, services.ErrForbidden):
			utils.ForbiddenResponse(c, "Order belongs to another server")
		default:
			utils.InternalErrorResponse(c, "Failed to confirm order")
		}
		return
	}

	utils.SuccessResponse(c, gin.H{"confirmed": true})
}

// VerifyLicense lets a server plugin check a license key it was configured
// with (premium plugin installs).
//
// GET /plugin/license/:key
func (h *PluginHandler) VerifyLicense(c *gin.Context) {
	if _, ok := middleware.ServerFromContext(c); !ok {
		utils.UnauthorizedResponse(c, "Authentication failed")
		return
	}

	verification, err := h.licenseService.VerifyLicense(c.Param("key"))
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to verify license")
		return
	}

	utils.SuccessResponse(c, verification)
}
