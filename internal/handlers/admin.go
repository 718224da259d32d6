// internal/handlers/admin.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/PabloB07/mcshop/internal/models"
	"github.com/PabloB07/mcshop/internal/services"
	"github.com/PabloB07/mcshop/internal/utils"
)

type AdminHandler struct {
	serverService  *services.ServerService
	productService *services.ProductService
	licenseService *services.LicenseService
	paymentService *services.PaymentService
	orderService   *services.OrderService
	auditService   *services.AuditService
}

func NewAdminHandler(
	serverService *services.ServerService,
	productService *services.ProductService,
	licenseService *services.LicenseService,
	paymentService *services.PaymentService,
	orderService *services.OrderService,
	auditService *services.AuditService,
) *AdminHandler {
	return &AdminHandler{
		serverService:  serverService,
		productService: productService,
		licenseService: licenseService,
		paymentService: paymentService,
		orderService:   orderService,
		auditService:   auditService,
	}
}

// RegisterServer creates a fulfillment target. The response is the only place
// the API secret ever appears in cleartext.
//
// POST /admin/servers
func (h *AdminHandler) RegisterServer(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication required")
		return
	}

	var req services.RegisterServerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	registered, err := h.serverService.RegisterServer(adminID, &req)
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.CreatedResponse(c, registered)
}

// GET /admin/servers
func (h *AdminHandler) ListServers(c *gin.Context) {
	result, err := h.serverService.ListServers(utils.GetPaginationParams(c))
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to load servers")
		return
	}

	utils.PaginatedResponse(c, *result)
}

// PATCH /admin/servers/:id
func (h *AdminHandler) UpdateServer(c *gin.Context) {
	serverID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid server ID", nil)
		return
	}

	var req services.UpdateServerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	server, err := h.serverService.UpdateServer(serverID, &req)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.NotFoundResponse(c, "Server not found")
		} else {
			utils.BadRequestResponse(c, err.Error(), nil)
		}
		return
	}

	utils.SuccessResponse(c, server)
}

// POST /admin/servers/:id/rotate-secret
func (h *AdminHandler) RotateServerSecret(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication required")
		return
	}

	serverID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid server ID", nil)
		return
	}

	registered, err := h.serverService.RotateServerSecret(adminID, serverID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.NotFoundResponse(c, "Server not found")
		} else {
			utils.InternalErrorResponse(c, "Failed to rotate secret")
		}
		return
	}

	utils.SuccessResponse(c, registered)
}

// POST /admin/products
func (h *AdminHandler) CreateProduct(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication required")
		return
	}

	var req services.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	product, err := h.productService.CreateProduct(adminID, &req)
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.CreatedResponse(c, product)
}

// UploadPluginVersion receives a jar as multipart form data.
//
// POST /admin/products/:id/versions
func (h *AdminHandler) UploadPluginVersion(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication required")
		return
	}

	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid product ID", nil)
		return
	}

	file, header, err := c.Request.FormFile("jar")
	if err != nil {
		utils.BadRequestResponse(c, "Missing jar file", nil)
		return
	}
	defer file.Close()

	version := c.PostForm("version")
	changelog := c.PostForm("changelog")

	pluginVersion, err := h.productService.UploadPluginVersion(adminID, productID, version, changelog, file, header)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.NotFoundResponse(c, "Product not found")
		} else {
			utils.BadRequestResponse(c, err.Error(), nil)
		}
		return
	}

	utils.CreatedResponse(c, pluginVersion)
}

// POST /admin/licenses/:id/revoke
func (h *AdminHandler) RevokeLicense(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication required")
		return
	}

	licenseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid license ID", nil)
		return
	}

	if err := h.licenseService.RevokeLicense(adminID, licenseID); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.NotFoundResponse(c, "License not found")
		} else {
			utils.InternalErrorResponse(c, "Failed to revoke license")
		}
		return
	}

	utils.SuccessResponse(c, gin.H{"revoked": true})
}

// GET /admin/orders
func (h *AdminHandler) ListOrders(c *gin.Context) {
	params := &services.OrderSearchParams{
		PaginationParams: utils.GetPaginationParams(c),
	}

	if status := c.Query("status"); status != "" {
		orderStatus := models.OrderStatus(status)
		params.Status = &orderStatus
	}

	result, err := h.orderService.SearchOrders(params)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to load orders")
		return
	}

	utils.PaginatedResponse(c, *result)
}

// POST /admin/orders/:id/refund
func (h *AdminHandler) RefundOrder(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid order ID", nil)
		return
	}

	var req struct {
		Comment string `json:"comment,omitempty"`
	}
	_ = c.ShouldBindJSON(&req)

	refund, err := h.paymentService.RequestRefund(c.Request.Context(), orderID, req.Comment)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			utils.NotFoundResponse(c, "Order not found")
		} else {
			utils.BadRequestResponse(c, err.Error(), nil)
		}
		return
	}

	utils.SuccessResponse(c, refund)
}

// GET /admin/audit-logs
func (h *AdminHandler) ListAuditLogs(c *gin.Context) {
	params := &services.AuditSearchParams{
		PaginationParams: utils.GetPaginationParams(c),
		ResourceType:     c.Query("resource_type"),
	}

	if action := c.Query("action"); action != "" {
		auditAction := models.AuditAction(action)
		params.Action = &auditAction
	}
	if userID := c.Query("user_id"); userID != "" {
		if parsed, err := uuid.Parse(userID); err == nil {
			params.UserID = &parsed
		}
	}

	result, err := h.auditService.Search(params)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to load audit logs")
		return
	}

	utils.PaginatedResponse(c, *result)
}
