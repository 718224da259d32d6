// internal/handlers/license.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/PabloB07/mcshop/internal/services"
	"github.com/PabloB07/mcshop/internal/utils"
)

type LicenseHandler struct {
	licenseService *services.LicenseService
}

func NewLicenseHandler(licenseService *services.LicenseService) *LicenseHandler {
	return &LicenseHandler{
		licenseService: licenseService,
	}
}

// Verify is public: plugin installers check their key before first boot.
//
// GET /licenses/verify/:key
func (h *LicenseHandler) Verify(c *gin.Context) {
	verification, err := h.licenseService.VerifyLicense(c.Param("key"))
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to verify license")
		return
	}

	utils.SuccessResponse(c, verification)
}

// GET /licenses
func (h *LicenseHandler) ListMyLicenses(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication required")
		return
	}

	result, err := h.licenseService.GetUserLicenses(userID, utils.GetPaginationParams(c))
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to load licenses")
		return
	}

	utils.PaginatedResponse(c, *result)
}
