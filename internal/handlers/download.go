// internal/handlers/download.go
package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/PabloB07/mcshop/internal/services"
	"github.com/PabloB07/mcshop/internal/utils"
)

type DownloadHandler struct {
	downloadService *services.DownloadService
}

func NewDownloadHandler(downloadService *services.DownloadService) *DownloadHandler {
	return &DownloadHandler{
		downloadService: downloadService,
	}
}

// Redeem serves a purchased artifact for a single-use token. This is the one
// surface a human consumes directly, so the error messages are in Spanish.
//
// GET /downloads/:token
func (h *DownloadHandler) Redeem(c *gin.Context) {
	token := c.Param("token")
	if !utils.IsValidDownloadToken(token) {
		utils.BadRequestResponse(c, "El enlace de descarga no es válido", nil)
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Debes iniciar sesión para descargar")
		return
	}

	artifact, err := h.downloadService.Redeem(token, userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			utils.NotFoundResponse(c, "La descarga no existe o el archivo no está disponible")
		case errors.Is(err, services.ErrForbidden):
			utils.ForbiddenResponse(c, "Esta descarga pertenece a otro usuario")
		case errors.Is(err, services.ErrLicenseInactive):
			utils.ForbiddenResponse(c, "Tu licencia ya no está activa")
		case errors.Is(err, services.ErrDownloadUsed):
			utils.GoneResponse(c, "Este enlace de descarga ya fue utilizado")
		case errors.Is(err, services.ErrDownloadExpired):
			utils.GoneResponse(c, "Este enlace de descarga ha expirado")
		default:
			logrus.WithFields(logrus.Fields{
				"user_id": userID,
				"error":   err,
			}).Error("Download redemption failed")
			utils.InternalErrorResponse(c, "No se pudo completar la descarga, intenta más tarde")
		}
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, artifact.FileName))
	c.Data(http.StatusOK, artifact.ContentType, artifact.Content)
}

// Generate mints a fresh single-use link for a product the user owns.
//
// POST /downloads/generate/:productId
func (h *DownloadHandler) Generate(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication required")
		return
	}

	productID, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid product ID", nil)
		return
	}

	grant, err := h.downloadService.GenerateDownload(userID, productID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrForbidden):
			utils.ForbiddenResponse(c, "No active license for this product")
		default:
			utils.InternalErrorResponse(c, "Failed to generate download")
		}
		return
	}

	utils.CreatedResponse(c, gin.H{
		"download_url": fmt.Sprintf("/downloads/%s", grant.DownloadToken),
		"expires_at":   grant.ExpiresAt,
	})
}
