// internal/handlers/minecraft.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/PabloB07/mcshop/internal/services"
	"github.com/PabloB07/mcshop/internal/utils"
)

type MinecraftHandler struct {
	mojangService *services.MojangService
}

func NewMinecraftHandler(mojangService *services.MojangService) *MinecraftHandler {
	return &MinecraftHandler{
		mojangService: mojangService,
	}
}

// ValidateUsername resolves a username against Mojang so checkout can store
// the canonical UUID and show the player's avatar.
//
// GET /minecraft/validate/:username
func (h *MinecraftHandler) ValidateUsername(c *gin.Context) {
	profile, err := h.mojangService.ResolveUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.NotFoundResponse(c, "Minecraft account not found")
		} else {
			utils.BadRequestResponse(c, err.Error(), nil)
		}
		return
	}

	utils.SuccessResponse(c, profile)
}
