package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"smartroom/internal/service"
)

type AdminHandler struct {
	admin *service.AdminService
}

func NewAdminHandler(admin *service.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

func (h *AdminHandler) GetStats(c *gin.Context) {
	stats, err := h.admin.Stats(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
}

func (h *AdminHandler) SetRoomApproval(c *gin.Context) {
	var req struct {
		IsApproved *bool `json:"isApproved" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}

	room, err := h.admin.SetRoomApproval(c.Request.Context(), c.Param("id"), *req.IsApproved)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "room": room})
}

func (h *AdminHandler) VerifyOwner(c *gin.Context) {
	user, err := h.admin.VerifyOwner(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}
