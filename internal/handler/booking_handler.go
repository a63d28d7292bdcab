package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"smartroom/internal/models"
	"smartroom/internal/service"
)

type BookingHandler struct {
	bookings *service.BookingService
}

func NewBookingHandler(bookings *service.BookingService) *BookingHandler {
	return &BookingHandler{bookings: bookings}
}

func (h *BookingHandler) Create(c *gin.Context) {
	var req struct {
		RoomID    string    `json:"roomId" binding:"required"`
		VisitDate time.Time `json:"visitDate" binding:"required"`
		Message   string    `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}

	booking, err := h.bookings.CreateBooking(c.Request.Context(), req.RoomID, req.VisitDate, req.Message, c.GetString("userID"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "booking": booking})
}

func (h *BookingHandler) ListMine(c *gin.Context) {
	bookings, err := h.bookings.ListForUser(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "bookings": bookings})
}

func (h *BookingHandler) ListForOwner(c *gin.Context) {
	bookings, err := h.bookings.ListForOwner(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "bookings": bookings})
}

func (h *BookingHandler) UpdateStatus(c *gin.Context) {
	var req struct {
		Status models.BookingStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}

	booking, err := h.bookings.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status, c.GetString("userID"), models.ToRole(c.GetString("role")))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "booking": booking})
}
