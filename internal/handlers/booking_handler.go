package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tyreworks/internal/pdf"
	"tyreworks/internal/repositories"
	"tyreworks/internal/services"
)

type BookingHandler struct {
	Service  *services.BookingService
	Bookings *repositories.BookingRepository
	Payments *repositories.PaymentRepository
	Jobs     *repositories.NotificationJobRepository
	Docs     pdf.Generator
}

func NewBookingHandler(service *services.BookingService, bookings *repositories.BookingRepository, payments *repositories.PaymentRepository, jobs *repositories.NotificationJobRepository, docs pdf.Generator) *BookingHandler {
	return &BookingHandler{Service: service, Bookings: bookings, Payments: payments, Jobs: jobs, Docs: docs}
}

// @Summary      Create a booking
// @Description  Reserves a pending slot. Requires a recent OTP verification for the same email.
// @Tags         Bookings
// @Accept       json
// @Produce      json
// @Param        booking  body      services.CreateBookingRequest  true  "Booking details"
// @Success      201      {object}  models.Booking
// @Failure      400      {object}  map[string]string
// @Failure      401      {object}  map[string]string
// @Router       /bookings [post]
func (h *BookingHandler) Create(c *gin.Context) {
	var req services.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	b, err := h.Service.Create(&req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

func (h *BookingHandler) GetByID(c *gin.Context) {
	b, err := h.Bookings.GetByID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if b == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "booking not found"})
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	list, err := h.Bookings.List(limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary      Confirm a pending booking
// @Tags         Bookings
// @Produce      json
// @Param        id   path      string  true  "Booking ID"
// @Success      200  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /admin/bookings/{id}/confirm [post]
func (h *BookingHandler) Confirm(c *gin.Context) {
	staffID, _ := staffFromCtx(c)
	if err := h.Service.Confirm(c.Param("id"), staffID); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "booking confirmed"})
}

func (h *BookingHandler) Reject(c *gin.Context) {
	var body struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	staffID, _ := staffFromCtx(c)
	if err := h.Service.Reject(c.Param("id"), staffID, body.Reason); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "booking rejected"})
}

func (h *BookingHandler) Cancel(c *gin.Context) {
	staffID, _ := staffFromCtx(c)
	if err := h.Service.Cancel(c.Param("id"), staffID); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "booking cancelled"})
}

func (h *BookingHandler) Complete(c *gin.Context) {
	staffID, _ := staffFromCtx(c)
	if err := h.Service.MarkCompleted(c.Param("id"), staffID); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "booking completed"})
}

func (h *BookingHandler) Delete(c *gin.Context) {
	n, err := h.Bookings.Delete(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if n == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "booking not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "booking deleted"})
}

// Receipt streams the booking receipt PDF to the customer.
func (h *BookingHandler) Receipt(c *gin.Context) {
	b, err := h.Bookings.GetByID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if b == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "booking not found"})
		return
	}
	payment, _ := h.Payments.GetByBookingID(b.ID)
	content, err := h.Docs.RenderReceipt(pdf.ReceiptData{Booking: b, Payment: payment, Title: "Booking Receipt"})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	filename := fmt.Sprintf("booking_receipt_%s.pdf", b.ID)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", content)
}

// Notifications exposes the delivery audit trail for one booking.
func (h *BookingHandler) Notifications(c *gin.Context) {
	jobs, err := h.Jobs.ListByBooking(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, jobs)
}
