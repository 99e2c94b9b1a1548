package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"tyreworks/internal/repositories"
	"tyreworks/internal/services"
)

type ReportHandler struct {
	Service  *services.ReportService
	Services *repositories.ServiceRepository
	Visits   *repositories.VisitRepository
}

func NewReportHandler(service *services.ReportService, catalog *repositories.ServiceRepository, visits *repositories.VisitRepository) *ReportHandler {
	return &ReportHandler{Service: service, Services: catalog, Visits: visits}
}

// Home counts the visit and returns the public landing payload.
func (h *ReportHandler) Home(c *gin.Context) {
	if err := h.Visits.IncrementToday(); err != nil {
		log.Printf("[report][home] visit increment failed: %v", err)
	}
	total, _ := h.Visits.Total()
	c.JSON(http.StatusOK, gin.H{"status": "ok", "visits": total})
}

// Catalog lists the bookable services with prices.
func (h *ReportHandler) Catalog(c *gin.Context) {
	list, err := h.Services.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary      Admin dashboard
// @Tags         Reports
// @Produce      json
// @Success      200  {object}  services.DashboardSummary
// @Router       /admin/dashboard [get]
func (h *ReportHandler) Dashboard(c *gin.Context) {
	sum, err := h.Service.Dashboard()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sum)
}
