package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tyreworks/internal/models"
	"tyreworks/internal/services"
)

type OTPHandler struct {
	Service *services.OTPService
}

func NewOTPHandler(service *services.OTPService) *OTPHandler {
	return &OTPHandler{Service: service}
}

type otpIssueRequest struct {
	Email   string `json:"email" binding:"required,email"`
	Purpose string `json:"purpose" binding:"required"`
}

type otpVerifyRequest struct {
	Email   string `json:"email" binding:"required,email"`
	Purpose string `json:"purpose" binding:"required"`
	Code    string `json:"code" binding:"required,len=6"`
}

// @Summary      Request a one-time code
// @Description  Issues a 6-digit code to the email for the given purpose. Reissuing replaces the previous code.
// @Tags         OTP
// @Accept       json
// @Produce      json
// @Param        request  body      otpIssueRequest  true  "Issue request"
// @Success      200      {object}  map[string]string
// @Failure      400      {object}  map[string]string
// @Failure      429      {object}  map[string]string
// @Router       /otp/send [post]
func (h *OTPHandler) Send(c *gin.Context) {
	var req otpIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	purpose := models.OTPPurpose(req.Purpose)
	if !purpose.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown purpose"})
		return
	}
	if err := h.Service.Issue(req.Email, purpose); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "OTP sent"})
}

// @Summary      Verify a one-time code
// @Tags         OTP
// @Accept       json
// @Produce      json
// @Param        request  body      otpVerifyRequest  true  "Verify request"
// @Success      200      {object}  map[string]string
// @Failure      400      {object}  map[string]string
// @Router       /otp/verify [post]
func (h *OTPHandler) Verify(c *gin.Context) {
	var req otpVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	purpose := models.OTPPurpose(req.Purpose)
	if !purpose.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown purpose"})
		return
	}
	if err := h.Service.Verify(req.Email, purpose, req.Code); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "verified"})
}
