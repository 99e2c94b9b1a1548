package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tyreworks/internal/services"
)

// Uploaded photos larger than this are rejected before decoding.
const maxImageBytes = 10 << 20

type RatingHandler struct {
	Service *services.RatingService
}

func NewRatingHandler(service *services.RatingService) *RatingHandler {
	return &RatingHandler{Service: service}
}

// @Summary      Submit a rating
// @Description  One rating per customer, booking and service. Accepts up to five photos as multipart files.
// @Tags         Ratings
// @Accept       multipart/form-data
// @Produce      json
// @Param        name        formData  string  true   "Customer name"
// @Param        email       formData  string  true   "Customer email"
// @Param        booking_id  formData  string  true   "Booking ID"
// @Param        service     formData  string  true   "Service name"
// @Param        rating      formData  int     true   "Stars 1-5"
// @Param        comment     formData  string  false  "Comment"
// @Success      201  {object}  models.Rating
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /ratings [post]
func (h *RatingHandler) Submit(c *gin.Context) {
	stars, err := strconv.Atoi(c.PostForm("rating"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rating must be an integer"})
		return
	}
	req := &services.SubmitRatingRequest{
		Name:      c.PostForm("name"),
		Email:     c.PostForm("email"),
		BookingID: c.PostForm("booking_id"),
		Service:   c.PostForm("service"),
		Stars:     stars,
		Comment:   c.PostForm("comment"),
	}

	form, err := c.MultipartForm()
	if err == nil && form != nil {
		for _, fh := range form.File["images"] {
			if fh.Size > maxImageBytes {
				c.JSON(http.StatusBadRequest, gin.H{"error": "image too large"})
				return
			}
			f, err := fh.Open()
			if err != nil {
				continue
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				continue
			}
			req.Images = append(req.Images, services.ImageUpload{Filename: fh.Filename, Data: data})
		}
	}

	r, err := h.Service.Submit(req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (h *RatingHandler) List(c *gin.Context) {
	list, err := h.Service.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *RatingHandler) Averages(c *gin.Context) {
	avgs, err := h.Service.Averages()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, avgs)
}

func (h *RatingHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := h.Service.Delete(id); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "rating deleted"})
}
