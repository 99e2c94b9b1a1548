package routes

import (
	"github.com/gin-gonic/gin"

	"tyreworks/internal/authz"
	"tyreworks/internal/handlers"
	"tyreworks/internal/middleware"
)

func SetupRoutes(
	r *gin.Engine,
	jwtKey []byte,
	authHandler *handlers.AuthHandler,
	otpHandler *handlers.OTPHandler,
	bookingHandler *handlers.BookingHandler,
	ratingHandler *handlers.RatingHandler,
	reportHandler *handlers.ReportHandler,
) *gin.Engine {

	// ---- public
	r.GET("/", reportHandler.Home)
	r.GET("/services", reportHandler.Catalog)

	r.POST("/login", authHandler.Login)
	r.POST("/refresh", authHandler.Refresh)

	r.POST("/otp/send", otpHandler.Send)
	r.POST("/otp/verify", otpHandler.Verify)

	r.POST("/bookings", bookingHandler.Create)
	r.GET("/bookings/:id", bookingHandler.GetByID)
	r.GET("/bookings/:id/receipt", bookingHandler.Receipt)

	r.POST("/ratings", ratingHandler.Submit)
	r.GET("/ratings", ratingHandler.List)
	r.GET("/ratings/averages", ratingHandler.Averages)

	// ---- staff (JWT)
	admin := r.Group("/admin", middleware.AuthMiddleware(jwtKey))
	{
		admin.GET("/dashboard", reportHandler.Dashboard)

		admin.GET("/bookings", bookingHandler.List)
		admin.POST("/bookings/:id/confirm", bookingHandler.Confirm)
		admin.POST("/bookings/:id/reject", bookingHandler.Reject)
		admin.POST("/bookings/:id/cancel", bookingHandler.Cancel)
		admin.POST("/bookings/:id/complete", bookingHandler.Complete)
		admin.GET("/bookings/:id/notifications", bookingHandler.Notifications)

		// destructive ops are admin-only
		elevated := admin.Group("", middleware.RequireRoles(authz.RoleAdmin))
		{
			elevated.DELETE("/bookings/:id", bookingHandler.Delete)
			elevated.DELETE("/ratings/:id", ratingHandler.Delete)
		}
	}

	return r
}
