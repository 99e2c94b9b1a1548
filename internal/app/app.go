package app

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"tyreworks/internal/config"
	"tyreworks/internal/handlers"
	"tyreworks/internal/pdf"
	"tyreworks/internal/repositories"
	"tyreworks/internal/routes"
	"tyreworks/internal/services"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func Run() {
	cfg := config.LoadConfig()

	// === DB ===
	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatal("db open failed: ", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("db close failed: %v", err)
		}
	}()

	// === Repos ===
	staffRepo := repositories.NewStaffRepository(db)
	bookingRepo := repositories.NewBookingRepository(db)
	paymentRepo := repositories.NewPaymentRepository(db)
	ratingRepo := repositories.NewRatingRepository(db)
	otpRepo := repositories.NewOTPChallengeRepository(db)
	jobRepo := repositories.NewNotificationJobRepository(db)
	serviceRepo := repositories.NewServiceRepository(db)
	visitRepo := repositories.NewVisitRepository(db)

	// === Services ===
	emailChannel := services.NewEmailChannel(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.SMTPUser,
		cfg.Email.SMTPPassword,
		cfg.Email.FromEmail,
	)

	pdfGen := pdf.NewDocumentGenerator(pdf.CompanyInfo{
		Name:    "TyreWorks Service Center",
		Address: "Main Road, Tirunelveli",
		Contact: "+91 90000 00000",
		Email:   cfg.Email.FromEmail,
	})

	dispatcher := services.NewDispatcher(jobRepo, bookingRepo, paymentRepo, emailChannel, pdfGen, cfg.Dispatcher)
	dispatcher.Start()
	defer dispatcher.Stop()

	otpService := services.NewOTPService(otpRepo, dispatcher, cfg.OTP)

	telegram := services.NewTelegramService(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	bookingService := services.NewBookingService(bookingRepo, paymentRepo, otpService, dispatcher, telegram)

	mediaService := services.NewMediaService(cfg.Files, cfg.Ratings)
	ratingService := services.NewRatingService(ratingRepo, bookingRepo, mediaService, cfg.Ratings)

	authService := services.NewAuthService(staffRepo, cfg.Auth.JWTSecret)
	if err := authService.Seed("Administrator", cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
		log.Printf("admin seed failed: %v", err)
	}

	reportService := services.NewReportService(bookingRepo, ratingRepo, visitRepo)

	// Expired challenges are garbage, sweep them hourly.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if n, err := otpRepo.DeleteExpired(time.Now()); err != nil {
				log.Printf("[otp][sweep] failed: %v", err)
			} else if n > 0 {
				log.Printf("[otp][sweep] removed %d expired challenges", n)
			}
		}
	}()

	// === Handlers ===
	authHandler := handlers.NewAuthHandler(authService)
	otpHandler := handlers.NewOTPHandler(otpService)
	bookingHandler := handlers.NewBookingHandler(bookingService, bookingRepo, paymentRepo, jobRepo, pdfGen)
	ratingHandler := handlers.NewRatingHandler(ratingService)
	reportHandler := handlers.NewReportHandler(reportService, serviceRepo, visitRepo)

	// === Gin ===
	router := gin.Default()
	router.Use(corsMiddleware())

	// Swagger
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	routes.SetupRoutes(
		router,
		[]byte(cfg.Auth.JWTSecret),
		authHandler,
		otpHandler,
		bookingHandler,
		ratingHandler,
		reportHandler,
	)

	// === Run ===
	listenAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("listening on %s", listenAddr)
	if err := router.Run(listenAddr); err != nil {
		log.Fatal("server start failed: ", err)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
