package services

import (
	"time"

	"tyreworks/internal/models"
	"tyreworks/internal/repositories"
)

// DashboardSummary is the admin landing-page snapshot.
type DashboardSummary struct {
	TotalBookings     int     `json:"total_bookings"`
	TodayBookings     int     `json:"today_bookings"`
	PendingBookings   int     `json:"pending_bookings"`
	ConfirmedBookings int     `json:"confirmed_bookings"`
	CompletedBookings int     `json:"completed_bookings"`
	TotalRevenue      float64 `json:"total_revenue"`
	TotalRatings      int     `json:"total_ratings"`
	AverageRating     float64 `json:"average_rating"`
	TotalVisits       int64   `json:"total_visits"`
}

type ReportService struct {
	Bookings *repositories.BookingRepository
	Ratings  *repositories.RatingRepository
	Visits   *repositories.VisitRepository
}

func NewReportService(bookings *repositories.BookingRepository, ratings *repositories.RatingRepository, visits *repositories.VisitRepository) *ReportService {
	return &ReportService{Bookings: bookings, Ratings: ratings, Visits: visits}
}

// Dashboard collects the counters; individual failures zero the field
// rather than failing the whole page.
func (s *ReportService) Dashboard() (*DashboardSummary, error) {
	var sum DashboardSummary
	var err error

	if sum.TotalBookings, err = s.Bookings.CountAll(); err != nil {
		return nil, err
	}
	midnight := time.Now().Truncate(24 * time.Hour)
	sum.TodayBookings, _ = s.Bookings.CountCreatedSince(midnight)
	sum.PendingBookings, _ = s.Bookings.CountByState(models.BookingPending)
	sum.ConfirmedBookings, _ = s.Bookings.CountByState(models.BookingConfirmed)
	sum.CompletedBookings, _ = s.Bookings.CountByState(models.BookingCompleted)
	sum.TotalRevenue, _ = s.Bookings.SumCompletedAmounts()
	sum.TotalRatings, _ = s.Ratings.Count()
	if avgs, err := s.Ratings.Averages(); err == nil {
		var stars float64
		var n int
		for _, a := range avgs {
			stars += a.Average * float64(a.Count)
			n += a.Count
		}
		if n > 0 {
			sum.AverageRating = stars / float64(n)
		}
	}
	sum.TotalVisits, _ = s.Visits.Total()
	return &sum, nil
}
