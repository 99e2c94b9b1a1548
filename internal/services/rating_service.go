package services

import (
	"errors"
	"log"
	"strings"
	"time"

	"tyreworks/internal/config"
	"tyreworks/internal/models"
	"tyreworks/internal/repositories"
)

type RatingStore interface {
	Insert(r *models.Rating) error
	Exists(customerEmail, bookingID, service string) (bool, error)
	List() ([]*models.Rating, error)
	DeleteByID(id int64) (int64, error)
	Averages() ([]models.ServiceAverage, error)
}

type MediaProcessor interface {
	Process(bookingID, service string, uploads []ImageUpload) ([]string, error)
	Remove(paths []string)
}

type SubmitRatingRequest struct {
	Name      string
	Email     string
	BookingID string
	Service   string
	Stars     int
	Comment   string
	Images    []ImageUpload
}

// RatingService validates and stores post-service feedback. One rating per
// (customer, booking, service), matched case-insensitively; the store's
// uniqueness constraint is the last word under concurrency.
type RatingService struct {
	Ratings  RatingStore
	Bookings BookingReader
	Media    MediaProcessor
	Cfg      config.RatingsConfig
}

func NewRatingService(ratings RatingStore, bookings BookingReader, media MediaProcessor, cfg config.RatingsConfig) *RatingService {
	return &RatingService{Ratings: ratings, Bookings: bookings, Media: media, Cfg: cfg}
}

// Submit runs the full validation chain and persists the rating. Checks are
// ordered so the caller learns the most fundamental problem first: booking
// existence and ownership, then service membership, then eligibility, then
// duplication.
func (s *RatingService) Submit(req *SubmitRatingRequest) (*models.Rating, error) {
	if req.Stars < 1 || req.Stars > 5 {
		return nil, ErrInvalidRating
	}
	if len(req.Images) > s.Cfg.MaxImages {
		return nil, ErrTooManyImages
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	name := strings.TrimSpace(req.Name)
	service := strings.TrimSpace(req.Service)

	b, err := s.Bookings.GetByID(strings.TrimSpace(req.BookingID))
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrNotFound
	}
	if !strings.EqualFold(b.Email, email) || !strings.EqualFold(b.CustomerName, name) {
		return nil, ErrForbidden
	}
	if !bookingHasService(b, service) {
		return nil, ErrInvalidService
	}
	if !s.eligible(b.State) {
		return nil, ErrNotEligible
	}
	if dup, err := s.Ratings.Exists(email, b.ID, service); err != nil {
		return nil, err
	} else if dup {
		return nil, ErrDuplicateRating
	}

	paths, err := s.Media.Process(b.ID, service, req.Images)
	if err != nil {
		return nil, err
	}
	if len(req.Images) > 0 && len(paths) == 0 && s.Cfg.RequireImage {
		return nil, ErrNoImagesSurvived
	}

	r := &models.Rating{
		CustomerName:  name,
		CustomerEmail: email,
		BookingID:     b.ID,
		Service:       service,
		Stars:         req.Stars,
		Comment:       strings.TrimSpace(req.Comment),
		ImagePaths:    paths,
		CreatedAt:     time.Now(),
	}
	if err := s.Ratings.Insert(r); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			// Lost the uniqueness race; roll back the files we wrote.
			s.Media.Remove(paths)
			return nil, ErrDuplicateRating
		}
		return nil, err
	}
	log.Printf("[rating][submit] ok booking_id=%s service=%s stars=%d images=%d", b.ID, service, r.Stars, len(paths))
	return r, nil
}

func (s *RatingService) List() ([]*models.Rating, error) {
	return s.Ratings.List()
}

func (s *RatingService) Averages() ([]models.ServiceAverage, error) {
	return s.Ratings.Averages()
}

func (s *RatingService) Delete(id int64) error {
	n, err := s.Ratings.DeleteByID(id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RatingService) eligible(state models.BookingState) bool {
	if state == models.BookingCompleted {
		return true
	}
	return s.Cfg.AllowConfirmed && state == models.BookingConfirmed
}

func bookingHasService(b *models.Booking, service string) bool {
	for _, sv := range b.Services {
		if strings.EqualFold(sv, service) {
			return true
		}
	}
	return false
}
