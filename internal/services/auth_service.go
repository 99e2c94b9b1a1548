package services

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"tyreworks/internal/middleware"
	"tyreworks/internal/models"
	"tyreworks/internal/utils"
)

const accessTokenTTL = 24 * time.Hour

type StaffStore interface {
	Create(s *models.Staff) (int64, error)
	GetByEmail(email string) (*models.Staff, error)
	GetByRefreshToken(token string) (*models.Staff, error)
	SaveRefreshToken(id int64, token string) error
	Count() (int, error)
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type AuthService struct {
	Store  StaffStore
	JWTKey []byte
}

func NewAuthService(store StaffStore, jwtSecret string) *AuthService {
	return &AuthService{Store: store, JWTKey: []byte(jwtSecret)}
}

// Login checks credentials and hands out an access/refresh pair. The refresh
// token rotates on every successful login.
func (s *AuthService) Login(email, password string) (*TokenPair, *models.Staff, error) {
	staff, err := s.Store.GetByEmail(strings.TrimSpace(email))
	if err != nil {
		return nil, nil, err
	}
	if staff == nil {
		return nil, nil, ErrUnauthenticated
	}
	if bcrypt.CompareHashAndPassword([]byte(staff.PasswordHash), []byte(password)) != nil {
		log.Printf("[auth][login] bad password email=%s", email)
		return nil, nil, ErrUnauthenticated
	}

	pair, err := s.issuePair(staff)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("[auth][login] ok staff_id=%d role=%s", staff.ID, staff.Role)
	return pair, staff, nil
}

// Refresh exchanges a live refresh token for a new pair, rotating the
// refresh token so a stolen one is good at most once.
func (s *AuthService) Refresh(refreshToken string) (*TokenPair, error) {
	staff, err := s.Store.GetByRefreshToken(strings.TrimSpace(refreshToken))
	if err != nil {
		return nil, err
	}
	if staff == nil {
		return nil, ErrUnauthenticated
	}
	return s.issuePair(staff)
}

// Seed creates the bootstrap admin account when the staff table is empty.
func (s *AuthService) Seed(name, email, password string) error {
	n, err := s.Store.Count()
	if err != nil {
		return err
	}
	if n > 0 || email == "" || password == "" {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("auth seed: bcrypt: %w", err)
	}
	id, err := s.Store.Create(&models.Staff{
		Name:         name,
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: string(hash),
		Role:         "admin",
	})
	if err != nil {
		return err
	}
	log.Printf("[auth][seed] admin created staff_id=%d email=%s", id, email)
	return nil
}

func (s *AuthService) issuePair(staff *models.Staff) (*TokenPair, error) {
	claims := &middleware.Claims{
		StaffID: staff.ID,
		Role:    staff.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(accessTokenTTL)),
		},
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.JWTKey)
	if err != nil {
		return nil, fmt.Errorf("auth: sign token: %w", err)
	}
	refresh, err := utils.NewRefreshToken(0)
	if err != nil {
		return nil, fmt.Errorf("auth: refresh token: %w", err)
	}
	if err := s.Store.SaveRefreshToken(staff.ID, refresh); err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
