package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/todmy/interolog/pkg/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrCuratorExists      = errors.New("curator already exists")
	ErrInvalidToken       = errors.New("invalid token")
	ErrCuratorNotFound    = errors.New("curator not found")
)

// Claims identifies the curator behind a request
type Claims struct {
	CuratorID string `json:"curator_id"`
	Email     string `json:"email"`
	jwt.RegisteredClaims
}

// CuratorRepository persists curator accounts
type CuratorRepository interface {
	Create(ctx context.Context, curator *models.Curator) error
	GetByID(ctx context.Context, id string) (*models.Curator, error)
	GetByEmail(ctx context.Context, email string) (*models.Curator, error)
}

// Service defines the authentication service interface
type Service interface {
	Register(ctx context.Context, email, password string) (*models.Curator, error)
	Login(ctx context.Context, email, password string) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
}

// Config holds authentication configuration
type Config struct {
	SecretKey     string
	TokenDuration time.Duration
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		SecretKey:     "change-me-in-production",
		TokenDuration: 24 * time.Hour,
	}
}

// JWTService implements the Service interface
type JWTService struct {
	config Config
	repo   CuratorRepository
}

// NewJWTService creates a new JWT-based authentication service
func NewJWTService(config Config, repo CuratorRepository) *JWTService {
	return &JWTService{
		config: config,
		repo:   repo,
	}
}

// Register creates a new curator with hashed password
func (s *JWTService) Register(ctx context.Context, email, password string) (*models.Curator, error) {
	existing, _ := s.repo.GetByEmail(ctx, email)
	if existing != nil {
		return nil, ErrCuratorExists
	}

	hashedPassword, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	curator := &models.Curator{
		Email:        email,
		PasswordHash: hashedPassword,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, curator); err != nil {
		return nil, err
	}

	return curator, nil
}

// Login authenticates a curator and returns a JWT token
func (s *JWTService) Login(ctx context.Context, email, password string) (string, error) {
	curator, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return "", ErrInvalidCredentials
	}

	if !CheckPassword(password, curator.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	return s.generateToken(curator)
}

// ValidateToken validates a JWT token and returns the claims
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.config.SecretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		return nil, ErrInvalidToken
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (s *JWTService) generateToken(curator *models.Curator) (string, error) {
	claims := &Claims{
		CuratorID: curator.ID,
		Email:     curator.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.config.TokenDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.SecretKey))
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword compares a password with a hash
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
