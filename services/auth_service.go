package services

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/benson/survivor/logging"
	"github.com/benson/survivor/models"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

// AuthService issues and validates the JWT tokens behind the admin API.
type AuthService struct {
	userRepo    UserRepository
	jwtSecret   []byte
	tokenExpiry time.Duration
	logger      *logging.Logger
}

// UserRepository interface for admin account operations.
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Upsert(ctx context.Context, user *models.User) error
}

// JWTClaims represents the claims in our JWT token.
type JWTClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// NewAuthService creates a new authentication service.
func NewAuthService(userRepo UserRepository, jwtSecret string, tokenExpiry time.Duration) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		jwtSecret:   []byte(jwtSecret),
		tokenExpiry: tokenExpiry,
		logger:      logging.WithPrefix("AuthService"),
	}
}

// Login authenticates an admin and returns a JWT token. The same error
// covers a missing user and a wrong password.
func (a *AuthService) Login(ctx context.Context, username, password string) (*models.AuthResponse, error) {
	user, err := a.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.CheckPassword(password) {
		a.logger.Warnf("Failed login attempt for %q", username)
		return nil, ErrInvalidCredentials
	}

	token, err := a.GenerateToken(user)
	if err != nil {
		return nil, errors.New("failed to generate token")
	}

	a.logger.Infof("Admin %s logged in", user.Username)
	return &models.AuthResponse{
		Username: user.Username,
		Token:    token,
	}, nil
}

// GenerateToken creates a new JWT token for the admin.
func (a *AuthService) GenerateToken(user *models.User) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "survivor-pool",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtSecret)
}

// ValidateToken validates a JWT token and returns the claims.
func (a *AuthService) ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid token signing method")
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// GetUserFromToken validates a token and loads the admin it names, so a
// deleted account stops working even with a live token.
func (a *AuthService) GetUserFromToken(ctx context.Context, tokenString string) (*models.User, error) {
	claims, err := a.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	user, err := a.userRepo.FindByUsername(ctx, claims.Username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("user not found")
	}
	return user, nil
}

// EnsureAdmin creates the bootstrap admin account when none exists yet,
// so a fresh deployment is reachable with the configured credentials.
func (a *AuthService) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}

	existing, err := a.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	user := &models.User{Username: username}
	if err := user.HashPassword(password); err != nil {
		return err
	}
	if err := a.userRepo.Upsert(ctx, user); err != nil {
		return err
	}
	a.logger.Infof("Created bootstrap admin account %q", username)
	return nil
}
