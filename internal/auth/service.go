// Package auth issues and checks the bearer tokens that guard the design API.
// There is one configured admin account and any number of guests.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

const (
	RoleAdmin = "admin"
	RoleGuest = "guest"

	tokenTTL = 24 * time.Hour
)

type Service struct {
	jwtSecret []byte
	adminUser string
	adminHash []byte
	now       func() time.Time
}

// NewService builds the service. An empty adminHash disables admin login.
func NewService(jwtSecret, adminUser, adminHash string) *Service {
	return &Service{
		jwtSecret: []byte(jwtSecret),
		adminUser: adminUser,
		adminHash: []byte(adminHash),
		now:       time.Now,
	}
}

type AuthResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

type claims struct {
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Login checks the admin password.
func (s *Service) Login(username, password string) (*AuthResult, error) {
	if len(s.adminHash) == 0 || username != s.adminUser {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(s.adminHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(User{ID: "admin", DisplayName: username, Role: RoleAdmin})
}

// Guest issues a token for an anonymous user.
func (s *Service) Guest(displayName string) (*AuthResult, error) {
	if displayName == "" {
		displayName = "Anonymous"
	}
	return s.issue(User{ID: "anon-" + uuid.NewString()[:8], DisplayName: displayName, Role: RoleGuest})
}

func (s *Service) issue(u User) (*AuthResult, error) {
	now := s.now()
	c := claims{
		Name: u.DisplayName,
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &AuthResult{Token: signed, User: u}, nil
}

// ValidateToken returns the user a token was issued to.
func (s *Service) ValidateToken(tokenString string) (User, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || c.Subject == "" {
		return User{}, ErrInvalidToken
	}
	return User{ID: c.Subject, DisplayName: c.Name, Role: c.Role}, nil
}

// HashPassword produces the value for ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
