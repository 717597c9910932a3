package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/skycheckout/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

const issuer = "skycheckout"

// Claims identifies the traveler behind a request.
type Claims struct {
	IdentityID  string `json:"identity_id"`
	DisplayName string `json:"display_name,omitempty"`
	Guest       bool   `json:"guest"`
	jwt.RegisteredClaims
}

func (c *Claims) Identity() *domain.Identity {
	return &domain.Identity{ID: c.IdentityID, DisplayName: c.DisplayName, IsGuest: c.Guest}
}

// Service signs and validates HS256 identity tokens.
type Service struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

func NewService(secret string, expiry time.Duration) *Service {
	return &Service{secret: []byte(secret), expiry: expiry, now: time.Now}
}

func (s *Service) Generate(identity domain.Identity) (string, error) {
	if identity.ID == "" {
		return "", domain.ErrIdentityRequired
	}
	now := s.now()
	claims := Claims{
		IdentityID:  identity.ID,
		DisplayName: identity.DisplayName,
		Guest:       identity.IsGuest,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   identity.ID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign identity token: %w", err)
	}
	return signed, nil
}

func (s *Service) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.IdentityID == "" {
		return nil, errors.New("token carries no identity")
	}
	return claims, nil
}

// IsExpired reports whether err came from an expired token.
func IsExpired(err error) bool {
	return errors.Is(err, jwt.ErrTokenExpired)
}
