package service

import (
	"errors"
	"fmt"
	"time"

	"slide-capture/internal/config"
	"slide-capture/internal/dto"
	"slide-capture/internal/logger"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

var ErrInvalidJWTToken = errors.New("invalid or expired JWT token")

// AuthService issues and validates the bearer tokens that carry a student ID.
type AuthService interface {
	IssueToken(studentID string, ttl time.Duration) (string, error)
	ValidateJWT(tokenString string) (*dto.StudentClaims, error)
}

type authServiceImpl struct {
	secret []byte
	issuer string
}

func NewAuthService(cfg config.AuthConfig) (AuthService, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret is empty")
	}
	return &authServiceImpl{secret: []byte(cfg.JWTSecret), issuer: cfg.Issuer}, nil
}

func (s *authServiceImpl) IssueToken(studentID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := dto.StudentClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   studentID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *authServiceImpl) ValidateJWT(tokenString string) (*dto.StudentClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &dto.StudentClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			logger.Get().Debug("Auth: token expired", zap.Error(err))
		} else {
			logger.Get().Debug("Auth: token validation failed", zap.Error(err))
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidJWTToken, err)
	}

	claims, ok := token.Claims.(*dto.StudentClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidJWTToken
	}
	return claims, nil
}
