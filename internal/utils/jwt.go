package utils

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/preetsinghmakkar/PeerConnect/internal/models"
)

var ErrInvalidToken = errors.New("invalid token")

// AccessClaims are the claims of tokens issued by the account service.
type AccessClaims struct {
	UserID   uuid.UUID       `json:"user_id"`
	Role     models.UserRole `json:"role"`
	Approved bool            `json:"approved"`
	jwt.RegisteredClaims
}

func (c *AccessClaims) Identity() models.Identity {
	return models.Identity{UserID: c.UserID, Role: c.Role, Approved: c.Approved}
}

// ParseAccessToken verifies an HS256 access token and returns its claims.
func ParseAccessToken(tokenString, secret string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing user_id", ErrInvalidToken)
	}
	switch claims.Role {
	case models.RoleMentee, models.RoleMentor, models.RoleAdmin:
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}
	return claims, nil
}
