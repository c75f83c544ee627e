// Package auth issues and verifies access tokens and hashes passwords.
package auth

import (
	"errors"
	"time"

	"github.com/docgate/docgate/internal/common"
	"github.com/docgate/docgate/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the JWT payload: registered claims (sub, exp, iat) plus email and role.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// TokenCodec encodes an Identity into a signed, time-limited HS256 token and
// decodes it back. The signing key is injected and never leaves the process.
type TokenCodec struct {
	secret []byte
	now    func() time.Time
}

func NewTokenCodec(secretKey string) *TokenCodec {
	return &TokenCodec{secret: []byte(secretKey), now: time.Now}
}

// Issue signs id into a token that expires ttl from now.
func (c *TokenCodec) Issue(id models.Identity, ttl time.Duration) (string, error) {
	now := c.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.SubjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: id.Email,
		Role:  string(id.Role),
	})

	return token.SignedString(c.secret)
}

// Verify decodes token. It fails with common.ErrTokenExpired once the
// embedded expiry has passed and with common.ErrInvalidToken for anything
// else: bad signature, wrong algorithm, missing expiry or unknown role.
func (c *TokenCodec) Verify(token string) (*models.Identity, error) {
	claims := &Claims{}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !parsed.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}

	role, err := models.ParseRole(claims.Role)
	if err != nil {
		return nil, common.ErrInvalidToken
	}

	return &models.Identity{SubjectID: claims.Subject, Email: claims.Email, Role: role}, nil
}
