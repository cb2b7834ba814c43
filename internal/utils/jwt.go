package utils // package utils provides helpers for tokens, passwords and slugs

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// AccessToken represents a signed JWT access token along with its expiry.
// The Token field contains the JWT string.  Exp stores the expiration
// timestamp.  Access tokens travel in the Authorization header when
// calling protected endpoints.
type AccessToken struct {
	Token string    `json:"token"`   // the serialized JWT string
	Exp   time.Time `json:"expires"` // the UTC expiration time
}

// AccessClaims is the claim set of an access token.  Subject holds the
// guest id in decimal.
type AccessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// GuestID returns the subject as a guest id.
func (c AccessClaims) GuestID() (uint64, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid subject %q", c.Subject)
	}
	return id, nil
}

// NewAccessToken builds and signs an HS256 JWT for a guest.  It takes the
// signing secret, the guest ID, the guest's role, and a TTL in minutes.
func NewAccessToken(secret string, guestID uint64, role string, ttlMin int) (AccessToken, error) {
	if secret == "" {
		return AccessToken{}, errors.New("jwt secret is empty")
	}
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := AccessClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(guestID, 10),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies the signature and expiry of raw and returns
// its claims.  Only HMAC-signed tokens are accepted.
func ParseAccessToken(secret, raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, errors.New("invalid token")
	}
	if _, err := claims.GuestID(); err != nil {
		return nil, err
	}
	return claims, nil
}
