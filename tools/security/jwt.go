package security

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/homeproapp/realtorapp-server-sub001/tools/errs"
)

// Claims is the verified identity the auth collaborator mints for a user.
// Listings is the access scope: the listing ids the user may see. An empty
// list means unrestricted (internal service tokens).
type Claims struct {
	UserID   string   `json:"uid"`
	Role     string   `json:"role"`
	Listings []string `json:"listings,omitempty"`
	jwt.RegisteredClaims
}

// Sign issues a token for the given identity.
func Sign(secret []byte, userID, role string, listings []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		Role:     role,
		Listings: listings,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Subject:   userID,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Parse verifies the token and returns its claims.
func Parse(secret []byte, token string) (*Claims, error) {
	var claims Claims
	tk, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errs.ErrTokenInvalid.WrapMsg("unexpected signing method", "alg", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, errs.ErrTokenInvalid.WrapMsg("parse token", "err", err)
	}
	if !tk.Valid {
		return nil, errs.ErrTokenInvalid.Wrap()
	}
	return &claims, nil
}
