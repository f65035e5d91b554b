package auth

import (
	"errors"
	"fmt"
	"strings"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/nurpe/minefleet-dispatch/internal/model"
)

var (
	ErrEmptySecret   = errors.New("jwt secret is empty")
	ErrInvalidToken  = errors.New("invalid token")
	ErrInvalidClaims = errors.New("invalid claims")
)

// Claims are the fields the mining-operations API puts into its access tokens.
type Claims struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type Parser struct {
	secret []byte
}

func NewParser(secret string) *Parser {
	return &Parser{secret: []byte(secret)}
}

// Parse validates an HS256 access token. The raw token is kept on the principal so
// calls to the backend can be made on the user's behalf.
func (p *Parser) Parse(raw string) (model.Principal, error) {
	if len(p.secret) == 0 {
		return model.Principal{}, ErrEmptySecret
	}
	raw = strings.TrimSpace(raw)

	tok, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		return p.secret, nil
	})
	if err != nil {
		return model.Principal{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	c, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return model.Principal{}, ErrInvalidToken
	}

	userID := c.UserID
	if userID == "" {
		userID = c.Subject
	}
	if userID == "" || c.Role == "" {
		return model.Principal{}, ErrInvalidClaims
	}
	return model.Principal{
		UserID: userID,
		Role:   model.UserRole(strings.ToUpper(c.Role)),
		Token:  raw,
	}, nil
}
