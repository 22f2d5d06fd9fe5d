// Package session issues and validates staff session tokens. Tokens are
// HS256 JWTs carrying the actor's participant ID and capability set; kiosks
// never hold one (they sign requests instead, see internal/kiosk).
package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"treehouse/pkg/domain"
)

const defaultTTL = 12 * time.Hour

// Claims is what a validated staff token asserts about the caller.
type Claims struct {
	ActorID      domain.ParticipantID
	Capabilities domain.Capabilities
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Capabilities []string `json:"caps"`
}

// Manager signs and validates session tokens with a shared key.
type Manager struct {
	signingKey []byte
	ttl        time.Duration
}

func NewManager(signingKey string) *Manager {
	return &Manager{signingKey: []byte(signingKey), ttl: defaultTTL}
}

// Issue mints a token for the given actor. Login flows live outside this
// core; Issue exists for those flows and for tests.
func (m *Manager) Issue(actorID domain.ParticipantID, caps domain.Capabilities, now time.Time) (string, error) {
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actorID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		Capabilities: caps.Strings(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.signingKey)
}

// Validate parses and verifies a token string.
func (m *Manager) Validate(tokenString string) (*Claims, error) {
	var claims tokenClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.signingKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	actorID, err := domain.ParseParticipantID(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("invalid subject: %w", err)
	}
	return &Claims{
		ActorID:      actorID,
		Capabilities: domain.CapabilitiesFromStrings(claims.Capabilities),
	}, nil
}
