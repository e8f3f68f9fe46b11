package arcade

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/arena/go/internal/models"
)

const tokenIssuer = "arena-arcade"

// tokenGrace keeps a token parseable after its run expires, so a late
// submission is rejected as ErrTimeExpired rather than ErrInvalidToken.
const tokenGrace = 10 * time.Minute

type sessionClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
	GameID    string `json:"gid"`
}

// SessionClaims identify the run a token was issued for.
type SessionClaims struct {
	RunID    uuid.UUID
	TokenID  uuid.UUID
	GameID   string
	PlayerID string
}

// TokenIssuer signs single-use run tokens with HS256.
type TokenIssuer struct {
	secret []byte
	clock  clockwork.Clock
}

func NewTokenIssuer(secret []byte, clock clockwork.Clock) (*TokenIssuer, error) {
	if len(secret) < 32 {
		return nil, errors.New("token secret must be at least 32 bytes")
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TokenIssuer{secret: secret, clock: clock}, nil
}

// Issue returns the signed token for run.
func (i *TokenIssuer) Issue(run models.ArcadeRun) (string, error) {
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        run.TokenID.String(),
			Issuer:    tokenIssuer,
			Subject:   run.PlayerID,
			IssuedAt:  jwt.NewNumericDate(run.StartedAt),
			ExpiresAt: jwt.NewNumericDate(run.ExpiresAt.Add(tokenGrace)),
		},
		SessionID: run.ID.String(),
		GameID:    run.GameID,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign run token: %w", err)
	}
	return signed, nil
}

// Parse verifies token and returns its claims. Every failure is ErrInvalidToken.
func (i *TokenIssuer) Parse(token string) (SessionClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.clock.Now),
	)
	claims := &sessionClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	})
	if err != nil || !parsed.Valid {
		return SessionClaims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	runID, err := uuid.Parse(claims.SessionID)
	if err != nil {
		return SessionClaims{}, fmt.Errorf("%w: bad session id", ErrInvalidToken)
	}
	tokenID, err := uuid.Parse(claims.ID)
	if err != nil {
		return SessionClaims{}, fmt.Errorf("%w: bad token id", ErrInvalidToken)
	}
	return SessionClaims{
		RunID:    runID,
		TokenID:  tokenID,
		GameID:   claims.GameID,
		PlayerID: claims.Subject,
	}, nil
}
