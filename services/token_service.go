package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var ErrInvalidToken = errors.New("invalid token")

// SessionClaims are carried by both access and refresh tokens. The session ID
// ties a token to its server-side session record.
type SessionClaims struct {
	SessionID string `json:"sid"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenPair is returned to the client after a successful login.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// TokenService issues and validates HMAC-signed session tokens.
type TokenService struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	clock      Clock
}

// NewTokenService creates a new TokenService instance.
func NewTokenService(secret, issuer string, accessTTL, refreshTTL time.Duration, clock Clock) *TokenService {
	return &TokenService{
		secret:     []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		clock:      clock,
	}
}

// IssueTokenPair signs a new access/refresh pair bound to sessionID.
func (s *TokenService) IssueTokenPair(userID, sessionID string) (*TokenPair, error) {
	now := s.clock.now()

	access, err := s.sign(userID, sessionID, tokenTypeAccess, now, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(userID, sessionID, tokenTypeRefresh, now, s.refreshTTL)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.accessTTL.Seconds()),
	}, nil
}

func (s *TokenService) sign(userID, sessionID, typ string, now time.Time, ttl time.Duration) (string, error) {
	claims := SessionClaims{
		SessionID: sessionID,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", typ, err)
	}
	return signed, nil
}

// ValidateAccessToken parses and verifies an access token.
func (s *TokenService) ValidateAccessToken(raw string) (*SessionClaims, error) {
	return s.validate(raw, tokenTypeAccess)
}

// ValidateRefreshToken parses and verifies a refresh token.
func (s *TokenService) ValidateRefreshToken(raw string) (*SessionClaims, error) {
	return s.validate(raw, tokenTypeRefresh)
}

func (s *TokenService) validate(raw, typ string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.clock.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.TokenType != typ || claims.SessionID == "" || claims.Subject == "" {
		return nil, fmt.Errorf("%w: unexpected token type or missing session", ErrInvalidToken)
	}
	return claims, nil
}
