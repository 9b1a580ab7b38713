package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Editor tokens are minted for and accepted from this issuer and audience only.
const (
	TokenIssuer   = "aura-survey"
	TokenAudience = "survey-editor"
)

// clockSkew is tolerated on exp, nbf and iat.
const clockSkew = 30 * time.Second

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrMissingRole  = errors.New("token has no role")
)

// Claims identifies the survey editor behind a request. The user id travels in
// the standard sub claim.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
	jwt.RegisteredClaims

	UserID uuid.UUID `json:"-"`
}

// JWTService signs and checks editor tokens with a shared HMAC secret.
type JWTService struct {
	secret []byte
	ttl    time.Duration
	parser *jwt.Parser
	now    func() time.Time
}

// NewJWTService creates a JWT service. Tokens expire after expireHours.
func NewJWTService(secret string, expireHours int) *JWTService {
	return &JWTService{
		secret: []byte(secret),
		ttl:    time.Duration(expireHours) * time.Hour,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(TokenIssuer),
			jwt.WithAudience(TokenAudience),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithLeeway(clockSkew),
		),
		now: time.Now,
	}
}

// Generate mints an editor token for userID with the given role.
func (s *JWTService) Generate(userID uuid.UUID, email, role string) (string, error) {
	role = strings.TrimSpace(role)
	if role == "" {
		return "", ErrMissingRole
	}
	now := s.now()
	claims := Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    TokenIssuer,
			Subject:   userID.String(),
			Audience:  jwt.ClaimStrings{TokenAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Validate parses a token and checks signature, issuer, audience, expiry and role.
// Every failure wraps ErrInvalidToken.
func (s *JWTService) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := s.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID, err = uuid.Parse(claims.Subject); err != nil {
		return nil, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}
	if strings.TrimSpace(claims.Role) == "" {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, ErrMissingRole)
	}
	return claims, nil
}

// Identify validates a token and returns the user id and role.
// It backs the WebSocket handshake, where the token arrives as a query parameter.
func (s *JWTService) Identify(tokenString string) (userID, role string, err error) {
	claims, err := s.Validate(tokenString)
	if err != nil {
		return "", "", err
	}
	return claims.UserID.String(), claims.Role, nil
}
