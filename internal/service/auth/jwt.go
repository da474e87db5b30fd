package auth

import (
	"CourseMarket/internal/app_errors"
	"CourseMarket/internal/models"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	AccessTokenType  = "access"
	RefreshTokenType = "refresh"
)

var signingMethod = jwt.SigningMethodHS256

type JWTManager struct {
	secretKey  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
}

func NewJWTManager(secretKey, issuer string, accessTTL, refreshTTL time.Duration) *JWTManager {
	return &JWTManager{
		secretKey:  []byte(secretKey),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		issuer:     issuer,
	}
}

type AccessTokenClaims struct {
	TokenType string    `json:"token_type"`
	UserID    uuid.UUID `json:"user_id"`
	Roles     []string  `json:"roles"`
	jwt.RegisteredClaims
}

type RefreshTokenClaims struct {
	TokenType string    `json:"token_type"`
	UserID    uuid.UUID `json:"user_id"`
	jwt.RegisteredClaims
}

func (j *JWTManager) keyFunc(token *jwt.Token) (interface{}, error) {
	if token.Method != signingMethod {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return j.secretKey, nil
}

func wrapParseErr(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return app_errors.ErrTokenExpired
	}
	return fmt.Errorf("%w: %v", app_errors.ErrInvalidToken, err)
}

func (j *JWTManager) AccessClaims(tokenStr string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}
	if _, err := jwt.ParseWithClaims(tokenStr, claims, j.keyFunc, jwt.WithIssuer(j.issuer)); err != nil {
		return nil, wrapParseErr(err)
	}
	if claims.TokenType != AccessTokenType {
		return nil, fmt.Errorf("%w: expected %q, got %q", app_errors.ErrInvalidToken, AccessTokenType, claims.TokenType)
	}
	return claims, nil
}

func (j *JWTManager) Parse(token string) (*jwt.Token, error) {
	parsed, err := jwt.Parse(token, j.keyFunc, jwt.WithIssuer(j.issuer))
	if err != nil {
		return nil, wrapParseErr(err)
	}
	return parsed, nil
}

func (j *JWTManager) TokenType(token *jwt.Token, t string) bool {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return false
	}
	tokenType, ok := claims["token_type"].(string)
	return ok && tokenType == t
}

func (j *JWTManager) sign(claims jwt.Claims) (*jwt.Token, error) {
	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(j.secretKey)
	if err != nil {
		return nil, fmt.Errorf("token signing failed: %w", err)
	}
	// Re-parse so callers get Raw and MapClaims like any inbound token.
	return j.Parse(signed)
}

func (j *JWTManager) registered(userID uuid.UUID, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   userID.String(),
		Issuer:    j.issuer,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
}

func (j *JWTManager) GenerateTokenPair(userID uuid.UUID, roles []string) (*models.TokenPair, error) {
	now := time.Now()
	access, err := j.sign(AccessTokenClaims{
		TokenType:        AccessTokenType,
		UserID:           userID,
		Roles:            roles,
		RegisteredClaims: j.registered(userID, now, j.accessTTL),
	})
	if err != nil {
		return nil, err
	}
	refresh, err := j.sign(RefreshTokenClaims{
		TokenType:        RefreshTokenType,
		UserID:           userID,
		RegisteredClaims: j.registered(userID, now, j.refreshTTL),
	})
	if err != nil {
		return nil, err
	}
	return &models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
