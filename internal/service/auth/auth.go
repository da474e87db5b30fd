package auth

import (
	"CourseMarket/internal/app_errors"
	"CourseMarket/internal/models"
	"CourseMarket/pkg/logger"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLen = 8
	maxPasswordLen = 72
)

type userRepo interface {
	CreateUser(ctx context.Context, user models.User) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type tokenRepo interface {
	Create(ctx context.Context, userID uuid.UUID, token *jwt.Token) (*models.RefreshToken, error)
	ByPrimaryKey(ctx context.Context, userID uuid.UUID, token *jwt.Token) (*models.RefreshToken, error)
	DeleteUserTokens(ctx context.Context, userID uuid.UUID) error
}

type AuthService struct {
	log        logger.Log
	jwtManager *JWTManager
	users      userRepo
	tokens     tokenRepo
}

func NewAuthService(l logger.Log, manager *JWTManager, users userRepo, tokens tokenRepo) *AuthService {
	return &AuthService{
		log:        l.With("service", "auth"),
		jwtManager: manager,
		users:      users,
		tokens:     tokens,
	}
}

// issue replaces every stored refresh token of the user with a fresh pair.
func (s *AuthService) issue(ctx context.Context, user *models.User) (*models.TokenPair, error) {
	pair, err := s.jwtManager.GenerateTokenPair(user.ID, user.Roles)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.DeleteUserTokens(ctx, user.ID); err != nil {
		return nil, err
	}
	if _, err := s.tokens.Create(ctx, user.ID, pair.RefreshToken); err != nil {
		return nil, err
	}
	return pair, nil
}

func (s *AuthService) LoginUser(ctx context.Context, email, password string) (*models.TokenPair, error) {
	user, err := s.users.UserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, app_errors.ErrUserNotFound) {
			// Same answer as a wrong password.
			return nil, app_errors.ErrIncorrectPassword
		}
		return nil, err
	}
	if !checkPasswordHash(password, user.Password) {
		return nil, app_errors.ErrIncorrectPassword
	}
	s.log.Debug("login", "user_id", user.ID)
	return s.issue(ctx, user)
}

func (s *AuthService) RefreshTokens(ctx context.Context, token string) (*models.TokenPair, error) {
	cur, err := s.jwtManager.Parse(token)
	if err != nil {
		return nil, err
	}
	if !s.jwtManager.TokenType(cur, RefreshTokenType) {
		return nil, app_errors.ErrTokenNotFound
	}
	sub, err := cur.Claims.GetSubject()
	if err != nil {
		return nil, err
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, err
	}
	record, err := s.tokens.ByPrimaryKey(ctx, userID, cur)
	if err != nil {
		return nil, err
	}
	if record.ExpiresAt.Before(time.Now()) {
		return nil, app_errors.ErrTokenExpired
	}
	user, err := s.users.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, user)
}

func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID) error {
	return s.tokens.DeleteUserTokens(ctx, userID)
}

func (s *AuthService) ParseToken(_ context.Context, token string) (*jwt.Token, error) {
	return s.jwtManager.Parse(token)
}

func (s *AuthService) IsAccessToken(_ context.Context, token *jwt.Token) bool {
	return s.jwtManager.TokenType(token, AccessTokenType)
}

func (s *AuthService) AccessClaims(_ context.Context, token string) (uuid.UUID, []string, error) {
	claims, err := s.jwtManager.AccessClaims(token)
	if err != nil {
		return uuid.Nil, nil, err
	}
	return claims.UserID, claims.Roles, nil
}

func (s *AuthService) User(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.users.UserByID(ctx, id)
}

// CreateUser provisions an account. Users without roles become students.
func (s *AuthService) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	if n := len(user.Password); n < minPasswordLen || n > maxPasswordLen {
		return nil, app_errors.ErrWeakPassword
	}
	if len(user.Roles) == 0 {
		user.Roles = []string{models.StudentRole}
	}
	for _, r := range user.Roles {
		if r != models.StudentRole && r != models.ProfessorRole && r != models.AdminRole {
			return nil, app_errors.ErrInvalidRole
		}
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	var err error
	if user.Password, err = hashPassword(user.Password); err != nil {
		return nil, err
	}
	created, err := s.users.CreateUser(ctx, user)
	if err != nil {
		return nil, err
	}
	s.log.Info("user created", "user_id", created.ID, "roles", created.Roles)
	return created, nil
}

func hashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(b), err
}

func checkPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
