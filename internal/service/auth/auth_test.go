package auth

import (
	"CourseMarket/internal/app_errors"
	"CourseMarket/internal/models"
	"CourseMarket/pkg/logger"
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers struct {
	byID map[uuid.UUID]models.User
}

func (f *fakeUsers) CreateUser(_ context.Context, u models.User) (*models.User, error) {
	for _, cur := range f.byID {
		if cur.Email == u.Email {
			return nil, app_errors.ErrUserExists
		}
	}
	u.ID = uuid.New()
	f.byID[u.ID] = u
	return &u, nil
}

func (f *fakeUsers) UserByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, app_errors.ErrUserNotFound
}

func (f *fakeUsers) UserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, app_errors.ErrUserNotFound
	}
	return &u, nil
}

type fakeTokens struct {
	byUser map[uuid.UUID]string
}

func (f *fakeTokens) Create(_ context.Context, userID uuid.UUID, token *jwt.Token) (*models.RefreshToken, error) {
	f.byUser[userID] = token.Raw
	exp, _ := token.Claims.GetExpirationTime()
	return &models.RefreshToken{UserID: userID, ExpiresAt: exp.Time}, nil
}

func (f *fakeTokens) ByPrimaryKey(_ context.Context, userID uuid.UUID, token *jwt.Token) (*models.RefreshToken, error) {
	if f.byUser[userID] != token.Raw {
		return nil, app_errors.ErrTokenNotFound
	}
	exp, _ := token.Claims.GetExpirationTime()
	return &models.RefreshToken{UserID: userID, ExpiresAt: exp.Time}, nil
}

func (f *fakeTokens) DeleteUserTokens(_ context.Context, userID uuid.UUID) error {
	delete(f.byUser, userID)
	return nil
}

func newService() *AuthService {
	return NewAuthService(logger.NewDiscard(),
		NewJWTManager("test-secret", "course-market", time.Minute, time.Hour),
		&fakeUsers{byID: map[uuid.UUID]models.User{}},
		&fakeTokens{byUser: map[uuid.UUID]string{}})
}

func TestCreateUserAndLogin(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, models.User{Name: "Ada", Email: " Ada@Example.com ", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.Equal(t, []string{models.StudentRole}, u.Roles)
	assert.NotEqual(t, "correct-horse", u.Password)

	_, err = svc.LoginUser(ctx, "ada@example.com", "wrong-horse")
	assert.ErrorIs(t, err, app_errors.ErrIncorrectPassword)
	_, err = svc.LoginUser(ctx, "nobody@example.com", "correct-horse")
	assert.ErrorIs(t, err, app_errors.ErrIncorrectPassword)

	pair, err := svc.LoginUser(ctx, "ada@example.com", "correct-horse")
	require.NoError(t, err)

	userID, roles, err := svc.AccessClaims(ctx, pair.AccessToken.Raw)
	require.NoError(t, err)
	assert.Equal(t, u.ID, userID)
	assert.Equal(t, []string{models.StudentRole}, roles)
	assert.True(t, svc.IsAccessToken(ctx, pair.AccessToken))
	assert.False(t, svc.IsAccessToken(ctx, pair.RefreshToken))
}

func TestCreateUser_Validation(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, models.User{Email: "a@b.c", Password: "short"})
	assert.ErrorIs(t, err, app_errors.ErrWeakPassword)
	_, err = svc.CreateUser(ctx, models.User{Email: "a@b.c", Password: "long-enough", Roles: []string{"root"}})
	assert.ErrorIs(t, err, app_errors.ErrInvalidRole)

	_, err = svc.CreateUser(ctx, models.User{Email: "a@b.c", Password: "long-enough"})
	require.NoError(t, err)
	_, err = svc.CreateUser(ctx, models.User{Email: "A@B.C", Password: "long-enough"})
	assert.ErrorIs(t, err, app_errors.ErrUserExists)
}

func TestRefreshTokens(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	_, err := svc.CreateUser(ctx, models.User{Email: "p@x.io", Password: "long-enough", Roles: []string{models.ProfessorRole}})
	require.NoError(t, err)
	pair, err := svc.LoginUser(ctx, "p@x.io", "long-enough")
	require.NoError(t, err)

	_, err = svc.RefreshTokens(ctx, pair.AccessToken.Raw)
	assert.ErrorIs(t, err, app_errors.ErrTokenNotFound, "access tokens cannot refresh")

	next, err := svc.RefreshTokens(ctx, pair.RefreshToken.Raw)
	require.NoError(t, err)
	_, roles, err := svc.AccessClaims(ctx, next.AccessToken.Raw)
	require.NoError(t, err)
	assert.Equal(t, []string{models.ProfessorRole}, roles)

	_, err = svc.RefreshTokens(ctx, pair.RefreshToken.Raw)
	assert.ErrorIs(t, err, app_errors.ErrTokenNotFound, "rotated tokens are single use")
}

func TestJWTManager_RejectsForeignTokens(t *testing.T) {
	m := NewJWTManager("secret-a", "course-market", time.Minute, time.Hour)
	other := NewJWTManager("secret-b", "course-market", time.Minute, time.Hour)
	pair, err := other.GenerateTokenPair(uuid.New(), nil)
	require.NoError(t, err)

	_, err = m.Parse(pair.AccessToken.Raw)
	assert.ErrorIs(t, err, app_errors.ErrInvalidToken)

	expired := NewJWTManager("secret-a", "course-market", -time.Minute, time.Hour)
	_, err = expired.GenerateTokenPair(uuid.New(), nil)
	assert.ErrorIs(t, err, app_errors.ErrTokenExpired)
}
