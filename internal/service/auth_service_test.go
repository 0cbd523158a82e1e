package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Kedesh11/oka-transport-api/internal/models"
	appErrors "github.com/Kedesh11/oka-transport-api/pkg/errors"
)

type mockAuthRepo struct {
	user             *models.User
	findByEmailErr   error
	lastLoginUpdated bool
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.findByEmailErr != nil {
		return nil, m.findByEmailErr
	}
	return m.user, nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func authFixtureUser(t *testing.T, password string) *models.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:           "user-1",
		Email:        "agent@oka.example",
		PasswordHash: string(hash),
		FullName:     "Agency Agent",
		Role:         models.RoleAgent,
		Active:       true,
	}
}

func newAuthServiceFixture(repo *mockAuthRepo) *AuthService {
	return NewAuthService(repo, nil, nil, AuthConfig{
		Secret:     "test-secret",
		Expiration: time.Hour,
		Issuer:     "oka-test",
	})
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	repo := &mockAuthRepo{user: authFixtureUser(t, "correct-horse")}
	svc := newAuthServiceFixture(repo)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "agent@oka.example",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.True(t, repo.lastLoginUpdated)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleAgent, claims.Role)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	repo := &mockAuthRepo{user: authFixtureUser(t, "correct-horse")}
	svc := newAuthServiceFixture(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "agent@oka.example",
		Password: "wrong",
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthServiceLoginUnknownEmail(t *testing.T) {
	repo := &mockAuthRepo{findByEmailErr: sql.ErrNoRows}
	svc := newAuthServiceFixture(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "nobody@oka.example",
		Password: "whatever",
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code, "unknown email is indistinguishable from a bad password")
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	user := authFixtureUser(t, "correct-horse")
	user.Active = false
	svc := newAuthServiceFixture(&mockAuthRepo{user: user})

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "agent@oka.example",
		Password: "correct-horse",
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErr.Code)
}

func TestAuthServiceValidateTokenRejectsTampered(t *testing.T) {
	svc := newAuthServiceFixture(&mockAuthRepo{user: authFixtureUser(t, "pw")})

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)

	other := NewAuthService(&mockAuthRepo{}, nil, nil, AuthConfig{Secret: "other-secret", Expiration: time.Hour})
	resp, err := newAuthServiceFixture(&mockAuthRepo{user: authFixtureUser(t, "pw")}).Login(context.Background(), models.LoginRequest{
		Email:    "agent@oka.example",
		Password: "pw",
	})
	require.NoError(t, err)
	_, err = other.ValidateToken(resp.AccessToken)
	require.Error(t, err)
}
