package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Kiog-Aser/CourseThing/internal/models"
	appErrors "github.com/Kiog-Aser/CourseThing/pkg/errors"
)

type mockAuthUserRepo struct {
	users   map[string]*models.User
	byEmail map[string]string
	tokens  map[string]*models.RefreshToken
}

func newMockAuthUserRepo() *mockAuthUserRepo {
	return &mockAuthUserRepo{
		users:   make(map[string]*models.User),
		byEmail: make(map[string]string),
		tokens:  make(map[string]*models.RefreshToken),
	}
}

func (m *mockAuthUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if id, ok := m.byEmail[email]; ok {
		cp := *m.users[id]
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := m.users[id]; ok {
		cp := *user
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUserRepo) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = "user-" + user.Email
	}
	cp := *user
	m.users[user.ID] = &cp
	m.byEmail[user.Email] = user.ID
	return nil
}

func (m *mockAuthUserRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

func (m *mockAuthUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	user, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = updatedAt
	return nil
}

func (m *mockAuthUserRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	for _, token := range m.tokens {
		if token.UserID == userID {
			token.Revoked = true
		}
	}
	return nil
}

func (m *mockAuthUserRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	cp := *token
	m.tokens[token.Token] = &cp
	return nil
}

func (m *mockAuthUserRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if stored, ok := m.tokens[token]; ok {
		cp := *stored
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUserRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, token := range m.tokens {
		if token.ID == id {
			token.Revoked = true
			token.RevokedAt = &revokedAt
		}
	}
	return nil
}

func newAuthFixture(adminEmails ...string) (*AuthService, *mockAuthUserRepo) {
	repo := newMockAuthUserRepo()
	allowed := make(map[string]struct{}, len(adminEmails))
	for _, email := range adminEmails {
		allowed[email] = struct{}{}
	}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "coursething-test",
	}, func(email string) bool {
		_, ok := allowed[email]
		return ok
	})
	return svc, repo
}

func seedUser(t *testing.T, repo *mockAuthUserRepo, email, password string, role models.UserRole) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		FullName:     "Test User",
		Role:         role,
		Active:       true,
	}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func TestAuthServiceRegister(t *testing.T) {
	svc, _ := newAuthFixture()

	info, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:    "Learner@Example.com",
		FullName: "Learner One",
		Password: "secret1",
	})
	require.NoError(t, err)
	assert.Equal(t, "learner@example.com", info.Email)
	assert.Equal(t, models.RoleLearner, info.Role)
	assert.False(t, info.Admin)
}

func TestAuthServiceRegisterAdminAllowList(t *testing.T) {
	svc, _ := newAuthFixture("boss@example.com")

	info, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:    "boss@example.com",
		FullName: "The Boss",
		Password: "secret1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, info.Role)
	assert.True(t, info.Admin)
}

func TestAuthServiceRegisterValidation(t *testing.T) {
	svc, _ := newAuthFixture()

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:    "not-an-email",
		FullName: "Nope",
		Password: "secret1",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginAndValidate(t *testing.T) {
	svc, repo := newAuthFixture()
	seedUser(t, repo, "learner@example.com", "secret1", models.RoleLearner)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "learner@example.com",
		Password: "secret1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "learner@example.com", claims.Email)
	assert.Equal(t, models.RoleLearner, claims.Role)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	svc, repo := newAuthFixture()
	seedUser(t, repo, "learner@example.com", "secret1", models.RoleLearner)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "learner@example.com",
		Password: "wrong",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginUnknownEmail(t *testing.T) {
	svc, _ := newAuthFixture()

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "ghost@example.com",
		Password: "secret1",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRefreshRotatesToken(t *testing.T) {
	svc, repo := newAuthFixture()
	seedUser(t, repo, "learner@example.com", "secret1", models.RoleLearner)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "learner@example.com",
		Password: "secret1",
	})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{
		RefreshToken: login.RefreshToken,
	})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// The used token is revoked; replaying it must fail.
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{
		RefreshToken: login.RefreshToken,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceValidateTokenRejectsTampered(t *testing.T) {
	svc, repo := newAuthFixture()
	seedUser(t, repo, "learner@example.com", "secret1", models.RoleLearner)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "learner@example.com",
		Password: "secret1",
	})
	require.NoError(t, err)

	_, err = svc.ValidateToken(resp.AccessToken + "x")
	require.Error(t, err)
}

func TestAuthServiceLogout(t *testing.T) {
	svc, repo := newAuthFixture()
	user := seedUser(t, repo, "learner@example.com", "secret1", models.RoleLearner)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "learner@example.com",
		Password: "secret1",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), login.RefreshToken, user.ID))

	err = svc.Logout(context.Background(), login.RefreshToken, "someone-else")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceChangePassword(t *testing.T) {
	svc, repo := newAuthFixture()
	user := seedUser(t, repo, "learner@example.com", "secret1", models.RoleLearner)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "learner@example.com",
		Password: "secret1",
	})
	require.NoError(t, err)

	require.NoError(t, svc.ChangePassword(context.Background(), user.ID, models.ChangePasswordRequest{
		CurrentPassword: "secret1",
		NewPassword:     "secret2",
	}))

	// Existing sessions are revoked along with the old password.
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{
		RefreshToken: login.RefreshToken,
	})
	require.Error(t, err)

	_, err = svc.Login(context.Background(), models.LoginRequest{
		Email:    "learner@example.com",
		Password: "secret1",
	})
	require.Error(t, err)

	_, err = svc.Login(context.Background(), models.LoginRequest{
		Email:    "learner@example.com",
		Password: "secret2",
	})
	require.NoError(t, err)
}

func TestAuthServiceChangePasswordWrongCurrent(t *testing.T) {
	svc, repo := newAuthFixture()
	user := seedUser(t, repo, "learner@example.com", "secret1", models.RoleLearner)

	err := svc.ChangePassword(context.Background(), user.ID, models.ChangePasswordRequest{
		CurrentPassword: "wrong-password",
		NewPassword:     "secret2",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}
