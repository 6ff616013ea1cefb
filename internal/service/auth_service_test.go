package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/smartflow-mes/smartflow-api/internal/models"
	appErrors "github.com/smartflow-mes/smartflow-api/pkg/errors"
)

type authRepoStub struct {
	users        map[string]*models.User
	tokens       map[string]*models.RefreshToken
	revokedIDs   []string
	lastLoginID  string
	createErr    error
	lastLoginErr error
}

func newAuthRepoStub() *authRepoStub {
	return &authRepoStub{
		users:  make(map[string]*models.User),
		tokens: make(map[string]*models.RefreshToken),
	}
}

func (s *authRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *authRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (s *authRepoStub) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := s.FindByEmail(ctx, email)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

func (s *authRepoStub) Create(ctx context.Context, user *models.User) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.users[user.ID] = user
	return nil
}

func (s *authRepoStub) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	if s.lastLoginErr != nil {
		return s.lastLoginErr
	}
	s.lastLoginID = id
	return nil
}

func (s *authRepoStub) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	s.tokens[token.Token] = token
	return nil
}

func (s *authRepoStub) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := s.tokens[token]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (s *authRepoStub) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	s.revokedIDs = append(s.revokedIDs, id)
	for _, t := range s.tokens {
		if t.ID == id {
			t.Revoked = true
			t.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (s *authRepoStub) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	for _, t := range s.tokens {
		if t.UserID == userID {
			t.Revoked = true
		}
	}
	return nil
}

func testAuthConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "smartflow-test",
	}
}

func (s *authRepoStub) seedUser(t *testing.T, email, password string, active bool) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{
		ID:           "user-" + email,
		Email:        email,
		PasswordHash: string(hash),
		CompanyName:  "Molding Co",
		Active:       active,
	}
	s.users[user.ID] = user
	return user
}

func TestAuthServiceSignupAndLogin(t *testing.T) {
	repo := newAuthRepoStub()
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	session, err := svc.Signup(context.Background(), models.SignupRequest{
		Email:       "owner@molding.example",
		Password:    "secret123",
		CompanyName: "Molding Co",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, session.AccessToken)
	assert.NotEmpty(t, session.RefreshToken)
	assert.Equal(t, "owner@molding.example", session.User.Email)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "owner@molding.example",
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, login.AccessToken)
	assert.NotEmpty(t, repo.lastLoginID)

	claims, err := svc.ValidateToken(login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, claims.UserID)
	assert.Equal(t, "owner@molding.example", claims.Email)
}

func TestAuthServiceSignupDuplicateEmail(t *testing.T) {
	repo := newAuthRepoStub()
	repo.seedUser(t, "owner@molding.example", "secret123", true)
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	_, err := svc.Signup(context.Background(), models.SignupRequest{
		Email:    "owner@molding.example",
		Password: "secret123",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceSignupValidation(t *testing.T) {
	svc := NewAuthService(newAuthRepoStub(), nil, nil, testAuthConfig())

	_, err := svc.Signup(context.Background(), models.SignupRequest{Email: "not-an-email", Password: "short"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	repo := newAuthRepoStub()
	repo.seedUser(t, "owner@molding.example", "secret123", true)
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "owner@molding.example",
		Password: "wrong-password",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginUnknownEmail(t *testing.T) {
	svc := NewAuthService(newAuthRepoStub(), nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "nobody@molding.example",
		Password: "secret123",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	repo := newAuthRepoStub()
	repo.seedUser(t, "owner@molding.example", "secret123", false)
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "owner@molding.example",
		Password: "secret123",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRefreshRotatesToken(t *testing.T) {
	repo := newAuthRepoStub()
	user := repo.seedUser(t, "owner@molding.example", "secret123", true)
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	repo.tokens["old-token"] = &models.RefreshToken{
		ID:        "rt-1",
		UserID:    user.ID,
		Token:     "old-token",
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "old-token"})
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.NotEqual(t, "old-token", refreshed.RefreshToken)

	// The used token is revoked and can not be replayed.
	assert.Contains(t, repo.revokedIDs, "rt-1")
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "old-token"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRefreshExpiredToken(t *testing.T) {
	repo := newAuthRepoStub()
	user := repo.seedUser(t, "owner@molding.example", "secret123", true)
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	repo.tokens["stale"] = &models.RefreshToken{
		ID:        "rt-stale",
		UserID:    user.ID,
		Token:     "stale",
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
	}

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "stale"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLogoutChecksOwnership(t *testing.T) {
	repo := newAuthRepoStub()
	user := repo.seedUser(t, "owner@molding.example", "secret123", true)
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	repo.tokens["theirs"] = &models.RefreshToken{
		ID:        "rt-2",
		UserID:    user.ID,
		Token:     "theirs",
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}

	err := svc.Logout(context.Background(), "someone-else", "theirs")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Logout(context.Background(), user.ID, "theirs"))
	assert.True(t, repo.tokens["theirs"].Revoked)
}

func TestAuthServiceValidateTokenRejectsTampered(t *testing.T) {
	repo := newAuthRepoStub()
	repo.seedUser(t, "owner@molding.example", "secret123", true)
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "owner@molding.example",
		Password: "secret123",
	})
	require.NoError(t, err)

	other := NewAuthService(repo, nil, nil, AuthConfig{
		AccessTokenSecret: "different-secret",
		AccessTokenExpiry: time.Minute,
	})
	_, err = other.ValidateToken(login.AccessToken)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)

	_, err = svc.ValidateToken("not.a.token")
	require.Error(t, err)
}

func TestAuthServiceMe(t *testing.T) {
	repo := newAuthRepoStub()
	user := repo.seedUser(t, "owner@molding.example", "secret123", true)
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	info, err := svc.Me(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, info.Email)
	assert.Equal(t, "Molding Co", info.CompanyName)

	_, err = svc.Me(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
