package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/domain"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/repository"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/repository/mocks"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/service"
)

const authSecret = "place-auth-secret"

func newAuthService(t *testing.T) (*service.AuthService, *mocks.UserRepository) {
	t.Helper()
	users := new(mocks.UserRepository)
	svc, err := service.NewAuthService(users, authSecret, 1)
	require.NoError(t, err)
	return svc, users
}

// parseClaims 用服务的密钥校验并解析 token。
func parseClaims(t *testing.T, tokenString string) jwt.MapClaims {
	t.Helper()
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(authSecret), nil
	})
	require.NoError(t, err)
	return claims
}

func storedUser(t *testing.T, id uint, username, password string, isAdmin bool) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &domain.User{ID: id, Username: username, Password: string(hash), IsAdmin: isAdmin}
}

func TestNewAuthService_EmptySecret(t *testing.T) {
	_, err := service.NewAuthService(new(mocks.UserRepository), "", 1)
	assert.Error(t, err)
}

// --- Register ---

func TestAuthService_Register_Success(t *testing.T) {
	// Arrange
	svc, users := newAuthService(t)
	ctx := context.Background()
	users.On("FindByUsername", ctx, "painter").Return(nil, repository.ErrUserNotFound).Once()

	var saved domain.User
	users.On("Save", ctx, mock.AnythingOfType("*domain.User")).
		Run(func(args mock.Arguments) {
			u := args.Get(1).(*domain.User)
			saved = *u // 服务返回前会清空密码, 这里保留保存时的副本
			u.ID = 12
			u.CreatedAt = time.Now()
			u.UpdatedAt = u.CreatedAt
		}).
		Return(nil).
		Once()

	// Act
	user, err := svc.Register(ctx, "painter", "orangered", "painter@place.test")

	// Assert
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, uint(12), user.ID)
	assert.Equal(t, "painter", user.Username)
	assert.Empty(t, user.Password, "hash is not returned to callers")
	assert.False(t, user.IsAdmin, "new users are never admins")

	assert.Equal(t, "painter@place.test", saved.Email)
	assert.NotEqual(t, "orangered", saved.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(saved.Password), []byte("orangered")))

	// Verify
	users.AssertExpectations(t)
}

func TestAuthService_Register_InvalidInput(t *testing.T) {
	testCases := []struct {
		name     string
		username string
		password string
	}{
		{"empty username", "", "pw"},
		{"empty password", "painter", ""},
		{"username too long", strings.Repeat("a", 200), "pw"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc, users := newAuthService(t)

			_, err := svc.Register(context.Background(), tc.username, tc.password, "")

			assert.ErrorIs(t, err, service.ErrInvalidInput)
			users.AssertNotCalled(t, "FindByUsername", mock.Anything, mock.Anything)
		})
	}
}

func TestAuthService_Register_UsernameTaken(t *testing.T) {
	// Arrange
	svc, users := newAuthService(t)
	ctx := context.Background()
	users.On("FindByUsername", ctx, "painter").Return(&domain.User{ID: 10, Username: "painter"}, nil).Once()

	// Act
	_, err := svc.Register(ctx, "painter", "pw", "")

	// Assert
	assert.ErrorIs(t, err, service.ErrRegistrationFailed)

	// Verify
	users.AssertExpectations(t)
	users.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestAuthService_Register_LookupError(t *testing.T) {
	svc, users := newAuthService(t)
	ctx := context.Background()
	users.On("FindByUsername", ctx, "painter").Return(nil, errors.New("connection refused")).Once()

	_, err := svc.Register(ctx, "painter", "pw", "")

	assert.ErrorIs(t, err, service.ErrInternalServer)
	users.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestAuthService_Register_SaveErrors(t *testing.T) {
	testCases := []struct {
		name    string
		saveErr error
		want    error
	}{
		{"duplicate entry", repository.ErrDuplicateEntry, service.ErrRegistrationFailed},
		{"database down", errors.New("connection reset"), service.ErrInternalServer},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc, users := newAuthService(t)
			ctx := context.Background()
			users.On("FindByUsername", ctx, "painter").Return(nil, repository.ErrUserNotFound).Once()
			users.On("Save", ctx, mock.AnythingOfType("*domain.User")).Return(tc.saveErr).Once()

			_, err := svc.Register(ctx, "painter", "pw", "")

			assert.ErrorIs(t, err, tc.want)
			users.AssertExpectations(t)
		})
	}
}

// --- Login ---

func TestAuthService_Login_TokenCarriesIdentity(t *testing.T) {
	testCases := []struct {
		name    string
		user    *domain.User
		isAdmin bool
	}{
		{"regular user", storedUser(t, 4, "painter", "pw", false), false},
		{"admin", storedUser(t, 3, "mod", "pw", true), true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Arrange
			svc, users := newAuthService(t)
			ctx := context.Background()
			users.On("FindByUsername", ctx, tc.user.Username).Return(tc.user, nil).Once()

			// Act
			token, err := svc.Login(ctx, tc.user.Username, "pw")

			// Assert
			require.NoError(t, err)
			claims := parseClaims(t, token)
			assert.Equal(t, float64(tc.user.ID), claims[service.ClaimUserID])
			assert.Equal(t, tc.user.Username, claims[service.ClaimUsername])
			assert.Equal(t, tc.isAdmin, claims[service.ClaimIsAdmin])
			exp, ok := claims["exp"].(float64)
			require.True(t, ok)
			assert.InDelta(t, float64(time.Now().Add(time.Hour).Unix()), exp, 5)

			// Verify
			users.AssertExpectations(t)
		})
	}
}

func TestAuthService_Login_Failures(t *testing.T) {
	testCases := []struct {
		name     string
		found    *domain.User
		findErr  error
		password string
	}{
		{"unknown user", nil, repository.ErrUserNotFound, "pw"},
		{"lookup error", nil, errors.New("connection refused"), "pw"},
		{"nil user without error", nil, nil, "pw"},
		{"wrong password", storedUser(t, 4, "painter", "pw", false), nil, "not-pw"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc, users := newAuthService(t)
			ctx := context.Background()
			users.On("FindByUsername", ctx, "painter").Return(tc.found, tc.findErr).Once()

			token, err := svc.Login(ctx, "painter", tc.password)

			assert.ErrorIs(t, err, service.ErrAuthenticationFailed)
			assert.Empty(t, token)
			users.AssertExpectations(t)
		})
	}
}
