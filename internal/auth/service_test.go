package auth

import (
	"context"
	"testing"
	"time"

	"invoicer/internal/domain"
	apperrors "invoicer/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- Mocks ---

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func testUser(t *testing.T, password string) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &domain.User{
		ID:           uuid.New(),
		AccountID:    uuid.New(),
		Email:        "jane@example.com",
		Name:         "Jane",
		PasswordHash: string(hash),
		IsActive:     true,
	}
}

// --- Tests ---

func TestRegister_CreatesAccountAndFirstUser(t *testing.T) {
	users := new(MockUserRepository)
	accounts := new(MockAccountRepository)
	svc := NewService(users, accounts, "test-secret", time.Hour)

	users.On("ExistsByEmail", mock.Anything, "jane@example.com").Return(false, nil)
	accounts.On("Create", mock.Anything, mock.AnythingOfType("*domain.Account")).Return(nil)
	users.On("Create", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)

	resp, err := svc.Register(context.Background(), &RegisterRequest{
		AccountName: "Acme Corp",
		Name:        "Jane",
		Email:       "jane@example.com",
		Password:    "supersecret",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "jane@example.com", resp.User.Email)
	assert.NotEqual(t, uuid.Nil, resp.User.AccountID)
	assert.NotEqual(t, "supersecret", resp.User.PasswordHash)
	accounts.AssertExpectations(t)
	users.AssertExpectations(t)
}

func TestRegister_DuplicateEmailRejected(t *testing.T) {
	users := new(MockUserRepository)
	accounts := new(MockAccountRepository)
	svc := NewService(users, accounts, "test-secret", time.Hour)

	users.On("ExistsByEmail", mock.Anything, "jane@example.com").Return(true, nil)

	_, err := svc.Register(context.Background(), &RegisterRequest{
		AccountName: "Acme Corp",
		Name:        "Jane",
		Email:       "jane@example.com",
		Password:    "supersecret",
	})

	assert.ErrorIs(t, err, apperrors.ErrUserAlreadyExists)
	accounts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegister_UniqueViolationOnInsertMapsToExists(t *testing.T) {
	users := new(MockUserRepository)
	accounts := new(MockAccountRepository)
	svc := NewService(users, accounts, "test-secret", time.Hour)

	users.On("ExistsByEmail", mock.Anything, mock.Anything).Return(false, nil)
	accounts.On("Create", mock.Anything, mock.Anything).Return(nil)
	users.On("Create", mock.Anything, mock.Anything).Return(&pq.Error{Code: "23505"})

	_, err := svc.Register(context.Background(), &RegisterRequest{
		AccountName: "Acme Corp",
		Name:        "Jane",
		Email:       "jane@example.com",
		Password:    "supersecret",
	})

	assert.ErrorIs(t, err, apperrors.ErrUserAlreadyExists)
}

func TestLogin_ValidCredentials(t *testing.T) {
	users := new(MockUserRepository)
	accounts := new(MockAccountRepository)
	svc := NewService(users, accounts, "test-secret", time.Hour)

	user := testUser(t, "supersecret")
	users.On("FindByEmail", mock.Anything, "jane@example.com").Return(user, nil)
	users.On("Update", mock.Anything, user).Return(nil)

	resp, err := svc.Login(context.Background(), &LoginRequest{
		Email:    "jane@example.com",
		Password: "supersecret",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotNil(t, user.LastLogin)
}

func TestLogin_WrongPassword(t *testing.T) {
	users := new(MockUserRepository)
	accounts := new(MockAccountRepository)
	svc := NewService(users, accounts, "test-secret", time.Hour)

	users.On("FindByEmail", mock.Anything, "jane@example.com").Return(testUser(t, "supersecret"), nil)

	_, err := svc.Login(context.Background(), &LoginRequest{
		Email:    "jane@example.com",
		Password: "wrong",
	})

	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestLogin_UnknownEmail(t *testing.T) {
	users := new(MockUserRepository)
	accounts := new(MockAccountRepository)
	svc := NewService(users, accounts, "test-secret", time.Hour)

	users.On("FindByEmail", mock.Anything, "nobody@example.com").Return(nil, apperrors.ErrUserNotFound)

	_, err := svc.Login(context.Background(), &LoginRequest{
		Email:    "nobody@example.com",
		Password: "supersecret",
	})

	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestLogin_InactiveUser(t *testing.T) {
	users := new(MockUserRepository)
	accounts := new(MockAccountRepository)
	svc := NewService(users, accounts, "test-secret", time.Hour)

	user := testUser(t, "supersecret")
	user.IsActive = false
	users.On("FindByEmail", mock.Anything, "jane@example.com").Return(user, nil)

	_, err := svc.Login(context.Background(), &LoginRequest{
		Email:    "jane@example.com",
		Password: "supersecret",
	})

	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestGeneratedTokenCarriesAccountClaims(t *testing.T) {
	users := new(MockUserRepository)
	accounts := new(MockAccountRepository)
	svc := NewService(users, accounts, "test-secret", time.Hour)

	user := testUser(t, "supersecret")
	users.On("FindByEmail", mock.Anything, user.Email).Return(user, nil)
	users.On("Update", mock.Anything, user).Return(nil)

	resp, err := svc.Login(context.Background(), &LoginRequest{
		Email:    user.Email,
		Password: "supersecret",
	})
	require.NoError(t, err)

	parsed, err := jwt.Parse(resp.AccessToken, func(token *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, user.ID.String(), claims["user_id"])
	assert.Equal(t, user.AccountID.String(), claims["account_id"])
	assert.Equal(t, user.Email, claims["email"])
}
