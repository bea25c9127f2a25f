package auth

import (
	"context"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type memusers struct {
	users []StoredUser
}

func (s *memusers) InsertUser(_ context.Context, u StoredUser) (User, error) {
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return User{}, fmt.Errorf("email %s taken", u.Email)
		}
	}
	u.ID = strconv.Itoa(len(s.users) + 1)
	s.users = append(s.users, u)
	return u.User, nil
}

func (s *memusers) GetUserByEmail(_ context.Context, email string) (StoredUser, bool, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, true, nil
		}
	}
	return StoredUser{}, false, nil
}

func newService() *Service {
	return &Service{
		Users:    &memusers{},
		Secret:   []byte("test-secret"),
		TokenTTL: time.Hour,
	}
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	user, err := svc.Register(ctx, Registration{
		Name:     "Anna",
		Surname:  "Petrova",
		Email:    "anna@example.com",
		Password: "secret-pw",
	})
	require.NoError(t, err)
	assert.Equal(t, "1", user.ID)
	assert.Equal(t, "anna@example.com", user.Email)

	// The stored hash must verify against the original password and must not
	// be the password itself.
	stored, ok, err := svc.Users.GetUserByEmail(ctx, "anna@example.com")
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEqual(t, "secret-pw", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret-pw")))
}

func TestService_RegisterPasswordPolicy(t *testing.T) {
	tests := []struct {
		name       string
		email      string
		password   string
		wantReason string
	}{
		{
			name:       "TooShort",
			email:      "anna@example.com",
			password:   "abc",
			wantReason: "Password must be at least 6 characters",
		},
		{
			name:       "ContainsEmail",
			email:      "anna@example.com",
			password:   "xanna@example.comx",
			wantReason: "Password must not contain the email address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newService()
			_, err := svc.Register(context.Background(), Registration{
				Name:     "Anna",
				Surname:  "Petrova",
				Email:    tt.email,
				Password: tt.password,
			})

			var policyErr *PolicyError
			require.ErrorAs(t, err, &policyErr)
			assert.Equal(t, tt.wantReason, policyErr.Reason)
		})
	}
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	_, err := svc.Register(ctx, Registration{
		Name:     "Anna",
		Surname:  "Petrova",
		Email:    "anna@example.com",
		Password: "secret-pw",
	})
	require.NoError(t, err)

	t.Run("OK", func(t *testing.T) {
		token, err := svc.Login(ctx, "anna@example.com", "secret-pw")
		require.NoError(t, err)

		userID, err := svc.VerifyToken(token)
		require.NoError(t, err)
		assert.Equal(t, "1", userID)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		_, err := svc.Login(ctx, "anna@example.com", "wrong-pw")
		assert.ErrorIs(t, err, ErrBadCredentials)
	})

	t.Run("UnknownEmail", func(t *testing.T) {
		_, err := svc.Login(ctx, "nobody@example.com", "secret-pw")
		assert.ErrorIs(t, err, ErrBadCredentials)
	})
}

func TestService_VerifyToken(t *testing.T) {
	ctx := context.Background()

	t.Run("Garbage", func(t *testing.T) {
		svc := newService()
		_, err := svc.VerifyToken("not-a-token")
		assert.Error(t, err)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		svc := newService()
		_, err := svc.Register(ctx, Registration{Name: "A", Surname: "B", Email: "a@example.com", Password: "secret-pw"})
		require.NoError(t, err)
		token, err := svc.Login(ctx, "a@example.com", "secret-pw")
		require.NoError(t, err)

		other := newService()
		other.Secret = []byte("other-secret")
		_, err = other.VerifyToken(token)
		assert.Error(t, err)
	})

	t.Run("Expired", func(t *testing.T) {
		svc := newService()
		svc.TokenTTL = -time.Minute
		_, err := svc.Register(ctx, Registration{Name: "A", Surname: "B", Email: "a@example.com", Password: "secret-pw"})
		require.NoError(t, err)
		token, err := svc.Login(ctx, "a@example.com", "secret-pw")
		require.NoError(t, err)

		_, err = svc.VerifyToken(token)
		assert.Error(t, err)
	})
}
