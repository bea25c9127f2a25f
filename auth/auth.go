// Package auth issues and verifies the credentials that identify acting
// users. The rest of the application only ever sees opaque user ids.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// A User represents a registered account, without credential material.
type User struct {
	ID        string
	Name      string
	Surname   string
	Email     string
	CreatedAt time.Time
}

// A StoredUser pairs the account record with its password hash.
type StoredUser struct {
	User
	PasswordHash string
}

// A Registration carries the fields of a sign-up request.
type Registration struct {
	Name     string
	Surname  string
	Email    string
	Password string
}

// A UserStore persists accounts. GetUserByEmail reports absence through the
// bool result.
type UserStore interface {
	InsertUser(ctx context.Context, u StoredUser) (User, error)
	GetUserByEmail(ctx context.Context, email string) (StoredUser, bool, error)
}

// ErrBadCredentials reports a login with an unknown email or a wrong
// password. The two cases are indistinguishable to the caller.
var ErrBadCredentials = errors.New("bad credentials")

// A PolicyError reports a rejected password with a reason safe to show the
// client.
type PolicyError struct {
	Reason string
}

func (e *PolicyError) Error() string {
	return e.Reason
}

// Service registers users, checks logins and signs bearer tokens.
type Service struct {
	Users    UserStore
	Secret   []byte
	TokenTTL time.Duration
}

// Register validates the password policy, hashes the password and stores the
// account. Duplicate emails surface as the store's conflict error.
func (s *Service) Register(ctx context.Context, reg Registration) (User, error) {
	if err := checkPassword(reg.Password, reg.Email); err != nil {
		return User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.Users.InsertUser(ctx, StoredUser{
		User: User{
			Name:      reg.Name,
			Surname:   reg.Surname,
			Email:     reg.Email,
			CreatedAt: time.Now(),
		},
		PasswordHash: string(hash),
	})
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func checkPassword(password, email string) error {
	if len(password) < 6 {
		return &PolicyError{Reason: "Password must be at least 6 characters"}
	}
	if email != "" && strings.Contains(password, email) {
		return &PolicyError{Reason: "Password must not contain the email address"}
	}
	return nil
}

// Login verifies the email and password and returns a signed token for the
// account.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	stored, ok, err := s.Users.GetUserByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("get user: %w", err)
	}
	if !ok {
		return "", ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(password)); err != nil {
		return "", ErrBadCredentials
	}
	return s.issueToken(stored.ID)
}

func (s *Service) issueToken(userID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.TokenTTL)),
	})
	signed, err := token.SignedString(s.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken checks the token signature and expiry and returns the user id
// it was issued for.
func (s *Service) VerifyToken(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(*jwt.Token) (any, error) {
		return s.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", errors.New("token carries no subject")
	}
	return claims.Subject, nil
}
