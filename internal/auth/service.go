// Package auth checks staff credentials and tracks bearer sessions.
package auth

import (
	"context"
	"errors"
	"strings"

	"autoflow/workshop-service/internal/models"
	"autoflow/workshop-service/internal/store"
)

type LoginResult struct {
	User    models.User
	Session Session
}

type Service struct {
	users    store.UserStore
	sessions *Sessions
}

func NewService(users store.UserStore, sessions *Sessions) *Service {
	return &Service{users: users, sessions: sessions}
}

// Login returns ErrInvalidCredentials for an unknown user and a wrong
// password alike.
func (s *Service) Login(ctx context.Context, username, password string) (LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if !CheckPassword(user.Password, password) {
		return LoginResult{}, ErrInvalidCredentials
	}
	return LoginResult{User: user, Session: s.sessions.Create(user.ID)}, nil
}

// Authenticate resolves a bearer token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (models.User, Session, error) {
	session, err := s.sessions.Lookup(token)
	if err != nil {
		return models.User{}, Session{}, err
	}
	user, err := s.users.GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			s.sessions.Revoke(token)
			return models.User{}, Session{}, ErrSessionNotFound
		}
		return models.User{}, Session{}, err
	}
	return user, session, nil
}

func (s *Service) Logout(token string) {
	s.sessions.Revoke(token)
}
