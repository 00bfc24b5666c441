package services

import (
	"context"
	"fmt"

	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/repositories"
)

type IAuthService interface {
	Register(ctx context.Context, req auth.RegisterRequest) (domain.User, Token, error)
	Login(ctx context.Context, req auth.LoginRequest) (domain.User, Token, error)
}

type Token string

type AuthService struct {
	users  repositories.IUserRepository
	tokens *auth.TokenManager
}

func NewAuthService(users repositories.IUserRepository, tokens *auth.TokenManager) IAuthService {
	return &AuthService{users: users, tokens: tokens}
}

func (s *AuthService) Register(ctx context.Context, req auth.RegisterRequest) (domain.User, Token, error) {
	// Business rules first: no expensive hashing for a request that fails
	// validation anyway.
	if err := auth.ValidateRegister(req); err != nil {
		return domain.User{}, "", fmt.Errorf("%w: %v", errors.ErrInvalidPassword, err)
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("hashing failed: %w", err)
	}

	user, err := s.users.CreateUser(ctx, req.Email, hashed, req.DisplayName)
	if err != nil {
		return domain.User{}, "", err
	}

	token, err := s.tokens.Generate(user.ID, user.DisplayName)
	if err != nil {
		return domain.User{}, "", errors.ErrTokenGeneration
	}
	return user, Token(token), nil
}

func (s *AuthService) Login(ctx context.Context, req auth.LoginRequest) (domain.User, Token, error) {
	if err := auth.ValidateLogin(req); err != nil {
		return domain.User{}, "", errors.ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		// Same answer for unknown account and wrong password.
		return domain.User{}, "", errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(req.Password, user.PasswordHash)
	if err != nil || !match {
		return domain.User{}, "", errors.ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user.ID, user.DisplayName)
	if err != nil {
		return domain.User{}, "", errors.ErrTokenGeneration
	}
	return user, Token(token), nil
}
