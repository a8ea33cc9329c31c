package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"unicode/utf8"

	"hivelog/internal/models"
	"hivelog/internal/store"
	"hivelog/internal/utils"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("account is disabled")
)

type AuthService struct {
	store store.UserStore
}

func NewAuthService(s store.UserStore) *AuthService {
	return &AuthService{store: s}
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	if n := utf8.RuneCountInString(username); n < 3 || n > 30 {
		return nil, invalid("username must be between 3 and 30 characters")
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(in.Email))
	if err != nil {
		return nil, invalid("invalid email address")
	}
	if len(in.Password) < 6 {
		return nil, invalid("password must be at least 6 characters")
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username: username,
		Email:    strings.ToLower(addr.Address),
		Password: hash,
		Role:     models.RoleUser,
		IsActive: true,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		// 唯一索引冲突
		return nil, invalid("username or email already registered")
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !utils.CheckPasswordHash(password, user.Password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}
	return user, nil
}

func (s *AuthService) Get(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.store.GetUser(ctx, id)
	return user, translate(err)
}
