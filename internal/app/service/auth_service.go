package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/url"
	"strings"
	"unicode"

	"codearena/internal/common"
	"codearena/internal/common/security"
	"codearena/internal/domain/model"
	"codearena/internal/domain/repository"
	"codearena/internal/platform/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AuthService struct {
	userRepo repository.UserRepository
	tokens   *security.TokenManager
}

func NewAuthService(userRepo repository.UserRepository, tokens *security.TokenManager) *AuthService {
	return &AuthService{userRepo: userRepo, tokens: tokens}
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"omitempty,min=3,max=50"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=8,max=25,strongpassword"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=8,max=25"`
}

// AuthResponse carries the user and the tokens the handler turns into
// cookies. RefreshToken is empty after register and refresh.
type AuthResponse struct {
	User         *model.User `json:"user"`
	AccessToken  string      `json:"-"`
	RefreshToken string      `json:"-"`
}

func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if err := common.Validate(req); err != nil {
		return nil, err
	}

	if _, err := s.userRepo.FindByEmail(ctx, req.Email); err == nil {
		return nil, common.NewError(common.ErrConflict, "Email already exists, please login")
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	hashedPassword, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:             uuid.NewString(),
		Name:           req.Name,
		Email:          req.Email,
		HashedPassword: hashedPassword,
		Role:           model.RoleUser,
		Image:          avatarURL(req.Name),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	accessToken, err := s.tokens.GenerateAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	logger.Info(ctx, "user registered", zap.String("user_id", user.ID))
	user.HashedPassword = ""
	return &AuthResponse{User: user, AccessToken: accessToken}, nil
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := common.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NewError(common.ErrUnauthorized, "User not found")
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if !security.CheckPasswordHash(req.Password, user.HashedPassword) {
		return nil, common.NewError(common.ErrUnauthorized, "Invalid credentials")
	}

	accessToken, err := s.tokens.GenerateAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	refreshToken, err := s.tokens.GenerateRefreshToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	logger.Info(ctx, "user logged in", zap.String("user_id", user.ID))
	user.HashedPassword = ""
	return &AuthResponse{User: user, AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Refresh issues a new access token from a valid refresh token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	if refreshToken == "" {
		return nil, common.NewError(common.ErrUnauthorized, "Refresh token is missing")
	}
	claims, err := s.tokens.ParseRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, common.WrapError(common.ErrUnauthorized, "Invalid refresh token", err)
	}
	userID, err := security.GetUserIDFromClaims(claims)
	if err != nil {
		return nil, common.WrapError(common.ErrUnauthorized, "Invalid refresh token", err)
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NewError(common.ErrUnauthorized, "User not found")
		}
		return nil, err
	}

	accessToken, err := s.tokens.GenerateAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	user.HashedPassword = ""
	return &AuthResponse{User: user, AccessToken: accessToken}, nil
}

// CurrentUser loads the user behind a verified token. A user that no longer
// exists yields nil without an error.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	user.HashedPassword = ""
	return user, nil
}

// avatarURL renders the initials of name on a random background colour.
func avatarURL(name string) string {
	var initials strings.Builder
	for _, part := range strings.Fields(name) {
		r := []rune(part)[0]
		initials.WriteRune(unicode.ToUpper(r))
	}
	color := fmt.Sprintf("%06x", rand.Intn(0xFFFFFF))
	return fmt.Sprintf("https://placehold.co/150x150/%s/000000?text=%s", color, url.QueryEscape(initials.String()))
}
