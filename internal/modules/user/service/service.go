package user

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"anoa.com/folio/internal/entity"
	"anoa.com/folio/internal/modules/user/dto"
	"anoa.com/folio/internal/modules/user/repository"
	"anoa.com/folio/pkg/apperror"
	commonDto "anoa.com/folio/pkg/dto"
	"anoa.com/folio/pkg/logger"
	"anoa.com/folio/pkg/storage"
	"anoa.com/folio/pkg/token"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const birthdateLayout = "2006-01-02"

var (
	ErrUserExists         = apperror.Conflict("Already existing user with these credentials")
	ErrInvalidCredentials = apperror.New(http.StatusBadRequest, "Inexisting user with these credentials!", apperror.ErrInvalidCredentials)
	// ErrAccountGone answers a valid token whose account has been deleted.
	ErrAccountGone = apperror.New(http.StatusUnauthorized, "Not Authorized!", apperror.ErrUnauthorized)
)

type AuthService interface {
	Register(ctx context.Context, input dto.RegisterInput) (*commonDto.TokenResponse, error)
	Login(ctx context.Context, input dto.LoginInput) (*commonDto.TokenResponse, error)
	GetCurrentUser(ctx context.Context, userID uuid.UUID) (*entity.User, error)
	UploadAvatar(ctx context.Context, userID uuid.UUID, avatar commonDto.AvatarFile) (*entity.User, error)
	DeleteAccount(ctx context.Context, userID uuid.UUID) error
}

type authService struct {
	repo         repository.UserRepository
	tokens       *token.Manager
	imageStorage storage.ImageStorage
	hashCost     int
}

// NewAuthService wires the credential store. imageStorage may be nil, in
// which case avatar uploads are refused.
func NewAuthService(repo repository.UserRepository, tokens *token.Manager, imageStorage storage.ImageStorage) AuthService {
	return &authService{
		repo:         repo,
		tokens:       tokens,
		imageStorage: imageStorage,
		hashCost:     bcrypt.DefaultCost,
	}
}

func (s *authService) Register(ctx context.Context, input dto.RegisterInput) (*commonDto.TokenResponse, error) {
	username := strings.TrimSpace(input.Username)
	email := normalizeEmail(input.Email)

	birthdate, err := time.Parse(birthdateLayout, strings.TrimSpace(input.Birthdate))
	if err != nil {
		return nil, apperror.InvalidInput("Wrong Date Format!")
	}

	exists, err := s.repo.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if exists {
		return nil, ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	avatar := gravatarURL(email)
	user := &entity.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Birthdate:    birthdate,
		AvatarURL:    &avatar,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		// lost a race with a concurrent signup
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.buildTokenResponse(user.ID)
}

func (s *authService) Login(ctx context.Context, input dto.LoginInput) (*commonDto.TokenResponse, error) {
	username := strings.TrimSpace(input.Username)
	email := normalizeEmail(input.Email)

	user, err := s.repo.FindByUsernameOrEmail(ctx, username, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.buildTokenResponse(user.ID)
}

func (s *authService) GetCurrentUser(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountGone
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *authService) UploadAvatar(ctx context.Context, userID uuid.UUID, avatar commonDto.AvatarFile) (*entity.User, error) {
	if s.imageStorage == nil {
		return nil, apperror.New(http.StatusServiceUnavailable, "image storage is not configured", storage.ErrNotConfigured)
	}
	if avatar.Reader == nil {
		return nil, apperror.InvalidInput("Required Field! Must include an avatar image")
	}

	user, err := s.GetCurrentUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	url, err := s.imageStorage.UploadImage(ctx, avatar.Reader, avatar.FileName)
	if err != nil {
		logger.Get().WithError(err).WithField("user_id", userID).Warn("avatar upload failed")
		return nil, apperror.BadRequest("Could not upload avatar")
	}

	if err := s.repo.UpdateAvatar(ctx, userID, url); err != nil {
		return nil, fmt.Errorf("update avatar: %w", err)
	}

	if previous := user.AvatarURL; previous != nil && s.imageStorage.Owns(*previous) {
		if err := s.imageStorage.DeleteImage(ctx, *previous); err != nil {
			logger.Get().WithError(err).WithField("user_id", userID).Warn("failed to delete previous avatar")
		}
	}

	user.AvatarURL = &url
	return user, nil
}

// DeleteAccount removes the user record only; profile cleanup is the caller's job.
func (s *authService) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("find user: %w", err)
	}

	if err := s.repo.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if s.imageStorage != nil && user.AvatarURL != nil && s.imageStorage.Owns(*user.AvatarURL) {
		if err := s.imageStorage.DeleteImage(ctx, *user.AvatarURL); err != nil {
			logger.Get().WithError(err).WithField("user_id", userID).Warn("failed to delete avatar of removed account")
		}
	}
	return nil
}

func (s *authService) buildTokenResponse(userID uuid.UUID) (*commonDto.TokenResponse, error) {
	signed, err := s.tokens.Issue(userID)
	if err != nil {
		return nil, err
	}
	return &commonDto.TokenResponse{Token: signed}, nil
}
