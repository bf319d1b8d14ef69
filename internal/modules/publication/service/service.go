package publication

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"anoa.com/folio/internal/entity"
	publicationDto "anoa.com/folio/internal/modules/publication/dto"
	publicationRepo "anoa.com/folio/internal/modules/publication/repository"
	search "anoa.com/folio/internal/modules/search/service"
	userRepo "anoa.com/folio/internal/modules/user/repository"
	"anoa.com/folio/pkg/apperror"
	"anoa.com/folio/pkg/logger"
	"anoa.com/folio/pkg/ratelimiter"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	minTitleLength = 5
	minTextLength  = 10

	defaultSearchLimit = 20
)

var (
	ErrPublicationNotFound = apperror.NotFound("No publication found!")
	ErrAuthorHasNone       = apperror.NotFound("No publication found for this author!")
	ErrCommentNotFound     = apperror.NotFound("Comment not found!")
	ErrNotAuthor           = apperror.Forbidden("Not authorized!")
	ErrRateOutOfRange      = apperror.InvalidInput("Rate must be between 0 and 5!")
)

// Limits are the per-user cooldowns between writes. Zero disables one.
type Limits struct {
	Publication time.Duration
	Comment     time.Duration
	Rating      time.Duration
}

type PublicationService interface {
	Create(ctx context.Context, userID uuid.UUID, input publicationDto.CreatePublicationInput) (*entity.Publication, error)
	Update(ctx context.Context, rawID string, userID uuid.UUID, input publicationDto.UpdatePublicationInput) (*entity.Publication, error)
	ListAll(ctx context.Context) ([]*entity.Publication, error)
	GetByID(ctx context.Context, rawID string) (*entity.Publication, error)
	ListByAuthor(ctx context.Context, rawUserID string) ([]*entity.Publication, error)
	ListFeatured(ctx context.Context) ([]*entity.Publication, error)
	Delete(ctx context.Context, rawID string, userID uuid.UUID) error
	AddRating(ctx context.Context, rawID string, userID uuid.UUID, rate float64) ([]entity.Rating, error)
	AddComment(ctx context.Context, rawID string, userID uuid.UUID, text string) ([]entity.Comment, error)
	DeleteComment(ctx context.Context, rawID, rawCommentID string, userID uuid.UUID) ([]entity.Comment, error)
	Search(ctx context.Context, filter publicationDto.SearchFilter) ([]*entity.Publication, error)
}

type publicationService struct {
	repo        publicationRepo.PublicationRepository
	userRepo    userRepo.UserRepository
	index       search.PublicationIndex
	redisClient *redis.Client
	limits      Limits
	now         func() time.Time
}

// NewPublicationService wires the publication store. index and redisClient
// are optional: without them search returns nothing and writes are not throttled.
func NewPublicationService(repo publicationRepo.PublicationRepository, userRepo userRepo.UserRepository, index search.PublicationIndex, redisClient *redis.Client, limits Limits) PublicationService {
	return &publicationService{
		repo:        repo,
		userRepo:    userRepo,
		index:       index,
		redisClient: redisClient,
		limits:      limits,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *publicationService) Create(ctx context.Context, userID uuid.UUID, input publicationDto.CreatePublicationInput) (*entity.Publication, error) {
	title := strings.TrimSpace(input.Title)
	text := strings.TrimSpace(input.Text)
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	if err := validateText(text); err != nil {
		return nil, err
	}

	author, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrUnauthorized
		}
		return nil, fmt.Errorf("find author: %w", err)
	}

	if err := s.throttle(ctx, userID, "publication", s.limits.Publication); err != nil {
		return nil, err
	}

	pub := &entity.Publication{
		UserID:    userID,
		Title:     title,
		Text:      text,
		Author:    author.Username,
		Avatar:    author.AvatarURL,
		WrittenAt: s.now(),
	}
	if err := s.repo.Create(ctx, pub); err != nil {
		s.releaseThrottle(ctx, userID, "publication")
		return nil, fmt.Errorf("create publication: %w", err)
	}

	s.indexPublication(pub)
	return normalize(pub), nil
}

func (s *publicationService) Update(ctx context.Context, rawID string, userID uuid.UUID, input publicationDto.UpdatePublicationInput) (*entity.Publication, error) {
	pub, err := s.findOwned(ctx, rawID, userID)
	if err != nil {
		return nil, err
	}

	// an empty field was not sent; a blank one was and is rejected
	fields := map[string]interface{}{}
	if input.Title != "" {
		title := strings.TrimSpace(input.Title)
		if err := validateTitle(title); err != nil {
			return nil, err
		}
		fields["title"] = title
	}
	if input.Text != "" {
		text := strings.TrimSpace(input.Text)
		if err := validateText(text); err != nil {
			return nil, err
		}
		fields["text"] = text
	}

	if err := s.repo.Update(ctx, pub.ID, fields); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPublicationNotFound
		}
		return nil, fmt.Errorf("update publication: %w", err)
	}

	updated, err := s.find(ctx, pub.ID)
	if err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		s.indexPublication(updated)
	}
	return updated, nil
}

func (s *publicationService) ListAll(ctx context.Context) ([]*entity.Publication, error) {
	pubs, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list publications: %w", err)
	}
	return normalizeAll(pubs), nil
}

func (s *publicationService) GetByID(ctx context.Context, rawID string) (*entity.Publication, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, ErrPublicationNotFound
	}
	return s.find(ctx, id)
}

func (s *publicationService) ListByAuthor(ctx context.Context, rawUserID string) ([]*entity.Publication, error) {
	userID, err := uuid.Parse(rawUserID)
	if err != nil {
		return nil, ErrAuthorHasNone
	}

	pubs, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list publications by author: %w", err)
	}
	if len(pubs) == 0 {
		return nil, ErrAuthorHasNone
	}
	return normalizeAll(pubs), nil
}

func (s *publicationService) ListFeatured(ctx context.Context) ([]*entity.Publication, error) {
	pubs, err := s.repo.FindFeatured(ctx, entity.FeaturedRate)
	if err != nil {
		return nil, fmt.Errorf("list featured publications: %w", err)
	}
	return normalizeAll(pubs), nil
}

func (s *publicationService) Delete(ctx context.Context, rawID string, userID uuid.UUID) error {
	pub, err := s.findOwned(ctx, rawID, userID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, pub.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPublicationNotFound
		}
		return fmt.Errorf("delete publication: %w", err)
	}

	if s.index != nil {
		if err := s.index.DeletePublication(pub.ID); err != nil {
			logger.Get().WithError(err).Warn("failed to remove publication from search index")
		}
	}
	return nil
}

// AddRating appends a rating. A user may rate the same publication more than once.
func (s *publicationService) AddRating(ctx context.Context, rawID string, userID uuid.UUID, rate float64) ([]entity.Rating, error) {
	if rate < entity.MinRate || rate > entity.MaxRate {
		return nil, ErrRateOutOfRange
	}

	pub, err := s.GetByID(ctx, rawID)
	if err != nil {
		return nil, err
	}

	if err := s.throttle(ctx, userID, "rating", s.limits.Rating); err != nil {
		return nil, err
	}

	rating := &entity.Rating{
		PublicationID: pub.ID,
		UserID:        userID,
		Rate:          rate,
	}
	if err := s.repo.AddRating(ctx, rating); err != nil {
		s.releaseThrottle(ctx, userID, "rating")
		return nil, fmt.Errorf("add rating: %w", err)
	}

	ratings, err := s.repo.FindRatings(ctx, pub.ID)
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	return ratings, nil
}

func (s *publicationService) AddComment(ctx context.Context, rawID string, userID uuid.UUID, text string) ([]entity.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperror.InvalidInput("Required! Must include a text")
	}

	pub, err := s.GetByID(ctx, rawID)
	if err != nil {
		return nil, err
	}

	author, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrUnauthorized
		}
		return nil, fmt.Errorf("find author: %w", err)
	}

	if err := s.throttle(ctx, userID, "comment", s.limits.Comment); err != nil {
		return nil, err
	}

	comment := &entity.Comment{
		PublicationID: pub.ID,
		UserID:        userID,
		Text:          text,
		Author:        author.Username,
		Avatar:        author.AvatarURL,
		CommentedAt:   s.now(),
	}
	if err := s.repo.AddComment(ctx, comment); err != nil {
		s.releaseThrottle(ctx, userID, "comment")
		return nil, fmt.Errorf("add comment: %w", err)
	}

	comments, err := s.repo.FindComments(ctx, pub.ID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

// DeleteComment removes the comment with the given id, provided the caller wrote it.
func (s *publicationService) DeleteComment(ctx context.Context, rawID, rawCommentID string, userID uuid.UUID) ([]entity.Comment, error) {
	pubID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, ErrPublicationNotFound
	}
	commentID, err := uuid.Parse(rawCommentID)
	if err != nil {
		return nil, ErrCommentNotFound
	}

	comment, err := s.repo.FindComment(ctx, pubID, commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, fmt.Errorf("find comment: %w", err)
	}
	if comment.UserID != userID {
		return nil, ErrNotAuthor
	}

	if err := s.repo.DeleteComment(ctx, pubID, commentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, fmt.Errorf("delete comment: %w", err)
	}

	comments, err := s.repo.FindComments(ctx, pubID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

func (s *publicationService) Search(ctx context.Context, filter publicationDto.SearchFilter) ([]*entity.Publication, error) {
	query := strings.TrimSpace(filter.Query)
	if s.index == nil || query == "" {
		return []*entity.Publication{}, nil
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	ids, err := s.index.SearchPublications(query, limit)
	if err != nil {
		return nil, fmt.Errorf("search publications: %w", err)
	}

	pubs, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load search hits: %w", err)
	}
	return normalizeAll(pubs), nil
}

func (s *publicationService) find(ctx context.Context, id uuid.UUID) (*entity.Publication, error) {
	pub, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPublicationNotFound
		}
		return nil, fmt.Errorf("find publication: %w", err)
	}
	return normalize(pub), nil
}

// findOwned loads the publication and checks that userID wrote it.
func (s *publicationService) findOwned(ctx context.Context, rawID string, userID uuid.UUID) (*entity.Publication, error) {
	pub, err := s.GetByID(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if pub.UserID != userID {
		return nil, ErrNotAuthor
	}
	return pub, nil
}

func (s *publicationService) throttle(ctx context.Context, userID uuid.UUID, action string, limit time.Duration) error {
	return ratelimiter.Throttle(ctx, s.redisClient, userID, action, limit)
}

// releaseThrottle frees the cooldown taken by a write that did not happen.
func (s *publicationService) releaseThrottle(ctx context.Context, userID uuid.UUID, action string) {
	if err := ratelimiter.ClearRateLimit(ctx, s.redisClient, userID, action); err != nil {
		logger.Get().WithError(err).WithField("action", action).Warn("failed to clear rate limit")
	}
}

func (s *publicationService) indexPublication(pub *entity.Publication) {
	if s.index == nil {
		return
	}
	if err := s.index.IndexPublication(pub); err != nil {
		logger.Get().WithError(err).WithField("publication_id", pub.ID).Warn("failed to index publication")
	}
}
