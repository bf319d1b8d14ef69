package repository

import (
	"context"

	"anoa.com/folio/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*entity.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	FindSummaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]entity.UserSummary, error)
	UpdateAvatar(ctx context.Context, id uuid.UUID, avatarURL string) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&entity.User{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *userRepository) Create(ctx context.Context, user *entity.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&user).Error; err != nil {
		return nil, err
	}

	return &user, nil
}

// FindByUsernameOrEmail matches on whichever of the two is non-empty.
func (r *userRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*entity.User, error) {
	query, ok := r.usernameOrEmail(ctx, username, email)
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}

	var user entity.User
	if err := query.First(&user).Error; err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *userRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	query, ok := r.usernameOrEmail(ctx, username, email)
	if !ok {
		return false, nil
	}

	var count int64
	if err := query.Model(&entity.User{}).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *userRepository) usernameOrEmail(ctx context.Context, username, email string) (*gorm.DB, bool) {
	query := r.db.WithContext(ctx)
	switch {
	case username != "" && email != "":
		return query.Where("username = ? OR email = ?", username, email), true
	case username != "":
		return query.Where("username = ?", username), true
	case email != "":
		return query.Where("email = ?", email), true
	}
	return nil, false
}

func (r *userRepository) FindSummaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]entity.UserSummary, error) {
	out := make(map[uuid.UUID]entity.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var summaries []entity.UserSummary
	if err := r.db.WithContext(ctx).
		Select("id", "username", "avatar_url").
		Where("id IN ?", ids).
		Find(&summaries).Error; err != nil {
		return nil, err
	}

	for _, s := range summaries {
		out[s.ID] = s
	}
	return out, nil
}

func (r *userRepository) UpdateAvatar(ctx context.Context, id uuid.UUID, avatarURL string) error {
	res := r.db.WithContext(ctx).
		Model(&entity.User{}).
		Where("id = ?", id).
		Update("avatar_url", avatarURL)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&entity.User{}, "id = ?", id).Error
}
