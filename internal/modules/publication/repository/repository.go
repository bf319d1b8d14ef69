package repository

import (
	"context"

	"anoa.com/folio/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PublicationRepository interface {
	Create(ctx context.Context, pub *entity.Publication) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Publication, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.Publication, error)
	FindAll(ctx context.Context) ([]*entity.Publication, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.Publication, error)
	FindFeatured(ctx context.Context, minRate float64) ([]*entity.Publication, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	Delete(ctx context.Context, id uuid.UUID) error

	AddRating(ctx context.Context, rating *entity.Rating) error
	FindRatings(ctx context.Context, pubID uuid.UUID) ([]entity.Rating, error)

	AddComment(ctx context.Context, comment *entity.Comment) error
	FindComment(ctx context.Context, pubID, commentID uuid.UUID) (*entity.Comment, error)
	FindComments(ctx context.Context, pubID uuid.UUID) ([]entity.Comment, error)
	DeleteComment(ctx context.Context, pubID, commentID uuid.UUID) error
}

type publicationRepository struct {
	db *gorm.DB
}

func NewPublicationRepository(db *gorm.DB) PublicationRepository {
	return &publicationRepository{db: db}
}

func orderRatings(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}

// comments are newest first; ids are v7 so they break timestamp ties
func orderComments(db *gorm.DB) *gorm.DB {
	return db.Order("commented_at DESC").Order("id DESC")
}

func (r *publicationRepository) withChildren(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Ratings", orderRatings).
		Preload("Comments", orderComments)
}

func (r *publicationRepository) Create(ctx context.Context, pub *entity.Publication) error {
	return r.db.WithContext(ctx).Omit("Ratings", "Comments").Create(pub).Error
}

func (r *publicationRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Publication, error) {
	var pub entity.Publication
	if err := r.withChildren(ctx).
		Where("id = ?", id).
		First(&pub).Error; err != nil {
		return nil, err
	}
	return &pub, nil
}

func (r *publicationRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.Publication, error) {
	var pubs []*entity.Publication
	if len(ids) == 0 {
		return pubs, nil
	}
	err := r.withChildren(ctx).
		Where("id IN ?", ids).
		Order("written_at DESC").Order("id DESC").
		Find(&pubs).Error
	return pubs, err
}

func (r *publicationRepository) FindAll(ctx context.Context) ([]*entity.Publication, error) {
	var pubs []*entity.Publication
	err := r.withChildren(ctx).
		Order("written_at DESC").Order("id DESC").
		Find(&pubs).Error
	return pubs, err
}

func (r *publicationRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.Publication, error) {
	var pubs []*entity.Publication
	err := r.withChildren(ctx).
		Where("user_id = ?", userID).
		Order("written_at DESC").Order("id DESC").
		Find(&pubs).Error
	return pubs, err
}

// FindFeatured returns publications holding at least one rating >= minRate.
func (r *publicationRepository) FindFeatured(ctx context.Context, minRate float64) ([]*entity.Publication, error) {
	var pubs []*entity.Publication
	err := r.withChildren(ctx).
		Where("EXISTS (SELECT 1 FROM publication_ratings pr WHERE pr.publication_id = publications.id AND pr.rate >= ?)", minRate).
		Order("written_at DESC").Order("id DESC").
		Find(&pubs).Error
	return pubs, err
}

func (r *publicationRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).
		Model(&entity.Publication{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes the publication together with its ratings and comments.
func (r *publicationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("publication_id = ?", id).Delete(&entity.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("publication_id = ?", id).Delete(&entity.Rating{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&entity.Publication{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *publicationRepository) AddRating(ctx context.Context, rating *entity.Rating) error {
	return r.db.WithContext(ctx).Create(rating).Error
}

func (r *publicationRepository) FindRatings(ctx context.Context, pubID uuid.UUID) ([]entity.Rating, error) {
	ratings := []entity.Rating{}
	err := orderRatings(r.db.WithContext(ctx)).
		Where("publication_id = ?", pubID).
		Find(&ratings).Error
	return ratings, err
}

func (r *publicationRepository) AddComment(ctx context.Context, comment *entity.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *publicationRepository) FindComment(ctx context.Context, pubID, commentID uuid.UUID) (*entity.Comment, error) {
	var comment entity.Comment
	if err := r.db.WithContext(ctx).
		Where("publication_id = ? AND id = ?", pubID, commentID).
		First(&comment).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *publicationRepository) FindComments(ctx context.Context, pubID uuid.UUID) ([]entity.Comment, error) {
	comments := []entity.Comment{}
	err := orderComments(r.db.WithContext(ctx)).
		Where("publication_id = ?", pubID).
		Find(&comments).Error
	return comments, err
}

func (r *publicationRepository) DeleteComment(ctx context.Context, pubID, commentID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("publication_id = ? AND id = ?", pubID, commentID).
		Delete(&entity.Comment{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
