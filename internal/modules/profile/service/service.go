package profile

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"anoa.com/folio/internal/entity"
	profileDto "anoa.com/folio/internal/modules/profile/dto"
	profileRepo "anoa.com/folio/internal/modules/profile/repository"
	userRepo "anoa.com/folio/internal/modules/user/repository"
	user "anoa.com/folio/internal/modules/user/service"
	"anoa.com/folio/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrProfileNotFound is answered with 400, not 404.
var ErrProfileNotFound = apperror.New(http.StatusBadRequest, "No profile found for this author!", apperror.ErrNotFound)

type ProfileService interface {
	GetMine(ctx context.Context, userID uuid.UUID) (*entity.Profile, error)
	Upsert(ctx context.Context, userID uuid.UUID, input profileDto.UpsertProfileInput) (*entity.Profile, error)
	GetAll(ctx context.Context) ([]*entity.Profile, error)
	GetByOwner(ctx context.Context, rawUserID string) (*entity.Profile, error)
	DeleteMine(ctx context.Context, userID uuid.UUID) error
}

type profileService struct {
	repo        profileRepo.ProfileRepository
	userRepo    userRepo.UserRepository
	authService user.AuthService
}

func NewProfileService(repo profileRepo.ProfileRepository, userRepo userRepo.UserRepository, authService user.AuthService) ProfileService {
	return &profileService{
		repo:        repo,
		userRepo:    userRepo,
		authService: authService,
	}
}

func (s *profileService) GetMine(ctx context.Context, userID uuid.UUID) (*entity.Profile, error) {
	return s.findByOwner(ctx, userID)
}

func (s *profileService) Upsert(ctx context.Context, userID uuid.UUID, input profileDto.UpsertProfileInput) (*entity.Profile, error) {
	fields, err := normalizeInput(input)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByUserID(ctx, userID)
	switch {
	case err == nil:
		fields.applyTo(existing)
		if err := s.repo.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("update profile: %w", err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		created := &entity.Profile{UserID: userID}
		fields.applyTo(created)
		if err := s.repo.Create(ctx, created); err != nil {
			if !errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, fmt.Errorf("create profile: %w", err)
			}
			// a concurrent upsert created it first; merge into that one
			return s.Upsert(ctx, userID, input)
		}
	default:
		return nil, fmt.Errorf("find profile: %w", err)
	}

	return s.findByOwner(ctx, userID)
}

func (s *profileService) GetAll(ctx context.Context) ([]*entity.Profile, error) {
	profiles, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	if err := s.attachOwners(ctx, profiles...); err != nil {
		return nil, err
	}
	if profiles == nil {
		profiles = []*entity.Profile{}
	}
	return profiles, nil
}

func (s *profileService) GetByOwner(ctx context.Context, rawUserID string) (*entity.Profile, error) {
	userID, err := uuid.Parse(rawUserID)
	if err != nil {
		return nil, ErrProfileNotFound
	}
	return s.findByOwner(ctx, userID)
}

// DeleteMine removes the profile and then the account. The two deletes are
// not atomic: a failure in the second leaves the account without a profile.
func (s *profileService) DeleteMine(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	if err := s.authService.DeleteAccount(ctx, userID); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

func (s *profileService) findByOwner(ctx context.Context, userID uuid.UUID) (*entity.Profile, error) {
	profile, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	if err := s.attachOwners(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *profileService) attachOwners(ctx context.Context, profiles ...*entity.Profile) error {
	ids := make([]uuid.UUID, 0, len(profiles))
	for _, p := range profiles {
		ids = append(ids, p.UserID)
	}

	owners, err := s.userRepo.FindSummaries(ctx, ids)
	if err != nil {
		return fmt.Errorf("load profile owners: %w", err)
	}

	for _, p := range profiles {
		if owner, ok := owners[p.UserID]; ok {
			p.Owner = &owner
		}
	}
	return nil
}

type profileFields struct {
	firstName, lastName, school string
	midName, country, city      *string
	hobbies, skills             []string
}

func normalizeInput(input profileDto.UpsertProfileInput) (profileFields, error) {
	f := profileFields{
		firstName: strings.TrimSpace(input.FirstName),
		lastName:  strings.TrimSpace(input.LastName),
		school:    strings.TrimSpace(input.School),
		midName:   normalizeOptional(input.MidName),
		country:   normalizeOptional(input.Country),
		city:      normalizeOptional(input.City),
		hobbies:   profileDto.SplitList(input.Hobbies),
		skills:    profileDto.SplitList(input.Skills),
	}

	switch {
	case f.firstName == "":
		return f, apperror.InvalidInput("Required Field! Please include your first name")
	case f.lastName == "":
		return f, apperror.InvalidInput("Required Field! Please include your last name")
	case f.school == "":
		return f, apperror.InvalidInput("Required Field! Please include your school name")
	case len(f.hobbies) == 0:
		return f, apperror.InvalidInput("Required Field! Please at least one hobby")
	case len(f.skills) == 0:
		return f, apperror.InvalidInput("Required Field! Please include at least one skill")
	}
	return f, nil
}

// applyTo overwrites required fields and only the optional ones that were sent.
func (f profileFields) applyTo(p *entity.Profile) {
	p.FirstName = f.firstName
	p.LastName = f.lastName
	p.School = f.school
	p.Hobbies = f.hobbies
	p.Skills = f.skills
	if f.midName != nil {
		p.MidName = f.midName
	}
	if f.country != nil {
		p.Country = f.country
	}
	if f.city != nil {
		p.City = f.city
	}
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}

	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}

	result := trimmed
	return &result
}
