package bootstrap

import (
	"context"
	"fmt"

	"anoa.com/folio/internal/entity"
	profileDto "anoa.com/folio/internal/modules/profile/dto"
	profile "anoa.com/folio/internal/modules/profile/service"
	userDto "anoa.com/folio/internal/modules/user/dto"
	userRepo "anoa.com/folio/internal/modules/user/repository"
	user "anoa.com/folio/internal/modules/user/service"
	"anoa.com/folio/pkg/logger"
	"gorm.io/gorm"
)

const (
	demoUsername = "demouser"
	demoEmail    = "demo@folio.local"
	demoPassword = "demopassword"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(entity.Models()...)
}

// SeedDemoAccount registers a demo account with a profile on an empty database.
func SeedDemoAccount(ctx context.Context, users userRepo.UserRepository, authService user.AuthService, profileService profile.ProfileService) error {
	log := logger.Get()

	count, err := users.Count(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		log.Debug("users already present, skipping demo seed")
		return nil
	}

	if _, err := authService.Register(ctx, userDto.RegisterInput{
		Username:  demoUsername,
		Email:     demoEmail,
		Password:  demoPassword,
		Birthdate: "1990-01-01",
	}); err != nil {
		return fmt.Errorf("register demo user: %w", err)
	}

	demo, err := users.FindByUsernameOrEmail(ctx, demoUsername, "")
	if err != nil {
		return fmt.Errorf("load demo user: %w", err)
	}

	if _, err := profileService.Upsert(ctx, demo.ID, profileDto.UpsertProfileInput{
		FirstName: "Demo",
		LastName:  "User",
		School:    "Folio Academy",
		Hobbies:   profileDto.SplitList([]string{"reading", "writing"}),
		Skills:    profileDto.SplitList([]string{"go", "sql"}),
	}); err != nil {
		return fmt.Errorf("create demo profile: %w", err)
	}

	log.WithField("username", demoUsername).Info("demo account seeded")
	return nil
}
